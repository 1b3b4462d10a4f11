// Package schema describes the output shape a caller expects from a generation
// and checks raw provider output against it.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	dErrors "hearth/pkg/domain-errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Schema is a declared output shape: a JSON Schema document sent to providers
// plus a conformance check for what comes back.
type Schema struct {
	name     string
	document map[string]any
	conform  func(raw []byte) error
}

// Of reflects T into a JSON Schema. Field names follow `json` tags, fields
// without omitempty are required, and `jsonschema` tags add descriptions and
// enums. Output is accepted only if it decodes strictly into T and satisfies
// T's `validate` tags.
func Of[T any]() (*Schema, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: output type must be a struct, got %v", typ)
	}

	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	raw, err := json.Marshal(r.Reflect(new(T)))
	if err != nil {
		return nil, fmt.Errorf("schema: marshal %s: %w", typ.Name(), err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema: reload %s: %w", typ.Name(), err)
	}
	delete(doc, "$schema")
	delete(doc, "$id")

	return &Schema{
		name:     typ.Name(),
		document: doc,
		conform: func(raw []byte) error {
			_, err := decodeStrict[T](raw)
			return err
		},
	}, nil
}

// MustOf is Of for package-level schema variables.
func MustOf[T any]() *Schema {
	s, err := Of[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// Name is the Go type name the schema was reflected from.
func (s *Schema) Name() string {
	return s.name
}

// Document returns a copy of the JSON Schema, safe to embed in a request body.
func (s *Schema) Document() map[string]any {
	return deepCopy(s.document).(map[string]any)
}

// Conform reports whether raw is a value of the declared shape.
// Failures carry CodeValidation.
func (s *Schema) Conform(raw []byte) error {
	if s == nil || s.conform == nil {
		return dErrors.New(dErrors.CodeValidation, "no output schema declared")
	}
	return s.conform(raw)
}

// Decode strictly decodes raw into T and validates it.
func Decode[T any](raw []byte) (*T, error) {
	return decodeStrict[T](raw)
}

func decodeStrict[T any](raw []byte) (*T, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var out T
	if err := dec.Decode(&out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "output does not match schema: "+err.Error())
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, dErrors.New(dErrors.CodeValidation, "output does not match schema: trailing data")
	}
	if err := validate.Struct(&out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("output does not match schema: %s failed %s", verrs[0].Namespace(), verrs[0].Tag()))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "output does not match schema")
	}
	return &out, nil
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
