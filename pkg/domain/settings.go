package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Settings is an opaque key/value document attached to tenants, module
// installations and usage metadata. It persists as a JSON object.
type Settings map[string]any

// Clone returns a deep copy of the nested maps and slices, so callers cannot
// mutate stored state through a returned or passed-in reference. A nil
// receiver yields an empty, non-nil map.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container types a JSON document decodes into.
// Scalars are immutable and returned as is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case Settings:
		return t.Clone()
	case map[string]any:
		return map[string]any(Settings(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Value implements driver.Valuer for JSONB columns.
func (s Settings) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner for JSONB columns.
func (s *Settings) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = Settings{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan settings: unsupported type %T", src)
	}
	out := Settings{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	*s = out
	return nil
}
