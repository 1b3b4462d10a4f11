package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hearth/pkg/domain-errors"
)

type mealPlan struct {
	Title string   `json:"title" jsonschema:"description=Short plan title" validate:"required"`
	Days  []string `json:"days" validate:"min=1,max=7"`
	Notes string   `json:"notes,omitempty"`
}

func TestOf(t *testing.T) {
	s, err := Of[mealPlan]()
	require.NoError(t, err)
	assert.Equal(t, "mealPlan", s.Name())

	doc := s.Document()
	assert.Equal(t, "object", doc["type"])
	assert.NotContains(t, doc, "$schema")
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "title")
	assert.Contains(t, props, "days")
	assert.ElementsMatch(t, []any{"title", "days"}, doc["required"])

	doc["type"] = "mutated"
	assert.Equal(t, "object", s.Document()["type"], "Document must return a copy")
}

func TestOfRejectsNonStruct(t *testing.T) {
	_, err := Of[string]()
	require.Error(t, err)
	assert.Panics(t, func() { MustOf[[]int]() })
}

func TestConform(t *testing.T) {
	s := MustOf[mealPlan]()

	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"valid", `{"title":"Week 1","days":["mon"]}`, true},
		{"missing required", `{"days":["mon"]}`, false},
		{"unknown field", `{"title":"x","days":["mon"],"extra":1}`, false},
		{"wrong type", `{"title":1,"days":["mon"]}`, false},
		{"too many days", `{"title":"x","days":["1","2","3","4","5","6","7","8"]}`, false},
		{"trailing data", `{"title":"x","days":["mon"]} {}`, false},
		{"not json", `sure, here is your plan`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Conform([]byte(tc.raw))
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestDecode(t *testing.T) {
	plan, err := Decode[mealPlan]([]byte(`{"title":"Week 1","days":["mon","tue"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"mon", "tue"}, plan.Days)

	var nilSchema *Schema
	assert.Error(t, nilSchema.Conform([]byte(`{}`)))
}
