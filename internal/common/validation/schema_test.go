package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const querySchema = `{
	"type": "object",
	"required": ["query", "sources"],
	"properties": {
		"query": {"type": "string", "minLength": 1},
		"sources": {"type": "array"},
		"agreement": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

func TestSchema_ValidateJSON(t *testing.T) {
	schema, err := Compile(querySchema)
	require.NoError(t, err)

	tests := []struct {
		name   string
		doc    string
		valid  bool
		fields []string
	}{
		{"valid", `{"query":"when to plant maize","sources":[]}`, true, nil},
		{"missing sources", `{"query":"when to plant maize"}`, false, []string{"(root)"}},
		{"empty query", `{"query":"","sources":[]}`, false, []string{"query"}},
		{"agreement out of range", `{"query":"q","sources":[],"agreement":1.5}`, false, []string{"agreement"}},
		{"not json", `{"query":`, false, []string{"(root)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.ValidateJSON(tt.doc)
			assert.Equal(t, tt.valid, result.Valid)
			for i, field := range tt.fields {
				require.Greater(t, len(result.Errors), i)
				assert.Equal(t, field, result.Errors[i].Field)
			}
		})
	}
}

func TestSchema_ValidateGoValue(t *testing.T) {
	schema := MustCompile(querySchema)

	result := schema.Validate(map[string]interface{}{"query": "q"})
	assert.False(t, result.Valid)
	assert.Contains(t, result.Error(), "sources")
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
}
