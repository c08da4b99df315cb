package schemaval_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"enrichpipe.io/engine/internal/schemaval"
)

func TestValidate_NilSchema_Skipped(t *testing.T) {
	require.NoError(t, schemaval.Validate(nil, map[string]any{"anything": "goes"}))
}

func TestValidate_ValidConfig_Passes(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"max_age_hours"},
		"properties": map[string]any{
			"max_age_hours": map[string]any{"type": "number"},
		},
	}
	require.NoError(t, schemaval.Validate(schema, map[string]any{"max_age_hours": 24}))
}

func TestValidate_MissingRequiredField_Fails(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"max_age_hours"},
		"properties": map[string]any{
			"max_age_hours": map[string]any{"type": "number"},
		},
	}
	err := schemaval.Validate(schema, map[string]any{})
	require.Error(t, err)
}

func TestValidate_WrongType_Fails(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"max_age_hours": map[string]any{"type": "number"},
		},
	}
	err := schemaval.Validate(schema, map[string]any{"max_age_hours": "not-a-number"})
	require.Error(t, err)
}
