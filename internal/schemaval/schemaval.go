// Package schemaval validates a blueprint step's step_config against an
// operation's declared input schema before the step's executor runs
// (spec.md §3.9).
//
// Import Path: enrichpipe.io/engine/internal/schemaval
package schemaval

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	apperrors "enrichpipe.io/engine/internal/pkg/errors"
)

// Validate checks stepConfig against schema, a JSON-schema subset expressed
// as map[string]any on the operation definition. A nil or empty schema
// means the operation declares no constraints and validation is skipped.
func Validate(schema map[string]any, stepConfig map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal input schema: %w", err)
	}
	var openAPISchema openapi3.Schema
	if err := json.Unmarshal(schemaBytes, &openAPISchema); err != nil {
		return fmt.Errorf("parse input schema: %w", err)
	}

	configBytes, err := json.Marshal(stepConfig)
	if err != nil {
		return fmt.Errorf("marshal step_config: %w", err)
	}
	var configValue any
	if err := json.Unmarshal(configBytes, &configValue); err != nil {
		return fmt.Errorf("decode step_config: %w", err)
	}

	if err := openAPISchema.VisitJSON(configValue); err != nil {
		return apperrors.New(apperrors.CodeValidationFailed, "step_config failed schema validation: "+err.Error(), http.StatusBadRequest)
	}
	return nil
}
