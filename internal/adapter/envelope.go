// Package adapter defines the normalized provider-call envelope every
// operation executor returns, and the input-extraction helpers executors
// use to pull typed parameters out of a step's composed input payload.
package adapter

import (
	"github.com/google/uuid"

	"enrichpipe.io/engine/internal/domain"
)

// Attempt is an alias of domain.Attempt: the per-provider-call telemetry
// entry, kept here under the name SPEC_FULL.md §3.1 uses so callers can
// write adapter.Attempt while domain stays the single source of truth
// (StepResult.ProviderAttempts is domain-typed to avoid an import cycle).
type Attempt = domain.Attempt

// ErrorInfo is the structured error carried by a failed envelope.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the uniform result every operation executor returns, per
// spec.md §4.1.
type Envelope struct {
	RunID            uuid.UUID      `json:"run_id"`
	OperationID      string         `json:"operation_id"`
	Status           string         `json:"status"` // found | not_found | failed | skipped
	Output           map[string]any `json:"output,omitempty"`
	MissingInputs    []string       `json:"missing_inputs,omitempty"`
	Error            *ErrorInfo     `json:"error,omitempty"`
	ProviderAttempts []Attempt      `json:"provider_attempts"`
}

// Found builds a successful envelope with at least one record.
func Found(operationID string, output map[string]any, attempts ...Attempt) Envelope {
	return Envelope{
		RunID:            uuid.New(),
		OperationID:      operationID,
		Status:           domain.StatusFound,
		Output:           output,
		ProviderAttempts: attempts,
	}
}

// NotFound builds an envelope for a provider that responded with no records.
func NotFound(operationID string, attempts ...Attempt) Envelope {
	return Envelope{
		RunID:            uuid.New(),
		OperationID:      operationID,
		Status:           domain.StatusNotFound,
		ProviderAttempts: attempts,
	}
}

// Failed builds a failed envelope with a structured error.
func Failed(operationID, code, message string, attempts ...Attempt) Envelope {
	return Envelope{
		RunID:            uuid.New(),
		OperationID:      operationID,
		Status:           domain.StatusFailed,
		Error:            &ErrorInfo{Code: code, Message: message},
		ProviderAttempts: attempts,
	}
}

// MissingInputs builds a failed envelope for an executor that could not
// find its required parameters, per spec.md §7's MissingInputs kind.
func MissingInputs(operationID string, missing []string) Envelope {
	return Envelope{
		RunID:         uuid.New(),
		OperationID:   operationID,
		Status:        domain.StatusFailed,
		MissingInputs: missing,
		Error:         &ErrorInfo{Code: "missing_inputs", Message: "required inputs not found"},
	}
}

// Skipped builds an envelope for an operation that never called its
// provider (missing credentials or missing required inputs but tolerated).
func Skipped(operationID string, attempts ...Attempt) Envelope {
	return Envelope{
		RunID:            uuid.New(),
		OperationID:      operationID,
		Status:           domain.StatusSkipped,
		ProviderAttempts: attempts,
	}
}
