package errors

import "net/http"

// Error code constants.
// Each constructor below pairs a code with a fixed English message.

// Input/contract error codes.
const (
	CodeMissingInputs    = "MISSING_INPUTS"
	CodeUnknownOperation = "UNKNOWN_OPERATION"
	CodeOutputValidation = "OUTPUT_VALIDATION"
)

// Provider error codes.
const (
	CodeProviderTimeout   = "PROVIDER_TIMEOUT"
	CodeProviderHTTPError = "PROVIDER_HTTP_ERROR"
	CodeProviderSkipped   = "PROVIDER_SKIPPED"
)

// Entity store error codes.
const (
	CodeVersionError       = "VERSION_ERROR"
	CodeSnapshotWriteError = "SNAPSHOT_WRITE_ERROR"
	CodeEntityNotFound     = "ENTITY_NOT_FOUND"
)

// Blueprint/submission error codes.
const (
	CodeBlueprintNotFound = "BLUEPRINT_NOT_FOUND"
	CodeInvalidStepConfig = "INVALID_STEP_CONFIG"
	CodeDuplicateRequest  = "DUPLICATE_PENDING_REQUEST"
)

// Tenant/auth error codes.
const (
	CodeTenantNotFound = "TENANT_NOT_FOUND"
	CodeAuthFailed     = "AUTH_FAILED"
)

// Validation error codes.
const (
	CodeInvalidRequestField = "INVALID_REQUEST_FIELD"
	CodeValidationFailed    = "VALIDATION_FAILED"
)

// Convenience constructors using predefined codes.

// ErrMissingInputs creates an error for a step whose required inputs could
// not be resolved from direct input, cumulative context, or step_config.
func ErrMissingInputsf(operationID string) *AppError {
	return &AppError{
		Code:       CodeMissingInputs,
		Message:    "required inputs not found for operation: " + operationID,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ErrUnknownOperation creates an error for an operation_id with no registered executor.
func ErrUnknownOperationf(operationID string) *AppError {
	return &AppError{
		Code:       CodeUnknownOperation,
		Message:    "no executor registered for operation: " + operationID,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ErrProviderTimeout creates an error for a provider call that exceeded its deadline.
func ErrProviderTimeoutf(provider string) *AppError {
	return &AppError{
		Code:       CodeProviderTimeout,
		Message:    "provider call timed out: " + provider,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// ErrProviderHTTPError creates an error for a non-2xx response from a provider.
func ErrProviderHTTPErrorf(provider string) *AppError {
	return &AppError{
		Code:       CodeProviderHTTPError,
		Message:    "provider returned an error response: " + provider,
		HTTPStatus: http.StatusBadGateway,
	}
}

// ErrVersionConflict creates an error for a record_version CAS mismatch.
func ErrVersionConflictf(entityID string) *AppError {
	return &AppError{
		Code:       CodeVersionError,
		Message:    "entity record_version conflict: " + entityID,
		HTTPStatus: http.StatusConflict,
	}
}

// ErrSnapshotWrite creates an error for a failed pre-image snapshot write.
func ErrSnapshotWritef(entityID string) *AppError {
	return &AppError{
		Code:       CodeSnapshotWriteError,
		Message:    "failed to write entity snapshot: " + entityID,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// ErrBlueprintNotFound creates an error for a blueprint id with no active row for the org.
func ErrBlueprintNotFoundf(blueprintID string) *AppError {
	return &AppError{
		Code:       CodeBlueprintNotFound,
		Message:    "blueprint not found or inactive: " + blueprintID,
		HTTPStatus: http.StatusNotFound,
	}
}

// ErrInvalidRequestField creates a bad request error for a malformed or forbidden field.
func ErrInvalidRequestFieldf(fieldName string) *AppError {
	return &AppError{
		Code:       CodeInvalidRequestField,
		Message:    "request contains invalid field: " + fieldName,
		HTTPStatus: http.StatusBadRequest,
	}
}
