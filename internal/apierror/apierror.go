// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Code is a stable machine-readable kind; Details carries the offending values.
type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Error: msg}
}

// WithCode builds an error envelope tagged with a kind and structured details.
func WithCode(code, msg string, details interface{}) *APIError {
	return &APIError{Error: msg, Code: code, Details: details}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Error: "invalid request body", Code: CodeValidationFailed, Fields: fields}
}

// Error kinds surfaced in the Code field.
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeNotFound          = "NOT_FOUND"
	CodeStorageFailure    = "STORAGE_FAILURE"
	CodeConflict          = "CONFLICT"
)
