package shared

import "errors"

// Error codes shared by every bounded context.
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeInvalidState          = "INVALID_STATE"
	CodeConflict              = "CONFLICT"
	CodeUnavailable           = "UNAVAILABLE"
	CodeReplacementIncomplete = "REPLACEMENT_INCOMPLETE"
	CodeUnauthorized          = "UNAUTHORIZED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
// This lets callers match on the sentinel values below with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details, Err: e.Err}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports input that can never be accepted as given
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewNotFoundError reports an unknown identifier
func NewNotFoundError(resource string) *DomainError {
	return NewDomainError(CodeNotFound, resource+" not found")
}

// NewInvalidStateError reports an operation refused because of the current state.
// The current state is exposed to callers under the "current_state" detail.
func NewInvalidStateError(message, currentState string) *DomainError {
	return &DomainError{
		Code:    CodeInvalidState,
		Message: message,
		Details: map[string]any{"current_state": currentState},
	}
}

// NewConflictError reports a lost race or a uniqueness violation
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// NewUnavailableError reports a dependency failure; the operation had no effect
func NewUnavailableError(message string, cause error) *DomainError {
	return &DomainError{Code: CodeUnavailable, Message: message, Err: cause}
}

// CurrentState extracts the "current_state" detail of an InvalidState error
func CurrentState(err error) (string, bool) {
	var de *DomainError
	if !errors.As(err, &de) || de.Code != CodeInvalidState {
		return "", false
	}
	state, ok := de.Details["current_state"].(string)
	return state, ok
}

// Common domain errors
var (
	ErrNotFound              = NewDomainError(CodeNotFound, "Resource not found")
	ErrValidation            = NewDomainError(CodeValidation, "Invalid input provided")
	ErrInvalidState          = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConflict              = NewDomainError(CodeConflict, "Resource was modified by another process")
	ErrUnavailable           = NewDomainError(CodeUnavailable, "Service temporarily unavailable")
	ErrReplacementIncomplete = NewDomainError(CodeReplacementIncomplete, "Invoice replacement did not complete")
	ErrUnauthorized          = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
)
