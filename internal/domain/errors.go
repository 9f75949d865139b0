package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotConfigured    = "NOT_CONFIGURED"
	ErrCodeTransport        = "TRANSPORT_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidConfidence    = NewDomainError(ErrCodeValidation, "invalid fact confidence")
	ErrInvalidImportance    = NewDomainError(ErrCodeValidation, "invalid note importance")
	ErrInvalidProfileValue  = NewDomainError(ErrCodeValidation, "invalid profile value")
	ErrInvalidMessageRole   = NewDomainError(ErrCodeValidation, "invalid chat message role")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrSpaceNotFound         = NewDomainError(ErrCodeNotFound, "space not found")
	ErrSessionNotFound       = NewDomainError(ErrCodeNotFound, "chat session not found")
	ErrFactNotFound          = NewDomainError(ErrCodeNotFound, "fact not found")
	ErrNoteNotFound          = NewDomainError(ErrCodeNotFound, "note not found")
	ErrProfileEntryNotFound  = NewDomainError(ErrCodeNotFound, "profile entry not found")
	ErrTimelineEntryNotFound = NewDomainError(ErrCodeNotFound, "timeline entry not found")
	ErrAPIKeyNotFound        = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrSpaceAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "space already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Configuration errors
var (
	ErrAINotConfigured = NewDomainError(ErrCodeNotConfigured, "ai provider is not configured")
)

// Operation errors
var (
	ErrNoteAlreadyPromoted = NewDomainError(ErrCodeInvalidOperation, "note has already been promoted to a fact")
)
