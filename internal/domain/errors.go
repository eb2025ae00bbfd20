package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodePersistence  ErrorCode = "PERSISTENCE_ERROR"

	// Validation family
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeMissingField  ErrorCode = "MISSING_FIELD"
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	CodeOutOfRange    ErrorCode = "OUT_OF_RANGE"

	// Learning / quiz errors
	CodeInvalidStage        ErrorCode = "INVALID_STAGE"
	CodeInvalidTransition   ErrorCode = "INVALID_STAGE_TRANSITION"
	CodeEmptyAnswer         ErrorCode = "EMPTY_ANSWER"
	CodeUnknownQuestionType ErrorCode = "UNKNOWN_QUESTION_TYPE"
	CodeAlreadyAnswered     ErrorCode = "QUIZ_ALREADY_ANSWERED"
	CodeLLMServiceError     ErrorCode = "LLM_SERVICE_ERROR"
)

var (
	// ErrDuplicate is returned by stores when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
	// ErrAttemptNotPending is returned when a quiz attempt is no longer in the generated state.
	ErrAttemptNotPending = errors.New("quiz attempt is not pending")
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a detail that is returned to API clients.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details,omitempty"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
		Details: e.Context,
	})
}

// IsValidation reports whether the code belongs to the 4xx validation family.
func (e *DomainError) IsValidation() bool {
	switch e.Code {
	case CodeInvalidInput, CodeValidation, CodeMissingField, CodeInvalidFormat, CodeOutOfRange,
		CodeInvalidStage, CodeInvalidTransition, CodeEmptyAnswer, CodeUnknownQuestionType:
		return true
	}
	return false
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// HasCode reports whether err wraps a DomainError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewValidationError(message string) *DomainError {
	return NewError(CodeValidation, message, nil)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewError(CodeInternal, message, cause)
}

func NewPersistenceError(message string, cause error) *DomainError {
	return NewError(CodePersistence, message, cause)
}

func NewUnauthorizedError(message string) *DomainError {
	return NewError(CodeUnauthorized, message, nil)
}

func NewLLMServiceError(cause error) *DomainError {
	return NewError(CodeLLMServiceError, "Failed to process with LLM service", cause)
}

func NewInvalidStageError(stage string) *DomainError {
	return NewError(CodeInvalidStage, fmt.Sprintf("invalid learning stage: %q", stage), nil)
}

func NewInvalidTransitionError(from, to Stage) *DomainError {
	return NewError(CodeInvalidTransition, fmt.Sprintf("invalid stage transition: %s -> %s", from, to), nil).
		WithContext("from", string(from)).
		WithContext("to", string(to))
}

func NewEmptyAnswerError() *DomainError {
	return NewError(CodeEmptyAnswer, "answer must not be empty", nil)
}

func NewUnknownQuestionTypeError(questionType string) *DomainError {
	return NewError(CodeUnknownQuestionType, fmt.Sprintf("unknown question type: %q", questionType), nil)
}

func NewAlreadyAnsweredError(attemptID string) *DomainError {
	return NewError(CodeAlreadyAnswered, "quiz attempt has already been answered", nil).
		WithContext("attempt_id", attemptID)
}

// ValidationError describes one invalid request field.
type ValidationError struct {
	Field   string      `json:"field"`
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates field-level validation failures.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	msg := v[0].Error()
	if len(v) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(v)-1)
	}
	return msg
}

func NewMissingFieldError(field string) ValidationError {
	return ValidationError{Field: field, Code: CodeMissingField, Message: "field is required"}
}

func NewInvalidFormatError(field string, value interface{}) ValidationError {
	return ValidationError{Field: field, Code: CodeInvalidFormat, Message: "field has an invalid format", Value: value}
}

func NewOutOfRangeError(field string, value interface{}, min, max int) ValidationError {
	return ValidationError{
		Field:   field,
		Code:    CodeOutOfRange,
		Message: fmt.Sprintf("value must be between %d and %d", min, max),
		Value:   value,
	}
}
