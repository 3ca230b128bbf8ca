package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized    ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden       ErrorType = "FORBIDDEN"
	ErrorTypeConflict        ErrorType = "CONFLICT"
	ErrorTypePayloadTooLarge ErrorType = "PAYLOAD_TOO_LARGE"
	ErrorTypeInternal        ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidPriority         ErrorCode = "INVALID_PRIORITY"
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeInvalidProgress         ErrorCode = "INVALID_PROGRESS"
	ErrCodeInvalidCategory         ErrorCode = "INVALID_CATEGORY"
	ErrCodeInvalidDateFormat       ErrorCode = "INVALID_DATE_FORMAT"
	ErrCodeInvalidDomain           ErrorCode = "INVALID_DOMAIN"
	ErrCodeWeakPassword            ErrorCode = "WEAK_PASSWORD"

	ErrCodeAccessDenied ErrorCode = "ACCESS_DENIED"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeDuplicate    ErrorCode = "DUPLICATE_NAME"
	ErrCodeFileTooLarge ErrorCode = "FILE_TOO_LARGE"

	ErrCodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
	ErrCodeInternalError  ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			messages := make([]string, len(validationErrors.Errors))
			for i, err := range validationErrors.Errors {
				messages[i] = err.Message
			}
			return strings.Join(messages, "; ")
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports a match on Code, so errors.Is works against the package sentinels
// without comparing pointers.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v.Errors))
	seen := make(map[string]bool, len(v.Errors))
	for _, e := range v.Errors {
		if seen[e.Field] {
			continue
		}
		seen[e.Field] = true
		fields = append(fields, e.Field)
	}
	return fields
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationFailed([]ValidationError{
		{Field: field, Message: message, Code: string(code)},
	})
}

// NewValidationFailed builds a VALIDATION_FAILED error whose message names
// every offending field.
func NewValidationFailed(errs []ValidationError) *AppError {
	details := ValidationErrors{Errors: errs}
	message := "Validation failed"
	if fields := details.Fields(); len(fields) > 0 {
		message = fmt.Sprintf("Validation failed: %s", strings.Join(fields, ", "))
	}
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

func NewInvalidPriority(ticketType, priority string) *AppError {
	return NewValidationError(
		fmt.Sprintf("priority %q is not allowed for ticket type %q", priority, ticketType),
		ErrCodeInvalidPriority,
	).WithDetails(map[string]string{"ticket_type": ticketType, "priority": priority})
}

func NewInvalidStatusTransition(from, to string) *AppError {
	return NewValidationError(
		fmt.Sprintf("cannot change status from %q to %q", from, to),
		ErrCodeInvalidStatusTransition,
	).WithDetails(map[string]string{"from": from, "to": to})
}

func NewInvalidProgress(value int) *AppError {
	return NewValidationError(
		fmt.Sprintf("progress must be a multiple of 10 between 0 and 100, got %d", value),
		ErrCodeInvalidProgress,
	).WithDetails(map[string]int{"progress": value})
}

func NewInvalidCategory(categoryID int64) *AppError {
	return NewValidationError(
		"category does not exist or is inactive",
		ErrCodeInvalidCategory,
	).WithDetails(map[string]int64{"category_id": categoryID})
}

func NewInvalidDateFormat(field, value string) *AppError {
	return NewValidationError(
		fmt.Sprintf("%s must use the YYYY-MM-DD format", field),
		ErrCodeInvalidDateFormat,
	).WithDetails(map[string]string{"field": field, "value": value})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewDuplicateName(field, value string) *AppError {
	return NewConflictError(
		fmt.Sprintf("%s %q is already in use", field, value),
		ErrCodeDuplicate,
	).WithDetails(map[string]string{"field": field})
}

func NewFileTooLarge(maxBytes int64) *AppError {
	return &AppError{
		Type:       ErrorTypePayloadTooLarge,
		Code:       ErrCodeFileTooLarge,
		Message:    fmt.Sprintf("file exceeds the maximum size of %d bytes", maxBytes),
		StatusCode: http.StatusRequestEntityTooLarge,
		Details:    map[string]int64{"max_bytes": maxBytes},
	}
}

func NewStorageError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeStorageFailure,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// Sentinels are matched with errors.Is and must never be mutated.
var (
	ErrValidationFailed        = NewValidationError("Validation failed", ErrCodeValidationFailed)
	ErrInvalidPriority         = NewValidationError("Invalid priority", ErrCodeInvalidPriority)
	ErrInvalidStatusTransition = NewValidationError("Invalid status transition", ErrCodeInvalidStatusTransition)
	ErrInvalidProgress         = NewValidationError("Invalid progress", ErrCodeInvalidProgress)
	ErrInvalidCategory         = NewValidationError("Invalid category", ErrCodeInvalidCategory)
	ErrInvalidDateFormat       = NewValidationError("Invalid date format", ErrCodeInvalidDateFormat)

	ErrAccessDenied   = NewForbiddenError("Access denied", ErrCodeAccessDenied)
	ErrNotFound       = NewNotFoundError("Resource not found", ErrCodeNotFound)
	ErrDuplicateName  = NewConflictError("Duplicate name", ErrCodeDuplicate)
	ErrFileTooLarge   = &AppError{Type: ErrorTypePayloadTooLarge, Code: ErrCodeFileTooLarge, Message: "File too large", StatusCode: http.StatusRequestEntityTooLarge}
	ErrStorageFailure = NewStorageError("Storage failure", nil)

	ErrUnauthenticated    = NewUnauthorizedError("Authentication required", ErrCodeUnauthenticated)
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
