// Package contextutils carries the structured application error type shared
// by services and handlers, plus the request-scoped context values.
package contextutils

import (
	"errors"
	"fmt"
	"strings"
)

// AppError is an error with a stable code and a severity. Handlers map the
// code to an HTTP status via ErrorCodeToHTTPStatus.
type AppError struct {
	Code     ErrorCode
	Severity SeverityLevel
	Message  string
	Details  string
	Cause    error
}

func (e *AppError) Error() string {
	if e.Details == "" {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches any AppError with the same code, so wrapped errors still
// satisfy errors.Is(err, ErrRecordNotFound).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func NewAppError(code ErrorCode, severity SeverityLevel, message, details string) *AppError {
	return &AppError{Code: code, Severity: severity, Message: message, Details: details}
}

func NewAppErrorWithCause(code ErrorCode, severity SeverityLevel, message, details string, cause error) *AppError {
	return &AppError{Code: code, Severity: severity, Message: message, Details: details, Cause: cause}
}

// wrap keeps code and severity of an AppError anywhere in err's chain.
// Anything else becomes an internal error.
func wrap(err error, message string, cause error) *AppError {
	var inner *AppError
	if errors.As(err, &inner) {
		return &AppError{Code: inner.Code, Severity: inner.Severity, Message: message, Details: err.Error(), Cause: cause}
	}
	return &AppError{Code: ErrorCodeInternalError, Severity: SeverityError, Message: message, Details: err.Error(), Cause: cause}
}

// WrapError adds context to err. Returns nil for a nil err.
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return wrap(err, context, err)
}

// WrapErrorf is WrapError with a format string. A %w verb in format keeps
// the formatted chain as the cause.
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if strings.Contains(format, "%w") {
		formatted := fmt.Errorf(format, args...)
		return wrap(err, formatted.Error(), formatted)
	}
	return wrap(err, fmt.Sprintf(format, args...), err)
}

// ErrorWithContextf builds a fresh internal error
func ErrorWithContextf(format string, args ...interface{}) error {
	return &AppError{Code: ErrorCodeInternalError, Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

// GetErrorCode returns ErrorCodeInternalError for errors without a code
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCodeInternalError
}

// IsRetryable reports transient infrastructure failures
func IsRetryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Severity == SeverityFatal {
		return false
	}
	switch appErr.Code {
	case ErrorCodeTimeout, ErrorCodeServiceUnavailable, ErrorCodeDatabaseConnection:
		return true
	}
	return false
}

// ToJSON is the response body for a failed request. The cause is only
// exposed for error and fatal severities.
func (e *AppError) ToJSON() map[string]interface{} {
	body := map[string]interface{}{
		"code":      string(e.Code),
		"message":   e.Message,
		"error":     e.Message,
		"severity":  string(e.Severity),
		"retryable": IsRetryable(e),
	}
	if e.Details != "" {
		body["details"] = e.Details
	}
	if e.Cause != nil && (e.Severity == SeverityError || e.Severity == SeverityFatal) {
		body["cause"] = e.Cause.Error()
	}
	return body
}
