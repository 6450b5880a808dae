package contextutils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Format(t *testing.T) {
	withDetails := NewAppError(ErrorCodeInvalidInput, SeverityWarn, "Invalid input", "latitude out of range")
	assert.Equal(t, "INVALID_INPUT: Invalid input - latitude out of range", withDetails.Error())
	assert.Equal(t, "RECORD_NOT_FOUND: Record not found", ErrRecordNotFound.Error())
}

func TestAppError_MatchesByCode(t *testing.T) {
	assert.True(t, errors.Is(&AppError{Code: ErrorCodeStorage, Message: "other text"}, ErrStorage))
	assert.False(t, errors.Is(ErrStorage, ErrDelivery))
	assert.False(t, ErrStorage.Is(errors.New("STORAGE_ERROR")))
}

func TestWrapError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WrapError(nil, "load report"))
		assert.NoError(t, WrapErrorf(nil, "load report %d", 3))
	})

	t.Run("keeps code and severity", func(t *testing.T) {
		err := WrapError(ErrRecordNotFound, "load report 3")

		var appErr *AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, ErrorCodeRecordNotFound, appErr.Code)
		assert.Equal(t, SeverityInfo, appErr.Severity)
		assert.Equal(t, "load report 3", appErr.Message)
		assert.Equal(t, ErrRecordNotFound.Error(), appErr.Details)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("code survives fmt wrapping in between", func(t *testing.T) {
		inner := fmt.Errorf("scan: %w", ErrDatabaseQuery)
		err := WrapError(inner, "list reports")
		assert.Equal(t, ErrorCodeDatabaseQuery, GetErrorCode(err))
	})

	t.Run("plain errors become internal", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := WrapError(cause, "send reminder")

		var appErr *AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, ErrorCodeInternalError, appErr.Code)
		assert.Equal(t, SeverityError, appErr.Severity)
		assert.Same(t, cause, errors.Unwrap(err))
	})
}

func TestWrapErrorf(t *testing.T) {
	err := WrapErrorf(ErrInvalidTransition, "report %d is %s", 7, "approved")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "report 7 is approved")

	cause := errors.New("disk full")
	withVerb := WrapErrorf(cause, "write photo: %w", cause)
	assert.Equal(t, ErrorCodeInternalError, GetErrorCode(withVerb))
	assert.ErrorIs(t, withVerb, cause)
}

func TestErrorWithContextf(t *testing.T) {
	err := ErrorWithContextf("unknown service: %s", "billing")
	assert.Equal(t, ErrorCodeInternalError, GetErrorCode(err))
	assert.Equal(t, "INTERNAL_SERVER_ERROR: unknown service: billing", err.Error())
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrorCodeForbidden, GetErrorCode(fmt.Errorf("approve: %w", ErrForbidden)))
	assert.Equal(t, ErrorCodeInternalError, GetErrorCode(errors.New("boom")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", &AppError{Code: ErrorCodeTimeout, Severity: SeverityWarn}, true},
		{"service unavailable", ErrServiceUnavailable, true},
		{"database connection", ErrDatabaseConnection, true},
		{"wrapped connection", WrapError(ErrDatabaseConnection, "ping"), true},
		{"fatal never retries", &AppError{Code: ErrorCodeTimeout, Severity: SeverityFatal}, false},
		{"validation", ErrInvalidInput, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestAppError_ToJSON(t *testing.T) {
	warn := NewAppErrorWithCause(ErrorCodeInvalidInput, SeverityWarn, "Invalid input", "remarks required", errors.New("empty"))
	body := warn.ToJSON()
	assert.Equal(t, "INVALID_INPUT", body["code"])
	assert.Equal(t, "Invalid input", body["message"])
	assert.Equal(t, "warn", body["severity"])
	assert.Equal(t, "remarks required", body["details"])
	assert.Equal(t, false, body["retryable"])
	assert.NotContains(t, body, "cause")

	storage := NewAppErrorWithCause(ErrorCodeStorage, SeverityError, "write failed", "", errors.New("disk full"))
	body = storage.ToJSON()
	assert.Equal(t, "disk full", body["cause"])
	assert.NotContains(t, body, "details")
}
