package handlers

import (
	"errors"
	"fmt"
	"net/http"

	contextutils "siteworks/internal/utils"

	"github.com/gin-gonic/gin"
)

var statusByCode = map[contextutils.ErrorCode]int{
	contextutils.ErrorCodeInvalidInput:       http.StatusBadRequest,
	contextutils.ErrorCodeMissingRequired:    http.StatusBadRequest,
	contextutils.ErrorCodeInvalidFormat:      http.StatusBadRequest,
	contextutils.ErrorCodeValidationFailed:   http.StatusBadRequest,
	contextutils.ErrorCodeUnauthorized:       http.StatusUnauthorized,
	contextutils.ErrorCodeInvalidCredentials: http.StatusUnauthorized,
	contextutils.ErrorCodeForbidden:          http.StatusForbidden,
	contextutils.ErrorCodeRecordNotFound:     http.StatusNotFound,
	contextutils.ErrorCodeRecordExists:       http.StatusConflict,
	contextutils.ErrorCodeConflict:           http.StatusConflict,
	contextutils.ErrorCodeInvalidTransition:  http.StatusConflict,
	contextutils.ErrorCodeTimeout:            http.StatusRequestTimeout,
	contextutils.ErrorCodeDelivery:           http.StatusBadGateway,
	contextutils.ErrorCodeServiceUnavailable: http.StatusServiceUnavailable,
	contextutils.ErrorCodeDatabaseConnection: http.StatusServiceUnavailable,
}

// mapErrorCodeToHTTPStatus falls back to 500 for storage, query and unknown codes
func mapErrorCodeToHTTPStatus(code contextutils.ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type codeAndSeverity struct {
	code     contextutils.ErrorCode
	severity contextutils.SeverityLevel
}

var codeByStatus = map[int]codeAndSeverity{
	http.StatusBadRequest:            {contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn},
	http.StatusUnauthorized:          {contextutils.ErrorCodeUnauthorized, contextutils.SeverityWarn},
	http.StatusForbidden:             {contextutils.ErrorCodeForbidden, contextutils.SeverityWarn},
	http.StatusNotFound:              {contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo},
	http.StatusConflict:              {contextutils.ErrorCodeConflict, contextutils.SeverityInfo},
	http.StatusRequestEntityTooLarge: {contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn},
	http.StatusServiceUnavailable:    {contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError},
}

// StandardizeHTTPError writes an error body for a bare status code
func StandardizeHTTPError(c *gin.Context, statusCode int, message, details string) {
	cs, ok := codeByStatus[statusCode]
	if !ok {
		cs = codeAndSeverity{contextutils.ErrorCodeInternalError, contextutils.SeverityError}
	}
	c.JSON(statusCode, contextutils.NewAppError(cs.code, cs.severity, message, details).ToJSON())
}

// StandardizeAppError writes err with the status its code maps to
func StandardizeAppError(c *gin.Context, err *contextutils.AppError) {
	c.JSON(mapErrorCodeToHTTPStatus(err.Code), err.ToJSON())
}

// HandleValidationError reports one bad path or query value
func HandleValidationError(c *gin.Context, field string, value interface{}, reason string) {
	HandleAppError(c, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn,
		"Invalid "+field, fmt.Sprintf("Value '%v' is invalid: %s", value, reason)))
}

// HandleBindError reports a request body that failed to decode or validate
func HandleBindError(c *gin.Context, err error) {
	HandleAppError(c, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn,
		"Invalid request body", "", err))
}

// HandleAppError writes the response for any service error and attaches it to
// the gin context so the tracing middleware can tag the request span.
func HandleAppError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *contextutils.AppError
	if errors.As(err, &appErr) {
		StandardizeAppError(c, appErr)
		return
	}
	StandardizeHTTPError(c, http.StatusInternalServerError, "Internal server error", err.Error())
}
