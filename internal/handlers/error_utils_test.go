package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	contextutils "siteworks/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveError(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/test", handler)

	req, _ := http.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w, response
}

func TestStandardizeHTTPError(t *testing.T) {
	w, response := serveError(t, func(c *gin.Context) {
		StandardizeHTTPError(c, http.StatusBadRequest, "Invalid input", "Field 'name' is required")
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid input", response["message"])
	assert.Equal(t, "Field 'name' is required", response["details"])
	assert.Equal(t, "INVALID_INPUT", response["code"])
}

func TestStandardizeHTTPError_NotFound(t *testing.T) {
	w, response := serveError(t, func(c *gin.Context) {
		StandardizeHTTPError(c, http.StatusNotFound, "Resource not found", "Report 123 does not exist")
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RECORD_NOT_FOUND", response["code"])
	assert.Equal(t, "info", response["severity"])
}

func TestHandleValidationError(t *testing.T) {
	w, response := serveError(t, func(c *gin.Context) {
		HandleValidationError(c, "project_id", "abc", "must be a positive integer")
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid project_id", response["message"])
	assert.Equal(t, "Value 'abc' is invalid: must be a positive integer", response["details"])
}

func TestHandleBindError(t *testing.T) {
	w, response := serveError(t, func(c *gin.Context) {
		HandleBindError(c, errors.New("unexpected EOF"))
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", response["code"])
	assert.Equal(t, "Invalid request body", response["message"])
	// warn severity never leaks the cause
	assert.NotContains(t, response, "cause")
}

func TestHandleAppError_WrappedKeepsCode(t *testing.T) {
	w, response := serveError(t, func(c *gin.Context) {
		HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrInvalidTransition, "report %d is %s", 7, "approved"))
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE_TRANSITION", response["code"])
}

func TestHandleAppError_PlainError(t *testing.T) {
	w, response := serveError(t, func(c *gin.Context) {
		HandleAppError(c, errors.New("boom"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", response["message"])
	assert.Equal(t, "boom", response["details"])
}

func TestErrorUtils_ResponseStructure(t *testing.T) {
	w, response := serveError(t, func(c *gin.Context) {
		HandleAppError(c, contextutils.ErrUnauthorized)
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "UNAUTHORIZED", response["code"])
	assert.Contains(t, response, "message")
	assert.Contains(t, response, "severity")
	assert.Contains(t, response, "retryable")
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	cases := map[contextutils.ErrorCode]int{
		contextutils.ErrorCodeInvalidInput:       http.StatusBadRequest,
		contextutils.ErrorCodeValidationFailed:   http.StatusBadRequest,
		contextutils.ErrorCodeInvalidCredentials: http.StatusUnauthorized,
		contextutils.ErrorCodeForbidden:          http.StatusForbidden,
		contextutils.ErrorCodeRecordNotFound:     http.StatusNotFound,
		contextutils.ErrorCodeRecordExists:       http.StatusConflict,
		contextutils.ErrorCodeInvalidTransition:  http.StatusConflict,
		contextutils.ErrorCodeServiceUnavailable: http.StatusServiceUnavailable,
		contextutils.ErrorCodeDelivery:           http.StatusBadGateway,
		contextutils.ErrorCodeStorage:            http.StatusInternalServerError,
		contextutils.ErrorCodeDocumentRender:     http.StatusInternalServerError,
		contextutils.ErrorCode("SOMETHING_ELSE"): http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, mapErrorCodeToHTTPStatus(code), string(code))
	}
}

func TestHandleAppError_AttachesErrorToContext(t *testing.T) {
	var attached []*gin.Error
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Next()
		attached = c.Errors
	})
	router.GET("/test", func(c *gin.Context) {
		HandleAppError(c, contextutils.ErrStorage)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, attached, 1)
	assert.ErrorIs(t, attached[0].Err, contextutils.ErrStorage)
}

func TestStandardizeHTTPError_UnknownStatus(t *testing.T) {
	w, response := serveError(t, func(c *gin.Context) {
		StandardizeHTTPError(c, http.StatusTeapot, "short and stout", "")
	})

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", response["code"])
	assert.Equal(t, "error", response["severity"])
}
