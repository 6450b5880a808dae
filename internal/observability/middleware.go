package observability

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "siteworks/internal/utils"
)

// Gin context keys written by the auth middleware
const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

// GinMiddleware creates OpenTelemetry middleware for Gin HTTP requests
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// GinMiddlewareWithErrorHandling traces each request and marks the request
// span failed for 4xx/5xx responses. Register with router.Use(chain...).
func GinMiddlewareWithErrorHandling(serviceName string) gin.HandlersChain {
	return gin.HandlersChain{otelgin.Middleware(serviceName), recordRequestFailure}
}

// recordRequestFailure runs inside the otelgin span so the attributes land on it
func recordRequestFailure(c *gin.Context) {
	c.Next()

	statusCode := c.Writer.Status()
	if statusCode < http.StatusBadRequest {
		return
	}
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}

	appErr := firstAppError(c.Errors)
	errorMsg := "client error"
	if statusCode >= http.StatusInternalServerError {
		errorMsg = "server error"
	}
	if appErr != nil {
		errorMsg = appErr.Message
	} else if len(c.Errors) > 0 {
		errorMsg = c.Errors.Last().Error()
	}

	span.RecordError(errors.New(errorMsg))
	span.SetStatus(codes.Error, errorMsg)
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.String("error.handler", c.HandlerName()),
		attribute.String("error.severity", determineErrorSeverity(statusCode, c.Errors)),
		attribute.Bool("error.server_error", statusCode >= http.StatusInternalServerError),
	)
	if appErr != nil {
		span.SetAttributes(
			attribute.String("error.code", string(appErr.Code)),
			attribute.Bool("error.retryable", contextutils.IsRetryable(appErr)),
		)
	}
	if userID, ok := c.Get(ContextUserIDKey); ok {
		if id, ok := userID.(int); ok {
			span.SetAttributes(AttributeUserID(id))
		}
	}
	if role := c.GetString(ContextRoleKey); role != "" {
		span.SetAttributes(attribute.String("user.role", role))
	}
}

func firstAppError(errs []*gin.Error) *contextutils.AppError {
	for _, err := range errs {
		var appErr *contextutils.AppError
		if errors.As(err.Err, &appErr) {
			return appErr
		}
	}
	return nil
}

// determineErrorSeverity prefers the AppError severity and falls back to the status class
func determineErrorSeverity(statusCode int, errs []*gin.Error) string {
	if appErr := firstAppError(errs); appErr != nil {
		return string(appErr.Severity)
	}
	switch {
	case statusCode >= http.StatusInternalServerError:
		return string(contextutils.SeverityError)
	case statusCode >= http.StatusBadRequest:
		return string(contextutils.SeverityWarn)
	default:
		return string(contextutils.SeverityInfo)
	}
}
