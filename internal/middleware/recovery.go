package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"siteworks/internal/config"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryMiddleware converts handler panics into a 500 AppError body.
// With the breaker enabled, consecutive 5xx responses trip it and further
// requests get 503 until the cooldown passes.
func ErrorRecoveryMiddleware(logger *observability.Logger, cb config.CircuitBreakerConfig) gin.HandlerFunc {
	var br *breaker
	if cb.Enabled {
		br = newBreaker(cb)
	}

	return func(c *gin.Context) {
		if br != nil && !br.allow() {
			if logger != nil {
				logger.Warn(c.Request.Context(), "Request shed by circuit breaker", map[string]interface{}{
					"http.path": c.Request.URL.Path,
					"breaker":   br.current().String(),
				})
			}
			ServiceUnavailable(c, "Service temporarily unavailable due to high error rate")
			c.Abort()
			return
		}

		defer func() {
			rec := recover()
			if rec == nil {
				if br != nil {
					br.record(c.Writer.Status() >= http.StatusInternalServerError)
				}
				return
			}
			if br != nil {
				br.record(true)
			}
			abortWithPanic(c, logger, rec)
		}()

		c.Next()
	}
}

func abortWithPanic(c *gin.Context, logger *observability.Logger, rec interface{}) {
	stack := string(debug.Stack())
	cause, ok := rec.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", rec)
	}

	if logger != nil {
		logger.Error(c.Request.Context(), "Panic recovered", cause, map[string]interface{}{
			"http.method": c.Request.Method,
			"http.path":   c.Request.URL.Path,
			"stacktrace":  stack,
		})
	}

	details := "A panic occurred while processing the request"
	if gin.IsDebugging() {
		details += "\nStack trace: " + stack
	}
	appErr := contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInternalError, contextutils.SeverityFatal,
		"Internal server error", details, cause)
	c.AbortWithStatusJSON(http.StatusInternalServerError, appErr.ToJSON())
}

// ServiceUnavailable writes a 503 with the standard error body
func ServiceUnavailable(c *gin.Context, msg string) {
	appErr := contextutils.NewAppError(contextutils.ErrorCodeServiceUnavailable, contextutils.SeverityError, msg, "")
	c.JSON(http.StatusServiceUnavailable, appErr.ToJSON())
}
