package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"siteworks/internal/config"
	"siteworks/internal/middleware"
	"siteworks/internal/observability"
)

const defaultFrontendOrigin = "http://localhost:3000"

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{defaultFrontendOrigin}
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition"},
		MaxAge:           12 * time.Hour,
	})
}

func secureMiddleware(cfg *config.Config) gin.HandlerFunc {
	sc := secure.DefaultConfig()
	sc.SSLRedirect = false
	sc.IsDevelopment = cfg.Server.Debug
	sc.ContentSecurityPolicy = config.DefaultCSP
	return secure.New(sc)
}

// NewSessionMiddleware returns the cookie session middleware shared by the
// backend and the worker admin API. Outside debug mode cookies are Secure
// and SameSite=Lax.
func NewSessionMiddleware(cfg *config.Config) gin.HandlerFunc {
	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	opts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge / time.Second),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
		SameSite: http.SameSiteDefaultMode,
	}
	if !cfg.Server.Debug {
		opts.Secure = true
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options(opts)
	return sessions.Sessions(config.SessionName, store)
}

// RequestLogger writes one log line per request. 5xx responses are logged
// at error level and 4xx at warn.
func RequestLogger(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.route":       c.FullPath(),
			"http.path":        c.Request.URL.Path,
			"http.status_code": status,
			"http.latency_ms":  time.Since(start).Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.bytes":       c.Writer.Size(),
		}
		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
			fields["http.error"] = c.Errors.String()
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error(ctx, "Request failed", err, fields)
		case status >= http.StatusBadRequest:
			logger.Warn(ctx, "Request rejected", fields)
		default:
			logger.Info(ctx, "Request served", fields)
		}
	}
}
