package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout = 60 * time.Second
	ShutdownTimeout    = 30 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Session timeouts
	SessionMaxAge = 7 * 24 * time.Hour // 7 days
)

// Session configuration constants
const (
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionSecure   = false // Set to true in production with HTTPS

	SessionName = "siteworks-session"
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data: blob:; connect-src 'self' ws: wss:;"
)

// Upload and storage limits
const (
	MaxUploadBytes   = 16 << 20
	MaxImageWidth    = 1920
	MaxImageHeight   = 1080
	DefaultUploadDir = "static/uploads"
)

// Report lifecycle defaults
const (
	DefaultReportCodePrefix   = "ELP"
	DefaultRevisionDays       = 7
	MaxRevisionDays           = 365
	DefaultDashboardRecent    = 5
	DefaultSequenceRetryLimit = 3
)

// Alert reminder worker defaults
const (
	DefaultWorkerInterval   = 5 * time.Minute
	DefaultWorkerBatchSize  = 50
	DefaultWorkerMaxHistory = 20
)

// Circuit breaker defaults for the backend API
const (
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second
)

// Default administrator, created on first start when missing
const (
	DefaultAdminName     = "Administrator"
	DefaultAdminEmail    = "admin@elp.com"
	DefaultAdminPassword = "admin123"
)
