// Package config handles application configuration loading from environment variables.
package config

import (
	"os"
	"time"

	contextutils "siteworks/internal/utils"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable that points at the YAML config file
const ConfigFileEnv = "SITEWORKS_CONFIG_FILE"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Email Configuration
	Email EmailConfig `json:"email" yaml:"email"`

	// File storage for photos and generated documents
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Report lifecycle settings
	Reports ReportsConfig `json:"reports" yaml:"reports"`

	// Alert reminder worker
	Worker WorkerConfig `json:"worker" yaml:"worker"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port           string   `json:"port" yaml:"port" validate:"numeric"`
	AdminName      string   `json:"admin_name" yaml:"admin_name"`
	AdminEmail     string   `json:"admin_email" yaml:"admin_email" validate:"email"`
	AdminPassword  string   `json:"admin_password" yaml:"admin_password"`
	SessionSecret  string   `json:"session_secret" yaml:"session_secret"`
	Debug          bool     `json:"debug" yaml:"debug"`
	LogLevel       string   `json:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	AppBaseURL     string   `json:"app_base_url" yaml:"app_base_url" validate:"omitempty,url"`
	CORSOrigins    []string `json:"cors_origins" yaml:"cors_origins"`
	MaxUploadBytes int64    `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker"`
}

// CircuitBreakerConfig sheds API load after consecutive 5xx responses
type CircuitBreakerConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	Threshold int           `json:"threshold" yaml:"threshold"`
	Cooldown  time.Duration `json:"cooldown" yaml:"cooldown"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	// host:port of the OTLP collector
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	// grpc (default) or http
	Protocol string            `json:"protocol" yaml:"protocol" validate:"omitempty,oneof=grpc http"`
	Insecure bool              `json:"insecure" yaml:"insecure"`
	Headers  map[string]string `json:"headers" yaml:"headers"`

	ServiceName    string `json:"service_name" yaml:"service_name"`
	ServiceVersion string `json:"service_version" yaml:"service_version"`

	EnableTracing bool `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics bool `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging bool `json:"enable_logging" yaml:"enable_logging"`
	// fraction of root spans kept
	SamplingRate float64 `json:"sampling_rate" yaml:"sampling_rate" validate:"gte=0,lte=1"`
}

// DatabaseConfig holds the Postgres DSN and pool limits
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	MigrationsPath  string        `json:"migrations_path" yaml:"migrations_path"`
}

// EmailConfig represents email/SMTP configuration
type EmailConfig struct {
	SMTP    SMTPConfig `json:"smtp" yaml:"smtp"`
	Enabled bool       `json:"enabled" yaml:"enabled"`
}

// SMTPConfig represents SMTP server configuration
type SMTPConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password" yaml:"password"`
	FromAddress string `json:"from_address" yaml:"from_address" validate:"omitempty,email"`
	FromName    string `json:"from_name" yaml:"from_name"`
}

// StorageConfig controls where uploaded photos and rendered PDFs live
type StorageConfig struct {
	UploadDir   string `json:"upload_dir" yaml:"upload_dir"`
	DocumentDir string `json:"document_dir" yaml:"document_dir"`
	MaxWidth    int    `json:"max_width" yaml:"max_width"`
	MaxHeight   int    `json:"max_height" yaml:"max_height"`
}

// ReportsConfig holds report lifecycle settings
type ReportsConfig struct {
	CodePrefix         string `json:"code_prefix" yaml:"code_prefix"`
	RevisionDays       int    `json:"revision_days" yaml:"revision_days" validate:"min=1,max=365"`
	DashboardRecent    int    `json:"dashboard_recent" yaml:"dashboard_recent"`
	SequenceRetryLimit int    `json:"sequence_retry_limit" yaml:"sequence_retry_limit"`
}

// WorkerConfig controls the alert reminder worker
type WorkerConfig struct {
	Port        string        `json:"port" yaml:"port" validate:"numeric"`
	InternalURL string        `json:"internal_url" yaml:"internal_url" validate:"url"` // used by the backend to aggregate /v1/version
	Interval    time.Duration `json:"interval" yaml:"interval"`
	BatchSize   int           `json:"batch_size" yaml:"batch_size"`
	StartPaused bool          `json:"start_paused" yaml:"start_paused"`
	MaxHistory  int           `json:"max_history" yaml:"max_history"`
}

// NewConfig loads the YAML file, overlays environment variables, fills
// defaults and validates the result.
func NewConfig() (*Config, error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}
	if err := config.applyEnv(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid environment override: %w", err)
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the validate tags of the loaded configuration
func (c *Config) Validate() error {
	return contextutils.ValidateStruct(c)
}

// ApplyDefaults fills zero values with the built-in defaults
func (c *Config) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.AdminName == "" {
		c.Server.AdminName = DefaultAdminName
	}
	if c.Server.AdminEmail == "" {
		c.Server.AdminEmail = DefaultAdminEmail
	}
	if c.Server.AdminPassword == "" {
		c.Server.AdminPassword = DefaultAdminPassword
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = MaxUploadBytes
	}
	if c.Server.CircuitBreaker.Threshold <= 0 {
		c.Server.CircuitBreaker.Threshold = DefaultBreakerThreshold
	}
	if c.Server.CircuitBreaker.Cooldown <= 0 {
		c.Server.CircuitBreaker.Cooldown = DefaultBreakerCooldown
	}
	if c.OpenTelemetry.ServiceName == "" {
		c.OpenTelemetry.ServiceName = "siteworks-backend"
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = DefaultUploadDir
	}
	if c.Storage.DocumentDir == "" {
		c.Storage.DocumentDir = c.Storage.UploadDir
	}
	if c.Storage.MaxWidth <= 0 {
		c.Storage.MaxWidth = MaxImageWidth
	}
	if c.Storage.MaxHeight <= 0 {
		c.Storage.MaxHeight = MaxImageHeight
	}
	if c.Reports.CodePrefix == "" {
		c.Reports.CodePrefix = DefaultReportCodePrefix
	}
	if c.Reports.RevisionDays <= 0 {
		c.Reports.RevisionDays = DefaultRevisionDays
	}
	if c.Reports.DashboardRecent <= 0 {
		c.Reports.DashboardRecent = DefaultDashboardRecent
	}
	if c.Reports.SequenceRetryLimit <= 0 {
		c.Reports.SequenceRetryLimit = DefaultSequenceRetryLimit
	}
	if c.Worker.Port == "" {
		c.Worker.Port = "8081"
	}
	if c.Worker.InternalURL == "" {
		c.Worker.InternalURL = "http://localhost:" + c.Worker.Port
	}
	if c.Worker.Interval <= 0 {
		c.Worker.Interval = DefaultWorkerInterval
	}
	if c.Worker.BatchSize <= 0 {
		c.Worker.BatchSize = DefaultWorkerBatchSize
	}
	if c.Worker.MaxHistory <= 0 {
		c.Worker.MaxHistory = DefaultWorkerMaxHistory
	}
}

// loadConfigWithOverrides loads the config file named by SITEWORKS_CONFIG_FILE, or config.yaml
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv(ConfigFileEnv); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	return loadConfigFromFile("config.yaml")
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
