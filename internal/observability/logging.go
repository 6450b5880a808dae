// Package observability wires OpenTelemetry tracing, metrics and zap logging
// for the siteworks services. Log entries carry the trace, request and user
// of the context they are written with.
package observability

import (
	"context"
	"os"
	"strings"

	"siteworks/internal/config"
	contextutils "siteworks/internal/utils"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap logger whose methods take a context and a field map
type Logger struct {
	*zap.Logger
	level *zap.AtomicLevel
}

func NewLogger(cfg *config.OpenTelemetryConfig) *Logger {
	return NewLoggerWithLevel(cfg, zap.InfoLevel)
}

// NewLoggerWithLevel writes JSON to stdout and, when an endpoint is set,
// tees entries to the OTLP log exporter. A nil or disabled cfg yields a no-op logger.
func NewLoggerWithLevel(cfg *config.OpenTelemetryConfig, level zapcore.Level) *Logger {
	if cfg == nil || !cfg.EnableLogging {
		return &Logger{Logger: zap.NewNop()}
	}

	atomic := zap.NewAtomicLevelAt(level)
	base := newStdoutLogger(atomic)
	if cfg.Endpoint == "" {
		return &Logger{Logger: base, level: &atomic}
	}

	otelCore, err := newOTLPCore(cfg)
	if err != nil {
		base.Error("Failed to set up OTLP logging, continuing with stdout only", zap.Error(err), zap.String("endpoint", cfg.Endpoint))
		return &Logger{Logger: base, level: &atomic}
	}
	tee := zap.New(zapcore.NewTee(base.Core(), otelCore))
	tee.Info("OTLP logging configured", zap.String("endpoint", cfg.Endpoint), zap.String("service", cfg.ServiceName))
	return &Logger{Logger: tee, level: &atomic}
}

// SetLevel applies a configured level name such as "debug" or "warn".
// Unknown names and no-op loggers are left unchanged.
func (l *Logger) SetLevel(name string) bool {
	if l.level == nil || name == "" {
		return false
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(name))
	if err != nil {
		return false
	}
	l.level.SetLevel(lvl)
	return true
}

func newStdoutLogger(level zap.AtomicLevel) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if os.Getenv("ENV") == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = level

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

func newOTLPCore(cfg *config.OpenTelemetryConfig) (zapcore.Core, error) {
	ctx := context.Background()
	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(cfg.Headers))
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	provider := log.NewLoggerProvider(log.WithProcessor(log.NewBatchProcessor(exporter)), log.WithResource(res))
	return otelzap.NewCore("siteworks", otelzap.WithLoggerProvider(provider)), nil
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.write(ctx, zap.DebugLevel, msg, nil, fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.write(ctx, zap.InfoLevel, msg, nil, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.write(ctx, zap.WarnLevel, msg, nil, fields)
}

// Error adds err under the "error" key. The caller's maps are not modified.
func (l *Logger) Error(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.write(ctx, zap.ErrorLevel, msg, err, fields)
}

func (l *Logger) write(ctx context.Context, level zapcore.Level, msg string, err error, fields []map[string]interface{}) {
	entry := l.Logger.Check(level, msg)
	if entry == nil {
		return
	}

	merged := mergeFields(fields...)
	if err != nil {
		merged["error"] = err.Error()
	}
	addContextFields(ctx, merged)

	zapFields := make([]zap.Field, 0, len(merged))
	for k, v := range merged {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	entry.Write(zapFields...)
}

// addContextFields adds trace_id, span_id, request_id and user_id when the
// context carries them. An explicit user_id field wins.
func addContextFields(ctx context.Context, fields map[string]interface{}) {
	if ctx == nil {
		return
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
		fields["span_id"] = sc.SpanID().String()
	}
	if id := contextutils.GetRequestIDFromContext(ctx); id != "" {
		fields["request_id"] = id
	}
	if _, set := fields["user_id"]; !set {
		if id := contextutils.GetUserIDFromContext(ctx); id != 0 {
			fields["user_id"] = id
		}
	}
}

// mergeFields copies into a fresh map; later maps win
func mergeFields(fields ...map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{})
	for _, m := range fields {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
