package observability

import (
	"context"
	"errors"
	"testing"

	"siteworks/internal/config"
	contextutils "siteworks/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zap.AtomicLevel) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{Logger: zap.New(core)}, logs
}

func TestLogger_AddsTraceCorrelation(t *testing.T) {
	tracer := sdktrace.NewTracerProvider().Tracer("test")
	logger, logs := newObservedLogger(zap.NewAtomicLevelAt(zap.InfoLevel))

	ctx, span := tracer.Start(context.Background(), "report.ApproveReport")
	defer span.End()
	logger.Info(ctx, "Report approved", map[string]interface{}{"report_id": 31})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
	assert.EqualValues(t, 31, fields["report_id"])
}

func TestLogger_NoSpanNoTraceFields(t *testing.T) {
	logger, logs := newObservedLogger(zap.NewAtomicLevelAt(zap.InfoLevel))

	logger.Info(context.Background(), "Worker started", nil)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.NotContains(t, fields, "trace_id")
	assert.NotContains(t, fields, "span_id")
}

func TestLogger_AddsRequestAndUserFromContext(t *testing.T) {
	logger, logs := newObservedLogger(zap.NewAtomicLevelAt(zap.InfoLevel))

	ctx := contextutils.WithRequestID(context.Background(), "req-123")
	ctx = contextutils.WithUserID(ctx, 9)
	logger.Warn(ctx, "Upload rejected", nil)
	logger.Warn(ctx, "Explicit user wins", map[string]interface{}{"user_id": 4})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
	assert.EqualValues(t, 9, entries[0].ContextMap()["user_id"])
	assert.EqualValues(t, 4, entries[1].ContextMap()["user_id"])
}

func TestLogger_ErrorDoesNotMutateCallerFields(t *testing.T) {
	logger, logs := newObservedLogger(zap.NewAtomicLevelAt(zap.InfoLevel))
	fields := map[string]interface{}{"alert_id": 3}

	logger.Error(context.Background(), "Reminder failed", errors.New("smtp down"), fields)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "smtp down", logs.All()[0].ContextMap()["error"])
	assert.NotContains(t, fields, "error")
}

func TestLogger_MergesFieldMaps(t *testing.T) {
	logger, logs := newObservedLogger(zap.NewAtomicLevelAt(zap.DebugLevel))

	logger.Debug(context.Background(), "merged", map[string]interface{}{"a": 1, "b": 1}, nil, map[string]interface{}{"b": 2})

	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, 1, fields["a"])
	assert.EqualValues(t, 2, fields["b"])
}

func TestNewLogger_DisabledIsNop(t *testing.T) {
	logger := NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zap.ErrorLevel))

	assert.NotNil(t, NewLogger(nil))
}

func TestLogger_SetLevel(t *testing.T) {
	logger := NewLogger(&config.OpenTelemetryConfig{EnableLogging: true})
	require.NotNil(t, logger.level)

	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.SetLevel("DEBUG"))
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	assert.True(t, logger.SetLevel("warn"))
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	assert.False(t, logger.SetLevel("chatty"))
	assert.False(t, logger.SetLevel(""))
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	nop := NewLogger(nil)
	assert.False(t, nop.SetLevel("debug"))
}

func TestLogger_SkipsDisabledLevels(t *testing.T) {
	logger, logs := newObservedLogger(zap.NewAtomicLevelAt(zap.WarnLevel))

	logger.Info(context.Background(), "below threshold", map[string]interface{}{"report_id": 1})
	logger.Warn(context.Background(), "at threshold", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "at threshold", logs.All()[0].Message)
}
