package observability

import (
	"context"

	"siteworks/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics builds a meter provider that pushes to the OTLP collector on
// the SDK's default interval.
func InitMetrics(cfg *config.OpenTelemetryConfig) (*metric.MeterProvider, error) {
	ctx := context.Background()

	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	exporter, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	), nil
}

// ReportMetrics counts report lifecycle events and notification outcomes.
// Instruments come from the global meter provider, which is a no-op until InitMetrics runs.
type ReportMetrics struct {
	transitions   otelmetric.Int64Counter
	notifications otelmetric.Int64Counter
	uploads       otelmetric.Int64Counter
}

// NewReportMetrics creates the report lifecycle instruments
func NewReportMetrics() (*ReportMetrics, error) {
	meter := otel.Meter("siteworks")

	transitions, err := meter.Int64Counter("siteworks.report.transitions",
		otelmetric.WithDescription("Report lifecycle transitions by resulting status"))
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("siteworks.notifications",
		otelmetric.WithDescription("Status-change notifications by outcome"))
	if err != nil {
		return nil, err
	}
	uploads, err := meter.Int64Counter("siteworks.photo.uploads",
		otelmetric.WithDescription("Photo uploads by outcome"))
	if err != nil {
		return nil, err
	}

	return &ReportMetrics{transitions: transitions, notifications: notifications, uploads: uploads}, nil
}

// RecordTransition counts a committed status change. Safe on a nil receiver.
func (m *ReportMetrics) RecordTransition(ctx context.Context, operation, status string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

// RecordNotification counts a delivery attempt. Safe on a nil receiver.
func (m *ReportMetrics) RecordNotification(ctx context.Context, kind string, delivered bool) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("delivered", delivered),
	))
}

// RecordUpload counts a photo upload attempt. Safe on a nil receiver.
func (m *ReportMetrics) RecordUpload(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.uploads.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("ok", ok)))
}
