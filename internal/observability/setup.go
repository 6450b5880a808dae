package observability

import (
	"context"
	"errors"
	"os"

	"siteworks/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Telemetry holds the providers a process installs at startup. Tracer and
// Meter are nil when the matching signal is disabled; Logger never is.
type Telemetry struct {
	Tracer *sdktrace.TracerProvider
	Meter  *metric.MeterProvider
	Logger *Logger
}

// SetupObservability installs the global tracer and meter providers enabled
// in cfg. serviceName, when set, overrides cfg.ServiceName. logLevel is
// applied to the logger; an unknown name is reported and ignored.
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName, logLevel string) (*Telemetry, error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}
	for key, value := range map[string]string{
		"OTEL_SERVICE_NAME":    cfg.ServiceName,
		"OTEL_SERVICE_VERSION": cfg.ServiceVersion,
	} {
		if err := os.Setenv(key, value); err != nil {
			return nil, err
		}
	}

	ctx := context.Background()
	tel := &Telemetry{Logger: NewLogger(cfg)}
	if logLevel != "" && !tel.Logger.SetLevel(logLevel) {
		tel.Logger.Warn(ctx, "Ignoring unknown log level", map[string]interface{}{"log_level": logLevel})
	}

	if cfg.EnableTracing {
		tp, err := InitStandardTracing(cfg)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		tel.Tracer = tp
		tel.Logger.Info(ctx, "Tracing enabled", map[string]interface{}{"service_name": cfg.ServiceName, "protocol": cfg.Protocol})
	}

	if cfg.EnableMetrics {
		mp, err := InitMetrics(cfg)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(mp)
		tel.Meter = mp
	}

	return tel, nil
}

// Shutdown flushes and stops every installed provider
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.Tracer != nil {
		errs = append(errs, t.Tracer.Shutdown(ctx))
	}
	if t.Meter != nil {
		errs = append(errs, t.Meter.Shutdown(ctx))
	}
	_ = t.Logger.Sync()
	return errors.Join(errs...)
}
