package observability

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "siteworks/internal/utils"
)

// FinishSpan ends span and records *errPtr on it when set. AppErrors also
// tag the span with their code.
//
//	defer observability.FinishSpan(span, &err)
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	defer span.End()

	if errPtr == nil || *errPtr == nil {
		return
	}
	err := *errPtr
	span.RecordError(err, trace.WithStackTrace(true))
	span.SetStatus(codes.Error, err.Error())
	var appErr *contextutils.AppError
	if errors.As(err, &appErr) {
		span.SetAttributes(attribute.String("error.code", string(appErr.Code)))
	}
}
