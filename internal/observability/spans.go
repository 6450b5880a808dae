package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "siteworks"

// startSpan names spans "<component>.<function>". The tracer is looked up on
// every call so providers installed after package init are honoured.
func startSpan(ctx context.Context, component, function string, attrs []attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, component+"."+function, trace.WithAttributes(attrs...))
}

func TraceUserFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "user", fn, attrs)
}

func TraceProjectFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "project", fn, attrs)
}

// TraceReportFunction covers the report lifecycle: create, edit, approve, reject
func TraceReportFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "report", fn, attrs)
}

func TraceChecklistFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "checklist", fn, attrs)
}

// TraceStorageFunction covers photo uploads and files on disk
func TraceStorageFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "storage", fn, attrs)
}

func TraceDocumentFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "document", fn, attrs)
}

func TraceNotificationFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "notification", fn, attrs)
}

func TraceWorkerFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "worker", fn, attrs)
}

func TraceHandlerFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "handler", fn, attrs)
}

func TraceDatabaseFunction(ctx context.Context, fn string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return startSpan(ctx, "database", fn, attrs)
}

func AttributeUserID(id int) attribute.KeyValue { return attribute.Int("user.id", id) }
func AttributeProjectID(id int) attribute.KeyValue { return attribute.Int("project.id", id) }
func AttributeReportID(id int) attribute.KeyValue { return attribute.Int("report.id", id) }
func AttributeChecklistID(id int) attribute.KeyValue { return attribute.Int("checklist.id", id) }
func AttributeLimit(limit int) attribute.KeyValue { return attribute.Int("limit", limit) }
func AttributeOffset(offset int) attribute.KeyValue { return attribute.Int("offset", offset) }
func AttributeReportStatus(s string) attribute.KeyValue { return attribute.String("report.status", s) }

// AttributeActorIsAdmin marks spans where admin rules applied
func AttributeActorIsAdmin(isAdmin bool) attribute.KeyValue {
	return attribute.Bool("actor.is_admin", isAdmin)
}
