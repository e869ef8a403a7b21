package workflow

import (
	"context"

	"github.com/mmdatafocus/regflow/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/mmdatafocus/regflow/workflow")

// startStage opens a span tagged with the run mode and correlation id carried by ctx.
func startStage(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if mode, ok := utils.GetRunModeFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("run_mode", mode))
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("correlation_id", cid))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endStage(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
