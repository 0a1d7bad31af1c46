package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/plaenen/catalog/pkg/bus"
	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/unitofwork"
)

// Tracing adds OpenTelemetry distributed tracing to command execution.
// Uses the global tracer provider by default.
func Tracing(tracerName string) bus.Middleware {
	if tracerName == "" {
		tracerName = "github.com/plaenen/catalog"
	}
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer creates tracing middleware with a specific tracer.
func TracingWithTracer(tracer trace.Tracer) bus.Middleware {
	return func(next bus.CommandHandler) bus.CommandHandler {
		return bus.CommandHandlerFunc(func(ctx context.Context, uow *unitofwork.UnitOfWork, cmd domain.Command) error {
			name := cmd.MessageName()

			spanCtx, span := tracer.Start(ctx, fmt.Sprintf("command.%s", name),
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(
					attribute.String("command", name),
				),
			)
			defer span.End()

			if err := next.Handle(spanCtx, uow, cmd); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}

			span.SetStatus(codes.Ok, "command executed successfully")
			return nil
		})
	}
}
