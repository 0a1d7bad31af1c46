// Package middleware provides cross-cutting command middleware for the bus.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/plaenen/catalog/pkg/bus"
	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/unitofwork"
)

// Logging logs command execution with timing information using slog.
func Logging(logger *slog.Logger) bus.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next bus.CommandHandler) bus.CommandHandler {
		return bus.CommandHandlerFunc(func(ctx context.Context, uow *unitofwork.UnitOfWork, cmd domain.Command) error {
			start := time.Now()
			name := cmd.MessageName()

			logger.InfoContext(ctx, "executing command",
				slog.String("command", name),
			)

			err := next.Handle(ctx, uow, cmd)
			duration := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "command execution failed",
					slog.String("command", name),
					slog.Int64("duration_ms", duration.Milliseconds()),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.InfoContext(ctx, "command executed successfully",
				slog.String("command", name),
				slog.Int64("duration_ms", duration.Milliseconds()),
			)
			return nil
		})
	}
}
