package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/plaenen/catalog/pkg/bus"
	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/unitofwork"
)

// Recovery recovers from panics in command handlers and converts them into
// errors the caller can observe.
func Recovery(logger *slog.Logger) bus.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next bus.CommandHandler) bus.CommandHandler {
		return bus.CommandHandlerFunc(func(ctx context.Context, uow *unitofwork.UnitOfWork, cmd domain.Command) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "command handler panicked",
						slog.String("command", cmd.MessageName()),
						slog.Any("panic", r),
						slog.String("stack_trace", string(debug.Stack())),
					)
					err = fmt.Errorf("command handler panicked: %v", r)
				}
			}()

			return next.Handle(ctx, uow, cmd)
		})
	}
}
