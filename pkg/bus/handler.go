package bus

import (
	"context"

	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/unitofwork"
)

// CommandHandler executes a single-recipient intent inside the unit of work
// the bus opened for it. Handlers commit the unit of work themselves; the
// bus rolls back on any non-committed exit.
type CommandHandler interface {
	Handle(ctx context.Context, uow *unitofwork.UnitOfWork, cmd domain.Command) error
}

// CommandHandlerFunc is a function adapter for CommandHandler.
type CommandHandlerFunc func(ctx context.Context, uow *unitofwork.UnitOfWork, cmd domain.Command) error

// Handle implements CommandHandler.
func (f CommandHandlerFunc) Handle(ctx context.Context, uow *unitofwork.UnitOfWork, cmd domain.Command) error {
	return f(ctx, uow, cmd)
}

// Middleware wraps command handlers with cross-cutting concerns.
// Middleware is applied in registration order (first added = outermost).
type Middleware func(CommandHandler) CommandHandler

// EventHandler reacts to a broadcast fact. Failures are isolated per handler
// and never reach the caller. Handlers that persist data open their own unit
// of work: the triggering command's session is already closed by the time
// events are dispatched.
type EventHandler interface {
	// Name identifies the handler in logs and metrics.
	Name() string

	Handle(ctx context.Context, evt domain.Event) error
}

type eventHandlerFunc struct {
	name string
	fn   func(ctx context.Context, evt domain.Event) error
}

func (h eventHandlerFunc) Name() string { return h.name }

func (h eventHandlerFunc) Handle(ctx context.Context, evt domain.Event) error {
	return h.fn(ctx, evt)
}

// NewEventHandler adapts a function into a named EventHandler.
func NewEventHandler(name string, fn func(ctx context.Context, evt domain.Event) error) EventHandler {
	return eventHandlerFunc{name: name, fn: fn}
}
