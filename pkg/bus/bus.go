// Package bus implements the message dispatcher at the top of the system.
//
// A command is the strict, caller-observable transaction: it runs in exactly
// one handler inside a unit of work the bus opens for it, bounded by a
// timeout, and its error or deadline surfaces to the caller. Events are
// best-effort propagation: after a command commits, the bus drains the
// events its aggregates queued and fans each one out to all registered
// handlers concurrently, isolating every failure at the handler boundary.
// An already-committed operation is never failed retroactively by an event.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/idgen"
	"github.com/plaenen/catalog/pkg/observability"
	"github.com/plaenen/catalog/pkg/unitofwork"
)

const (
	// DefaultTimeout bounds command execution and event fan-out per dispatch.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxDrainPasses bounds the command-triggered event-drain loop so
	// a runaway cascade stops instead of looping forever.
	DefaultMaxDrainPasses = 25
)

// Bus routes messages to their registered handlers.
type Bus struct {
	registry       *Registry
	uow            *unitofwork.Factory
	middleware     []Middleware
	logger         *slog.Logger
	metrics        *observability.Metrics
	timeout        time.Duration
	maxDrainPasses int
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// WithMetrics attaches bus metrics. A nil Metrics is a no-op.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(b *Bus) { b.metrics = metrics }
}

// WithTimeout sets the default per-dispatch timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(b *Bus) { b.timeout = timeout }
}

// WithMaxDrainPasses sets the drain-loop guard.
func WithMaxDrainPasses(n int) Option {
	return func(b *Bus) { b.maxDrainPasses = n }
}

// WithMiddleware appends command middleware, applied in the given order
// (first = outermost).
func WithMiddleware(mw ...Middleware) Option {
	return func(b *Bus) { b.middleware = append(b.middleware, mw...) }
}

// New creates a bus over the given unit of work factory and handler table.
func New(uow *unitofwork.Factory, registry *Registry, opts ...Option) *Bus {
	b := &Bus{
		registry:       registry,
		uow:            uow,
		logger:         slog.Default(),
		timeout:        DefaultTimeout,
		maxDrainPasses: DefaultMaxDrainPasses,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle dispatches a message with the bus's default timeout.
func (b *Bus) Handle(ctx context.Context, msg domain.Message) error {
	return b.HandleWithTimeout(ctx, msg, b.timeout)
}

// HandleWithTimeout dispatches a message, bounding handler execution by the
// given timeout. Command errors and timeouts surface to the caller; event
// handler failures never do.
func (b *Bus) HandleWithTimeout(ctx context.Context, msg domain.Message, timeout time.Duration) error {
	dispatchID := idgen.MustSortableID()
	switch m := msg.(type) {
	case domain.Command:
		return b.handleCommand(ctx, m, timeout, dispatchID)
	case domain.Event:
		b.handleEvent(ctx, m, timeout, dispatchID)
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrInvalidMessageType, msg)
	}
}

func (b *Bus) handleCommand(ctx context.Context, cmd domain.Command, timeout time.Duration, dispatchID string) error {
	name := cmd.MessageName()
	handler, ok := b.registry.command(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMessageType, name)
	}
	for i := len(b.middleware) - 1; i >= 0; i-- {
		handler = b.middleware[i](handler)
	}

	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	uow := b.uow.New()
	done := make(chan error, 1)
	go func() {
		done <- b.runCommand(cctx, uow, handler, cmd)
	}()

	select {
	case <-cctx.Done():
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			b.metrics.RecordCommand(ctx, name, "timeout", time.Since(start))
			b.logger.ErrorContext(ctx, "command timed out",
				slog.String("dispatch_id", dispatchID),
				slog.String("command", name),
				slog.Duration("timeout", timeout),
			)
			return fmt.Errorf("%w: %s after %s", ErrCommandTimeout, name, timeout)
		}
		return cctx.Err()
	case err := <-done:
		if err != nil {
			b.metrics.RecordCommand(ctx, name, "error", time.Since(start))
			return fmt.Errorf("command %s: %w", name, err)
		}
	}

	b.metrics.RecordCommand(ctx, name, "ok", time.Since(start))
	b.drainEvents(ctx, uow, name, timeout, dispatchID)
	return nil
}

// runCommand owns the unit of work lifecycle for one command: begin, invoke,
// and close. Close rolls back unless the handler committed. It runs on its
// own goroutine so a stuck handler cannot block the caller past the deadline;
// the unit of work is fully closed before the result is reported.
func (b *Bus) runCommand(ctx context.Context, uow *unitofwork.UnitOfWork, handler CommandHandler, cmd domain.Command) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		// Rollback must survive a cancelled dispatch context.
		if err := uow.Close(context.WithoutCancel(ctx)); err != nil {
			b.logger.Error("unit of work close failed",
				slog.String("command", cmd.MessageName()),
				slog.String("error", err.Error()),
			)
		}
	}()
	return handler.Handle(ctx, uow, cmd)
}

// drainEvents repeatedly pops newly queued events from the command's unit of
// work and dispatches each through the event path, until a pass yields
// nothing or the guard trips.
func (b *Bus) drainEvents(ctx context.Context, uow *unitofwork.UnitOfWork, command string, timeout time.Duration, dispatchID string) {
	for passes := 0; ; passes++ {
		events := uow.CollectNewEvents()
		if len(events) == 0 {
			b.metrics.RecordDrain(ctx, command, passes, false)
			return
		}
		if passes >= b.maxDrainPasses {
			b.logger.ErrorContext(ctx, "event drain guard tripped, stopping",
				slog.String("dispatch_id", dispatchID),
				slog.String("command", command),
				slog.Int("passes", passes),
				slog.Int("undispatched", len(events)),
			)
			b.metrics.RecordDrain(ctx, command, passes, true)
			return
		}
		for _, evt := range events {
			b.handleEvent(ctx, evt, timeout, dispatchID)
		}
	}
}

type handlerResult struct {
	handler string
	err     error
}

// handleEvent fans an event out to all registered handlers as sibling
// goroutines under one timeout scope. Handler failures are logged and
// counted, never propagated, and never cancel siblings. A scope timeout
// abandons stragglers silently.
func (b *Bus) handleEvent(ctx context.Context, evt domain.Event, timeout time.Duration, dispatchID string) {
	name := evt.MessageName()
	handlers := b.registry.eventHandlers(name)
	if len(handlers) == 0 {
		return
	}

	ectx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan handlerResult, len(handlers))
	for _, h := range handlers {
		go func(h EventHandler) {
			results <- handlerResult{handler: h.Name(), err: b.runEventHandler(ectx, h, evt)}
		}(h)
	}

	failures := 0
	collected := 0
	for range handlers {
		select {
		case res := <-results:
			collected++
			if res.err != nil {
				failures++
				b.logger.ErrorContext(ctx, "event handler failed",
					slog.String("dispatch_id", dispatchID),
					slog.String("event", name),
					slog.String("handler", res.handler),
					slog.String("error", res.err.Error()),
				)
			}
		case <-ectx.Done():
			b.logger.WarnContext(ctx, "event dispatch timed out, abandoning remaining handlers",
				slog.String("dispatch_id", dispatchID),
				slog.String("event", name),
				slog.Int("pending", len(handlers)-collected),
			)
			b.metrics.RecordEventDispatch(ctx, name, len(handlers), failures)
			return
		}
	}

	b.metrics.RecordEventDispatch(ctx, name, len(handlers), failures)
	if failures > 0 {
		b.logger.DebugContext(ctx, "event dispatched with failures",
			slog.String("dispatch_id", dispatchID),
			slog.String("event", name),
			slog.Int("handlers", len(handlers)),
			slog.Int("failed", failures),
		)
	}
}

// runEventHandler is the per-handler isolation boundary: a panic inside one
// event handler is captured as that handler's failure.
func (b *Bus) runEventHandler(ctx context.Context, h EventHandler, evt domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, evt)
}
