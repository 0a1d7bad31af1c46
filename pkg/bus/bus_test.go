package bus_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaenen/catalog/pkg/bus"
	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/identity"
	"github.com/plaenen/catalog/pkg/storage/memory"
	"github.com/plaenen/catalog/pkg/unitofwork"
)

type noteAdded struct {
	domain.EventMarker
}

func (noteAdded) MessageName() string { return "test.NoteAdded" }

type addNote struct {
	domain.CommandMarker
}

func (addNote) MessageName() string { return "test.AddNote" }

type bareMessage struct{}

func (bareMessage) MessageName() string { return "test.Bare" }

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBus(t *testing.T, wire func(*bus.Registry), opts ...bus.Option) *bus.Bus {
	t.Helper()
	registry := bus.NewRegistry()
	wire(registry)
	factory := unitofwork.NewFactory(memory.NewEngine())
	opts = append([]bus.Option{bus.WithLogger(quiet())}, opts...)
	return bus.New(factory, registry, opts...)
}

func commandFunc(fn func(ctx context.Context, uow *unitofwork.UnitOfWork) error) bus.CommandHandler {
	return bus.CommandHandlerFunc(func(ctx context.Context, uow *unitofwork.UnitOfWork, _ domain.Command) error {
		return fn(ctx, uow)
	})
}

func TestCommandRunsItsOneHandlerOnce(t *testing.T) {
	var calls atomic.Int32
	b := newBus(t, func(r *bus.Registry) {
		r.AddCommand(addNote{}.MessageName(), commandFunc(func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
			calls.Add(1)
			return uow.Commit(ctx)
		}))
	})

	require.NoError(t, b.Handle(context.Background(), addNote{}))
	assert.Equal(t, int32(1), calls.Load())
}

func TestUnknownCommandFails(t *testing.T) {
	b := newBus(t, func(*bus.Registry) {})

	err := b.Handle(context.Background(), addNote{})
	assert.ErrorIs(t, err, bus.ErrUnknownMessageType)
}

func TestNonCommandNonEventMessageFails(t *testing.T) {
	b := newBus(t, func(*bus.Registry) {})

	err := b.Handle(context.Background(), bareMessage{})
	assert.ErrorIs(t, err, bus.ErrInvalidMessageType)
}

func TestCommandErrorSurvivesWrappingForErrorsIs(t *testing.T) {
	sentinel := errors.New("storage broke")
	b := newBus(t, func(r *bus.Registry) {
		r.AddCommand(addNote{}.MessageName(), commandFunc(func(context.Context, *unitofwork.UnitOfWork) error {
			return sentinel
		}))
	})

	err := b.Handle(context.Background(), addNote{})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestCommandTimeoutSurfacesWithinBound(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	b := newBus(t, func(r *bus.Registry) {
		r.AddCommand(addNote{}.MessageName(), commandFunc(func(context.Context, *unitofwork.UnitOfWork) error {
			<-release
			return nil
		}))
	})

	start := time.Now()
	err := b.HandleWithTimeout(context.Background(), addNote{}, 30*time.Millisecond)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, bus.ErrCommandTimeout)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestEventTimeoutAbandonsStragglersSilently(t *testing.T) {
	cancelled := make(chan struct{})
	b := newBus(t, func(r *bus.Registry) {
		r.AddEvent(noteAdded{}.MessageName(),
			bus.NewEventHandler("stuck", func(ctx context.Context, _ domain.Event) error {
				<-ctx.Done()
				close(cancelled)
				return ctx.Err()
			}))
	})

	start := time.Now()
	err := b.HandleWithTimeout(context.Background(), noteAdded{}, 30*time.Millisecond)
	elapsed := time.Since(start)

	// The stuck handler never fails the dispatch or holds up the caller.
	assert.NoError(t, err)
	assert.Less(t, elapsed, 500*time.Millisecond)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("abandoned handler's context was never cancelled")
	}
}

func TestDuplicateCommandRegistrationPanics(t *testing.T) {
	noop := commandFunc(func(context.Context, *unitofwork.UnitOfWork) error { return nil })

	registry := bus.NewRegistry()
	registry.AddCommand(addNote{}.MessageName(), noop)

	assert.Panics(t, func() {
		registry.AddCommand(addNote{}.MessageName(), noop)
	})

	// A different name is still fine.
	assert.NotPanics(t, func() {
		registry.AddCommand("test.Other", noop)
	})
}

func TestHandlerErrorRollsBackWrites(t *testing.T) {
	boom := errors.New("boom")
	engine := memory.NewEngine()
	factory := unitofwork.NewFactory(engine)
	registry := bus.NewRegistry()
	registry.AddCommand(addNote{}.MessageName(), commandFunc(func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
		if err := uow.Users().Add(ctx, identity.NewUser("u-1", "ada@example.com", "ada", "hash")); err != nil {
			return err
		}
		return boom // exit without commit
	}))
	b := bus.New(factory, registry, bus.WithLogger(quiet()))

	err := b.Handle(context.Background(), addNote{})
	assert.ErrorIs(t, err, boom)

	check := factory.New()
	require.NoError(t, check.Begin(context.Background()))
	defer check.Close(context.Background())
	_, err = check.Users().Get(context.Background(), "u-1")
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestEventWithNoHandlersSucceeds(t *testing.T) {
	b := newBus(t, func(*bus.Registry) {})

	assert.NoError(t, b.Handle(context.Background(), noteAdded{}))
}

func TestEventFanOutInvokesAllHandlersDespiteFailures(t *testing.T) {
	var ok1, ok2, failed atomic.Int32
	b := newBus(t, func(r *bus.Registry) {
		r.AddEvent(noteAdded{}.MessageName(),
			bus.NewEventHandler("first", func(context.Context, domain.Event) error {
				ok1.Add(1)
				return nil
			}),
			bus.NewEventHandler("failing", func(context.Context, domain.Event) error {
				failed.Add(1)
				return errors.New("projection broke")
			}),
			bus.NewEventHandler("second", func(context.Context, domain.Event) error {
				ok2.Add(1)
				return nil
			}),
		)
	})

	// Handler failures are isolated: the dispatch itself never errors.
	assert.NoError(t, b.Handle(context.Background(), noteAdded{}))
	assert.Equal(t, int32(1), ok1.Load())
	assert.Equal(t, int32(1), ok2.Load())
	assert.Equal(t, int32(1), failed.Load())
}

func TestPanickingEventHandlerIsIsolated(t *testing.T) {
	var sibling atomic.Int32
	b := newBus(t, func(r *bus.Registry) {
		r.AddEvent(noteAdded{}.MessageName(),
			bus.NewEventHandler("panicking", func(context.Context, domain.Event) error {
				panic("projection exploded")
			}),
			bus.NewEventHandler("sibling", func(context.Context, domain.Event) error {
				sibling.Add(1)
				return nil
			}),
		)
	})

	assert.NoError(t, b.Handle(context.Background(), noteAdded{}))
	assert.Equal(t, int32(1), sibling.Load())
}

func TestCommittedEventsAreDispatchedAfterCommand(t *testing.T) {
	var got atomic.Int32
	b := newBus(t, func(r *bus.Registry) {
		r.AddCommand(addNote{}.MessageName(), commandFunc(func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
			if err := uow.Users().Add(ctx, identity.NewUser("u-1", "ada@example.com", "ada", "hash")); err != nil {
				return err
			}
			return uow.Commit(ctx)
		}))
		r.AddEvent(identity.UserCreated{}.MessageName(),
			bus.NewEventHandler("counter", func(_ context.Context, evt domain.Event) error {
				if evt.(identity.UserCreated).UserID == "u-1" {
					got.Add(1)
				}
				return nil
			}))
	})

	require.NoError(t, b.Handle(context.Background(), addNote{}))
	assert.Equal(t, int32(1), got.Load())
}

func TestFailedCommandDispatchesNoEvents(t *testing.T) {
	var got atomic.Int32
	b := newBus(t, func(r *bus.Registry) {
		r.AddCommand(addNote{}.MessageName(), commandFunc(func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
			if err := uow.Users().Add(ctx, identity.NewUser("u-1", "ada@example.com", "ada", "hash")); err != nil {
				return err
			}
			return errors.New("validation failed late")
		}))
		r.AddEvent(identity.UserCreated{}.MessageName(),
			bus.NewEventHandler("counter", func(context.Context, domain.Event) error {
				got.Add(1)
				return nil
			}))
	})

	assert.Error(t, b.Handle(context.Background(), addNote{}))
	assert.Equal(t, int32(0), got.Load())
}

func TestDrainPicksUpCascadingEvents(t *testing.T) {
	var user *identity.User
	var roleEvents atomic.Int32
	b := newBus(t, func(r *bus.Registry) {
		r.AddCommand(addNote{}.MessageName(), commandFunc(func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
			user = identity.NewUser("u-1", "ada@example.com", "ada", "hash")
			if err := uow.Users().Add(ctx, user); err != nil {
				return err
			}
			return uow.Commit(ctx)
		}))
		// Reacting to the first event queues another one on a tracked
		// aggregate; the next drain pass must dispatch it.
		r.AddEvent(identity.UserCreated{}.MessageName(),
			bus.NewEventHandler("grant-default-role", func(context.Context, domain.Event) error {
				return user.AssignRole("member")
			}))
		r.AddEvent(identity.RoleAssigned{}.MessageName(),
			bus.NewEventHandler("count-roles", func(context.Context, domain.Event) error {
				roleEvents.Add(1)
				return nil
			}))
	})

	require.NoError(t, b.Handle(context.Background(), addNote{}))
	assert.Equal(t, int32(1), roleEvents.Load())
}

func TestRunawayDrainLoopTripsGuard(t *testing.T) {
	var user *identity.User
	var passes atomic.Int32
	b := newBus(t, func(r *bus.Registry) {
		r.AddCommand(addNote{}.MessageName(), commandFunc(func(ctx context.Context, uow *unitofwork.UnitOfWork) error {
			user = identity.NewUser("u-1", "ada@example.com", "ada", "hash")
			if err := uow.Users().Add(ctx, user); err != nil {
				return err
			}
			return uow.Commit(ctx)
		}))
		r.AddEvent(identity.UserCreated{}.MessageName(),
			bus.NewEventHandler("requeue", func(context.Context, domain.Event) error {
				// Always queues another event: an unbounded cascade.
				user.Record(identity.UserCreated{UserID: "u-1"})
				passes.Add(1)
				return nil
			}))
	}, bus.WithMaxDrainPasses(3))

	// The guard stops the cascade; the committed command still succeeds.
	require.NoError(t, b.Handle(context.Background(), addNote{}))
	assert.LessOrEqual(t, passes.Load(), int32(3))
	assert.GreaterOrEqual(t, passes.Load(), int32(1))
}
