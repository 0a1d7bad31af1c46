// Package bootstrap assembles the whole system: storage engine, read model,
// unit of work factory, handler table, and bus. The handler table is built
// once here; nothing registers handlers after construction.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/plaenen/catalog/pkg/bus"
	"github.com/plaenen/catalog/pkg/catalog"
	"github.com/plaenen/catalog/pkg/config"
	"github.com/plaenen/catalog/pkg/handlers"
	"github.com/plaenen/catalog/pkg/identity"
	"github.com/plaenen/catalog/pkg/middleware"
	"github.com/plaenen/catalog/pkg/observability"
	"github.com/plaenen/catalog/pkg/storage"
	"github.com/plaenen/catalog/pkg/storage/memory"
	"github.com/plaenen/catalog/pkg/storage/postgres"
	"github.com/plaenen/catalog/pkg/unitofwork"
	"github.com/plaenen/catalog/pkg/view"
)

// App is the assembled system.
type App struct {
	Bus  *bus.Bus
	View *view.Store

	logger    *slog.Logger
	telemetry *observability.Telemetry
	pool      *postgres.Engine
}

// Option configures the assembly.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	telemetry *observability.Telemetry
}

// WithLogger sets the structured logger for the bus and middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTelemetry attaches an initialized telemetry stack; the bus gets its
// metrics and commands get a tracing span.
func WithTelemetry(tel *observability.Telemetry) Option {
	return func(o *options) { o.telemetry = tel }
}

// New assembles the application from configuration. A Postgres DSN selects
// the transactional engine; an empty DSN falls back to the in-memory engine.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	app := &App{logger: o.logger, telemetry: o.telemetry}

	var engine storage.Factory
	if cfg.PostgresDSN != "" {
		pool, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		app.pool = pool
		engine = pool
	} else {
		engine = memory.NewEngine()
	}

	store, err := view.Open(cfg.ViewDSN)
	if err != nil {
		app.closePool()
		return nil, err
	}
	app.View = store

	factory := unitofwork.NewFactory(engine)
	registry := buildRegistry(factory, store)

	busOpts := []bus.Option{
		bus.WithLogger(o.logger),
		bus.WithTimeout(cfg.CommandTimeout),
		bus.WithMaxDrainPasses(cfg.MaxDrainPasses),
		bus.WithMiddleware(
			middleware.Recovery(o.logger),
			middleware.Logging(o.logger),
		),
	}
	if o.telemetry != nil {
		busOpts = append(busOpts,
			bus.WithMetrics(o.telemetry.Metrics),
			bus.WithMiddleware(middleware.TracingWithTracer(o.telemetry.Tracer("messagebus"))),
		)
	}

	app.Bus = bus.New(factory, registry, busOpts...)
	return app, nil
}

// buildRegistry wires every command to its one handler and every event to
// its projectors, the audit trail, and any reactions.
func buildRegistry(factory *unitofwork.Factory, store *view.Store) *bus.Registry {
	registry := bus.NewRegistry()

	registry.AddCommand(identity.CreateUser{}.MessageName(), handlers.CreateUser{})
	registry.AddCommand(identity.AssignRole{}.MessageName(), handlers.AssignRole{})
	registry.AddCommand(identity.RevokeRole{}.MessageName(), handlers.RevokeRole{})
	registry.AddCommand(identity.ChangeUserEmail{}.MessageName(), handlers.ChangeUserEmail{})
	registry.AddCommand(identity.DeactivateUser{}.MessageName(), handlers.DeactivateUser{})

	registry.AddCommand(catalog.CreateProduct{}.MessageName(), handlers.CreateProduct{})
	registry.AddCommand(catalog.RenameProduct{}.MessageName(), handlers.RenameProduct{})
	registry.AddCommand(catalog.ChangeProductPrice{}.MessageName(), handlers.ChangeProductPrice{})
	registry.AddCommand(catalog.RetireProduct{}.MessageName(), handlers.RetireProduct{})

	catalogProjector := handlers.NewCatalogProjector(store)
	directoryProjector := handlers.NewDirectoryProjector(store)
	audit := handlers.NewAuditTrail(store)
	offboarding := handlers.NewOffboarding(factory, store)

	registry.AddEvent(catalog.ProductCreated{}.MessageName(), catalogProjector, audit)
	registry.AddEvent(catalog.ProductRenamed{}.MessageName(), catalogProjector, audit)
	registry.AddEvent(catalog.ProductPriceChanged{}.MessageName(), catalogProjector, audit)
	registry.AddEvent(catalog.ProductRetired{}.MessageName(), catalogProjector, audit)

	registry.AddEvent(identity.UserCreated{}.MessageName(), directoryProjector, audit)
	registry.AddEvent(identity.RoleAssigned{}.MessageName(), audit)
	registry.AddEvent(identity.RoleRevoked{}.MessageName(), audit)
	registry.AddEvent(identity.UserEmailChanged{}.MessageName(), directoryProjector, audit)
	registry.AddEvent(identity.UserDeactivated{}.MessageName(), directoryProjector, audit, offboarding)

	return registry
}

// Close releases the read model and any database pool.
func (a *App) Close() error {
	err := a.View.Close()
	a.closePool()
	return err
}

func (a *App) closePool() {
	if a.pool != nil {
		a.pool.Close()
	}
}
