package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaenen/catalog/pkg/bootstrap"
	"github.com/plaenen/catalog/pkg/catalog"
	"github.com/plaenen/catalog/pkg/config"
	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/handlers"
	"github.com/plaenen/catalog/pkg/identity"
	"github.com/plaenen/catalog/pkg/validators"
)

const strongPassword = "correct horse battery staple"

func newApp(t *testing.T) *bootstrap.App {
	t.Helper()
	cfg := config.Config{
		Environment:    "test",
		CommandTimeout: 5 * time.Second,
		MaxDrainPasses: 25,
		ViewDSN:        ":memory:",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := bootstrap.New(context.Background(), cfg, bootstrap.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func createUser(t *testing.T, app *bootstrap.App, id, email, username string) {
	t.Helper()
	require.NoError(t, app.Bus.Handle(context.Background(), identity.CreateUser{
		UserID:   id,
		Email:    email,
		Username: username,
		Password: strongPassword,
	}))
}

func createProduct(t *testing.T, app *bootstrap.App, id, sku, owner string) {
	t.Helper()
	require.NoError(t, app.Bus.Handle(context.Background(), catalog.CreateProduct{
		ProductID: id,
		SKU:       sku,
		Name:      "Widget",
		OwnerID:   owner,
		Price:     decimal.RequireFromString("19.99"),
	}))
}

func TestCreateUserValidatesInput(t *testing.T) {
	ctx := context.Background()
	app := newApp(t)

	err := app.Bus.Handle(ctx, identity.CreateUser{
		Email: "not-an-email", Username: "ada", Password: strongPassword,
	})
	assert.ErrorIs(t, err, validators.ErrInvalidEmail)

	err = app.Bus.Handle(ctx, identity.CreateUser{
		Email: "ada@example.com", Username: "a", Password: strongPassword,
	})
	assert.ErrorIs(t, err, validators.ErrInvalidUsername)

	err = app.Bus.Handle(ctx, identity.CreateUser{
		Email: "ada@example.com", Username: "ada", Password: "123",
	})
	assert.Error(t, err)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	app := newApp(t)
	createUser(t, app, "u-1", "ada@example.com", "ada")

	err := app.Bus.Handle(ctx, identity.CreateUser{
		Email: "ada@example.com", Username: "imposter", Password: strongPassword,
	})
	assert.ErrorIs(t, err, handlers.ErrEmailTaken)
}

func TestCreateUserProjectsIntoDirectory(t *testing.T) {
	ctx := context.Background()
	app := newApp(t)
	createUser(t, app, "u-1", "ada@example.com", "ada")

	row, err := app.View.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", row.Email)
	assert.Equal(t, "ada", row.Username)
	assert.True(t, row.Active)
}

func TestRoleLifecycleThroughTheBus(t *testing.T) {
	ctx := context.Background()
	app := newApp(t)
	createUser(t, app, "u-1", "ada@example.com", "ada")

	require.NoError(t, app.Bus.Handle(ctx, identity.AssignRole{UserID: "u-1", Role: "seller"}))
	require.NoError(t, app.Bus.Handle(ctx, identity.RevokeRole{UserID: "u-1", Role: "seller"}))

	err := app.Bus.Handle(ctx, identity.AssignRole{UserID: "missing", Role: "seller"})
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestChangeUserEmailUpdatesDirectory(t *testing.T) {
	ctx := context.Background()
	app := newApp(t)
	createUser(t, app, "u-1", "ada@example.com", "ada")

	require.NoError(t, app.Bus.Handle(ctx, identity.ChangeUserEmail{
		UserID: "u-1", Email: "lovelace@example.com",
	}))

	row, err := app.View.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "lovelace@example.com", row.Email)
}

func TestCreateProductRequiresActiveOwner(t *testing.T) {
	ctx := context.Background()
	app := newApp(t)

	err := app.Bus.Handle(ctx, catalog.CreateProduct{
		SKU: "SKU-1", Name: "Widget", OwnerID: "missing",
		Price: decimal.RequireFromString("9.99"),
	})
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)

	createUser(t, app, "u-1", "ada@example.com", "ada")
	require.NoError(t, app.Bus.Handle(ctx, identity.DeactivateUser{UserID: "u-1"}))

	err = app.Bus.Handle(ctx, catalog.CreateProduct{
		SKU: "SKU-1", Name: "Widget", OwnerID: "u-1",
		Price: decimal.RequireFromString("9.99"),
	})
	assert.ErrorIs(t, err, domain.ErrAggregateDiscarded)
}

func TestProductLifecycleProjectsIntoCatalog(t *testing.T) {
	ctx := context.Background()
	app := newApp(t)
	createUser(t, app, "u-1", "ada@example.com", "ada")
	createProduct(t, app, "p-1", "WIDGET-01", "u-1")

	require.NoError(t, app.Bus.Handle(ctx, catalog.RenameProduct{ProductID: "p-1", Name: "Gadget"}))
	require.NoError(t, app.Bus.Handle(ctx, catalog.ChangeProductPrice{
		ProductID: "p-1", Price: decimal.RequireFromString("24.99"),
	}))

	products, err := app.View.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Gadget", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("24.99")))
	assert.False(t, products[0].Retired)

	require.NoError(t, app.Bus.Handle(ctx, catalog.RetireProduct{ProductID: "p-1"}))

	products, err = app.View.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].Retired)
}

func TestDeactivatingOwnerOffboardsTheirProducts(t *testing.T) {
	ctx := context.Background()
	app := newApp(t)
	createUser(t, app, "u-1", "ada@example.com", "ada")
	createUser(t, app, "u-2", "grace@example.com", "grace")
	createProduct(t, app, "p-1", "WIDGET-01", "u-1")
	createProduct(t, app, "p-2", "WIDGET-02", "u-1")
	createProduct(t, app, "p-3", "GADGET-01", "u-2")

	require.NoError(t, app.Bus.Handle(ctx, identity.DeactivateUser{UserID: "u-1"}))

	// The directory row is inactive and only the owner's listings retired.
	row, err := app.View.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, row.Active)

	products, err := app.View.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	for _, p := range products {
		if p.OwnerID == "u-1" {
			assert.True(t, p.Retired, "product %s of the deactivated owner", p.ID)
		} else {
			assert.False(t, p.Retired, "product %s of another owner", p.ID)
		}
	}

	// The write side agrees: renaming a retired product fails.
	err = app.Bus.Handle(ctx, catalog.RenameProduct{ProductID: "p-1", Name: "Gadget"})
	assert.ErrorIs(t, err, domain.ErrAggregateDiscarded)
}

func TestAuditTrailRecordsEveryFact(t *testing.T) {
	ctx := context.Background()
	app := newApp(t)
	createUser(t, app, "u-1", "ada@example.com", "ada")
	require.NoError(t, app.Bus.Handle(ctx, identity.AssignRole{UserID: "u-1", Role: "seller"}))
	createProduct(t, app, "p-1", "WIDGET-01", "u-1")

	entries, err := app.View.ListAudit(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	kinds := make([]string, len(entries))
	for i, e := range entries {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []string{
		"identity.UserCreated",
		"identity.RoleAssigned",
		"catalog.ProductCreated",
	}, kinds)
}
