package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/identity"
	"github.com/plaenen/catalog/pkg/repository"
	"github.com/plaenen/catalog/pkg/storage"
	"github.com/plaenen/catalog/pkg/storage/memory"
)

func newRepo(t *testing.T, engine *memory.Engine) (*repository.Repository[*identity.User], storage.Session) {
	t.Helper()
	session, err := engine.NewSession(context.Background())
	require.NoError(t, err)
	return repository.New(identity.Kind, session, identity.Codec{}), session
}

func seedUser(t *testing.T, engine *memory.Engine, id, email string) {
	t.Helper()
	ctx := context.Background()
	repo, session := newRepo(t, engine)
	require.NoError(t, repo.Add(ctx, identity.NewUser(id, email, "user-"+id, "hash")))
	require.NoError(t, session.Commit(ctx))
}

func TestGetUnknownIDFails(t *testing.T) {
	repo, _ := newRepo(t, memory.NewEngine())

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestGetDiscardedAggregateFails(t *testing.T) {
	ctx := context.Background()
	engine := memory.NewEngine()
	seedUser(t, engine, "u-1", "ada@example.com")

	repo, session := newRepo(t, engine)
	user, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	require.NoError(t, user.Deactivate())
	require.NoError(t, repo.Persist(ctx, user))
	require.NoError(t, session.Commit(ctx))

	repo, _ = newRepo(t, engine)
	_, err = repo.Get(ctx, "u-1")
	assert.ErrorIs(t, err, domain.ErrAggregateDiscarded)
}

func TestPersistUnseenAggregateFails(t *testing.T) {
	ctx := context.Background()
	engine := memory.NewEngine()
	seedUser(t, engine, "u-1", "ada@example.com")

	repo, _ := newRepo(t, engine)
	stranger := identity.NewUser("u-1", "ada@example.com", "ada", "hash")

	err := repo.Persist(ctx, stranger)
	assert.ErrorIs(t, err, domain.ErrEntityNotSeen)
}

func TestGetByMatchesExactlyOne(t *testing.T) {
	ctx := context.Background()
	engine := memory.NewEngine()
	seedUser(t, engine, "u-1", "ada@example.com")
	seedUser(t, engine, "u-2", "grace@example.com")

	repo, _ := newRepo(t, engine)

	user, err := repo.GetBy(ctx, storage.Filter{Field: "email", Value: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID())

	_, err = repo.GetBy(ctx, storage.Filter{Field: "email", Value: "nobody@example.com"})
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestGetByMultipleMatchesFails(t *testing.T) {
	ctx := context.Background()
	engine := memory.NewEngine()
	seedUser(t, engine, "u-1", "shared@example.com")
	seedUser(t, engine, "u-2", "shared@example.com")

	repo, _ := newRepo(t, engine)
	_, err := repo.GetBy(ctx, storage.Filter{Field: "email", Value: "shared@example.com"})
	assert.ErrorIs(t, err, domain.ErrMultipleEntitiesFound)
}

func TestRepeatGetReturnsTrackedInstance(t *testing.T) {
	ctx := context.Background()
	engine := memory.NewEngine()
	seedUser(t, engine, "u-1", "ada@example.com")

	repo, _ := newRepo(t, engine)
	first, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	second, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)

	// One owned instance per aggregate: events recorded through either
	// handle land in the same pending queue.
	assert.Same(t, first, second)
	require.NoError(t, first.AssignRole("admin"))
	assert.Len(t, second.PopEvents(), 1)
}

func TestSeenPreservesFirstSeenOrder(t *testing.T) {
	ctx := context.Background()
	engine := memory.NewEngine()
	seedUser(t, engine, "u-1", "ada@example.com")
	seedUser(t, engine, "u-2", "grace@example.com")

	repo, _ := newRepo(t, engine)
	_, err := repo.Get(ctx, "u-2")
	require.NoError(t, err)
	_, err = repo.Get(ctx, "u-1")
	require.NoError(t, err)
	_, err = repo.Get(ctx, "u-2")
	require.NoError(t, err)

	seen := repo.Seen()
	require.Len(t, seen, 2)
	assert.Equal(t, "u-2", seen[0].ID())
	assert.Equal(t, "u-1", seen[1].ID())
}

func TestQuerySkipsDiscardedAggregates(t *testing.T) {
	ctx := context.Background()
	engine := memory.NewEngine()
	seedUser(t, engine, "u-1", "shared@example.com")
	seedUser(t, engine, "u-2", "shared@example.com")

	repo, session := newRepo(t, engine)
	user, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	require.NoError(t, user.Deactivate())
	require.NoError(t, repo.Persist(ctx, user))
	require.NoError(t, session.Commit(ctx))

	repo, _ = newRepo(t, engine)
	users, err := repo.Query(ctx, storage.Filter{Field: "email", Value: "shared@example.com"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u-2", users[0].ID())
}
