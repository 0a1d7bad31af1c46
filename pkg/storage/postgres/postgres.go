// Package postgres implements the storage contract on PostgreSQL via pgx.
//
// Sessions are transactions at REPEATABLE READ, so two transactions that
// concurrently load and then write the same aggregate row produce a
// storage-level serialization failure. The engine surfaces it as
// domain.ErrConcurrencyConflict; concurrency control lives in the database,
// not in application-level compare-and-swap.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/storage"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Engine is a PostgreSQL-backed storage engine.
type Engine struct {
	pool *pgxpool.Pool
}

// Open connects a pool to the given DSN.
func Open(ctx context.Context, dsn string) (*Engine, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Engine{pool: pool}, nil
}

// Migrate creates the aggregate table when it does not exist yet.
func (e *Engine) Migrate(ctx context.Context) error {
	_, err := e.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS aggregates (
			kind      TEXT        NOT NULL,
			id        TEXT        NOT NULL,
			version   BIGINT      NOT NULL,
			discarded BOOLEAN     NOT NULL DEFAULT FALSE,
			data      JSONB       NOT NULL,
			PRIMARY KEY (kind, id)
		)`)
	if err != nil {
		return fmt.Errorf("migrate aggregates: %w", err)
	}
	return nil
}

// Close releases the pool.
func (e *Engine) Close() {
	e.pool.Close()
}

// NewSession begins a REPEATABLE READ transaction owned by one unit of work.
func (e *Engine) NewSession(ctx context.Context) (storage.Session, error) {
	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &session{tx: tx}, nil
}

type session struct {
	tx pgx.Tx
}

func (s *session) Insert(ctx context.Context, rec storage.Record) error {
	_, err := s.tx.Exec(ctx,
		`INSERT INTO aggregates (kind, id, version, discarded, data) VALUES ($1, $2, $3, $4, $5)`,
		rec.Kind, rec.ID, rec.Version, rec.Discarded, rec.Data)
	if err != nil {
		return fmt.Errorf("insert %s %q: %w", rec.Kind, rec.ID, mapError(err, rec))
	}
	return nil
}

// Update advances the stored version by one. A writer racing a committed
// winner fails here or at Commit with a serialization failure.
func (s *session) Update(ctx context.Context, rec storage.Record) error {
	tag, err := s.tx.Exec(ctx,
		`UPDATE aggregates SET version = version + 1, discarded = $1, data = $2 WHERE kind = $3 AND id = $4`,
		rec.Discarded, rec.Data, rec.Kind, rec.ID)
	if err != nil {
		return fmt.Errorf("update %s %q: %w", rec.Kind, rec.ID, mapError(err, rec))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s %q: %w", rec.Kind, rec.ID, domain.ErrEntityNotFound)
	}
	return nil
}

func (s *session) Get(ctx context.Context, kind, id string) (storage.Record, error) {
	rec := storage.Record{Kind: kind, ID: id}
	err := s.tx.QueryRow(ctx,
		`SELECT version, discarded, data FROM aggregates WHERE kind = $1 AND id = $2`,
		kind, id).Scan(&rec.Version, &rec.Discarded, &rec.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Record{}, fmt.Errorf("%s %q: %w", kind, id, domain.ErrEntityNotFound)
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("get %s %q: %w", kind, id, err)
	}
	return rec, nil
}

func (s *session) Query(ctx context.Context, kind string, filters ...storage.Filter) ([]storage.Record, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, version, discarded, data FROM aggregates WHERE kind = $1`)
	args := []any{kind}
	for _, f := range filters {
		args = append(args, f.Field, f.Value)
		fmt.Fprintf(&query, ` AND data->>$%d = $%d`, len(args)-1, len(args))
	}
	query.WriteString(` ORDER BY id`)

	rows, err := s.tx.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		rec := storage.Record{Kind: kind}
		if err := rows.Scan(&rec.ID, &rec.Version, &rec.Discarded, &rec.Data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	return out, nil
}

func (s *session) Commit(ctx context.Context) error {
	if err := s.tx.Commit(ctx); err != nil {
		return mapError(err, storage.Record{})
	}
	return nil
}

func (s *session) Rollback(ctx context.Context) error {
	err := s.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// mapError converts engine serialization failures into the conflict error
// callers can detect with errors.Is.
func mapError(err error, rec storage.Record) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected {
			if rec.ID != "" {
				return &domain.ConflictError{Kind: rec.Kind, ID: rec.ID}
			}
			return fmt.Errorf("%w: %s", domain.ErrConcurrencyConflict, pgErr.Message)
		}
	}
	return err
}
