// Package view maintains the sqlite-backed read model fed by event
// handlers: a product catalog listing, a user directory, and an audit log.
// The store never participates in command transactions; projectors update
// it after the fact, so it is eventually consistent with the write side.
package view

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/idgen"
)

// Store is the sqlite read model.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the read model at the given DSN and runs
// migrations. Use ":memory:" for tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open view store: %w", err)
	}

	// Each connection to :memory: gets its own isolated database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS catalog_products (
			id       TEXT PRIMARY KEY,
			sku      TEXT NOT NULL,
			name     TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			price    TEXT NOT NULL,
			retired  INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS user_directory (
			id       TEXT PRIMARY KEY,
			email    TEXT NOT NULL,
			username TEXT NOT NULL,
			active   INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE IF NOT EXISTS audit_log (
			id     TEXT PRIMARY KEY,
			at     TEXT NOT NULL,
			kind   TEXT NOT NULL,
			detail TEXT NOT NULL
		);`)
	if err != nil {
		return fmt.Errorf("migrate view store: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ProductRow is one product in the catalog listing.
type ProductRow struct {
	ID      string
	SKU     string
	Name    string
	OwnerID string
	Price   decimal.Decimal
	Retired bool
}

// UpsertProduct inserts or replaces a product row.
func (s *Store) UpsertProduct(ctx context.Context, row ProductRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_products (id, sku, name, owner_id, price, retired)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sku = excluded.sku,
			name = excluded.name,
			owner_id = excluded.owner_id,
			price = excluded.price,
			retired = excluded.retired`,
		row.ID, row.SKU, row.Name, row.OwnerID, row.Price.String(), row.Retired)
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", row.ID, err)
	}
	return nil
}

// RenameProduct updates a product's display name.
func (s *Store) RenameProduct(ctx context.Context, id, name string) error {
	return s.updateProduct(ctx, id, `UPDATE catalog_products SET name = ? WHERE id = ?`, name, id)
}

// RepriceProduct updates a product's price.
func (s *Store) RepriceProduct(ctx context.Context, id string, price decimal.Decimal) error {
	return s.updateProduct(ctx, id, `UPDATE catalog_products SET price = ? WHERE id = ?`, price.String(), id)
}

// RetireProduct marks a product retired.
func (s *Store) RetireProduct(ctx context.Context, id string) error {
	return s.updateProduct(ctx, id, `UPDATE catalog_products SET retired = 1 WHERE id = ?`, id)
}

func (s *Store) updateProduct(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update product %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %q: %w", id, domain.ErrEntityNotFound)
	}
	return nil
}

// ListProducts returns all product rows ordered by SKU.
func (s *Store) ListProducts(ctx context.Context) ([]ProductRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sku, name, owner_id, price, retired FROM catalog_products ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []ProductRow
	for rows.Next() {
		var row ProductRow
		var price string
		if err := rows.Scan(&row.ID, &row.SKU, &row.Name, &row.OwnerID, &price, &row.Retired); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		row.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("decode price of product %q: %w", row.ID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UserRow is one user in the directory.
type UserRow struct {
	ID       string
	Email    string
	Username string
	Active   bool
}

// UpsertUser inserts or replaces a directory row.
func (s *Store) UpsertUser(ctx context.Context, row UserRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_directory (id, email, username, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			username = excluded.username,
			active = excluded.active`,
		row.ID, row.Email, row.Username, row.Active)
	if err != nil {
		return fmt.Errorf("upsert user %q: %w", row.ID, err)
	}
	return nil
}

// SetUserEmail updates a directory row's email.
func (s *Store) SetUserEmail(ctx context.Context, id, email string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_directory SET email = ? WHERE id = ?`, email, id)
	if err != nil {
		return fmt.Errorf("update user %q: %w", id, err)
	}
	return nil
}

// DeactivateUser marks a directory row inactive.
func (s *Store) DeactivateUser(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_directory SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate user %q: %w", id, err)
	}
	return nil
}

// GetUser returns one directory row.
func (s *Store) GetUser(ctx context.Context, id string) (UserRow, error) {
	var row UserRow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, username, active FROM user_directory WHERE id = ?`, id).
		Scan(&row.ID, &row.Email, &row.Username, &row.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRow{}, fmt.Errorf("user %q: %w", id, domain.ErrEntityNotFound)
	}
	if err != nil {
		return UserRow{}, fmt.Errorf("get user %q: %w", id, err)
	}
	return row, nil
}

// AuditEntry is one appended audit record.
type AuditEntry struct {
	ID     string
	At     time.Time
	Kind   string
	Detail string
}

// AppendAudit appends an audit record with a sortable id.
func (s *Store) AppendAudit(ctx context.Context, kind, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, at, kind, detail) VALUES (?, ?, ?, ?)`,
		idgen.MustSortableID(), time.Now().UTC().Format(time.RFC3339Nano), kind, detail)
	if err != nil {
		return fmt.Errorf("append audit %q: %w", kind, err)
	}
	return nil
}

// ListAudit returns all audit entries in append order.
func (s *Store) ListAudit(ctx context.Context) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, kind, detail FROM audit_log ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var entry AuditEntry
		var at string
		if err := rows.Scan(&entry.ID, &at, &entry.Kind, &entry.Detail); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		entry.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("decode audit time: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
