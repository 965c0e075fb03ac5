package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one versioned schema step.
type Migration struct {
	Version int
	UpSQL   string
	DownSQL string
}

var migrations = []Migration{
	{
		Version: 1,
		UpSQL: `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	genre TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	price_cents INTEGER NOT NULL CHECK(price_cents >= 0),
	stock INTEGER NOT NULL CHECK(stock >= 0),
	cover_url TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS books_title ON books(title COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS cart_lines (
	user_id TEXT NOT NULL,
	book_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL CHECK(quantity > 0),
	added_at TEXT NOT NULL,
	PRIMARY KEY(user_id, book_id),
	FOREIGN KEY(book_id) REFERENCES books(id)
);

CREATE TABLE IF NOT EXISTS orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('created','paid','cancelled')),
	total_cents INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS orders_user ON orders(user_id, id);

CREATE TABLE IF NOT EXISTS order_items (
	order_id INTEGER NOT NULL,
	book_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK(quantity > 0),
	unit_price_cents INTEGER NOT NULL,
	PRIMARY KEY(order_id, book_id),
	FOREIGN KEY(order_id) REFERENCES orders(id) ON DELETE CASCADE,
	FOREIGN KEY(book_id) REFERENCES books(id)
);

CREATE TABLE IF NOT EXISTS payments (
	order_id INTEGER PRIMARY KEY,
	amount_cents INTEGER NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('approved','rejected')),
	created_at TEXT NOT NULL,
	FOREIGN KEY(order_id) REFERENCES orders(id) ON DELETE CASCADE
);
`,
		DownSQL: `
DROP TABLE IF EXISTS payments;
DROP TABLE IF EXISTS order_items;
DROP TABLE IF EXISTS orders;
DROP TABLE IF EXISTS cart_lines;
DROP TABLE IF EXISTS books;
DELETE FROM schema_migrations WHERE version = 1;
`,
	},
	{
		Version: 2,
		UpSQL: `
CREATE TABLE IF NOT EXISTS turn_log (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	turn INTEGER NOT NULL,
	intent TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	state_trace TEXT NOT NULL,
	request TEXT NOT NULL DEFAULT '',
	response TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS turn_log_user ON turn_log(user_id, created_at);
`,
		DownSQL: `
DROP TABLE IF EXISTS turn_log;
DELETE FROM schema_migrations WHERE version = 2;
`,
	},
}

// ApplyMigrations brings the schema up to date. Already applied versions are skipped.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations(version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, m.Version).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("apply migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES (?, datetime('now'))`, m.Version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// RollbackAll reverts every migration, newest first.
func RollbackAll(ctx context.Context, db *sql.DB) error {
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin rollback tx %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("rollback migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit rollback %d: %w", m.Version, err)
		}
	}
	return nil
}
