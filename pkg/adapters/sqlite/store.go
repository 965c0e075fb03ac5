// Package sqlite is the durable bookstore backend built on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/bookflow/pkg/domain"
)

// Store implements ports.Store, ports.Seeder and ports.AuditLog.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// OpenMigrated opens the database and applies pending migrations.
func OpenMigrated(ctx context.Context, path string) (*Store, error) {
	s, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := ApplyMigrations(ctx, s.db); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// Seed upserts books keeping their ids.
func (s *Store) Seed(ctx context.Context, books []domain.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	for _, b := range books {
		_, err := tx.ExecContext(ctx, `
INSERT INTO books(id, title, author, genre, description, price_cents, stock, cover_url)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title=excluded.title,
	author=excluded.author,
	genre=excluded.genre,
	description=excluded.description,
	price_cents=excluded.price_cents,
	stock=excluded.stock,
	cover_url=excluded.cover_url
`, b.ID, b.Title, b.Author, b.Genre, b.Description, int64(b.Price), b.Stock, b.CoverURL)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("seed book %d: %w", b.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// BookCount reports how many books the catalog holds.
func (s *Store) BookCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

const bookColumns = `id, title, author, genre, description, price_cents, stock, cover_url`

func scanBooks(rows *sql.Rows) ([]domain.Book, error) {
	defer rows.Close()
	var out []domain.Book
	for rows.Next() {
		var b domain.Book
		var price int64
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Description, &price, &b.Stock, &b.CoverURL); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		b.Price = domain.Money(price)
		out = append(out, b)
	}
	return out, rows.Err()
}

// likePattern wraps s in % and escapes LIKE metacharacters.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// SearchBooks matches every query word against title, author or genre.
func (s *Store) SearchBooks(ctx context.Context, query string, limit int) ([]domain.Book, error) {
	words := strings.Fields(query)
	var clauses []string
	var args []any
	for _, w := range words {
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR author LIKE ? ESCAPE '\' OR genre LIKE ? ESCAPE '\')`)
		p := likePattern(w)
		args = append(args, p, p, p)
	}
	q := `SELECT ` + bookColumns + ` FROM books`
	if len(clauses) > 0 {
		q += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	q += ` ORDER BY id`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return scanBooks(rows)
}

// FindBooks resolves a book reference.
func (s *Store) FindBooks(ctx context.Context, ref domain.BookRef) ([]domain.Book, error) {
	if ref.ID != 0 {
		rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("find book %d: %w", ref.ID, err)
		}
		return scanBooks(rows)
	}

	title := strings.TrimSpace(ref.Title)
	if title == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books WHERE title = ? COLLATE NOCASE ORDER BY id`, title)
	if err != nil {
		return nil, fmt.Errorf("find book %q: %w", title, err)
	}
	exact, err := scanBooks(rows)
	if err != nil || len(exact) > 0 {
		return exact, err
	}
	rows, err = s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books WHERE title LIKE ? ESCAPE '\' ORDER BY id`, likePattern(title))
	if err != nil {
		return nil, fmt.Errorf("find book %q: %w", title, err)
	}
	return scanBooks(rows)
}

// GetCart returns the user's cart joined with current prices and stock.
func (s *Store) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT b.id, b.title, c.quantity, b.price_cents, b.stock
FROM cart_lines c JOIN books b ON b.id = c.book_id
WHERE c.user_id = ?
ORDER BY c.added_at, b.id
`, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	defer rows.Close()

	cart := &domain.Cart{UserID: userID, Lines: []domain.CartLine{}}
	for rows.Next() {
		var l domain.CartLine
		var price int64
		if err := rows.Scan(&l.BookID, &l.Title, &l.Quantity, &price, &l.Stock); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		l.UnitPrice = domain.Money(price)
		cart.Lines = append(cart.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart: %w", err)
	}
	cart.Recompute()
	return cart, nil
}

// GetOrder returns an order owned by userID.
func (s *Store) GetOrder(ctx context.Context, userID string, orderID int64) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, status, total_cents, created_at, updated_at FROM orders WHERE id = ? AND user_id = ?`, orderID, userID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}
	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// LatestOrder returns the newest order of userID, optionally filtered by status.
func (s *Store) LatestOrder(ctx context.Context, userID string, statuses ...domain.OrderStatus) (*domain.Order, error) {
	q := `SELECT id, user_id, status, total_cents, created_at, updated_at FROM orders WHERE user_id = ?`
	args := []any{userID}
	if len(statuses) > 0 {
		marks := make([]string, len(statuses))
		for i, st := range statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		q += ` AND status IN (` + strings.Join(marks, ",") + `)`
	}
	q += ` ORDER BY id DESC LIMIT 1`

	order, err := scanOrder(s.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return nil, fmt.Errorf("latest order for %s: %w", userID, err)
	}
	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrder(row *sql.Row) (*domain.Order, error) {
	var o domain.Order
	var status, created, updated string
	var total int64
	if err := row.Scan(&o.ID, &o.UserID, &status, &total, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.Total = domain.Money(total)
	var err error
	if o.CreatedAt, err = parseTS(created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if o.UpdatedAt, err = parseTS(updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &o, nil
}

func (s *Store) loadItems(ctx context.Context, o *domain.Order) error {
	rows, err := s.db.QueryContext(ctx, `SELECT book_id, title, quantity, unit_price_cents FROM order_items WHERE order_id = ? ORDER BY rowid`, o.ID)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()
	o.Lines = []domain.OrderLine{}
	for rows.Next() {
		var l domain.OrderLine
		var price int64
		if err := rows.Scan(&l.BookID, &l.Title, &l.Quantity, &price); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		l.UnitPrice = domain.Money(price)
		o.Lines = append(o.Lines, l)
	}
	return rows.Err()
}

// Commit applies every mutation inside one transaction.
func (s *Store) Commit(ctx context.Context, userID string, mutations []domain.Mutation) (domain.Receipt, error) {
	receipt := domain.Receipt{CommittedAt: s.now()}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("begin commit tx: %w", err)
	}
	for _, m := range mutations {
		if err := s.apply(ctx, tx, m, &receipt); err != nil {
			tx.Rollback() //nolint:errcheck
			return domain.Receipt{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Receipt{}, fmt.Errorf("commit tx: %w", err)
	}
	return receipt, nil
}

func (s *Store) apply(ctx context.Context, tx *sql.Tx, m domain.Mutation, receipt *domain.Receipt) error {
	now := ts(receipt.CommittedAt)
	switch m := m.(type) {
	case domain.UpsertCartLine:
		var stock int
		err := tx.QueryRowContext(ctx, `SELECT stock FROM books WHERE id = ?`, m.BookID).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("book %d: %w", m.BookID, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read stock: %w", err)
		}
		if m.Quantity > stock {
			return fmt.Errorf("book %d has %d in stock, %d requested: %w", m.BookID, stock, m.Quantity, domain.ErrConflict)
		}
		if m.Quantity <= 0 {
			_, err = tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = ? AND book_id = ?`, m.UserID, m.BookID)
		} else {
			_, err = tx.ExecContext(ctx, `
INSERT INTO cart_lines(user_id, book_id, quantity, added_at) VALUES (?, ?, ?, ?)
ON CONFLICT(user_id, book_id) DO UPDATE SET quantity=excluded.quantity
`, m.UserID, m.BookID, m.Quantity, now)
		}
		if err != nil {
			return fmt.Errorf("upsert cart line: %w", err)
		}
		return nil

	case domain.RemoveCartLine:
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = ? AND book_id = ?`, m.UserID, m.BookID); err != nil {
			return fmt.Errorf("remove cart line: %w", err)
		}
		return nil

	case domain.CreateOrder:
		if len(m.Lines) == 0 {
			return fmt.Errorf("order without lines: %w", domain.ErrConflict)
		}
		for _, l := range m.Lines {
			res, err := tx.ExecContext(ctx, `UPDATE books SET stock = stock - ? WHERE id = ? AND stock >= ?`, l.Quantity, l.BookID, l.Quantity)
			if err != nil {
				return fmt.Errorf("reserve stock: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("book %d cannot cover %d copies: %w", l.BookID, l.Quantity, domain.ErrConflict)
			}
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO orders(user_id, status, total_cents, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			m.UserID, string(domain.OrderCreated), int64(m.Total), now, now)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		orderID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("order id: %w", err)
		}
		for _, l := range m.Lines {
			if _, err := tx.ExecContext(ctx, `INSERT INTO order_items(order_id, book_id, title, quantity, unit_price_cents) VALUES (?, ?, ?, ?, ?)`,
				orderID, l.BookID, l.Title, l.Quantity, int64(l.UnitPrice)); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = ?`, m.UserID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		receipt.OrderID = orderID
		return nil

	case domain.SetOrderStatus:
		res, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND user_id = ? AND status = ?`,
			string(m.To), now, m.OrderID, m.UserID, string(m.From))
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var current string
			err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ? AND user_id = ?`, m.OrderID, m.UserID).Scan(&current)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("order %d: %w", m.OrderID, domain.ErrNotFound)
			}
			return fmt.Errorf("order %d is %s, expected %s: %w", m.OrderID, current, m.From, domain.ErrConflict)
		}
		if m.Payment > 0 {
			if _, err := tx.ExecContext(ctx, `INSERT INTO payments(order_id, amount_cents, status, created_at) VALUES (?, ?, 'approved', ?)`,
				m.OrderID, int64(m.Payment), now); err != nil {
				return fmt.Errorf("record payment: %w", err)
			}
		}
		receipt.OrderID = m.OrderID
		return nil
	}
	return fmt.Errorf("unsupported mutation %T", m)
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
