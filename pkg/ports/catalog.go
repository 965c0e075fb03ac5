package ports

import (
	"context"
	"time"

	"github.com/aretw0/bookflow/pkg/domain"
)

// Catalog is the read side of the bookstore used by the context loader.
type Catalog interface {
	// SearchBooks matches query words against title, author and genre. An
	// empty query matches every book. Results are in id order.
	SearchBooks(ctx context.Context, query string, limit int) ([]domain.Book, error)

	// FindBooks resolves a reference. An id yields at most one book; a title
	// yields the exact (case-insensitive) match if there is one, otherwise
	// every partial match.
	FindBooks(ctx context.Context, ref domain.BookRef) ([]domain.Book, error)

	// GetCart returns the user's active cart with current prices and stock.
	// A user without a cart gets an empty one.
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)

	// GetOrder returns an order owned by userID, or domain.ErrNotFound.
	GetOrder(ctx context.Context, userID string, orderID int64) (*domain.Order, error)

	// LatestOrder returns the user's most recent order, optionally filtered by
	// status, or domain.ErrNotFound.
	LatestOrder(ctx context.Context, userID string, statuses ...domain.OrderStatus) (*domain.Order, error)
}

// Committer applies the mutations of one action in a single transaction.
// Either every mutation is applied or none is.
type Committer interface {
	Commit(ctx context.Context, userID string, mutations []domain.Mutation) (domain.Receipt, error)
}

// Store is a full bookstore backend.
type Store interface {
	Catalog
	Committer
}

// Seeder loads catalog entries, keeping their ids.
type Seeder interface {
	Seed(ctx context.Context, books []domain.Book) error
}

// TurnRecord is the audit entry of one turn.
type TurnRecord struct {
	ID       string
	UserID   string
	Turn     uint64
	Intent   domain.Intent
	Outcome  string
	Trace    []domain.State
	Request  string
	Response string
	Duration time.Duration
	At       time.Time
}

// AuditLog stores TurnRecords. Failures never affect the reply.
type AuditLog interface {
	RecordTurn(ctx context.Context, rec TurnRecord) error
}
