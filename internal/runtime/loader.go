package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/ports"
)

// DefaultSearchLimit bounds the matches returned by a search.
const DefaultSearchLimit = 5

// TurnContext is the read-only data an action runs against.
type TurnContext struct {
	UserID string
	Now    time.Time

	// Books holds search results.
	Books []domain.Book
	// Matches holds the candidates for the request's book reference.
	Matches []domain.Book
	Cart    *domain.Cart
	// Order is nil when the referenced order does not exist or is not the user's.
	Order *domain.Order
}

// Loader fetches the context an action needs. A nil error means every read
// the action depends on succeeded; a missing order or book is not an error.
type Loader struct {
	catalog     ports.Catalog
	searchLimit int
}

// NewLoader creates a Loader over catalog.
func NewLoader(catalog ports.Catalog, searchLimit int) *Loader {
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &Loader{catalog: catalog, searchLimit: searchLimit}
}

// Load reads what req needs.
func (l *Loader) Load(ctx context.Context, userID string, now time.Time, req domain.Request) (*TurnContext, error) {
	tc := &TurnContext{UserID: userID, Now: now}
	var err error

	switch r := req.(type) {
	case domain.SearchRequest:
		tc.Books, err = l.catalog.SearchBooks(ctx, r.Query, l.searchLimit)
	case domain.AddToCartRequest:
		err = l.loadBookAndCart(ctx, tc, r.Book)
	case domain.UpdateCartRequest:
		err = l.loadBookAndCart(ctx, tc, r.Book)
	case domain.RemoveFromCartRequest:
		err = l.loadBookAndCart(ctx, tc, r.Book)
	case domain.ViewCartRequest, domain.CheckoutRequest:
		tc.Cart, err = l.catalog.GetCart(ctx, userID)
	case domain.PayRequest:
		err = l.loadOrder(ctx, tc, r.OrderID)
	case domain.CancelOrderRequest:
		err = l.loadOrder(ctx, tc, r.OrderID)
	case domain.StatusRequest:
		err = l.loadOrder(ctx, tc, r.OrderID)
	case domain.BookDetailsRequest:
		tc.Matches, err = l.findBooks(ctx, r.Book)
	case domain.CheckStockRequest:
		tc.Matches, err = l.findBooks(ctx, r.Book)
	case domain.RecommendRequest:
		tc.Books, err = l.recommend(ctx, r.Genre)
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrUnknownIntent, req)
	}
	if err != nil {
		return nil, err
	}
	return tc, nil
}

// Resolves reports whether ref matches at least one catalog book.
func (l *Loader) Resolves(ctx context.Context, ref domain.BookRef) (bool, error) {
	matches, err := l.findBooks(ctx, ref)
	return len(matches) > 0, err
}

func (l *Loader) findBooks(ctx context.Context, ref domain.BookRef) ([]domain.Book, error) {
	matches, err := l.catalog.FindBooks(ctx, ref)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve book %q: %w", ref, err)
	}
	return matches, nil
}

// recommend picks up to searchLimit books that can be bought today, in
// catalog order, narrowed to genre when one is given.
func (l *Loader) recommend(ctx context.Context, genre string) ([]domain.Book, error) {
	books, err := l.catalog.SearchBooks(ctx, genre, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	picks := make([]domain.Book, 0, l.searchLimit)
	for _, b := range books {
		if b.Stock < 1 {
			continue
		}
		picks = append(picks, b)
		if len(picks) == l.searchLimit {
			break
		}
	}
	return picks, nil
}

func (l *Loader) loadBookAndCart(ctx context.Context, tc *TurnContext, ref domain.BookRef) error {
	matches, err := l.findBooks(ctx, ref)
	if err != nil {
		return err
	}
	tc.Matches = matches

	tc.Cart, err = l.catalog.GetCart(ctx, tc.UserID)
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	return nil
}

// loadOrder reads orderID, or the user's latest order when orderID is zero.
func (l *Loader) loadOrder(ctx context.Context, tc *TurnContext, orderID int64) error {
	var (
		order *domain.Order
		err   error
	)
	if orderID == 0 {
		order, err = l.catalog.LatestOrder(ctx, tc.UserID)
	} else {
		order, err = l.catalog.GetOrder(ctx, tc.UserID, orderID)
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	tc.Order = order
	return nil
}
