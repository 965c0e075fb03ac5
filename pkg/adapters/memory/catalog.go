package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/ports"
)

type cartItem struct {
	bookID   int64
	quantity int
}

type catalogState struct {
	books     map[int64]domain.Book
	carts     map[string][]cartItem
	orders    map[int64]domain.Order
	payments  map[int64]domain.Money
	nextOrder int64
}

func (st *catalogState) clone() *catalogState {
	out := &catalogState{
		books:     make(map[int64]domain.Book, len(st.books)),
		carts:     make(map[string][]cartItem, len(st.carts)),
		orders:    make(map[int64]domain.Order, len(st.orders)),
		payments:  make(map[int64]domain.Money, len(st.payments)),
		nextOrder: st.nextOrder,
	}
	for k, v := range st.books {
		out.books[k] = v
	}
	for k, v := range st.carts {
		out.carts[k] = append([]cartItem(nil), v...)
	}
	for k, v := range st.orders {
		v.Lines = append([]domain.OrderLine(nil), v.Lines...)
		out.orders[k] = v
	}
	for k, v := range st.payments {
		out.payments[k] = v
	}
	return out
}

// Catalog is an in-memory bookstore implementing ports.Store, ports.Seeder
// and ports.AuditLog. Commits apply to a copy that replaces the live state
// only when every mutation succeeds.
type Catalog struct {
	mu      sync.RWMutex
	state   *catalogState
	records []ports.TurnRecord
	now     func() time.Time
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		state: &catalogState{
			books:     make(map[int64]domain.Book),
			carts:     make(map[string][]cartItem),
			orders:    make(map[int64]domain.Order),
			payments:  make(map[int64]domain.Money),
			nextOrder: 1,
		},
		now: time.Now,
	}
}

// Seed inserts or replaces books.
func (c *Catalog) Seed(ctx context.Context, books []domain.Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range books {
		if b.ID == 0 {
			return fmt.Errorf("seed book %q: id is required", b.Title)
		}
		c.state.books[b.ID] = b
	}
	return nil
}

func (c *Catalog) sortedBooks() []domain.Book {
	out := make([]domain.Book, 0, len(c.state.books))
	for _, b := range c.state.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SearchBooks returns books whose title, author or genre contain every query word.
func (c *Catalog) SearchBooks(ctx context.Context, query string, limit int) ([]domain.Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	words := strings.Fields(strings.ToLower(query))
	var out []domain.Book
	for _, b := range c.sortedBooks() {
		haystack := strings.ToLower(b.Title + " " + b.Author + " " + b.Genre)
		match := true
		for _, w := range words {
			if !strings.Contains(haystack, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, b)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// FindBooks resolves a book reference.
func (c *Catalog) FindBooks(ctx context.Context, ref domain.BookRef) ([]domain.Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if ref.ID != 0 {
		if b, ok := c.state.books[ref.ID]; ok {
			return []domain.Book{b}, nil
		}
		return nil, nil
	}

	title := strings.ToLower(strings.TrimSpace(ref.Title))
	if title == "" {
		return nil, nil
	}
	var exact, partial []domain.Book
	for _, b := range c.sortedBooks() {
		t := strings.ToLower(b.Title)
		switch {
		case t == title:
			exact = append(exact, b)
		case strings.Contains(t, title):
			partial = append(partial, b)
		}
	}
	if len(exact) > 0 {
		return exact, nil
	}
	return partial, nil
}

// GetCart returns the user's cart with current prices.
func (c *Catalog) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.cart(userID), nil
}

func (st *catalogState) cart(userID string) *domain.Cart {
	cart := &domain.Cart{UserID: userID, Lines: []domain.CartLine{}}
	for _, item := range st.carts[userID] {
		b := st.books[item.bookID]
		cart.Lines = append(cart.Lines, domain.CartLine{
			BookID:    b.ID,
			Title:     b.Title,
			Quantity:  item.quantity,
			UnitPrice: b.Price,
			Stock:     b.Stock,
		})
	}
	cart.Recompute()
	return cart
}

// GetOrder returns an order owned by userID.
func (c *Catalog) GetOrder(ctx context.Context, userID string, orderID int64) (*domain.Order, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	o, ok := c.state.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	}
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &o, nil
}

// LatestOrder returns the user's newest order matching statuses.
func (c *Catalog) LatestOrder(ctx context.Context, userID string, statuses ...domain.OrderStatus) (*domain.Order, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var latest *domain.Order
	for _, o := range c.state.orders {
		if o.UserID != userID || !statusIn(o.Status, statuses) {
			continue
		}
		if latest == nil || o.ID > latest.ID {
			o := o
			latest = &o
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("latest order for %s: %w", userID, domain.ErrNotFound)
	}
	latest.Lines = append([]domain.OrderLine(nil), latest.Lines...)
	return latest, nil
}

func statusIn(s domain.OrderStatus, statuses []domain.OrderStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

// Commit applies mutations all-or-nothing.
func (c *Catalog) Commit(ctx context.Context, userID string, mutations []domain.Mutation) (domain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, err
	}

	next := c.state.clone()
	receipt := domain.Receipt{CommittedAt: c.now()}
	for _, m := range mutations {
		if err := next.apply(m, &receipt); err != nil {
			return domain.Receipt{}, err
		}
	}
	c.state = next
	return receipt, nil
}

func (st *catalogState) apply(m domain.Mutation, receipt *domain.Receipt) error {
	switch m := m.(type) {
	case domain.UpsertCartLine:
		b, ok := st.books[m.BookID]
		if !ok {
			return fmt.Errorf("book %d: %w", m.BookID, domain.ErrNotFound)
		}
		if m.Quantity > b.Stock {
			return fmt.Errorf("book %d has %d in stock, %d requested: %w", b.ID, b.Stock, m.Quantity, domain.ErrConflict)
		}
		items := st.carts[m.UserID]
		for i, it := range items {
			if it.bookID == m.BookID {
				if m.Quantity <= 0 {
					st.carts[m.UserID] = append(items[:i], items[i+1:]...)
				} else {
					items[i].quantity = m.Quantity
				}
				return nil
			}
		}
		if m.Quantity > 0 {
			st.carts[m.UserID] = append(items, cartItem{bookID: m.BookID, quantity: m.Quantity})
		}
		return nil

	case domain.RemoveCartLine:
		items := st.carts[m.UserID]
		for i, it := range items {
			if it.bookID == m.BookID {
				st.carts[m.UserID] = append(items[:i], items[i+1:]...)
				break
			}
		}
		return nil

	case domain.CreateOrder:
		if len(m.Lines) == 0 {
			return fmt.Errorf("order without lines: %w", domain.ErrConflict)
		}
		for _, l := range m.Lines {
			b, ok := st.books[l.BookID]
			if !ok {
				return fmt.Errorf("book %d: %w", l.BookID, domain.ErrNotFound)
			}
			if b.Stock < l.Quantity {
				return fmt.Errorf("book %d has %d in stock, %d ordered: %w", b.ID, b.Stock, l.Quantity, domain.ErrConflict)
			}
			b.Stock -= l.Quantity
			st.books[b.ID] = b
		}
		now := receipt.CommittedAt
		id := st.nextOrder
		st.nextOrder++
		st.orders[id] = domain.Order{
			ID:        id,
			UserID:    m.UserID,
			Status:    domain.OrderCreated,
			Lines:     append([]domain.OrderLine(nil), m.Lines...),
			Total:     m.Total,
			CreatedAt: now,
			UpdatedAt: now,
		}
		delete(st.carts, m.UserID)
		receipt.OrderID = id
		return nil

	case domain.SetOrderStatus:
		o, ok := st.orders[m.OrderID]
		if !ok || o.UserID != m.UserID {
			return fmt.Errorf("order %d: %w", m.OrderID, domain.ErrNotFound)
		}
		if o.Status != m.From {
			return fmt.Errorf("order %d is %s, expected %s: %w", o.ID, o.Status, m.From, domain.ErrConflict)
		}
		o.Status = m.To
		o.UpdatedAt = receipt.CommittedAt
		st.orders[o.ID] = o
		if m.Payment > 0 {
			st.payments[o.ID] = m.Payment
		}
		receipt.OrderID = o.ID
		return nil
	}
	return fmt.Errorf("unsupported mutation %T", m)
}

// RecordTurn keeps the audit record in memory.
func (c *Catalog) RecordTurn(ctx context.Context, rec ports.TurnRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return nil
}

// Records returns the audit records kept so far.
func (c *Catalog) Records() []ports.TurnRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ports.TurnRecord(nil), c.records...)
}
