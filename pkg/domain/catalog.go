package domain

import (
	"fmt"
	"time"
)

// Money is an amount in cents.
type Money int64

// String formats m as dollars, e.g. "$12.50".
func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s$%d.%02d", sign, m/100, m%100)
}

// Times multiplies a unit price by a quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// Book is a catalog entry.
type Book struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Genre       string `json:"genre,omitempty"`
	Description string `json:"description,omitempty"`
	Price       Money  `json:"price"`
	Stock       int    `json:"stock"`
	CoverURL    string `json:"cover_url,omitempty"`
}

// CartLine is one book in the active cart. UnitPrice is the current catalog price.
type CartLine struct {
	BookID    int64  `json:"book_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unit_price"`
	Stock     int    `json:"stock"`
}

// Subtotal is Quantity × UnitPrice.
func (l CartLine) Subtotal() Money {
	return l.UnitPrice.Times(l.Quantity)
}

// Cart is the user's active cart.
type Cart struct {
	UserID string     `json:"user_id"`
	Lines  []CartLine `json:"lines"`
	Total  Money      `json:"total"`
}

// Recompute sets Total to the sum of line subtotals. Every cart mutation ends with it.
func (c *Cart) Recompute() {
	var total Money
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	c.Total = total
}

// Line returns the line for bookID, if present.
func (c *Cart) Line(bookID int64) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.BookID == bookID {
			return l, true
		}
	}
	return CartLine{}, false
}

// Set replaces the quantity of bookID, appending a new line when absent.
// A quantity of zero or less removes the line.
func (c *Cart) Set(book Book, qty int) {
	for i, l := range c.Lines {
		if l.BookID != book.ID {
			continue
		}
		if qty <= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		} else {
			c.Lines[i].Quantity = qty
			c.Lines[i].UnitPrice = book.Price
		}
		c.Recompute()
		return
	}
	if qty > 0 {
		c.Lines = append(c.Lines, CartLine{
			BookID:    book.ID,
			Title:     book.Title,
			Quantity:  qty,
			UnitPrice: book.Price,
			Stock:     book.Stock,
		})
	}
	c.Recompute()
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return c == nil || len(c.Lines) == 0
}

// Clone returns a deep copy of c.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Lines = append([]CartLine(nil), c.Lines...)
	return &out
}

// OrderStatus is the lifecycle of an order.
type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderLine is an order item with the price snapshotted at checkout.
type OrderLine struct {
	BookID    int64  `json:"book_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unit_price"`
}

// Order is a checked-out cart.
type Order struct {
	ID        int64       `json:"id"`
	UserID    string      `json:"user_id"`
	Status    OrderStatus `json:"status"`
	Lines     []OrderLine `json:"lines"`
	Total     Money       `json:"total"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Snapshot copies cart lines into order lines, freezing prices.
func Snapshot(c *Cart) ([]OrderLine, Money) {
	lines := make([]OrderLine, 0, len(c.Lines))
	var total Money
	for _, l := range c.Lines {
		lines = append(lines, OrderLine{
			BookID:    l.BookID,
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
		total += l.Subtotal()
	}
	return lines, total
}
