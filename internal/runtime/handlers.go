package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/bookflow/pkg/domain"
)

// DefaultHandlers returns the bookstore actions.
func DefaultHandlers() map[domain.Intent]Handler {
	return map[domain.Intent]Handler{
		domain.IntentSearch:         Typed(handleSearch),
		domain.IntentAddToCart:      Typed(handleAddToCart),
		domain.IntentUpdateCart:     Typed(handleUpdateCart),
		domain.IntentRemoveFromCart: Typed(handleRemoveFromCart),
		domain.IntentViewCart:       Typed(handleViewCart),
		domain.IntentCheckout:       Typed(handleCheckout),
		domain.IntentPay:            Typed(handlePay),
		domain.IntentCancelOrder:    Typed(handleCancelOrder),
		domain.IntentStatus:         Typed(handleStatus),
		domain.IntentBookDetails:    Typed(handleBookDetails),
		domain.IntentCheckStock:     Typed(handleCheckStock),
		domain.IntentRecommend:      Typed(handleRecommend),
	}
}

func handleSearch(_ context.Context, tc *TurnContext, r domain.SearchRequest) domain.ActionResult {
	return domain.Success(domain.IntentSearch, domain.Payload{Query: r.Query, Books: tc.Books})
}

func handleBookDetails(_ context.Context, tc *TurnContext, r domain.BookDetailsRequest) domain.ActionResult {
	book, fail := resolve(domain.IntentBookDetails, tc, r.Book, false)
	if fail != nil {
		return *fail
	}
	return domain.Success(domain.IntentBookDetails, domain.Payload{Book: &book})
}

func handleCheckStock(_ context.Context, tc *TurnContext, r domain.CheckStockRequest) domain.ActionResult {
	book, fail := resolve(domain.IntentCheckStock, tc, r.Book, false)
	if fail != nil {
		return *fail
	}
	return domain.Success(domain.IntentCheckStock, domain.Payload{Book: &book, Quantity: book.Stock})
}

func handleRecommend(_ context.Context, tc *TurnContext, r domain.RecommendRequest) domain.ActionResult {
	return domain.Success(domain.IntentRecommend, domain.Payload{Query: r.Genre, Books: tc.Books})
}

// resolve picks the single book a reference points to. When several titles
// match, lines already in the cart win.
func resolve(intent domain.Intent, tc *TurnContext, ref domain.BookRef, preferCart bool) (domain.Book, *domain.ActionResult) {
	matches := tc.Matches
	if len(matches) > 1 && preferCart && tc.Cart != nil {
		var inCart []domain.Book
		for _, b := range matches {
			if _, ok := tc.Cart.Line(b.ID); ok {
				inCart = append(inCart, b)
			}
		}
		if len(inCart) > 0 {
			matches = inCart
		}
	}
	switch len(matches) {
	case 0:
		res := domain.Failure(intent, domain.FailNotFound, fmt.Sprintf("no book matches %q", ref))
		res.Payload.Query = ref.String()
		return domain.Book{}, &res
	case 1:
		return matches[0], nil
	}
	res := domain.Failure(intent, domain.FailAmbiguous, fmt.Sprintf("%d books match %q", len(matches), ref)).
		WithPayload(domain.Payload{Query: ref.String(), Books: matches})
	return domain.Book{}, &res
}

func cartOf(tc *TurnContext) *domain.Cart {
	if tc.Cart == nil {
		return &domain.Cart{UserID: tc.UserID}
	}
	return tc.Cart.Clone()
}

func setQuantity(intent domain.Intent, tc *TurnContext, book domain.Book, qty int) domain.ActionResult {
	if qty > book.Stock {
		return domain.Failure(intent, domain.FailOutOfStock,
			fmt.Sprintf("requested %d of %q, %d in stock", qty, book.Title, book.Stock)).
			WithPayload(domain.Payload{Book: &book, Quantity: qty})
	}
	cart := cartOf(tc)
	cart.Set(book, qty)
	return domain.Success(intent,
		domain.Payload{Book: &book, Quantity: qty, Cart: cart},
		domain.UpsertCartLine{UserID: tc.UserID, BookID: book.ID, Quantity: qty},
	)
}

func handleAddToCart(_ context.Context, tc *TurnContext, r domain.AddToCartRequest) domain.ActionResult {
	book, fail := resolve(domain.IntentAddToCart, tc, r.Book, false)
	if fail != nil {
		return *fail
	}
	qty := r.Quantity
	if tc.Cart != nil {
		if line, ok := tc.Cart.Line(book.ID); ok {
			qty += line.Quantity
		}
	}
	return setQuantity(domain.IntentAddToCart, tc, book, qty)
}

func handleUpdateCart(_ context.Context, tc *TurnContext, r domain.UpdateCartRequest) domain.ActionResult {
	book, fail := resolve(domain.IntentUpdateCart, tc, r.Book, true)
	if fail != nil {
		return *fail
	}
	if _, ok := cartOf(tc).Line(book.ID); !ok {
		return domain.Failure(domain.IntentUpdateCart, domain.FailNotInCart,
			fmt.Sprintf("%q is not in the cart", book.Title)).
			WithPayload(domain.Payload{Book: &book})
	}
	return setQuantity(domain.IntentUpdateCart, tc, book, r.Quantity)
}

func handleRemoveFromCart(_ context.Context, tc *TurnContext, r domain.RemoveFromCartRequest) domain.ActionResult {
	book, fail := resolve(domain.IntentRemoveFromCart, tc, r.Book, true)
	if fail != nil {
		return *fail
	}
	if _, ok := cartOf(tc).Line(book.ID); !ok {
		return domain.Failure(domain.IntentRemoveFromCart, domain.FailNotInCart,
			fmt.Sprintf("%q is not in the cart", book.Title)).
			WithPayload(domain.Payload{Book: &book})
	}
	cart := cartOf(tc)
	cart.Set(book, 0)
	return domain.Success(domain.IntentRemoveFromCart,
		domain.Payload{Book: &book, Cart: cart},
		domain.RemoveCartLine{UserID: tc.UserID, BookID: book.ID},
	)
}

func handleViewCart(_ context.Context, tc *TurnContext, _ domain.ViewCartRequest) domain.ActionResult {
	return domain.Success(domain.IntentViewCart, domain.Payload{Cart: cartOf(tc)})
}

func handleCheckout(_ context.Context, tc *TurnContext, _ domain.CheckoutRequest) domain.ActionResult {
	if tc.Cart.Empty() {
		return domain.Failure(domain.IntentCheckout, domain.FailEmptyCart, "cart is empty")
	}
	for _, l := range tc.Cart.Lines {
		if l.Quantity > l.Stock {
			return domain.Failure(domain.IntentCheckout, domain.FailOutOfStock,
				fmt.Sprintf("only %d of %q left", l.Stock, l.Title)).
				WithPayload(domain.Payload{Cart: cartOf(tc), Quantity: l.Quantity})
		}
	}

	lines, total := domain.Snapshot(tc.Cart)
	draft := &domain.Order{
		UserID:    tc.UserID,
		Status:    domain.OrderCreated,
		Lines:     lines,
		Total:     total,
		CreatedAt: tc.Now,
		UpdatedAt: tc.Now,
	}
	return domain.Success(domain.IntentCheckout,
		domain.Payload{Order: draft, Amount: total},
		domain.CreateOrder{UserID: tc.UserID, Lines: lines, Total: total},
	)
}

// ConfirmPrompt is the question a pay turn asks before charging.
func ConfirmPrompt(o *domain.Order) string {
	return fmt.Sprintf("Vas a pagar %s por el pedido #%d. ¿Confirmas? Responde \"Sí, confirmo\" o \"No\".", o.Total, o.ID)
}

func handlePay(_ context.Context, tc *TurnContext, r domain.PayRequest) domain.ActionResult {
	if tc.Order == nil {
		return domain.Failure(domain.IntentPay, domain.FailNotFound, fmt.Sprintf("order %d not found", r.OrderID))
	}
	order := *tc.Order
	if order.Status != domain.OrderCreated {
		return domain.Failure(domain.IntentPay, domain.FailInvalidStatus,
			fmt.Sprintf("order %d is %s", order.ID, order.Status)).
			WithPayload(domain.Payload{Order: &order, Status: string(order.Status)})
	}

	switch {
	case r.Confirmed == nil:
		prompt := ConfirmPrompt(&order)
		id := order.ID
		return domain.NeedsConfirmation(domain.IntentPay, prompt,
			domain.PendingAction{
				Intent:    domain.IntentPay,
				Slots:     domain.Slots{OrderID: &id},
				Prompt:    prompt,
				CreatedAt: tc.Now,
			},
			domain.Payload{Order: &order, Amount: order.Total},
		)
	case !*r.Confirmed:
		return domain.Failure(domain.IntentPay, domain.FailDeclined, "payment declined by user").
			WithPayload(domain.Payload{Order: &order})
	}

	paid := order
	paid.Status = domain.OrderPaid
	paid.UpdatedAt = tc.Now
	return domain.Success(domain.IntentPay,
		domain.Payload{Order: &paid, Amount: order.Total, Status: string(domain.OrderPaid)},
		domain.SetOrderStatus{
			UserID:  tc.UserID,
			OrderID: order.ID,
			From:    domain.OrderCreated,
			To:      domain.OrderPaid,
			Payment: order.Total,
		},
	)
}

func handleCancelOrder(_ context.Context, tc *TurnContext, r domain.CancelOrderRequest) domain.ActionResult {
	if tc.Order == nil {
		return domain.Failure(domain.IntentCancelOrder, domain.FailNotFound, fmt.Sprintf("order %d not found", r.OrderID))
	}
	order := *tc.Order
	if order.Status != domain.OrderCreated {
		return domain.Failure(domain.IntentCancelOrder, domain.FailInvalidStatus,
			fmt.Sprintf("order %d is already %s", order.ID, order.Status)).
			WithPayload(domain.Payload{Order: &order, Status: string(order.Status)})
	}

	cancelled := order
	cancelled.Status = domain.OrderCancelled
	cancelled.UpdatedAt = tc.Now
	return domain.Success(domain.IntentCancelOrder,
		domain.Payload{Order: &cancelled, Status: string(domain.OrderCancelled)},
		domain.SetOrderStatus{
			UserID:  tc.UserID,
			OrderID: order.ID,
			From:    domain.OrderCreated,
			To:      domain.OrderCancelled,
		},
	)
}

func handleStatus(_ context.Context, tc *TurnContext, r domain.StatusRequest) domain.ActionResult {
	p := domain.Payload{}
	if tc.Order != nil {
		order := *tc.Order
		p.Order = &order
		p.Status = string(order.Status)
	} else if r.OrderID != 0 {
		p.Query = fmt.Sprintf("#%d", r.OrderID)
	}
	return domain.Success(domain.IntentStatus, p)
}
