package domain

import "strconv"

// Intent is the user's goal for a turn, as reported by the classifier.
type Intent string

const (
	IntentUnknown        Intent = "unknown"
	IntentSearch         Intent = "search"
	IntentAddToCart      Intent = "add_to_cart"
	IntentUpdateCart     Intent = "update_cart"
	IntentRemoveFromCart Intent = "remove_from_cart"
	IntentViewCart       Intent = "view_cart"
	IntentCheckout       Intent = "checkout"
	IntentPay            Intent = "pay"
	IntentCancelOrder    Intent = "cancel_order"
	IntentStatus         Intent = "status"
	IntentBookDetails    Intent = "book_details"
	IntentCheckStock     Intent = "check_stock"
	IntentRecommend      Intent = "recommend"
)

// Intents lists every actionable intent.
var Intents = []Intent{
	IntentSearch,
	IntentAddToCart,
	IntentUpdateCart,
	IntentRemoveFromCart,
	IntentViewCart,
	IntentCheckout,
	IntentPay,
	IntentCancelOrder,
	IntentStatus,
	IntentBookDetails,
	IntentCheckStock,
	IntentRecommend,
}

// Known reports whether i is an actionable intent.
func (i Intent) Known() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// Mutating reports whether a successful action for i changes durable state.
func (i Intent) Mutating() bool {
	switch i {
	case IntentAddToCart, IntentUpdateCart, IntentRemoveFromCart,
		IntentCheckout, IntentPay, IntentCancelOrder:
		return true
	}
	return false
}

// Field names a slot.
type Field string

const (
	// FieldIntent is reported as missing when nothing could be classified.
	FieldIntent        Field = "intent"
	FieldQuery         Field = "query"
	FieldBookReference Field = "book_reference"
	FieldQuantity      Field = "quantity"
	FieldOrderID       Field = "order_id"
	FieldConfirmation  Field = "confirmation"
)

// Schema lists the slots each intent accepts. Slots outside an intent's
// schema are dropped when accumulating for that intent.
var Schema = map[Intent][]Field{
	IntentSearch:         {FieldQuery},
	IntentAddToCart:      {FieldBookReference, FieldQuantity},
	IntentUpdateCart:     {FieldBookReference, FieldQuantity},
	IntentRemoveFromCart: {FieldBookReference},
	IntentViewCart:       {},
	IntentCheckout:       {},
	IntentPay:            {FieldOrderID, FieldConfirmation},
	IntentCancelOrder:    {FieldOrderID},
	IntentStatus:         {FieldOrderID},
	IntentBookDetails:    {FieldBookReference},
	IntentCheckStock:     {FieldBookReference},
	IntentRecommend:      {FieldQuery},
}

// Slots accumulates extracted values across the ASK_INPUT loop.
// Every field is optional; nil means "not supplied yet".
type Slots struct {
	Query         *string `json:"query,omitempty" mapstructure:"query"`
	BookReference *string `json:"book_reference,omitempty" mapstructure:"book_reference"`
	BookID        *int64  `json:"book_id,omitempty" mapstructure:"book_id"`
	Quantity      *int    `json:"quantity,omitempty" mapstructure:"quantity"`
	OrderID       *int64  `json:"order_id,omitempty" mapstructure:"order_id"`
	Confirmation  *bool   `json:"confirmation,omitempty" mapstructure:"confirmation"`
}

// Has reports whether the field has been supplied.
func (s Slots) Has(f Field) bool {
	switch f {
	case FieldQuery:
		return s.Query != nil && *s.Query != ""
	case FieldBookReference:
		return s.BookID != nil || (s.BookReference != nil && *s.BookReference != "")
	case FieldQuantity:
		return s.Quantity != nil
	case FieldOrderID:
		return s.OrderID != nil
	case FieldConfirmation:
		return s.Confirmation != nil
	}
	return false
}

// Empty reports whether no field is set.
func (s Slots) Empty() bool {
	return s == Slots{}
}

// Merge returns s overlaid with every field set in other.
func (s Slots) Merge(other Slots) Slots {
	if other.Query != nil {
		s.Query = other.Query
	}
	if other.BookReference != nil || other.BookID != nil {
		s.BookReference = other.BookReference
		s.BookID = other.BookID
	}
	if other.Quantity != nil {
		s.Quantity = other.Quantity
	}
	if other.OrderID != nil {
		s.OrderID = other.OrderID
	}
	if other.Confirmation != nil {
		s.Confirmation = other.Confirmation
	}
	return s
}

// Restrict keeps only the fields in intent's schema.
func (s Slots) Restrict(intent Intent) Slots {
	var out Slots
	for _, f := range Schema[intent] {
		switch f {
		case FieldQuery:
			out.Query = s.Query
		case FieldBookReference:
			out.BookReference = s.BookReference
			out.BookID = s.BookID
		case FieldQuantity:
			out.Quantity = s.Quantity
		case FieldOrderID:
			out.OrderID = s.OrderID
		case FieldConfirmation:
			out.Confirmation = s.Confirmation
		}
	}
	return out
}

// Relevant reports whether s carries any field in intent's schema.
func (s Slots) Relevant(intent Intent) bool {
	return !s.Restrict(intent).Empty()
}

// BookRef identifies a book either by catalog id or by free text.
type BookRef struct {
	ID    int64  `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

func (r BookRef) String() string {
	if r.ID != 0 {
		return "#" + strconv.FormatInt(r.ID, 10)
	}
	return r.Title
}

// Request is the typed, validated input of one action. Only the concrete
// types below implement it.
type Request interface {
	Intent() Intent
	isRequest()
}

type SearchRequest struct {
	Query string `json:"query"`
}

type AddToCartRequest struct {
	Book     BookRef `json:"book"`
	Quantity int     `json:"quantity"`
}

type UpdateCartRequest struct {
	Book     BookRef `json:"book"`
	Quantity int     `json:"quantity"`
}

type RemoveFromCartRequest struct {
	Book BookRef `json:"book"`
}

type ViewCartRequest struct{}

type CheckoutRequest struct{}

// PayRequest carries the confirmation flag; nil means the user has not answered yet.
type PayRequest struct {
	OrderID   int64 `json:"order_id"`
	Confirmed *bool `json:"confirmed,omitempty"`
}

type CancelOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

// StatusRequest with a zero OrderID asks for the user's latest order.
type StatusRequest struct {
	OrderID int64 `json:"order_id,omitempty"`
}

// BookDetailsRequest asks for one book's card: author, genre, synopsis,
// price and stock.
type BookDetailsRequest struct {
	Book BookRef `json:"book"`
}

type CheckStockRequest struct {
	Book BookRef `json:"book"`
}

// RecommendRequest with an empty Genre picks from the whole catalog.
type RecommendRequest struct {
	Genre string `json:"genre,omitempty"`
}

func (SearchRequest) Intent() Intent         { return IntentSearch }
func (AddToCartRequest) Intent() Intent      { return IntentAddToCart }
func (UpdateCartRequest) Intent() Intent     { return IntentUpdateCart }
func (RemoveFromCartRequest) Intent() Intent { return IntentRemoveFromCart }
func (ViewCartRequest) Intent() Intent       { return IntentViewCart }
func (CheckoutRequest) Intent() Intent       { return IntentCheckout }
func (PayRequest) Intent() Intent            { return IntentPay }
func (CancelOrderRequest) Intent() Intent    { return IntentCancelOrder }
func (StatusRequest) Intent() Intent         { return IntentStatus }
func (BookDetailsRequest) Intent() Intent    { return IntentBookDetails }
func (CheckStockRequest) Intent() Intent     { return IntentCheckStock }
func (RecommendRequest) Intent() Intent      { return IntentRecommend }

func (SearchRequest) isRequest()         {}
func (AddToCartRequest) isRequest()      {}
func (UpdateCartRequest) isRequest()     {}
func (RemoveFromCartRequest) isRequest() {}
func (ViewCartRequest) isRequest()       {}
func (CheckoutRequest) isRequest()       {}
func (PayRequest) isRequest()            {}
func (CancelOrderRequest) isRequest()    {}
func (StatusRequest) isRequest()         {}
func (BookDetailsRequest) isRequest()    {}
func (CheckStockRequest) isRequest()     {}
func (RecommendRequest) isRequest()      {}
