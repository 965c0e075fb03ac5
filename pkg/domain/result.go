package domain

import "time"

// ResultKind tags an ActionResult.
type ResultKind string

const (
	ResultSuccess           ResultKind = "success"
	ResultFailure           ResultKind = "failure"
	ResultNeedsConfirmation ResultKind = "needs_confirmation"
)

// FailureCode classifies a Failure so responses can be templated.
type FailureCode string

const (
	FailNotFound      FailureCode = "not_found"
	FailAmbiguous     FailureCode = "ambiguous"
	FailOutOfStock    FailureCode = "out_of_stock"
	FailNotInCart     FailureCode = "not_in_cart"
	FailEmptyCart     FailureCode = "empty_cart"
	FailInvalidStatus FailureCode = "invalid_status"
	FailDeclined      FailureCode = "declined"
	FailContext       FailureCode = "context_unavailable"
	FailPersistence   FailureCode = "persistence"
	FailInternal      FailureCode = "internal"
)

// Payload is the data an action hands to the response builder.
type Payload struct {
	Query    string  `json:"query,omitempty"`
	Books    []Book  `json:"books,omitempty"`
	Book     *Book   `json:"book,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
	Cart     *Cart   `json:"cart,omitempty"`
	Order    *Order  `json:"order,omitempty"`
	Amount   Money   `json:"amount,omitempty"`
	Status   string  `json:"status,omitempty"`
	Orders   []Order `json:"orders,omitempty"`
}

// ActionResult is the tagged outcome of an action handler.
// Only a Success may carry Mutations and reach PERSIST.
type ActionResult struct {
	Kind    ResultKind  `json:"kind"`
	Intent  Intent      `json:"intent"`
	Payload Payload     `json:"payload"`
	Code    FailureCode `json:"code,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Prompt  string      `json:"prompt,omitempty"`

	// Resume is set for NeedsConfirmation and survives the end of the turn.
	Resume *PendingAction `json:"resume,omitempty"`

	Mutations []Mutation `json:"-"`
}

// Success builds a successful result.
func Success(intent Intent, payload Payload, mutations ...Mutation) ActionResult {
	return ActionResult{Kind: ResultSuccess, Intent: intent, Payload: payload, Mutations: mutations}
}

// Failure builds a failed result.
func Failure(intent Intent, code FailureCode, reason string) ActionResult {
	return ActionResult{Kind: ResultFailure, Intent: intent, Code: code, Reason: reason}
}

// NeedsConfirmation builds a result that pauses the action until the user confirms.
func NeedsConfirmation(intent Intent, prompt string, resume PendingAction, payload Payload) ActionResult {
	return ActionResult{
		Kind:    ResultNeedsConfirmation,
		Intent:  intent,
		Prompt:  prompt,
		Resume:  &resume,
		Payload: payload,
	}
}

// WithPayload attaches payload data to a failure (e.g. ambiguous matches).
func (r ActionResult) WithPayload(p Payload) ActionResult {
	r.Payload = p
	return r
}

func (r ActionResult) Succeeded() bool { return r.Kind == ResultSuccess }

// PendingAction is what a NeedsConfirmation turn leaves behind to resume later.
type PendingAction struct {
	Intent    Intent    `json:"intent"`
	Slots     Slots     `json:"slots"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

// Mutation is one durable change. Only the concrete types below implement it.
type Mutation interface {
	isMutation()
}

// UpsertCartLine sets the absolute quantity of a book in the user's cart.
type UpsertCartLine struct {
	UserID   string
	BookID   int64
	Quantity int
}

// RemoveCartLine drops a book from the user's cart.
type RemoveCartLine struct {
	UserID string
	BookID int64
}

// CreateOrder inserts an order with snapshotted lines, decrements stock and
// empties the user's cart.
type CreateOrder struct {
	UserID string
	Lines  []OrderLine
	Total  Money
}

// SetOrderStatus moves an order from one status to another. The commit fails
// with ErrConflict if the order is no longer in From. A non-zero Payment
// records a payment row.
type SetOrderStatus struct {
	UserID  string
	OrderID int64
	From    OrderStatus
	To      OrderStatus
	Payment Money
}

func (UpsertCartLine) isMutation() {}
func (RemoveCartLine) isMutation() {}
func (CreateOrder) isMutation()    {}
func (SetOrderStatus) isMutation() {}

// Receipt reports identifiers assigned during a commit.
type Receipt struct {
	OrderID     int64     `json:"order_id,omitempty"`
	CommittedAt time.Time `json:"committed_at"`
}
