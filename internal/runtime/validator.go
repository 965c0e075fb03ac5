package runtime

import (
	"fmt"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Required lists the slots an intent cannot run without. Fields outside this
// table (e.g. pay's confirmation) are checked by the handler itself.
var Required = map[domain.Intent][]domain.Field{
	domain.IntentSearch:         {domain.FieldQuery},
	domain.IntentAddToCart:      {domain.FieldBookReference, domain.FieldQuantity},
	domain.IntentUpdateCart:     {domain.FieldBookReference, domain.FieldQuantity},
	domain.IntentRemoveFromCart: {domain.FieldBookReference},
	domain.IntentViewCart:       {},
	domain.IntentCheckout:       {},
	domain.IntentPay:            {domain.FieldOrderID},
	domain.IntentCancelOrder:    {domain.FieldOrderID},
	domain.IntentStatus:         {},
	domain.IntentBookDetails:    {domain.FieldBookReference},
	domain.IntentCheckStock:     {domain.FieldBookReference},
	domain.IntentRecommend:      {},
}

// Validator turns accumulated slots into a typed request, or reports what is
// still missing.
type Validator struct {
	defaultQuantity int
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithDefaultQuantity fills a missing add_to_cart quantity instead of asking
// for it. Zero (the default) asks.
func WithDefaultQuantity(n int) ValidatorOption {
	return func(v *Validator) {
		v.defaultQuantity = n
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// DecodeSlots converts the classifier's loose slot map into domain.Slots.
// Unknown keys are ignored; "2" decodes into a quantity of 2.
func DecodeSlots(raw map[string]any) (domain.Slots, error) {
	var out domain.Slots
	if len(raw) == 0 {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(raw); err != nil {
		return domain.Slots{}, fmt.Errorf("failed to decode slots: %w", err)
	}
	return out, nil
}

// Missing returns the required fields slots does not satisfy, in schema order.
// An unknown intent is missing FieldIntent.
func (v *Validator) Missing(intent domain.Intent, slots domain.Slots) []domain.Field {
	if !intent.Known() {
		return []domain.Field{domain.FieldIntent}
	}
	slots = v.defaults(intent, slots)

	var missing []domain.Field
	for _, f := range Required[intent] {
		if !slots.Has(f) {
			missing = append(missing, f)
			continue
		}
		if f == domain.FieldQuantity && *slots.Quantity < 1 {
			missing = append(missing, f)
		}
	}
	return missing
}

// Validate builds the typed request for intent. When fields are missing the
// request is nil.
func (v *Validator) Validate(intent domain.Intent, slots domain.Slots) (domain.Request, []domain.Field) {
	if missing := v.Missing(intent, slots); len(missing) > 0 {
		return nil, missing
	}
	slots = v.defaults(intent, slots)

	switch intent {
	case domain.IntentSearch:
		return domain.SearchRequest{Query: *slots.Query}, nil
	case domain.IntentAddToCart:
		return domain.AddToCartRequest{Book: bookRef(slots), Quantity: *slots.Quantity}, nil
	case domain.IntentUpdateCart:
		return domain.UpdateCartRequest{Book: bookRef(slots), Quantity: *slots.Quantity}, nil
	case domain.IntentRemoveFromCart:
		return domain.RemoveFromCartRequest{Book: bookRef(slots)}, nil
	case domain.IntentViewCart:
		return domain.ViewCartRequest{}, nil
	case domain.IntentCheckout:
		return domain.CheckoutRequest{}, nil
	case domain.IntentPay:
		return domain.PayRequest{OrderID: *slots.OrderID, Confirmed: slots.Confirmation}, nil
	case domain.IntentCancelOrder:
		return domain.CancelOrderRequest{OrderID: *slots.OrderID}, nil
	case domain.IntentStatus:
		var id int64
		if slots.OrderID != nil {
			id = *slots.OrderID
		}
		return domain.StatusRequest{OrderID: id}, nil
	case domain.IntentBookDetails:
		return domain.BookDetailsRequest{Book: bookRef(slots)}, nil
	case domain.IntentCheckStock:
		return domain.CheckStockRequest{Book: bookRef(slots)}, nil
	case domain.IntentRecommend:
		var genre string
		if slots.Query != nil {
			genre = *slots.Query
		}
		return domain.RecommendRequest{Genre: genre}, nil
	}
	return nil, []domain.Field{domain.FieldIntent}
}

func (v *Validator) defaults(intent domain.Intent, slots domain.Slots) domain.Slots {
	if intent == domain.IntentAddToCart && slots.Quantity == nil && v.defaultQuantity > 0 {
		q := v.defaultQuantity
		slots.Quantity = &q
	}
	return slots
}

func bookRef(s domain.Slots) domain.BookRef {
	var ref domain.BookRef
	if s.BookID != nil {
		ref.ID = *s.BookID
	}
	if s.BookReference != nil {
		ref.Title = *s.BookReference
	}
	return ref
}
