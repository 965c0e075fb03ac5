package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/bookflow/pkg/domain"
)

// Handler executes one action against loaded context. Handlers never write;
// durable changes are returned as Mutations on a Success.
type Handler func(ctx context.Context, tc *TurnContext, req domain.Request) domain.ActionResult

// Typed adapts a handler for one concrete request type, so it can only read
// the fields that belong to its intent.
func Typed[R domain.Request](fn func(context.Context, *TurnContext, R) domain.ActionResult) Handler {
	return func(ctx context.Context, tc *TurnContext, req domain.Request) domain.ActionResult {
		r, ok := req.(R)
		if !ok {
			var zero R
			panic(fmt.Sprintf("handler for %s received %T", zero.Intent(), req))
		}
		return fn(ctx, tc, r)
	}
}

// Dispatcher maps an intent to its handler. It is read-only after construction.
type Dispatcher struct {
	handlers map[domain.Intent]Handler
}

// NewDispatcher creates a dispatcher with the given handlers.
func NewDispatcher(handlers map[domain.Intent]Handler) *Dispatcher {
	cp := make(map[domain.Intent]Handler, len(handlers))
	for k, v := range handlers {
		cp[k] = v
	}
	return &Dispatcher{handlers: cp}
}

// Dispatch runs the handler registered for req's intent.
func (d *Dispatcher) Dispatch(ctx context.Context, tc *TurnContext, req domain.Request) (domain.ActionResult, error) {
	h, ok := d.handlers[req.Intent()]
	if !ok {
		return domain.ActionResult{}, fmt.Errorf("%w: %s", domain.ErrUnknownIntent, req.Intent())
	}
	return h(ctx, tc, req), nil
}

// Intents lists the intents with a registered handler.
func (d *Dispatcher) Intents() []domain.Intent {
	out := make([]domain.Intent, 0, len(d.handlers))
	for _, i := range domain.Intents {
		if _, ok := d.handlers[i]; ok {
			out = append(out, i)
		}
	}
	return out
}
