package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/ports"
)

// errNotCommittable guards PERSIST against anything but a Success.
var errNotCommittable = errors.New("only a successful result can be persisted")

// Committer applies an action's mutations through the store.
type Committer struct {
	store ports.Committer
}

// NewCommitter creates a Committer.
func NewCommitter(store ports.Committer) *Committer {
	return &Committer{store: store}
}

// Persist commits result's mutations in one transaction and folds the ids the
// store assigned back into the payload. The commit is detached from ctx's
// cancellation: once started it finishes even if the caller has gone away.
func (c *Committer) Persist(ctx context.Context, userID string, result *domain.ActionResult) (domain.Receipt, error) {
	if !result.Succeeded() {
		return domain.Receipt{}, fmt.Errorf("%w: got %s", errNotCommittable, result.Kind)
	}
	if len(result.Mutations) == 0 {
		return domain.Receipt{}, nil
	}

	receipt, err := c.store.Commit(context.WithoutCancel(ctx), userID, result.Mutations)
	if err != nil {
		return domain.Receipt{}, err
	}
	if receipt.OrderID != 0 && result.Payload.Order != nil {
		order := *result.Payload.Order
		order.ID = receipt.OrderID
		result.Payload.Order = &order
	}
	return receipt, nil
}
