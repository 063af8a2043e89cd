package orders

import (
	"time"

	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
)

// transitions lists the legal targets for each non-terminal status.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusInProgress, enums.OrderStatusCancelled},
	enums.OrderStatusInProgress: {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
}

var stampColumns = map[enums.OrderStatus]string{
	enums.OrderStatusConfirmed: "confirmed_at",
	enums.OrderStatusCompleted: "completed_at",
	enums.OrderStatusCancelled: "cancelled_at",
}

// CanTransition returns INVALID_TRANSITION unless from -> to is an edge of
// the product order lifecycle.
func CanTransition(from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order status "+string(to))
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move order from "+string(from)+" to "+string(to)).
		WithDetails(map[string]any{"from": string(from), "to": string(to)})
}

// NextStatuses returns the targets reachable from status.
func NextStatuses(status enums.OrderStatus) []enums.OrderStatus {
	out := make([]enums.OrderStatus, len(transitions[status]))
	copy(out, transitions[status])
	return out
}

func transitionUpdates(to enums.OrderStatus, at time.Time) map[string]any {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if column, ok := stampColumns[to]; ok {
		updates[column] = at
	}
	return updates
}

func applyStamp(order *models.Order, to enums.OrderStatus, at time.Time) {
	order.Status = to
	order.UpdatedAt = at
	stamped := at
	switch to {
	case enums.OrderStatusConfirmed:
		order.ConfirmedAt = &stamped
	case enums.OrderStatusCompleted:
		order.CompletedAt = &stamped
	case enums.OrderStatusCancelled:
		order.CancelledAt = &stamped
	}
}
