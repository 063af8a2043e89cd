package laundry

import (
	"time"

	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
)

// transitions lists the legal targets for each non-terminal status.
var transitions = map[enums.LaundryOrderStatus][]enums.LaundryOrderStatus{
	enums.LaundryOrderStatusPending:   {enums.LaundryOrderStatusConfirmed, enums.LaundryOrderStatusCancelled},
	enums.LaundryOrderStatusConfirmed: {enums.LaundryOrderStatusPickedUp, enums.LaundryOrderStatusCancelled},
	enums.LaundryOrderStatusPickedUp:  {enums.LaundryOrderStatusReady, enums.LaundryOrderStatusCancelled},
	enums.LaundryOrderStatusReady:     {enums.LaundryOrderStatusDelivered, enums.LaundryOrderStatusCancelled},
}

// stampColumns maps a target status to the timestamp column it sets.
var stampColumns = map[enums.LaundryOrderStatus]string{
	enums.LaundryOrderStatusConfirmed: "confirmed_at",
	enums.LaundryOrderStatusPickedUp:  "picked_up_at",
	enums.LaundryOrderStatusReady:     "ready_at",
	enums.LaundryOrderStatusDelivered: "delivered_at",
	enums.LaundryOrderStatusCancelled: "cancelled_at",
}

// CanTransition returns INVALID_TRANSITION unless from -> to is an edge of
// the lifecycle graph.
func CanTransition(from, to enums.LaundryOrderStatus) error {
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
func NextStatuses(status enums.LaundryOrderStatus) []enums.LaundryOrderStatus {
	out := make([]enums.LaundryOrderStatus, len(transitions[status]))
	copy(out, transitions[status])
	return out
}

// transitionUpdates builds the column set written when entering to.
func transitionUpdates(to enums.LaundryOrderStatus, at time.Time) map[string]any {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if column, ok := stampColumns[to]; ok {
		updates[column] = at
	}
	return updates
}

// applyStamp mirrors transitionUpdates onto an in-memory order.
func applyStamp(order *models.LaundryOrder, to enums.LaundryOrderStatus, at time.Time) {
	order.Status = to
	order.UpdatedAt = at
	stamped := at
	switch to {
	case enums.LaundryOrderStatusConfirmed:
		order.ConfirmedAt = &stamped
	case enums.LaundryOrderStatusPickedUp:
		order.PickedUpAt = &stamped
	case enums.LaundryOrderStatusReady:
		order.ReadyAt = &stamped
	case enums.LaundryOrderStatusDelivered:
		order.DeliveredAt = &stamped
	case enums.LaundryOrderStatusCancelled:
		order.CancelledAt = &stamped
	}
}
