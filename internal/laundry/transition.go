package laundry

import (
	"context"
	"fmt"
	"time"

	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/outbox"
	"github.com/communityhub/marketplace-backend/pkg/outbox/payloads"
	"gorm.io/gorm"
)

type transitionObserver interface {
	ObserveTransition(from, to, result string)
}

type noopObserver struct{}

func (noopObserver) ObserveTransition(string, string, string) {}

// Lifecycle applies status transitions inside a caller-owned transaction. It
// checks legality, writes through a status CAS, stamps the matching timestamp
// and emits outbox events. Authorization is the caller's job.
type Lifecycle struct {
	outbox   outbox.Emitter
	observer transitionObserver
	now      func() time.Time
}

// NewLifecycle builds a Lifecycle. observer may be nil.
func NewLifecycle(emitter outbox.Emitter, observer transitionObserver, now func() time.Time) (*Lifecycle, error) {
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if now == nil {
		now = time.Now
	}
	return &Lifecycle{outbox: emitter, observer: observer, now: now}, nil
}

// Apply moves order to target. extra columns are written in the same CAS
// update. On success order reflects the stored row.
func (l *Lifecycle) Apply(ctx context.Context, tx *gorm.DB, repo Repository, actor policy.Actor, order *models.LaundryOrder, target enums.LaundryOrderStatus, extra map[string]any) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for order transition")
	}
	from := order.Status
	if err := CanTransition(from, target); err != nil {
		l.observer.ObserveTransition(string(from), string(target), "invalid")
		return err
	}

	at := l.now().UTC()
	updates := transitionUpdates(target, at)
	for k, v := range extra {
		updates[k] = v
	}

	flagRefund := target == enums.LaundryOrderStatusCancelled && paidAfter(order, extra)
	if flagRefund {
		updates["refund_pending"] = true
	}

	if err := repo.WithTx(tx).CompareAndSetStatus(ctx, order.ID, from, updates); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			l.observer.ObserveTransition(string(from), string(target), "conflict")
		}
		return err
	}
	applyStamp(order, target, at)
	if flagRefund {
		order.RefundPending = true
	}

	ref := actorRef(actor)
	if err := l.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventLaundryOrderStatusChanged,
		AggregateType: enums.AggregateLaundryOrder,
		AggregateID:   order.ID,
		Actor:         ref,
		OccurredAt:    at,
		Data: payloads.LaundryOrderStatusChangedEvent{
			OrderID:  order.ID,
			VendorID: order.LaundryVendorID,
			From:     from,
			To:       target,
		},
	}); err != nil {
		return err
	}

	if flagRefund {
		if err := l.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLaundryOrderRefundNeeded,
			AggregateType: enums.AggregateLaundryOrder,
			AggregateID:   order.ID,
			Actor:         ref,
			OccurredAt:    at,
			Data: payloads.RefundRequiredEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				TotalAmount: order.TotalAmount,
			},
		}); err != nil {
			return err
		}
	}

	l.observer.ObserveTransition(string(from), string(target), "ok")
	return nil
}

// paidAfter reports whether the order is paid once extra has been applied.
func paidAfter(order *models.LaundryOrder, extra map[string]any) bool {
	if v, ok := extra["payment_status"]; ok {
		status, _ := v.(enums.PaymentStatus)
		return status == enums.PaymentStatusPaid
	}
	return order.PaymentStatus == enums.PaymentStatusPaid
}

func actorRef(actor policy.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:      actor.UserID,
		Role:        string(actor.Role),
		CommunityID: actor.CommunityID,
	}
}
