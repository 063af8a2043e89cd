package orders

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

// Lifecycle moves product orders between statuses inside a caller-owned
// transaction: legality check, status CAS, history row, outbox event.
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

// Apply moves order to target and records who did it. On success order
// reflects the stored row.
func (l *Lifecycle) Apply(ctx context.Context, tx *gorm.DB, repo Repository, actor policy.Actor, order *models.Order, target enums.OrderStatus, notes *string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for order transition")
	}
	from := order.Status
	if err := CanTransition(from, target); err != nil {
		l.observer.ObserveTransition(string(from), string(target), "invalid")
		return err
	}

	at := l.now().UTC()
	repo = repo.WithTx(tx)
	if err := repo.CompareAndSetStatus(ctx, order.ID, from, transitionUpdates(target, at)); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			l.observer.ObserveTransition(string(from), string(target), "conflict")
		}
		return err
	}
	if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   target,
		ChangedBy:  actor.UserID,
		Notes:      notes,
		CreatedAt:  at,
	}); err != nil {
		return err
	}
	applyStamp(order, target, at)

	if err := l.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		OccurredAt:    at,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:  order.ID,
			VendorID: order.VendorID,
			From:     from,
			To:       target,
			Notes:    notes,
		},
	}); err != nil {
		return err
	}

	l.observer.ObserveTransition(string(from), string(target), "ok")
	return nil
}

func actorRef(actor policy.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:      actor.UserID,
		Role:        string(actor.Role),
		CommunityID: actor.CommunityID,
	}
}
