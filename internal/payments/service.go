package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/internal/laundry"
	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/logger"
	"github.com/communityhub/marketplace-backend/pkg/outbox"
	"github.com/communityhub/marketplace-backend/pkg/outbox/payloads"
	"github.com/communityhub/marketplace-backend/pkg/pagination"
	"github.com/communityhub/marketplace-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultMethod     = "mock_payment"
	transactionPrefix = "TX_"
	transactionLength = 8

	kindRecord = "record"
	kindRefund = "refund"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentObserver interface {
	ObservePayment(kind, status string)
}

type noopObserver struct{}

func (noopObserver) ObservePayment(string, string) {}

// RecordInput describes a payment against a laundry order.
type RecordInput struct {
	OrderID          uuid.UUID
	Method           string
	PaymentReference *string
	Amount           *decimal.Decimal
}

// RecordResult returns the settled payment and the order it paid.
type RecordResult struct {
	Payment *models.Payment
	Order   *models.LaundryOrder
}

// Service records and refunds payments.
type Service interface {
	Record(ctx context.Context, actor policy.Actor, input RecordInput) (*RecordResult, error)
	Refund(ctx context.Context, actor policy.Actor, paymentID uuid.UUID) (*RecordResult, error)
	Get(ctx context.Context, actor policy.Actor, paymentID uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, actor policy.Actor, params pagination.Params) (pagination.Page[models.Payment], error)
}

// ServiceParams groups the payment service dependencies.
type ServiceParams struct {
	Repo      Repository
	Orders    laundry.Repository
	Lifecycle *laundry.Lifecycle
	Tx        txRunner
	Outbox    outbox.Emitter
	Gateway   Gateway
	Metrics   paymentObserver
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      Repository
	orders    laundry.Repository
	lifecycle *laundry.Lifecycle
	tx        txRunner
	outbox    outbox.Emitter
	gateway   Gateway
	metrics   paymentObserver
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the payment service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("payments repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("laundry repository required")
	case params.Lifecycle == nil:
		return nil, fmt.Errorf("order lifecycle required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Gateway == nil {
		params.Gateway = SimulatedGateway{}
	}
	if params.Metrics == nil {
		params.Metrics = noopObserver{}
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:      params.Repo,
		orders:    params.Orders,
		lifecycle: params.Lifecycle,
		tx:        params.Tx,
		outbox:    params.Outbox,
		gateway:   params.Gateway,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       params.Now,
	}, nil
}

func (s *service) Record(ctx context.Context, actor policy.Actor, input RecordInput) (*RecordResult, error) {
	method := strings.TrimSpace(input.Method)
	if method == "" {
		method = defaultMethod
	}

	var result RecordResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		payments := s.repo.WithTx(tx)

		order, res, err := laundry.LoadOrder(ctx, orders, input.OrderID)
		if err != nil {
			return err
		}
		if err := policy.Authorize(actor, policy.PaymentRecord, res); err != nil {
			return err
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is already paid")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot pay a "+string(order.Status)+" order")
		}
		if order.PaymentStatus != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "order payment is "+string(order.PaymentStatus))
		}
		if input.Amount != nil && !input.Amount.Equal(order.TotalAmount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount does not match order total").
				WithDetails(map[string]any{"expected": order.TotalAmount.StringFixed(2)})
		}

		txID, err := security.PrefixedCode(transactionPrefix, transactionLength)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate transaction id")
		}
		payment := &models.Payment{
			ID:            uuid.New(),
			OrderID:       order.ID,
			UserID:        order.UserID,
			Amount:        order.TotalAmount,
			PaymentMethod: method,
			Status:        enums.PaymentStatusPending,
			TransactionID: txID,
		}
		if err := payments.Create(ctx, payment); err != nil {
			return err
		}

		status, err := s.gateway.Charge(ctx, payment)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "charge payment")
		}
		if status != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment was declined")
		}

		now := s.now().UTC()
		ok, err := payments.CompareAndSetStatus(ctx, payment.ID, enums.PaymentStatusPending, map[string]any{
			"status":     enums.PaymentStatusPaid,
			"paid_at":    now,
			"updated_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment was modified concurrently")
		}
		payment.Status = enums.PaymentStatusPaid
		payment.PaidAt = &now

		reference := paymentReference(input.PaymentReference, now, order.ID)
		if err := orders.CompareAndSetPayment(ctx, order.ID, enums.PaymentStatusPending, map[string]any{
			"payment_status":    enums.PaymentStatusPaid,
			"payment_method":    method,
			"payment_reference": reference,
			"updated_at":        now,
		}); err != nil {
			return err
		}
		order.PaymentStatus = enums.PaymentStatusPaid
		order.PaymentMethod = &method
		order.PaymentReference = &reference

		if order.Status == enums.LaundryOrderStatusPending {
			if err := s.lifecycle.Apply(ctx, tx, orders, actor, order, enums.LaundryOrderStatusConfirmed, nil); err != nil {
				return err
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.PaymentRecordedEvent{
				PaymentID:     payment.ID,
				OrderID:       order.ID,
				TransactionID: payment.TransactionID,
				Amount:        payment.Amount,
				Method:        method,
			},
		}); err != nil {
			return err
		}

		result = RecordResult{Payment: payment, Order: order}
		return nil
	})
	if err != nil {
		s.metrics.ObservePayment(kindRecord, "error")
		return nil, err
	}

	s.metrics.ObservePayment(kindRecord, string(enums.PaymentStatusPaid))
	s.logg.Info(s.logg.WithFields(s.logg.WithOrder(ctx, result.Order.ID), map[string]any{
		"payment_id":     result.Payment.ID.String(),
		"transaction_id": result.Payment.TransactionID,
	}), "payment recorded")
	return &result, nil
}

func (s *service) Refund(ctx context.Context, actor policy.Actor, paymentID uuid.UUID) (*RecordResult, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	var result RecordResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		payments := s.repo.WithTx(tx)

		payment, err := payments.Find(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := policy.Authorize(actor, policy.PaymentRefund, policy.Resource{OwnerUserID: payment.UserID}); err != nil {
			return err
		}
		if payment.Status != enums.PaymentStatusPaid {
			return notRefundable(payment.Status)
		}

		now := s.now().UTC()
		ok, err := payments.CompareAndSetStatus(ctx, payment.ID, enums.PaymentStatusPaid, map[string]any{
			"status":      enums.PaymentStatusRefunded,
			"refunded_at": now,
			"updated_at":  now,
		})
		if err != nil {
			return err
		}
		if !ok {
			// lost the race; report what the winner left behind
			current, err := payments.Find(ctx, payment.ID)
			if err != nil {
				return err
			}
			if current.Status != enums.PaymentStatusPaid {
				return notRefundable(current.Status)
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "payment was modified concurrently")
		}
		payment.Status = enums.PaymentStatusRefunded
		payment.RefundedAt = &now

		order, err := orders.FindOrder(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if err := orders.CompareAndSetPayment(ctx, order.ID, enums.PaymentStatusPaid, map[string]any{
			"payment_status": enums.PaymentStatusRefunded,
			"refund_pending": false,
			"updated_at":     now,
		}); err != nil {
			return err
		}
		order.PaymentStatus = enums.PaymentStatusRefunded
		order.RefundPending = false

		if !order.Status.IsTerminal() {
			if err := s.lifecycle.Apply(ctx, tx, orders, actor, order, enums.LaundryOrderStatusCancelled, nil); err != nil {
				return err
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.PaymentRefundedEvent{
				PaymentID:     payment.ID,
				OrderID:       order.ID,
				TransactionID: payment.TransactionID,
				Amount:        payment.Amount,
			},
		}); err != nil {
			return err
		}

		result = RecordResult{Payment: payment, Order: order}
		return nil
	})
	if err != nil {
		s.metrics.ObservePayment(kindRefund, "error")
		return nil, err
	}

	s.metrics.ObservePayment(kindRefund, string(enums.PaymentStatusRefunded))
	s.logg.Info(s.logg.WithField(s.logg.WithOrder(ctx, result.Order.ID), "payment_id", result.Payment.ID.String()), "payment refunded")
	return &result, nil
}

func (s *service) Get(ctx context.Context, actor policy.Actor, paymentID uuid.UUID) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := s.repo.Find(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.PaymentView, policy.Resource{OwnerUserID: payment.UserID}); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, params pagination.Params) (pagination.Page[models.Payment], error) {
	if actor.UserID == uuid.Nil {
		return pagination.Page[models.Payment]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.IsMaster() {
		return s.repo.List(ctx, nil, params)
	}
	userID := actor.UserID
	return s.repo.List(ctx, &userID, params)
}

func notRefundable(status enums.PaymentStatus) error {
	return pkgerrors.New(pkgerrors.CodePaymentNotRefundable, "only paid payments can be refunded").
		WithDetails(map[string]any{"status": string(status)})
}

func paymentReference(supplied *string, now time.Time, orderID uuid.UUID) string {
	if supplied != nil && strings.TrimSpace(*supplied) != "" {
		return strings.TrimSpace(*supplied)
	}
	return "PAY-LND-" + now.Format("20060102150405") + "-" + strings.ToUpper(orderID.String()[:8])
}

func actorRef(actor policy.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:      actor.UserID,
		Role:        string(actor.Role),
		CommunityID: actor.CommunityID,
	}
}
