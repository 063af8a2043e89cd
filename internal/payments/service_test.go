package payments

import (
	"context"
	"testing"
	"time"

	"github.com/communityhub/marketplace-backend/internal/laundry"
	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/pkg/db"
	"github.com/communityhub/marketplace-backend/pkg/db/dbtest"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/outbox"
	"github.com/communityhub/marketplace-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingMetrics struct {
	calls []string
}

func (r *recordingMetrics) ObservePayment(kind, status string) {
	r.calls = append(r.calls, kind+":"+status)
}

type harness struct {
	client   *db.Client
	fixture  dbtest.Fixture
	svc      Service
	orders   laundry.Repository
	metrics  *recordingMetrics
	customer policy.Actor
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := dbtest.NewClient(t)
	h := &harness{
		client:  client,
		fixture: dbtest.SeedLaundry(t, client.DB()),
		orders:  laundry.NewRepository(client),
		metrics: &recordingMetrics{},
		now:     time.Date(2026, 6, 2, 10, 15, 0, 0, time.UTC),
	}
	h.customer = policy.Actor{UserID: h.fixture.Customer.ID, Role: enums.UserRoleUser}

	clock := func() time.Time { return h.now }
	emitter := outbox.NewService(outbox.NewRepository(), nil)
	lifecycle, err := laundry.NewLifecycle(emitter, nil, clock)
	require.NoError(t, err)
	h.svc, err = NewService(ServiceParams{
		Repo:      NewRepository(client),
		Orders:    h.orders,
		Lifecycle: lifecycle,
		Tx:        client,
		Outbox:    emitter,
		Metrics:   h.metrics,
		Now:       clock,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) order(t *testing.T, status enums.LaundryOrderStatus) models.LaundryOrder {
	t.Helper()
	return dbtest.SeedOrder(t, h.client.DB(), h.fixture, h.now.Add(-time.Hour), status, "212.40")
}

func (h *harness) eventTypes(t *testing.T) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, h.client.DB().Order("created_at ASC").Find(&rows).Error)
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EventType)
	}
	return out
}

func TestRecordPaysAndConfirmsPendingOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.order(t, enums.LaundryOrderStatusPending)

	res, err := h.svc.Record(ctx, h.customer, RecordInput{OrderID: order.ID, Method: "upi"})
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusPaid, res.Payment.Status)
	assert.Regexp(t, `^TX_[0-9A-F]{8}$`, res.Payment.TransactionID)
	assert.True(t, res.Payment.Amount.Equal(decimal.RequireFromString("212.40")))

	stored, err := h.orders.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LaundryOrderStatusConfirmed, stored.Status)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	require.NotNil(t, stored.ConfirmedAt)
	require.NotNil(t, stored.PaymentReference)
	assert.Equal(t, "PAY-LND-20260602101500-"+stringsUpper(order.ID.String()[:8]), *stored.PaymentReference)

	assert.Equal(t, []enums.OutboxEventType{enums.EventLaundryOrderStatusChanged, enums.EventPaymentRecorded}, h.eventTypes(t))
	assert.Equal(t, []string{"record:paid"}, h.metrics.calls)
}

func TestRecordRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	paid := h.order(t, enums.LaundryOrderStatusPending)
	_, err := h.svc.Record(ctx, h.customer, RecordInput{OrderID: paid.ID})
	require.NoError(t, err)
	_, err = h.svc.Record(ctx, h.customer, RecordInput{OrderID: paid.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "double pay: %v", err)

	delivered := h.order(t, enums.LaundryOrderStatusDelivered)
	_, err = h.svc.Record(ctx, h.customer, RecordInput{OrderID: delivered.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "terminal: %v", err)

	open := h.order(t, enums.LaundryOrderStatusPending)
	stranger := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleUser}
	_, err = h.svc.Record(ctx, stranger, RecordInput{OrderID: open.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied), "stranger: %v", err)

	wrong := decimal.RequireFromString("10.00")
	_, err = h.svc.Record(ctx, h.customer, RecordInput{OrderID: open.ID, Amount: &wrong})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "amount: %v", err)

	_, err = h.svc.Record(ctx, h.customer, RecordInput{OrderID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "missing: %v", err)

	var count int64
	require.NoError(t, h.client.DB().Model(&models.Payment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "rejected payments must not leave rows")
}

func TestRecordOnConfirmedOrderKeepsStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.order(t, enums.LaundryOrderStatusPickedUp)

	_, err := h.svc.Record(ctx, h.customer, RecordInput{OrderID: order.ID})
	require.NoError(t, err)

	stored, err := h.orders.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LaundryOrderStatusPickedUp, stored.Status)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	require.NotNil(t, stored.PaymentMethod)
	assert.Equal(t, defaultMethod, *stored.PaymentMethod)
}

func TestRefundCancelsOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.order(t, enums.LaundryOrderStatusPending)

	paid, err := h.svc.Record(ctx, h.customer, RecordInput{OrderID: order.ID})
	require.NoError(t, err)

	refunded, err := h.svc.Refund(ctx, h.customer, paid.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusRefunded, refunded.Payment.Status)
	assert.NotNil(t, refunded.Payment.RefundedAt)

	stored, err := h.orders.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LaundryOrderStatusCancelled, stored.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, stored.PaymentStatus)
	assert.False(t, stored.RefundPending)
	assert.NotNil(t, stored.CancelledAt)
	assert.NotNil(t, stored.ConfirmedAt, "earlier stamps survive cancellation")
	assert.Nil(t, stored.DeliveredAt)

	_, err = h.svc.Refund(ctx, h.customer, paid.Payment.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentNotRefundable), "second refund: %v", err)

	types := h.eventTypes(t)
	assert.Equal(t, enums.EventPaymentRefunded, types[len(types)-1])
	assert.NotContains(t, types, enums.EventLaundryOrderRefundNeeded)
}

func TestRefundOfFlaggedCancelledOrderClearsFlag(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.order(t, enums.LaundryOrderStatusPending)

	paid, err := h.svc.Record(ctx, h.customer, RecordInput{OrderID: order.ID})
	require.NoError(t, err)

	clock := func() time.Time { return h.now }
	emitter := outbox.NewService(outbox.NewRepository(), nil)
	lifecycle, err := laundry.NewLifecycle(emitter, nil, clock)
	require.NoError(t, err)
	orderSvc, err := laundry.NewService(laundry.ServiceParams{
		Repo:      h.orders,
		Tx:        h.client,
		Outbox:    emitter,
		Engine:    mustEngine(t),
		Lifecycle: lifecycle,
		Now:       clock,
	})
	require.NoError(t, err)

	cancelled, err := orderSvc.Transition(ctx, h.customer, order.ID, enums.LaundryOrderStatusCancelled)
	require.NoError(t, err)
	require.True(t, cancelled.RefundPending)

	_, err = h.svc.Refund(ctx, h.customer, paid.Payment.ID)
	require.NoError(t, err)

	stored, err := h.orders.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, stored.RefundPending)
	assert.Equal(t, enums.PaymentStatusRefunded, stored.PaymentStatus)
	assert.Equal(t, enums.LaundryOrderStatusCancelled, stored.Status)
}

func TestRefundRejectsNonPaidPayments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.order(t, enums.LaundryOrderStatusPending)

	for _, status := range []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusRefunded, enums.PaymentStatusFailed} {
		payment := models.Payment{
			OrderID:       order.ID,
			UserID:        h.fixture.Customer.ID,
			Amount:        decimal.RequireFromString("212.40"),
			PaymentMethod: "upi",
			Status:        status,
			TransactionID: "TX_" + stringsUpper(uuid.NewString()[:8]),
		}
		require.NoError(t, h.client.DB().Create(&payment).Error)

		_, err := h.svc.Refund(ctx, h.customer, payment.ID)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentNotRefundable), "%s: %v", status, err)
		assert.Equal(t, map[string]any{"status": string(status)}, pkgerrors.As(err).Details())
	}

	stored, err := h.orders.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LaundryOrderStatusPending, stored.Status)
}

func TestRefundRequiresOwnerOrMaster(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.order(t, enums.LaundryOrderStatusPending)
	paid, err := h.svc.Record(ctx, h.customer, RecordInput{OrderID: order.ID})
	require.NoError(t, err)

	vendor := policy.Actor{UserID: h.fixture.VendorAccount.ID, Role: enums.UserRoleVendor}
	_, err = h.svc.Refund(ctx, vendor, paid.Payment.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied))

	master := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleMaster}
	_, err = h.svc.Refund(ctx, master, paid.Payment.ID)
	assert.NoError(t, err)
}

func TestGetAndList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.order(t, enums.LaundryOrderStatusPending)
	second := h.order(t, enums.LaundryOrderStatusPending)

	p1, err := h.svc.Record(ctx, h.customer, RecordInput{OrderID: first.ID})
	require.NoError(t, err)
	_, err = h.svc.Record(ctx, h.customer, RecordInput{OrderID: second.ID})
	require.NoError(t, err)

	got, err := h.svc.Get(ctx, h.customer, p1.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, p1.Payment.TransactionID, got.TransactionID)

	stranger := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleUser}
	_, err = h.svc.Get(ctx, stranger, p1.Payment.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied))

	mine, err := h.svc.List(ctx, h.customer, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, mine.Items, 2)

	theirs, err := h.svc.List(ctx, stranger, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, theirs.Items)

	all, err := h.svc.List(ctx, policy.Actor{UserID: uuid.New(), Role: enums.UserRoleMaster}, pagination.Params{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, all.Items, 1)
	assert.NotEmpty(t, all.NextCursor)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}

type decliningGateway struct{}

func (decliningGateway) Charge(context.Context, *models.Payment) (enums.PaymentStatus, error) {
	return enums.PaymentStatusFailed, nil
}

func TestRecordDeclinedRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.order(t, enums.LaundryOrderStatusPending)

	clock := func() time.Time { return h.now }
	emitter := outbox.NewService(outbox.NewRepository(), nil)
	lifecycle, err := laundry.NewLifecycle(emitter, nil, clock)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(h.client),
		Orders:    h.orders,
		Lifecycle: lifecycle,
		Tx:        h.client,
		Outbox:    emitter,
		Gateway:   decliningGateway{},
		Now:       clock,
	})
	require.NoError(t, err)

	_, err = svc.Record(ctx, h.customer, RecordInput{OrderID: order.ID, Method: "card"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	var count int64
	require.NoError(t, h.client.DB().Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)

	stored, err := h.orders.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LaundryOrderStatusPending, stored.Status)
	assert.Equal(t, enums.PaymentStatusPending, stored.PaymentStatus)
	assert.Empty(t, h.eventTypes(t))
}

// racingRepository lets a competing refund land between Find and the
// compare-and-set, so the service's own update matches no row.
type racingRepository struct {
	Repository
}

func (r racingRepository) WithTx(tx *gorm.DB) Repository {
	return racingRepository{Repository: r.Repository.WithTx(tx)}
}

func (r racingRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected enums.PaymentStatus, updates map[string]any) (bool, error) {
	if _, err := r.Repository.CompareAndSetStatus(ctx, id, expected, updates); err != nil {
		return false, err
	}
	return false, nil
}

func TestRefundLosingRaceReportsWinnerStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.order(t, enums.LaundryOrderStatusPending)
	paid, err := h.svc.Record(ctx, h.customer, RecordInput{OrderID: order.ID})
	require.NoError(t, err)

	clock := func() time.Time { return h.now }
	emitter := outbox.NewService(outbox.NewRepository(), nil)
	lifecycle, err := laundry.NewLifecycle(emitter, nil, clock)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:      racingRepository{Repository: NewRepository(h.client)},
		Orders:    h.orders,
		Lifecycle: lifecycle,
		Tx:        h.client,
		Outbox:    emitter,
		Now:       clock,
	})
	require.NoError(t, err)

	_, err = svc.Refund(ctx, h.customer, paid.Payment.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentNotRefundable), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(enums.PaymentStatusRefunded), details["status"])
}
