package laundry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/internal/pricing"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/outbox"
	"github.com/communityhub/marketplace-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) types() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type stubObserver struct {
	results []string
}

func (s *stubObserver) ObserveTransition(from, to, result string) {
	s.results = append(s.results, from+">"+to+":"+result)
}

type stubRepo struct {
	profile   *VendorProfile
	items     map[uuid.UUID]models.LaundryItem
	orders    map[uuid.UUID]*models.LaundryOrder
	created   []*models.LaundryOrder
	listCalls []OrderFilter
	owned     []uuid.UUID
	createErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		items:  map[uuid.UUID]models.LaundryItem{},
		orders: map[uuid.UUID]*models.LaundryOrder{},
	}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindVendorProfile(ctx context.Context, id uuid.UUID) (*VendorProfile, error) {
	if s.profile == nil || s.profile.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "laundry vendor not found")
	}
	cp := *s.profile
	return &cp, nil
}

func (s *stubRepo) FindVendorProfileIDsByAccount(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	return s.owned, nil
}

func (s *stubRepo) FindItems(ctx context.Context, ids []uuid.UUID) ([]models.LaundryItem, error) {
	out := []models.LaundryItem{}
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubRepo) CreateOrder(ctx context.Context, order *models.LaundryOrder) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, order)
	cp := *order
	s.orders[order.ID] = &cp
	return nil
}

func (s *stubRepo) FindOrder(ctx context.Context, id uuid.UUID) (*models.LaundryOrder, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "laundry order not found")
	}
	cp := *order
	return &cp, nil
}

func (s *stubRepo) ListOrders(ctx context.Context, filter OrderFilter, params pagination.Params) (pagination.Page[models.LaundryOrder], error) {
	s.listCalls = append(s.listCalls, filter)
	return pagination.Page[models.LaundryOrder]{}, nil
}

func (s *stubRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected enums.LaundryOrderStatus, updates map[string]any) error {
	order, ok := s.orders[id]
	if !ok || order.Status != expected {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
	}
	order.Status = updates["status"].(enums.LaundryOrderStatus)
	if v, ok := updates["refund_pending"].(bool); ok {
		order.RefundPending = v
	}
	if v, ok := updates["cancelled_at"].(time.Time); ok {
		order.CancelledAt = &v
	}
	if v, ok := updates["confirmed_at"].(time.Time); ok {
		order.ConfirmedAt = &v
	}
	return nil
}

func (s *stubRepo) UpdateDetails(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	order, ok := s.orders[id]
	if !ok || order.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
	}
	if v, ok := updates["delivery_address"].(string); ok {
		order.DeliveryAddress = v
	}
	return nil
}

func (s *stubRepo) CompareAndSetPayment(ctx context.Context, id uuid.UUID, expected enums.PaymentStatus, updates map[string]any) error {
	order, ok := s.orders[id]
	if !ok || order.PaymentStatus != expected {
		return pkgerrors.New(pkgerrors.CodeConflict, "order payment was modified concurrently")
	}
	if v, ok := updates["payment_status"].(enums.PaymentStatus); ok {
		order.PaymentStatus = v
	}
	return nil
}

type fixture struct {
	repo     *stubRepo
	outbox   *stubOutbox
	observer *stubObserver
	svc      Service
	vendor   policy.Actor
	owner    policy.Actor
	itemA    uuid.UUID
	itemB    uuid.UUID
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newStubRepo(),
		outbox:   &stubOutbox{},
		observer: &stubObserver{},
		vendor:   policy.Actor{UserID: uuid.New(), Role: enums.UserRoleVendor},
		owner:    policy.Actor{UserID: uuid.New(), Role: enums.UserRoleUser},
		now:      time.Date(2026, 4, 15, 8, 30, 0, 0, time.UTC),
	}
	account := f.vendor.UserID
	f.repo.profile = &VendorProfile{
		ID:                 uuid.New(),
		VendorID:           uuid.New(),
		CommunityID:        uuid.New(),
		AccountID:          &account,
		BusinessName:       "Fresh Fold",
		ProfileActive:      true,
		VendorActive:       true,
		MinimumOrderAmount: decimal.RequireFromString("100.00"),
		PickupCharge:       decimal.RequireFromString("20.00"),
		DeliveryCharge:     decimal.RequireFromString("30.00"),
	}
	f.itemA, f.itemB = uuid.New(), uuid.New()
	f.repo.items[f.itemA] = models.LaundryItem{ID: f.itemA, LaundryVendorID: f.repo.profile.ID, Name: "Shirt", Category: "wash", PricePerPiece: decimal.RequireFromString("50.00"), IsAvailable: true}
	f.repo.items[f.itemB] = models.LaundryItem{ID: f.itemB, LaundryVendorID: f.repo.profile.ID, Name: "Trousers", Category: "iron", PricePerPiece: decimal.RequireFromString("30.00"), IsAvailable: true}

	engine, err := pricing.NewEngine(decimal.RequireFromString("0.18"))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	clock := func() time.Time { return f.now }
	lifecycle, err := NewLifecycle(f.outbox, f.observer, clock)
	if err != nil {
		t.Fatalf("lifecycle: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Repo:      f.repo,
		Tx:        stubTxRunner{},
		Outbox:    f.outbox,
		Engine:    engine,
		Lifecycle: lifecycle,
		Now:       clock,
	})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) createInput() CreateOrderInput {
	return CreateOrderInput{
		LaundryVendorID: f.repo.profile.ID,
		Items: []OrderItemInput{
			{LaundryItemID: f.itemA, Quantity: 2},
			{LaundryItemID: f.itemB, Quantity: 1},
		},
		PickupAddress:  "Tower B, 1204",
		PickupDate:     f.now.Add(24 * time.Hour),
		PickupTimeSlot: "09:00-11:00",
	}
}

func (f *fixture) placeOrder(t *testing.T) *models.LaundryOrder {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), f.owner, f.createInput())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestCreateOrderPricesAndEmits(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t)

	if !order.Subtotal.Equal(decimal.RequireFromString("130.00")) ||
		!order.TaxAmount.Equal(decimal.RequireFromString("32.40")) ||
		!order.TotalAmount.Equal(decimal.RequireFromString("212.40")) {
		t.Fatalf("unexpected totals %s %s %s", order.Subtotal, order.TaxAmount, order.TotalAmount)
	}
	if order.Status != enums.LaundryOrderStatusPending || order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("unexpected initial state %s/%s", order.Status, order.PaymentStatus)
	}
	if order.DeliveryAddress != order.PickupAddress {
		t.Fatalf("delivery address should default to pickup address")
	}
	if len(order.OrderNumber) != len("LND-20260415-ABCDEF") || order.OrderNumber[:13] != "LND-20260415-" {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}
	if len(order.Items) != 2 || order.Items[0].ItemName != "Shirt" || !order.Items[0].TotalPrice.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("unexpected item snapshot %+v", order.Items)
	}
	if got := f.outbox.types(); len(got) != 1 || got[0] != enums.EventLaundryOrderCreated {
		t.Fatalf("expected created event, got %v", got)
	}
}

func TestCreateOrderRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(f *fixture, in *CreateOrderInput) policy.Actor
		code   pkgerrors.Code
	}{
		{
			name: "vendor cannot order",
			mutate: func(f *fixture, in *CreateOrderInput) policy.Actor {
				return f.vendor
			},
			code: pkgerrors.CodePermissionDenied,
		},
		{
			name: "below minimum",
			mutate: func(f *fixture, in *CreateOrderInput) policy.Actor {
				in.Items = []OrderItemInput{{LaundryItemID: f.itemB, Quantity: 1}}
				return f.owner
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "zero quantity",
			mutate: func(f *fixture, in *CreateOrderInput) policy.Actor {
				in.Items[0].Quantity = 0
				return f.owner
			},
			code: pkgerrors.CodeInvalidQuantity,
		},
		{
			name: "unknown item",
			mutate: func(f *fixture, in *CreateOrderInput) policy.Actor {
				in.Items[1].LaundryItemID = uuid.New()
				return f.owner
			},
			code: pkgerrors.CodeNotFound,
		},
		{
			name: "inactive vendor",
			mutate: func(f *fixture, in *CreateOrderInput) policy.Actor {
				f.repo.profile.ProfileActive = false
				return f.owner
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "unknown vendor",
			mutate: func(f *fixture, in *CreateOrderInput) policy.Actor {
				in.LaundryVendorID = uuid.New()
				return f.owner
			},
			code: pkgerrors.CodeNotFound,
		},
		{
			name: "missing pickup address",
			mutate: func(f *fixture, in *CreateOrderInput) policy.Actor {
				in.PickupAddress = "  "
				return f.owner
			},
			code: pkgerrors.CodeValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			in := f.createInput()
			actor := tc.mutate(f, &in)
			_, err := f.svc.CreateOrder(context.Background(), actor, in)
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if len(f.repo.created) != 0 || len(f.outbox.events) != 0 {
				t.Fatal("rejected order must not be stored")
			}
		})
	}
}

func TestOwnerCancelThenConfirmFails(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t)

	cancelled, err := f.svc.Transition(context.Background(), f.owner, order.ID, enums.LaundryOrderStatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.LaundryOrderStatusCancelled || cancelled.CancelledAt == nil || !cancelled.CancelledAt.Equal(f.now) {
		t.Fatalf("unexpected cancelled order %+v", cancelled)
	}
	if cancelled.RefundPending {
		t.Fatal("unpaid order must not be flagged for refund")
	}

	_, err = f.svc.Transition(context.Background(), f.vendor, order.ID, enums.LaundryOrderStatusConfirmed)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestNonOwnerCancelIsDeniedAndLeavesStatus(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t)
	stranger := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleUser}

	_, err := f.svc.Transition(context.Background(), stranger, order.ID, enums.LaundryOrderStatusCancelled)
	if !pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if f.repo.orders[order.ID].Status != enums.LaundryOrderStatusPending {
		t.Fatal("status must be unchanged")
	}

	_, err = f.svc.Transition(context.Background(), f.vendor, order.ID, enums.LaundryOrderStatusCancelled)
	if !pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied) {
		t.Fatalf("vendor cancel expected permission denied, got %v", err)
	}
}

func TestVendorAdvancesToDelivered(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t)
	ctx := context.Background()

	for _, next := range []enums.LaundryOrderStatus{
		enums.LaundryOrderStatusConfirmed,
		enums.LaundryOrderStatusPickedUp,
		enums.LaundryOrderStatusReady,
		enums.LaundryOrderStatusDelivered,
	} {
		if _, err := f.svc.Transition(ctx, f.vendor, order.ID, next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}
	if _, err := f.svc.Transition(ctx, f.vendor, order.ID, enums.LaundryOrderStatusReady); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition from delivered, got %v", err)
	}
	if _, err := f.svc.Transition(ctx, f.owner, order.ID, enums.LaundryOrderStatusConfirmed); !pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied) {
		t.Fatalf("owner cannot advance, got %v", err)
	}
	if got := f.observer.results[len(f.observer.results)-1]; got != "delivered>ready:invalid" {
		t.Fatalf("unexpected last observation %q", got)
	}
}

func TestCancelPaidOrderFlagsRefund(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t)
	f.repo.orders[order.ID].PaymentStatus = enums.PaymentStatusPaid
	f.repo.orders[order.ID].Status = enums.LaundryOrderStatusConfirmed

	cancelled, err := f.svc.Transition(context.Background(), f.owner, order.ID, enums.LaundryOrderStatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !cancelled.RefundPending || !f.repo.orders[order.ID].RefundPending {
		t.Fatal("paid cancellation must be flagged for refund")
	}
	if cancelled.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatal("cancellation must not change payment status")
	}
	got := f.outbox.types()
	if got[len(got)-1] != enums.EventLaundryOrderRefundNeeded || got[len(got)-2] != enums.EventLaundryOrderStatusChanged {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestStaleTransitionReportsConflict(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t)
	lifecycle, _ := NewLifecycle(f.outbox, f.observer, func() time.Time { return f.now })

	stale, _ := f.repo.FindOrder(context.Background(), order.ID)
	if _, err := f.svc.Transition(context.Background(), f.owner, order.ID, enums.LaundryOrderStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	err := lifecycle.Apply(context.Background(), &gorm.DB{}, f.repo, f.vendor, stale, enums.LaundryOrderStatusConfirmed, nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for stale read, got %v", err)
	}
	if f.repo.orders[order.ID].Status != enums.LaundryOrderStatusCancelled {
		t.Fatal("losing writer must not change the stored status")
	}
}

func TestUpdateOrderDetails(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t)
	addr := "Tower C, 0301"

	updated, err := f.svc.UpdateOrder(context.Background(), f.vendor, order.ID, UpdateOrderInput{DeliveryAddress: &addr})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DeliveryAddress != addr {
		t.Fatalf("expected delivery address %q, got %q", addr, updated.DeliveryAddress)
	}

	stranger := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleUser}
	if _, err := f.svc.UpdateOrder(context.Background(), stranger, order.ID, UpdateOrderInput{DeliveryAddress: &addr}); !pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := f.svc.UpdateOrder(context.Background(), f.owner, order.ID, UpdateOrderInput{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty update, got %v", err)
	}

	cancel := enums.LaundryOrderStatusCancelled
	if _, err := f.svc.UpdateOrder(context.Background(), f.owner, order.ID, UpdateOrderInput{Status: &cancel}); err != nil {
		t.Fatalf("cancel via update: %v", err)
	}
	if _, err := f.svc.UpdateOrder(context.Background(), f.owner, order.ID, UpdateOrderInput{DeliveryAddress: &addr}); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected terminal order edit to fail, got %v", err)
	}
}

func TestGetOrderVisibility(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t)
	ctx := context.Background()

	for _, actor := range []policy.Actor{f.owner, f.vendor, {UserID: uuid.New(), Role: enums.UserRoleMaster}} {
		if _, err := f.svc.GetOrder(ctx, actor, order.ID); err != nil {
			t.Fatalf("%s should see the order: %v", actor.Role, err)
		}
	}
	otherVendor := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleVendor}
	if _, err := f.svc.GetOrder(ctx, otherVendor, order.ID); !pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := f.svc.GetOrder(ctx, f.owner, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListOrdersScopesByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.owned = []uuid.UUID{f.repo.profile.ID}

	if _, err := f.svc.ListOrders(ctx, f.owner, ListOrdersInput{}, pagination.Params{}); err != nil {
		t.Fatalf("user list: %v", err)
	}
	if got := f.repo.listCalls[0]; got.UserID == nil || *got.UserID != f.owner.UserID {
		t.Fatalf("user list must filter by user, got %+v", got)
	}

	other := uuid.New()
	if _, err := f.svc.ListOrders(ctx, f.vendor, ListOrdersInput{LaundryVendorID: &other}, pagination.Params{}); err != nil {
		t.Fatalf("vendor list: %v", err)
	}
	if got := f.repo.listCalls[1]; got.LaundryVendorIDs == nil || len(got.LaundryVendorIDs) != 0 {
		t.Fatalf("vendor asking for a foreign vendor must match nothing, got %+v", got)
	}

	master := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleMaster}
	if _, err := f.svc.ListOrders(ctx, master, ListOrdersInput{}, pagination.Params{}); err != nil {
		t.Fatalf("master list: %v", err)
	}
	if got := f.repo.listCalls[2]; got.UserID != nil || got.LaundryVendorIDs != nil {
		t.Fatalf("master list must be unfiltered, got %+v", got)
	}

	admin := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	if _, err := f.svc.ListOrders(ctx, admin, ListOrdersInput{}, pagination.Params{}); !pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
	if _, err := NewLifecycle(nil, nil, nil); err == nil {
		t.Fatal("expected error for missing emitter")
	}
}
