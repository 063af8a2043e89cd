package orders

import (
	"context"
	"testing"
	"time"

	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/internal/pricing"
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

type shop struct {
	client    *db.Client
	fixture   dbtest.Fixture
	vendor    models.Vendor
	products  []models.Product
	svc       Service
	repo      Repository
	lifecycle *Lifecycle
	customer  policy.Actor
	operator  policy.Actor
	master    policy.Actor
}

func newShop(t *testing.T) *shop {
	t.Helper()
	client := dbtest.NewClient(t)
	conn := client.DB()
	s := &shop{client: client, fixture: dbtest.SeedLaundry(t, conn)}

	adminID := s.fixture.VendorAccount.ID
	s.vendor = models.Vendor{
		Name:        "Corner Grocer",
		Type:        enums.VendorTypeFood,
		CommunityID: s.fixture.Community.ID,
		AdminID:     &adminID,
		IsActive:    true,
	}
	require.NoError(t, conn.Create(&s.vendor).Error)
	for _, row := range []struct {
		name, price string
		available   bool
	}{
		{"Bread", "100.00", true},
		{"Milk", "25.50", true},
		{"Cake", "400.00", false},
	} {
		p := models.Product{VendorID: s.vendor.ID, Name: row.name, Price: decimal.RequireFromString(row.price), IsAvailable: row.available}
		require.NoError(t, conn.Create(&p).Error)
		// gorm skips false on create when the column has a default
		require.NoError(t, conn.Model(&p).Update("is_available", row.available).Error)
		s.products = append(s.products, p)
	}

	master := dbtest.SeedUser(t, conn, enums.UserRoleMaster, nil)
	s.customer = policy.Actor{UserID: s.fixture.Customer.ID, Role: enums.UserRoleUser}
	s.operator = policy.Actor{UserID: s.fixture.VendorAccount.ID, Role: enums.UserRoleVendor}
	s.master = policy.Actor{UserID: master.ID, Role: enums.UserRoleMaster}

	emitter := outbox.NewService(outbox.NewRepository(), nil)
	engine, err := pricing.NewEngine(decimal.RequireFromString("0.18"))
	require.NoError(t, err)
	s.lifecycle, err = NewLifecycle(emitter, nil, nil)
	require.NoError(t, err)
	s.repo = NewRepository(client)
	s.svc, err = NewService(ServiceParams{Repo: s.repo, Tx: client, Outbox: emitter, Engine: engine, Lifecycle: s.lifecycle})
	require.NoError(t, err)
	return s
}

func (s *shop) place(t *testing.T, actor policy.Actor) *models.Order {
	t.Helper()
	order, err := s.svc.CreateOrder(context.Background(), actor, CreateOrderInput{
		VendorID:        s.vendor.ID,
		Items:           []ItemInput{{ProductID: s.products[0].ID, Quantity: 2}, {ProductID: s.products[1].ID, Quantity: 1}},
		DeliveryAddress: "Tower B, 1204",
	})
	require.NoError(t, err)
	return order
}

func (s *shop) events(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, s.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func TestCreateOrderPricesProductsWithTax(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	slot := "18:00-20:00"

	order, err := s.svc.CreateOrder(ctx, s.customer, CreateOrderInput{
		VendorID:        s.vendor.ID,
		Items:           []ItemInput{{ProductID: s.products[0].ID, Quantity: 2}, {ProductID: s.products[1].ID, Quantity: 1}},
		DeliveryAddress: "  Tower B, 1204 ",
		DeliveryDate:    &date,
		DeliveryTime:    &slot,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{6}$`, order.OrderNumber)

	stored, err := s.repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
	assert.Equal(t, "Tower B, 1204", stored.DeliveryAddress)
	assert.True(t, stored.Subtotal.Equal(decimal.RequireFromString("225.50")), "subtotal %s", stored.Subtotal)
	assert.True(t, stored.TaxAmount.Equal(decimal.RequireFromString("40.59")), "tax %s", stored.TaxAmount)
	assert.True(t, stored.TotalAmount.Equal(decimal.RequireFromString("266.09")), "total %s", stored.TotalAmount)
	require.Len(t, stored.Items, 2)
	assert.Empty(t, stored.History)
	assert.EqualValues(t, 1, s.events(t, enums.EventOrderCreated))

	dto := OrderFromModel(stored)
	require.NotNil(t, dto.DeliveryDate)
	assert.Equal(t, "2026-03-20", *dto.DeliveryDate)
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	input := func(mut func(*CreateOrderInput)) CreateOrderInput {
		in := CreateOrderInput{
			VendorID:        s.vendor.ID,
			Items:           []ItemInput{{ProductID: s.products[0].ID, Quantity: 1}},
			DeliveryAddress: "Tower B",
		}
		mut(&in)
		return in
	}

	cases := []struct {
		name  string
		actor policy.Actor
		in    CreateOrderInput
		code  pkgerrors.Code
	}{
		{"vendor cannot order", s.operator, input(func(*CreateOrderInput) {}), pkgerrors.CodePermissionDenied},
		{"blank address", s.customer, input(func(in *CreateOrderInput) { in.DeliveryAddress = "  " }), pkgerrors.CodeValidation},
		{"no items", s.customer, input(func(in *CreateOrderInput) { in.Items = nil }), pkgerrors.CodeValidation},
		{"laundry vendor", s.customer, input(func(in *CreateOrderInput) { in.VendorID = s.fixture.Vendor.ID }), pkgerrors.CodeValidation},
		{"unknown vendor", s.customer, input(func(in *CreateOrderInput) { in.VendorID = uuid.New() }), pkgerrors.CodeNotFound},
		{"unknown product", s.customer, input(func(in *CreateOrderInput) { in.Items[0].ProductID = uuid.New() }), pkgerrors.CodeNotFound},
		{"unavailable product", s.customer, input(func(in *CreateOrderInput) { in.Items[0].ProductID = s.products[2].ID }), pkgerrors.CodeValidation},
		{"zero quantity", s.customer, input(func(in *CreateOrderInput) { in.Items[0].Quantity = 0 }), pkgerrors.CodeInvalidQuantity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.svc.CreateOrder(ctx, tc.actor, tc.in)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}

	var count int64
	require.NoError(t, s.client.DB().Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, s.events(t, enums.EventOrderCreated))
}

func TestUpdateStatusWalksLifecycleAndRecordsHistory(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	order := s.place(t, s.customer)

	_, err := s.svc.UpdateStatus(ctx, s.customer, order.ID, enums.OrderStatusConfirmed, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied), "got %v", err)

	note := "packed"
	for _, target := range []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusInProgress, enums.OrderStatusCompleted} {
		updated, err := s.svc.UpdateStatus(ctx, s.operator, order.ID, target, &note)
		require.NoError(t, err, target)
		assert.Equal(t, target, updated.Status)
	}

	stored, err := s.repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ConfirmedAt)
	require.NotNil(t, stored.CompletedAt)
	assert.Nil(t, stored.CancelledAt)
	require.Len(t, stored.History, 3)
	assert.Equal(t, enums.OrderStatusPending, stored.History[0].FromStatus)
	assert.Equal(t, enums.OrderStatusCompleted, stored.History[2].ToStatus)
	assert.Equal(t, s.operator.UserID, stored.History[2].ChangedBy)
	require.NotNil(t, stored.History[0].Notes)
	assert.Equal(t, "packed", *stored.History[0].Notes)
	assert.EqualValues(t, 3, s.events(t, enums.EventOrderStatusChanged))

	_, err = s.svc.UpdateStatus(ctx, s.master, order.ID, enums.OrderStatusCancelled, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)

	_, err = s.svc.UpdateStatus(ctx, s.master, order.ID, enums.OrderStatus("shipped"), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestOwnerCancelsButCannotAdvance(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	order := s.place(t, s.customer)

	cancelled, err := s.svc.UpdateStatus(ctx, s.customer, order.ID, enums.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	other := dbtest.SeedUser(t, s.client.DB(), enums.UserRoleUser, nil)
	second := s.place(t, s.customer)
	_, err = s.svc.UpdateStatus(ctx, policy.Actor{UserID: other.ID, Role: enums.UserRoleUser}, second.ID, enums.OrderStatusCancelled, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied), "got %v", err)
}

func TestLifecycleRejectsStaleStatus(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	order := s.place(t, s.customer)

	stale, err := s.repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	_, err = s.svc.UpdateStatus(ctx, s.operator, order.ID, enums.OrderStatusConfirmed, nil)
	require.NoError(t, err)

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.lifecycle.Apply(ctx, tx, s.repo, s.operator, stale, enums.OrderStatusCancelled, nil)
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	stored, err := s.repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.Status)
	assert.Len(t, stored.History, 1)
}

func TestListAndGetScopeByRole(t *testing.T) {
	s := newShop(t)
	ctx := context.Background()
	communityID := s.fixture.Community.ID
	neighbour := dbtest.SeedUser(t, s.client.DB(), enums.UserRoleUser, &communityID)
	neighbourActor := policy.Actor{UserID: neighbour.ID, Role: enums.UserRoleUser}

	mine := s.place(t, s.customer)
	theirs := s.place(t, neighbourActor)

	page, err := s.svc.ListOrders(ctx, s.customer, ListOrdersInput{}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].ID)

	page, err = s.svc.ListOrders(ctx, s.operator, ListOrdersInput{}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	outsider := dbtest.SeedUser(t, s.client.DB(), enums.UserRoleVendor, nil)
	page, err = s.svc.ListOrders(ctx, policy.Actor{UserID: outsider.ID, Role: enums.UserRoleVendor}, ListOrdersInput{}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	pending := enums.OrderStatusPending
	page, err = s.svc.ListOrders(ctx, s.master, ListOrdersInput{Status: &pending, VendorID: &s.vendor.ID}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	_, err = s.svc.GetOrder(ctx, s.customer, theirs.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied), "got %v", err)
	got, err := s.svc.GetOrder(ctx, s.operator, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, theirs.ID, got.ID)
	_, err = s.svc.GetOrder(ctx, s.master, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = s.svc.ListOrders(ctx, policy.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}, ListOrdersInput{}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied), "got %v", err)
}
