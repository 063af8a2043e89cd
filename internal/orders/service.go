// Package orders handles product orders placed with non-laundry vendors. It
// shares pricing, authorization and the outbox with the laundry flow.
package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/internal/pricing"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/logger"
	"github.com/communityhub/marketplace-backend/pkg/outbox"
	"github.com/communityhub/marketplace-backend/pkg/outbox/payloads"
	"github.com/communityhub/marketplace-backend/pkg/pagination"
	"github.com/communityhub/marketplace-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const orderNumberSuffixLength = 6

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes product order operations.
type Service interface {
	CreateOrder(ctx context.Context, actor policy.Actor, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, actor policy.Actor, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, actor policy.Actor, input ListOrdersInput, params pagination.Params) (pagination.Page[models.Order], error)
	UpdateStatus(ctx context.Context, actor policy.Actor, orderID uuid.UUID, target enums.OrderStatus, notes *string) (*models.Order, error)
}

// ServiceParams groups the order service dependencies.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Outbox    outbox.Emitter
	Engine    *pricing.Engine
	Lifecycle *Lifecycle
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outbox.Emitter
	engine    *pricing.Engine
	lifecycle *Lifecycle
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the product order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if params.Lifecycle == nil {
		return nil, fmt.Errorf("order lifecycle required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		engine:    params.Engine,
		lifecycle: params.Lifecycle,
		logg:      params.Logger,
		now:       params.Now,
	}, nil
}

// CreateOrder prices the lines against the vendor's products. Product orders
// carry no pickup or delivery surcharge; tax applies to the subtotal.
func (s *service) CreateOrder(ctx context.Context, actor policy.Actor, input CreateOrderInput) (*models.Order, error) {
	if err := policy.Authorize(actor, policy.OrderCreate, policy.Resource{}); err != nil {
		return nil, err
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor_id is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	address := strings.TrimSpace(input.DeliveryAddress)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_address is required")
	}

	vendor, err := s.repo.FindVendor(ctx, input.VendorID)
	if err != nil {
		return nil, err
	}
	if !vendor.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor is not accepting orders")
	}
	if vendor.Type == enums.VendorTypeLaundry {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "laundry vendors take laundry orders")
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	lines := make([]pricing.Line, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.ProductID)
		lines = append(lines, pricing.Line{ItemID: item.ProductID, Quantity: item.Quantity})
	}
	products, err := s.repo.FindProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	quote, err := s.engine.Price(vendor.ID, lines, catalogFrom(products), pricing.Surcharges{})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	number, err := security.PrefixedCode("ORD-"+now.Format("20060102")+"-", orderNumberSuffixLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}

	order := &models.Order{
		ID:                  uuid.New(),
		OrderNumber:         number,
		UserID:              actor.UserID,
		VendorID:            vendor.ID,
		Status:              enums.OrderStatusPending,
		DeliveryAddress:     address,
		DeliveryDate:        input.DeliveryDate,
		DeliveryTime:        input.DeliveryTime,
		SpecialInstructions: input.SpecialInstructions,
		Subtotal:            quote.Subtotal,
		TaxAmount:           quote.TaxAmount,
		TotalAmount:         quote.TotalAmount,
		CreatedAt:           now,
		UpdatedAt:           now,
		Items:               orderItemsFrom(quote.Lines),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				VendorID:    order.VendorID,
				CommunityID: vendor.CommunityID,
				ItemCount:   len(order.Items),
				TotalAmount: order.TotalAmount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithOrder(ctx, order.ID), map[string]any{
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.StringFixed(2),
	}), "product order created")
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, actor policy.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, res, err := loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.OrderView, res); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders scopes users to their own orders, vendor accounts to the vendors
// they operate and masters to everything.
func (s *service) ListOrders(ctx context.Context, actor policy.Actor, input ListOrdersInput, params pagination.Params) (pagination.Page[models.Order], error) {
	if input.Status != nil && !input.Status.IsValid() {
		return pagination.Page[models.Order]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	filter := OrderFilter{Status: input.Status}

	switch actor.Role {
	case enums.UserRoleMaster:
		if input.VendorID != nil {
			filter.VendorIDs = []uuid.UUID{*input.VendorID}
		}
	case enums.UserRoleVendor:
		owned, err := s.repo.FindVendorIDsByAccount(ctx, actor.UserID)
		if err != nil {
			return pagination.Page[models.Order]{}, err
		}
		filter.VendorIDs = []uuid.UUID{}
		for _, id := range owned {
			if input.VendorID == nil || *input.VendorID == id {
				filter.VendorIDs = append(filter.VendorIDs, id)
			}
		}
	case enums.UserRoleUser:
		userID := actor.UserID
		filter.UserID = &userID
		if input.VendorID != nil {
			filter.VendorIDs = []uuid.UUID{*input.VendorID}
		}
	default:
		return pagination.Page[models.Order]{}, pkgerrors.New(pkgerrors.CodePermissionDenied, "role cannot list orders")
	}

	return s.repo.ListOrders(ctx, filter, params)
}

func (s *service) UpdateStatus(ctx context.Context, actor policy.Actor, orderID uuid.UUID, target enums.OrderStatus, notes *string) (*models.Order, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status "+string(target))
	}
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, res, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := policy.Authorize(actor, policy.OrderTransitionAction(target), res); err != nil {
			return err
		}
		if err := s.lifecycle.Apply(ctx, tx, repo, actor, loaded, target, notes); err != nil {
			return err
		}
		order, err = repo.FindOrder(ctx, loaded.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(s.logg.WithOrder(ctx, order.ID), "status", string(order.Status)), "product order transitioned")
	return order, nil
}

func loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, policy.Resource, error) {
	if orderID == uuid.Nil {
		return nil, policy.Resource{}, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, policy.Resource{}, err
	}
	vendor, err := repo.FindVendor(ctx, order.VendorID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return order, policy.Resource{OwnerUserID: order.UserID}, nil
		}
		return nil, policy.Resource{}, err
	}
	return order, policy.Resource{OwnerUserID: order.UserID, VendorAccountID: vendor.AccountID}, nil
}

func catalogFrom(products []models.Product) map[uuid.UUID]pricing.CatalogItem {
	catalog := make(map[uuid.UUID]pricing.CatalogItem, len(products))
	for _, p := range products {
		category := ""
		if p.Category != nil {
			category = *p.Category
		}
		catalog[p.ID] = pricing.CatalogItem{
			ID:          p.ID,
			VendorID:    p.VendorID,
			Name:        p.Name,
			Category:    category,
			Description: p.Description,
			UnitPrice:   p.Price,
			Available:   p.IsAvailable,
		}
	}
	return catalog
}

func orderItemsFrom(lines []pricing.PricedLine) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.OrderItem{
			ID:          uuid.New(),
			ProductID:   line.Item.ID,
			ProductName: line.Item.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.LineTotal,
		})
	}
	return out
}
