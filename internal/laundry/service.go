package laundry

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

// Service exposes laundry order operations.
type Service interface {
	CreateOrder(ctx context.Context, actor policy.Actor, input CreateOrderInput) (*models.LaundryOrder, error)
	GetOrder(ctx context.Context, actor policy.Actor, orderID uuid.UUID) (*models.LaundryOrder, error)
	ListOrders(ctx context.Context, actor policy.Actor, input ListOrdersInput, params pagination.Params) (pagination.Page[models.LaundryOrder], error)
	UpdateOrder(ctx context.Context, actor policy.Actor, orderID uuid.UUID, input UpdateOrderInput) (*models.LaundryOrder, error)
	Transition(ctx context.Context, actor policy.Actor, orderID uuid.UUID, target enums.LaundryOrderStatus) (*models.LaundryOrder, error)
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

// ServiceParams groups the laundry service dependencies.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Outbox    outbox.Emitter
	Engine    *pricing.Engine
	Lifecycle *Lifecycle
	Logger    *logger.Logger
	Now       func() time.Time
}

// NewService builds the laundry order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("laundry repository required")
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

func (s *service) CreateOrder(ctx context.Context, actor policy.Actor, input CreateOrderInput) (*models.LaundryOrder, error) {
	if err := policy.Authorize(actor, policy.OrderCreate, policy.Resource{}); err != nil {
		return nil, err
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	profile, err := s.repo.FindVendorProfile(ctx, input.LaundryVendorID)
	if err != nil {
		return nil, err
	}
	if !profile.Active() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "laundry vendor is not accepting orders")
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	lines := make([]pricing.Line, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.LaundryItemID)
		lines = append(lines, pricing.Line{
			ItemID:              item.LaundryItemID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	items, err := s.repo.FindItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	quote, err := s.engine.Price(profile.ID, lines, catalogFrom(items), pricing.Surcharges{
		PickupCharge:   profile.PickupCharge,
		DeliveryCharge: profile.DeliveryCharge,
	})
	if err != nil {
		return nil, err
	}
	if quote.Subtotal.LessThan(profile.MinimumOrderAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order subtotal is below the vendor minimum").
			WithDetails(map[string]any{
				"subtotal":             quote.Subtotal.StringFixed(2),
				"minimum_order_amount": profile.MinimumOrderAmount.StringFixed(2),
			})
	}

	now := s.now().UTC()
	number, err := newOrderNumber(now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}

	deliveryAddress := strings.TrimSpace(input.PickupAddress)
	if input.DeliveryAddress != nil && strings.TrimSpace(*input.DeliveryAddress) != "" {
		deliveryAddress = strings.TrimSpace(*input.DeliveryAddress)
	}

	order := &models.LaundryOrder{
		ID:                   uuid.New(),
		UserID:               actor.UserID,
		LaundryVendorID:      profile.ID,
		OrderNumber:          number,
		PickupAddress:        strings.TrimSpace(input.PickupAddress),
		PickupDate:           input.PickupDate,
		PickupTimeSlot:       strings.TrimSpace(input.PickupTimeSlot),
		PickupInstructions:   input.PickupInstructions,
		DeliveryAddress:      deliveryAddress,
		DeliveryInstructions: input.DeliveryInstructions,
		Status:               enums.LaundryOrderStatusPending,
		Subtotal:             quote.Subtotal,
		PickupCharge:         quote.PickupCharge,
		DeliveryCharge:       quote.DeliveryCharge,
		TaxAmount:            quote.TaxAmount,
		TotalAmount:          quote.TotalAmount,
		PaymentStatus:        enums.PaymentStatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
		Items:                orderItemsFrom(quote.Lines),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLaundryOrderCreated,
			AggregateType: enums.AggregateLaundryOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.LaundryOrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				VendorID:    order.LaundryVendorID,
				CommunityID: profile.CommunityID,
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
	}), "laundry order created")
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, actor policy.Actor, orderID uuid.UUID) (*models.LaundryOrder, error) {
	order, res, err := LoadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.OrderView, res); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, actor policy.Actor, input ListOrdersInput, params pagination.Params) (pagination.Page[models.LaundryOrder], error) {
	if input.Status != nil && !input.Status.IsValid() {
		return pagination.Page[models.LaundryOrder]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	filter := OrderFilter{Status: input.Status}

	switch actor.Role {
	case enums.UserRoleMaster:
		if input.LaundryVendorID != nil {
			filter.LaundryVendorIDs = []uuid.UUID{*input.LaundryVendorID}
		}
	case enums.UserRoleVendor:
		owned, err := s.repo.FindVendorProfileIDsByAccount(ctx, actor.UserID)
		if err != nil {
			return pagination.Page[models.LaundryOrder]{}, err
		}
		filter.LaundryVendorIDs = narrowVendors(owned, input.LaundryVendorID)
	case enums.UserRoleUser:
		userID := actor.UserID
		filter.UserID = &userID
		if input.LaundryVendorID != nil {
			filter.LaundryVendorIDs = []uuid.UUID{*input.LaundryVendorID}
		}
	default:
		return pagination.Page[models.LaundryOrder]{}, pkgerrors.New(pkgerrors.CodePermissionDenied, "role cannot list laundry orders")
	}

	return s.repo.ListOrders(ctx, filter, params)
}

// narrowVendors intersects the vendor's own profiles with an optional filter.
// The result is never nil so an account without profiles matches nothing.
func narrowVendors(owned []uuid.UUID, requested *uuid.UUID) []uuid.UUID {
	out := []uuid.UUID{}
	for _, id := range owned {
		if requested == nil || *requested == id {
			out = append(out, id)
		}
	}
	return out
}

func (s *service) UpdateOrder(ctx context.Context, actor policy.Actor, orderID uuid.UUID, input UpdateOrderInput) (*models.LaundryOrder, error) {
	details := input.detailUpdates()
	if input.Status == nil && len(details) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no changes supplied")
	}
	if v, ok := details["delivery_address"]; ok && strings.TrimSpace(v.(string)) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_address cannot be blank")
	}

	var order *models.LaundryOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, res, err := LoadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		if len(details) > 0 {
			if err := policy.Authorize(actor, policy.OrderEditDetails, res); err != nil {
				return err
			}
			if loaded.Status.IsTerminal() {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order details cannot change after "+string(loaded.Status))
			}
		}
		if input.Status != nil {
			if err := policy.Authorize(actor, policy.TransitionAction(*input.Status), res); err != nil {
				return err
			}
		}

		if len(details) > 0 {
			details["updated_at"] = s.now().UTC()
			if err := repo.UpdateDetails(ctx, loaded.ID, details); err != nil {
				return err
			}
		}
		if input.Status != nil {
			if err := s.lifecycle.Apply(ctx, tx, repo, actor, loaded, *input.Status, nil); err != nil {
				return err
			}
		}

		order, err = repo.FindOrder(ctx, loaded.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Transition(ctx context.Context, actor policy.Actor, orderID uuid.UUID, target enums.LaundryOrderStatus) (*models.LaundryOrder, error) {
	var order *models.LaundryOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, res, err := LoadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := policy.Authorize(actor, policy.TransitionAction(target), res); err != nil {
			return err
		}
		if err := s.lifecycle.Apply(ctx, tx, repo, actor, loaded, target, nil); err != nil {
			return err
		}
		order = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(s.logg.WithOrder(ctx, order.ID), "status", string(order.Status)), "laundry order transitioned")
	return order, nil
}

// LoadOrder fetches an order together with the ownership data the policy
// needs.
func LoadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.LaundryOrder, policy.Resource, error) {
	if orderID == uuid.Nil {
		return nil, policy.Resource{}, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, policy.Resource{}, err
	}
	profile, err := repo.FindVendorProfile(ctx, order.LaundryVendorID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return order, policy.Resource{OwnerUserID: order.UserID}, nil
		}
		return nil, policy.Resource{}, err
	}
	return order, policy.Resource{OwnerUserID: order.UserID, VendorAccountID: profile.AccountID}, nil
}

func validateCreate(input CreateOrderInput) error {
	if input.LaundryVendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "laundry_vendor_id is required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if strings.TrimSpace(input.PickupAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup_address is required")
	}
	if strings.TrimSpace(input.PickupTimeSlot) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup_time_slot is required")
	}
	if input.PickupDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup_date is required")
	}
	return nil
}

func catalogFrom(items []models.LaundryItem) map[uuid.UUID]pricing.CatalogItem {
	catalog := make(map[uuid.UUID]pricing.CatalogItem, len(items))
	for _, item := range items {
		catalog[item.ID] = pricing.CatalogItem{
			ID:          item.ID,
			VendorID:    item.LaundryVendorID,
			Name:        item.Name,
			Category:    item.Category,
			Description: item.Description,
			UnitPrice:   item.PricePerPiece,
			Available:   item.IsAvailable,
		}
	}
	return catalog
}

func orderItemsFrom(lines []pricing.PricedLine) []models.LaundryOrderItem {
	out := make([]models.LaundryOrderItem, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.LaundryOrderItem{
			ID:                  uuid.New(),
			LaundryItemID:       line.Item.ID,
			Quantity:            line.Quantity,
			UnitPrice:           line.UnitPrice,
			TotalPrice:          line.LineTotal,
			SpecialInstructions: line.SpecialInstructions,
			ItemName:            line.Item.Name,
			ItemCategory:        line.Item.Category,
			ItemDescription:     line.Item.Description,
		})
	}
	return out
}

func newOrderNumber(now time.Time) (string, error) {
	return security.PrefixedCode("LND-"+now.Format("20060102")+"-", orderNumberSuffixLength)
}
