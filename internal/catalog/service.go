package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	dbtypes "github.com/communityhub/marketplace-backend/pkg/db/types"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	clockLayout        = "15:04"
	defaultItemTimeHrs = 24
)

// Service manages laundry vendor profiles and their item catalog.
type Service interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*ProfileDTO, error)
	UpdateProfile(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error)
	CreateItem(ctx context.Context, actor policy.Actor, laundryVendorID uuid.UUID, input CreateItemInput) (*ItemDTO, error)
	ListItems(ctx context.Context, actor policy.Actor, laundryVendorID uuid.UUID, includeUnavailable bool) ([]ItemDTO, error)
	UpdateItem(ctx context.Context, actor policy.Actor, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	DeleteItem(ctx context.Context, actor policy.Actor, itemID uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the catalog service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) GetProfile(ctx context.Context, id uuid.UUID) (*ProfileDTO, error) {
	profile, _, err := s.repo.FindProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	return profileFromModel(profile), nil
}

func (s *service) UpdateProfile(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error) {
	profile, err := s.manage(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	updates, err := profileUpdates(profile, input)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateProfile(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "laundry_vendor_id", id.String()), "laundry profile updated")
	return profileFromModel(updated), nil
}

func (s *service) CreateItem(ctx context.Context, actor policy.Actor, laundryVendorID uuid.UUID, input CreateItemInput) (*ItemDTO, error) {
	if _, err := s.manage(ctx, actor, laundryVendorID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	category := strings.TrimSpace(input.Category)
	if name == "" || category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and category are required")
	}
	if !input.PricePerPiece.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_per_piece must be positive")
	}
	hours := input.EstimatedTimeHours
	if hours == 0 {
		hours = defaultItemTimeHrs
	}
	if hours < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated_time_hours must be positive")
	}

	item := &models.LaundryItem{
		LaundryVendorID:    laundryVendorID,
		Name:               name,
		Description:        input.Description,
		Category:           category,
		PricePerPiece:      input.PricePerPiece.Round(2),
		EstimatedTimeHours: hours,
		IsAvailable:        true,
		ImageURL:           input.ImageURL,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	dto := itemFromModel(item)
	return &dto, nil
}

// ListItems returns available items. Unavailable items are included only on
// request and only for the operating vendor or master.
func (s *service) ListItems(ctx context.Context, actor policy.Actor, laundryVendorID uuid.UUID, includeUnavailable bool) ([]ItemDTO, error) {
	_, account, err := s.repo.FindProfile(ctx, laundryVendorID)
	if err != nil {
		return nil, err
	}
	if includeUnavailable && !policy.Allowed(actor, policy.VendorManage, policy.Resource{VendorAccountID: account}) {
		includeUnavailable = false
	}
	rows, err := s.repo.ListItems(ctx, laundryVendorID, includeUnavailable)
	if err != nil {
		return nil, err
	}
	out := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, itemFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateItem(ctx context.Context, actor policy.Actor, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.manage(ctx, actor, item.LaundryVendorID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = trimmed(input.Name)
	}
	if input.Category != nil {
		if strings.TrimSpace(*input.Category) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		updates["category"] = trimmed(input.Category)
	}
	if input.Description != nil {
		updates["description"] = trimmed(input.Description)
	}
	if input.PricePerPiece != nil {
		if !input.PricePerPiece.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_per_piece must be positive")
		}
		updates["price_per_piece"] = input.PricePerPiece.Round(2)
	}
	if input.EstimatedTimeHours != nil {
		if *input.EstimatedTimeHours <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated_time_hours must be positive")
		}
		updates["estimated_time_hours"] = *input.EstimatedTimeHours
	}
	if input.IsAvailable != nil {
		updates["is_available"] = *input.IsAvailable
	}
	if input.ImageURL != nil {
		updates["image_url"] = trimmed(input.ImageURL)
	}

	updated, err := s.repo.UpdateItem(ctx, itemID, updates)
	if err != nil {
		return nil, err
	}
	dto := itemFromModel(updated)
	return &dto, nil
}

// DeleteItem hides the item from the catalog. Orders keep their snapshot of it.
func (s *service) DeleteItem(ctx context.Context, actor policy.Actor, itemID uuid.UUID) error {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		return err
	}
	if _, err := s.manage(ctx, actor, item.LaundryVendorID); err != nil {
		return err
	}
	if _, err := s.repo.UpdateItem(ctx, itemID, map[string]any{"is_available": false}); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "laundry_item_id", itemID.String()), "laundry item deleted")
	return nil
}

func (s *service) manage(ctx context.Context, actor policy.Actor, laundryVendorID uuid.UUID) (*models.LaundryVendor, error) {
	profile, account, err := s.repo.FindProfile(ctx, laundryVendorID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.VendorManage, policy.Resource{VendorAccountID: account}); err != nil {
		return nil, err
	}
	return profile, nil
}

func profileUpdates(current *models.LaundryVendor, in UpdateProfileInput) (map[string]any, error) {
	out := map[string]any{}
	if in.BusinessName != nil {
		if strings.TrimSpace(*in.BusinessName) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "business_name cannot be empty")
		}
		out["business_name"] = trimmed(in.BusinessName)
	}
	if in.Description != nil {
		out["description"] = trimmed(in.Description)
	}

	start, end := current.PickupTimeStart, current.PickupTimeEnd
	if in.PickupTimeStart != nil {
		start = strings.TrimSpace(*in.PickupTimeStart)
		out["pickup_time_start"] = start
	}
	if in.PickupTimeEnd != nil {
		end = strings.TrimSpace(*in.PickupTimeEnd)
		out["pickup_time_end"] = end
	}
	if in.PickupTimeStart != nil || in.PickupTimeEnd != nil {
		if err := validatePickupWindow(start, end); err != nil {
			return nil, err
		}
	}

	if in.DeliveryTimeHours != nil {
		if *in.DeliveryTimeHours <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_time_hours must be positive")
		}
		out["delivery_time_hours"] = *in.DeliveryTimeHours
	}
	money := []struct {
		column string
		value  *decimal.Decimal
	}{
		{"minimum_order_amount", in.MinimumOrderAmount},
		{"pickup_charge", in.PickupCharge},
		{"delivery_charge", in.DeliveryCharge},
	}
	for _, m := range money {
		if m.value == nil {
			continue
		}
		if m.value.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, m.column+" cannot be negative")
		}
		out[m.column] = m.value.Round(2)
	}
	if in.ServiceAreas != nil {
		out["service_areas"] = dbtypes.StringList(in.ServiceAreas)
	}
	if in.IsActive != nil {
		out["is_active"] = *in.IsActive
	}
	return out, nil
}

func validatePickupWindow(start, end string) error {
	from, err := time.Parse(clockLayout, start)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup_time_start must be HH:MM")
	}
	to, err := time.Parse(clockLayout, end)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup_time_end must be HH:MM")
	}
	if !from.Before(to) {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup window must end after it starts")
	}
	return nil
}
