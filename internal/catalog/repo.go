package catalog

import (
	"context"
	"time"

	"github.com/communityhub/marketplace-backend/internal/repo"
	"github.com/communityhub/marketplace-backend/pkg/db"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists laundry profiles and items.
type Repository interface {
	FindProfile(ctx context.Context, id uuid.UUID) (*models.LaundryVendor, *uuid.UUID, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.LaundryVendor, error)
	CreateItem(ctx context.Context, item *models.LaundryItem) error
	FindItem(ctx context.Context, id uuid.UUID) (*models.LaundryItem, error)
	ListItems(ctx context.Context, laundryVendorID uuid.UUID, includeUnavailable bool) ([]models.LaundryItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.LaundryItem, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds the catalog repository on runner.
func NewRepository(runner db.Runner) Repository {
	return &repository{Base: repo.NewBase(runner)}
}

// FindProfile loads a laundry profile together with the account operating
// its vendor.
func (r *repository) FindProfile(ctx context.Context, id uuid.UUID) (*models.LaundryVendor, *uuid.UUID, error) {
	var (
		profile models.LaundryVendor
		vendor  models.Vendor
	)
	err := r.Run(ctx, func(conn *gorm.DB) error {
		if err := conn.Take(&profile, "id = ?", id).Error; err != nil {
			return err
		}
		return conn.Select("id, admin_id").Take(&vendor, "id = ?", profile.VendorID).Error
	})
	if err != nil {
		return nil, nil, db.Classify(err, "laundry vendor")
	}
	return &profile, vendor.AdminID, nil
}

func (r *repository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.LaundryVendor, error) {
	var profile models.LaundryVendor
	err := r.Run(ctx, func(conn *gorm.DB) error {
		if len(updates) > 0 {
			updates["updated_at"] = time.Now().UTC()
			if err := conn.Model(&models.LaundryVendor{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		return conn.Take(&profile, "id = ?", id).Error
	})
	if err != nil {
		return nil, db.Classify(err, "laundry vendor")
	}
	return &profile, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.LaundryItem) error {
	return db.Classify(r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Create(item).Error
	}), "laundry item")
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.LaundryItem, error) {
	var item models.LaundryItem
	if err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Take(&item, "id = ?", id).Error
	}); err != nil {
		return nil, db.Classify(err, "laundry item")
	}
	return &item, nil
}

func (r *repository) ListItems(ctx context.Context, laundryVendorID uuid.UUID, includeUnavailable bool) ([]models.LaundryItem, error) {
	var rows []models.LaundryItem
	err := r.Run(ctx, func(conn *gorm.DB) error {
		q := conn.Where("laundry_vendor_id = ?", laundryVendorID)
		if !includeUnavailable {
			q = q.Where("is_available = ?", true)
		}
		return q.Order("category ASC").Order("name ASC").Find(&rows).Error
	})
	if err != nil {
		return nil, db.Classify(err, "laundry items")
	}
	return rows, nil
}

func (r *repository) UpdateItem(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.LaundryItem, error) {
	var item models.LaundryItem
	err := r.Run(ctx, func(conn *gorm.DB) error {
		if len(updates) > 0 {
			updates["updated_at"] = time.Now().UTC()
			if err := conn.Model(&models.LaundryItem{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		return conn.Take(&item, "id = ?", id).Error
	})
	if err != nil {
		return nil, db.Classify(err, "laundry item")
	}
	return &item, nil
}
