package vendors

import (
	"context"
	"time"

	"github.com/communityhub/marketplace-backend/internal/repo"
	"github.com/communityhub/marketplace-backend/pkg/db"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	dbtypes "github.com/communityhub/marketplace-backend/pkg/db/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists vendors and their laundry profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, vendor *models.Vendor) error
	CreateLaundryProfile(ctx context.Context, profile *models.LaundryVendor) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	LaundryProfileID(ctx context.Context, vendorID uuid.UUID) (*uuid.UUID, error)
	List(ctx context.Context, filter ListFilter) ([]models.Vendor, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Vendor, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a vendor repository on runner.
func NewRepository(runner db.Runner) Repository {
	return &repository{Base: repo.NewBase(runner)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, vendor *models.Vendor) error {
	return db.Classify(r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Create(vendor).Error
	}), "vendor")
}

func (r *repository) CreateLaundryProfile(ctx context.Context, profile *models.LaundryVendor) error {
	return db.Classify(r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Create(profile).Error
	}), "laundry vendor")
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Take(&vendor, "id = ?", id).Error
	}); err != nil {
		return nil, db.Classify(err, "vendor")
	}
	return &vendor, nil
}

// LaundryProfileID returns the laundry profile of vendorID, or nil when the
// vendor has none.
func (r *repository) LaundryProfileID(ctx context.Context, vendorID uuid.UUID) (*uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Model(&models.LaundryVendor{}).Where("vendor_id = ?", vendorID).Limit(1).Pluck("id", &ids).Error
	}); err != nil {
		return nil, db.Classify(err, "laundry vendor")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return &ids[0], nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Vendor, error) {
	var rows []models.Vendor
	err := r.Run(ctx, func(conn *gorm.DB) error {
		q := conn.Model(&models.Vendor{})
		if filter.CommunityID != nil {
			q = q.Where("community_id = ?", *filter.CommunityID)
		}
		if filter.Type != nil {
			q = q.Where("type = ?", *filter.Type)
		}
		return q.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	})
	if err != nil {
		return nil, db.Classify(err, "vendors")
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Vendor, error) {
	if hours, ok := updates["operating_hours"].(map[string]string); ok {
		updates["operating_hours"] = dbtypes.StringMap(hours)
	}
	var vendor models.Vendor
	err := r.Run(ctx, func(conn *gorm.DB) error {
		if len(updates) > 0 {
			updates["updated_at"] = time.Now().UTC()
			res := conn.Model(&models.Vendor{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return conn.Take(&vendor, "id = ?", id).Error
	})
	if err != nil {
		return nil, db.Classify(err, "vendor")
	}
	return &vendor, nil
}
