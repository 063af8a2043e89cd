package product

import (
	"context"

	"github.com/communityhub/marketplace-backend/internal/repo"
	"github.com/communityhub/marketplace-backend/pkg/db"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines CRUD operations for product listings.
type Repository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, includeUnavailable bool, params pagination.Params) (pagination.Page[models.Product], error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Product, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a product repository on runner.
func NewRepository(runner db.Runner) Repository {
	return &repository{Base: repo.NewBase(runner)}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return db.Classify(r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Create(product).Error
	}), "product")
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Take(&product, "id = ?", id).Error
	}); err != nil {
		return nil, db.Classify(err, "product")
	}
	return &product, nil
}

// ListByVendor pages through a vendor's products, newest first.
func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, includeUnavailable bool, params pagination.Params) (pagination.Page[models.Product], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Product]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	var rows []models.Product
	if err := r.Run(ctx, func(conn *gorm.DB) error {
		q := conn.Model(&models.Product{}).Where("vendor_id = ?", vendorID)
		if !includeUnavailable {
			q = q.Where("is_available = ?", true)
		}
		return q.Scopes(pagination.Keyset(cursor, params.Limit)).Find(&rows).Error
	}); err != nil {
		return pagination.Page[models.Product]{}, db.Classify(err, "products")
	}
	return pagination.Trim(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Product, error) {
	var product models.Product
	err := r.Run(ctx, func(conn *gorm.DB) error {
		if len(updates) > 0 {
			res := conn.Model(&models.Product{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return conn.Take(&product, "id = ?", id).Error
	})
	if err != nil {
		return nil, db.Classify(err, "product")
	}
	return &product, nil
}
