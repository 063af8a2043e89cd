package orders

import (
	"context"

	"github.com/communityhub/marketplace-backend/internal/repo"
	"github.com/communityhub/marketplace-backend/pkg/db"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for product orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVendor(ctx context.Context, vendorID uuid.UUID) (*VendorRef, error)
	FindVendorIDsByAccount(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter, params pagination.Params) (pagination.Page[models.Order], error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
}

type repository struct {
	repo.Base
}

// NewRepository builds a product order repository on top of runner.
func NewRepository(runner db.Runner) Repository {
	return &repository{Base: repo.NewBase(runner)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) FindVendor(ctx context.Context, vendorID uuid.UUID) (*VendorRef, error) {
	var vendor VendorRef
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Model(&models.Vendor{}).
			Select("id, name, type, community_id, admin_id, is_active").
			Where("id = ?", vendorID).
			Take(&vendor).Error
	})
	if err != nil {
		return nil, db.Classify(err, "vendor")
	}
	return &vendor, nil
}

func (r *repository) FindVendorIDsByAccount(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Model(&models.Vendor{}).Where("admin_id = ?", accountID).Pluck("id", &ids).Error
	})
	if err != nil {
		return nil, db.Classify(err, "vendor")
	}
	return ids, nil
}

func (r *repository) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Where("id IN ?", ids).Find(&products).Error
	})
	if err != nil {
		return nil, db.Classify(err, "product")
	}
	return products, nil
}

// CreateOrder inserts the order row and then its items. Callers run it inside
// a transaction.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if len(order.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	err := r.Run(ctx, func(conn *gorm.DB) error {
		items := order.Items
		if err := conn.Omit("Items", "History").Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := conn.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	return db.Classify(err, "order")
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.
			Preload("Items", func(q *gorm.DB) *gorm.DB {
				return q.Order("created_at ASC").Order("id ASC")
			}).
			Preload("History", func(q *gorm.DB) *gorm.DB {
				return q.Order("created_at ASC").Order("id ASC")
			}).
			Where("id = ?", id).Take(&order).Error
	})
	if err != nil {
		return nil, db.Classify(err, "order")
	}
	return &order, nil
}

func (r *repository) ListOrders(ctx context.Context, filter OrderFilter, params pagination.Params) (pagination.Page[models.Order], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	var rows []models.Order
	err = r.Run(ctx, func(conn *gorm.DB) error {
		q := conn.Model(&models.Order{})
		if filter.UserID != nil {
			q = q.Where("user_id = ?", *filter.UserID)
		}
		if filter.VendorIDs != nil {
			q = q.Where("vendor_id IN ?", filter.VendorIDs)
		}
		if filter.Status != nil {
			q = q.Where("status = ?", *filter.Status)
		}
		return q.Scopes(pagination.Keyset(cursor, params.Limit)).
			Preload("Items").
			Find(&rows).Error
	})
	if err != nil {
		return pagination.Page[models.Order]{}, db.Classify(err, "orders")
	}
	return pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// CompareAndSetStatus writes updates only while the row still has status
// expected.
func (r *repository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) error {
	var affected int64
	err := r.Run(ctx, func(conn *gorm.DB) error {
		res := conn.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return db.Classify(err, "order")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently").
			WithDetails(map[string]any{"expected_status": string(expected)})
	}
	return nil
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return db.Classify(r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Create(entry).Error
	}), "order status history")
}
