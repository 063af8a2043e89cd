package laundry

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

// Repository defines persistence operations for laundry orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVendorProfile(ctx context.Context, laundryVendorID uuid.UUID) (*VendorProfile, error)
	FindVendorProfileIDsByAccount(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error)
	FindItems(ctx context.Context, ids []uuid.UUID) ([]models.LaundryItem, error)
	CreateOrder(ctx context.Context, order *models.LaundryOrder) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.LaundryOrder, error)
	ListOrders(ctx context.Context, filter OrderFilter, params pagination.Params) (pagination.Page[models.LaundryOrder], error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected enums.LaundryOrderStatus, updates map[string]any) error
	UpdateDetails(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CompareAndSetPayment(ctx context.Context, id uuid.UUID, expected enums.PaymentStatus, updates map[string]any) error
}

type repository struct {
	repo.Base
}

// NewRepository builds a laundry repository on top of runner.
func NewRepository(runner db.Runner) Repository {
	return &repository{Base: repo.NewBase(runner)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) FindVendorProfile(ctx context.Context, laundryVendorID uuid.UUID) (*VendorProfile, error) {
	var profile VendorProfile
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Table("laundry_vendors AS lv").
			Select(`lv.id, lv.vendor_id, v.community_id, v.admin_id, lv.business_name,
				lv.is_active AS profile_active, v.is_active AS vendor_active,
				lv.minimum_order_amount, lv.pickup_charge, lv.delivery_charge`).
			Joins("JOIN vendors v ON v.id = lv.vendor_id").
			Where("lv.id = ?", laundryVendorID).
			Take(&profile).Error
	})
	if err != nil {
		return nil, db.Classify(err, "laundry vendor")
	}
	return &profile, nil
}

func (r *repository) FindVendorProfileIDsByAccount(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Table("laundry_vendors AS lv").
			Joins("JOIN vendors v ON v.id = lv.vendor_id").
			Where("v.admin_id = ?", accountID).
			Pluck("lv.id", &ids).Error
	})
	if err != nil {
		return nil, db.Classify(err, "laundry vendor")
	}
	return ids, nil
}

func (r *repository) FindItems(ctx context.Context, ids []uuid.UUID) ([]models.LaundryItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.LaundryItem
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Where("id IN ?", ids).Find(&items).Error
	})
	if err != nil {
		return nil, db.Classify(err, "laundry item")
	}
	return items, nil
}

// CreateOrder inserts the order row and then all items in one statement.
// Callers run it inside a transaction.
func (r *repository) CreateOrder(ctx context.Context, order *models.LaundryOrder) error {
	if len(order.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	err := r.Run(ctx, func(conn *gorm.DB) error {
		items := order.Items
		if err := conn.Omit("Items").Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].LaundryOrderID = order.ID
		}
		if err := conn.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return db.Classify(err, "laundry order")
	}
	return nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.LaundryOrder, error) {
	var order models.LaundryOrder
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Preload("Items", func(q *gorm.DB) *gorm.DB {
			return q.Order("created_at ASC").Order("id ASC")
		}).Where("id = ?", id).Take(&order).Error
	})
	if err != nil {
		return nil, db.Classify(err, "laundry order")
	}
	return &order, nil
}

func (r *repository) ListOrders(ctx context.Context, filter OrderFilter, params pagination.Params) (pagination.Page[models.LaundryOrder], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.LaundryOrder]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	var rows []models.LaundryOrder
	err = r.Run(ctx, func(conn *gorm.DB) error {
		q := conn.Model(&models.LaundryOrder{})
		if filter.UserID != nil {
			q = q.Where("user_id = ?", *filter.UserID)
		}
		if filter.LaundryVendorIDs != nil {
			q = q.Where("laundry_vendor_id IN ?", filter.LaundryVendorIDs)
		}
		if filter.Status != nil {
			q = q.Where("status = ?", *filter.Status)
		}
		return q.Scopes(pagination.Keyset(cursor, params.Limit)).
			Preload("Items").
			Find(&rows).Error
	})
	if err != nil {
		return pagination.Page[models.LaundryOrder]{}, db.Classify(err, "laundry orders")
	}
	return pagination.Trim(rows, params.Limit, orderCursor), nil
}

func orderCursor(o models.LaundryOrder) pagination.Cursor {
	return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
}

// CompareAndSetStatus writes updates only while the row still has status
// expected. Zero affected rows means another writer got there first.
func (r *repository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected enums.LaundryOrderStatus, updates map[string]any) error {
	var affected int64
	err := r.Run(ctx, func(conn *gorm.DB) error {
		res := conn.Model(&models.LaundryOrder{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return db.Classify(err, "laundry order")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently").
			WithDetails(map[string]any{"expected_status": string(expected)})
	}
	return nil
}

// UpdateDetails edits non-lifecycle fields while the order is non-terminal.
func (r *repository) UpdateDetails(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	var affected int64
	err := r.Run(ctx, func(conn *gorm.DB) error {
		res := conn.Model(&models.LaundryOrder{}).
			Where("id = ? AND status NOT IN ?", id, []enums.LaundryOrderStatus{
				enums.LaundryOrderStatusDelivered,
				enums.LaundryOrderStatusCancelled,
			}).
			Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return db.Classify(err, "laundry order")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
	}
	return nil
}

// CompareAndSetPayment is the payment_status counterpart of
// CompareAndSetStatus.
func (r *repository) CompareAndSetPayment(ctx context.Context, id uuid.UUID, expected enums.PaymentStatus, updates map[string]any) error {
	var affected int64
	err := r.Run(ctx, func(conn *gorm.DB) error {
		res := conn.Model(&models.LaundryOrder{}).
			Where("id = ? AND payment_status = ?", id, expected).
			Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return db.Classify(err, "laundry order")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "order payment was modified concurrently").
			WithDetails(map[string]any{"expected_payment_status": string(expected)})
	}
	return nil
}
