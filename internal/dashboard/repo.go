package dashboard

import (
	"context"
	"time"

	"github.com/communityhub/marketplace-backend/internal/repo"
	"github.com/communityhub/marketplace-backend/pkg/db"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const orderColumns = "id, order_number, user_id, laundry_vendor_id, status, total_amount, created_at"

// Counts are the platform-wide entity counters.
type Counts struct {
	ActiveCommunities int64
	ActiveVendors     int64
	ActiveUsers       int64
	RecentlyActive    int64
}

// Repository loads order snapshots and counters for the dashboards.
type Repository interface {
	VendorAccount(ctx context.Context, laundryVendorID uuid.UUID) (*uuid.UUID, error)
	VendorNames(ctx context.Context, laundryVendorIDs []uuid.UUID) (map[uuid.UUID]string, error)
	OrdersByVendor(ctx context.Context, laundryVendorID uuid.UUID) ([]OrderRow, error)
	OrdersByUser(ctx context.Context, userID uuid.UUID) ([]OrderRow, error)
	OrdersSince(ctx context.Context, since *time.Time) ([]OrderRow, error)
	ActiveItemCount(ctx context.Context, laundryVendorID uuid.UUID) (int64, error)
	Counts(ctx context.Context, activeSince time.Time) (Counts, error)
	VendorSummaries(ctx context.Context) ([]VendorSummary, error)
	Feeds(ctx context.Context, usersSince, since time.Time) (Feeds, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds the dashboard read repository.
func NewRepository(runner db.Runner) Repository {
	return &repository{Base: repo.NewBase(runner)}
}

func (r *repository) VendorAccount(ctx context.Context, laundryVendorID uuid.UUID) (*uuid.UUID, error) {
	var row struct {
		AdminID *uuid.UUID `gorm:"column:admin_id"`
	}
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Table("laundry_vendors AS lv").
			Select("v.admin_id").
			Joins("JOIN vendors v ON v.id = lv.vendor_id").
			Where("lv.id = ?", laundryVendorID).
			Take(&row).Error
	})
	if err != nil {
		return nil, db.Classify(err, "laundry vendor")
	}
	return row.AdminID, nil
}

func (r *repository) VendorNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.LaundryVendor
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Select("id, business_name").Where("id IN ?", ids).Find(&rows).Error
	})
	if err != nil {
		return nil, db.Classify(err, "laundry vendors")
	}
	for _, row := range rows {
		out[row.ID] = row.BusinessName
	}
	return out, nil
}

func (r *repository) orders(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]OrderRow, error) {
	var rows []OrderRow
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Model(&models.LaundryOrder{}).Select(orderColumns).Scopes(scope).Find(&rows).Error
	})
	if err != nil {
		return nil, db.Classify(err, "laundry orders")
	}
	return rows, nil
}

func (r *repository) OrdersByVendor(ctx context.Context, laundryVendorID uuid.UUID) ([]OrderRow, error) {
	return r.orders(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("laundry_vendor_id = ?", laundryVendorID)
	})
}

func (r *repository) OrdersByUser(ctx context.Context, userID uuid.UUID) ([]OrderRow, error) {
	return r.orders(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userID)
	})
}

// OrdersSince returns every order created at or after since; nil means all.
func (r *repository) OrdersSince(ctx context.Context, since *time.Time) ([]OrderRow, error) {
	return r.orders(ctx, func(q *gorm.DB) *gorm.DB {
		if since == nil {
			return q
		}
		return q.Where("created_at >= ?", *since)
	})
}

func (r *repository) ActiveItemCount(ctx context.Context, laundryVendorID uuid.UUID) (int64, error) {
	var count int64
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Model(&models.LaundryItem{}).
			Where("laundry_vendor_id = ? AND is_available = ?", laundryVendorID, true).
			Count(&count).Error
	})
	return count, db.Classify(err, "laundry items")
}

func (r *repository) Counts(ctx context.Context, activeSince time.Time) (Counts, error) {
	var c Counts
	err := r.Run(ctx, func(conn *gorm.DB) error {
		if err := conn.Model(&models.Community{}).Where("is_active = ?", true).Count(&c.ActiveCommunities).Error; err != nil {
			return err
		}
		if err := conn.Model(&models.Vendor{}).Where("is_active = ?", true).Count(&c.ActiveVendors).Error; err != nil {
			return err
		}
		if err := conn.Model(&models.User{}).Where("is_active = ?", true).Count(&c.ActiveUsers).Error; err != nil {
			return err
		}
		return conn.Model(&models.User{}).
			Where("is_active = ? AND last_login_at >= ?", true, activeSince).
			Count(&c.RecentlyActive).Error
	})
	return c, db.Classify(err, "dashboard counts")
}

func (r *repository) VendorSummaries(ctx context.Context) ([]VendorSummary, error) {
	var rows []VendorSummary
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Table("laundry_vendors AS lv").
			Select("lv.id AS laundry_vendor_id, lv.business_name, v.type AS vendor_type, c.name AS community_name, v.is_active").
			Joins("JOIN vendors v ON v.id = lv.vendor_id").
			Joins("JOIN communities c ON c.id = v.community_id").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, db.Classify(err, "vendor summaries")
	}
	return rows, nil
}

// Feeds loads the newest users created since usersSince and the newest orders,
// vendor activations and paid payments since since.
func (r *repository) Feeds(ctx context.Context, usersSince, since time.Time) (Feeds, error) {
	var f Feeds
	err := r.Run(ctx, func(conn *gorm.DB) error {
		if err := conn.Table("users AS u").
			Select("u.id, u.first_name, u.last_name, u.created_at, c.name AS community_name").
			Joins("LEFT JOIN communities c ON c.id = u.community_id").
			Where("u.created_at >= ?", usersSince).
			Order("u.created_at DESC").Limit(userFeedSize).
			Scan(&f.Users).Error; err != nil {
			return err
		}
		if err := conn.Table("laundry_orders AS o").
			Select("o.id, o.order_number, o.created_at, lv.business_name").
			Joins("JOIN laundry_vendors lv ON lv.id = o.laundry_vendor_id").
			Where("o.created_at >= ?", since).
			Order("o.created_at DESC").Limit(orderFeedSize).
			Scan(&f.Orders).Error; err != nil {
			return err
		}
		if err := conn.Model(&models.Vendor{}).
			Select("id, name, updated_at").
			Where("is_active = ? AND updated_at >= ?", true, since).
			Order("updated_at DESC").Limit(vendorFeedSize).
			Scan(&f.Vendors).Error; err != nil {
			return err
		}
		return conn.Model(&models.Payment{}).
			Select("id, amount, created_at").
			Where("status = ? AND created_at >= ?", enums.PaymentStatusPaid, since).
			Order("created_at DESC").Limit(paymentFeedSize).
			Scan(&f.Payments).Error
	})
	return f, db.Classify(err, "activity feeds")
}
