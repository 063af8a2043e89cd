package communities

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/internal/repo"
	"github.com/communityhub/marketplace-backend/pkg/db"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists communities.
type Repository interface {
	Create(ctx context.Context, community *models.Community) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Community, error)
	FindByCode(ctx context.Context, code string) (*models.Community, error)
	List(ctx context.Context) ([]models.Community, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Community, error)
	Stats(ctx context.Context) ([]Stats, error)
	Search(ctx context.Context, term string) ([]models.Community, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	repo.Base
}

// NewRepository builds a community repository on runner.
func NewRepository(runner db.Runner) Repository {
	return &repository{Base: repo.NewBase(runner)}
}

func (r *repository) Create(ctx context.Context, community *models.Community) error {
	return db.Classify(r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Create(community).Error
	}), "community")
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	var community models.Community
	if err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Take(&community, "id = ?", id).Error
	}); err != nil {
		return nil, db.Classify(err, "community")
	}
	return &community, nil
}

// FindByCode looks a community up by its join code, case-insensitively.
func (r *repository) FindByCode(ctx context.Context, code string) (*models.Community, error) {
	var community models.Community
	if err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Take(&community, "code = ?", strings.ToUpper(strings.TrimSpace(code))).Error
	}); err != nil {
		return nil, db.Classify(err, "community")
	}
	return &community, nil
}

// List returns every community, newest first.
func (r *repository) List(ctx context.Context) ([]models.Community, error) {
	var rows []models.Community
	if err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	}); err != nil {
		return nil, db.Classify(err, "communities")
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Community, error) {
	var community models.Community
	err := r.Run(ctx, func(conn *gorm.DB) error {
		if len(updates) > 0 {
			updates["updated_at"] = time.Now().UTC()
			res := conn.Model(&models.Community{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return conn.Take(&community, "id = ?", id).Error
	})
	if err != nil {
		return nil, db.Classify(err, "community")
	}
	return &community, nil
}

const statsQuery = `
SELECT c.id AS community_id,
       c.name AS community_name,
       (SELECT COUNT(*) FROM vendors v WHERE v.community_id = c.id AND v.is_active = ?) AS vendor_count,
       (SELECT COUNT(*) FROM users u WHERE u.community_id = c.id AND u.is_active = ?) AS user_count,
       (SELECT COUNT(*) FROM laundry_orders o
          JOIN laundry_vendors lv ON lv.id = o.laundry_vendor_id
          JOIN vendors v ON v.id = lv.vendor_id
         WHERE v.community_id = c.id) AS order_count,
       (SELECT COALESCE(SUM(o.total_amount), 0) FROM laundry_orders o
          JOIN laundry_vendors lv ON lv.id = o.laundry_vendor_id
          JOIN vendors v ON v.id = lv.vendor_id
         WHERE v.community_id = c.id AND o.status = ?) AS revenue
FROM communities c
WHERE c.is_active = ?`

// Stats returns per-community counters for active communities, highest
// delivered revenue first.
func (r *repository) Stats(ctx context.Context) ([]Stats, error) {
	var rows []Stats
	if err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Raw(statsQuery, true, true, enums.LaundryOrderStatusDelivered, true).Scan(&rows).Error
	}); err != nil {
		return nil, db.Classify(err, "community stats")
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Revenue.GreaterThan(rows[j].Revenue)
	})
	return rows, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Search matches term case-insensitively against name, code, address and
// city. LIKE wildcards in term match literally.
func (r *repository) Search(ctx context.Context, term string) ([]models.Community, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	var rows []models.Community
	if err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.
			Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(code) LIKE ? ESCAPE '\' OR LOWER(COALESCE(address, '')) LIKE ? ESCAPE '\' OR LOWER(COALESCE(city, '')) LIKE ? ESCAPE '\'`,
				pattern, pattern, pattern, pattern).
			Order("name ASC").Order("id ASC").
			Find(&rows).Error
	}); err != nil {
		return nil, db.Classify(err, "communities")
	}
	return rows, nil
}

// Delete removes a community that no user or vendor references.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return db.Classify(r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Transaction(func(tx *gorm.DB) error {
			var users, vendors int64
			if err := tx.Model(&models.User{}).Where("community_id = ?", id).Count(&users).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Vendor{}).Where("community_id = ?", id).Count(&vendors).Error; err != nil {
				return err
			}
			if users > 0 || vendors > 0 {
				return pkgerrors.New(pkgerrors.CodeConflict, "community still has members or vendors; deactivate it instead").
					WithDetails(map[string]any{"users": users, "vendors": vendors})
			}
			res := tx.Delete(&models.Community{}, "id = ?", id)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return nil
		})
	}), "community")
}
