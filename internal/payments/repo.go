package payments

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

// Repository persists payment rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	Find(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, userID *uuid.UUID, params pagination.Params) (pagination.Page[models.Payment], error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected enums.PaymentStatus, updates map[string]any) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a payments repository on top of runner.
func NewRepository(runner db.Runner) Repository {
	return &repository{Base: repo.NewBase(runner)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Create(payment).Error
	})
	return db.Classify(err, "payment")
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Where("id = ?", id).Take(&payment).Error
	})
	if err != nil {
		return nil, db.Classify(err, "payment")
	}
	return &payment, nil
}

func (r *repository) List(ctx context.Context, userID *uuid.UUID, params pagination.Params) (pagination.Page[models.Payment], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Payment]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var rows []models.Payment
	err = r.Run(ctx, func(conn *gorm.DB) error {
		q := conn.Model(&models.Payment{})
		if userID != nil {
			q = q.Where("user_id = ?", *userID)
		}
		return q.Scopes(pagination.Keyset(cursor, params.Limit)).Find(&rows).Error
	})
	if err != nil {
		return pagination.Page[models.Payment]{}, db.Classify(err, "payments")
	}
	return pagination.Trim(rows, params.Limit, func(p models.Payment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

// CompareAndSetStatus reports false when the row no longer has status
// expected.
func (r *repository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected enums.PaymentStatus, updates map[string]any) (bool, error) {
	var affected int64
	err := r.Run(ctx, func(conn *gorm.DB) error {
		res := conn.Model(&models.Payment{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, db.Classify(err, "payment")
	}
	return affected > 0, nil
}
