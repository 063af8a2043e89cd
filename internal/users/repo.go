package users

import (
	"context"
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/internal/repo"
	"github.com/communityhub/marketplace-backend/pkg/db"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	SetCommunity(ctx context.Context, id, communityID uuid.UUID) error
}

type repository struct {
	repo.Base
}

// NewRepository constructs a users repo on the provided runner.
func NewRepository(runner db.Runner) Repository {
	return &repository{Base: repo.NewBase(runner)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

// Create inserts a new user. A duplicate email is CONFLICT.
func (r *repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Create(user).Error
	}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, db.Classify(err, "email")
		}
		return nil, db.Classify(err, "user")
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Take(&user).Error
	})
	if err != nil {
		return nil, db.Classify(err, "user")
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Take(&user, "id = ?", id).Error
	})
	if err != nil {
		return nil, db.Classify(err, "user")
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return db.Classify(r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Model(&models.User{}).
			Where("id = ?", id).
			UpdateColumn("last_login_at", at).Error
	}), "user")
}

// UpdatePasswordHash replaces the stored credential hash.
func (r *repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return db.Classify(r.Run(ctx, func(conn *gorm.DB) error {
		return conn.Model(&models.User{}).
			Where("id = ?", id).
			Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()}).Error
	}), "user")
}

// SetCommunity moves the user into communityID.
func (r *repository) SetCommunity(ctx context.Context, id, communityID uuid.UUID) error {
	var affected int64
	err := r.Run(ctx, func(conn *gorm.DB) error {
		res := conn.Model(&models.User{}).
			Where("id = ?", id).
			Updates(map[string]any{"community_id": communityID, "updated_at": time.Now().UTC()})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return db.Classify(err, "user")
	}
	if affected == 0 {
		return db.Classify(gorm.ErrRecordNotFound, "user")
	}
	return nil
}
