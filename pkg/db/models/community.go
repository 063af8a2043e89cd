package models

import (
	"time"

	"github.com/google/uuid"
)

// Community is a tenant grouping that users join with Code.
type Community struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Code        string    `gorm:"column:code;not null;uniqueIndex"`
	Description *string   `gorm:"column:description"`
	Address     *string   `gorm:"column:address"`
	City        *string   `gorm:"column:city"`
	State       *string   `gorm:"column:state"`
	Country     string    `gorm:"column:country;not null;default:'India'"`
	PostalCode  *string   `gorm:"column:postal_code"`
	AdminName   *string   `gorm:"column:admin_name"`
	AdminEmail  *string   `gorm:"column:admin_email"`
	AdminPhone  *string   `gorm:"column:admin_phone"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
