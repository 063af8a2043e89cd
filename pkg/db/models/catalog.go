package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LaundryItem is a priced service offered by a laundry vendor.
type LaundryItem struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	LaundryVendorID    uuid.UUID       `gorm:"column:laundry_vendor_id;type:uuid;not null;index"`
	Name               string          `gorm:"column:name;not null"`
	Description        *string         `gorm:"column:description"`
	Category           string          `gorm:"column:category;not null"`
	PricePerPiece      decimal.Decimal `gorm:"column:price_per_piece;type:numeric(12,2);not null"`
	EstimatedTimeHours int             `gorm:"column:estimated_time_hours;not null;default:24"`
	IsAvailable        bool            `gorm:"column:is_available;not null;default:true"`
	ImageURL           *string         `gorm:"column:image_url"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Product is a catalog entry for non-laundry vendors.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID    uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name        string          `gorm:"column:name;not null"`
	Description *string         `gorm:"column:description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Category    *string         `gorm:"column:category"`
	Unit        *string         `gorm:"column:unit"`
	ImageURL    *string         `gorm:"column:image_url"`
	IsAvailable bool            `gorm:"column:is_available;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
