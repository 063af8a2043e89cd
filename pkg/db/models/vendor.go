package models

import (
	"time"

	dbtypes "github.com/communityhub/marketplace-backend/pkg/db/types"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Vendor is a business owned by a community. AdminID links the account that
// operates it.
type Vendor struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name           string            `gorm:"column:name;not null"`
	Type           enums.VendorType  `gorm:"column:type;type:text;not null"`
	Description    *string           `gorm:"column:description"`
	CommunityID    uuid.UUID         `gorm:"column:community_id;type:uuid;not null;index"`
	AdminID        *uuid.UUID        `gorm:"column:admin_id;type:uuid;index"`
	ContactEmail   *string           `gorm:"column:contact_email"`
	ContactPhone   *string           `gorm:"column:contact_phone"`
	Address        *string           `gorm:"column:address"`
	OperatingHours dbtypes.StringMap `gorm:"column:operating_hours;type:jsonb"`
	IsActive       bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// LaundryVendor is the laundry-specific profile of a Vendor.
type LaundryVendor struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	VendorID           uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex"`
	BusinessName       string             `gorm:"column:business_name;not null"`
	Description        *string            `gorm:"column:description"`
	PickupTimeStart    string             `gorm:"column:pickup_time_start;not null;default:'08:00'"`
	PickupTimeEnd      string             `gorm:"column:pickup_time_end;not null;default:'18:00'"`
	DeliveryTimeHours  int                `gorm:"column:delivery_time_hours;not null;default:24"`
	MinimumOrderAmount decimal.Decimal    `gorm:"column:minimum_order_amount;type:numeric(12,2);not null"`
	PickupCharge       decimal.Decimal    `gorm:"column:pickup_charge;type:numeric(12,2);not null"`
	DeliveryCharge     decimal.Decimal    `gorm:"column:delivery_charge;type:numeric(12,2);not null"`
	ServiceAreas       dbtypes.StringList `gorm:"column:service_areas;type:jsonb"`
	IsActive           bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
