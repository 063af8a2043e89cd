package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureID assigns a v4 id before insert so rows are portable across drivers.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

func (c *Community) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

func (l *LaundryVendor) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

func (i *LaundryItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

func (o *LaundryOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

func (i *LaundryOrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

func (h *OrderStatusHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Community{},
		&Vendor{},
		&LaundryVendor{},
		&LaundryItem{},
		&LaundryOrder{},
		&LaundryOrderItem{},
		&Payment{},
		&Product{},
		&Order{},
		&OrderItem{},
		&OrderStatusHistory{},
		&OutboxEvent{},
	}
}
