package payments

import (
	"time"

	"github.com/communityhub/marketplace-backend/internal/laundry"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentDTO is the public shape of a payment.
type PaymentDTO struct {
	ID            uuid.UUID           `json:"id"`
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	Amount        decimal.Decimal     `json:"amount"`
	PaymentMethod string              `json:"payment_method"`
	Status        enums.PaymentStatus `json:"status"`
	TransactionID string              `json:"transaction_id"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	RefundedAt    *time.Time          `json:"refunded_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ResultDTO pairs a payment with the order it settled.
type ResultDTO struct {
	Payment PaymentDTO       `json:"payment"`
	Order   laundry.OrderDTO `json:"order"`
}

// FromModel maps a persisted payment.
func FromModel(p *models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            p.ID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		PaidAt:        p.PaidAt,
		RefundedAt:    p.RefundedAt,
		CreatedAt:     p.CreatedAt,
	}
}

// ToDTO renders the result for the wire.
func (r *RecordResult) ToDTO() ResultDTO {
	return ResultDTO{Payment: FromModel(r.Payment), Order: laundry.OrderFromModel(r.Order)}
}
