package payments

import (
	"context"

	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
)

// Gateway settles a pending payment. A real processor would answer
// asynchronously through a webhook; the simulated one settles inline.
type Gateway interface {
	Charge(ctx context.Context, payment *models.Payment) (enums.PaymentStatus, error)
}

// SimulatedGateway marks every charge as paid.
type SimulatedGateway struct{}

func (SimulatedGateway) Charge(ctx context.Context, payment *models.Payment) (enums.PaymentStatus, error) {
	if err := ctx.Err(); err != nil {
		return enums.PaymentStatusFailed, err
	}
	return enums.PaymentStatusPaid, nil
}
