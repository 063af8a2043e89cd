package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Activity kinds.
const (
	ActivityNewUser      = "new_user"
	ActivityNewOrder     = "new_order"
	ActivityVendorActive = "vendor_active"
	ActivityPayment      = "payment"
)

const (
	DefaultActivityLimit = 10
	MaxActivityLimit     = 50

	userFeedDays    = 7
	userFeedSize    = 3
	orderFeedSize   = 3
	vendorFeedSize  = 2
	paymentFeedSize = 2
)

// Activity is one line of the platform activity feed.
type Activity struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type userFeedRow struct {
	ID            uuid.UUID `gorm:"column:id"`
	FirstName     string    `gorm:"column:first_name"`
	LastName      string    `gorm:"column:last_name"`
	CommunityName *string   `gorm:"column:community_name"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

type orderFeedRow struct {
	ID           uuid.UUID `gorm:"column:id"`
	OrderNumber  string    `gorm:"column:order_number"`
	BusinessName string    `gorm:"column:business_name"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

type vendorFeedRow struct {
	ID        uuid.UUID `gorm:"column:id"`
	Name      string    `gorm:"column:name"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

type paymentFeedRow struct {
	ID        uuid.UUID       `gorm:"column:id"`
	Amount    decimal.Decimal `gorm:"column:amount"`
	CreatedAt time.Time       `gorm:"column:created_at"`
}

// Feeds holds the newest rows of each activity source.
type Feeds struct {
	Users    []userFeedRow
	Orders   []orderFeedRow
	Vendors  []vendorFeedRow
	Payments []paymentFeedRow
}

// Activities flattens feeds into one list, newest first, capped at limit.
func Activities(f Feeds, limit int) []Activity {
	out := make([]Activity, 0, len(f.Users)+len(f.Orders)+len(f.Vendors)+len(f.Payments))
	out = append(out, lo.Map(f.Users, func(u userFeedRow, _ int) Activity {
		community := "an unknown community"
		if u.CommunityName != nil {
			community = *u.CommunityName
		}
		return Activity{
			ID:        u.ID,
			Type:      ActivityNewUser,
			Message:   fmt.Sprintf("New user %s %s registered in %s", u.FirstName, u.LastName, community),
			Timestamp: u.CreatedAt,
		}
	})...)
	out = append(out, lo.Map(f.Orders, func(o orderFeedRow, _ int) Activity {
		return Activity{
			ID:        o.ID,
			Type:      ActivityNewOrder,
			Message:   fmt.Sprintf("Order %s placed with %s", o.OrderNumber, o.BusinessName),
			Timestamp: o.CreatedAt,
		}
	})...)
	out = append(out, lo.Map(f.Vendors, func(v vendorFeedRow, _ int) Activity {
		return Activity{
			ID:        v.ID,
			Type:      ActivityVendorActive,
			Message:   v.Name + " went online",
			Timestamp: v.UpdatedAt,
		}
	})...)
	out = append(out, lo.Map(f.Payments, func(p paymentFeedRow, _ int) Activity {
		return Activity{
			ID:        p.ID,
			Type:      ActivityPayment,
			Message:   fmt.Sprintf("Payment of %s received", p.Amount.StringFixed(2)),
			Timestamp: p.CreatedAt,
		}
	})...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
