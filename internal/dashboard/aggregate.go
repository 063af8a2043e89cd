package dashboard

import (
	"sort"
	"time"

	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// OrderRow is the slice of an order the aggregator reads.
type OrderRow struct {
	ID              uuid.UUID                `gorm:"column:id" json:"id"`
	OrderNumber     string                   `gorm:"column:order_number" json:"order_number"`
	UserID          uuid.UUID                `gorm:"column:user_id" json:"user_id"`
	LaundryVendorID uuid.UUID                `gorm:"column:laundry_vendor_id" json:"laundry_vendor_id"`
	Status          enums.LaundryOrderStatus `gorm:"column:status" json:"status"`
	TotalAmount     decimal.Decimal          `gorm:"column:total_amount" json:"total_amount"`
	CreatedAt       time.Time                `gorm:"column:created_at" json:"created_at"`
}

var openStatuses = []enums.LaundryOrderStatus{
	enums.LaundryOrderStatusPending,
	enums.LaundryOrderStatusConfirmed,
	enums.LaundryOrderStatusPickedUp,
	enums.LaundryOrderStatusReady,
}

// revenueStatuses are the statuses whose totals count as earned.
var revenueStatuses = []enums.LaundryOrderStatus{enums.LaundryOrderStatusDelivered}

func isOpen(o OrderRow) bool { return lo.Contains(openStatuses, o.Status) }

func earns(o OrderRow) bool { return lo.Contains(revenueStatuses, o.Status) }

// Revenue sums totals of earning orders created inside w.
func Revenue(orders []OrderRow, w Window) decimal.Decimal {
	return sumTotals(lo.Filter(orders, func(o OrderRow, _ int) bool {
		return earns(o) && w.Contains(o.CreatedAt)
	}))
}

// TotalRevenue sums totals of every earning order.
func TotalRevenue(orders []OrderRow) decimal.Decimal {
	return sumTotals(lo.Filter(orders, func(o OrderRow, _ int) bool { return earns(o) }))
}

func sumTotals(orders []OrderRow) decimal.Decimal {
	return lo.Reduce(orders, func(acc decimal.Decimal, o OrderRow, _ int) decimal.Decimal {
		return acc.Add(o.TotalAmount)
	}, decimal.Zero)
}

// CountByStatus returns a count for every status, including zeroes.
func CountByStatus(orders []OrderRow) map[enums.LaundryOrderStatus]int {
	counts := lo.CountValuesBy(orders, func(o OrderRow) enums.LaundryOrderStatus { return o.Status })
	for _, status := range enums.LaundryOrderStatuses() {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}
	return counts
}

// Recent returns up to n orders, newest first.
func Recent(orders []OrderRow, n int) []OrderRow {
	sorted := make([]OrderRow, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID.String() > sorted[j].ID.String()
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// favouriteVendor picks the vendor with the most orders. Ties go to the vendor
// ordered from first.
func favouriteVendor(orders []OrderRow) (uuid.UUID, int, bool) {
	if len(orders) == 0 {
		return uuid.Nil, 0, false
	}
	grouped := lo.GroupBy(orders, func(o OrderRow) uuid.UUID { return o.LaundryVendorID })

	var (
		best      uuid.UUID
		bestCount int
		bestFirst time.Time
	)
	for vendorID, vendorOrders := range grouped {
		first := lo.MinBy(vendorOrders, func(a, b OrderRow) bool { return a.CreatedAt.Before(b.CreatedAt) }).CreatedAt
		count := len(vendorOrders)
		if count > bestCount || (count == bestCount && first.Before(bestFirst)) {
			best, bestCount, bestFirst = vendorID, count, first
		}
	}
	return best, bestCount, true
}

// Trend is one daily bucket of the order trend report.
type Trend struct {
	Date    string          `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Trends aggregates orders into buckets.
func Trends(orders []OrderRow, buckets []Window) []Trend {
	return lo.Map(buckets, func(w Window, _ int) Trend {
		inBucket := lo.Filter(orders, func(o OrderRow, _ int) bool { return w.Contains(o.CreatedAt) })
		return Trend{
			Date:    w.Start.Format("2006-01-02"),
			Orders:  len(inBucket),
			Revenue: Revenue(inBucket, w),
		}
	})
}

// VendorSummary identifies a laundry vendor in the performance report.
type VendorSummary struct {
	LaundryVendorID uuid.UUID        `gorm:"column:laundry_vendor_id"`
	BusinessName    string           `gorm:"column:business_name"`
	VendorType      enums.VendorType `gorm:"column:vendor_type"`
	CommunityName   string           `gorm:"column:community_name"`
	IsActive        bool             `gorm:"column:is_active"`
}

// VendorPerformance is one row of the vendor ranking.
type VendorPerformance struct {
	LaundryVendorID   uuid.UUID        `json:"laundry_vendor_id"`
	BusinessName      string           `json:"business_name"`
	VendorType        enums.VendorType `json:"vendor_type"`
	CommunityName     string           `json:"community_name"`
	IsActive          bool             `json:"is_active"`
	OrderCount        int              `json:"order_count"`
	Revenue           decimal.Decimal  `json:"revenue"`
	AverageOrderValue decimal.Decimal  `json:"average_order_value"`
}

// Performance ranks vendors by earned revenue, highest first; ties sort by
// name. The average divides earned revenue by every order placed, rounded to
// two places.
func Performance(vendors []VendorSummary, orders []OrderRow) []VendorPerformance {
	grouped := lo.GroupBy(orders, func(o OrderRow) uuid.UUID { return o.LaundryVendorID })
	out := lo.Map(vendors, func(v VendorSummary, _ int) VendorPerformance {
		vendorOrders := grouped[v.LaundryVendorID]
		revenue := TotalRevenue(vendorOrders)
		avg := decimal.Zero
		if n := len(vendorOrders); n > 0 {
			avg = revenue.Div(decimal.NewFromInt(int64(n))).Round(2)
		}
		return VendorPerformance{
			LaundryVendorID:   v.LaundryVendorID,
			BusinessName:      v.BusinessName,
			VendorType:        v.VendorType,
			CommunityName:     v.CommunityName,
			IsActive:          v.IsActive,
			OrderCount:        len(vendorOrders),
			Revenue:           revenue,
			AverageOrderValue: avg,
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].BusinessName < out[j].BusinessName
	})
	return out
}
