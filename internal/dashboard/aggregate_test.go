package dashboard

import (
	"testing"
	"time"

	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func row(vendor uuid.UUID, status enums.LaundryOrderStatus, total string, created time.Time) OrderRow {
	return OrderRow{
		ID:              uuid.New(),
		LaundryVendorID: vendor,
		Status:          status,
		TotalAmount:     decimal.RequireFromString(total),
		CreatedAt:       created,
	}
}

func TestRevenueCountsDeliveredInsideWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	w := NewWindows(now)
	vendor := uuid.New()
	orders := []OrderRow{
		row(vendor, enums.LaundryOrderStatusDelivered, "212.40", now.Add(-time.Hour)),
		row(vendor, enums.LaundryOrderStatusDelivered, "100.00", now.AddDate(0, 0, -3)),
		row(vendor, enums.LaundryOrderStatusConfirmed, "999.00", now.Add(-time.Minute)),
		row(vendor, enums.LaundryOrderStatusCancelled, "50.00", now.Add(-time.Minute)),
		row(vendor, enums.LaundryOrderStatusDelivered, "70.00", now.AddDate(0, -1, 0)),
	}

	if got := Revenue(orders, w.Today); !got.Equal(decimal.RequireFromString("212.40")) {
		t.Fatalf("today revenue = %s", got)
	}
	if got := Revenue(orders, w.Month); !got.Equal(decimal.RequireFromString("312.40")) {
		t.Fatalf("month revenue = %s", got)
	}
	if got := TotalRevenue(orders); !got.Equal(decimal.RequireFromString("382.40")) {
		t.Fatalf("total revenue = %s", got)
	}
}

func TestCountByStatusZeroFills(t *testing.T) {
	vendor := uuid.New()
	now := time.Now().UTC()
	counts := CountByStatus([]OrderRow{
		row(vendor, enums.LaundryOrderStatusPending, "1", now),
		row(vendor, enums.LaundryOrderStatusPending, "1", now),
		row(vendor, enums.LaundryOrderStatusReady, "1", now),
	})

	if len(counts) != len(enums.LaundryOrderStatuses()) {
		t.Fatalf("expected every status present, got %v", counts)
	}
	if counts[enums.LaundryOrderStatusPending] != 2 || counts[enums.LaundryOrderStatusReady] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if counts[enums.LaundryOrderStatusDelivered] != 0 {
		t.Fatalf("delivered should be zero, got %d", counts[enums.LaundryOrderStatusDelivered])
	}
}

func TestRecentNewestFirst(t *testing.T) {
	vendor := uuid.New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var orders []OrderRow
	for i := 0; i < 8; i++ {
		orders = append(orders, row(vendor, enums.LaundryOrderStatusPending, "1", base.Add(time.Duration(i)*time.Hour)))
	}

	recent := Recent(orders, 5)
	if len(recent) != 5 {
		t.Fatalf("expected 5 orders, got %d", len(recent))
	}
	if !recent[0].CreatedAt.Equal(orders[7].CreatedAt) || !recent[4].CreatedAt.Equal(orders[3].CreatedAt) {
		t.Fatalf("unexpected ordering %v", recent)
	}
	if !orders[0].CreatedAt.Equal(base) {
		t.Fatal("input slice must not be reordered")
	}
	if got := Recent(orders[:2], 5); len(got) != 2 {
		t.Fatalf("expected all orders when fewer than n, got %d", len(got))
	}
}

func TestFavouriteVendorPicksMostOrdered(t *testing.T) {
	if _, _, ok := favouriteVendor(nil); ok {
		t.Fatal("no orders means no favourite")
	}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()
	orders := []OrderRow{
		row(b, enums.LaundryOrderStatusDelivered, "1", base.Add(2*time.Hour)),
		row(a, enums.LaundryOrderStatusDelivered, "1", base),
		row(b, enums.LaundryOrderStatusDelivered, "1", base.Add(3*time.Hour)),
		row(a, enums.LaundryOrderStatusPending, "1", base.Add(4*time.Hour)),
	}
	id, count, ok := favouriteVendor(orders)
	if !ok || id != a || count != 2 {
		t.Fatalf("tie should go to the vendor ordered from first, got %v x%d", id, count)
	}

	orders = append(orders, row(b, enums.LaundryOrderStatusPending, "1", base.Add(5*time.Hour)))
	if id, count, _ := favouriteVendor(orders); id != b || count != 3 {
		t.Fatalf("expected b x3, got %v x%d", id, count)
	}
}

func TestTrendsCountEachOrderOnce(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	w := NewWindows(now)
	vendor := uuid.New()
	midnight := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	orders := []OrderRow{
		row(vendor, enums.LaundryOrderStatusDelivered, "100.00", midnight),
		row(vendor, enums.LaundryOrderStatusDelivered, "40.00", midnight.Add(-time.Nanosecond)),
		row(vendor, enums.LaundryOrderStatusPending, "10.00", now),
		row(vendor, enums.LaundryOrderStatusDelivered, "5.00", now.AddDate(0, 0, -30)),
	}

	trends := Trends(orders, w.DailyBuckets(3))
	if len(trends) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(trends))
	}
	want := []struct {
		date    string
		orders  int
		revenue string
	}{
		{"2026-03-13", 1, "40.00"},
		{"2026-03-14", 1, "100.00"},
		{"2026-03-15", 1, "0"},
	}
	total := 0
	for i, tr := range trends {
		total += tr.Orders
		if tr.Date != want[i].date || tr.Orders != want[i].orders || !tr.Revenue.Equal(decimal.RequireFromString(want[i].revenue)) {
			t.Fatalf("bucket %d = %+v, want %+v", i, tr, want[i])
		}
	}
	if total != 3 {
		t.Fatalf("orders double counted or dropped: %d", total)
	}
}

func TestPerformanceRanksByEarnedRevenue(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	busy, quiet, idle := uuid.New(), uuid.New(), uuid.New()
	vendors := []VendorSummary{
		{LaundryVendorID: idle, BusinessName: "Idle Irons", IsActive: true},
		{LaundryVendorID: quiet, BusinessName: "Quiet Press", IsActive: true},
		{LaundryVendorID: busy, BusinessName: "Busy Suds", IsActive: true},
	}
	orders := []OrderRow{
		row(busy, enums.LaundryOrderStatusDelivered, "200.00", now),
		row(busy, enums.LaundryOrderStatusDelivered, "100.00", now),
		row(busy, enums.LaundryOrderStatusPending, "500.00", now),
		row(quiet, enums.LaundryOrderStatusDelivered, "50.00", now),
		row(quiet, enums.LaundryOrderStatusCancelled, "80.00", now),
	}

	got := Performance(vendors, orders)
	if len(got) != 3 {
		t.Fatalf("expected a row per vendor, got %d", len(got))
	}
	if got[0].LaundryVendorID != busy || got[1].LaundryVendorID != quiet || got[2].LaundryVendorID != idle {
		t.Fatalf("unexpected order: %s, %s, %s", got[0].BusinessName, got[1].BusinessName, got[2].BusinessName)
	}
	if got[0].OrderCount != 3 || !got[0].Revenue.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("busy row = %+v", got[0])
	}
	if !got[0].AverageOrderValue.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("busy average = %s", got[0].AverageOrderValue)
	}
	if !got[1].AverageOrderValue.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("quiet average = %s", got[1].AverageOrderValue)
	}
	if got[2].OrderCount != 0 || !got[2].Revenue.IsZero() || !got[2].AverageOrderValue.IsZero() {
		t.Fatalf("idle row = %+v", got[2])
	}
}

func TestActivitiesMergeNewestFirst(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	community := "Palm Grove"
	feeds := Feeds{
		Users: []userFeedRow{
			{ID: uuid.New(), FirstName: "Asha", LastName: "Rao", CommunityName: &community, CreatedAt: now.Add(-3 * time.Hour)},
			{ID: uuid.New(), FirstName: "Ben", LastName: "Ng", CreatedAt: now.AddDate(0, 0, -2)},
		},
		Orders:   []orderFeedRow{{ID: uuid.New(), OrderNumber: "LND-1", BusinessName: "Fresh Fold", CreatedAt: now.Add(-time.Hour)}},
		Vendors:  []vendorFeedRow{{ID: uuid.New(), Name: "Fresh Fold", UpdatedAt: now.Add(-2 * time.Hour)}},
		Payments: []paymentFeedRow{{ID: uuid.New(), Amount: decimal.RequireFromString("118"), CreatedAt: now.Add(-time.Minute)}},
	}

	got := Activities(feeds, DefaultActivityLimit)
	if len(got) != 5 {
		t.Fatalf("expected 5 activities, got %d", len(got))
	}
	wantTypes := []string{ActivityPayment, ActivityNewOrder, ActivityVendorActive, ActivityNewUser, ActivityNewUser}
	for i, want := range wantTypes {
		if got[i].Type != want {
			t.Fatalf("activity %d: expected %s got %s", i, want, got[i].Type)
		}
	}
	if got[0].Message != "Payment of 118.00 received" {
		t.Fatalf("payment message = %q", got[0].Message)
	}
	if got[3].Message != "New user Asha Rao registered in Palm Grove" {
		t.Fatalf("user message = %q", got[3].Message)
	}
	if got[4].Message != "New user Ben Ng registered in an unknown community" {
		t.Fatalf("user message = %q", got[4].Message)
	}

	if capped := Activities(feeds, 2); len(capped) != 2 || capped[1].Type != ActivityNewOrder {
		t.Fatalf("expected the two newest, got %+v", capped)
	}
}
