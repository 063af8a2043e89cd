// Package dashboard derives read-only statistics from order snapshots. Nothing
// is persisted; every call recomputes from one captured instant.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	recentOrderCount = 5
	activeUserDays   = 7
	DefaultTrendDays = 7
	MaxTrendDays     = 90
)

// VendorDashboard summarises one laundry vendor.
type VendorDashboard struct {
	LaundryVendorID uuid.UUID                        `json:"laundry_vendor_id"`
	TotalOrders     int                              `json:"total_orders"`
	StatusCounts    map[enums.LaundryOrderStatus]int `json:"status_counts"`
	TodayOrders     int                              `json:"today_orders"`
	TodayRevenue    decimal.Decimal                  `json:"today_revenue"`
	MonthRevenue    decimal.Decimal                  `json:"month_revenue"`
	TotalRevenue    decimal.Decimal                  `json:"total_revenue"`
	ActiveItems     int64                            `json:"active_items"`
	RecentOrders    []OrderRow                       `json:"recent_orders"`
	GeneratedAt     time.Time                        `json:"generated_at"`
}

// FavouriteVendor names the vendor a user orders from most.
type FavouriteVendor struct {
	LaundryVendorID uuid.UUID `json:"laundry_vendor_id"`
	BusinessName    string    `json:"business_name"`
	OrderCount      int       `json:"order_count"`
}

// UserDashboard summarises one customer.
type UserDashboard struct {
	TotalOrders     int              `json:"total_orders"`
	PendingOrders   int              `json:"pending_orders"`
	DeliveredOrders int              `json:"delivered_orders"`
	TotalSpent      decimal.Decimal  `json:"total_spent"`
	FavouriteVendor *FavouriteVendor `json:"favourite_vendor,omitempty"`
	RecentOrders    []OrderRow       `json:"recent_orders"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// GlobalStats is the master overview.
type GlobalStats struct {
	ActiveCommunities int64           `json:"active_communities"`
	ActiveVendors     int64           `json:"active_vendors"`
	ActiveUsers       int64           `json:"active_users"`
	RecentlyActive    int64           `json:"recently_active_users"`
	TotalOrders       int             `json:"total_orders"`
	PendingOrders     int             `json:"pending_orders"`
	DeliveredOrders   int             `json:"delivered_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	MonthRevenue      decimal.Decimal `json:"month_revenue"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// Service builds dashboards.
type Service interface {
	Vendor(ctx context.Context, actor policy.Actor, laundryVendorID uuid.UUID) (*VendorDashboard, error)
	User(ctx context.Context, actor policy.Actor) (*UserDashboard, error)
	Global(ctx context.Context, actor policy.Actor) (*GlobalStats, error)
	OrderTrends(ctx context.Context, actor policy.Actor, days int) ([]Trend, error)
	VendorPerformance(ctx context.Context, actor policy.Actor) ([]VendorPerformance, error)
	RecentActivities(ctx context.Context, actor policy.Actor, limit int) ([]Activity, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the dashboard service. now defaults to time.Now.
func NewService(repo Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dashboard repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) Vendor(ctx context.Context, actor policy.Actor, laundryVendorID uuid.UUID) (*VendorDashboard, error) {
	if laundryVendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "laundry vendor id required")
	}
	account, err := s.repo.VendorAccount(ctx, laundryVendorID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.VendorManage, policy.Resource{VendorAccountID: account}); err != nil {
		return nil, err
	}

	w := NewWindows(s.now())

	var (
		orders      []OrderRow
		activeItems int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.repo.OrdersByVendor(gctx, laundryVendorID)
		return err
	})
	g.Go(func() error {
		var err error
		activeItems, err = s.repo.ActiveItemCount(gctx, laundryVendorID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	today := 0
	for _, o := range orders {
		if w.Today.Contains(o.CreatedAt) {
			today++
		}
	}

	return &VendorDashboard{
		LaundryVendorID: laundryVendorID,
		TotalOrders:     len(orders),
		StatusCounts:    CountByStatus(orders),
		TodayOrders:     today,
		TodayRevenue:    Revenue(orders, w.Today),
		MonthRevenue:    Revenue(orders, w.Month),
		TotalRevenue:    TotalRevenue(orders),
		ActiveItems:     activeItems,
		RecentOrders:    Recent(orders, recentOrderCount),
		GeneratedAt:     w.Now,
	}, nil
}

func (s *service) User(ctx context.Context, actor policy.Actor) (*UserDashboard, error) {
	if err := policy.Authorize(actor, policy.DashboardUser, policy.Resource{}); err != nil {
		return nil, err
	}
	w := NewWindows(s.now())

	orders, err := s.repo.OrdersByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	out := &UserDashboard{
		TotalOrders:  len(orders),
		TotalSpent:   TotalRevenue(orders),
		RecentOrders: Recent(orders, recentOrderCount),
		GeneratedAt:  w.Now,
	}
	for _, o := range orders {
		if isOpen(o) {
			out.PendingOrders++
		}
		if o.Status == enums.LaundryOrderStatusDelivered {
			out.DeliveredOrders++
		}
	}

	if vendorID, count, ok := favouriteVendor(orders); ok {
		names, err := s.repo.VendorNames(ctx, []uuid.UUID{vendorID})
		if err != nil {
			return nil, err
		}
		out.FavouriteVendor = &FavouriteVendor{
			LaundryVendorID: vendorID,
			BusinessName:    names[vendorID],
			OrderCount:      count,
		}
	}
	return out, nil
}

func (s *service) Global(ctx context.Context, actor policy.Actor) (*GlobalStats, error) {
	if err := policy.Authorize(actor, policy.DashboardGlobal, policy.Resource{}); err != nil {
		return nil, err
	}
	w := NewWindows(s.now())

	var (
		counts Counts
		orders []OrderRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.repo.Counts(gctx, w.Now.AddDate(0, 0, -activeUserDays))
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.repo.OrdersSince(gctx, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &GlobalStats{
		ActiveCommunities: counts.ActiveCommunities,
		ActiveVendors:     counts.ActiveVendors,
		ActiveUsers:       counts.ActiveUsers,
		RecentlyActive:    counts.RecentlyActive,
		TotalOrders:       len(orders),
		TotalRevenue:      TotalRevenue(orders),
		MonthRevenue:      Revenue(orders, w.Month),
		GeneratedAt:       w.Now,
	}
	for _, o := range orders {
		if isOpen(o) {
			stats.PendingOrders++
		}
		if o.Status == enums.LaundryOrderStatusDelivered {
			stats.DeliveredOrders++
		}
	}
	return stats, nil
}

func (s *service) OrderTrends(ctx context.Context, actor policy.Actor, days int) ([]Trend, error) {
	if err := policy.Authorize(actor, policy.DashboardGlobal, policy.Resource{}); err != nil {
		return nil, err
	}
	if days == 0 {
		days = DefaultTrendDays
	}
	if days < 1 || days > MaxTrendDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("days must be between 1 and %d", MaxTrendDays))
	}

	w := NewWindows(s.now())
	since := w.LastDays(days).Start
	orders, err := s.repo.OrdersSince(ctx, &since)
	if err != nil {
		return nil, err
	}
	return Trends(orders, w.DailyBuckets(days)), nil
}

func (s *service) VendorPerformance(ctx context.Context, actor policy.Actor) ([]VendorPerformance, error) {
	if err := policy.Authorize(actor, policy.DashboardGlobal, policy.Resource{}); err != nil {
		return nil, err
	}

	var (
		vendors []VendorSummary
		orders  []OrderRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vendors, err = s.repo.VendorSummaries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.repo.OrdersSince(gctx, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Performance(vendors, orders), nil
}

// RecentActivities merges the newest registrations (last week) with the last
// day's orders, vendor activations and payments.
func (s *service) RecentActivities(ctx context.Context, actor policy.Actor, limit int) ([]Activity, error) {
	if err := policy.Authorize(actor, policy.DashboardGlobal, policy.Resource{}); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultActivityLimit
	}
	if limit < 1 || limit > MaxActivityLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("limit must be between 1 and %d", MaxActivityLimit))
	}

	now := s.now()
	feeds, err := s.repo.Feeds(ctx, now.AddDate(0, 0, -userFeedDays), now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	return Activities(feeds, limit), nil
}
