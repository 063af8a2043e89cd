package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/communityhub/marketplace-backend/api/controllers"
	authcontrollers "github.com/communityhub/marketplace-backend/api/controllers/auth"
	catalogcontrollers "github.com/communityhub/marketplace-backend/api/controllers/catalog"
	communitycontrollers "github.com/communityhub/marketplace-backend/api/controllers/communities"
	dashboardcontrollers "github.com/communityhub/marketplace-backend/api/controllers/dashboard"
	laundrycontrollers "github.com/communityhub/marketplace-backend/api/controllers/laundry"
	ordercontrollers "github.com/communityhub/marketplace-backend/api/controllers/orders"
	paymentcontrollers "github.com/communityhub/marketplace-backend/api/controllers/payments"
	productcontrollers "github.com/communityhub/marketplace-backend/api/controllers/products"
	vendorcontrollers "github.com/communityhub/marketplace-backend/api/controllers/vendors"
	"github.com/communityhub/marketplace-backend/api/middleware"
	"github.com/communityhub/marketplace-backend/internal/auth"
	"github.com/communityhub/marketplace-backend/internal/catalog"
	"github.com/communityhub/marketplace-backend/internal/communities"
	"github.com/communityhub/marketplace-backend/internal/dashboard"
	"github.com/communityhub/marketplace-backend/internal/laundry"
	"github.com/communityhub/marketplace-backend/internal/orders"
	"github.com/communityhub/marketplace-backend/internal/payments"
	product "github.com/communityhub/marketplace-backend/internal/products"
	"github.com/communityhub/marketplace-backend/internal/vendors"
	"github.com/communityhub/marketplace-backend/pkg/auth/session"
	"github.com/communityhub/marketplace-backend/pkg/config"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	"github.com/communityhub/marketplace-backend/pkg/logger"
)

// KeyValueStore is the Redis surface used by rate limiting and idempotency.
type KeyValueStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
	Ping(ctx context.Context) error
}

// Services groups the domain services the router exposes.
type Services struct {
	Auth        auth.Service
	Communities communities.Service
	Vendors     vendors.Service
	Catalog     catalog.Service
	Products    product.Service
	Laundry     laundry.Service
	Orders      orders.Service
	Payments    payments.Service
	Dashboard   dashboard.Service
}

// Params carries everything NewRouter needs. Gatherer is only consulted when
// metrics are enabled.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Store    KeyValueStore
	Sessions session.AccessSessionChecker
	// Actors reloads callers per request; nil trusts the token claims.
	Actors   middleware.ActorResolver
	Gatherer prometheus.Gatherer
	Services Services
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	store := p.Store
	deps := map[string]controllers.Pinger{"database": p.DB}
	if store != nil {
		deps["redis"] = store
	}
	idempotent := middleware.Idempotency(store, cfg.Idempotency.TTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if cfg.Metrics.Enabled && p.Gatherer != nil {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	svc := p.Services
	bypass := middleware.NewTestBypass(cfg.App, cfg.FeatureFlags)

	authenticated := middleware.Auth(cfg.JWT, p.Sessions, p.Actors, bypass, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, store, logg)).Post("/login", authcontrollers.Login(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, store, logg)).Post("/register", authcontrollers.Register(svc.Auth, logg))
			r.Post("/refresh", authcontrollers.Refresh(svc.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Get("/me", authcontrollers.Me(svc.Auth, logg))
				r.Post("/join-community", authcontrollers.JoinCommunity(svc.Auth, logg))
				r.Post("/logout", authcontrollers.Logout(svc.Auth, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Route("/communities", func(r chi.Router) {
				r.Get("/", communitycontrollers.List(svc.Communities, logg))
				r.Get("/search", communitycontrollers.Search(svc.Communities, logg))
				r.Get("/{communityID}", communitycontrollers.Get(svc.Communities, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.UserRoleMaster))
					r.Post("/", communitycontrollers.Create(svc.Communities, logg))
					r.Get("/stats", communitycontrollers.Stats(svc.Communities, logg))
					r.Put("/{communityID}", communitycontrollers.Update(svc.Communities, logg))
					r.Patch("/{communityID}/active", communitycontrollers.SetActive(svc.Communities, logg))
					r.Delete("/{communityID}", communitycontrollers.Delete(svc.Communities, logg))
				})
			})

			r.Route("/vendors", func(r chi.Router) {
				r.Get("/", vendorcontrollers.List(svc.Vendors, logg))
				r.With(middleware.RequireRole(logg, enums.UserRoleMaster)).Post("/", vendorcontrollers.Create(svc.Vendors, logg))
				r.Get("/{vendorID}", vendorcontrollers.Get(svc.Vendors, logg))
				r.Put("/{vendorID}", vendorcontrollers.Update(svc.Vendors, logg))
				r.Get("/{vendorID}/products", productcontrollers.ListByVendor(svc.Products, logg))
				r.Post("/{vendorID}/products", productcontrollers.Create(svc.Products, logg))
			})

			r.Route("/products/{productID}", func(r chi.Router) {
				r.Get("/", productcontrollers.Get(svc.Products, logg))
				r.Put("/", productcontrollers.Update(svc.Products, logg))
				r.Delete("/", productcontrollers.Delete(svc.Products, logg))
			})

			r.Route("/laundry", func(r chi.Router) {
				r.Route("/vendors/{laundryVendorID}", func(r chi.Router) {
					r.Get("/", catalogcontrollers.GetProfile(svc.Catalog, logg))
					r.Put("/", catalogcontrollers.UpdateProfile(svc.Catalog, logg))
					r.Get("/items", catalogcontrollers.ListItems(svc.Catalog, logg))
					r.Post("/items", catalogcontrollers.CreateItem(svc.Catalog, logg))
					r.Get("/dashboard", dashboardcontrollers.Vendor(svc.Dashboard, logg))
				})
				r.Put("/items/{itemID}", catalogcontrollers.UpdateItem(svc.Catalog, logg))
				r.Delete("/items/{itemID}", catalogcontrollers.DeleteItem(svc.Catalog, logg))

				r.Get("/users/dashboard", dashboardcontrollers.User(svc.Dashboard, logg))

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", laundrycontrollers.ListOrders(svc.Laundry, logg))
					r.With(idempotent).Post("/", laundrycontrollers.CreateOrder(svc.Laundry, logg))
					r.Get("/{orderID}", laundrycontrollers.GetOrder(svc.Laundry, logg))
					r.Put("/{orderID}", laundrycontrollers.UpdateOrder(svc.Laundry, logg))
					r.With(idempotent).Post("/{orderID}/payment", laundrycontrollers.RecordPayment(svc.Payments, logg))
				})
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.ListOrders(svc.Orders, logg))
				r.With(idempotent).Post("/", ordercontrollers.CreateOrder(svc.Orders, logg))
				r.Get("/{orderID}", ordercontrollers.GetOrder(svc.Orders, logg))
				r.Put("/{orderID}/status", ordercontrollers.UpdateStatus(svc.Orders, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", paymentcontrollers.List(svc.Payments, logg))
				r.Get("/{paymentID}", paymentcontrollers.Get(svc.Payments, logg))
				r.With(idempotent).Post("/{paymentID}/refund", paymentcontrollers.Refund(svc.Payments, logg))
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleMaster))
				r.Get("/stats", dashboardcontrollers.Global(svc.Dashboard, logg))
				r.Get("/order-trends", dashboardcontrollers.OrderTrends(svc.Dashboard, logg))
				r.Get("/vendor-performance", dashboardcontrollers.VendorPerformance(svc.Dashboard, logg))
				r.Get("/recent-activities", dashboardcontrollers.RecentActivities(svc.Dashboard, logg))
			})
		})
	})

	return r
}
