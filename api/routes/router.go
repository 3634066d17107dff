package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gadgethub/storefront-backend/api/controllers"
	"github.com/gadgethub/storefront-backend/api/middleware"
	"github.com/gadgethub/storefront-backend/internal/admin"
	"github.com/gadgethub/storefront-backend/internal/auth"
	"github.com/gadgethub/storefront-backend/internal/cart"
	"github.com/gadgethub/storefront-backend/internal/catalog"
	"github.com/gadgethub/storefront-backend/internal/identity"
	"github.com/gadgethub/storefront-backend/internal/orders"
	"github.com/gadgethub/storefront-backend/internal/payments"
	"github.com/gadgethub/storefront-backend/internal/reviews"
	"github.com/gadgethub/storefront-backend/pkg/auth/session"
	"github.com/gadgethub/storefront-backend/pkg/config"
	"github.com/gadgethub/storefront-backend/pkg/enums"
	"github.com/gadgethub/storefront-backend/pkg/logger"
	"github.com/gadgethub/storefront-backend/pkg/metrics"
	"github.com/gadgethub/storefront-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything NewRouter wires into the route tree.
type Deps struct {
	DB              pinger
	Redis           *redis.Client
	SessionManager  sessionManager
	HTTPMetrics     *metrics.HTTPMetrics
	MetricsGatherer prometheus.Gatherer

	CatalogService  catalog.Service
	CartService     cart.Service
	OrdersService   orders.Service
	ReviewsService  reviews.Service
	IdentityService identity.Service
	AuthService     auth.Service
	AdminService    admin.Service
	PaymentsService *payments.Service
	PaymentsGuard   *payments.EventGuard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.Metrics(deps.HTTPMetrics),
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

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/webhooks", func(r chi.Router) {
		r.Post("/payments", controllers.PaymentsWebhook(deps.PaymentsService, deps.PaymentsGuard, cfg.Payments.WebhookSecret, logg))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(middleware.AnonymousSession())
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg), middleware.Idempotency(deps.Redis, logg)).
			Post("/register", controllers.Register(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.Login(deps.AuthService, logg))
		r.Post("/refresh", controllers.Refresh(deps.AuthService, logg))
		r.Post("/logout", controllers.Logout(deps.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, deps.SessionManager, logg)).
			Get("/me", controllers.Me(deps.IdentityService, logg))
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(deps.CatalogService, logg))
		r.Get("/slug/{slug}", controllers.GetProductBySlug(deps.CatalogService, logg))
		r.Get("/{id}", controllers.GetProduct(deps.CatalogService, logg))
		r.Get("/{id}/reviews", controllers.ListProductReviews(deps.ReviewsService, logg))
		r.With(
			middleware.Auth(cfg.JWT, deps.SessionManager, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/{id}/reviews", controllers.SubmitProductReview(deps.ReviewsService, logg))
	})

	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", controllers.ListCategories(deps.CatalogService, logg))
		r.Get("/slug/{slug}", controllers.GetCategoryBySlug(deps.CatalogService, logg))
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(middleware.AnonymousSession())
		r.Use(middleware.OptionalAuth(cfg.JWT, deps.SessionManager, logg))
		r.Get("/", controllers.GetCart(deps.CartService, logg))
		r.Post("/", controllers.AddToCart(deps.CartService, logg))
		r.Delete("/", controllers.ClearCart(deps.CartService, logg))
		r.Put("/{id}", controllers.UpdateCartItem(deps.CartService, logg))
		r.Delete("/{id}", controllers.RemoveCartItem(deps.CartService, logg))
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))
		r.Post("/", controllers.CreateOrder(deps.OrdersService, logg))
		r.Get("/", controllers.ListMyOrders(deps.OrdersService, logg))
		r.Get("/{id}", controllers.GetOrder(deps.OrdersService, logg))
		r.Get("/{id}/items", controllers.GetOrderItems(deps.OrdersService, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
		r.Get("/stats", controllers.AdminStats(deps.AdminService, logg))
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminListProducts(deps.CatalogService, logg))
			r.Post("/", controllers.AdminCreateProduct(deps.CatalogService, logg))
			r.Put("/{id}", controllers.AdminUpdateProduct(deps.CatalogService, logg))
			r.Delete("/{id}", controllers.AdminDeleteProduct(deps.CatalogService, logg))
		})
		r.Post("/categories", controllers.AdminCreateCategory(deps.CatalogService, logg))
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(deps.OrdersService, logg))
			r.Put("/{id}/status", controllers.AdminUpdateOrderStatus(deps.OrdersService, logg))
		})
		r.Get("/users", controllers.AdminListUsers(deps.IdentityService, logg))
	})

	return r
}
