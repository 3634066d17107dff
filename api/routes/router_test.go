package routes

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gadgethub/storefront-backend/internal/admin"
	"github.com/gadgethub/storefront-backend/internal/auth"
	"github.com/gadgethub/storefront-backend/internal/cart"
	"github.com/gadgethub/storefront-backend/internal/catalog"
	"github.com/gadgethub/storefront-backend/internal/identity"
	"github.com/gadgethub/storefront-backend/internal/orders"
	"github.com/gadgethub/storefront-backend/internal/payments"
	"github.com/gadgethub/storefront-backend/internal/reviews"
	pkgauth "github.com/gadgethub/storefront-backend/pkg/auth"
	"github.com/gadgethub/storefront-backend/pkg/auth/session"
	"github.com/gadgethub/storefront-backend/pkg/config"
	"github.com/gadgethub/storefront-backend/pkg/enums"
	"github.com/gadgethub/storefront-backend/pkg/logger"
	"github.com/gadgethub/storefront-backend/pkg/pagination"
	"github.com/gadgethub/storefront-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type stubCatalogService struct{}

func (stubCatalogService) ListProducts(ctx context.Context, input catalog.ListProductsInput) (*catalog.ProductListResult, error) {
	return &catalog.ProductListResult{}, nil
}

func (stubCatalogService) GetProduct(ctx context.Context, idOrSlug string) (*catalog.ProductDetail, error) {
	return &catalog.ProductDetail{ProductSummary: catalog.ProductSummary{Slug: idOrSlug}}, nil
}

func (stubCatalogService) ListCategories(ctx context.Context) ([]catalog.CategoryDTO, error) {
	return []catalog.CategoryDTO{}, nil
}

func (stubCatalogService) GetCategoryBySlug(ctx context.Context, slug string) (*catalog.CategoryDTO, error) {
	return &catalog.CategoryDTO{Slug: slug}, nil
}

func (stubCatalogService) CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*catalog.ProductDetail, error) {
	panic("unimplemented")
}

func (stubCatalogService) UpdateProduct(ctx context.Context, productID uuid.UUID, input catalog.UpdateProductInput) (*catalog.ProductDetail, error) {
	panic("unimplemented")
}

func (stubCatalogService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	panic("unimplemented")
}

func (stubCatalogService) CreateCategory(ctx context.Context, input catalog.CreateCategoryInput) (*catalog.CategoryDTO, error) {
	panic("unimplemented")
}

type stubCartService struct{}

func (stubCartService) GetCart(ctx context.Context, owner types.Identity) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubCartService) AddToCart(ctx context.Context, owner types.Identity, productID uuid.UUID, quantity int) (*cart.CartDTO, error) {
	panic("unimplemented")
}

func (stubCartService) UpdateQuantity(ctx context.Context, owner types.Identity, itemID uuid.UUID, quantity int) (*cart.CartDTO, error) {
	panic("unimplemented")
}

func (stubCartService) RemoveItem(ctx context.Context, owner types.Identity, itemID uuid.UUID) (*cart.CartDTO, error) {
	panic("unimplemented")
}

func (stubCartService) ClearCart(ctx context.Context, owner types.Identity) error {
	panic("unimplemented")
}

func (stubCartService) MergeOnLogin(ctx context.Context, sessionID string, userID uuid.UUID) error {
	return nil
}

type stubOrdersService struct {
	paymentResult func(ctx context.Context, input orders.PaymentResultInput) error
}

func (stubOrdersService) Create(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (stubOrdersService) GetOrder(ctx context.Context, requester orders.Requester, orderID uuid.UUID) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (stubOrdersService) ListMyOrders(ctx context.Context, userID uuid.UUID, page pagination.Params) (*orders.OrderListResult, error) {
	return &orders.OrderListResult{}, nil
}

func (stubOrdersService) ListAllOrders(ctx context.Context, input orders.ListOrdersInput) (*orders.OrderListResult, error) {
	return &orders.OrderListResult{}, nil
}

func (stubOrdersService) UpdateStatus(ctx context.Context, input orders.UpdateStatusInput) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (s stubOrdersService) MarkPaymentResult(ctx context.Context, input orders.PaymentResultInput) error {
	if s.paymentResult != nil {
		return s.paymentResult(ctx, input)
	}
	return nil
}

type stubReviewsService struct{}

func (stubReviewsService) Submit(ctx context.Context, input reviews.SubmitReviewInput) (*reviews.ReviewDTO, error) {
	panic("unimplemented")
}

func (stubReviewsService) ListByProduct(ctx context.Context, input reviews.ListReviewsInput) (*reviews.ReviewListResult, error) {
	return &reviews.ReviewListResult{}, nil
}

type stubIdentityService struct{}

func (stubIdentityService) Resolve(ctx context.Context, input identity.ResolveInput) (*identity.UserDTO, error) {
	panic("unimplemented")
}

func (stubIdentityService) GetUser(ctx context.Context, id uuid.UUID) (*identity.UserDTO, error) {
	return &identity.UserDTO{ID: id}, nil
}

func (stubIdentityService) ListUsers(ctx context.Context, page pagination.Params) (*identity.UserListResult, error) {
	return &identity.UserListResult{}, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, input auth.RegisterInput) (*auth.AuthResult, error) {
	return &auth.AuthResult{}, nil
}

func (stubAuthService) Login(ctx context.Context, input auth.LoginInput) (*auth.AuthResult, error) {
	return &auth.AuthResult{}, nil
}

func (stubAuthService) Refresh(ctx context.Context, input auth.RefreshInput) (*auth.AuthResult, error) {
	panic("unimplemented")
}

func (stubAuthService) Logout(ctx context.Context, accessToken string) error {
	return nil
}

type stubAdminService struct{}

func (stubAdminService) Stats(ctx context.Context) (*admin.StatsDTO, error) {
	return &admin.StatsDTO{}, nil
}

type memoryEventStore struct {
	data map[string]string
}

func (m *memoryEventStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.data == nil {
		m.data = map[string]string{}
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = "1"
	return true, nil
}

func (m *memoryEventStore) WebhookEventKey(provider, eventID string) string {
	return "test:webhook:" + provider + ":" + eventID
}

func (m *memoryEventStore) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

const testWebhookSecret = "whsec-test"

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		Payments: config.PaymentsConfig{WebhookSecret: testWebhookSecret, EventTTL: time.Hour},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, ordersSvc orders.Service) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	paymentsSvc, err := payments.NewService(ordersSvc)
	if err != nil {
		t.Fatalf("payments service: %v", err)
	}
	guard, err := payments.NewEventGuard(&memoryEventStore{}, cfg.Payments.EventTTL, payments.Provider)
	if err != nil {
		t.Fatalf("event guard: %v", err)
	}

	return NewRouter(cfg, logg, Deps{
		DB:              stubPinger{},
		SessionManager:  stubSessionManager{},
		CatalogService:  stubCatalogService{},
		CartService:     stubCartService{},
		OrdersService:   ordersSvc,
		ReviewsService:  stubReviewsService{},
		IdentityService: stubIdentityService{},
		AuthService:     stubAuthService{},
		AdminService:    stubAdminService{},
		PaymentsService: paymentsSvc,
		PaymentsGuard:   guard,
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "user@example.com",
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPublicCatalogRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubOrdersService{})

	for _, path := range []string{
		"/api/products",
		"/api/products/retro-handheld",
		"/api/products/slug/retro-handheld",
		"/api/categories",
		"/api/categories/slug/consoles",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestCartMintsAnonymousSession(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubOrdersService{})

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Session-Id") == "" {
		t.Fatal("expected anonymous session id on cart response")
	}
}

func TestOrdersGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubOrdersService{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestOrdersGroupAllowsValidToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg, stubOrdersService{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg, stubOrdersService{})

	asUser := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	asUser.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asUser)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for shopper got %d", resp.Code)
	}

	asAdmin := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	asAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asAdmin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestPaymentsWebhookSignature(t *testing.T) {
	cfg := testConfig()
	var settled []orders.PaymentResultInput
	router := newTestRouter(t, cfg, stubOrdersService{
		paymentResult: func(ctx context.Context, input orders.PaymentResultInput) error {
			settled = append(settled, input)
			return nil
		},
	})

	event := map[string]any{
		"id":   "evt_123",
		"type": payments.EventTypePaymentSucceeded,
		"data": map[string]any{
			"orderId":    uuid.NewString(),
			"paymentRef": "pay_789",
		},
	}
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	unsigned := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, unsigned)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without signature got %d", resp.Code)
	}

	forged := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(body))
	forged.Header.Set("X-Webhook-Signature", "deadbeef")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, forged)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature got %d", resp.Code)
	}

	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	signed := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(body))
	signed.Header.Set("X-Webhook-Signature", signature)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, signed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for signed event got %d", resp.Code)
	}
	if len(settled) != 1 {
		t.Fatalf("expected one settlement, got %d", len(settled))
	}
	if settled[0].Result != enums.PaymentStatusPaid {
		t.Fatalf("expected paid result got %s", settled[0].Result)
	}

	replay := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(body))
	replay.Header.Set("X-Webhook-Signature", signature)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, replay)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate delivery got %d", resp.Code)
	}
	if len(settled) != 1 {
		t.Fatalf("duplicate event must not settle twice, got %d settlements", len(settled))
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubOrdersService{})

	live := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, live)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected live 200 got %d", resp.Code)
	}
}
