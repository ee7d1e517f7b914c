package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bidmart-backend/internal/cart"
	"github.com/angelmondragon/bidmart-backend/internal/orders"
	"github.com/angelmondragon/bidmart-backend/pkg/auth"
	"github.com/angelmondragon/bidmart-backend/pkg/config"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubCartService struct {
	cart.Service
}

func (stubCartService) Get(_ context.Context, actor types.Actor) (*cart.CartDTO, error) {
	return &cart.CartDTO{UserID: actor.UserID, Items: []cart.CartItemDTO{}}, nil
}

type stubOrdersService struct {
	orders.Service
	verified bool
}

func (s *stubOrdersService) VerifyPayment(context.Context, orders.VerifyInput) (*orders.VerifyResult, error) {
	s.verified = true
	return &orders.VerifyResult{Success: true, Message: "Payment verified"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "bidmart", ExpirationMinutes: 5},
		RateLimit: config.RateLimitConfig{
			CheckoutLimit:  10,
			CheckoutWindow: time.Minute,
			OfferLimit:     10,
			OfferWindow:    time.Minute,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

type allowAll struct{}

func (allowAll) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return true, 1, nil
}

func newTestRouter(t *testing.T, ordersSvc orders.Service) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "router-test", Level: zerolog.Disabled, Output: io.Discard})
	return NewRouter(Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          stubPinger{},
		Redis:       stubPinger{},
		RateLimiter: allowAll{},
		Gatherer:    prometheus.NewRegistry(),
		Cart:        stubCartService{},
		Orders:      ordersSvc,
	}), cfg
}

func bearer(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		UserID: uuid.New(),
		Name:   "Ravi",
		Role:   role,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrdersService{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Equal(t, "dev", rec.Header().Get("X-BidMart-Env"))
	}
}

func TestHealthReadyReportsFailedDependency(t *testing.T) {
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "router-test", Level: zerolog.Disabled, Output: io.Discard})
	router := NewRouter(Deps{
		Config: cfg,
		Logger: logg,
		DB:     stubPinger{err: errors.New("down")},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "unavailable")
}

func TestMetricsExposed(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrdersService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrdersService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartFetchWithToken(t *testing.T) {
	router, cfg := newTestRouter(t, &stubOrdersService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleUser))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"items":[]`)
}

func TestRoleGuards(t *testing.T) {
	router, cfg := newTestRouter(t, &stubOrdersService{})

	cases := []struct {
		name   string
		method string
		path   string
		role   enums.Role
	}{
		{name: "vendor orders as user", method: http.MethodGet, path: "/api/v1/order/vendor", role: enums.RoleUser},
		{name: "admin orders as vendor", method: http.MethodGet, path: "/api/v1/admin/orders", role: enums.RoleVendor},
		{name: "vendor profile as admin", method: http.MethodGet, path: "/api/v1/vendors/me", role: enums.RoleAdmin},
		{name: "status update as user", method: http.MethodPut, path: "/api/v1/order/status/item", role: enums.RoleUser},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`))
			req.Header.Set("Authorization", bearer(t, cfg, tc.role))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestVerificationPayIsPublic(t *testing.T) {
	svc := &stubOrdersService{}
	router, _ := newTestRouter(t, svc)

	body := `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/order/verificationPay", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.verified)
}
