package cart

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bidmart-backend/api/middleware"
	cartsvc "github.com/angelmondragon/bidmart-backend/internal/cart"
	"github.com/angelmondragon/bidmart-backend/internal/checkout"
	"github.com/angelmondragon/bidmart-backend/internal/orders"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

type stubCartService struct {
	cart       *cartsvc.CartDTO
	err        error
	lastAdID   uuid.UUID
	lastOffer  uuid.UUID
	lastItemID uuid.UUID
}

func (s *stubCartService) Get(context.Context, types.Actor) (*cartsvc.CartDTO, error) {
	return s.cart, s.err
}

func (s *stubCartService) AddOffer(_ context.Context, _ types.Actor, adID, offerID uuid.UUID) (*cartsvc.CartDTO, error) {
	s.lastAdID = adID
	s.lastOffer = offerID
	return s.cart, s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, _ types.Actor, itemID uuid.UUID) (*cartsvc.CartDTO, error) {
	s.lastItemID = itemID
	return s.cart, s.err
}

type stubCheckoutService struct {
	checkout.Service
	result *checkout.Result
	err    error
}

func (s *stubCheckoutService) CheckoutCart(context.Context, types.Actor) (*checkout.Result, error) {
	return s.result, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard})
}

func buyerRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := middleware.WithActor(req.Context(), types.Actor{UserID: uuid.New(), Role: enums.RoleUser})
	return req.WithContext(ctx)
}

func TestCartFetchSuccess(t *testing.T) {
	total := decimal.NewFromInt(180)
	svc := &stubCartService{cart: &cartsvc.CartDTO{OverallPrice: total, Items: []cartsvc.CartItemDTO{{TotalPrice: total}}}}

	resp := httptest.NewRecorder()
	CartFetch(svc, testLogger())(resp, buyerRequest(http.MethodGet, "/api/v1/cart", ""))

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data struct {
			OverallPrice string `json:"overall_price"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, "180", envelope.Data.OverallPrice)
}

func TestCartFetchRequiresIdentity(t *testing.T) {
	resp := httptest.NewRecorder()
	CartFetch(&stubCartService{}, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCartAddPassesIDs(t *testing.T) {
	adID, offerID := uuid.New(), uuid.New()
	svc := &stubCartService{cart: &cartsvc.CartDTO{}}
	body := `{"adId":"` + adID.String() + `","offerId":"` + offerID.String() + `"}`

	resp := httptest.NewRecorder()
	CartAdd(svc, testLogger())(resp, buyerRequest(http.MethodPost, "/api/v1/cart/add", body))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, adID, svc.lastAdID)
	require.Equal(t, offerID, svc.lastOffer)
}

func TestCartAddDuplicateIsScopedConflict(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeScopedConflict, "offer already in cart")}
	body := `{"adId":"` + uuid.NewString() + `","offerId":"` + uuid.NewString() + `"}`

	resp := httptest.NewRecorder()
	CartAdd(svc, testLogger())(resp, buyerRequest(http.MethodPost, "/api/v1/cart/add", body))

	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCartAddRejectsMalformedIDs(t *testing.T) {
	resp := httptest.NewRecorder()
	CartAdd(&stubCartService{}, testLogger())(resp, buyerRequest(http.MethodPost, "/api/v1/cart/add", `{"adId":"x","offerId":"y"}`))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCartRemoveItem(t *testing.T) {
	itemID := uuid.New()
	svc := &stubCartService{cart: &cartsvc.CartDTO{}}
	req := buyerRequest(http.MethodDelete, "/api/v1/cart/items/"+itemID.String(), "")
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("itemId", itemID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	CartRemoveItem(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, itemID, svc.lastItemID)
}

func TestCartCheckoutReturnsIntentAndOrders(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCheckoutService{result: &checkout.Result{
		AttemptID: uuid.New(),
		Intent:    checkout.IntentDTO{ID: "order_rzp_1", Amount: 18000, Currency: "INR", Receipt: "rcpt_1"},
		Orders:    []orders.OrderDTO{{ID: orderID, CreatedAt: time.Now()}},
	}}

	resp := httptest.NewRecorder()
	CartCheckout(svc, testLogger())(resp, buyerRequest(http.MethodPost, "/api/v1/cart/checkout", ""))

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data struct {
			Order struct {
				ID     string `json:"id"`
				Amount int64  `json:"amount"`
			} `json:"order"`
			OrderDoc []struct {
				ID string `json:"id"`
			} `json:"orderDoc"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, "order_rzp_1", envelope.Data.Order.ID)
	require.Equal(t, int64(18000), envelope.Data.Order.Amount)
	require.Len(t, envelope.Data.OrderDoc, 1)
	require.Equal(t, orderID.String(), envelope.Data.OrderDoc[0].ID)
}

func TestCartCheckoutGatewayUnavailable(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "gateway timeout")}
	resp := httptest.NewRecorder()
	CartCheckout(svc, testLogger())(resp, buyerRequest(http.MethodPost, "/api/v1/cart/checkout", ""))

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Contains(t, resp.Body.String(), `"retryable":true`)
}
