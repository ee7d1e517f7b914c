package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bidmart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(config.PaymentConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "rzp_test_secret",
		BaseURL:   srv.URL,
		Timeout:   timeout,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(config.PaymentConfig{}, nil)
	require.Error(t, err)

	_, err = NewClient(config.PaymentConfig{KeyID: "k", KeySecret: "s", BaseURL: "/relative"}, nil)
	require.Error(t, err)
}

func TestMinorUnits(t *testing.T) {
	require.Equal(t, int64(18000), MinorUnits(decimal.NewFromInt(180)))
	require.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99")))
	require.True(t, MajorUnits(18000).Equal(decimal.NewFromInt(180)))
}

func TestCreateIntentSendsMinorUnits(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "rzp_test_key", user)
		require.Equal(t, "rzp_test_secret", pass)

		var body createOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, int64(18000), body.Amount)
		require.Equal(t, "INR", body.Currency)
		require.Equal(t, "rcpt_1", body.Receipt)
		require.Equal(t, 1, body.PaymentCapture)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","amount":18000,"currency":"INR","receipt":"rcpt_1","status":"created"}`))
	}, time.Second)

	intent, err := client.CreateIntent(context.Background(), decimal.NewFromInt(180), "INR", "rcpt_1")
	require.NoError(t, err)
	require.Equal(t, "order_abc", intent.ID)
	require.Equal(t, int64(18000), intent.Amount)
	require.Equal(t, "rcpt_1", intent.Receipt)
}

func TestCreateIntentRejectsNonPositiveAmount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gateway must not be called")
	}, time.Second)

	_, err := client.CreateIntent(context.Background(), decimal.Zero, "INR", "rcpt")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateIntentTimeoutIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}, 20*time.Millisecond)

	_, err := client.CreateIntent(context.Background(), decimal.NewFromInt(10), "INR", "rcpt")
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGatewayUnavailable))
	require.True(t, pkgerrors.MetadataFor(pkgerrors.As(err).Code()).Retryable)
}

func TestGatewayStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   pkgerrors.Code
	}{
		{http.StatusBadRequest, pkgerrors.CodeGatewayError},
		{http.StatusUnauthorized, pkgerrors.CodeGatewayError},
		{http.StatusTooManyRequests, pkgerrors.CodeGatewayUnavailable},
		{http.StatusBadGateway, pkgerrors.CodeGatewayUnavailable},
	}
	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"payment already refunded"}}`))
		}, time.Second)

		_, err := client.Refund(context.Background(), "pay_1", decimal.NewFromInt(10), "")
		require.Error(t, err)
		require.Equal(t, tc.want, pkgerrors.As(err).Code(), "status %d", tc.status)
		require.Contains(t, err.Error(), "payment already refunded")
	}
}

func TestRefundPostsAmount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/pay_29QQoUBi66xm2f/refund", r.URL.Path)
		var body refundRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, int64(18000), body.Amount)
		_, _ = w.Write([]byte(`{"id":"rfnd_1","payment_id":"pay_29QQoUBi66xm2f","amount":18000,"currency":"INR","status":"processed"}`))
	}, time.Second)

	refund, err := client.Refund(context.Background(), "pay_29QQoUBi66xm2f", decimal.NewFromInt(180), "refund_1")
	require.NoError(t, err)
	require.Equal(t, "rfnd_1", refund.ID)
	require.Equal(t, "processed", refund.Status)
}

func TestFindIntentByReceipt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		receipt := r.URL.Query().Get("receipt")
		if receipt == "known" {
			_, _ = w.Write([]byte(`{"count":1,"items":[{"id":"order_x","amount":500,"receipt":"known","status":"paid"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"count":0,"items":[]}`))
	}, time.Second)

	intent, err := client.FindIntentByReceipt(context.Background(), "known")
	require.NoError(t, err)
	require.NotNil(t, intent)
	require.Equal(t, "order_x", intent.ID)

	missing, err := client.FindIntentByReceipt(context.Background(), "unknown")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestVerifySignature(t *testing.T) {
	secret := "rzp_test_secret"
	sig := Sign(secret, "order_abc", "pay_123")

	require.True(t, VerifySignature(secret, "order_abc", "pay_123", sig))
	require.False(t, VerifySignature(secret, "order_abc", "pay_999", sig))
	require.False(t, VerifySignature(secret, "order_abc", "pay_123", "deadbeef"))
	require.False(t, VerifySignature(secret, "order_abc", "pay_123", strings.ToUpper(sig)))
	require.False(t, VerifySignature(secret, "order_abc", "pay_123", " "+sig+"\n"))
	require.False(t, VerifySignature("", "order_abc", "pay_123", sig))

	client := &Client{keySecret: secret}
	require.True(t, client.VerifySignature("order_abc", "pay_123", sig))
}
