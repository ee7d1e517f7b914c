// Package razorpay is a narrow REST client for the Razorpay orders, payments
// and refunds APIs plus the checkout signature check.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bidmart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
)

const (
	defaultBaseURL = "https://api.razorpay.com"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4096
)

var hundred = decimal.NewFromInt(100)

// Intent is the gateway order a buyer pays against.
type Intent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Refund is the receipt returned for an issued refund.
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
}

type createOrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type refundRequest struct {
	Amount  int64  `json:"amount"`
	Receipt string `json:"receipt,omitempty"`
}

type orderCollection struct {
	Count int      `json:"count"`
	Items []Intent `json:"items"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type Client struct {
	baseURL    *url.URL
	keyID      string
	keySecret  string
	httpClient *http.Client
	logg       *logger.Logger
}

// NewClient builds a client with basic auth credentials and a bounded timeout.
func NewClient(cfg config.PaymentConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.KeySecret) == "" {
		return nil, errors.New("razorpay key id and secret are required")
	}
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = defaultBaseURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse razorpay url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("razorpay url must be absolute")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    parsed,
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		httpClient: &http.Client{Timeout: timeout},
		logg:       logg,
	}, nil
}

// MinorUnits converts a major-unit amount to paise/cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// MajorUnits converts gateway minor units back to a decimal amount.
func MajorUnits(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(hundred)
}

// CreateIntent registers a gateway order for amount with auto capture.
func (c *Client) CreateIntent(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*Intent, error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent amount must be positive")
	}
	body := createOrderRequest{
		Amount:         MinorUnits(amount),
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	}
	var intent Intent
	if err := c.do(ctx, http.MethodPost, "/v1/orders", nil, body, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// FindIntentByReceipt returns the gateway order carrying receipt, or nil when none exists.
func (c *Client) FindIntentByReceipt(ctx context.Context, receipt string) (*Intent, error) {
	query := url.Values{}
	query.Set("receipt", receipt)
	var out orderCollection
	if err := c.do(ctx, http.MethodGet, "/v1/orders", query, nil, &out); err != nil {
		return nil, err
	}
	for i := range out.Items {
		if out.Items[i].Receipt == receipt {
			return &out.Items[i], nil
		}
	}
	return nil, nil
}

// Refund reverses amount of a captured payment.
func (c *Client) Refund(ctx context.Context, paymentID string, amount decimal.Decimal, receipt string) (*Refund, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	body := refundRequest{Amount: MinorUnits(amount), Receipt: receipt}
	var refund Refund
	path := "/v1/payments/" + url.PathEscape(paymentID) + "/refund"
	if err := c.do(ctx, http.MethodPost, path, nil, body, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// VerifySignature checks the checkout callback signature, a hex HMAC-SHA256
// of "intentID|paymentID" keyed with the API secret. The signature must match
// byte for byte.
func (c *Client) VerifySignature(intentID, paymentID, signature string) bool {
	return VerifySignature(c.keySecret, intentID, paymentID, signature)
}

func VerifySignature(secret, intentID, paymentID, signature string) bool {
	if secret == "" || intentID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := Sign(secret, intentID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the signature the gateway attaches to a successful payment.
func Sign(secret, intentID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "payment gateway timed out")
		}
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeGatewayError, err, "decode gateway response")
		}
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	description := resp.Status
	var apiErr apiError
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Description != "" {
		description = apiErr.Error.Description
	}
	if c.logg != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"gateway_status": resp.StatusCode,
			"gateway_code":   apiErr.Error.Code,
			"gateway_path":   path,
		})
		c.logg.Warn(logCtx, "payment gateway request failed")
	}

	code := pkgerrors.CodeGatewayError
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		code = pkgerrors.CodeGatewayUnavailable
	}
	return pkgerrors.New(code, "payment gateway: "+description).WithDetails(map[string]any{
		"status": resp.StatusCode,
		"code":   apiErr.Error.Code,
	})
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
