package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bidmart-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/bidmart-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	replayedHeader         = "Idempotent-Replayed"
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	pendingIdempotencyTTL  = 2 * time.Minute
)

// keyed routes, matched on method plus chi route pattern
var idempotentRoutes = map[string]time.Duration{
	http.MethodPost + " /api/v1/ads/add/{productId}":  defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/ads/{adId}/accept":    defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/cart/add":             defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/vendors":              defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/order/checkoutSingle": criticalIdempotencyTTL,
	http.MethodPost + " /api/v1/cart/checkout":        criticalIdempotencyTTL,
	http.MethodPost + " /api/v1/order/refund":         criticalIdempotencyTTL,
}

var (
	errKeyRequired = pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required")
	errInFlight    = pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is in progress")
	errKeyReused   = pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
)

// storedResponse is the value kept under an idempotency key. A pending entry
// marks a request that is still being served.
type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

// Idempotency makes the keyed routes safe to retry. The first request with a
// given Idempotency-Key runs; later ones with the same body get the stored
// response. 5xx responses are dropped so the client can try again.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	g := &idempotencyGuard{store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, keyed := routeTTL(r.Method, routePattern(r))
			if !keyed || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, next, ttl)
		})
	}
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler, ttl time.Duration) {
	ctx := r.Context()
	clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if clientKey == "" {
		responses.WriteError(ctx, g.logg, w, errKeyRequired)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	fingerprint := fingerprintOf(body)
	key := g.store.IdempotencyKey(strings.Join([]string{subjectOf(ctx), r.Method, r.URL.Path}, "|"), clientKey)

	claimed, err := g.put(ctx, key, storedResponse{Pending: true, Fingerprint: fingerprint}, pendingIdempotencyTTL)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if !claimed {
		g.replay(ctx, w, key, fingerprint)
		return
	}

	rec := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(rec, r)

	if err := g.store.Del(ctx, key); err != nil {
		g.logError(ctx, "release idempotency reservation", err)
		return
	}
	if rec.statusCode() >= http.StatusInternalServerError {
		return
	}
	if _, err := g.put(ctx, key, storedResponse{
		Fingerprint: fingerprint,
		Status:      rec.statusCode(),
		ContentType: rec.Header().Get("Content-Type"),
		Body:        rec.body.Bytes(),
	}, ttl); err != nil {
		g.logError(ctx, "persist idempotency record", err)
	}
}

func (g *idempotencyGuard) put(ctx context.Context, key string, resp storedResponse, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, string(raw), ttl)
}

func (g *idempotencyGuard) replay(ctx context.Context, w http.ResponseWriter, key, fingerprint string) {
	raw, err := g.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil), err == nil && raw == "":
		// released between SetNX and Get; the first request is still settling
		responses.WriteError(ctx, g.logg, w, errInFlight)
		return
	case err != nil:
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.Fingerprint != fingerprint:
		responses.WriteError(ctx, g.logg, w, errKeyReused)
	case stored.Pending:
		responses.WriteError(ctx, g.logg, w, errInFlight)
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

func (g *idempotencyGuard) logError(ctx context.Context, msg string, err error) {
	if g.logg != nil {
		g.logg.Error(ctx, msg, err)
	}
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	ttl, ok := idempotentRoutes[method+" "+pattern]
	return ttl, ok
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
