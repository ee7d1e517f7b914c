package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bidmart-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/bidmart-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/bidmart-backend/api/controllers/orders"
	"github.com/angelmondragon/bidmart-backend/api/middleware"
	"github.com/angelmondragon/bidmart-backend/internal/ads"
	"github.com/angelmondragon/bidmart-backend/internal/cart"
	"github.com/angelmondragon/bidmart-backend/internal/checkout"
	"github.com/angelmondragon/bidmart-backend/internal/notifications"
	"github.com/angelmondragon/bidmart-backend/internal/orders"
	"github.com/angelmondragon/bidmart-backend/pkg/config"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/bidmart-backend/pkg/redis"
)

const requestTimeout = 30 * time.Second

// Deps carries everything the HTTP surface needs. Nil pingers are skipped by
// readiness; a nil Gatherer disables /metrics.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    controllers.Pinger
	Redis controllers.Pinger

	Idempotency pkgredis.IdempotencyStore
	RateLimiter middleware.RateLimiter
	Gatherer    prometheus.Gatherer

	Ads           ads.Service
	Cart          cart.Service
	Checkout      checkout.Service
	Orders        orders.Service
	Notifications notifications.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		chimiddleware.RealIP,
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
		chimiddleware.Timeout(requestTimeout),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    d.DB,
			"redis": d.Redis,
		}, logg))
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	idem := middleware.Idempotency(d.Idempotency, logg)
	checkoutLimit := middleware.RateLimit(d.RateLimiter, middleware.RateLimitPolicy{
		Name:   "checkout",
		Limit:  cfg.RateLimit.CheckoutLimit,
		Window: cfg.RateLimit.CheckoutWindow,
	}, logg)
	offerLimit := middleware.RateLimit(d.RateLimiter, middleware.RateLimitPolicy{
		Name:   "offer",
		Limit:  cfg.RateLimit.OfferLimit,
		Window: cfg.RateLimit.OfferWindow,
	}, logg)
	vendorOnly := middleware.RequireRole(logg, enums.RoleVendor)
	adminOnly := middleware.RequireRole(logg, enums.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		// gateway callback, authenticated by signature
		r.With(checkoutLimit).Post("/order/verificationPay", ordercontrollers.VerifyPayment(d.Orders, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/ads", func(r chi.Router) {
				r.With(idem).Post("/add/{productId}", controllers.PostAd(d.Ads, logg))
				r.Get("/list", controllers.ListAds(d.Ads, logg))
				r.Get("/mine", controllers.ListMyAds(d.Ads, logg))
				r.Get("/{adId}", controllers.GetAd(d.Ads, logg))
				r.Put("/{adId}/active", controllers.SetAdActive(d.Ads, logg))
				r.With(vendorOnly, offerLimit, idem).Post("/{adId}/accept", controllers.SubmitOffer(d.Ads, logg))
				r.With(vendorOnly).Put("/{adId}/cancel", controllers.CancelOffer(d.Ads, logg))
				r.With(vendorOnly).Post("/{adId}/reject", controllers.RejectOffer(d.Ads, logg))
			})

			r.Route("/vendors", func(r chi.Router) {
				r.Use(vendorOnly)
				r.With(idem).Post("/", controllers.RegisterVendor(d.Ads, logg))
				r.Get("/me", controllers.GetMyVendor(d.Ads, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(d.Cart, logg))
				r.With(idem).Post("/add", cartcontrollers.CartAdd(d.Cart, logg))
				r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(d.Cart, logg))
				r.With(checkoutLimit, idem).Post("/checkout", cartcontrollers.CartCheckout(d.Checkout, logg))
			})

			r.Route("/order", func(r chi.Router) {
				r.With(checkoutLimit, idem).Post("/checkoutSingle", ordercontrollers.CheckoutSingle(d.Checkout, logg))
				r.With(adminOnly, idem).Post("/refund", ordercontrollers.Refund(d.Orders, logg))
				r.With(middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleVendor)).
					Put("/status/item", ordercontrollers.UpdateItemStatus(d.Orders, logg))
				r.Get("/mine", ordercontrollers.ListMine(d.Orders, logg))
				r.With(vendorOnly).Get("/vendor", ordercontrollers.ListForVendor(d.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(d.Orders, logg))
				r.Put("/{orderId}/cancel", ordercontrollers.Cancel(d.Orders, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(d.Notifications, logg))
				r.Put("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
				r.Put("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/orders", ordercontrollers.AdminList(d.Orders, logg))
				r.Get("/orders/search", ordercontrollers.AdminSearchByIntent(d.Orders, logg))
				r.Put("/orders/{orderId}/cancel", ordercontrollers.Cancel(d.Orders, logg))
			})
		})
	})

	return r
}
