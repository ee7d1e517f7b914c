package main

import (
	"fmt"

	"github.com/angelmondragon/bidmart-backend/internal/ads"
	"github.com/angelmondragon/bidmart-backend/internal/cart"
	"github.com/angelmondragon/bidmart-backend/internal/catalog"
	"github.com/angelmondragon/bidmart-backend/internal/checkout"
	"github.com/angelmondragon/bidmart-backend/internal/notifications"
	"github.com/angelmondragon/bidmart-backend/internal/orders"
	"github.com/angelmondragon/bidmart-backend/pkg/config"
	"github.com/angelmondragon/bidmart-backend/pkg/db"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/metrics"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox"
	"github.com/angelmondragon/bidmart-backend/pkg/payment/razorpay"
	"github.com/angelmondragon/bidmart-backend/pkg/redis"
)

type services struct {
	ads           ads.Service
	cart          cart.Service
	checkout      checkout.Service
	orders        orders.Service
	notifications notifications.Service
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, gateway *razorpay.Client, marketplace *metrics.Marketplace) (*services, error) {
	conn := dbClient.DB()

	currency, err := enums.ParseCurrency(cfg.Payment.Currency)
	if err != nil {
		return nil, err
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}

	adsRepo := ads.NewRepository(conn)
	vendorRepo := ads.NewVendorRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	adsSvc, err := ads.NewService(adsRepo, vendorRepo, cart.OfferPruner{Carts: cartRepo}, catalogSvc, dbClient, outboxSvc)
	if err != nil {
		return nil, fmt.Errorf("ads service: %w", err)
	}

	cartSvc, err := cart.NewService(cartRepo, adsRepo, dbClient)
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	checkoutSvc, err := checkout.NewService(checkout.Deps{
		Attempts: checkout.NewAttemptRepository(conn),
		Orders:   ordersRepo,
		Carts:    cartRepo,
		Offers:   adsRepo,
		Vendors:  vendorRepo,
		Catalog:  catalogSvc,
		Gateway:  gateway,
		Locker:   redisClient,
		Tx:       dbClient,
		Outbox:   outboxSvc,
		Currency: currency,
		Metrics:  marketplace,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout service: %w", err)
	}

	ordersSvc, err := orders.NewService(orders.Deps{
		Orders:  ordersRepo,
		Ads:     adsRepo,
		Vendors: vendorRepo,
		Users:   catalogSvc,
		Gateway: gateway,
		Locker:  redisClient,
		Tx:      dbClient,
		Outbox:  outboxSvc,
		Metrics: marketplace,
		Logger:  logg,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("notifications service: %w", err)
	}

	return &services{
		ads:           adsSvc,
		cart:          cartSvc,
		checkout:      checkoutSvc,
		orders:        ordersSvc,
		notifications: notificationsSvc,
	}, nil
}
