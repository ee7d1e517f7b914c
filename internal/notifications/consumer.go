package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/registry"
)

const notificationConsumer = "marketplace-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns marketplace domain events into in-app notifications.
type Consumer struct {
	repo         repository
	subscription receiver
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(repo repository, subscription receiver, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		decoders:     newDecoders(),
		logg:         logg,
	}, nil
}

// newDecoders lists the events that produce a notification.
func newDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	for eventType, decoder := range map[enums.OutboxEventType]registry.Decoder{
		enums.EventOfferSubmitted:     registry.JSONDecoder[payloads.OfferSubmittedEvent](),
		enums.EventOrderPaid:          registry.JSONDecoder[payloads.OrderPaidEvent](),
		enums.EventOrderStatusChanged: registry.JSONDecoder[payloads.OrderStatusChangedEvent](),
		enums.EventOrderRefunded:      registry.JSONDecoder[payloads.OrderRefundedEvent](),
	} {
		if err := decoders.Register(eventType, 1, decoder); err != nil {
			panic(err)
		}
	}
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	decoded, err := c.decoders.DecodeEnvelope(eventType, envelope)
	if errors.Is(err, registry.ErrNoDecoder) {
		c.logg.Info(logCtx, "skipping event without notification")
		return processResult{ack: true}
	}
	if err != nil {
		c.logg.Error(logCtx, "failed to decode event data", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	skipped, err := c.idempotency.Run(ctx, notificationConsumer, eventID, func(ctx context.Context) error {
		notification := buildNotification(decoded)
		if notification == nil {
			return nil
		}
		return c.repo.Create(ctx, notification)
	})
	if err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		return processResult{nack: true}
	}
	if skipped {
		c.logg.Info(logCtx, "event already processed")
	}
	return processResult{ack: true}
}

func buildNotification(decoded any) *models.Notification {
	switch event := decoded.(type) {
	case *payloads.OfferSubmittedEvent:
		return &models.Notification{
			UserID: event.BuyerID,
			Type:   enums.NotificationTypeOfferReceived,
			Title:  "New offer on your ad",
			Message: fmt.Sprintf("%s offered %s per unit for %s, dispatch in %d days.",
				fallback(event.VendorName, "A vendor"), event.PricePerProduct.StringFixed(2),
				fallback(event.ProductName, "your product"), event.DispatchDay),
			Link: stringPtr(fmt.Sprintf("/ads/%s", event.AdID)),
		}
	case *payloads.OrderPaidEvent:
		if event.VendorUserID == uuid.Nil {
			return nil
		}
		return &models.Notification{
			UserID: event.VendorUserID,
			Type:   enums.NotificationTypeOfferAccepted,
			Title:  "Your offer was accepted",
			Message: fmt.Sprintf("%s paid %s for %s.",
				fallback(event.BuyerName, "A buyer"), event.TotalAmount.StringFixed(2),
				fallback(event.ProductName, "your offer")),
			Link: stringPtr(fmt.Sprintf("/order/%s", event.OrderID)),
		}
	case *payloads.OrderStatusChangedEvent:
		return &models.Notification{
			UserID:  event.BuyerID,
			Type:    enums.NotificationTypeOrderStatus,
			Title:   fmt.Sprintf("Order %s", event.To),
			Message: fmt.Sprintf("Your order for %s is now %s.", fallback(event.ProductName, "your product"), event.To),
			Link:    stringPtr(fmt.Sprintf("/order/%s", event.OrderID)),
		}
	case *payloads.OrderRefundedEvent:
		return &models.Notification{
			UserID:  event.BuyerID,
			Type:    enums.NotificationTypeRefundIssued,
			Title:   "Refund issued",
			Message: fmt.Sprintf("A refund of %s was issued for your order.", event.Amount.StringFixed(2)),
			Link:    stringPtr(fmt.Sprintf("/order/%s", event.OrderID)),
		}
	}
	return nil
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func stringPtr(value string) *string {
	return &value
}
