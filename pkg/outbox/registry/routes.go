package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/bidmart-backend/pkg/config"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/payloads"
)

// EventDescriptor says where an event type is published and how its payload
// is decoded. Topic is the primary destination; FanOut topics follow it.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	FanOut        []string
	Decode        Decoder
}

// Topics lists every destination once, primary first.
func (d EventDescriptor) Topics() []string {
	topics := []string{d.Topic}
	for _, t := range d.FanOut {
		if t != "" && t != d.Topic {
			topics = append(topics, t)
		}
	}
	return topics
}

// ResolvedEvent is an outbox row that passed validation.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row the publisher should dead-letter at once.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

// EventRegistry is the routing table of the outbox publisher.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func route[T any](event enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string, fanOut ...string) EventDescriptor {
	return EventDescriptor{
		EventType:     event,
		AggregateType: aggregate,
		Topic:         topic,
		FanOut:        fanOut,
		Decode:        JSONDecoder[T](),
	}
}

// NewEventRegistry routes offer and ad events to the ads topic and order and
// checkout events to the orders topic. Events the notification and analytics
// workers consume fan out to their topics.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	for name, topic := range map[string]string{
		"orders":       cfg.OrdersTopic,
		"ads":          cfg.AdsTopic,
		"notification": cfg.NotificationTopic,
		"analytics":    cfg.AnalyticsTopic,
	} {
		if topic == "" {
			return nil, fmt.Errorf("%s topic is required", name)
		}
	}
	ads, orders := cfg.AdsTopic, cfg.OrdersTopic
	notify, analytics := cfg.NotificationTopic, cfg.AnalyticsTopic

	descriptors := []EventDescriptor{
		route[payloads.OfferSubmittedEvent](enums.EventOfferSubmitted, enums.AggregateOffer, ads, notify, analytics),
		route[payloads.OfferCancelledEvent](enums.EventOfferCancelled, enums.AggregateOffer, ads),
		route[payloads.AdStatusChangedEvent](enums.EventAdStatusChanged, enums.AggregateAd, ads),
		route[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateCheckoutAttempt, orders, analytics),
		route[payloads.OrderPaidEvent](enums.EventOrderPaid, enums.AggregateOrder, orders, notify, analytics),
		route[payloads.OrderPaymentFailedEvent](enums.EventOrderPaymentFailed, enums.AggregateOrder, orders, analytics),
		route[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateOrder, orders, notify, analytics),
		route[payloads.OrderRefundedEvent](enums.EventOrderRefunded, enums.AggregateOrder, orders, notify, analytics),
		route[payloads.CheckoutReconciledEvent](enums.EventCheckoutReconciled, enums.AggregateCheckoutAttempt, orders),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		reg.entries[d.EventType] = d
	}
	return reg, nil
}

// Resolve validates event against its descriptor and decodes the payload.
// Every failure is non-retryable: the row itself is bad.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}
	payload, err := desc.Decode(env.Data)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
