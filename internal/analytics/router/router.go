package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/bidmart-backend/internal/analytics/types"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer persists marketplace rows.
type Writer interface {
	InsertMarketplace(ctx context.Context, row types.MarketplaceEventRow) error
}

// Handler consumes a raw envelope. Overrides replace the built-in row mapping
// for a single event type.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	return f(ctx, envelope)
}

// Router maps analytics event types to row builders.
type Router struct {
	routes map[enums.AnalyticsEventType]Handler
	writer Writer
	logg   *logger.Logger
}

func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.AnalyticsEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	r := &Router{writer: writer, logg: logg}
	r.routes = map[enums.AnalyticsEventType]Handler{
		enums.AnalyticsEventOfferSubmitted:     route(r, offerSubmittedRow),
		enums.AnalyticsEventOrderCreated:       route(r, orderCreatedRow),
		enums.AnalyticsEventOrderPaid:          route(r, orderPaidRow),
		enums.AnalyticsEventOrderPaymentFailed: route(r, orderPaymentFailedRow),
		enums.AnalyticsEventOrderStatusChanged: route(r, orderStatusChangedRow),
		enums.AnalyticsEventOrderRefunded:      route(r, orderRefundedRow),
	}
	for eventType, h := range overrides {
		if _, known := r.routes[eventType]; known && h != nil {
			r.routes[eventType] = h
		}
	}
	return r, nil
}

// Handle looks up the route for envelope.EventType and runs it.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	h, ok := r.routes[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	return h.Handle(ctx, envelope)
}

// route decodes the payload into T, maps it to a row, and writes the row.
func route[T any](r *Router, build func(types.Envelope, T) (types.MarketplaceEventRow, error)) Handler {
	return HandlerFunc(func(ctx context.Context, envelope types.Envelope) error {
		if len(envelope.Payload) == 0 {
			return fmt.Errorf("empty payload for %s", envelope.EventType)
		}
		var event T
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
		}

		ctx = r.logg.WithFields(ctx, map[string]any{
			"event_id":     envelope.EventID,
			"event_type":   envelope.EventType,
			"aggregate_id": envelope.AggregateID,
		})
		row, err := build(envelope, event)
		if err != nil {
			r.logg.Error(ctx, "build marketplace row", err)
			return err
		}
		if err := r.writer.InsertMarketplace(ctx, row); err != nil {
			r.logg.Error(ctx, "insert marketplace row", err)
			return err
		}
		r.logg.Info(ctx, "marketplace row written")
		return nil
	})
}
