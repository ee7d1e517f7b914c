package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/bidmart-backend/internal/analytics/router"
	"github.com/angelmondragon/bidmart-backend/internal/analytics/types"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
)

// consumerName scopes the redis dedupe markers of this consumer.
const consumerName = "marketplace-analytics"

// Handler turns an envelope into warehouse rows.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type idempotencyChecker interface {
	Seen(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Forget(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type outcome int

const (
	ack outcome = iota
	nack
)

// Service consumes the analytics subscription. Each event id is handled at
// most once; a failed handle releases its marker and nacks for redelivery.
type Service struct {
	subscription receiver
	handler      Handler
	seen         idempotencyChecker
	logg         *logger.Logger
}

func NewService(subscription receiver, handler Handler, seen idempotencyChecker, logg *logger.Logger) (*Service, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics worker: subscription required")
	case handler == nil:
		return nil, errors.New("analytics worker: handler required")
	case seen == nil:
		return nil, errors.New("analytics worker: idempotency manager required")
	case logg == nil:
		return nil, errors.New("analytics worker: logger required")
	}
	return &Service{subscription: subscription, handler: handler, seen: seen, logg: logg}, nil
}

// Run blocks in Receive until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		if s.process(ctx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) outcome {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	env, err := types.DecodeMessage(msg.Data, msg.Attributes)
	switch {
	case errors.Is(err, types.ErrNotTracked):
		return ack
	case err != nil:
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping malformed analytics message")
		return ack
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":     env.EventID,
		"event_type":   env.EventType,
		"aggregate_id": env.AggregateID,
		"occurred_at":  env.OccurredAt.Format(time.RFC3339Nano),
	})

	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		s.logg.Warn(ctx, "dropping analytics message with non-uuid event id")
		return ack
	}

	duplicate, err := s.seen.Seen(ctx, consumerName, eventID)
	if err != nil {
		s.logg.Error(ctx, "analytics dedupe check failed", err)
		return nack
	}
	if duplicate {
		s.logg.Debug(ctx, "analytics event already recorded")
		return ack
	}

	if err := s.handle(ctx, env); err != nil {
		if errors.Is(err, router.ErrUnsupportedEventType) {
			s.logg.Warn(ctx, "no analytics row builder for event")
			return ack
		}
		s.logg.Error(ctx, "analytics event failed", err)
		if relErr := s.seen.Forget(ctx, consumerName, eventID); relErr != nil {
			s.logg.Error(ctx, "releasing analytics dedupe marker", relErr)
		}
		return nack
	}
	s.logg.Info(ctx, "analytics event recorded")
	return ack
}

func (s *Service) handle(ctx context.Context, env types.Envelope) error {
	if err := s.handler.Handle(ctx, env); err != nil {
		return fmt.Errorf("%s: %w", env.EventType, err)
	}
	return nil
}
