package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox"
)

// ErrNotTracked marks a well-formed message whose event type analytics
// ignores.
var ErrNotTracked = errors.New("event type not tracked by analytics")

// Envelope is the analytics view of a published outbox row.
type Envelope struct {
	EventID       string
	EventType     enums.AnalyticsEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Payload       json.RawMessage
}

// DecodeMessage builds an Envelope from a Pub/Sub message body (the stored
// outbox envelope) and its routing attributes. Event id and occurrence time
// fall back to the attributes when the body omits them.
func DecodeMessage(data []byte, attrs map[string]string) (Envelope, error) {
	attr := func(key string) string { return strings.TrimSpace(attrs[key]) }

	var body outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &body); err != nil {
		return Envelope{}, fmt.Errorf("decode outbox envelope: %w", err)
	}

	eventType, err := enums.ParseAnalyticsEventType(attr("event_type"))
	if err != nil {
		return Envelope{}, ErrNotTracked
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return Envelope{}, err
	}

	env := Envelope{
		EventID:       firstNonEmpty(strings.TrimSpace(body.EventID), attr("event_id")),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   attr("aggregate_id"),
		OccurredAt:    body.OccurredAt,
		Payload:       body.Data,
	}
	if env.EventID == "" {
		return Envelope{}, errors.New("event_id missing")
	}
	if env.AggregateID == "" {
		return Envelope{}, errors.New("aggregate_id missing")
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt, _ = time.Parse(time.RFC3339Nano, attr("created_at"))
	}
	env.OccurredAt = env.OccurredAt.UTC()
	return env, nil
}

func firstNonEmpty(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}
