package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateAd              OutboxAggregateType = "ad"
	AggregateOffer           OutboxAggregateType = "offer"
	AggregateCart            OutboxAggregateType = "cart"
	AggregateOrder           OutboxAggregateType = "order"
	AggregateCheckoutAttempt OutboxAggregateType = "checkout_attempt"
	AggregateNotification    OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateAd,
	AggregateOffer,
	AggregateCart,
	AggregateOrder,
	AggregateCheckoutAttempt,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, validAggregateTypes)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOfferSubmitted     OutboxEventType = "offer_submitted"
	EventOfferCancelled     OutboxEventType = "offer_cancelled"
	EventAdStatusChanged    OutboxEventType = "ad_status_changed"
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderPaid          OutboxEventType = "order_paid"
	EventOrderPaymentFailed OutboxEventType = "order_payment_failed"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOrderRefunded      OutboxEventType = "order_refunded"
	EventCheckoutReconciled OutboxEventType = "checkout_reconciled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOfferSubmitted,
	EventOfferCancelled,
	EventAdStatusChanged,
	EventOrderCreated,
	EventOrderPaid,
	EventOrderPaymentFailed,
	EventOrderStatusChanged,
	EventOrderRefunded,
	EventCheckoutReconciled,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, validOutboxEventTypes)
}

// OutboxDLQErrorReason records why a row was parked in outbox_dlq.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var validDLQReasons = []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}

func (r OutboxDLQErrorReason) IsValid() bool {
	return slices.Contains(validDLQReasons, r)
}

func (r OutboxDLQErrorReason) String() string {
	return string(r)
}
