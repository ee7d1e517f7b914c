package enums

import "slices"

// AnalyticsEventType is the canonical event_type for analytics routing.
type AnalyticsEventType string

const (
	AnalyticsEventOfferSubmitted     AnalyticsEventType = "offer_submitted"
	AnalyticsEventOrderCreated       AnalyticsEventType = "order_created"
	AnalyticsEventOrderPaid          AnalyticsEventType = "order_paid"
	AnalyticsEventOrderPaymentFailed AnalyticsEventType = "order_payment_failed"
	AnalyticsEventOrderStatusChanged AnalyticsEventType = "order_status_changed"
	AnalyticsEventOrderRefunded      AnalyticsEventType = "order_refunded"
)

var validAnalyticsEventTypes = []AnalyticsEventType{
	AnalyticsEventOfferSubmitted,
	AnalyticsEventOrderCreated,
	AnalyticsEventOrderPaid,
	AnalyticsEventOrderPaymentFailed,
	AnalyticsEventOrderStatusChanged,
	AnalyticsEventOrderRefunded,
}

// IsValid reports whether the value matches the canonical analytics event_type enum.
func (a AnalyticsEventType) IsValid() bool {
	return slices.Contains(validAnalyticsEventTypes, a)
}

// ParseAnalyticsEventType converts the raw string to AnalyticsEventType.
func ParseAnalyticsEventType(value string) (AnalyticsEventType, error) {
	return parse("analytics event type", value, validAnalyticsEventTypes)
}
