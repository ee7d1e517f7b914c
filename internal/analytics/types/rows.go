package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// MarketplaceEventRow mirrors the marketplace_events BigQuery schema. Amounts
// are stored in minor units of Currency.
type MarketplaceEventRow struct {
	EventID           string             `bigquery:"event_id"`
	EventType         string             `bigquery:"event_type"`
	OccurredAt        time.Time          `bigquery:"occurred_at"`
	AggregateType     string             `bigquery:"aggregate_type"`
	AggregateID       string             `bigquery:"aggregate_id"`
	CheckoutAttemptID *string            `bigquery:"checkout_attempt_id"`
	PaymentIntentID   *string            `bigquery:"payment_intent_id"`
	PaymentID         *string            `bigquery:"payment_id"`
	OrderID           *string            `bigquery:"order_id"`
	OrderCount        *int64             `bigquery:"order_count"`
	AdID              *string            `bigquery:"ad_id"`
	OfferID           *string            `bigquery:"offer_id"`
	BuyerID           *string            `bigquery:"buyer_id"`
	VendorID          *string            `bigquery:"vendor_id"`
	AmountMinor       *int64             `bigquery:"amount_minor"`
	Currency          *string            `bigquery:"currency"`
	StatusFrom        *string            `bigquery:"status_from"`
	StatusTo          *string            `bigquery:"status_to"`
	Reason            *string            `bigquery:"reason"`
	Payload           cbigquery.NullJSON `bigquery:"payload"`
}
