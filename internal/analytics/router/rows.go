package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bidmart-backend/internal/analytics/types"
	"github.com/angelmondragon/bidmart-backend/internal/analytics/writer"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bidmart-backend/pkg/payment/razorpay"
)

func baseRow(envelope types.Envelope, occurredAt time.Time, payload any) (types.MarketplaceEventRow, error) {
	encoded, err := writer.EncodeJSON(payload)
	if err != nil {
		return types.MarketplaceEventRow{}, err
	}
	if occurredAt.IsZero() {
		occurredAt = envelope.OccurredAt
	}
	return types.MarketplaceEventRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		OccurredAt:    occurredAt.UTC(),
		AggregateType: string(envelope.AggregateType),
		AggregateID:   envelope.AggregateID,
		Payload:       encoded,
	}, nil
}

func offerSubmittedRow(envelope types.Envelope, event payloads.OfferSubmittedEvent) (types.MarketplaceEventRow, error) {
	row, err := baseRow(envelope, time.Time{}, event)
	if err != nil {
		return row, err
	}
	row.AdID = uuidPtr(event.AdID)
	row.OfferID = uuidPtr(event.OfferID)
	row.BuyerID = uuidPtr(event.BuyerID)
	row.VendorID = uuidPtr(event.VendorID)
	row.AmountMinor = amountPtr(event.PricePerProduct.Mul(decimal.NewFromInt(int64(event.Quantity))))
	return row, nil
}

func orderCreatedRow(envelope types.Envelope, event payloads.OrderCreatedEvent) (types.MarketplaceEventRow, error) {
	if len(event.OrderIDs) == 0 {
		return types.MarketplaceEventRow{}, fmt.Errorf("order_created without orders")
	}
	row, err := baseRow(envelope, time.Time{}, event)
	if err != nil {
		return row, err
	}
	row.CheckoutAttemptID = uuidPtr(event.CheckoutAttemptID)
	row.PaymentIntentID = stringPtr(event.PaymentIntentID)
	row.BuyerID = uuidPtr(event.BuyerID)
	row.OrderCount = int64Ptr(int64(len(event.OrderIDs)))
	if len(event.OrderIDs) == 1 {
		row.OrderID = uuidPtr(event.OrderIDs[0])
	}
	row.AmountMinor = amountPtr(event.TotalAmount)
	row.Currency = stringPtr(string(event.Currency))
	return row, nil
}

func orderPaidRow(envelope types.Envelope, event payloads.OrderPaidEvent) (types.MarketplaceEventRow, error) {
	row, err := baseRow(envelope, event.PaidAt, event)
	if err != nil {
		return row, err
	}
	row.OrderID = uuidPtr(event.OrderID)
	row.PaymentIntentID = stringPtr(event.PaymentIntentID)
	row.PaymentID = stringPtr(event.PaymentID)
	row.AdID = uuidPtr(event.AdID)
	row.OfferID = uuidPtr(event.OfferID)
	row.BuyerID = uuidPtr(event.BuyerID)
	row.VendorID = uuidPtr(event.VendorID)
	row.AmountMinor = amountPtr(event.TotalAmount)
	return row, nil
}

func orderPaymentFailedRow(envelope types.Envelope, event payloads.OrderPaymentFailedEvent) (types.MarketplaceEventRow, error) {
	row, err := baseRow(envelope, time.Time{}, event)
	if err != nil {
		return row, err
	}
	row.OrderID = uuidPtr(event.OrderID)
	row.PaymentIntentID = stringPtr(event.PaymentIntentID)
	row.PaymentID = stringPtr(event.PaymentID)
	row.BuyerID = uuidPtr(event.BuyerID)
	row.Reason = stringPtr(event.Reason)
	return row, nil
}

func orderStatusChangedRow(envelope types.Envelope, event payloads.OrderStatusChangedEvent) (types.MarketplaceEventRow, error) {
	row, err := baseRow(envelope, time.Time{}, event)
	if err != nil {
		return row, err
	}
	row.OrderID = uuidPtr(event.OrderID)
	row.BuyerID = uuidPtr(event.BuyerID)
	row.VendorID = uuidPtr(event.VendorID)
	row.StatusFrom = stringPtr(string(event.From))
	row.StatusTo = stringPtr(string(event.To))
	return row, nil
}

func orderRefundedRow(envelope types.Envelope, event payloads.OrderRefundedEvent) (types.MarketplaceEventRow, error) {
	row, err := baseRow(envelope, time.Time{}, event)
	if err != nil {
		return row, err
	}
	row.OrderID = uuidPtr(event.OrderID)
	row.PaymentID = stringPtr(event.PaymentID)
	row.BuyerID = uuidPtr(event.BuyerID)
	// refunds are recorded as negative revenue
	row.AmountMinor = amountPtr(event.Amount.Neg())
	return row, nil
}

// stringPtr returns a trimmed pointer or nil when the input is empty.
func stringPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func uuidPtr(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	return stringPtr(id.String())
}

func int64Ptr(value int64) *int64 {
	return &value
}

func amountPtr(amount decimal.Decimal) *int64 {
	return int64Ptr(razorpay.MinorUnits(amount))
}
