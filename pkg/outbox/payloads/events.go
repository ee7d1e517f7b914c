package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bidmart-backend/pkg/enums"
)

// OfferSubmittedEvent is emitted when a vendor bids on an ad.
type OfferSubmittedEvent struct {
	AdID            uuid.UUID       `json:"ad_id"`
	OfferID         uuid.UUID       `json:"offer_id"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	BuyerID         uuid.UUID       `json:"buyer_id"`
	VendorName      string          `json:"vendor_name"`
	ProductName     string          `json:"product_name"`
	PricePerProduct decimal.Decimal `json:"price_per_product"`
	Quantity        int             `json:"quantity"`
	DispatchDay     int             `json:"dispatch_day"`
}

type OfferCancelledEvent struct {
	AdID     uuid.UUID `json:"ad_id"`
	OfferID  uuid.UUID `json:"offer_id"`
	VendorID uuid.UUID `json:"vendor_id"`
	BuyerID  uuid.UUID `json:"buyer_id"`
}

type AdStatusChangedEvent struct {
	AdID     uuid.UUID `json:"ad_id"`
	BuyerID  uuid.UUID `json:"buyer_id"`
	IsActive bool      `json:"is_active"`
	Reason   string    `json:"reason,omitempty"`
}

// OrderCreatedEvent covers every order materialized from one checkout attempt.
type OrderCreatedEvent struct {
	CheckoutAttemptID uuid.UUID       `json:"checkout_attempt_id"`
	PaymentIntentID   string          `json:"payment_intent_id"`
	BuyerID           uuid.UUID       `json:"buyer_id"`
	OrderIDs          []uuid.UUID     `json:"order_ids"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Currency          enums.Currency  `json:"currency"`
}

// OrderPaidEvent is emitted once per order after a verified capture.
type OrderPaidEvent struct {
	OrderID         uuid.UUID       `json:"order_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	PaymentID       string          `json:"payment_id"`
	AdID            uuid.UUID       `json:"ad_id"`
	OfferID         uuid.UUID       `json:"offer_id"`
	BuyerID         uuid.UUID       `json:"buyer_id"`
	BuyerName       string          `json:"buyer_name"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	VendorUserID    uuid.UUID       `json:"vendor_user_id"`
	ProductName     string          `json:"product_name"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAt          time.Time       `json:"paid_at"`
}

type OrderPaymentFailedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	PaymentID       string    `json:"payment_id,omitempty"`
	BuyerID         uuid.UUID `json:"buyer_id"`
	Reason          string    `json:"reason"`
}

type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID               `json:"order_id"`
	BuyerID     uuid.UUID               `json:"buyer_id"`
	VendorID    uuid.UUID               `json:"vendor_id"`
	ProductName string                  `json:"product_name"`
	From        enums.FulfillmentStatus `json:"from"`
	To          enums.FulfillmentStatus `json:"to"`
	ActorRole   enums.Role              `json:"actor_role"`
}

type OrderRefundedEvent struct {
	OrderID   uuid.UUID       `json:"order_id"`
	PaymentID string          `json:"payment_id"`
	RefundID  string          `json:"refund_id"`
	BuyerID   uuid.UUID       `json:"buyer_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// CheckoutReconciledEvent records the outcome of an orphaned attempt sweep.
type CheckoutReconciledEvent struct {
	CheckoutAttemptID uuid.UUID                   `json:"checkout_attempt_id"`
	PaymentIntentID   string                      `json:"payment_intent_id,omitempty"`
	Outcome           enums.CheckoutAttemptStatus `json:"outcome"`
	OrderIDs          []uuid.UUID                 `json:"order_ids,omitempty"`
}
