package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

// Order is the committed record created at checkout. Product, vendor and
// address are copied by value; orders are never deleted.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID               `gorm:"column:user_id;type:uuid;not null"`
	AdID              uuid.UUID               `gorm:"column:ad_id;type:uuid;not null"`
	OfferID           uuid.UUID               `gorm:"column:offer_id;type:uuid;not null"`
	VendorID          uuid.UUID               `gorm:"column:vendor_id;type:uuid;not null"`
	CheckoutAttemptID uuid.UUID               `gorm:"column:checkout_attempt_id;type:uuid;not null"`
	PaymentIntentID   string                  `gorm:"column:payment_intent_id;not null"`
	Receipt           string                  `gorm:"column:receipt;not null"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;type:text;not null"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:text;not null"`
	Product           types.ProductSnapshot   `gorm:"column:product_snapshot;type:jsonb;serializer:json;not null"`
	Vendor            types.VendorSnapshot    `gorm:"column:vendor_snapshot;type:jsonb;serializer:json;not null"`
	Address           types.AddressSnapshot   `gorm:"column:address_snapshot;type:jsonb;serializer:json;not null"`
	PricePerProduct   decimal.Decimal         `gorm:"column:price_per_product;type:numeric(12,2);not null"`
	Quantity          int                     `gorm:"column:quantity;not null"`
	TotalAmount       decimal.Decimal         `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Currency          enums.Currency          `gorm:"column:currency;type:text;not null"`
	DispatchDay       int                     `gorm:"column:dispatch_day;not null"`
	Remark            string                  `gorm:"column:remark;not null"`
	PaymentID         *string                 `gorm:"column:payment_id"`
	PaymentSignature  *string                 `gorm:"column:payment_signature"`
	RefundID          *string                 `gorm:"column:refund_id"`
	PaidAt            *time.Time              `gorm:"column:paid_at"`
	CancelledAt       *time.Time              `gorm:"column:cancelled_at"`
	RefundedAt        *time.Time              `gorm:"column:refunded_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
