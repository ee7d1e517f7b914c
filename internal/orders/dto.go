package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/pagination"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

// AdminFilters narrows the admin order listing.
type AdminFilters struct {
	PaymentStatus     *enums.PaymentStatus
	FulfillmentStatus *enums.FulfillmentStatus
	PaymentIntentID   string
}

// VerifyInput is the gateway checkout callback.
type VerifyInput struct {
	IntentID  string
	PaymentID string
	Signature string
}

// RefundInput identifies the captured payment to reverse. OrderID is required
// when the payment settled more than one order.
type RefundInput struct {
	PaymentID string
	OrderID   *uuid.UUID
}

type OrderDTO struct {
	ID                uuid.UUID               `json:"id"`
	UserID            uuid.UUID               `json:"user_id"`
	AdID              uuid.UUID               `json:"ad_id"`
	OfferID           uuid.UUID               `json:"offer_id"`
	VendorID          uuid.UUID               `json:"vendor_id"`
	PaymentIntentID   string                  `json:"payment_intent_id"`
	Receipt           string                  `json:"receipt"`
	PaymentStatus     enums.PaymentStatus     `json:"payment_status"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillment_status"`
	Product           types.ProductSnapshot   `json:"product"`
	Vendor            types.VendorSnapshot    `json:"vendor"`
	Address           types.AddressSnapshot   `json:"address"`
	PricePerProduct   decimal.Decimal         `json:"price_per_product"`
	Quantity          int                     `json:"quantity"`
	TotalAmount       decimal.Decimal         `json:"total_amount"`
	Currency          enums.Currency          `json:"currency"`
	DispatchDay       int                     `json:"dispatch_day"`
	Remark            string                  `json:"remark"`
	PaymentID         *string                 `json:"payment_id,omitempty"`
	RefundID          *string                 `json:"refund_id,omitempty"`
	PaidAt            *time.Time              `json:"paid_at,omitempty"`
	CancelledAt       *time.Time              `json:"cancelled_at,omitempty"`
	RefundedAt        *time.Time              `json:"refunded_at,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
}

// VerifyResult reports the callback outcome. A signature mismatch is a normal
// result with Success false, not an error.
type VerifyResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Orders  []OrderDTO `json:"order"`
}

type RefundResult struct {
	RefundID string    `json:"refund_id"`
	Order    *OrderDTO `json:"order"`
}

// OrderList is one page of orders.
type OrderList struct {
	Items      []OrderDTO `json:"items"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Total      int64      `json:"total"`
	TotalPages int        `json:"total_pages"`
}

// ToDTO maps a persisted order to its API shape.
func ToDTO(o models.Order) OrderDTO {
	return OrderDTO{
		ID:                o.ID,
		UserID:            o.UserID,
		AdID:              o.AdID,
		OfferID:           o.OfferID,
		VendorID:          o.VendorID,
		PaymentIntentID:   o.PaymentIntentID,
		Receipt:           o.Receipt,
		PaymentStatus:     o.PaymentStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		Product:           o.Product,
		Vendor:            o.Vendor,
		Address:           o.Address,
		PricePerProduct:   o.PricePerProduct,
		Quantity:          o.Quantity,
		TotalAmount:       o.TotalAmount,
		Currency:          o.Currency,
		DispatchDay:       o.DispatchDay,
		Remark:            o.Remark,
		PaymentID:         o.PaymentID,
		RefundID:          o.RefundID,
		PaidAt:            o.PaidAt,
		CancelledAt:       o.CancelledAt,
		RefundedAt:        o.RefundedAt,
		CreatedAt:         o.CreatedAt,
	}
}

func toDTOs(orders []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, ToDTO(o))
	}
	return out
}

func newOrderList(orders []models.Order, total int64, page pagination.Page) *OrderList {
	page = page.Normalize()
	return &OrderList{
		Items:      toDTOs(orders),
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      total,
		TotalPages: pagination.TotalPages(total, page.Limit),
	}
}
