package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bidmart-backend/internal/orders"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

// Line is one offer being paid for, with product, vendor and address copied by value.
type Line struct {
	AdID            uuid.UUID             `json:"ad_id"`
	OfferID         uuid.UUID             `json:"offer_id"`
	VendorID        uuid.UUID             `json:"vendor_id"`
	Product         types.ProductSnapshot `json:"product"`
	Vendor          types.VendorSnapshot  `json:"vendor"`
	Address         types.AddressSnapshot `json:"address"`
	PricePerProduct decimal.Decimal       `json:"price_per_product"`
	Quantity        int                   `json:"quantity"`
	Total           decimal.Decimal       `json:"total"`
	DispatchDay     int                   `json:"dispatch_day"`
	Remark          string                `json:"remark"`
}

// Snapshot is stored on the attempt so orders can be rebuilt without the cart.
type Snapshot struct {
	Lines []Line `json:"lines"`
}

// IntentDTO is the gateway order the client pays against.
type IntentDTO struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Result pairs the persisted orders with the gateway intent the client pays.
type Result struct {
	AttemptID uuid.UUID         `json:"checkout_attempt_id"`
	Orders    []orders.OrderDTO `json:"orderDoc"`
	Intent    IntentDTO         `json:"order"`
}

// ReconcileSummary counts what one sweep did.
type ReconcileSummary struct {
	Scanned    int `json:"scanned"`
	Reconciled int `json:"reconciled"`
	Abandoned  int `json:"abandoned"`
	Skipped    int `json:"skipped"`
}
