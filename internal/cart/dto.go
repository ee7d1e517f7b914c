package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
)

type CartItemDTO struct {
	ID              uuid.UUID       `json:"id"`
	AdID            uuid.UUID       `json:"ad_id"`
	OfferID         uuid.UUID       `json:"offer_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	AddressID       uuid.UUID       `json:"address_id"`
	Quantity        int             `json:"quantity"`
	PricePerProduct decimal.Decimal `json:"price_per_product"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	DispatchDay     int             `json:"dispatch_day"`
	Remark          string          `json:"remark"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CartDTO is the buyer cart. OverallPrice always equals the sum of item totals.
type CartDTO struct {
	ID           uuid.UUID       `json:"id,omitempty"`
	UserID       uuid.UUID       `json:"user_id"`
	OverallPrice decimal.Decimal `json:"overall_price"`
	Items        []CartItemDTO   `json:"items"`
}

func toCartDTO(cart *models.Cart) *CartDTO {
	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, CartItemDTO{
			ID:              item.ID,
			AdID:            item.AdID,
			OfferID:         item.OfferID,
			ProductID:       item.ProductID,
			VendorID:        item.VendorID,
			AddressID:       item.AddressID,
			Quantity:        item.Quantity,
			PricePerProduct: item.PricePerProduct,
			TotalPrice:      item.TotalPrice,
			DispatchDay:     item.DispatchDay,
			Remark:          item.Remark,
			CreatedAt:       item.CreatedAt,
		})
	}
	return &CartDTO{
		ID:           cart.ID,
		UserID:       cart.UserID,
		OverallPrice: cart.OverallPrice,
		Items:        items,
	}
}
