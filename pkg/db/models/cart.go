package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is the per-buyer running cart. OverallPrice is recomputed from Items on every mutation.
type Cart struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	OverallPrice decimal.Decimal `gorm:"column:overall_price;type:numeric(14,2);not null"`
	Items        []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem snapshots an offer at the time it was added. (cart_id, offer_id) is unique.
type CartItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID          uuid.UUID       `gorm:"column:cart_id;type:uuid;not null"`
	AdID            uuid.UUID       `gorm:"column:ad_id;type:uuid;not null"`
	OfferID         uuid.UUID       `gorm:"column:offer_id;type:uuid;not null"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VendorID        uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null"`
	AddressID       uuid.UUID       `gorm:"column:address_id;type:uuid;not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	PricePerProduct decimal.Decimal `gorm:"column:price_per_product;type:numeric(12,2);not null"`
	TotalPrice      decimal.Decimal `gorm:"column:total_price;type:numeric(14,2);not null"`
	DispatchDay     int             `gorm:"column:dispatch_day;not null"`
	Remark          string          `gorm:"column:remark;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// SumItems returns the aggregate of line totals.
func SumItems(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
