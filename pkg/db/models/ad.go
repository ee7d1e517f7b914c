package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ad is a buyer's open purchase request against a catalog product.
type Ad struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	AddressID       uuid.UUID       `gorm:"column:address_id;type:uuid;not null"`
	PricePerProduct decimal.Decimal `gorm:"column:price_per_product;type:numeric(12,2);not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	IsActive        bool            `gorm:"column:is_active;not null"`
	Categories      pq.StringArray  `gorm:"column:categories;type:text[];not null"`
	OfferCount      int             `gorm:"column:offer_count;not null"`
	Offers          []Offer         `gorm:"foreignKey:AdID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Offer is a vendor bid on an ad. (ad_id, vendor_id) is unique.
type Offer struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AdID            uuid.UUID       `gorm:"column:ad_id;type:uuid;not null"`
	VendorID        uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null"`
	PricePerProduct decimal.Decimal `gorm:"column:price_per_product;type:numeric(12,2);not null"`
	DispatchDay     int             `gorm:"column:dispatch_day;not null"`
	Remark          string          `gorm:"column:remark;not null"`
	LockedAt        *time.Time      `gorm:"column:locked_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// LineTotal is the offer price applied to the ad quantity.
func (o Offer) LineTotal(quantity int) decimal.Decimal {
	return o.PricePerProduct.Mul(decimal.NewFromInt(int64(quantity)))
}

// IsLocked reports whether a paid order references the offer.
func (o Offer) IsLocked() bool {
	return o.LockedAt != nil
}

func (a *Ad) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (o *Offer) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
