package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bidmart-backend/pkg/enums"
)

const (
	VendorMinRating = 1
	VendorMaxRating = 5
)

// Vendor is a user acting for a merchant in the bidding pool.
type Vendor struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	MerchantID  uuid.UUID `gorm:"column:merchant_id;type:uuid;not null"`
	Name        string    `gorm:"column:name;not null"`
	Description *string   `gorm:"column:description"`
	Rating      int       `gorm:"column:rating;not null"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// VendorAdDecision is one row of the vendor's accepted or rejected ad list.
// The (vendor_id, ad_id) unique key keeps the two lists disjoint.
type VendorAdDecision struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID  uuid.UUID            `gorm:"column:vendor_id;type:uuid;not null"`
	AdID      uuid.UUID            `gorm:"column:ad_id;type:uuid;not null"`
	Decision  enums.VendorDecision `gorm:"column:decision;type:text;not null"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	if v.Rating < VendorMinRating {
		v.Rating = VendorMinRating
	}
	return nil
}

func (d *VendorAdDecision) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
