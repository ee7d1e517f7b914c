package ads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/pagination"
)

// ListFilters narrows the ad listing. Nil fields are ignored.
type ListFilters struct {
	MaxPrice         *decimal.Decimal
	Categories       []enums.Category
	MinQuantity      *int
	IsActive         *bool
	ExcludeDecidedBy *uuid.UUID
}

// PostAdInput carries a buyer's purchase request.
type PostAdInput struct {
	ProductID       uuid.UUID
	AddressID       uuid.UUID
	PricePerProduct decimal.Decimal
	Quantity        int
	Categories      []enums.Category
}

// SubmitOfferInput carries a vendor's bid on an ad.
type SubmitOfferInput struct {
	AdID            uuid.UUID
	PricePerProduct decimal.Decimal
	DispatchDay     int
	Remark          string
}

type RegisterVendorInput struct {
	MerchantID  uuid.UUID
	Name        string
	Description *string
}

type OfferDTO struct {
	ID              uuid.UUID       `json:"id"`
	AdID            uuid.UUID       `json:"ad_id"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	PricePerProduct decimal.Decimal `json:"price_per_product"`
	DispatchDay     int             `json:"dispatch_day"`
	Remark          string          `json:"remark"`
	Locked          bool            `json:"locked"`
	CreatedAt       time.Time       `json:"created_at"`
}

type AdDTO struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	ProductID       uuid.UUID        `json:"product_id"`
	AddressID       uuid.UUID        `json:"address_id"`
	PricePerProduct decimal.Decimal  `json:"price_per_product"`
	Quantity        int              `json:"quantity"`
	IsActive        bool             `json:"is_active"`
	Categories      []enums.Category `json:"categories"`
	OfferCount      int              `json:"offer_count"`
	Offers          []OfferDTO       `json:"offers,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// AdList is one page of ads.
type AdList struct {
	Items      []AdDTO `json:"items"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	Total      int64   `json:"total"`
	TotalPages int     `json:"total_pages"`
}

type VendorDTO struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	MerchantID    uuid.UUID `json:"merchant_id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	Rating        int       `json:"rating"`
	IsActive      bool      `json:"is_active"`
	AcceptedCount int64     `json:"accepted_count"`
	RejectedCount int64     `json:"rejected_count"`
}

func toOfferDTO(o models.Offer) OfferDTO {
	return OfferDTO{
		ID:              o.ID,
		AdID:            o.AdID,
		VendorID:        o.VendorID,
		PricePerProduct: o.PricePerProduct,
		DispatchDay:     o.DispatchDay,
		Remark:          o.Remark,
		Locked:          o.IsLocked(),
		CreatedAt:       o.CreatedAt,
	}
}

// toAdDTO keeps only the offers visible reports true for.
func toAdDTO(ad models.Ad, visible func(models.Offer) bool) AdDTO {
	categories := make([]enums.Category, 0, len(ad.Categories))
	for _, c := range ad.Categories {
		categories = append(categories, enums.Category(c))
	}
	dto := AdDTO{
		ID:              ad.ID,
		UserID:          ad.UserID,
		ProductID:       ad.ProductID,
		AddressID:       ad.AddressID,
		PricePerProduct: ad.PricePerProduct,
		Quantity:        ad.Quantity,
		IsActive:        ad.IsActive,
		Categories:      categories,
		OfferCount:      ad.OfferCount,
		CreatedAt:       ad.CreatedAt,
	}
	for _, offer := range ad.Offers {
		if visible == nil || visible(offer) {
			dto.Offers = append(dto.Offers, toOfferDTO(offer))
		}
	}
	return dto
}

func newAdList(ads []models.Ad, total int64, page pagination.Page, visible func(models.Offer) bool) *AdList {
	page = page.Normalize()
	items := make([]AdDTO, 0, len(ads))
	for _, ad := range ads {
		items = append(items, toAdDTO(ad, visible))
	}
	return &AdList{
		Items:      items,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      total,
		TotalPages: pagination.TotalPages(total, page.Limit),
	}
}

func toVendorDTO(v models.Vendor, accepted, rejected int64) VendorDTO {
	return VendorDTO{
		ID:            v.ID,
		UserID:        v.UserID,
		MerchantID:    v.MerchantID,
		Name:          v.Name,
		Description:   v.Description,
		Rating:        v.Rating,
		IsActive:      v.IsActive,
		AcceptedCount: accepted,
		RejectedCount: rejected,
	}
}
