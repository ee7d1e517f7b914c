package ads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bidmart-backend/internal/repo"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/pagination"
)

// Repository persists ads, offers and vendor decisions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateAd(ctx context.Context, ad *models.Ad) error
	FindAd(ctx context.Context, id uuid.UUID) (*models.Ad, error)
	FindAdWithOffers(ctx context.Context, id uuid.UUID) (*models.Ad, error)
	LockAd(ctx context.Context, id uuid.UUID) (*models.Ad, error)
	ListAds(ctx context.Context, filters ListFilters, page pagination.Page) ([]models.Ad, int64, error)
	ListAdsByUser(ctx context.Context, userID uuid.UUID, page pagination.Page) ([]models.Ad, int64, error)
	SetAdActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	AdjustOfferCount(ctx context.Context, id uuid.UUID, delta int) error
	HasCapturedOrder(ctx context.Context, adID uuid.UUID) (bool, error)

	CreateOffer(ctx context.Context, offer *models.Offer) error
	FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindOfferByVendor(ctx context.Context, adID, vendorID uuid.UUID) (*models.Offer, error)
	DeleteUnlockedOffer(ctx context.Context, id uuid.UUID) (bool, error)
	LockOffer(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateDecision(ctx context.Context, decision *models.VendorAdDecision) error
	FindDecision(ctx context.Context, vendorID, adID uuid.UUID) (*models.VendorAdDecision, error)
	DeleteDecision(ctx context.Context, vendorID, adID uuid.UUID, decision enums.VendorDecision) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds an ads repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) CreateAd(ctx context.Context, ad *models.Ad) error {
	return r.base.DB(ctx).Create(ad).Error
}

func (r *repository) FindAd(ctx context.Context, id uuid.UUID) (*models.Ad, error) {
	var ad models.Ad
	if err := r.base.DB(ctx).Where("id = ?", id).First(&ad).Error; err != nil {
		return nil, err
	}
	return &ad, nil
}

func (r *repository) FindAdWithOffers(ctx context.Context, id uuid.UUID) (*models.Ad, error) {
	var ad models.Ad
	err := r.base.DB(ctx).
		Preload("Offers", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&ad).Error
	if err != nil {
		return nil, err
	}
	return &ad, nil
}

// LockAd reads the ad row under FOR UPDATE so offer mutations on one ad serialize.
func (r *repository) LockAd(ctx context.Context, id uuid.UUID) (*models.Ad, error) {
	query := r.base.DB(ctx)
	if r.base.IsPostgres() {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var ad models.Ad
	if err := query.Where("id = ?", id).First(&ad).Error; err != nil {
		return nil, err
	}
	return &ad, nil
}

func (r *repository) ListAds(ctx context.Context, filters ListFilters, page pagination.Page) ([]models.Ad, int64, error) {
	query := r.base.DB(ctx).Model(&models.Ad{})
	if filters.MaxPrice != nil {
		query = query.Where("CAST(price_per_product AS NUMERIC) <= ?", *filters.MaxPrice)
	}
	if filters.MinQuantity != nil {
		query = query.Where("quantity >= ?", *filters.MinQuantity)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if len(filters.Categories) > 0 {
		query = r.categoryFilter(query, filters.Categories)
	}
	if filters.ExcludeDecidedBy != nil {
		query = query.Where(
			"id NOT IN (SELECT ad_id FROM vendor_ad_decisions WHERE vendor_id = ?)",
			*filters.ExcludeDecidedBy,
		)
	}
	return r.page(query, page, false)
}

func (r *repository) ListAdsByUser(ctx context.Context, userID uuid.UUID, page pagination.Page) ([]models.Ad, int64, error) {
	query := r.base.DB(ctx).Model(&models.Ad{}).Where("user_id = ?", userID)
	return r.page(query, page, true)
}

func (r *repository) page(query *gorm.DB, page pagination.Page, withOffers bool) ([]models.Ad, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page = page.Normalize()
	find := query.Session(&gorm.Session{})
	if withOffers {
		find = find.Preload("Offers", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
	}
	var ads []models.Ad
	err := find.
		Order("created_at DESC").
		Order("id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&ads).Error
	if err != nil {
		return nil, 0, err
	}
	return ads, total, nil
}

// categoryFilter matches ads carrying any of the requested tags. Postgres uses
// array overlap; sqlite stores the array literal as text.
func (r *repository) categoryFilter(query *gorm.DB, categories []enums.Category) *gorm.DB {
	values := make([]string, 0, len(categories))
	for _, c := range categories {
		values = append(values, string(c))
	}
	if r.base.IsPostgres() {
		return query.Where("categories && ?", pq.StringArray(values))
	}
	cond := query.Session(&gorm.Session{NewDB: true}).Where("categories LIKE ?", "%"+values[0]+"%")
	for _, v := range values[1:] {
		cond = cond.Or("categories LIKE ?", "%"+v+"%")
	}
	return query.Where(cond)
}

// SetAdActive flips is_active and reports whether the row changed.
func (r *repository) SetAdActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	result := r.base.DB(ctx).Model(&models.Ad{}).
		Where("id = ? AND is_active <> ?", id, active).
		Updates(map[string]any{
			"is_active":  active,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) AdjustOfferCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.base.DB(ctx).Model(&models.Ad{}).
		Where("id = ?", id).
		Update("offer_count", gorm.Expr("offer_count + ?", delta)).Error
}

// HasCapturedOrder reports whether a paid order has closed the ad.
func (r *repository) HasCapturedOrder(ctx context.Context, adID uuid.UUID) (bool, error) {
	var count int64
	err := r.base.DB(ctx).Model(&models.Order{}).
		Where("ad_id = ? AND payment_status = ?", adID, enums.PaymentStatusCaptured).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateOffer(ctx context.Context, offer *models.Offer) error {
	return r.base.DB(ctx).Create(offer).Error
}

func (r *repository) FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.base.DB(ctx).Where("id = ?", id).First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) FindOfferByVendor(ctx context.Context, adID, vendorID uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	err := r.base.DB(ctx).
		Where("ad_id = ? AND vendor_id = ?", adID, vendorID).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// DeleteUnlockedOffer removes the offer unless a paid order has locked it.
func (r *repository) DeleteUnlockedOffer(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.base.DB(ctx).
		Where("id = ? AND locked_at IS NULL", id).
		Delete(&models.Offer{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) LockOffer(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.base.DB(ctx).Model(&models.Offer{}).
		Where("id = ? AND locked_at IS NULL", id).
		Update("locked_at", at).Error
}

func (r *repository) CreateDecision(ctx context.Context, decision *models.VendorAdDecision) error {
	return r.base.DB(ctx).Create(decision).Error
}

func (r *repository) FindDecision(ctx context.Context, vendorID, adID uuid.UUID) (*models.VendorAdDecision, error) {
	var decision models.VendorAdDecision
	err := r.base.DB(ctx).
		Where("vendor_id = ? AND ad_id = ?", vendorID, adID).
		First(&decision).Error
	if err != nil {
		return nil, err
	}
	return &decision, nil
}

func (r *repository) DeleteDecision(ctx context.Context, vendorID, adID uuid.UUID, decision enums.VendorDecision) error {
	return r.base.DB(ctx).
		Where("vendor_id = ? AND ad_id = ? AND decision = ?", vendorID, adID, decision).
		Delete(&models.VendorAdDecision{}).Error
}
