package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bidmart-backend/internal/repo"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
)

// Repository persists carts and their offer lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	LockByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	LockOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, item *models.CartItem) error
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	DeleteItem(ctx context.Context, itemID uuid.UUID) (bool, error)
	DeleteItemsByOffers(ctx context.Context, cartID uuid.UUID, offerIDs []uuid.UUID) error
	Recalculate(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error)
	DetachOffer(ctx context.Context, offerID uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds a cart repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.base.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) LockByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	query := r.base.DB(ctx)
	if r.base.IsPostgres() {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var cart models.Cart
	if err := query.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// LockOrCreate inserts the buyer's cart on first use and returns it locked.
func (r *repository) LockOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	fresh := &models.Cart{UserID: userID, OverallPrice: decimal.Zero}
	err := r.base.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(fresh).Error
	if err != nil {
		return nil, err
	}
	return r.LockByUser(ctx, userID)
}

func (r *repository) AddItem(ctx context.Context, item *models.CartItem) error {
	return r.base.DB(ctx).Create(item).Error
}

func (r *repository) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.base.DB(ctx).
		Where("cart_id = ? AND id = ?", cartID, itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) (bool, error) {
	result := r.base.DB(ctx).Where("id = ?", itemID).Delete(&models.CartItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) DeleteItemsByOffers(ctx context.Context, cartID uuid.UUID, offerIDs []uuid.UUID) error {
	if len(offerIDs) == 0 {
		return nil
	}
	return r.base.DB(ctx).
		Where("cart_id = ? AND offer_id IN ?", cartID, offerIDs).
		Delete(&models.CartItem{}).Error
}

// Recalculate rewrites overall_price from the current lines.
func (r *repository) Recalculate(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error) {
	var items []models.CartItem
	if err := r.base.DB(ctx).Where("cart_id = ?", cartID).Find(&items).Error; err != nil {
		return decimal.Zero, err
	}
	total := models.SumItems(items)
	err := r.base.DB(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("overall_price", total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// DetachOffer drops every cart line built on offerID and recomputes the
// totals of the carts it touched, which it returns.
func (r *repository) DetachOffer(ctx context.Context, offerID uuid.UUID) ([]uuid.UUID, error) {
	var cartIDs []uuid.UUID
	err := r.base.DB(ctx).Model(&models.CartItem{}).
		Where("offer_id = ?", offerID).
		Distinct("cart_id").
		Pluck("cart_id", &cartIDs).Error
	if err != nil || len(cartIDs) == 0 {
		return nil, err
	}
	if r.base.IsPostgres() {
		var locked []models.Cart
		err := r.base.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id IN ?", cartIDs).Order("id").Find(&locked).Error
		if err != nil {
			return nil, err
		}
	}
	if err := r.base.DB(ctx).Where("offer_id = ?", offerID).Delete(&models.CartItem{}).Error; err != nil {
		return nil, err
	}
	for _, id := range cartIDs {
		if _, err := r.Recalculate(ctx, id); err != nil {
			return nil, err
		}
	}
	return cartIDs, nil
}

// OfferPruner adapts Repository for callers that withdraw offers.
type OfferPruner struct {
	Carts Repository
}

func (p OfferPruner) DetachOffer(ctx context.Context, tx *gorm.DB, offerID uuid.UUID) error {
	_, err := p.Carts.WithTx(tx).DetachOffer(ctx, offerID)
	return err
}
