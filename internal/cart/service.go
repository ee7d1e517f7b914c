// Package cart assembles accepted offers into a buyer cart whose total is
// recomputed inside every mutation.
package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bidmart-backend/pkg/db"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type offerReader interface {
	FindAd(ctx context.Context, id uuid.UUID) (*models.Ad, error)
	FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error)
}

// Service exposes cart operations for the authenticated buyer.
type Service interface {
	Get(ctx context.Context, actor types.Actor) (*CartDTO, error)
	AddOffer(ctx context.Context, actor types.Actor, adID, offerID uuid.UUID) (*CartDTO, error)
	RemoveItem(ctx context.Context, actor types.Actor, itemID uuid.UUID) (*CartDTO, error)
}

type service struct {
	repo   Repository
	offers offerReader
	tx     txRunner
}

func NewService(repo Repository, offers offerReader, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if offers == nil {
		return nil, fmt.Errorf("offer reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, offers: offers, tx: tx}, nil
}

// Get returns the buyer cart, or an empty one when none exists yet.
func (s *service) Get(ctx context.Context, actor types.Actor) (*CartDTO, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cart, err := s.repo.FindByUser(ctx, actor.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return &CartDTO{UserID: actor.UserID, OverallPrice: decimal.Zero, Items: []CartItemDTO{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return toCartDTO(cart), nil
}

func (s *service) AddOffer(ctx context.Context, actor types.Actor, adID, offerID uuid.UUID) (*CartDTO, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if adID == uuid.Nil || offerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adId and offerId are required")
	}
	ad, err := s.offers.FindAd(ctx, adID)
	if err != nil {
		return nil, lookupError(err, "ad not found")
	}
	if ad.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "ad belongs to another user")
	}
	if !ad.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "ad is inactive")
	}
	offer, err := s.offers.FindOffer(ctx, offerID)
	if err != nil {
		return nil, lookupError(err, "offer not found")
	}
	if offer.AdID != ad.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer does not belong to ad")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.LockOrCreate(ctx, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		item := &models.CartItem{
			CartID:          cart.ID,
			AdID:            ad.ID,
			OfferID:         offer.ID,
			ProductID:       ad.ProductID,
			VendorID:        offer.VendorID,
			AddressID:       ad.AddressID,
			Quantity:        ad.Quantity,
			PricePerProduct: offer.PricePerProduct,
			TotalPrice:      offer.LineTotal(ad.Quantity),
			DispatchDay:     offer.DispatchDay,
			Remark:          offer.Remark,
		}
		if err := repo.AddItem(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeScopedConflict, "offer already in cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
		}
		if _, err := repo.Recalculate(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recalculate cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor)
}

func (s *service) RemoveItem(ctx context.Context, actor types.Actor, itemID uuid.UUID) (*CartDTO, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.LockByUser(ctx, actor.UserID)
		if err != nil {
			return lookupError(err, "cart not found")
		}
		if _, err := repo.FindItem(ctx, cart.ID, itemID); err != nil {
			return lookupError(err, "cart item not found")
		}
		if _, err := repo.DeleteItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
		if _, err := repo.Recalculate(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recalculate cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor)
}

func lookupError(err error, notFound string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart lookup failed")
}
