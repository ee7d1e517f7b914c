// Package ads is the offer ledger: buyer ads, vendor offers and the per-vendor
// accepted and rejected ad sets.
package ads

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/bidmart-backend/pkg/db"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bidmart-backend/pkg/pagination"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// cartPruner drops cart lines built on a withdrawn offer, keeping cart totals
// in step, within the caller's transaction.
type cartPruner interface {
	DetachOffer(ctx context.Context, tx *gorm.DB, offerID uuid.UUID) error
}

type catalogReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetAddress(ctx context.Context, userID, id uuid.UUID) (*models.Address, error)
}

// Service exposes the offer ledger operations.
type Service interface {
	PostAd(ctx context.Context, actor types.Actor, input PostAdInput) (*AdDTO, error)
	GetAd(ctx context.Context, actor types.Actor, adID uuid.UUID) (*AdDTO, error)
	ListAds(ctx context.Context, actor types.Actor, filters ListFilters, page pagination.Page) (*AdList, error)
	ListMine(ctx context.Context, actor types.Actor, page pagination.Page) (*AdList, error)
	SetAdActive(ctx context.Context, actor types.Actor, adID uuid.UUID, isActive bool) (*AdDTO, error)
	SubmitOffer(ctx context.Context, actor types.Actor, input SubmitOfferInput) (*OfferDTO, error)
	RejectOffer(ctx context.Context, actor types.Actor, adID uuid.UUID) error
	CancelOffer(ctx context.Context, actor types.Actor, adID uuid.UUID) error
	RegisterVendor(ctx context.Context, actor types.Actor, input RegisterVendorInput) (*VendorDTO, error)
	GetVendor(ctx context.Context, actor types.Actor) (*VendorDTO, error)
}

type service struct {
	repo    Repository
	vendors VendorRepository
	carts   cartPruner
	catalog catalogReader
	tx      txRunner
	outbox  outboxPublisher
}

func NewService(repo Repository, vendors VendorRepository, carts cartPruner, catalog catalogReader, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ads repository required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart pruner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		vendors: vendors,
		carts:   carts,
		catalog: catalog,
		tx:      tx,
		outbox:  outbox,
	}, nil
}

func (s *service) PostAd(ctx context.Context, actor types.Actor, input PostAdInput) (*AdDTO, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PricePerProduct.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pricePerProduct must be greater than zero")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	for _, c := range input.Categories {
		if !c.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", c))
		}
	}

	product, err := s.catalog.GetActiveProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	address, err := s.catalog.GetAddress(ctx, actor.UserID, input.AddressID)
	if err != nil {
		return nil, err
	}

	categories := input.Categories
	if len(categories) == 0 {
		categories = []enums.Category{product.Category}
	}
	tags := make(pq.StringArray, 0, len(categories))
	for _, c := range categories {
		tags = append(tags, string(c))
	}

	ad := &models.Ad{
		UserID:          actor.UserID,
		ProductID:       product.ID,
		AddressID:       address.ID,
		PricePerProduct: input.PricePerProduct,
		Quantity:        input.Quantity,
		IsActive:        true,
		Categories:      tags,
	}
	if err := s.repo.CreateAd(ctx, ad); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ad")
	}
	dto := toAdDTO(*ad, nil)
	return &dto, nil
}

// GetAd is open to the owner, admins and vendors. Vendors only see their own offer.
func (s *service) GetAd(ctx context.Context, actor types.Actor, adID uuid.UUID) (*AdDTO, error) {
	ad, err := s.repo.FindAdWithOffers(ctx, adID)
	if err != nil {
		return nil, mapAdError(err)
	}
	switch {
	case actor.IsAdmin(), ad.UserID == actor.UserID:
		dto := toAdDTO(*ad, nil)
		return &dto, nil
	case actor.IsVendor():
		vendorID := uuid.Nil
		if vendor, err := s.vendors.FindByUserID(ctx, actor.UserID); err == nil {
			vendorID = vendor.ID
		} else if !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
		}
		dto := toAdDTO(*ad, func(o models.Offer) bool { return o.VendorID == vendorID })
		return &dto, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "ad belongs to another user")
	}
}

// ListAds hides ads the calling vendor already accepted or rejected. Vendors
// see active ads unless they ask otherwise.
func (s *service) ListAds(ctx context.Context, actor types.Actor, filters ListFilters, page pagination.Page) (*AdList, error) {
	filters.ExcludeDecidedBy = nil
	if actor.IsVendor() {
		vendor, err := s.vendors.FindByUserID(ctx, actor.UserID)
		switch {
		case err == nil:
			filters.ExcludeDecidedBy = &vendor.ID
		case !db.IsNotFound(err):
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
		}
		if filters.IsActive == nil {
			active := true
			filters.IsActive = &active
		}
	}
	for _, c := range filters.Categories {
		if !c.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", c))
		}
	}

	ads, total, err := s.repo.ListAds(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ads")
	}
	return newAdList(ads, total, page, nil), nil
}

func (s *service) ListMine(ctx context.Context, actor types.Actor, page pagination.Page) (*AdList, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	ads, total, err := s.repo.ListAdsByUser(ctx, actor.UserID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ads")
	}
	return newAdList(ads, total, page, nil), nil
}

func (s *service) SetAdActive(ctx context.Context, actor types.Actor, adID uuid.UUID, isActive bool) (*AdDTO, error) {
	var updated *models.Ad
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ad, err := repo.LockAd(ctx, adID)
		if err != nil {
			return mapAdError(err)
		}
		if ad.UserID != actor.UserID && !actor.IsAdmin() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin may change ad status")
		}
		if isActive && !ad.IsActive {
			captured, err := repo.HasCapturedOrder(ctx, adID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check paid orders")
			}
			if captured {
				return pkgerrors.New(pkgerrors.CodeConflict, "ad has a paid order and cannot be reactivated")
			}
		}
		changed, err := repo.SetAdActive(ctx, adID, isActive)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ad status")
		}
		if changed {
			event := outbox.DomainEvent{
				EventType:     enums.EventAdStatusChanged,
				AggregateType: enums.AggregateAd,
				AggregateID:   ad.ID,
				Actor:         actorRef(actor),
				Data: payloads.AdStatusChangedEvent{
					AdID:     ad.ID,
					BuyerID:  ad.UserID,
					IsActive: isActive,
					Reason:   "manual",
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit ad status event")
			}
		}
		ad.IsActive = isActive
		updated = ad
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toAdDTO(*updated, nil)
	return &dto, nil
}

// SubmitOffer records the bid and the accepted decision together. The ad row is
// locked and its active flag rechecked inside the transaction; the unique keys
// on offers and vendor_ad_decisions reject a concurrent duplicate.
func (s *service) SubmitOffer(ctx context.Context, actor types.Actor, input SubmitOfferInput) (*OfferDTO, error) {
	if !input.PricePerProduct.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pricePerProduct must be greater than zero")
	}
	if input.DispatchDay <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispatchDay must be greater than zero")
	}
	vendor, err := s.activeVendor(ctx, actor)
	if err != nil {
		return nil, err
	}
	ad, err := s.repo.FindAd(ctx, input.AdID)
	if err != nil {
		return nil, mapAdError(err)
	}
	if ad.UserID == actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot bid on your own ad")
	}
	productName := ""
	if product, err := s.catalog.GetProduct(ctx, ad.ProductID); err == nil {
		productName = product.Name
	}

	offer := &models.Offer{
		AdID:            ad.ID,
		VendorID:        vendor.ID,
		PricePerProduct: input.PricePerProduct,
		DispatchDay:     input.DispatchDay,
		Remark:          strings.TrimSpace(input.Remark),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.LockAd(ctx, ad.ID)
		if err != nil {
			return mapAdError(err)
		}
		if !locked.IsActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "ad is inactive")
		}
		if err := ensureUndecided(ctx, repo, vendor.ID, ad.ID); err != nil {
			return err
		}
		if err := repo.CreateDecision(ctx, &models.VendorAdDecision{
			VendorID: vendor.ID,
			AdID:     ad.ID,
			Decision: enums.VendorDecisionAccepted,
		}); err != nil {
			return mapWriteError(err, "record decision")
		}
		if err := repo.CreateOffer(ctx, offer); err != nil {
			return mapWriteError(err, "create offer")
		}
		if err := repo.AdjustOfferCount(ctx, ad.ID, 1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update offer count")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOfferSubmitted,
			AggregateType: enums.AggregateOffer,
			AggregateID:   offer.ID,
			Actor:         actorRef(actor),
			Data: payloads.OfferSubmittedEvent{
				AdID:            ad.ID,
				OfferID:         offer.ID,
				VendorID:        vendor.ID,
				BuyerID:         locked.UserID,
				VendorName:      vendor.Name,
				ProductName:     productName,
				PricePerProduct: offer.PricePerProduct,
				Quantity:        locked.Quantity,
				DispatchDay:     offer.DispatchDay,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit offer event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toOfferDTO(*offer)
	return &dto, nil
}

func (s *service) RejectOffer(ctx context.Context, actor types.Actor, adID uuid.UUID) error {
	vendor, err := s.activeVendor(ctx, actor)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ad, err := repo.LockAd(ctx, adID)
		if err != nil {
			return mapAdError(err)
		}
		if !ad.IsActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "ad is inactive")
		}
		if err := ensureUndecided(ctx, repo, vendor.ID, ad.ID); err != nil {
			return err
		}
		if err := repo.CreateDecision(ctx, &models.VendorAdDecision{
			VendorID: vendor.ID,
			AdID:     ad.ID,
			Decision: enums.VendorDecisionRejected,
		}); err != nil {
			return mapWriteError(err, "record decision")
		}
		return nil
	})
}

// CancelOffer withdraws the vendor's live offer. Offers locked by a paid order stay.
func (s *service) CancelOffer(ctx context.Context, actor types.Actor, adID uuid.UUID) error {
	vendor, err := s.activeVendor(ctx, actor)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ad, err := repo.LockAd(ctx, adID)
		if err != nil {
			return mapAdError(err)
		}
		offer, err := repo.FindOfferByVendor(ctx, ad.ID, vendor.ID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no live offer on this ad")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
		}
		if offer.IsLocked() {
			return pkgerrors.New(pkgerrors.CodeConflict, "offer is attached to a paid order")
		}
		if err := s.carts.DetachOffer(ctx, tx, offer.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach offer from carts")
		}
		deleted, err := repo.DeleteUnlockedOffer(ctx, offer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete offer")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeConflict, "offer is attached to a paid order")
		}
		if err := repo.DeleteDecision(ctx, vendor.ID, ad.ID, enums.VendorDecisionAccepted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete decision")
		}
		if err := repo.AdjustOfferCount(ctx, ad.ID, -1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update offer count")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOfferCancelled,
			AggregateType: enums.AggregateOffer,
			AggregateID:   offer.ID,
			Actor:         actorRef(actor),
			Data: payloads.OfferCancelledEvent{
				AdID:     ad.ID,
				OfferID:  offer.ID,
				VendorID: vendor.ID,
				BuyerID:  ad.UserID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit offer event")
		}
		return nil
	})
}

func (s *service) RegisterVendor(ctx context.Context, actor types.Actor, input RegisterVendorInput) (*VendorDTO, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.IsVendor() && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor role required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.MerchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchantId is required")
	}
	vendor := &models.Vendor{
		UserID:      actor.UserID,
		MerchantID:  input.MerchantID,
		Name:        name,
		Description: input.Description,
		IsActive:    true,
	}
	if err := s.vendors.Create(ctx, vendor); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor profile already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor")
	}
	dto := toVendorDTO(*vendor, 0, 0)
	return &dto, nil
}

func (s *service) GetVendor(ctx context.Context, actor types.Actor) (*VendorDTO, error) {
	vendor, err := s.vendors.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	accepted, rejected, err := s.vendors.CountDecisions(ctx, vendor.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count decisions")
	}
	dto := toVendorDTO(*vendor, accepted, rejected)
	return &dto, nil
}

func (s *service) activeVendor(ctx context.Context, actor types.Actor) (*models.Vendor, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	vendor, err := s.vendors.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	if !vendor.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor is inactive")
	}
	return vendor, nil
}

// ensureUndecided is the membership check that keeps the accepted and
// rejected sets disjoint.
func ensureUndecided(ctx context.Context, repo Repository, vendorID, adID uuid.UUID) error {
	decision, err := repo.FindDecision(ctx, vendorID, adID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load decision")
	}
	if decision.Decision == enums.VendorDecisionRejected {
		return pkgerrors.New(pkgerrors.CodeConflict, "ad already rejected")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "offer already submitted")
}

func actorRef(actor types.Actor) *outbox.ActorRef {
	if actor.IsZero() {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role}
}

func mapAdError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ad not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ad")
}

func mapWriteError(err error, op string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "offer already submitted")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
