// Package checkout turns accepted offers into a gateway intent plus orders.
// Every attempt is written before the gateway call so an intent whose order
// write failed is found again by the reconcile sweep.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/bidmart-backend/internal/cart"
	"github.com/angelmondragon/bidmart-backend/internal/catalog"
	"github.com/angelmondragon/bidmart-backend/internal/orders"
	"github.com/angelmondragon/bidmart-backend/pkg/db"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/bidmart-backend/pkg/db/types"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/metrics"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bidmart-backend/pkg/payment/razorpay"
	"github.com/angelmondragon/bidmart-backend/pkg/redis"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

const (
	pathSingle = "single"
	pathCart   = "cart"

	checkoutLockTTL = 30 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type offerReader interface {
	FindAd(ctx context.Context, id uuid.UUID) (*models.Ad, error)
	FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error)
}

type vendorReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
}

type catalogReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetAddress(ctx context.Context, userID, id uuid.UUID) (*models.Address, error)
}

// Gateway is the slice of the payment adapter checkout needs.
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*razorpay.Intent, error)
	FindIntentByReceipt(ctx context.Context, receipt string) (*razorpay.Intent, error)
}

type locker interface {
	LockKey(scope, id string) string
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, owner string) error
}

// Service runs buyer checkouts and the orphaned-attempt sweep.
type Service interface {
	CheckoutSingle(ctx context.Context, actor types.Actor, adID, offerID uuid.UUID) (*Result, error)
	CheckoutCart(ctx context.Context, actor types.Actor) (*Result, error)
	Reconcile(ctx context.Context, olderThan time.Duration, limit int) (ReconcileSummary, error)
}

// Deps groups the collaborators of the checkout service.
type Deps struct {
	Attempts AttemptRepository
	Orders   orders.Repository
	Carts    cart.Repository
	Offers   offerReader
	Vendors  vendorReader
	Catalog  catalogReader
	Gateway  Gateway
	Locker   locker
	Tx       txRunner
	Outbox   outboxPublisher
	Currency enums.Currency
	Metrics  *metrics.Marketplace
	Logger   *logger.Logger
}

type service struct {
	Deps
	now func() time.Time
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Attempts == nil:
		return nil, fmt.Errorf("checkout attempt repository required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Carts == nil:
		return nil, fmt.Errorf("cart repository required")
	case deps.Offers == nil:
		return nil, fmt.Errorf("offer reader required")
	case deps.Vendors == nil:
		return nil, fmt.Errorf("vendor reader required")
	case deps.Catalog == nil:
		return nil, fmt.Errorf("catalog reader required")
	case deps.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case deps.Locker == nil:
		return nil, fmt.Errorf("locker required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	if deps.Currency == "" {
		deps.Currency = enums.CurrencyINR
	}
	if !deps.Currency.IsValid() {
		return nil, fmt.Errorf("unsupported currency %q", deps.Currency)
	}
	return &service{Deps: deps, now: time.Now}, nil
}

// CheckoutSingle pays for one offer on the buyer's own active ad.
func (s *service) CheckoutSingle(ctx context.Context, actor types.Actor, adID, offerID uuid.UUID) (*Result, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if adID == uuid.Nil || offerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adId and offerId are required")
	}
	line, err := s.buildLine(ctx, actor, adID, offerID)
	if err != nil {
		s.Metrics.IncCheckout(pathSingle, "rejected")
		return nil, err
	}
	return s.run(ctx, actor, pathSingle, nil, []Line{*line})
}

// CheckoutCart pays for every cart line with one intent. Paid lines leave the cart.
func (s *service) CheckoutCart(ctx context.Context, actor types.Actor) (*Result, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	buyerCart, err := s.Carts.FindByUser(ctx, actor.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(buyerCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	lines := make([]Line, 0, len(buyerCart.Items))
	for _, item := range buyerCart.Items {
		line, err := s.buildLine(ctx, actor, item.AdID, item.OfferID)
		if err != nil {
			s.Metrics.IncCheckout(pathCart, "rejected")
			return nil, err
		}
		lines = append(lines, *line)
	}
	cartID := buyerCart.ID
	return s.run(ctx, actor, pathCart, &cartID, lines)
}

func (s *service) buildLine(ctx context.Context, actor types.Actor, adID, offerID uuid.UUID) (*Line, error) {
	ad, err := s.Offers.FindAd(ctx, adID)
	if err != nil {
		return nil, lookupError(err, "ad not found")
	}
	if ad.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "ad belongs to another user")
	}
	if !ad.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "ad is inactive")
	}
	offer, err := s.Offers.FindOffer(ctx, offerID)
	if err != nil {
		return nil, lookupError(err, "offer not found")
	}
	if offer.AdID != ad.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer does not belong to ad")
	}
	vendor, err := s.Vendors.FindByID(ctx, offer.VendorID)
	if err != nil {
		return nil, lookupError(err, "vendor not found")
	}
	product, err := s.Catalog.GetProduct(ctx, ad.ProductID)
	if err != nil {
		return nil, err
	}
	address, err := s.Catalog.GetAddress(ctx, actor.UserID, ad.AddressID)
	if err != nil {
		return nil, err
	}
	return &Line{
		AdID:     ad.ID,
		OfferID:  offer.ID,
		VendorID: vendor.ID,
		Product:  catalog.ProductSnapshot(product),
		Vendor: types.VendorSnapshot{
			VendorID:   vendor.ID.String(),
			UserID:     vendor.UserID.String(),
			MerchantID: vendor.MerchantID.String(),
			Name:       vendor.Name,
		},
		Address:         catalog.AddressSnapshot(address),
		PricePerProduct: offer.PricePerProduct,
		Quantity:        ad.Quantity,
		Total:           offer.LineTotal(ad.Quantity),
		DispatchDay:     offer.DispatchDay,
		Remark:          offer.Remark,
	}, nil
}

func (s *service) run(ctx context.Context, actor types.Actor, path string, cartID *uuid.UUID, lines []Line) (*Result, error) {
	lockKey := s.Locker.LockKey("checkout", actor.UserID.String())
	owner, err := s.Locker.TryLock(ctx, lockKey, checkoutLockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockHeld) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout lock")
	}
	defer func() { _ = s.Locker.Unlock(context.WithoutCancel(ctx), lockKey, owner) }()

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Total)
	}
	snapshot, err := json.Marshal(Snapshot{Lines: lines})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout snapshot")
	}

	attempt := &models.CheckoutAttempt{
		UserID:   actor.UserID,
		CartID:   cartID,
		Receipt:  newReceipt(),
		Amount:   total,
		Currency: s.Currency,
		Status:   enums.CheckoutAttemptIntentPending,
		Snapshot: snapshot,
		OrderIDs: dbtypes.UUIDArray{},
	}
	if err := s.Attempts.Create(ctx, attempt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record checkout attempt")
	}

	started := time.Now()
	intent, err := s.Gateway.CreateIntent(ctx, total, string(s.Currency), attempt.Receipt)
	s.Metrics.ObserveGateway("create_intent", err, time.Since(started))
	if err != nil {
		s.failAttempt(ctx, attempt, err)
		s.Metrics.IncCheckout(path, "gateway_error")
		return nil, err
	}
	if err := s.Attempts.MarkIntentCreated(ctx, attempt.ID, intent.ID); err != nil {
		s.logError(ctx, attempt, "record intent on checkout attempt", err)
	}

	created, err := s.materialize(ctx, attempt, intent.ID, lines, enums.CheckoutAttemptOrdered)
	if err != nil {
		s.logError(ctx, attempt, "persist checkout orders", err)
		s.Metrics.IncCheckout(path, "partial")
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist orders")
	}
	s.Metrics.IncCheckout(path, "ok")

	return &Result{
		AttemptID: attempt.ID,
		Intent: IntentDTO{
			ID:       intent.ID,
			Amount:   razorpay.MinorUnits(total),
			Currency: string(s.Currency),
			Receipt:  attempt.Receipt,
		},
		Orders: ordersToDTOs(created),
	}, nil
}

// failAttempt leaves an unreachable gateway's attempt open for the sweep and
// abandons one the gateway definitively refused.
func (s *service) failAttempt(ctx context.Context, attempt *models.CheckoutAttempt, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.Attempts.RecordError(ctx, attempt.ID, cause.Error()); err != nil {
		s.logError(ctx, attempt, "record checkout error", err)
	}
	if pkgerrors.IsCode(cause, pkgerrors.CodeGatewayUnavailable) {
		return
	}
	if _, err := s.Attempts.Close(ctx, attempt.ID, enums.CheckoutAttemptAbandoned, nil); err != nil {
		s.logError(ctx, attempt, "abandon checkout attempt", err)
	}
}

// materialize creates the orders for an attempt exactly once. The conditional
// close of the attempt is the claim: a caller that loses it returns the orders
// the winner wrote.
func (s *service) materialize(ctx context.Context, attempt *models.CheckoutAttempt, intentID string, lines []Line, status enums.CheckoutAttemptStatus) ([]models.Order, error) {
	var created []models.Order
	claimed := true
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		attempts := s.Attempts.WithTx(tx)
		orderRepo := s.Orders.WithTx(tx)

		existing, err := orderRepo.ListByAttempt(ctx, attempt.ID)
		if err != nil {
			return err
		}
		byOffer := make(map[uuid.UUID]models.Order, len(existing))
		for _, o := range existing {
			byOffer[o.OfferID] = o
		}

		pending := make([]models.Order, 0, len(lines))
		orderIDs := make([]uuid.UUID, 0, len(lines))
		offerIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			offerIDs = append(offerIDs, line.OfferID)
			if o, ok := byOffer[line.OfferID]; ok {
				orderIDs = append(orderIDs, o.ID)
				continue
			}
			order := newOrder(attempt, intentID, line)
			pending = append(pending, order)
			orderIDs = append(orderIDs, order.ID)
		}

		ok, err := attempts.Close(ctx, attempt.ID, status, orderIDs)
		if err != nil {
			return err
		}
		if !ok {
			claimed = false
			return nil
		}
		for i := range pending {
			if err := orderRepo.Create(ctx, &pending[i]); err != nil {
				return err
			}
		}

		if attempt.CartID != nil {
			carts := s.Carts.WithTx(tx)
			if _, err := carts.LockByUser(ctx, attempt.UserID); err != nil && !db.IsNotFound(err) {
				return err
			} else if err == nil {
				if err := carts.DeleteItemsByOffers(ctx, *attempt.CartID, offerIDs); err != nil {
					return err
				}
				if _, err := carts.Recalculate(ctx, *attempt.CartID); err != nil {
					return err
				}
			}
		}

		if err := s.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateCheckoutAttempt,
			AggregateID:   attempt.ID,
			Actor:         &outbox.ActorRef{UserID: attempt.UserID, Role: enums.RoleUser},
			Data: payloads.OrderCreatedEvent{
				CheckoutAttemptID: attempt.ID,
				PaymentIntentID:   intentID,
				BuyerID:           attempt.UserID,
				OrderIDs:          orderIDs,
				TotalAmount:       attempt.Amount,
				Currency:          attempt.Currency,
			},
		}); err != nil {
			return err
		}
		if status == enums.CheckoutAttemptReconciled {
			if err := s.Outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCheckoutReconciled,
				AggregateType: enums.AggregateCheckoutAttempt,
				AggregateID:   attempt.ID,
				Data: payloads.CheckoutReconciledEvent{
					CheckoutAttemptID: attempt.ID,
					PaymentIntentID:   intentID,
					Outcome:           status,
					OrderIDs:          orderIDs,
				},
			}); err != nil {
				return err
			}
		}
		created = append(existing, pending...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return s.Orders.ListByAttempt(ctx, attempt.ID)
	}
	return created, nil
}

// Reconcile sweeps attempts left open longer than olderThan. An intent found
// at the gateway gets its orders; an attempt without one is abandoned.
func (s *service) Reconcile(ctx context.Context, olderThan time.Duration, limit int) (ReconcileSummary, error) {
	var summary ReconcileSummary
	cutoff := s.now().UTC().Add(-olderThan)
	attempts, err := s.Attempts.ListOpenBefore(ctx, cutoff, limit)
	if err != nil {
		return summary, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open checkout attempts")
	}

	var errs error
	for i := range attempts {
		attempt := &attempts[i]
		summary.Scanned++
		outcome, err := s.reconcileOne(ctx, attempt)
		if err != nil {
			summary.Skipped++
			errs = multierr.Append(errs, fmt.Errorf("attempt %s: %w", attempt.ID, err))
			continue
		}
		switch outcome {
		case enums.CheckoutAttemptReconciled:
			summary.Reconciled++
		case enums.CheckoutAttemptAbandoned:
			summary.Abandoned++
		default:
			summary.Skipped++
		}
	}
	return summary, errs
}

func (s *service) reconcileOne(ctx context.Context, attempt *models.CheckoutAttempt) (enums.CheckoutAttemptStatus, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(attempt.Snapshot, &snapshot); err != nil {
		return "", fmt.Errorf("decode snapshot: %w", err)
	}

	intentID := ""
	if attempt.PaymentIntentID != nil {
		intentID = *attempt.PaymentIntentID
	} else {
		started := time.Now()
		intent, err := s.Gateway.FindIntentByReceipt(ctx, attempt.Receipt)
		s.Metrics.ObserveGateway("find_intent", err, time.Since(started))
		if err != nil {
			return "", err
		}
		if intent == nil {
			return s.abandon(ctx, attempt)
		}
		intentID = intent.ID
		if err := s.Attempts.MarkIntentCreated(ctx, attempt.ID, intentID); err != nil {
			return "", err
		}
	}

	if _, err := s.materialize(ctx, attempt, intentID, snapshot.Lines, enums.CheckoutAttemptReconciled); err != nil {
		return "", err
	}
	return enums.CheckoutAttemptReconciled, nil
}

func (s *service) abandon(ctx context.Context, attempt *models.CheckoutAttempt) (enums.CheckoutAttemptStatus, error) {
	closed := false
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.Attempts.WithTx(tx).Close(ctx, attempt.ID, enums.CheckoutAttemptAbandoned, nil)
		if err != nil || !ok {
			return err
		}
		closed = true
		return s.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCheckoutReconciled,
			AggregateType: enums.AggregateCheckoutAttempt,
			AggregateID:   attempt.ID,
			Data: payloads.CheckoutReconciledEvent{
				CheckoutAttemptID: attempt.ID,
				Outcome:           enums.CheckoutAttemptAbandoned,
			},
		})
	})
	if err != nil {
		return "", err
	}
	if !closed {
		return "", nil
	}
	return enums.CheckoutAttemptAbandoned, nil
}

func newOrder(attempt *models.CheckoutAttempt, intentID string, line Line) models.Order {
	return models.Order{
		ID:                uuid.New(),
		UserID:            attempt.UserID,
		AdID:              line.AdID,
		OfferID:           line.OfferID,
		VendorID:          line.VendorID,
		CheckoutAttemptID: attempt.ID,
		PaymentIntentID:   intentID,
		Receipt:           attempt.Receipt,
		PaymentStatus:     enums.PaymentStatusCreated,
		FulfillmentStatus: enums.FulfillmentStatusNotProcessed,
		Product:           line.Product,
		Vendor:            line.Vendor,
		Address:           line.Address,
		PricePerProduct:   line.PricePerProduct,
		Quantity:          line.Quantity,
		TotalAmount:       line.Total,
		Currency:          attempt.Currency,
		DispatchDay:       line.DispatchDay,
		Remark:            line.Remark,
	}
}

func ordersToDTOs(list []models.Order) []orders.OrderDTO {
	out := make([]orders.OrderDTO, 0, len(list))
	for _, o := range list {
		out = append(out, orders.ToDTO(o))
	}
	return out
}

func newReceipt() string {
	return "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *service) logError(ctx context.Context, attempt *models.CheckoutAttempt, msg string, err error) {
	if s.Logger == nil {
		return
	}
	ctx = s.Logger.WithFields(ctx, map[string]any{
		"checkout_attempt_id": attempt.ID.String(),
		"receipt":             attempt.Receipt,
	})
	s.Logger.Error(ctx, msg, err)
}

func lookupError(err error, notFound string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout lookup failed")
}
