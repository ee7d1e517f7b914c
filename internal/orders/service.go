package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bidmart-backend/internal/ads"
	"github.com/angelmondragon/bidmart-backend/pkg/db"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/metrics"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox"
	"github.com/angelmondragon/bidmart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bidmart-backend/pkg/pagination"
	"github.com/angelmondragon/bidmart-backend/pkg/payment/razorpay"
	"github.com/angelmondragon/bidmart-backend/pkg/redis"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

const refundLockTTL = time.Minute

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type vendorReader interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
}

type userReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Gateway is the slice of the payment adapter the order lifecycle needs.
type Gateway interface {
	VerifySignature(intentID, paymentID, signature string) bool
	Refund(ctx context.Context, paymentID string, amount decimal.Decimal, receipt string) (*razorpay.Refund, error)
}

type locker interface {
	LockKey(scope, id string) string
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, owner string) error
}

// Service owns payment settlement and fulfillment transitions.
type Service interface {
	VerifyPayment(ctx context.Context, input VerifyInput) (*VerifyResult, error)
	UpdateItemStatus(ctx context.Context, actor types.Actor, orderID uuid.UUID, status enums.FulfillmentStatus) (*OrderDTO, error)
	Cancel(ctx context.Context, actor types.Actor, orderID uuid.UUID) (*OrderDTO, error)
	Refund(ctx context.Context, actor types.Actor, input RefundInput) (*RefundResult, error)

	Get(ctx context.Context, actor types.Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListMine(ctx context.Context, actor types.Actor, page pagination.Page) (*OrderList, error)
	ListForVendor(ctx context.Context, actor types.Actor, page pagination.Page) (*OrderList, error)
	ListAll(ctx context.Context, actor types.Actor, filters AdminFilters, page pagination.Page) (*OrderList, error)
	SearchByIntent(ctx context.Context, actor types.Actor, intentID string) ([]OrderDTO, error)
}

// Deps groups the collaborators of the order lifecycle service.
type Deps struct {
	Orders  Repository
	Ads     ads.Repository
	Vendors vendorReader
	Users   userReader
	Gateway Gateway
	Locker  locker
	Tx      txRunner
	Outbox  outboxPublisher
	Metrics *metrics.Marketplace
	Logger  *logger.Logger
}

type service struct {
	Deps
	now func() time.Time
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Ads == nil:
		return nil, fmt.Errorf("ads repository required")
	case deps.Vendors == nil:
		return nil, fmt.Errorf("vendor reader required")
	case deps.Users == nil:
		return nil, fmt.Errorf("user reader required")
	case deps.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case deps.Locker == nil:
		return nil, fmt.Errorf("locker required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{Deps: deps, now: time.Now}, nil
}

// VerifyPayment settles every order of an intent from the gateway callback.
// Only orders whose status actually moves produce side effects, so a replayed
// callback changes nothing.
func (s *service) VerifyPayment(ctx context.Context, input VerifyInput) (*VerifyResult, error) {
	input.IntentID = strings.TrimSpace(input.IntentID)
	input.PaymentID = strings.TrimSpace(input.PaymentID)
	if input.IntentID == "" || input.PaymentID == "" || input.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
	}

	list, err := s.Orders.ListByIntent(ctx, input.IntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders for intent")
	}
	if len(list) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no orders for payment intent")
	}

	if !s.Gateway.VerifySignature(input.IntentID, input.PaymentID, input.Signature) {
		if err := s.markFailed(ctx, list, input.PaymentID); err != nil {
			return nil, err
		}
		s.Metrics.IncVerification("invalid_signature")
		return s.verifyResult(ctx, input.IntentID, false, "payment verification failed")
	}

	buyerName := ""
	if user, err := s.Users.GetUser(ctx, list[0].UserID); err == nil {
		buyerName = user.Name
	}

	paidAt := s.now().UTC()
	captured := 0
	err = s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.Orders.WithTx(tx)
		adRepo := s.Ads.WithTx(tx)
		for _, order := range list {
			ok, err := orderRepo.MarkCaptured(ctx, order.ID, input.PaymentID, input.Signature, paidAt)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			captured++

			changed, err := adRepo.SetAdActive(ctx, order.AdID, false)
			if err != nil {
				return err
			}
			if changed {
				if err := s.Outbox.Emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventAdStatusChanged,
					AggregateType: enums.AggregateAd,
					AggregateID:   order.AdID,
					Data: payloads.AdStatusChangedEvent{
						AdID:     order.AdID,
						BuyerID:  order.UserID,
						IsActive: false,
						Reason:   "order_paid",
					},
				}); err != nil {
					return err
				}
			}
			if err := adRepo.LockOffer(ctx, order.OfferID, paidAt); err != nil {
				return err
			}

			vendorUserID, _ := uuid.Parse(order.Vendor.UserID)
			if err := s.Outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{UserID: order.UserID, Role: enums.RoleUser},
				Data: payloads.OrderPaidEvent{
					OrderID:         order.ID,
					PaymentIntentID: order.PaymentIntentID,
					PaymentID:       input.PaymentID,
					AdID:            order.AdID,
					OfferID:         order.OfferID,
					BuyerID:         order.UserID,
					BuyerName:       buyerName,
					VendorID:        order.VendorID,
					VendorUserID:    vendorUserID,
					ProductName:     order.Product.Name,
					TotalAmount:     order.TotalAmount,
					PaidAt:          paidAt,
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "capture payment")
	}

	if captured == 0 {
		s.Metrics.IncVerification("replay")
	} else {
		s.Metrics.IncVerification("captured")
	}
	return s.verifyResult(ctx, input.IntentID, true, "payment verified")
}

func (s *service) markFailed(ctx context.Context, list []models.Order, paymentID string) error {
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.Orders.WithTx(tx)
		for _, order := range list {
			ok, err := orderRepo.MarkFailed(ctx, order.ID, paymentID)
			if err != nil {
				return err
			}
			if !ok || order.PaymentStatus == enums.PaymentStatusFailed {
				continue
			}
			if err := s.Outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaymentFailed,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: payloads.OrderPaymentFailedEvent{
					OrderID:         order.ID,
					PaymentIntentID: order.PaymentIntentID,
					PaymentID:       paymentID,
					BuyerID:         order.UserID,
					Reason:          "signature_mismatch",
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record failed payment")
	}
	return nil
}

func (s *service) verifyResult(ctx context.Context, intentID string, success bool, message string) (*VerifyResult, error) {
	list, err := s.Orders.ListByIntent(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload orders")
	}
	return &VerifyResult{Success: success, Message: message, Orders: toDTOs(list)}, nil
}

// UpdateItemStatus moves an order along the fulfillment table. Admins and the
// order's vendor may call it.
func (s *service) UpdateItemStatus(ctx context.Context, actor types.Actor, orderID uuid.UUID, status enums.FulfillmentStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		isVendor, err := s.isOrderVendor(ctx, actor, order)
		if err != nil {
			return nil, err
		}
		if !isVendor {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned vendor or an admin can update this order")
		}
	}
	if requiresPayment(status) && order.PaymentStatus != enums.PaymentStatusCaptured {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid")
	}
	return s.transition(ctx, actor, order, status)
}

// Cancel lets a buyer withdraw an order that has not started processing. Admins
// may cancel any order that is not terminal.
func (s *service) Cancel(ctx context.Context, actor types.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		if order.UserID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if order.FulfillmentStatus != enums.FulfillmentStatusNotProcessed {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		}
	}
	return s.transition(ctx, actor, order, enums.FulfillmentStatusCancelled)
}

func (s *service) transition(ctx context.Context, actor types.Actor, order *models.Order, to enums.FulfillmentStatus) (*OrderDTO, error) {
	from := order.FulfillmentStatus
	if !enums.CanTransition(from, to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("invalid status transition from %s to %s", from, to)).
			WithDetails(map[string]any{"from": from, "to": to, "allowed": from.AllowedNext()})
	}

	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.Orders.WithTx(tx).TransitionFulfillment(ctx, order.ID, from, to, s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		return s.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				BuyerID:     order.UserID,
				VendorID:    order.VendorID,
				ProductName: order.Product.Name,
				From:        from,
				To:          to,
				ActorRole:   actor.Role,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	return s.reload(ctx, order.ID)
}

// Refund returns the full order amount for a captured order that was cancelled.
func (s *service) Refund(ctx context.Context, actor types.Actor, input RefundInput) (*RefundResult, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	input.PaymentID = strings.TrimSpace(input.PaymentID)
	if input.PaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paymentId is required")
	}

	order, err := s.refundTarget(ctx, input)
	if err != nil {
		return nil, err
	}

	lockKey := s.Locker.LockKey("refund", order.ID.String())
	owner, err := s.Locker.TryLock(ctx, lockKey, refundLockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockHeld) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "refund already in progress")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire refund lock")
	}
	defer func() { _ = s.Locker.Unlock(context.WithoutCancel(ctx), lockKey, owner) }()

	if order.PaymentStatus != enums.PaymentStatusCaptured || order.FulfillmentStatus != enums.FulfillmentStatusCancelled {
		s.Metrics.IncRefund("ineligible")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order must be captured and cancelled before refund").
			WithDetails(map[string]any{"paymentStatus": order.PaymentStatus, "orderStatus": order.FulfillmentStatus})
	}

	started := time.Now()
	refund, err := s.Gateway.Refund(ctx, input.PaymentID, order.TotalAmount, order.Receipt)
	s.Metrics.ObserveGateway("refund", err, time.Since(started))
	if err != nil {
		s.Metrics.IncRefund("gateway_error")
		if s.Logger != nil {
			s.Logger.Error(s.Logger.WithOrderID(ctx, order.ID.String(), order.PaymentIntentID), "refund failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayError, err, "refund failed")
	}

	err = s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.Orders.WithTx(tx).MarkRefunded(ctx, order.ID, refund.ID, s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was refunded concurrently")
		}
		return s.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
			Data: payloads.OrderRefundedEvent{
				OrderID:   order.ID,
				PaymentID: input.PaymentID,
				RefundID:  refund.ID,
				BuyerID:   order.UserID,
				Amount:    order.TotalAmount,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund")
	}
	s.Metrics.IncRefund("refunded")

	dto, err := s.reload(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &RefundResult{RefundID: refund.ID, Order: dto}, nil
}

func (s *service) refundTarget(ctx context.Context, input RefundInput) (*models.Order, error) {
	list, err := s.Orders.ListByPayment(ctx, input.PaymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders for payment")
	}
	if len(list) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no orders for payment")
	}
	if input.OrderID == nil {
		if len(list) > 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required when a payment covers multiple orders")
		}
		return &list[0], nil
	}
	for i := range list {
		if list[i].ID == *input.OrderID {
			return &list[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment")
}

// Get returns an order to its buyer, its vendor, or an admin.
func (s *service) Get(ctx context.Context, actor types.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || order.UserID == actor.UserID {
		dto := ToDTO(*order)
		return &dto, nil
	}
	isVendor, err := s.isOrderVendor(ctx, actor, order)
	if err != nil {
		return nil, err
	}
	if !isVendor {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	dto := ToDTO(*order)
	return &dto, nil
}

func (s *service) ListMine(ctx context.Context, actor types.Actor, page pagination.Page) (*OrderList, error) {
	list, total, err := s.Orders.ListForBuyer(ctx, actor.UserID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return newOrderList(list, total, page), nil
}

func (s *service) ListForVendor(ctx context.Context, actor types.Actor, page pagination.Page) (*OrderList, error) {
	vendor, err := s.Vendors.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	list, total, err := s.Orders.ListForVendor(ctx, vendor.ID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return newOrderList(list, total, page), nil
}

func (s *service) ListAll(ctx context.Context, actor types.Actor, filters AdminFilters, page pagination.Page) (*OrderList, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	list, total, err := s.Orders.ListAll(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return newOrderList(list, total, page), nil
}

func (s *service) SearchByIntent(ctx context.Context, actor types.Actor, intentID string) ([]OrderDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intentId is required")
	}
	list, err := s.Orders.ListByIntent(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search orders")
	}
	return toDTOs(list), nil
}

func (s *service) loadOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.Orders.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*order)
	return &dto, nil
}

func (s *service) isOrderVendor(ctx context.Context, actor types.Actor, order *models.Order) (bool, error) {
	if !actor.IsVendor() {
		return false, nil
	}
	vendor, err := s.Vendors.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return vendor.ID == order.VendorID, nil
}

func requiresPayment(status enums.FulfillmentStatus) bool {
	switch status {
	case enums.FulfillmentStatusProcessing, enums.FulfillmentStatusShipped, enums.FulfillmentStatusDelivered:
		return true
	}
	return false
}
