package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bidmart-backend/internal/repo"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
	"github.com/angelmondragon/bidmart-backend/pkg/pagination"
)

// verifiableStatuses are the payment states a gateway callback may still settle.
var verifiableStatuses = []enums.PaymentStatus{
	enums.PaymentStatusPending,
	enums.PaymentStatusCreated,
	enums.PaymentStatusAuthorized,
	enums.PaymentStatusFailed,
}

// Repository persists orders. Every status write is a conditional update so
// concurrent callers observe RowsAffected instead of overwriting each other.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByIntent(ctx context.Context, intentID string) ([]models.Order, error)
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.Order, error)
	ListByPayment(ctx context.Context, paymentID string) ([]models.Order, error)
	ListForBuyer(ctx context.Context, userID uuid.UUID, page pagination.Page) ([]models.Order, int64, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, page pagination.Page) ([]models.Order, int64, error)
	ListAll(ctx context.Context, filters AdminFilters, page pagination.Page) ([]models.Order, int64, error)

	MarkCaptured(ctx context.Context, id uuid.UUID, paymentID, signature string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, paymentID string) (bool, error)
	TransitionFulfillment(ctx context.Context, id uuid.UUID, from, to enums.FulfillmentStatus, at time.Time) (bool, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, refundID string, at time.Time) (bool, error)
}

type repository struct {
	base repo.Base
}

// NewRepository builds an orders repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.base.DB(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.base.DB(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByIntent(ctx context.Context, intentID string) ([]models.Order, error) {
	return r.listWhere(ctx, "payment_intent_id = ?", intentID)
}

func (r *repository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.Order, error) {
	return r.listWhere(ctx, "checkout_attempt_id = ?", attemptID)
}

func (r *repository) ListByPayment(ctx context.Context, paymentID string) ([]models.Order, error) {
	return r.listWhere(ctx, "payment_id = ?", paymentID)
}

func (r *repository) listWhere(ctx context.Context, cond string, arg any) ([]models.Order, error) {
	var orders []models.Order
	err := r.base.DB(ctx).
		Where(cond, arg).
		Order("created_at ASC").
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListForBuyer(ctx context.Context, userID uuid.UUID, page pagination.Page) ([]models.Order, int64, error) {
	return r.page(r.base.DB(ctx).Model(&models.Order{}).Where("user_id = ?", userID), page)
}

func (r *repository) ListForVendor(ctx context.Context, vendorID uuid.UUID, page pagination.Page) ([]models.Order, int64, error) {
	return r.page(r.base.DB(ctx).Model(&models.Order{}).Where("vendor_id = ?", vendorID), page)
}

func (r *repository) ListAll(ctx context.Context, filters AdminFilters, page pagination.Page) ([]models.Order, int64, error) {
	query := r.base.DB(ctx).Model(&models.Order{})
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.FulfillmentStatus != nil {
		query = query.Where("fulfillment_status = ?", *filters.FulfillmentStatus)
	}
	if filters.PaymentIntentID != "" {
		query = query.Where("payment_intent_id = ?", filters.PaymentIntentID)
	}
	return r.page(query, page)
}

func (r *repository) page(query *gorm.DB, page pagination.Page) ([]models.Order, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page = page.Normalize()
	var orders []models.Order
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repository) MarkCaptured(ctx context.Context, id uuid.UUID, paymentID, signature string, at time.Time) (bool, error) {
	return r.conditionalUpdate(
		r.base.DB(ctx).Where("id = ? AND payment_status IN ?", id, verifiableStatuses),
		map[string]any{
			"payment_status":    enums.PaymentStatusCaptured,
			"payment_id":        paymentID,
			"payment_signature": signature,
			"paid_at":           at,
		})
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, paymentID string) (bool, error) {
	updates := map[string]any{"payment_status": enums.PaymentStatusFailed}
	if paymentID != "" {
		updates["payment_id"] = paymentID
	}
	return r.conditionalUpdate(
		r.base.DB(ctx).Where("id = ? AND payment_status IN ?", id, verifiableStatuses),
		updates)
}

func (r *repository) TransitionFulfillment(ctx context.Context, id uuid.UUID, from, to enums.FulfillmentStatus, at time.Time) (bool, error) {
	updates := map[string]any{"fulfillment_status": to}
	if to == enums.FulfillmentStatusCancelled {
		updates["cancelled_at"] = at
	}
	return r.conditionalUpdate(
		r.base.DB(ctx).Where("id = ? AND fulfillment_status = ?", id, from),
		updates)
}

func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID, refundID string, at time.Time) (bool, error) {
	return r.conditionalUpdate(
		r.base.DB(ctx).Where("id = ? AND payment_status = ? AND fulfillment_status = ?",
			id, enums.PaymentStatusCaptured, enums.FulfillmentStatusCancelled),
		map[string]any{
			"payment_status": enums.PaymentStatusRefunded,
			"refund_id":      refundID,
			"refunded_at":    at,
		})
}

func (r *repository) conditionalUpdate(scoped *gorm.DB, updates map[string]any) (bool, error) {
	updates["updated_at"] = time.Now().UTC()
	result := scoped.Model(&models.Order{}).Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
