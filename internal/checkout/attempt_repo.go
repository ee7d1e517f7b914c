package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bidmart-backend/internal/repo"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/bidmart-backend/pkg/db/types"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
)

var openStatuses = []enums.CheckoutAttemptStatus{
	enums.CheckoutAttemptIntentPending,
	enums.CheckoutAttemptIntentCreated,
}

// AttemptRepository persists checkout attempts, the record that bridges a
// gateway intent and the orders created for it.
type AttemptRepository interface {
	WithTx(tx *gorm.DB) AttemptRepository
	Create(ctx context.Context, attempt *models.CheckoutAttempt) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutAttempt, error)
	MarkIntentCreated(ctx context.Context, id uuid.UUID, intentID string) error
	RecordError(ctx context.Context, id uuid.UUID, message string) error
	Close(ctx context.Context, id uuid.UUID, status enums.CheckoutAttemptStatus, orderIDs []uuid.UUID) (bool, error)
	ListOpenBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.CheckoutAttempt, error)
}

type attemptRepository struct {
	base repo.Base
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{base: repo.NewBase(db)}
}

func (r *attemptRepository) WithTx(tx *gorm.DB) AttemptRepository {
	if tx == nil {
		return r
	}
	return &attemptRepository{base: r.base.WithTx(tx)}
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.CheckoutAttempt) error {
	if attempt.OrderIDs == nil {
		attempt.OrderIDs = dbtypes.UUIDArray{}
	}
	return r.base.DB(ctx).Create(attempt).Error
}

func (r *attemptRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutAttempt, error) {
	var attempt models.CheckoutAttempt
	if err := r.base.DB(ctx).Where("id = ?", id).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) MarkIntentCreated(ctx context.Context, id uuid.UUID, intentID string) error {
	return r.base.DB(ctx).Model(&models.CheckoutAttempt{}).
		Where("id = ? AND status = ?", id, enums.CheckoutAttemptIntentPending).
		Updates(map[string]any{
			"status":            enums.CheckoutAttemptIntentCreated,
			"payment_intent_id": intentID,
			"updated_at":        time.Now().UTC(),
		}).Error
}

func (r *attemptRepository) RecordError(ctx context.Context, id uuid.UUID, message string) error {
	if len(message) > 1024 {
		message = message[:1024]
	}
	return r.base.DB(ctx).Model(&models.CheckoutAttempt{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error": message,
			"updated_at": time.Now().UTC(),
		}).Error
}

// Close moves an open attempt to a final status. It reports false when another
// caller closed it first.
func (r *attemptRepository) Close(ctx context.Context, id uuid.UUID, status enums.CheckoutAttemptStatus, orderIDs []uuid.UUID) (bool, error) {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if orderIDs != nil {
		updates["order_ids"] = dbtypes.UUIDArray(orderIDs)
	}
	result := r.base.DB(ctx).Model(&models.CheckoutAttempt{}).
		Where("id = ? AND status IN ?", id, openStatuses).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *attemptRepository) ListOpenBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.CheckoutAttempt, error) {
	if limit <= 0 {
		limit = 100
	}
	var attempts []models.CheckoutAttempt
	err := r.base.DB(ctx).
		Where("status IN ? AND created_at < ?", openStatuses, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
