package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/bidmart-backend/pkg/db/types"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
)

// CheckoutAttempt is written before the gateway call so an intent whose order
// write failed can be matched back by receipt.
type CheckoutAttempt struct {
	ID              uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID                   `gorm:"column:user_id;type:uuid;not null"`
	CartID          *uuid.UUID                  `gorm:"column:cart_id;type:uuid"`
	Receipt         string                      `gorm:"column:receipt;not null;uniqueIndex"`
	PaymentIntentID *string                     `gorm:"column:payment_intent_id"`
	Amount          decimal.Decimal             `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency        enums.Currency              `gorm:"column:currency;type:text;not null"`
	Status          enums.CheckoutAttemptStatus `gorm:"column:status;type:text;not null"`
	Snapshot        json.RawMessage             `gorm:"column:snapshot;type:jsonb;not null"`
	OrderIDs        dbtypes.UUIDArray           `gorm:"column:order_ids;type:uuid[];not null"`
	LastError       *string                     `gorm:"column:last_error"`
	CreatedAt       time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *CheckoutAttempt) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
