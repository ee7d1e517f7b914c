package ads

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bidmart-backend/internal/repo"
	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	"github.com/angelmondragon/bidmart-backend/pkg/enums"
)

// VendorRepository persists vendor profiles.
type VendorRepository interface {
	WithTx(tx *gorm.DB) VendorRepository
	Create(ctx context.Context, vendor *models.Vendor) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
	CountDecisions(ctx context.Context, vendorID uuid.UUID) (accepted, rejected int64, err error)
}

type vendorRepository struct {
	base repo.Base
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{base: repo.NewBase(db)}
}

func (r *vendorRepository) WithTx(tx *gorm.DB) VendorRepository {
	if tx == nil {
		return r
	}
	return &vendorRepository{base: r.base.WithTx(tx)}
}

func (r *vendorRepository) Create(ctx context.Context, vendor *models.Vendor) error {
	return r.base.DB(ctx).Create(vendor).Error
}

func (r *vendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.base.DB(ctx).Where("id = ?", id).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.base.DB(ctx).Where("user_id = ?", userID).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

type decisionCount struct {
	Decision string
	Total    int64
}

func (r *vendorRepository) CountDecisions(ctx context.Context, vendorID uuid.UUID) (int64, int64, error) {
	var rows []decisionCount
	err := r.base.DB(ctx).Model(&models.VendorAdDecision{}).
		Select("decision, COUNT(*) AS total").
		Where("vendor_id = ?", vendorID).
		Group("decision").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	var accepted, rejected int64
	for _, row := range rows {
		switch row.Decision {
		case string(enums.VendorDecisionAccepted):
			accepted = row.Total
		case string(enums.VendorDecisionRejected):
			rejected = row.Total
		}
	}
	return accepted, rejected, nil
}
