package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BuildFund/New-Main-sub000/internal/db"
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// ConditionRepository defines the interface for condition precedent
// persistence
type ConditionRepository interface {
	CreateWithNumber(ctx context.Context, cp *models.DealCP) (*models.DealCP, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.DealCP, error)
	FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealCP, error)
	Update(ctx context.Context, cp *models.DealCP) (*models.DealCP, error)
	CountMandatory(ctx context.Context, dealID uuid.UUID) (total int64, satisfied int64, err error)
}

// conditionRepository implements ConditionRepository
type conditionRepository struct {
	db *gorm.DB
}

// NewConditionRepository creates a new condition repository
func NewConditionRepository(db *gorm.DB) ConditionRepository {
	return &conditionRepository{db: db}
}

// CreateWithNumber creates a condition precedent, assigning its number
// from the deal's monotonic counter under the deal row lock. Numbers
// are never reused, even after a CP is deleted.
func (r *conditionRepository) CreateWithNumber(ctx context.Context, cp *models.DealCP) (*models.DealCP, error) {
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deal, err := lockDeal(tx, cp.DealID)
		if err != nil {
			return err
		}

		deal.CPCounter++
		cp.CPNumber = deal.CPCounter
		if err := tx.Model(deal).Update("cp_counter", deal.CPCounter).Error; err != nil {
			return err
		}
		return tx.Create(cp).Error
	})
	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return cp, nil
}

// GetByID gets a condition precedent by ID
func (r *conditionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DealCP, error) {
	var cp models.DealCP
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cp).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cp, nil
}

// FindByDeal finds all conditions precedent of a deal in number order
func (r *conditionRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealCP, error) {
	var cps []*models.DealCP
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("cp_number").
		Find(&cps).Error
	if err != nil {
		return nil, err
	}
	return cps, nil
}

// Update updates a condition precedent
func (r *conditionRepository) Update(ctx context.Context, cp *models.DealCP) (*models.DealCP, error) {
	if err := r.db.WithContext(ctx).Save(cp).Error; err != nil {
		return nil, err
	}
	return cp, nil
}

// CountMandatory counts the deal's mandatory conditions precedent and
// how many of those are resolved (satisfied or waived)
func (r *conditionRepository) CountMandatory(ctx context.Context, dealID uuid.UUID) (int64, int64, error) {
	var total, satisfied int64

	err := r.db.WithContext(ctx).
		Model(&models.DealCP{}).
		Where("deal_id = ? AND is_mandatory = ?", dealID, true).
		Count(&total).Error
	if err != nil {
		return 0, 0, err
	}

	err = r.db.WithContext(ctx).
		Model(&models.DealCP{}).
		Where("deal_id = ? AND is_mandatory = ?", dealID, true).
		Where("status IN ?", []models.CPStatus{models.CPSatisfied, models.CPWaived}).
		Count(&satisfied).Error
	if err != nil {
		return 0, 0, err
	}

	return total, satisfied, nil
}
