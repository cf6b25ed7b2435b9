package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BuildFund/New-Main-sub000/internal/db"
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// DealRepository defines the interface for deal persistence
type DealRepository interface {
	CreateWithGraph(ctx context.Context, deal *models.Deal, deps []models.TaskDependency, firstStageID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	GetByApplicationRef(ctx context.Context, applicationRef string) (*models.Deal, error)
	GetByDealRef(ctx context.Context, dealRef string) (*models.Deal, error)
	FindBy(ctx context.Context, filter models.Deal) ([]*models.Deal, error)
	Update(ctx context.Context, deal *models.Deal) (*models.Deal, error)
	CountByStatus(ctx context.Context, status models.DealStatus) (int64, error)
}

// dealRepository implements DealRepository
type dealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db *gorm.DB) DealRepository {
	return &dealRepository{db: db}
}

// CreateWithGraph persists a deal together with its parties, stages,
// tasks and threads in a single transaction. The deal carries the graph
// through its associations; dependency edges and the current stage
// pointer are written after the rows they reference exist. A duplicate
// application reference aborts the whole transaction and surfaces as
// ErrDuplicateKey so the caller can fall back to the already-created
// deal.
func (r *dealRepository) CreateWithGraph(ctx context.Context, deal *models.Deal, deps []models.TaskDependency, firstStageID uuid.UUID) error {
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(deal).Error; err != nil {
			return err
		}

		for i := range deps {
			if deps[i].ID == uuid.Nil {
				deps[i].ID = uuid.New()
			}
		}
		if len(deps) > 0 {
			if err := tx.Create(&deps).Error; err != nil {
				return err
			}
		}

		if firstStageID != uuid.Nil {
			if err := tx.Model(deal).Update("current_stage_id", firstStageID).Error; err != nil {
				return err
			}
			deal.CurrentStageID = &firstStageID
		}
		return nil
	})
	if err != nil {
		if IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// GetByID gets a deal by ID
func (r *dealRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.WithContext(ctx).
		Preload("CurrentStage").
		Where("id = ?", id).
		First(&deal).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &deal, nil
}

// GetByApplicationRef gets a deal by its accepted application reference
func (r *dealRepository) GetByApplicationRef(ctx context.Context, applicationRef string) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.WithContext(ctx).
		Preload("CurrentStage").
		Where("application_ref = ?", applicationRef).
		First(&deal).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &deal, nil
}

// GetByDealRef gets a deal by its external deal reference
func (r *dealRepository) GetByDealRef(ctx context.Context, dealRef string) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.WithContext(ctx).
		Preload("CurrentStage").
		Where("deal_ref = ?", dealRef).
		First(&deal).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &deal, nil
}

// FindBy finds deals matching the filter, newest first
func (r *dealRepository) FindBy(ctx context.Context, filter models.Deal) ([]*models.Deal, error) {
	var deals []*models.Deal
	err := r.db.WithContext(ctx).
		Where(&filter).
		Order("created_at DESC").
		Find(&deals).Error
	if err != nil {
		return nil, err
	}
	return deals, nil
}

// Update updates a deal
func (r *dealRepository) Update(ctx context.Context, deal *models.Deal) (*models.Deal, error) {
	if err := r.db.WithContext(ctx).Save(deal).Error; err != nil {
		return nil, err
	}
	return deal, nil
}

// CountByStatus counts deals in the given status
func (r *dealRepository) CountByStatus(ctx context.Context, status models.DealStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// lockDeal loads the deal row under FOR UPDATE inside tx. Counter bumps
// and single-holder flag changes serialize on this lock.
func lockDeal(tx *gorm.DB, dealID uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", dealID).
		First(&deal).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &deal, nil
}
