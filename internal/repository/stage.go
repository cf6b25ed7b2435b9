package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BuildFund/New-Main-sub000/internal/db"
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// StageRepository defines the interface for deal stage persistence
type StageRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.DealStage, error)
	GetByDealAndNumber(ctx context.Context, dealID uuid.UUID, stageNumber int) (*models.DealStage, error)
	FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealStage, error)
	Update(ctx context.Context, stage *models.DealStage) (*models.DealStage, error)
	Advance(ctx context.Context, dealID, currentStageID, nextStageID uuid.UUID) error
	BlockPendingEntry(ctx context.Context, dealID, currentStageID uuid.UUID, pendingStageNumber int) error
	EnterPendingStage(ctx context.Context, dealID, stageID uuid.UUID) error
	CompleteFinalStage(ctx context.Context, dealID, stageID uuid.UUID) error
}

// stageRepository implements StageRepository
type stageRepository struct {
	db *gorm.DB
}

// NewStageRepository creates a new stage repository
func NewStageRepository(db *gorm.DB) StageRepository {
	return &stageRepository{db: db}
}

// GetByID gets a stage by ID
func (r *stageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DealStage, error) {
	var stage models.DealStage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&stage).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &stage, nil
}

// GetByDealAndNumber gets a stage by deal and stage number
func (r *stageRepository) GetByDealAndNumber(ctx context.Context, dealID uuid.UUID, stageNumber int) (*models.DealStage, error) {
	var stage models.DealStage
	err := r.db.WithContext(ctx).
		Where("deal_id = ? AND stage_number = ?", dealID, stageNumber).
		First(&stage).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &stage, nil
}

// FindByDeal finds all stages of a deal in stage number order
func (r *stageRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealStage, error) {
	var stages []*models.DealStage
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("stage_number").
		Find(&stages).Error
	if err != nil {
		return nil, err
	}
	return stages, nil
}

// Update updates a stage
func (r *stageRepository) Update(ctx context.Context, stage *models.DealStage) (*models.DealStage, error) {
	if err := r.db.WithContext(ctx).Save(stage).Error; err != nil {
		return nil, err
	}
	return stage, nil
}

// Advance completes the current stage and enters the next one in a
// single transaction under the deal row lock, moving the deal pointer
// and clearing any pending stage marker.
func (r *stageRepository) Advance(ctx context.Context, dealID, currentStageID, nextStageID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deal, err := lockDeal(tx, dealID)
		if err != nil {
			return err
		}

		now := time.Now()
		err = tx.Model(&models.DealStage{}).
			Where("id = ? AND deal_id = ?", currentStageID, dealID).
			Updates(map[string]interface{}{
				"status":       models.StageCompleted,
				"completed_at": now,
			}).Error
		if err != nil {
			return err
		}

		err = tx.Model(&models.DealStage{}).
			Where("id = ? AND deal_id = ?", nextStageID, dealID).
			Updates(map[string]interface{}{
				"status":     models.StageInProgress,
				"entered_at": now,
			}).Error
		if err != nil {
			return err
		}

		deal.CurrentStageID = &nextStageID
		deal.PendingStageNumber = nil
		return tx.Save(deal).Error
	})
}

// BlockPendingEntry completes the current stage but records that the
// next stage's entry conditions were not met; the deal parks on the
// completed stage with the pending stage number set.
func (r *stageRepository) BlockPendingEntry(ctx context.Context, dealID, currentStageID uuid.UUID, pendingStageNumber int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deal, err := lockDeal(tx, dealID)
		if err != nil {
			return err
		}

		now := time.Now()
		err = tx.Model(&models.DealStage{}).
			Where("id = ? AND deal_id = ?", currentStageID, dealID).
			Updates(map[string]interface{}{
				"status":       models.StageCompleted,
				"completed_at": now,
			}).Error
		if err != nil {
			return err
		}

		deal.PendingStageNumber = &pendingStageNumber
		return tx.Save(deal).Error
	})
}

// EnterPendingStage enters the stage a deal was blocked in front of,
// clearing the pending marker.
func (r *stageRepository) EnterPendingStage(ctx context.Context, dealID, stageID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deal, err := lockDeal(tx, dealID)
		if err != nil {
			return err
		}

		now := time.Now()
		err = tx.Model(&models.DealStage{}).
			Where("id = ? AND deal_id = ?", stageID, dealID).
			Updates(map[string]interface{}{
				"status":     models.StageInProgress,
				"entered_at": now,
			}).Error
		if err != nil {
			return err
		}

		deal.CurrentStageID = &stageID
		deal.PendingStageNumber = nil
		return tx.Save(deal).Error
	})
}

// CompleteFinalStage completes the last stage and marks the deal
// completed.
func (r *stageRepository) CompleteFinalStage(ctx context.Context, dealID, stageID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deal, err := lockDeal(tx, dealID)
		if err != nil {
			return err
		}

		now := time.Now()
		err = tx.Model(&models.DealStage{}).
			Where("id = ? AND deal_id = ?", stageID, dealID).
			Updates(map[string]interface{}{
				"status":       models.StageCompleted,
				"completed_at": now,
			}).Error
		if err != nil {
			return err
		}

		deal.Status = models.DealCompleted
		deal.PendingStageNumber = nil
		return tx.Save(deal).Error
	})
}
