package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BuildFund/New-Main-sub000/internal/db"
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// RequisitionRepository defines the interface for requisition
// persistence
type RequisitionRepository interface {
	CreateWithReference(ctx context.Context, req *models.DealRequisition) (*models.DealRequisition, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.DealRequisition, error)
	FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealRequisition, error)
	Update(ctx context.Context, req *models.DealRequisition) (*models.DealRequisition, error)
	CountOpen(ctx context.Context, dealID uuid.UUID) (int64, error)
}

// requisitionRepository implements RequisitionRepository
type requisitionRepository struct {
	db *gorm.DB
}

// NewRequisitionRepository creates a new requisition repository
func NewRequisitionRepository(db *gorm.DB) RequisitionRepository {
	return &requisitionRepository{db: db}
}

// CreateWithReference creates a requisition, assigning its number and
// reference (REQ-001, REQ-002, ...) from the deal's monotonic counter
// under the deal row lock so references are unique and never reused.
func (r *requisitionRepository) CreateWithReference(ctx context.Context, req *models.DealRequisition) (*models.DealRequisition, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deal, err := lockDeal(tx, req.DealID)
		if err != nil {
			return err
		}

		deal.RequisitionCounter++
		req.Number = deal.RequisitionCounter
		req.Reference = fmt.Sprintf("REQ-%03d", req.Number)
		if err := tx.Model(deal).Update("requisition_counter", deal.RequisitionCounter).Error; err != nil {
			return err
		}
		return tx.Create(req).Error
	})
	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return req, nil
}

// GetByID gets a requisition by ID
func (r *requisitionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DealRequisition, error) {
	var req models.DealRequisition
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// FindByDeal finds all requisitions of a deal in number order
func (r *requisitionRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealRequisition, error) {
	var reqs []*models.DealRequisition
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("number").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

// Update updates a requisition
func (r *requisitionRepository) Update(ctx context.Context, req *models.DealRequisition) (*models.DealRequisition, error) {
	if err := r.db.WithContext(ctx).Save(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// CountOpen counts requisitions that are not yet approved or closed
func (r *requisitionRepository) CountOpen(ctx context.Context, dealID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DealRequisition{}).
		Where("deal_id = ?", dealID).
		Where("status IN ?", []models.RequisitionStatus{models.RequisitionOpen, models.RequisitionResponded}).
		Count(&count).Error
	return count, err
}
