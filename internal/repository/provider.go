package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BuildFund/New-Main-sub000/internal/db"
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// ProviderRepository defines the interface for provider selection and
// deliverable persistence
type ProviderRepository interface {
	CreateSelection(ctx context.Context, sel *models.DealProviderSelection) (*models.DealProviderSelection, error)
	GetSelection(ctx context.Context, id uuid.UUID) (*models.DealProviderSelection, error)
	FindSelectionsByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealProviderSelection, error)
	GetActiveSelection(ctx context.Context, dealID uuid.UUID, role models.ProviderRole) (*models.DealProviderSelection, error)
	UpdateSelection(ctx context.Context, sel *models.DealProviderSelection) (*models.DealProviderSelection, error)
	CreateDeliverable(ctx context.Context, d *models.ProviderDeliverable) (*models.ProviderDeliverable, error)
	GetDeliverable(ctx context.Context, id uuid.UUID) (*models.ProviderDeliverable, error)
	FindDeliverablesByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.ProviderDeliverable, error)
	UpdateDeliverable(ctx context.Context, d *models.ProviderDeliverable) (*models.ProviderDeliverable, error)
	FindApprovedDeliverables(ctx context.Context, dealID uuid.UUID) ([]*models.ProviderDeliverable, error)
}

// providerRepository implements ProviderRepository
type providerRepository struct {
	db *gorm.DB
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db *gorm.DB) ProviderRepository {
	return &providerRepository{db: db}
}

// CreateSelection creates a provider selection
func (r *providerRepository) CreateSelection(ctx context.Context, sel *models.DealProviderSelection) (*models.DealProviderSelection, error) {
	if sel.ID == uuid.Nil {
		sel.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(sel).Error; err != nil {
		return nil, err
	}
	return sel, nil
}

// GetSelection gets a provider selection by ID
func (r *providerRepository) GetSelection(ctx context.Context, id uuid.UUID) (*models.DealProviderSelection, error) {
	var sel models.DealProviderSelection
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sel).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sel, nil
}

// FindSelectionsByDeal finds all provider selections of a deal
func (r *providerRepository) FindSelectionsByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealProviderSelection, error) {
	var sels []*models.DealProviderSelection
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at").
		Find(&sels).Error
	if err != nil {
		return nil, err
	}
	return sels, nil
}

// GetActiveSelection gets the non-terminated selection for a role
func (r *providerRepository) GetActiveSelection(ctx context.Context, dealID uuid.UUID, role models.ProviderRole) (*models.DealProviderSelection, error) {
	var sel models.DealProviderSelection
	err := r.db.WithContext(ctx).
		Where("deal_id = ? AND role = ?", dealID, role).
		Where("status NOT IN ?", []models.SelectionStatus{models.SelectionTerminated}).
		Order("created_at DESC").
		First(&sel).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sel, nil
}

// UpdateSelection updates a provider selection
func (r *providerRepository) UpdateSelection(ctx context.Context, sel *models.DealProviderSelection) (*models.DealProviderSelection, error) {
	if err := r.db.WithContext(ctx).Save(sel).Error; err != nil {
		return nil, err
	}
	return sel, nil
}

// CreateDeliverable creates a provider deliverable
func (r *providerRepository) CreateDeliverable(ctx context.Context, d *models.ProviderDeliverable) (*models.ProviderDeliverable, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// GetDeliverable gets a deliverable by ID
func (r *providerRepository) GetDeliverable(ctx context.Context, id uuid.UUID) (*models.ProviderDeliverable, error) {
	var d models.ProviderDeliverable
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// FindDeliverablesByDeal finds all deliverables of a deal
func (r *providerRepository) FindDeliverablesByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.ProviderDeliverable, error) {
	var ds []*models.ProviderDeliverable
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at").
		Find(&ds).Error
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// UpdateDeliverable updates a deliverable
func (r *providerRepository) UpdateDeliverable(ctx context.Context, d *models.ProviderDeliverable) (*models.ProviderDeliverable, error) {
	if err := r.db.WithContext(ctx).Save(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// FindApprovedDeliverables finds the approved deliverables of a deal,
// used to build criteria and readiness snapshots
func (r *providerRepository) FindApprovedDeliverables(ctx context.Context, dealID uuid.UUID) ([]*models.ProviderDeliverable, error) {
	var ds []*models.ProviderDeliverable
	err := r.db.WithContext(ctx).
		Where("deal_id = ? AND status = ?", dealID, models.DeliverableApproved).
		Find(&ds).Error
	if err != nil {
		return nil, err
	}
	return ds, nil
}
