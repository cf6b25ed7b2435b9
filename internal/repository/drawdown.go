package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BuildFund/New-Main-sub000/internal/db"
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// DrawdownRepository defines the interface for drawdown persistence
type DrawdownRepository interface {
	CreateWithSequence(ctx context.Context, dd *models.Drawdown) (*models.Drawdown, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Drawdown, error)
	FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.Drawdown, error)
	FindInFlight(ctx context.Context, dealID uuid.UUID) ([]*models.Drawdown, error)
	Update(ctx context.Context, dd *models.Drawdown) (*models.Drawdown, error)
	AddDocument(ctx context.Context, doc *models.DrawdownDocument) (*models.DrawdownDocument, error)
	FindDocuments(ctx context.Context, drawdownID uuid.UUID) ([]*models.DrawdownDocument, error)
}

// drawdownRepository implements DrawdownRepository
type drawdownRepository struct {
	db *gorm.DB
}

// NewDrawdownRepository creates a new drawdown repository
func NewDrawdownRepository(db *gorm.DB) DrawdownRepository {
	return &drawdownRepository{db: db}
}

// CreateWithSequence creates a drawdown, assigning its sequence number
// from the deal's monotonic counter under the deal row lock. Sequence
// numbers are strictly increasing per deal and never recycled, so a
// resubmission after rejection gets a fresh number.
func (r *drawdownRepository) CreateWithSequence(ctx context.Context, dd *models.Drawdown) (*models.Drawdown, error) {
	if dd.ID == uuid.Nil {
		dd.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deal, err := lockDeal(tx, dd.DealID)
		if err != nil {
			return err
		}

		deal.DrawdownCounter++
		dd.SequenceNumber = deal.DrawdownCounter
		if err := tx.Model(deal).Update("drawdown_counter", deal.DrawdownCounter).Error; err != nil {
			return err
		}
		return tx.Create(dd).Error
	})
	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return dd, nil
}

// GetByID gets a drawdown by ID
func (r *drawdownRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Drawdown, error) {
	var dd models.Drawdown
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dd).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &dd, nil
}

// FindByDeal finds all drawdowns of a deal in sequence order
func (r *drawdownRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.Drawdown, error) {
	var dds []*models.Drawdown
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("sequence_number").
		Find(&dds).Error
	if err != nil {
		return nil, err
	}
	return dds, nil
}

// FindInFlight finds drawdowns that are neither paid nor rejected on
// either track
func (r *drawdownRepository) FindInFlight(ctx context.Context, dealID uuid.UUID) ([]*models.Drawdown, error) {
	var dds []*models.Drawdown
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Where("lender_approval_status NOT IN ?", []models.LenderApprovalStatus{models.LenderPaid, models.LenderRejected}).
		Where("ms_review_status <> ?", models.MSRejected).
		Order("sequence_number").
		Find(&dds).Error
	if err != nil {
		return nil, err
	}
	return dds, nil
}

// Update updates a drawdown
func (r *drawdownRepository) Update(ctx context.Context, dd *models.Drawdown) (*models.Drawdown, error) {
	if err := r.db.WithContext(ctx).Save(dd).Error; err != nil {
		return nil, err
	}
	return dd, nil
}

// AddDocument attaches a supporting document reference to a drawdown
func (r *drawdownRepository) AddDocument(ctx context.Context, doc *models.DrawdownDocument) (*models.DrawdownDocument, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// FindDocuments finds the documents attached to a drawdown
func (r *drawdownRepository) FindDocuments(ctx context.Context, drawdownID uuid.UUID) ([]*models.DrawdownDocument, error) {
	var docs []*models.DrawdownDocument
	err := r.db.WithContext(ctx).
		Where("drawdown_id = ?", drawdownID).
		Order("created_at").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}
