package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BuildFund/New-Main-sub000/internal/db"
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// PartyRepository defines the interface for deal party persistence
type PartyRepository interface {
	Create(ctx context.Context, party *models.DealParty) (*models.DealParty, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.DealParty, error)
	FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealParty, error)
	FindBy(ctx context.Context, filter models.DealParty) ([]*models.DealParty, error)
	GetActiveLenderSolicitor(ctx context.Context, dealID uuid.UUID) (*models.DealParty, error)
	Update(ctx context.Context, party *models.DealParty) (*models.DealParty, error)
	ActivateLenderSolicitor(ctx context.Context, dealID, partyID uuid.UUID, reason string) (*models.DealParty, *models.DealParty, error)
}

// partyRepository implements PartyRepository
type partyRepository struct {
	db *gorm.DB
}

// NewPartyRepository creates a new party repository
func NewPartyRepository(db *gorm.DB) PartyRepository {
	return &partyRepository{db: db}
}

// Create creates a new deal party
func (r *partyRepository) Create(ctx context.Context, party *models.DealParty) (*models.DealParty, error) {
	if party.ID == uuid.Nil {
		party.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(party).Error; err != nil {
		return nil, err
	}
	return party, nil
}

// GetByID gets a deal party by ID
func (r *partyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DealParty, error) {
	var party models.DealParty
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&party).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &party, nil
}

// FindByDeal finds all parties on a deal
func (r *partyRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealParty, error) {
	var parties []*models.DealParty
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at").
		Find(&parties).Error
	if err != nil {
		return nil, err
	}
	return parties, nil
}

// FindBy finds parties matching the filter
func (r *partyRepository) FindBy(ctx context.Context, filter models.DealParty) ([]*models.DealParty, error) {
	var parties []*models.DealParty
	err := r.db.WithContext(ctx).
		Where(&filter).
		Order("created_at").
		Find(&parties).Error
	if err != nil {
		return nil, err
	}
	return parties, nil
}

// GetActiveLenderSolicitor gets the single party holding the active
// lender solicitor flag on a deal
func (r *partyRepository) GetActiveLenderSolicitor(ctx context.Context, dealID uuid.UUID) (*models.DealParty, error) {
	var party models.DealParty
	err := r.db.WithContext(ctx).
		Where("deal_id = ? AND is_active_lender_solicitor = ?", dealID, true).
		First(&party).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &party, nil
}

// Update updates a deal party
func (r *partyRepository) Update(ctx context.Context, party *models.DealParty) (*models.DealParty, error) {
	if err := r.db.WithContext(ctx).Save(party).Error; err != nil {
		return nil, err
	}
	return party, nil
}

// ActivateLenderSolicitor promotes the given party to active lender
// solicitor, demoting and removing any current holder. The whole swap
// runs under the deal row lock so two concurrent activations cannot
// leave two active holders. Returns the activated party and the
// replaced one (nil when there was no prior holder).
func (r *partyRepository) ActivateLenderSolicitor(ctx context.Context, dealID, partyID uuid.UUID, reason string) (*models.DealParty, *models.DealParty, error) {
	var activated models.DealParty
	var replaced *models.DealParty

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockDeal(tx, dealID); err != nil {
			return err
		}

		if err := tx.Where("id = ? AND deal_id = ?", partyID, dealID).First(&activated).Error; err != nil {
			if db.IsRecordNotFoundError(err) {
				return ErrNotFound
			}
			return err
		}

		var current models.DealParty
		err := tx.Where("deal_id = ? AND is_active_lender_solicitor = ? AND id <> ?", dealID, true, partyID).
			First(&current).Error
		switch {
		case err == nil:
			now := time.Now()
			current.IsActiveLenderSolicitor = false
			current.AppointmentStatus = models.AppointmentRemoved
			current.RemovedAt = &now
			current.RemovalReason = reason
			if err := tx.Save(&current).Error; err != nil {
				return err
			}
			replaced = &current
		case db.IsRecordNotFoundError(err):
		default:
			return err
		}

		activated.IsActiveLenderSolicitor = true
		activated.AppointmentStatus = models.AppointmentActive
		return tx.Save(&activated).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &activated, replaced, nil
}
