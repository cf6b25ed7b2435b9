package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// AuditRepository defines the interface for the append-only audit log.
// Events are only ever inserted; the Processed flag is the single
// mutable bit and exists for the reporting index export.
type AuditRepository interface {
	Append(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, error)
	FindByDeal(ctx context.Context, dealID uuid.UUID, since *time.Time) ([]*models.AuditEvent, error)
	FindUnprocessed(ctx context.Context, limit int) ([]*models.AuditEvent, error)
	MarkProcessed(ctx context.Context, ids []uuid.UUID) error
}

// auditRepository implements AuditRepository
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Append inserts an audit event
func (r *auditRepository) Append(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// FindByDeal finds a deal's audit events in chronological order,
// optionally bounded below
func (r *auditRepository) FindByDeal(ctx context.Context, dealID uuid.UUID, since *time.Time) ([]*models.AuditEvent, error) {
	query := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at")

	if since != nil {
		query = query.Where("created_at >= ?", since)
	}

	var events []*models.AuditEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// FindUnprocessed finds events not yet exported to the reporting index
func (r *auditRepository) FindUnprocessed(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	var events []*models.AuditEvent
	err := r.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("created_at").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// MarkProcessed flags events as exported
func (r *auditRepository) MarkProcessed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.AuditEvent{}).
		Where("id IN ?", ids).
		Update("processed", true).Error
}
