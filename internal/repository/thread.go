package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BuildFund/New-Main-sub000/internal/db"
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// ThreadRepository defines the interface for message thread persistence
type ThreadRepository interface {
	CreateThread(ctx context.Context, thread *models.DealMessageThread) (*models.DealMessageThread, error)
	GetThread(ctx context.Context, id uuid.UUID) (*models.DealMessageThread, error)
	FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealMessageThread, error)
	AddParticipant(ctx context.Context, p *models.ThreadParticipant) (*models.ThreadParticipant, error)
	CreateMessage(ctx context.Context, msg *models.DealMessage) (*models.DealMessage, error)
	FindMessages(ctx context.Context, threadID uuid.UUID) ([]*models.DealMessage, error)
	CreateDocumentLink(ctx context.Context, link *models.DealDocumentLink) (*models.DealDocumentLink, error)
	FindDocumentsByOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) ([]*models.DealDocumentLink, error)
}

// threadRepository implements ThreadRepository
type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

// CreateThread creates a thread together with its initial participants
func (r *threadRepository) CreateThread(ctx context.Context, thread *models.DealMessageThread) (*models.DealMessageThread, error) {
	if thread.ID == uuid.Nil {
		thread.ID = uuid.New()
	}
	for i := range thread.Participants {
		if thread.Participants[i].ID == uuid.Nil {
			thread.Participants[i].ID = uuid.New()
		}
	}
	if err := r.db.WithContext(ctx).Create(thread).Error; err != nil {
		return nil, err
	}
	return thread, nil
}

// GetThread gets a thread by ID with its participants
func (r *threadRepository) GetThread(ctx context.Context, id uuid.UUID) (*models.DealMessageThread, error) {
	var thread models.DealMessageThread
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("id = ?", id).
		First(&thread).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &thread, nil
}

// FindByDeal finds all threads of a deal with their participants
func (r *threadRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealMessageThread, error) {
	var threads []*models.DealMessageThread
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("deal_id = ?", dealID).
		Order("created_at").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return threads, nil
}

// AddParticipant grants a party or party type access to a thread
func (r *threadRepository) AddParticipant(ctx context.Context, p *models.ThreadParticipant) (*models.ThreadParticipant, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// CreateMessage creates a message in a thread
func (r *threadRepository) CreateMessage(ctx context.Context, msg *models.DealMessage) (*models.DealMessage, error) {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// FindMessages finds the messages of a thread oldest first
func (r *threadRepository) FindMessages(ctx context.Context, threadID uuid.UUID) ([]*models.DealMessage, error) {
	var msgs []*models.DealMessage
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// CreateDocumentLink stores a document reference against its owner
func (r *threadRepository) CreateDocumentLink(ctx context.Context, link *models.DealDocumentLink) (*models.DealDocumentLink, error) {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}

// FindDocumentsByOwner finds the document links attached to an owner
func (r *threadRepository) FindDocumentsByOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) ([]*models.DealDocumentLink, error) {
	var links []*models.DealDocumentLink
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("created_at").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}
