package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/repository"
)

// MessageService owns role-scoped deal threads. Visibility is enforced
// on every read and write: a party sees a thread if its type (or, for
// private threads, its identity) is a participant.
type MessageService struct {
	dealRepo   repository.DealRepository
	partyRepo  repository.PartyRepository
	threadRepo repository.ThreadRepository
}

// NewMessageService creates a new message service
func NewMessageService(
	dealRepo repository.DealRepository,
	partyRepo repository.PartyRepository,
	threadRepo repository.ThreadRepository,
) *MessageService {
	return &MessageService{
		dealRepo:   dealRepo,
		partyRepo:  partyRepo,
		threadRepo: threadRepo,
	}
}

// CreateThread opens a thread on a deal. Role-scoped threads get the
// default participant set for their type; private threads list exact
// parties instead.
func (s *MessageService) CreateThread(ctx context.Context, dealID uuid.UUID, threadType models.ThreadType, title string, private bool, partyIDs []uuid.UUID) (*models.DealMessageThread, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealActive {
		return nil, ErrDealNotActive
	}

	thread := &models.DealMessageThread{
		DealID:     dealID,
		ThreadType: threadType,
		Title:      title,
		IsPrivate:  private,
	}

	if private {
		if len(partyIDs) == 0 {
			return nil, errors.New("private threads need at least one participant")
		}
		for _, id := range partyIDs {
			party, err := s.partyRepo.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if party.DealID != dealID {
				return nil, ErrNotAuthorized
			}
			pid := id
			thread.Participants = append(thread.Participants, models.ThreadParticipant{PartyID: &pid})
		}
	} else {
		for _, pt := range models.DefaultThreadVisibility[threadType] {
			thread.Participants = append(thread.Participants, models.ThreadParticipant{PartyType: pt})
		}
	}

	return s.threadRepo.CreateThread(ctx, thread)
}

// PostMessage posts to a thread after a visibility check on the sender.
func (s *MessageService) PostMessage(ctx context.Context, threadID, senderPartyID uuid.UUID, body string) (*models.DealMessage, error) {
	thread, err := s.threadRepo.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	sender, err := s.partyRepo.GetByID(ctx, senderPartyID)
	if err != nil {
		return nil, err
	}
	if sender.DealID != thread.DealID {
		return nil, ErrNotAuthorized
	}
	if !threadVisibleTo(thread, sender) {
		return nil, ErrThreadNotVisible
	}

	msg := &models.DealMessage{
		ThreadID: threadID,
		SenderID: senderPartyID,
		Body:     body,
	}

	return s.threadRepo.CreateMessage(ctx, msg)
}

// ListMessages returns a thread's messages after a visibility check on
// the reading party.
func (s *MessageService) ListMessages(ctx context.Context, threadID, readerPartyID uuid.UUID) ([]*models.DealMessage, error) {
	thread, err := s.threadRepo.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	reader, err := s.partyRepo.GetByID(ctx, readerPartyID)
	if err != nil {
		return nil, err
	}
	if reader.DealID != thread.DealID || !threadVisibleTo(thread, reader) {
		return nil, ErrThreadNotVisible
	}

	return s.threadRepo.FindMessages(ctx, threadID)
}

// ListThreads returns the deal threads visible to the given party.
func (s *MessageService) ListThreads(ctx context.Context, dealID, partyID uuid.UUID) ([]*models.DealMessageThread, error) {
	party, err := s.partyRepo.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.DealID != dealID {
		return nil, ErrNotAuthorized
	}

	threads, err := s.threadRepo.FindByDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	visible := make([]*models.DealMessageThread, 0, len(threads))
	for _, thread := range threads {
		if threadVisibleTo(thread, party) {
			visible = append(visible, thread)
		}
	}
	return visible, nil
}

// threadVisibleTo reports whether a party can see a thread. Admins see
// everything except private threads they are not named in.
func threadVisibleTo(thread *models.DealMessageThread, party *models.DealParty) bool {
	for _, p := range thread.Participants {
		if p.PartyID != nil && *p.PartyID == party.ID {
			return true
		}
		if !thread.IsPrivate && p.PartyID == nil && p.PartyType == party.PartyType {
			return true
		}
	}
	return !thread.IsPrivate && party.PartyType == models.PartyAdmin
}
