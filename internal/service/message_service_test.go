package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BuildFund/New-Main-sub000/internal/models"
)

func legalThread(dealID uuid.UUID) *models.DealMessageThread {
	return &models.DealMessageThread{
		ID:         uuid.New(),
		DealID:     dealID,
		ThreadType: models.ThreadLegal,
		Title:      "Legal workstream",
		Participants: []models.ThreadParticipant{
			{PartyType: models.PartyLender},
			{PartyType: models.PartySolicitor},
		},
	}
}

func dealParty(dealID uuid.UUID, partyType models.PartyType) *models.DealParty {
	return &models.DealParty{
		ID:                uuid.New(),
		DealID:            dealID,
		PartyType:         partyType,
		AppointmentStatus: models.AppointmentActive,
	}
}

func TestCreateThreadAppliesDefaultVisibility(t *testing.T) {
	deal := &models.Deal{Status: models.DealActive}

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)

	created := new(models.DealMessageThread)
	threadRepo := new(MockThreadRepository)
	threadRepo.On("CreateThread", mock.Anything, mock.AnythingOfType("*models.DealMessageThread")).
		Run(func(args mock.Arguments) { *created = *(args.Get(1).(*models.DealMessageThread)) }).
		Return(created, nil)

	svc := NewMessageService(dealRepo, new(MockPartyRepository), threadRepo)

	thread, err := svc.CreateThread(context.Background(), deal.ID, models.ThreadLegal, "Legal workstream", false, nil)
	require.NoError(t, err)

	types := make([]models.PartyType, 0, len(thread.Participants))
	for _, p := range thread.Participants {
		require.Nil(t, p.PartyID)
		types = append(types, p.PartyType)
	}
	require.ElementsMatch(t, models.DefaultThreadVisibility[models.ThreadLegal], types)
}

func TestCreateThreadPrivateNeedsParticipants(t *testing.T) {
	deal := &models.Deal{Status: models.DealActive}

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)

	svc := NewMessageService(dealRepo, new(MockPartyRepository), new(MockThreadRepository))

	_, err := svc.CreateThread(context.Background(), deal.ID, models.ThreadGeneral, "Side channel", true, nil)
	require.EqualError(t, err, "private threads need at least one participant")
}

func TestCreateThreadPrivateRejectsForeignParty(t *testing.T) {
	deal := &models.Deal{Status: models.DealActive}
	stranger := dealParty(uuid.New(), models.PartyBorrower)

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, stranger.ID).Return(stranger, nil)

	svc := NewMessageService(dealRepo, partyRepo, new(MockThreadRepository))

	_, err := svc.CreateThread(context.Background(), deal.ID, models.ThreadGeneral, "Side channel", true, []uuid.UUID{stranger.ID})
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestPostMessageHiddenFromOutsideRoles(t *testing.T) {
	dealID := uuid.New()
	thread := legalThread(dealID)
	valuer := dealParty(dealID, models.PartyValuer)

	threadRepo := new(MockThreadRepository)
	threadRepo.On("GetThread", mock.Anything, thread.ID).Return(thread, nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, valuer.ID).Return(valuer, nil)

	svc := NewMessageService(new(MockDealRepository), partyRepo, threadRepo)

	_, err := svc.PostMessage(context.Background(), thread.ID, valuer.ID, "Where do I upload the report?")
	require.ErrorIs(t, err, ErrThreadNotVisible)
}

func TestPostMessageAllowedForParticipantRole(t *testing.T) {
	dealID := uuid.New()
	thread := legalThread(dealID)
	sol := dealParty(dealID, models.PartySolicitor)

	threadRepo := new(MockThreadRepository)
	threadRepo.On("GetThread", mock.Anything, thread.ID).Return(thread, nil)

	created := new(models.DealMessage)
	threadRepo.On("CreateMessage", mock.Anything, mock.AnythingOfType("*models.DealMessage")).
		Run(func(args mock.Arguments) { *created = *(args.Get(1).(*models.DealMessage)) }).
		Return(created, nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, sol.ID).Return(sol, nil)

	svc := NewMessageService(new(MockDealRepository), partyRepo, threadRepo)

	msg, err := svc.PostMessage(context.Background(), thread.ID, sol.ID, "Requisition REQ-1 raised")
	require.NoError(t, err)
	require.Equal(t, thread.ID, msg.ThreadID)
	require.Equal(t, sol.ID, msg.SenderID)
}

func TestPrivateThreadVisibleOnlyToNamedParties(t *testing.T) {
	dealID := uuid.New()
	named := dealParty(dealID, models.PartyLender)
	admin := dealParty(dealID, models.PartyAdmin)

	thread := &models.DealMessageThread{
		ID:           uuid.New(),
		DealID:       dealID,
		ThreadType:   models.ThreadGeneral,
		IsPrivate:    true,
		Participants: []models.ThreadParticipant{{PartyID: &named.ID}},
	}

	require.True(t, threadVisibleTo(thread, named))
	// Private threads are closed even to admins unless named.
	require.False(t, threadVisibleTo(thread, admin))
}

func TestAdminSeesRoleScopedThreads(t *testing.T) {
	dealID := uuid.New()
	admin := dealParty(dealID, models.PartyAdmin)

	require.True(t, threadVisibleTo(legalThread(dealID), admin))
}

func TestListThreadsFiltersByVisibility(t *testing.T) {
	dealID := uuid.New()
	borrower := dealParty(dealID, models.PartyBorrower)

	general := &models.DealMessageThread{
		ID:         uuid.New(),
		DealID:     dealID,
		ThreadType: models.ThreadGeneral,
		Participants: []models.ThreadParticipant{
			{PartyType: models.PartyBorrower},
			{PartyType: models.PartyLender},
		},
	}
	legal := legalThread(dealID)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, borrower.ID).Return(borrower, nil)

	threadRepo := new(MockThreadRepository)
	threadRepo.On("FindByDeal", mock.Anything, dealID).Return([]*models.DealMessageThread{general, legal}, nil)

	svc := NewMessageService(new(MockDealRepository), partyRepo, threadRepo)

	visible, err := svc.ListThreads(context.Background(), dealID, borrower.ID)
	require.NoError(t, err)
	require.Equal(t, []*models.DealMessageThread{general}, visible)
}

func TestListMessagesChecksReader(t *testing.T) {
	dealID := uuid.New()
	thread := legalThread(dealID)
	borrower := dealParty(dealID, models.PartyBorrower)

	threadRepo := new(MockThreadRepository)
	threadRepo.On("GetThread", mock.Anything, thread.ID).Return(thread, nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, borrower.ID).Return(borrower, nil)

	svc := NewMessageService(new(MockDealRepository), partyRepo, threadRepo)

	_, err := svc.ListMessages(context.Background(), thread.ID, borrower.ID)
	require.ErrorIs(t, err, ErrThreadNotVisible)
}
