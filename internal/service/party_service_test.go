package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/repository"
)

func newTestPartyService(dealRepo *MockDealRepository, partyRepo *MockPartyRepository) *PartyService {
	audit, _ := newStubAudit()
	return &PartyService{
		dealRepo:  dealRepo,
		partyRepo: partyRepo,
		readiness: newStubReadiness(),
		audit:     audit,
		notifier:  NewNotifier(nil, metrics.NewMetrics()),
	}
}

func TestInvitePartyConsultantNeedsSide(t *testing.T) {
	deal := &models.Deal{Status: models.DealActive}

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)

	svc := newTestPartyService(dealRepo, new(MockPartyRepository))

	_, err := svc.InviteParty(context.Background(), deal.ID, &InvitePartyRequest{
		PartyRef:  "VAL-1",
		PartyType: models.PartyValuer,
	})
	require.ErrorIs(t, err, ErrConsultantSideRequired)
}

func TestInvitePartyRecordsInvitation(t *testing.T) {
	deal := &models.Deal{Status: models.DealActive}

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)

	created := new(models.DealParty)
	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetActiveLenderSolicitor", mock.Anything, deal.ID).Return(nil, repository.ErrNotFound)
	partyRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.DealParty")).
		Run(func(args mock.Arguments) { *created = *(args.Get(1).(*models.DealParty)) }).
		Return(created, nil)

	svc := newTestPartyService(dealRepo, partyRepo)

	party, err := svc.InviteParty(context.Background(), deal.ID, &InvitePartyRequest{
		PartyRef:  "SOL-9",
		PartyType: models.PartySolicitor,
		ActingFor: models.ActingForLender,
	})
	require.NoError(t, err)
	require.Equal(t, models.AppointmentInvited, party.AppointmentStatus)
	require.NotNil(t, party.InvitedAt)
}

func TestInviteLenderSolicitorRejectedWhenSlotTaken(t *testing.T) {
	deal := &models.Deal{Status: models.DealActive}
	holder := &models.DealParty{
		ID:                      uuid.New(),
		DealID:                  deal.ID,
		PartyRef:                "SOL-OLD",
		PartyType:               models.PartySolicitor,
		ActingForParty:          models.ActingForLender,
		AppointmentStatus:       models.AppointmentActive,
		IsActiveLenderSolicitor: true,
	}

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetActiveLenderSolicitor", mock.Anything, deal.ID).Return(holder, nil)

	svc := newTestPartyService(dealRepo, partyRepo)

	_, err := svc.InviteParty(context.Background(), deal.ID, &InvitePartyRequest{
		PartyRef:  "SOL-NEW",
		PartyType: models.PartySolicitor,
		ActingFor: models.ActingForLender,
	})
	require.ErrorIs(t, err, ErrLenderSolicitorTaken)
	partyRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConfirmLenderSolicitorStopsAtConfirmed(t *testing.T) {
	dealID := uuid.New()
	party := &models.DealParty{
		ID:                uuid.New(),
		DealID:            dealID,
		PartyType:         models.PartySolicitor,
		ActingForParty:    models.ActingForLender,
		AppointmentStatus: models.AppointmentInvited,
	}
	deal := &models.Deal{ID: dealID, Status: models.DealActive}

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, dealID).Return(deal, nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, party.ID).Return(party, nil)
	partyRepo.On("Update", mock.Anything, party).Return(party, nil)

	svc := newTestPartyService(dealRepo, partyRepo)

	confirmed, err := svc.ConfirmParty(context.Background(), party.ID, "sol@firm")
	require.NoError(t, err)
	// Confirmation alone never makes a lender-side solicitor active; the
	// explicit activation step does, because it may displace the holder.
	require.Equal(t, models.AppointmentConfirmed, confirmed.AppointmentStatus)
	require.False(t, confirmed.IsActiveLenderSolicitor)
}

func TestConfirmOtherRolesBecomeActive(t *testing.T) {
	dealID := uuid.New()
	party := &models.DealParty{
		ID:                uuid.New(),
		DealID:            dealID,
		PartyType:         models.PartyValuer,
		ActingForParty:    models.ActingForLender,
		AppointmentStatus: models.AppointmentInvited,
	}
	deal := &models.Deal{ID: dealID, Status: models.DealActive}

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, dealID).Return(deal, nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, party.ID).Return(party, nil)
	partyRepo.On("Update", mock.Anything, party).Return(party, nil)

	svc := newTestPartyService(dealRepo, partyRepo)

	confirmed, err := svc.ConfirmParty(context.Background(), party.ID, "val@firm")
	require.NoError(t, err)
	require.Equal(t, models.AppointmentActive, confirmed.AppointmentStatus)
}

func TestActivateLenderSolicitorRejectsWrongRole(t *testing.T) {
	dealID := uuid.New()
	party := &models.DealParty{
		ID:                uuid.New(),
		DealID:            dealID,
		PartyType:         models.PartySolicitor,
		ActingForParty:    models.ActingForBorrower,
		AppointmentStatus: models.AppointmentConfirmed,
	}

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, party.ID).Return(party, nil)

	svc := newTestPartyService(new(MockDealRepository), partyRepo)

	_, err := svc.ActivateLenderSolicitor(context.Background(), dealID, party.ID, "admin", "")
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestActivateLenderSolicitorRejectsUnconfirmed(t *testing.T) {
	dealID := uuid.New()
	party := &models.DealParty{
		ID:                uuid.New(),
		DealID:            dealID,
		PartyType:         models.PartySolicitor,
		ActingForParty:    models.ActingForLender,
		AppointmentStatus: models.AppointmentInvited,
	}

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, party.ID).Return(party, nil)

	svc := newTestPartyService(new(MockDealRepository), partyRepo)

	_, err := svc.ActivateLenderSolicitor(context.Background(), dealID, party.ID, "admin", "")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestActivateLenderSolicitorReplacesHolder(t *testing.T) {
	dealID := uuid.New()
	incoming := &models.DealParty{
		ID:                uuid.New(),
		DealID:            dealID,
		PartyRef:          "SOL-NEW",
		PartyType:         models.PartySolicitor,
		ActingForParty:    models.ActingForLender,
		AppointmentStatus: models.AppointmentConfirmed,
	}
	outgoing := &models.DealParty{
		ID:                uuid.New(),
		DealID:            dealID,
		PartyRef:          "SOL-OLD",
		PartyType:         models.PartySolicitor,
		ActingForParty:    models.ActingForLender,
		AppointmentStatus: models.AppointmentRemoved,
	}
	deal := &models.Deal{ID: dealID, Status: models.DealActive}

	activated := *incoming
	activated.AppointmentStatus = models.AppointmentActive
	activated.IsActiveLenderSolicitor = true

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, dealID).Return(deal, nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, incoming.ID).Return(incoming, nil)
	partyRepo.On("GetActiveLenderSolicitor", mock.Anything, dealID).Return(outgoing, nil)
	partyRepo.On("ActivateLenderSolicitor", mock.Anything, dealID, incoming.ID, "firm wound down").
		Return(&activated, outgoing, nil)

	svc := newTestPartyService(dealRepo, partyRepo)

	result, err := svc.ActivateLenderSolicitor(context.Background(), dealID, incoming.ID, "admin", "firm wound down")
	require.NoError(t, err)
	require.True(t, result.IsActiveLenderSolicitor)
	require.Equal(t, models.AppointmentActive, result.AppointmentStatus)

	partyRepo.AssertExpectations(t)
}

func TestActivateLenderSolicitorReplacementNeedsReason(t *testing.T) {
	dealID := uuid.New()
	incoming := &models.DealParty{
		ID:                uuid.New(),
		DealID:            dealID,
		PartyRef:          "SOL-NEW",
		PartyType:         models.PartySolicitor,
		ActingForParty:    models.ActingForLender,
		AppointmentStatus: models.AppointmentConfirmed,
	}
	holder := &models.DealParty{
		ID:                      uuid.New(),
		DealID:                  dealID,
		PartyRef:                "SOL-OLD",
		PartyType:               models.PartySolicitor,
		ActingForParty:          models.ActingForLender,
		AppointmentStatus:       models.AppointmentActive,
		IsActiveLenderSolicitor: true,
	}

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, incoming.ID).Return(incoming, nil)
	partyRepo.On("GetActiveLenderSolicitor", mock.Anything, dealID).Return(holder, nil)

	svc := newTestPartyService(new(MockDealRepository), partyRepo)

	_, err := svc.ActivateLenderSolicitor(context.Background(), dealID, incoming.ID, "admin", "")
	require.ErrorIs(t, err, ErrReplacementReason)
	partyRepo.AssertNotCalled(t, "ActivateLenderSolicitor", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRemovePartyClearsActiveFlag(t *testing.T) {
	party := &models.DealParty{
		ID:                      uuid.New(),
		DealID:                  uuid.New(),
		PartyType:               models.PartySolicitor,
		ActingForParty:          models.ActingForLender,
		AppointmentStatus:       models.AppointmentActive,
		IsActiveLenderSolicitor: true,
	}

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, party.DealID).Return(&models.Deal{ID: party.DealID}, nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, party.ID).Return(party, nil)
	partyRepo.On("Update", mock.Anything, party).Return(party, nil)

	svc := newTestPartyService(dealRepo, partyRepo)

	removed, err := svc.RemoveParty(context.Background(), party.ID, "admin", "conflict of interest")
	require.NoError(t, err)
	require.Equal(t, models.AppointmentRemoved, removed.AppointmentStatus)
	require.False(t, removed.IsActiveLenderSolicitor)
	require.Equal(t, "conflict of interest", removed.RemovalReason)
	require.NotNil(t, removed.RemovedAt)
}
