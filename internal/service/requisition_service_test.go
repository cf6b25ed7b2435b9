package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

func newTestRequisitionService(dealRepo *MockDealRepository, partyRepo *MockPartyRepository, reqRepo *MockRequisitionRepository) *RequisitionService {
	audit, _ := newStubAudit()
	return &RequisitionService{
		dealRepo:  dealRepo,
		partyRepo: partyRepo,
		reqRepo:   reqRepo,
		readiness: newStubReadiness(),
		audit:     audit,
		notifier:  NewNotifier(nil, metrics.NewMetrics()),
		metrics:   metrics.NewMetrics(),
	}
}

func lenderSolicitor(dealID uuid.UUID) *models.DealParty {
	return &models.DealParty{
		ID:                      uuid.New(),
		DealID:                  dealID,
		PartyRef:                "SOL-1",
		PartyType:               models.PartySolicitor,
		ActingForParty:          models.ActingForLender,
		AppointmentStatus:       models.AppointmentActive,
		IsActiveLenderSolicitor: true,
	}
}

func TestRaiseRequisitionRequiresActiveLenderSolicitor(t *testing.T) {
	deal := &models.Deal{Status: models.DealActive}
	sol := lenderSolicitor(deal.ID)
	sol.IsActiveLenderSolicitor = false

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, sol.ID).Return(sol, nil)

	svc := newTestRequisitionService(dealRepo, partyRepo, new(MockRequisitionRepository))

	_, err := svc.RaiseRequisition(context.Background(), deal.ID, sol.ID, "Confirm discharge of prior charge")
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRaiseRequisitionAssignsReference(t *testing.T) {
	deal := &models.Deal{DealRef: "BF-2026-aaaa", Status: models.DealActive}
	sol := lenderSolicitor(deal.ID)

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, sol.ID).Return(sol, nil)

	created := new(models.DealRequisition)
	reqRepo := new(MockRequisitionRepository)
	reqRepo.On("CreateWithReference", mock.Anything, mock.AnythingOfType("*models.DealRequisition")).
		Run(func(args mock.Arguments) {
			*created = *(args.Get(1).(*models.DealRequisition))
			created.Reference = "REQ-3"
		}).
		Return(created, nil)

	svc := newTestRequisitionService(dealRepo, partyRepo, reqRepo)

	req, err := svc.RaiseRequisition(context.Background(), deal.ID, sol.ID, "Confirm discharge of prior charge")
	require.NoError(t, err)
	require.Equal(t, "REQ-3", req.Reference)
	require.Equal(t, models.RequisitionOpen, req.Status)

	reqRepo.AssertExpectations(t)
}

func TestRespondToRequisitionReopensAfterRejection(t *testing.T) {
	req := &models.DealRequisition{ID: uuid.New(), DealID: uuid.New(), Status: models.RequisitionRejected}

	reqRepo := new(MockRequisitionRepository)
	reqRepo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	reqRepo.On("Update", mock.Anything, req).Return(req, nil)

	svc := newTestRequisitionService(new(MockDealRepository), new(MockPartyRepository), reqRepo)

	responded, err := svc.RespondToRequisition(context.Background(), req.ID, "brw-sol@firm", "Charge discharged, see DS1")
	require.NoError(t, err)
	require.Equal(t, models.RequisitionResponded, responded.Status)
	require.Equal(t, "brw-sol@firm", responded.RespondedBy)
	require.NotNil(t, responded.RespondedAt)
}

func TestRespondToRequisitionRejectsClosed(t *testing.T) {
	req := &models.DealRequisition{ID: uuid.New(), Status: models.RequisitionApproved}

	reqRepo := new(MockRequisitionRepository)
	reqRepo.On("GetByID", mock.Anything, req.ID).Return(req, nil)

	svc := newTestRequisitionService(new(MockDealRepository), new(MockPartyRepository), reqRepo)

	_, err := svc.RespondToRequisition(context.Background(), req.ID, "brw-sol@firm", "late answer")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApproveRequisitionClosesQuery(t *testing.T) {
	dealID := uuid.New()
	sol := lenderSolicitor(dealID)
	req := &models.DealRequisition{ID: uuid.New(), DealID: dealID, Reference: "REQ-1", Status: models.RequisitionResponded}
	deal := &models.Deal{ID: dealID, Status: models.DealActive}

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, dealID).Return(deal, nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, sol.ID).Return(sol, nil)

	reqRepo := new(MockRequisitionRepository)
	reqRepo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	reqRepo.On("Update", mock.Anything, req).Return(req, nil)

	svc := newTestRequisitionService(dealRepo, partyRepo, reqRepo)

	approved, err := svc.ApproveRequisition(context.Background(), req.ID, sol.ID)
	require.NoError(t, err)
	require.Equal(t, models.RequisitionApproved, approved.Status)
	require.Equal(t, sol.PartyRef, approved.ApprovedBy)
	require.NotNil(t, approved.ClosedAt)
}

func TestApproveRequisitionRejectsOtherParties(t *testing.T) {
	dealID := uuid.New()
	borrower := &models.DealParty{
		ID:                uuid.New(),
		DealID:            dealID,
		PartyType:         models.PartyBorrower,
		AppointmentStatus: models.AppointmentActive,
	}
	req := &models.DealRequisition{ID: uuid.New(), DealID: dealID, Status: models.RequisitionResponded}

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, borrower.ID).Return(borrower, nil)

	reqRepo := new(MockRequisitionRepository)
	reqRepo.On("GetByID", mock.Anything, req.ID).Return(req, nil)

	svc := newTestRequisitionService(new(MockDealRepository), partyRepo, reqRepo)

	_, err := svc.ApproveRequisition(context.Background(), req.ID, borrower.ID)
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRejectResponseReopensRequisition(t *testing.T) {
	dealID := uuid.New()
	sol := lenderSolicitor(dealID)
	req := &models.DealRequisition{
		ID:           uuid.New(),
		DealID:       dealID,
		Status:       models.RequisitionResponded,
		ResponseText: "Charge discharged",
	}

	partyRepo := new(MockPartyRepository)
	partyRepo.On("GetByID", mock.Anything, sol.ID).Return(sol, nil)

	reqRepo := new(MockRequisitionRepository)
	reqRepo.On("GetByID", mock.Anything, req.ID).Return(req, nil)
	reqRepo.On("Update", mock.Anything, req).Return(req, nil)

	svc := newTestRequisitionService(new(MockDealRepository), partyRepo, reqRepo)

	reopened, err := svc.RejectResponse(context.Background(), req.ID, sol.ID, "no DS1 attached")
	require.NoError(t, err)
	require.Equal(t, models.RequisitionOpen, reopened.Status)
	require.Contains(t, reopened.ResponseText, "[returned: no DS1 attached]")
}
