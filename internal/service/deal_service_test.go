package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BuildFund/New-Main-sub000/config"
	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/repository"
	"github.com/BuildFund/New-Main-sub000/internal/tracing"
)

func newTestDealService(dealRepo *MockDealRepository, adminRef string) *DealService {
	audit, _ := newStubAudit()
	tracer, _ := tracing.NewTracer(config.TracingConfig{})
	return &DealService{
		dealRepo:  dealRepo,
		readiness: newStubReadiness(),
		audit:     audit,
		notifier:  NewNotifier(nil, metrics.NewMetrics()),
		tracer:    tracer,
		metrics:   metrics.NewMetrics(),
		workflow:  config.WorkflowConfig{AdminPartyRef: adminRef},
	}
}

func createRequest() *CreateDealRequest {
	return &CreateDealRequest{
		ApplicationRef: "APP-1001",
		BorrowerRef:    "BRW-1",
		LenderRef:      "LND-1",
		ProductType:    "bridging_loan",
		Terms:          models.CommercialTerms{LoanAmount: 500000},
		ActorRef:       "admin@platform",
	}
}

func TestCreateDealBuildsFullGraph(t *testing.T) {
	dealRepo := new(MockDealRepository)
	dealRepo.On("CreateWithGraph", mock.Anything, mock.AnythingOfType("*models.Deal"), mock.Anything, mock.Anything).Return(nil)

	svc := newTestDealService(dealRepo, "ADMIN-1")

	deal, created, err := svc.CreateDeal(context.Background(), createRequest())
	require.NoError(t, err)
	require.True(t, created)

	require.Equal(t, models.FacilityBridge, deal.FacilityType)
	require.Equal(t, models.DealActive, deal.Status)
	require.NotEmpty(t, deal.DealRef)

	// Borrower and lender are active immediately; the configured admin
	// joins them.
	require.Len(t, deal.Parties, 3)
	for _, p := range deal.Parties {
		require.Equal(t, models.AppointmentActive, p.AppointmentStatus)
	}

	// The bridge template materializes 8 stages with the first entered.
	require.Len(t, deal.Stages, 8)
	require.Equal(t, models.StageInProgress, deal.Stages[0].Status)
	require.NotNil(t, deal.Stages[0].EnteredAt)
	for _, stage := range deal.Stages[1:] {
		require.Equal(t, models.StageNotStarted, stage.Status)
	}

	require.NotEmpty(t, deal.Tasks)
	require.Len(t, deal.Threads, 2)

	dealRepo.AssertExpectations(t)
}

func TestCreateDealWithoutAdminConfigured(t *testing.T) {
	dealRepo := new(MockDealRepository)
	dealRepo.On("CreateWithGraph", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestDealService(dealRepo, "")

	deal, created, err := svc.CreateDeal(context.Background(), createRequest())
	require.NoError(t, err)
	require.True(t, created)
	require.Len(t, deal.Parties, 2)
}

func TestCreateDealAutoInvitesSolicitor(t *testing.T) {
	dealRepo := new(MockDealRepository)
	dealRepo.On("CreateWithGraph", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	invited := new(models.DealParty)
	partyRepo := new(MockPartyRepository)
	partyRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.DealParty")).
		Run(func(args mock.Arguments) { *invited = *(args.Get(1).(*models.DealParty)) }).
		Return(invited, nil)

	svc := newTestDealService(dealRepo, "")
	svc.partyRepo = partyRepo

	req := createRequest()
	req.SolicitorRef = "SOL-7"

	_, created, err := svc.CreateDeal(context.Background(), req)
	require.NoError(t, err)
	require.True(t, created)

	require.Equal(t, "SOL-7", invited.PartyRef)
	require.Equal(t, models.PartySolicitor, invited.PartyType)
	require.Equal(t, models.ActingForLender, invited.ActingForParty)
	require.Equal(t, models.AppointmentInvited, invited.AppointmentStatus)
	require.NotNil(t, invited.InvitedAt)
}

func TestCreateDealFallsBackToPanelSolicitor(t *testing.T) {
	dealRepo := new(MockDealRepository)
	dealRepo.On("CreateWithGraph", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	invited := new(models.DealParty)
	partyRepo := new(MockPartyRepository)
	partyRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.DealParty")).
		Run(func(args mock.Arguments) { *invited = *(args.Get(1).(*models.DealParty)) }).
		Return(invited, nil)

	svc := newTestDealService(dealRepo, "")
	svc.partyRepo = partyRepo
	svc.workflow.PanelSolicitorRef = "PANEL-SOL"

	_, _, err := svc.CreateDeal(context.Background(), createRequest())
	require.NoError(t, err)
	require.Equal(t, "PANEL-SOL", invited.PartyRef)
}

func TestCreateDealSurvivesSolicitorInviteFailure(t *testing.T) {
	dealRepo := new(MockDealRepository)
	dealRepo.On("CreateWithGraph", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	partyRepo := new(MockPartyRepository)
	partyRepo.On("Create", mock.Anything, mock.Anything).Return(nil, repository.ErrDuplicateKey)

	svc := newTestDealService(dealRepo, "")
	svc.partyRepo = partyRepo

	req := createRequest()
	req.SolicitorRef = "SOL-7"

	deal, created, err := svc.CreateDeal(context.Background(), req)
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, deal)
}

func TestCreateDealIdempotentOnApplicationRef(t *testing.T) {
	existing := &models.Deal{DealRef: "BF-2026-abcd1234", ApplicationRef: "APP-1001"}

	dealRepo := new(MockDealRepository)
	dealRepo.On("CreateWithGraph", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(repository.ErrDuplicateKey)
	dealRepo.On("GetByApplicationRef", mock.Anything, "APP-1001").Return(existing, nil)

	svc := newTestDealService(dealRepo, "ADMIN-1")

	deal, created, err := svc.CreateDeal(context.Background(), createRequest())
	require.NoError(t, err)
	require.False(t, created)
	require.Same(t, existing, deal)

	dealRepo.AssertExpectations(t)
}

func TestCreateDealResolvesDevelopmentFacility(t *testing.T) {
	dealRepo := new(MockDealRepository)
	dealRepo.On("CreateWithGraph", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestDealService(dealRepo, "")

	req := createRequest()
	req.ProductType = "development_finance"

	deal, _, err := svc.CreateDeal(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, models.FacilityDevelopment, deal.FacilityType)
	require.Len(t, deal.Stages, 9)
}

func TestUpdateStatusBlocksTerminalDeals(t *testing.T) {
	completed := &models.Deal{Status: models.DealCompleted}
	cancelled := &models.Deal{Status: models.DealCancelled}

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, completed.ID).Return(completed, nil).Once()

	svc := newTestDealService(dealRepo, "")

	_, err := svc.UpdateStatus(context.Background(), completed.ID, models.DealOnHold, "admin", "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	dealRepo.ExpectedCalls = nil
	dealRepo.On("GetByID", mock.Anything, cancelled.ID).Return(cancelled, nil).Once()

	_, err = svc.UpdateStatus(context.Background(), cancelled.ID, models.DealActive, "admin", "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Completion only happens through the final stage, never directly.
	active := &models.Deal{Status: models.DealActive}
	dealRepo.ExpectedCalls = nil
	dealRepo.On("GetByID", mock.Anything, active.ID).Return(active, nil).Once()

	_, err = svc.UpdateStatus(context.Background(), active.ID, models.DealCompleted, "admin", "")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatusHoldsAndResumes(t *testing.T) {
	deal := &models.Deal{Status: models.DealActive}

	dealRepo := new(MockDealRepository)
	dealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)
	dealRepo.On("Update", mock.Anything, deal).Return(deal, nil)

	svc := newTestDealService(dealRepo, "")

	updated, err := svc.UpdateStatus(context.Background(), deal.ID, models.DealOnHold, "admin", "borrower request")
	require.NoError(t, err)
	require.Equal(t, models.DealOnHold, updated.Status)
}

func TestStatusSummaryCountsEveryStatus(t *testing.T) {
	dealRepo := new(MockDealRepository)
	dealRepo.On("CountByStatus", mock.Anything, models.DealActive).Return(int64(7), nil)
	dealRepo.On("CountByStatus", mock.Anything, models.DealOnHold).Return(int64(2), nil)
	dealRepo.On("CountByStatus", mock.Anything, models.DealCompleted).Return(int64(11), nil)
	dealRepo.On("CountByStatus", mock.Anything, models.DealCancelled).Return(int64(1), nil)

	svc := newTestDealService(dealRepo, "admin")

	summary, err := svc.StatusSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(7), summary[models.DealActive])
	require.Equal(t, int64(2), summary[models.DealOnHold])
	require.Equal(t, int64(11), summary[models.DealCompleted])
	require.Equal(t, int64(1), summary[models.DealCancelled])

	dealRepo.AssertExpectations(t)
}

func TestStatusSummaryPropagatesCountFailure(t *testing.T) {
	dealRepo := new(MockDealRepository)
	dealRepo.On("CountByStatus", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	svc := newTestDealService(dealRepo, "admin")

	_, err := svc.StatusSummary(context.Background())
	require.Error(t, err)
}
