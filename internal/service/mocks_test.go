package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"

	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// Mock repositories for testing

type MockDealRepository struct {
	mock.Mock
}

func (m *MockDealRepository) CreateWithGraph(ctx context.Context, deal *models.Deal, deps []models.TaskDependency, firstStageID uuid.UUID) error {
	args := m.Called(ctx, deal, deps, firstStageID)
	return args.Error(0)
}

func (m *MockDealRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deal), args.Error(1)
}

func (m *MockDealRepository) GetByApplicationRef(ctx context.Context, applicationRef string) (*models.Deal, error) {
	args := m.Called(ctx, applicationRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deal), args.Error(1)
}

func (m *MockDealRepository) GetByDealRef(ctx context.Context, dealRef string) (*models.Deal, error) {
	args := m.Called(ctx, dealRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deal), args.Error(1)
}

func (m *MockDealRepository) FindBy(ctx context.Context, filter models.Deal) ([]*models.Deal, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Deal), args.Error(1)
}

func (m *MockDealRepository) Update(ctx context.Context, deal *models.Deal) (*models.Deal, error) {
	args := m.Called(ctx, deal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deal), args.Error(1)
}

func (m *MockDealRepository) CountByStatus(ctx context.Context, status models.DealStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

type MockPartyRepository struct {
	mock.Mock
}

func (m *MockPartyRepository) Create(ctx context.Context, party *models.DealParty) (*models.DealParty, error) {
	args := m.Called(ctx, party)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealParty), args.Error(1)
}

func (m *MockPartyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DealParty, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealParty), args.Error(1)
}

func (m *MockPartyRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealParty, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealParty), args.Error(1)
}

func (m *MockPartyRepository) FindBy(ctx context.Context, filter models.DealParty) ([]*models.DealParty, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealParty), args.Error(1)
}

func (m *MockPartyRepository) GetActiveLenderSolicitor(ctx context.Context, dealID uuid.UUID) (*models.DealParty, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealParty), args.Error(1)
}

func (m *MockPartyRepository) Update(ctx context.Context, party *models.DealParty) (*models.DealParty, error) {
	args := m.Called(ctx, party)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealParty), args.Error(1)
}

func (m *MockPartyRepository) ActivateLenderSolicitor(ctx context.Context, dealID, partyID uuid.UUID, reason string) (*models.DealParty, *models.DealParty, error) {
	args := m.Called(ctx, dealID, partyID, reason)
	var activated, replaced *models.DealParty
	if args.Get(0) != nil {
		activated = args.Get(0).(*models.DealParty)
	}
	if args.Get(1) != nil {
		replaced = args.Get(1).(*models.DealParty)
	}
	return activated, replaced, args.Error(2)
}

type MockStageRepository struct {
	mock.Mock
}

func (m *MockStageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DealStage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealStage), args.Error(1)
}

func (m *MockStageRepository) GetByDealAndNumber(ctx context.Context, dealID uuid.UUID, stageNumber int) (*models.DealStage, error) {
	args := m.Called(ctx, dealID, stageNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealStage), args.Error(1)
}

func (m *MockStageRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealStage, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealStage), args.Error(1)
}

func (m *MockStageRepository) Update(ctx context.Context, stage *models.DealStage) (*models.DealStage, error) {
	args := m.Called(ctx, stage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealStage), args.Error(1)
}

func (m *MockStageRepository) Advance(ctx context.Context, dealID, currentStageID, nextStageID uuid.UUID) error {
	args := m.Called(ctx, dealID, currentStageID, nextStageID)
	return args.Error(0)
}

func (m *MockStageRepository) BlockPendingEntry(ctx context.Context, dealID, currentStageID uuid.UUID, pendingStageNumber int) error {
	args := m.Called(ctx, dealID, currentStageID, pendingStageNumber)
	return args.Error(0)
}

func (m *MockStageRepository) EnterPendingStage(ctx context.Context, dealID, stageID uuid.UUID) error {
	args := m.Called(ctx, dealID, stageID)
	return args.Error(0)
}

func (m *MockStageRepository) CompleteFinalStage(ctx context.Context, dealID, stageID uuid.UUID) error {
	args := m.Called(ctx, dealID, stageID)
	return args.Error(0)
}

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *models.DealTask) (*models.DealTask, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealTask), args.Error(1)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DealTask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealTask), args.Error(1)
}

func (m *MockTaskRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealTask, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealTask), args.Error(1)
}

func (m *MockTaskRepository) FindByStage(ctx context.Context, stageID uuid.UUID) ([]*models.DealTask, error) {
	args := m.Called(ctx, stageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealTask), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, task *models.DealTask) (*models.DealTask, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealTask), args.Error(1)
}

func (m *MockTaskRepository) Complete(ctx context.Context, taskID uuid.UUID, completedBy string) (*models.DealTask, error) {
	args := m.Called(ctx, taskID, completedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealTask), args.Error(1)
}

func (m *MockTaskRepository) FindDependenciesByDeal(ctx context.Context, dealID uuid.UUID) ([]models.TaskDependency, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TaskDependency), args.Error(1)
}

func (m *MockTaskRepository) FindBlockingTasks(ctx context.Context, taskID uuid.UUID) ([]*models.DealTask, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealTask), args.Error(1)
}

func (m *MockTaskRepository) FindDependents(ctx context.Context, taskID uuid.UUID) ([]*models.DealTask, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealTask), args.Error(1)
}

func (m *MockTaskRepository) CreateDependency(ctx context.Context, dep *models.TaskDependency) (*models.TaskDependency, error) {
	args := m.Called(ctx, dep)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskDependency), args.Error(1)
}

func (m *MockTaskRepository) FindOverdue(ctx context.Context, asOf time.Time, limit int) ([]*models.DealTask, error) {
	args := m.Called(ctx, asOf, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealTask), args.Error(1)
}

func (m *MockTaskRepository) MarkOverdueNotified(ctx context.Context, taskID uuid.UUID) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

type MockConditionRepository struct {
	mock.Mock
}

func (m *MockConditionRepository) CreateWithNumber(ctx context.Context, cp *models.DealCP) (*models.DealCP, error) {
	args := m.Called(ctx, cp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealCP), args.Error(1)
}

func (m *MockConditionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DealCP, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealCP), args.Error(1)
}

func (m *MockConditionRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealCP, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealCP), args.Error(1)
}

func (m *MockConditionRepository) Update(ctx context.Context, cp *models.DealCP) (*models.DealCP, error) {
	args := m.Called(ctx, cp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealCP), args.Error(1)
}

func (m *MockConditionRepository) CountMandatory(ctx context.Context, dealID uuid.UUID) (int64, int64, error) {
	args := m.Called(ctx, dealID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

type MockRequisitionRepository struct {
	mock.Mock
}

func (m *MockRequisitionRepository) CreateWithReference(ctx context.Context, req *models.DealRequisition) (*models.DealRequisition, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealRequisition), args.Error(1)
}

func (m *MockRequisitionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DealRequisition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealRequisition), args.Error(1)
}

func (m *MockRequisitionRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealRequisition, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealRequisition), args.Error(1)
}

func (m *MockRequisitionRepository) Update(ctx context.Context, req *models.DealRequisition) (*models.DealRequisition, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealRequisition), args.Error(1)
}

func (m *MockRequisitionRepository) CountOpen(ctx context.Context, dealID uuid.UUID) (int64, error) {
	args := m.Called(ctx, dealID)
	return args.Get(0).(int64), args.Error(1)
}

type MockDrawdownRepository struct {
	mock.Mock
}

func (m *MockDrawdownRepository) CreateWithSequence(ctx context.Context, dd *models.Drawdown) (*models.Drawdown, error) {
	args := m.Called(ctx, dd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Drawdown), args.Error(1)
}

func (m *MockDrawdownRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Drawdown, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Drawdown), args.Error(1)
}

func (m *MockDrawdownRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.Drawdown, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Drawdown), args.Error(1)
}

func (m *MockDrawdownRepository) FindInFlight(ctx context.Context, dealID uuid.UUID) ([]*models.Drawdown, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Drawdown), args.Error(1)
}

func (m *MockDrawdownRepository) Update(ctx context.Context, dd *models.Drawdown) (*models.Drawdown, error) {
	args := m.Called(ctx, dd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Drawdown), args.Error(1)
}

func (m *MockDrawdownRepository) AddDocument(ctx context.Context, doc *models.DrawdownDocument) (*models.DrawdownDocument, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DrawdownDocument), args.Error(1)
}

func (m *MockDrawdownRepository) FindDocuments(ctx context.Context, drawdownID uuid.UUID) ([]*models.DrawdownDocument, error) {
	args := m.Called(ctx, drawdownID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DrawdownDocument), args.Error(1)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, event *models.AuditEvent) (*models.AuditEvent, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuditEvent), args.Error(1)
}

func (m *MockAuditRepository) FindByDeal(ctx context.Context, dealID uuid.UUID, since *time.Time) ([]*models.AuditEvent, error) {
	args := m.Called(ctx, dealID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditEvent), args.Error(1)
}

func (m *MockAuditRepository) FindUnprocessed(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditEvent), args.Error(1)
}

func (m *MockAuditRepository) MarkProcessed(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

type MockThreadRepository struct {
	mock.Mock
}

func (m *MockThreadRepository) CreateThread(ctx context.Context, thread *models.DealMessageThread) (*models.DealMessageThread, error) {
	args := m.Called(ctx, thread)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealMessageThread), args.Error(1)
}

func (m *MockThreadRepository) GetThread(ctx context.Context, id uuid.UUID) (*models.DealMessageThread, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealMessageThread), args.Error(1)
}

func (m *MockThreadRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealMessageThread, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealMessageThread), args.Error(1)
}

func (m *MockThreadRepository) AddParticipant(ctx context.Context, p *models.ThreadParticipant) (*models.ThreadParticipant, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ThreadParticipant), args.Error(1)
}

func (m *MockThreadRepository) CreateMessage(ctx context.Context, msg *models.DealMessage) (*models.DealMessage, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealMessage), args.Error(1)
}

func (m *MockThreadRepository) FindMessages(ctx context.Context, threadID uuid.UUID) ([]*models.DealMessage, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealMessage), args.Error(1)
}

func (m *MockThreadRepository) CreateDocumentLink(ctx context.Context, link *models.DealDocumentLink) (*models.DealDocumentLink, error) {
	args := m.Called(ctx, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealDocumentLink), args.Error(1)
}

func (m *MockThreadRepository) FindDocumentsByOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) ([]*models.DealDocumentLink, error) {
	args := m.Called(ctx, ownerType, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealDocumentLink), args.Error(1)
}

type MockProviderRepository struct {
	mock.Mock
}

func (m *MockProviderRepository) CreateSelection(ctx context.Context, sel *models.DealProviderSelection) (*models.DealProviderSelection, error) {
	args := m.Called(ctx, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealProviderSelection), args.Error(1)
}

func (m *MockProviderRepository) GetSelection(ctx context.Context, id uuid.UUID) (*models.DealProviderSelection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealProviderSelection), args.Error(1)
}

func (m *MockProviderRepository) FindSelectionsByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealProviderSelection, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DealProviderSelection), args.Error(1)
}

func (m *MockProviderRepository) GetActiveSelection(ctx context.Context, dealID uuid.UUID, role models.ProviderRole) (*models.DealProviderSelection, error) {
	args := m.Called(ctx, dealID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealProviderSelection), args.Error(1)
}

func (m *MockProviderRepository) UpdateSelection(ctx context.Context, sel *models.DealProviderSelection) (*models.DealProviderSelection, error) {
	args := m.Called(ctx, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DealProviderSelection), args.Error(1)
}

func (m *MockProviderRepository) CreateDeliverable(ctx context.Context, d *models.ProviderDeliverable) (*models.ProviderDeliverable, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderDeliverable), args.Error(1)
}

func (m *MockProviderRepository) GetDeliverable(ctx context.Context, id uuid.UUID) (*models.ProviderDeliverable, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderDeliverable), args.Error(1)
}

func (m *MockProviderRepository) FindDeliverablesByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.ProviderDeliverable, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ProviderDeliverable), args.Error(1)
}

func (m *MockProviderRepository) UpdateDeliverable(ctx context.Context, d *models.ProviderDeliverable) (*models.ProviderDeliverable, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderDeliverable), args.Error(1)
}

func (m *MockProviderRepository) FindApprovedDeliverables(ctx context.Context, dealID uuid.UUID) ([]*models.ProviderDeliverable, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ProviderDeliverable), args.Error(1)
}

// newStubReadiness builds a readiness service whose snapshot loading
// fails, so Recompute becomes a logged no-op in tests that do not
// exercise scoring.
func newStubReadiness() *ReadinessService {
	stageRepo := new(MockStageRepository)
	stageRepo.On("FindByDeal", mock.Anything, mock.Anything).Return(nil, errors.New("not under test"))
	return &ReadinessService{stageRepo: stageRepo}
}

// newStubAudit builds an audit recorder whose appends land in a mock
// that accepts everything.
func newStubAudit() (*AuditRecorder, *MockAuditRepository) {
	auditRepo := new(MockAuditRepository)
	auditRepo.On("Append", mock.Anything, mock.Anything).Return(&models.AuditEvent{}, nil)
	return &AuditRecorder{auditRepo: auditRepo, metrics: metrics.NewMetrics()}, auditRepo
}
