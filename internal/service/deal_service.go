package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/config"
	"github.com/BuildFund/New-Main-sub000/internal/cache"
	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/repository"
	"github.com/BuildFund/New-Main-sub000/internal/tracing"
	"github.com/BuildFund/New-Main-sub000/internal/workflow"
)

// CreateDealRequest carries the accepted-application facts a deal is
// created from. The terms become an immutable snapshot on the deal.
type CreateDealRequest struct {
	ApplicationRef string                 `json:"application_ref" binding:"required"`
	BorrowerRef    string                 `json:"borrower_ref" binding:"required"`
	LenderRef      string                 `json:"lender_ref" binding:"required"`
	ProductType    string                 `json:"product_type" binding:"required"`
	Jurisdiction   string                 `json:"jurisdiction"`
	SolicitorRef   string                 `json:"solicitor_ref"`
	Terms          models.CommercialTerms `json:"terms" binding:"required"`
	ActorRef       string                 `json:"actor_ref"`
}

// DealService owns deal creation and deal-level reads
type DealService struct {
	dealRepo  repository.DealRepository
	partyRepo repository.PartyRepository
	readiness *ReadinessService
	audit     *AuditRecorder
	notifier  *Notifier
	cache     *cache.RedisCache
	tracer    tracing.Tracer
	metrics   *metrics.Metrics
	workflow  config.WorkflowConfig
}

// NewDealService creates a new deal service
func NewDealService(
	dealRepo repository.DealRepository,
	partyRepo repository.PartyRepository,
	readiness *ReadinessService,
	audit *AuditRecorder,
	notifier *Notifier,
	redisCache *cache.RedisCache,
	tracer tracing.Tracer,
	m *metrics.Metrics,
	workflowCfg config.WorkflowConfig,
) *DealService {
	return &DealService{
		dealRepo:  dealRepo,
		partyRepo: partyRepo,
		readiness: readiness,
		audit:     audit,
		notifier:  notifier,
		cache:     redisCache,
		tracer:    tracer,
		metrics:   m,
		workflow:  workflowCfg,
	}
}

// CreateDeal creates a deal from an accepted application: the deal row,
// its parties, the full stage and task graph from the facility template
// and the default message threads, all in one transaction. Creation is
// idempotent on the application reference: a repeat call returns the
// existing deal and reports created=false.
func (s *DealService) CreateDeal(ctx context.Context, req *CreateDealRequest) (*models.Deal, bool, error) {
	txn := s.tracer.StartTransaction("create-deal")
	defer s.tracer.EndTransaction(txn)

	facility := workflow.ResolveFacilityType(req.ProductType)
	templates := workflow.Templates(facility)

	terms, err := json.Marshal(req.Terms)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, false, errors.Wrap(err, "failed to encode commercial terms")
	}

	jurisdiction := req.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = "england_wales"
	}

	dealID := uuid.New()
	deal := &models.Deal{
		ID:             dealID,
		DealRef:        generateDealRef(dealID),
		ApplicationRef: req.ApplicationRef,
		BorrowerRef:    req.BorrowerRef,
		LenderRef:      req.LenderRef,
		FacilityType:   facility,
		Jurisdiction:   jurisdiction,
		Status:         models.DealActive,
		Terms:          terms,
	}

	deal.Parties = s.initialParties(req)
	firstStageID, deps := buildStageGraph(deal, templates)
	deal.Threads = defaultThreads()

	span := s.tracer.StartSpan("create-deal-graph", txn)
	err = s.dealRepo.CreateWithGraph(ctx, deal, deps, firstStageID)
	span.End()

	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			existing, getErr := s.dealRepo.GetByApplicationRef(ctx, req.ApplicationRef)
			if getErr != nil {
				return nil, false, errors.Wrap(getErr, "failed to load existing deal after duplicate create")
			}
			log.Info().
				Str("deal_ref", existing.DealRef).
				Str("application_ref", req.ApplicationRef).
				Msg("Deal already exists for application, returning existing")
			return existing, false, nil
		}
		s.tracer.RecordError(txn, err)
		return nil, false, errors.Wrap(err, "failed to create deal")
	}

	log.Info().
		Str("deal_ref", deal.DealRef).
		Str("application_ref", deal.ApplicationRef).
		Str("facility_type", string(deal.FacilityType)).
		Msg("Deal created")

	// Post-creation side effects are each isolated: none of them can
	// undo the committed deal.
	s.metrics.IncrementCounter(metrics.CounterDealsCreated)

	s.audit.Record(ctx, deal.ID, models.AuditDealCreated, req.ActorRef, map[string]interface{}{
		"application_ref": deal.ApplicationRef,
		"facility_type":   deal.FacilityType,
		"loan_amount":     req.Terms.LoanAmount,
	})

	s.notifier.Notify(ctx, NotificationEvent{
		DealID:      deal.ID,
		DealRef:     deal.DealRef,
		Event:       "deal_created",
		Description: fmt.Sprintf("Deal %s created for application %s", deal.DealRef, deal.ApplicationRef),
	})

	s.autoInviteSolicitor(ctx, deal, req)

	s.readiness.Recompute(ctx, deal)

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cache.DealSummaryKey(deal.ID), deal, 10*time.Minute); err != nil {
			log.Debug().Err(err).Str("deal_ref", deal.DealRef).Msg("Failed to warm deal cache")
		}
	}

	return deal, true, nil
}

// GetDeal gets a deal by ID
func (s *DealService) GetDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	return s.dealRepo.GetByID(ctx, id)
}

// GetDealByRef gets a deal by its external reference
func (s *DealService) GetDealByRef(ctx context.Context, dealRef string) (*models.Deal, error) {
	return s.dealRepo.GetByDealRef(ctx, dealRef)
}

// ListDeals lists deals, optionally filtered by status
func (s *DealService) ListDeals(ctx context.Context, status models.DealStatus) ([]*models.Deal, error) {
	filter := models.Deal{}
	if status != "" {
		filter.Status = status
	}
	return s.dealRepo.FindBy(ctx, filter)
}

// StatusSummary counts deals per status for the dashboard headline.
func (s *DealService) StatusSummary(ctx context.Context) (map[models.DealStatus]int64, error) {
	summary := make(map[models.DealStatus]int64, 4)
	for _, status := range []models.DealStatus{
		models.DealActive,
		models.DealOnHold,
		models.DealCompleted,
		models.DealCancelled,
	} {
		count, err := s.dealRepo.CountByStatus(ctx, status)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to count %s deals", status)
		}
		summary[status] = count
	}
	return summary, nil
}

// UpdateStatus moves a deal between active, on_hold and cancelled.
// Completion is not set here: it only happens when the final stage
// completes.
func (s *DealService) UpdateStatus(ctx context.Context, dealID uuid.UUID, status models.DealStatus, actorRef, reason string) (*models.Deal, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}

	if deal.Status == models.DealCompleted || status == models.DealCompleted {
		return nil, ErrInvalidTransition
	}
	if deal.Status == models.DealCancelled {
		return nil, ErrInvalidTransition
	}

	previous := deal.Status
	deal.Status = status
	if _, err := s.dealRepo.Update(ctx, deal); err != nil {
		return nil, errors.Wrap(err, "failed to update deal status")
	}

	s.audit.Record(ctx, deal.ID, models.AuditDealStatusChanged, actorRef, map[string]interface{}{
		"from":   previous,
		"to":     status,
		"reason": reason,
	})

	return deal, nil
}

// initialParties builds the party set every deal starts with: borrower
// and lender are active immediately; the configured platform admin is
// added when present.
func (s *DealService) initialParties(req *CreateDealRequest) []models.DealParty {
	now := time.Now()
	parties := []models.DealParty{
		{
			ID:                uuid.New(),
			PartyRef:          req.BorrowerRef,
			PartyType:         models.PartyBorrower,
			AppointmentStatus: models.AppointmentActive,
			ConfirmedAt:       &now,
		},
		{
			ID:                uuid.New(),
			PartyRef:          req.LenderRef,
			PartyType:         models.PartyLender,
			AppointmentStatus: models.AppointmentActive,
			ConfirmedAt:       &now,
		},
	}

	if s.workflow.AdminPartyRef != "" {
		parties = append(parties, models.DealParty{
			ID:                uuid.New(),
			PartyRef:          s.workflow.AdminPartyRef,
			PartyType:         models.PartyAdmin,
			AppointmentStatus: models.AppointmentActive,
			ConfirmedAt:       &now,
		})
	}

	return parties
}

// autoInviteSolicitor opens a lender-side solicitor invitation as soon
// as the deal exists, so legal work can start without a manual invite.
// The application's nominated solicitor wins; the configured panel
// solicitor is the fallback. Best effort: a failure is logged, never
// surfaced, and the solicitor can still be invited by hand.
func (s *DealService) autoInviteSolicitor(ctx context.Context, deal *models.Deal, req *CreateDealRequest) {
	solicitorRef := req.SolicitorRef
	if solicitorRef == "" {
		solicitorRef = s.workflow.PanelSolicitorRef
	}
	if solicitorRef == "" {
		log.Debug().Str("deal_ref", deal.DealRef).Msg("No solicitor to auto-invite")
		return
	}

	now := time.Now()
	party, err := s.partyRepo.Create(ctx, &models.DealParty{
		DealID:            deal.ID,
		PartyRef:          solicitorRef,
		PartyType:         models.PartySolicitor,
		ActingForParty:    models.ActingForLender,
		AppointmentStatus: models.AppointmentInvited,
		InvitedAt:         &now,
	})
	if err != nil {
		log.Warn().Err(err).Str("deal_ref", deal.DealRef).Str("solicitor_ref", solicitorRef).Msg("Failed to auto-invite solicitor")
		return
	}

	s.audit.Record(ctx, deal.ID, models.AuditPartyInvited, req.ActorRef, map[string]interface{}{
		"party_ref":  party.PartyRef,
		"party_type": party.PartyType,
		"acting_for": party.ActingForParty,
		"auto":       true,
	})
}

// buildStageGraph materializes the facility template onto the deal:
// stage rows with snapshotted criteria, task rows and the dependency
// edges between them. Returns the first stage's ID and the edges, which
// are persisted after the task rows exist.
func buildStageGraph(deal *models.Deal, templates []workflow.StageTemplate) (uuid.UUID, []models.TaskDependency) {
	var firstStageID uuid.UUID
	var deps []models.TaskDependency
	now := time.Now()

	graph := workflow.NewGraph(nil)

	for i, tmpl := range templates {
		stageID := uuid.New()
		stage := models.DealStage{
			ID:            stageID,
			DealID:        deal.ID,
			StageNumber:   tmpl.Number,
			Name:          tmpl.Name,
			Status:        models.StageNotStarted,
			SLATargetDays: tmpl.SLATargetDays,
		}

		if data, err := workflow.EncodeCriteria(tmpl.EntryCriteria); err == nil {
			stage.EntryCriteria = data
		}
		if data, err := workflow.EncodeCriteria(tmpl.ExitCriteria); err == nil {
			stage.ExitCriteria = data
		}

		if i == 0 {
			firstStageID = stageID
			stage.Status = models.StageInProgress
			stage.EnteredAt = &now
		}

		taskIDs := make(map[string]uuid.UUID, len(tmpl.Tasks))
		for _, tt := range tmpl.Tasks {
			taskID := uuid.New()
			taskIDs[tt.Title] = taskID

			var due *time.Time
			if tmpl.SLATargetDays > 0 {
				d := now.AddDate(0, 0, tmpl.SLATargetDays)
				due = &d
			}

			deal.Tasks = append(deal.Tasks, models.DealTask{
				ID:             taskID,
				DealID:         deal.ID,
				StageID:        stageID,
				Title:          tt.Title,
				Description:    tt.Description,
				OwnerPartyType: tt.OwnerPartyType,
				Priority:       tt.Priority,
				Status:         models.TaskPending,
				Required:       tt.Required,
				DueDate:        due,
			})
		}

		for _, tt := range tmpl.Tasks {
			for _, depTitle := range tt.DependsOn {
				depID, ok := taskIDs[depTitle]
				if !ok {
					log.Warn().
						Str("task", tt.Title).
						Str("depends_on", depTitle).
						Msg("Template dependency references unknown task, skipping")
					continue
				}
				if err := graph.AddEdge(taskIDs[tt.Title], depID); err != nil {
					log.Warn().
						Str("task", tt.Title).
						Str("depends_on", depTitle).
						Msg("Template dependency would create a cycle, skipping")
					continue
				}
				deps = append(deps, models.TaskDependency{
					TaskID:      taskIDs[tt.Title],
					DependsOnID: depID,
				})
			}
		}

		deal.Stages = append(deal.Stages, stage)
	}

	return firstStageID, deps
}

// defaultThreads builds the role-scoped threads every deal opens with.
func defaultThreads() []models.DealMessageThread {
	threads := make([]models.DealMessageThread, 0, 2)
	for _, tt := range []struct {
		threadType models.ThreadType
		title      string
	}{
		{models.ThreadGeneral, "General"},
		{models.ThreadLegal, "Legal"},
	} {
		thread := models.DealMessageThread{
			ID:         uuid.New(),
			ThreadType: tt.threadType,
			Title:      tt.title,
		}
		for _, pt := range models.DefaultThreadVisibility[tt.threadType] {
			thread.Participants = append(thread.Participants, models.ThreadParticipant{
				ID:        uuid.New(),
				PartyType: pt,
			})
		}
		threads = append(threads, thread)
	}
	return threads
}

// generateDealRef derives the external deal reference. The uuid tail
// keeps it unique without another counter round trip.
func generateDealRef(id uuid.UUID) string {
	return fmt.Sprintf("BF-%d-%.8s", time.Now().Year(), id.String())
}
