package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/internal/cache"
	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/repository"
	"github.com/BuildFund/New-Main-sub000/internal/workflow"
)

// ReadinessService assembles deal snapshots and keeps the stored
// readiness score current. Stage, task, CP and drawdown operations all
// funnel their recomputes through here.
type ReadinessService struct {
	dealRepo     repository.DealRepository
	stageRepo    repository.StageRepository
	taskRepo     repository.TaskRepository
	partyRepo    repository.PartyRepository
	cpRepo       repository.ConditionRepository
	reqRepo      repository.RequisitionRepository
	providerRepo repository.ProviderRepository
	cache        *cache.RedisCache
}

// NewReadinessService creates a new readiness service
func NewReadinessService(
	dealRepo repository.DealRepository,
	stageRepo repository.StageRepository,
	taskRepo repository.TaskRepository,
	partyRepo repository.PartyRepository,
	cpRepo repository.ConditionRepository,
	reqRepo repository.RequisitionRepository,
	providerRepo repository.ProviderRepository,
	redisCache *cache.RedisCache,
) *ReadinessService {
	return &ReadinessService{
		dealRepo:     dealRepo,
		stageRepo:    stageRepo,
		taskRepo:     taskRepo,
		partyRepo:    partyRepo,
		cpRepo:       cpRepo,
		reqRepo:      reqRepo,
		providerRepo: providerRepo,
		cache:        redisCache,
	}
}

// BuildState assembles a consistent snapshot of the deal facts that
// stage criteria and the readiness scorer evaluate against.
func (s *ReadinessService) BuildState(ctx context.Context, deal *models.Deal) (*workflow.DealState, ReadinessInput, error) {
	var in ReadinessInput

	stages, err := s.stageRepo.FindByDeal(ctx, deal.ID)
	if err != nil {
		return nil, in, errors.Wrap(err, "failed to load stages")
	}

	tasks, err := s.taskRepo.FindByDeal(ctx, deal.ID)
	if err != nil {
		return nil, in, errors.Wrap(err, "failed to load tasks")
	}

	parties, err := s.partyRepo.FindByDeal(ctx, deal.ID)
	if err != nil {
		return nil, in, errors.Wrap(err, "failed to load parties")
	}

	cpTotal, cpSatisfied, err := s.cpRepo.CountMandatory(ctx, deal.ID)
	if err != nil {
		return nil, in, errors.Wrap(err, "failed to count conditions precedent")
	}

	deliverables, err := s.providerRepo.FindApprovedDeliverables(ctx, deal.ID)
	if err != nil {
		return nil, in, errors.Wrap(err, "failed to load deliverables")
	}

	requisitions, err := s.reqRepo.FindByDeal(ctx, deal.ID)
	if err != nil {
		return nil, in, errors.Wrap(err, "failed to load requisitions")
	}

	stageNumbers := make(map[uuid.UUID]int, len(stages))
	state := &workflow.DealState{
		CompletedStages:      make(map[int]bool),
		ApprovedDeliverables: make(map[string]bool),
		MandatoryCPTotal:     int(cpTotal),
		MandatoryCPSatisfied: int(cpSatisfied),
	}

	snapshots := make([]StageSnapshot, 0, len(stages))
	for _, stage := range stages {
		stageNumbers[stage.ID] = stage.StageNumber
		done := stage.Status == models.StageCompleted
		if done {
			state.CompletedStages[stage.StageNumber] = true
		}
		snapshots = append(snapshots, StageSnapshot{
			Number:    stage.StageNumber,
			Name:      stage.Name,
			Completed: done,
		})
	}

	for _, task := range tasks {
		state.Tasks = append(state.Tasks, workflow.TaskState{
			StageNumber: stageNumbers[task.StageID],
			Title:       task.Title,
			Required:    task.Required,
			Priority:    task.Priority,
			Status:      task.Status,
		})
	}

	for _, party := range parties {
		state.Parties = append(state.Parties, workflow.PartyState{
			Type:      party.PartyType,
			ActingFor: party.ActingForParty,
			Active:    party.AppointmentStatus == models.AppointmentActive,
		})
	}

	for _, d := range deliverables {
		state.ApprovedDeliverables[workflow.DeliverableKey(d.Role, d.DeliverableType)] = true
	}

	open := 0
	for _, r := range requisitions {
		if r.Status == models.RequisitionOpen || r.Status == models.RequisitionResponded {
			open++
		}
	}

	in = ReadinessInput{
		State:            state,
		Facility:         deal.FacilityType,
		Stages:           snapshots,
		OpenRequisitions: open,
	}

	return state, in, nil
}

// Recompute rescores a deal and stores the result. Scoring itself
// cannot fail; persistence or snapshot errors are logged and swallowed
// because a stale score must never fail the operation that triggered
// the recompute.
func (s *ReadinessService) Recompute(ctx context.Context, deal *models.Deal) {
	_, in, err := s.BuildState(ctx, deal)
	if err != nil {
		log.Error().Err(err).Str("deal_ref", deal.DealRef).Msg("Failed to build readiness snapshot")
		return
	}

	breakdown := ScoreReadiness(in)

	data, err := json.Marshal(breakdown)
	if err != nil {
		log.Error().Err(err).Str("deal_ref", deal.DealRef).Msg("Failed to marshal readiness breakdown")
		return
	}

	deal.ReadinessScore = breakdown.Score
	deal.ReadinessBreakdown = data
	if _, err := s.dealRepo.Update(ctx, deal); err != nil {
		log.Error().Err(err).Str("deal_ref", deal.DealRef).Msg("Failed to store readiness score")
		return
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cache.DealReadinessKey(deal.ID), breakdown, 10*time.Minute); err != nil {
			log.Debug().Err(err).Str("deal_ref", deal.DealRef).Msg("Failed to cache readiness")
		}
	}
}

// Get returns the current readiness breakdown, from cache when fresh.
func (s *ReadinessService) Get(ctx context.Context, dealID uuid.UUID) (ReadinessBreakdown, error) {
	var breakdown ReadinessBreakdown

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Get(ctx, cache.DealReadinessKey(dealID), &breakdown); err == nil {
			return breakdown, nil
		}
	}

	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return breakdown, err
	}

	_, in, err := s.BuildState(ctx, deal)
	if err != nil {
		return breakdown, err
	}

	breakdown = ScoreReadiness(in)

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cache.DealReadinessKey(dealID), breakdown, 10*time.Minute); err != nil {
			log.Debug().Err(err).Str("deal_id", dealID.String()).Msg("Failed to cache readiness")
		}
	}

	return breakdown, nil
}
