package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/repository"
	"github.com/BuildFund/New-Main-sub000/internal/workflow"
)

// AdvanceResult reports what an advance attempt did. Exactly one of
// EnteredStage and Blocked describes the outcome when the deal moved;
// Completed is set when the final stage finished and the deal closed.
type AdvanceResult struct {
	Deal           *models.Deal      `json:"deal"`
	CompletedStage *models.DealStage `json:"completed_stage,omitempty"`
	EnteredStage   *models.DealStage `json:"entered_stage,omitempty"`
	Completed      bool              `json:"deal_completed"`
	Blocked        bool              `json:"blocked_pending_entry"`
	PendingStage   int               `json:"pending_stage,omitempty"`
	UnmetEntry     []string          `json:"unmet_entry,omitempty"`
}

// StageService owns stage progression and task completion
type StageService struct {
	dealRepo  repository.DealRepository
	stageRepo repository.StageRepository
	taskRepo  repository.TaskRepository
	readiness *ReadinessService
	audit     *AuditRecorder
	notifier  *Notifier
	metrics   *metrics.Metrics
}

// NewStageService creates a new stage service
func NewStageService(
	dealRepo repository.DealRepository,
	stageRepo repository.StageRepository,
	taskRepo repository.TaskRepository,
	readiness *ReadinessService,
	audit *AuditRecorder,
	notifier *Notifier,
	m *metrics.Metrics,
) *StageService {
	return &StageService{
		dealRepo:  dealRepo,
		stageRepo: stageRepo,
		taskRepo:  taskRepo,
		readiness: readiness,
		audit:     audit,
		notifier:  notifier,
		metrics:   m,
	}
}

// ListStages returns a deal's stages in order
func (s *StageService) ListStages(ctx context.Context, dealID uuid.UUID) ([]*models.DealStage, error) {
	return s.stageRepo.FindByDeal(ctx, dealID)
}

// ListTasks returns a deal's tasks
func (s *StageService) ListTasks(ctx context.Context, dealID uuid.UUID) ([]*models.DealTask, error) {
	return s.taskRepo.FindByDeal(ctx, dealID)
}

// CheckExit evaluates the current stage's exit criteria without moving
// anything. Unmet criteria come back as descriptions.
func (s *StageService) CheckExit(ctx context.Context, dealID uuid.UUID) (bool, []string, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return false, nil, err
	}
	if deal.CurrentStageID == nil {
		return false, nil, errors.New("deal has no current stage")
	}

	current, err := s.stageRepo.GetByID(ctx, *deal.CurrentStageID)
	if err != nil {
		return false, nil, err
	}

	state, _, err := s.readiness.BuildState(ctx, deal)
	if err != nil {
		return false, nil, err
	}

	criteria, err := workflow.DecodeCriteria(current.ExitCriteria)
	if err != nil {
		return false, nil, err
	}

	met, unmet := workflow.Evaluate(criteria, state, current.StageNumber)
	return met, unmet, nil
}

// Advance moves the deal forward one stage. The current stage's exit
// criteria must hold. When the next stage's entry criteria also hold
// the deal enters it; otherwise the current stage still completes and
// the deal parks as blocked pending entry, to be resumed by a later
// Advance call once the entry conditions are in place. Completing the
// final stage completes the deal.
func (s *StageService) Advance(ctx context.Context, dealID uuid.UUID, actorRef string) (*AdvanceResult, error) {
	deal, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealActive {
		return nil, ErrDealNotActive
	}

	state, _, err := s.readiness.BuildState(ctx, deal)
	if err != nil {
		return nil, err
	}

	// A deal parked in front of a stage resumes by entering it, not by
	// re-exiting the stage it already completed.
	if deal.PendingStageNumber != nil {
		return s.enterPending(ctx, deal, state, actorRef)
	}

	if deal.CurrentStageID == nil {
		return nil, errors.New("deal has no current stage")
	}
	current, err := s.stageRepo.GetByID(ctx, *deal.CurrentStageID)
	if err != nil {
		return nil, err
	}

	exitCriteria, err := workflow.DecodeCriteria(current.ExitCriteria)
	if err != nil {
		return nil, err
	}
	if met, unmet := workflow.Evaluate(exitCriteria, state, current.StageNumber); !met {
		return nil, &CriteriaError{Phase: "exit", Unmet: unmet}
	}

	stages, err := s.stageRepo.FindByDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	next := nextStage(stages, current.StageNumber)

	// Final stage: the deal completes with it.
	if next == nil {
		if err := s.stageRepo.CompleteFinalStage(ctx, dealID, current.ID); err != nil {
			return nil, errors.Wrap(err, "failed to complete final stage")
		}
		// The completed stage must count before scoring.
		state.CompletedStages[current.StageNumber] = true

		log.Info().Str("deal_ref", deal.DealRef).Int("stage", current.StageNumber).Msg("Final stage completed, deal closed")
		s.metrics.IncrementCounter(metrics.CounterStagesAdvanced)
		s.audit.Record(ctx, dealID, models.AuditStageCompleted, actorRef, map[string]interface{}{
			"stage_number": current.StageNumber,
			"stage_name":   current.Name,
			"deal_closed":  true,
		})
		s.notifier.Notify(ctx, NotificationEvent{
			DealID:      dealID,
			DealRef:     deal.DealRef,
			Event:       "deal_completed",
			Description: fmt.Sprintf("Deal %s completed", deal.DealRef),
		})

		updated, err := s.dealRepo.GetByID(ctx, dealID)
		if err != nil {
			return nil, err
		}
		s.readiness.Recompute(ctx, updated)
		return &AdvanceResult{Deal: updated, CompletedStage: current, Completed: true}, nil
	}

	entryCriteria, err := workflow.DecodeCriteria(next.EntryCriteria)
	if err != nil {
		return nil, err
	}

	// Exit counts as done for the next stage's stage_completed checks.
	state.CompletedStages[current.StageNumber] = true

	if met, unmet := workflow.Evaluate(entryCriteria, state, next.StageNumber); !met {
		if err := s.stageRepo.BlockPendingEntry(ctx, dealID, current.ID, next.StageNumber); err != nil {
			return nil, errors.Wrap(err, "failed to block deal pending entry")
		}

		log.Info().
			Str("deal_ref", deal.DealRef).
			Int("completed_stage", current.StageNumber).
			Int("pending_stage", next.StageNumber).
			Strs("unmet", unmet).
			Msg("Stage completed, next stage entry blocked")

		s.metrics.IncrementCounter(metrics.CounterStagesBlocked)
		s.audit.Record(ctx, dealID, models.AuditStageCompleted, actorRef, map[string]interface{}{
			"stage_number": current.StageNumber,
			"stage_name":   current.Name,
		})
		s.audit.Record(ctx, dealID, models.AuditStageBlocked, actorRef, map[string]interface{}{
			"pending_stage": next.StageNumber,
			"unmet":         unmet,
		})

		updated, err := s.dealRepo.GetByID(ctx, dealID)
		if err != nil {
			return nil, err
		}
		s.readiness.Recompute(ctx, updated)
		return &AdvanceResult{
			Deal:           updated,
			CompletedStage: current,
			Blocked:        true,
			PendingStage:   next.StageNumber,
			UnmetEntry:     unmet,
		}, nil
	}

	if err := s.stageRepo.Advance(ctx, dealID, current.ID, next.ID); err != nil {
		return nil, errors.Wrap(err, "failed to advance stage")
	}

	log.Info().
		Str("deal_ref", deal.DealRef).
		Int("from_stage", current.StageNumber).
		Int("to_stage", next.StageNumber).
		Msg("Deal advanced")

	s.metrics.IncrementCounter(metrics.CounterStagesAdvanced)
	s.audit.Record(ctx, dealID, models.AuditStageCompleted, actorRef, map[string]interface{}{
		"stage_number": current.StageNumber,
		"stage_name":   current.Name,
	})
	s.audit.Record(ctx, dealID, models.AuditStageEntered, actorRef, map[string]interface{}{
		"stage_number": next.StageNumber,
		"stage_name":   next.Name,
	})
	s.notifier.Notify(ctx, NotificationEvent{
		DealID:      dealID,
		DealRef:     deal.DealRef,
		Event:       "stage_entered",
		Description: fmt.Sprintf("Deal %s entered stage %d: %s", deal.DealRef, next.StageNumber, next.Name),
	})

	updated, err := s.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	s.readiness.Recompute(ctx, updated)
	return &AdvanceResult{Deal: updated, CompletedStage: current, EnteredStage: next}, nil
}

// enterPending retries entry into the stage the deal is parked in
// front of.
func (s *StageService) enterPending(ctx context.Context, deal *models.Deal, state *workflow.DealState, actorRef string) (*AdvanceResult, error) {
	pending, err := s.stageRepo.GetByDealAndNumber(ctx, deal.ID, *deal.PendingStageNumber)
	if err != nil {
		return nil, err
	}

	entryCriteria, err := workflow.DecodeCriteria(pending.EntryCriteria)
	if err != nil {
		return nil, err
	}
	if met, unmet := workflow.Evaluate(entryCriteria, state, pending.StageNumber); !met {
		return nil, &CriteriaError{Phase: "entry", Unmet: unmet}
	}

	if err := s.stageRepo.EnterPendingStage(ctx, deal.ID, pending.ID); err != nil {
		return nil, errors.Wrap(err, "failed to enter pending stage")
	}

	log.Info().
		Str("deal_ref", deal.DealRef).
		Int("stage", pending.StageNumber).
		Msg("Deal entered previously blocked stage")

	s.metrics.IncrementCounter(metrics.CounterStagesAdvanced)
	s.audit.Record(ctx, deal.ID, models.AuditStageEntered, actorRef, map[string]interface{}{
		"stage_number": pending.StageNumber,
		"stage_name":   pending.Name,
		"resumed":      true,
	})

	updated, err := s.dealRepo.GetByID(ctx, deal.ID)
	if err != nil {
		return nil, err
	}
	s.readiness.Recompute(ctx, updated)
	return &AdvanceResult{Deal: updated, EnteredStage: pending}, nil
}

// StartTask moves a pending task to in progress, optionally assigning
// it. A blocked task cannot start until its dependencies complete.
func (s *StageService) StartTask(ctx context.Context, taskID uuid.UUID, assigneeID *uuid.UUID, actorRef string) (*models.DealTask, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	deal, err := s.dealRepo.GetByID(ctx, task.DealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealActive {
		return nil, ErrDealNotActive
	}

	if task.Status == models.TaskBlocked {
		blocking, err := s.taskRepo.FindBlockingTasks(ctx, taskID)
		if err != nil {
			return nil, err
		}
		titles := make([]string, len(blocking))
		for i, b := range blocking {
			titles[i] = b.Title
		}
		return nil, &DependencyError{Blocking: titles}
	}
	if task.Status != models.TaskPending {
		return nil, ErrInvalidTransition
	}

	task.Status = models.TaskInProgress
	if assigneeID != nil {
		task.AssigneeID = assigneeID
	}

	task, err = s.taskRepo.Update(ctx, task)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start task")
	}

	log.Info().
		Str("deal_ref", deal.DealRef).
		Str("task", task.Title).
		Msg("Task started")

	s.audit.Record(ctx, task.DealID, models.AuditTaskStarted, actorRef, map[string]interface{}{
		"task_id": task.ID.String(),
		"title":   task.Title,
	})

	return task, nil
}

// CompleteTask completes a task. Tasks with uncompleted dependencies
// cannot complete; the blocking task titles come back in the error so
// the owner knows what stands in the way. Completion unblocks dependent
// tasks whose last dependency this was.
func (s *StageService) CompleteTask(ctx context.Context, taskID uuid.UUID, actorRef string) (*models.DealTask, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	deal, err := s.dealRepo.GetByID(ctx, task.DealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealActive {
		return nil, ErrDealNotActive
	}

	switch task.Status {
	case models.TaskCompleted, models.TaskCancelled:
		return nil, ErrInvalidTransition
	}

	blocking, err := s.taskRepo.FindBlockingTasks(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if len(blocking) > 0 {
		titles := make([]string, len(blocking))
		for i, b := range blocking {
			titles[i] = b.Title
		}
		return nil, &DependencyError{Blocking: titles}
	}

	task, err = s.taskRepo.Complete(ctx, taskID, actorRef)
	if err != nil {
		if errors.Is(err, repository.ErrDependenciesUnmet) {
			// A dependency reopened between the check and the write.
			blocking, berr := s.taskRepo.FindBlockingTasks(ctx, taskID)
			if berr == nil {
				titles := make([]string, len(blocking))
				for i, b := range blocking {
					titles[i] = b.Title
				}
				return nil, &DependencyError{Blocking: titles}
			}
			return nil, &DependencyError{}
		}
		return nil, errors.Wrap(err, "failed to complete task")
	}

	log.Info().
		Str("deal_ref", deal.DealRef).
		Str("task", task.Title).
		Str("completed_by", actorRef).
		Msg("Task completed")

	s.metrics.IncrementCounter(metrics.CounterTasksCompleted)
	s.audit.Record(ctx, task.DealID, models.AuditTaskCompleted, actorRef, map[string]interface{}{
		"task_id": task.ID.String(),
		"title":   task.Title,
	})

	s.unblockDependents(ctx, taskID)
	s.readiness.Recompute(ctx, deal)

	return task, nil
}

// AddTaskDependency adds an edge making task depend on dependsOn. Both
// tasks must belong to the same deal and the edge must not create a
// cycle. A pending task gains blocked status when its new dependency is
// still open.
func (s *StageService) AddTaskDependency(ctx context.Context, taskID, dependsOnID uuid.UUID, actorRef string) (*models.TaskDependency, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	dependsOn, err := s.taskRepo.GetByID(ctx, dependsOnID)
	if err != nil {
		return nil, err
	}
	if task.DealID != dependsOn.DealID {
		return nil, errors.New("tasks belong to different deals")
	}

	edges, err := s.taskRepo.FindDependenciesByDeal(ctx, task.DealID)
	if err != nil {
		return nil, err
	}
	graph := workflow.NewGraph(edges)
	if err := graph.AddEdge(taskID, dependsOnID); err != nil {
		return nil, err
	}

	dep, err := s.taskRepo.CreateDependency(ctx, &models.TaskDependency{
		TaskID:      taskID,
		DependsOnID: dependsOnID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create dependency")
	}

	if task.Status == models.TaskPending &&
		dependsOn.Status != models.TaskCompleted && dependsOn.Status != models.TaskCancelled {
		task.Status = models.TaskBlocked
		if _, err := s.taskRepo.Update(ctx, task); err != nil {
			log.Warn().Err(err).Str("task", task.Title).Msg("Failed to mark task blocked")
		}
	}

	return dep, nil
}

// SweepOverdueTasks flags open tasks past their due date: one audit
// event and one notification per task, exactly once.
func (s *StageService) SweepOverdueTasks(ctx context.Context, batchSize int) error {
	tasks, err := s.taskRepo.FindOverdue(ctx, time.Now(), batchSize)
	if err != nil {
		return errors.Wrap(err, "failed to find overdue tasks")
	}

	for _, task := range tasks {
		deal, err := s.dealRepo.GetByID(ctx, task.DealID)
		if err != nil {
			log.Error().Err(err).Str("task_id", task.ID.String()).Msg("Failed to load deal for overdue task")
			continue
		}

		s.audit.Record(ctx, task.DealID, models.AuditTaskOverdue, "", map[string]interface{}{
			"task_id":  task.ID.String(),
			"title":    task.Title,
			"due_date": task.DueDate,
		})
		s.notifier.Notify(ctx, NotificationEvent{
			DealID:      task.DealID,
			DealRef:     deal.DealRef,
			Event:       "task_overdue",
			Audience:    task.OwnerPartyType,
			Description: fmt.Sprintf("Task %q on deal %s is overdue", task.Title, deal.DealRef),
		})

		if err := s.taskRepo.MarkOverdueNotified(ctx, task.ID); err != nil {
			log.Error().Err(err).Str("task_id", task.ID.String()).Msg("Failed to mark overdue task notified")
		}
	}

	return nil
}

// unblockDependents moves blocked dependents back to pending when their
// last open dependency completed.
func (s *StageService) unblockDependents(ctx context.Context, taskID uuid.UUID) {
	dependents, err := s.taskRepo.FindDependents(ctx, taskID)
	if err != nil {
		log.Warn().Err(err).Str("task_id", taskID.String()).Msg("Failed to load dependents for unblock")
		return
	}

	for _, dep := range dependents {
		if dep.Status != models.TaskBlocked {
			continue
		}
		blocking, err := s.taskRepo.FindBlockingTasks(ctx, dep.ID)
		if err != nil {
			log.Warn().Err(err).Str("task_id", dep.ID.String()).Msg("Failed to check dependent's blockers")
			continue
		}
		if len(blocking) > 0 {
			continue
		}
		dep.Status = models.TaskPending
		if _, err := s.taskRepo.Update(ctx, dep); err != nil {
			log.Warn().Err(err).Str("task_id", dep.ID.String()).Msg("Failed to unblock task")
		}
	}
}

// nextStage picks the stage with the smallest number above current.
// Stage numbering may carry gaps, so ordering decides, never
// arithmetic.
func nextStage(stages []*models.DealStage, current int) *models.DealStage {
	var next *models.DealStage
	for _, stage := range stages {
		if stage.StageNumber <= current {
			continue
		}
		if next == nil || stage.StageNumber < next.StageNumber {
			next = stage
		}
	}
	return next
}
