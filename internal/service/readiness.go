package service

import (
	"fmt"
	"strings"

	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/workflow"
)

// ReadinessCategory is one weighted component of the readiness score.
type ReadinessCategory struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
	Earned int    `json:"earned"`
	Note   string `json:"note,omitempty"`
}

// ReadinessBreakdown is the full scoring result stored on the deal and
// returned by the readiness endpoint.
type ReadinessBreakdown struct {
	Score      int                 `json:"score"`
	Categories []ReadinessCategory `json:"categories"`
}

// StageSnapshot is the stage slice of a readiness input.
type StageSnapshot struct {
	Number    int
	Name      string
	Completed bool
}

// ReadinessInput is the snapshot the scorer works from. It is plain
// data: the scorer itself does no I/O and cannot fail, so a readiness
// recompute can never break the operation that triggered it.
type ReadinessInput struct {
	State    *workflow.DealState
	Facility models.FacilityType
	Stages   []StageSnapshot

	// OpenRequisitions counts requisitions still open or responded.
	OpenRequisitions int
}

// ScoreReadiness computes the weighted completion readiness of a deal:
// mandatory CPs satisfied, critical tasks completed, legal-stage tasks
// completed, KYC stage done and requisitions clear. Development
// facilities carry two extra deliverable categories and the CP and
// critical-task weights shrink to keep the total at 100. Inapplicable
// categories earn zero with a note rather than erroring; the result is
// clamped to [0, 100].
func ScoreReadiness(in ReadinessInput) ReadinessBreakdown {
	withDeliverables := in.Facility == models.FacilityDevelopment

	cpWeight, criticalWeight := 40, 30
	if withDeliverables {
		cpWeight, criticalWeight = 35, 25
	}

	categories := []ReadinessCategory{
		scoreCPs(in.State, cpWeight),
		scoreCriticalTasks(in.State, criticalWeight),
		scoreLegalStageTasks(in.State, in.Stages, 15),
		scoreKYCStage(in.Stages, 10),
		scoreRequisitions(in.OpenRequisitions, 5),
	}

	if withDeliverables {
		categories = append(categories,
			scoreDeliverable(in.State, "valuation_report", models.ProviderValuer, models.DeliverableValuationReport, 5),
			scoreDeliverable(in.State, "ims_initial_report", models.ProviderMonitoringSurveyor, models.DeliverableIMSInitialReport, 5),
		)
	}

	total := 0
	for _, c := range categories {
		total += c.Earned
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return ReadinessBreakdown{Score: total, Categories: categories}
}

func scoreCPs(state *workflow.DealState, weight int) ReadinessCategory {
	c := ReadinessCategory{Name: "conditions_precedent", Weight: weight}
	if state == nil || state.MandatoryCPTotal == 0 {
		c.Note = "no mandatory conditions precedent recorded yet"
		return c
	}
	c.Earned = weight * state.MandatoryCPSatisfied / state.MandatoryCPTotal
	return c
}

func scoreCriticalTasks(state *workflow.DealState, weight int) ReadinessCategory {
	c := ReadinessCategory{Name: "critical_tasks", Weight: weight}
	if state == nil {
		c.Note = "no task data available"
		return c
	}

	var total, done int
	for _, t := range state.Tasks {
		if t.Priority != models.PriorityCritical {
			continue
		}
		total++
		if taskDone(t.Status) {
			done++
		}
	}
	if total == 0 {
		c.Note = "no critical tasks recorded"
		return c
	}
	c.Earned = weight * done / total
	return c
}

func scoreLegalStageTasks(state *workflow.DealState, stages []StageSnapshot, weight int) ReadinessCategory {
	c := ReadinessCategory{Name: "legal_stage_tasks", Weight: weight}
	legal := findStage(stages, "legal")
	if legal == nil {
		c.Note = "no legal stage on this deal"
		return c
	}
	if state == nil {
		c.Note = "no task data available"
		return c
	}

	var total, done int
	for _, t := range state.Tasks {
		if t.StageNumber != legal.Number {
			continue
		}
		total++
		if taskDone(t.Status) {
			done++
		}
	}
	if total == 0 {
		c.Note = "no legal stage tasks recorded"
		return c
	}
	c.Earned = weight * done / total
	return c
}

func scoreKYCStage(stages []StageSnapshot, weight int) ReadinessCategory {
	c := ReadinessCategory{Name: "kyc_stage", Weight: weight}
	kyc := findStage(stages, "kyc")
	if kyc == nil {
		c.Note = "no KYC stage on this deal"
		return c
	}
	if kyc.Completed {
		c.Earned = weight
	}
	return c
}

func scoreRequisitions(open, weight int) ReadinessCategory {
	c := ReadinessCategory{Name: "requisitions", Weight: weight}
	if open > 0 {
		c.Note = fmt.Sprintf("%d requisitions awaiting resolution", open)
		return c
	}
	c.Earned = weight
	return c
}

func scoreDeliverable(state *workflow.DealState, name string, role models.ProviderRole, d models.DeliverableType, weight int) ReadinessCategory {
	c := ReadinessCategory{Name: name, Weight: weight}
	if state != nil && state.ApprovedDeliverables[workflow.DeliverableKey(role, d)] {
		c.Earned = weight
	}
	return c
}

// taskDone treats cancelled tasks as out of the way rather than open.
func taskDone(s models.TaskStatus) bool {
	return s == models.TaskCompleted || s == models.TaskCancelled
}

// findStage matches a stage by a case-insensitive name fragment.
func findStage(stages []StageSnapshot, fragment string) *StageSnapshot {
	for i := range stages {
		if strings.Contains(strings.ToLower(stages[i].Name), fragment) {
			return &stages[i]
		}
	}
	return nil
}
