package service

import (
	"testing"

	"github.com/BuildFund/New-Main-sub000/internal/models"
	"github.com/BuildFund/New-Main-sub000/internal/workflow"

	"github.com/stretchr/testify/require"
)

func fullyReadyState() *workflow.DealState {
	return &workflow.DealState{
		CompletedStages: map[int]bool{1: true, 2: true, 3: true, 4: true},
		Tasks: []workflow.TaskState{
			{StageNumber: 1, Title: "Issue welcome pack", Required: true, Priority: models.PriorityCritical, Status: models.TaskCompleted},
			{StageNumber: 2, Title: "Instruct valuer", Required: true, Priority: models.PriorityCritical, Status: models.TaskCompleted},
			{StageNumber: 4, Title: "Draft facility agreement", Required: true, Priority: models.PriorityHigh, Status: models.TaskCompleted},
			{StageNumber: 4, Title: "Issue certificate of title", Required: true, Priority: models.PriorityHigh, Status: models.TaskCompleted},
		},
		MandatoryCPTotal:     4,
		MandatoryCPSatisfied: 4,
		ApprovedDeliverables: map[string]bool{
			workflow.DeliverableKey(models.ProviderValuer, models.DeliverableValuationReport):              true,
			workflow.DeliverableKey(models.ProviderMonitoringSurveyor, models.DeliverableIMSInitialReport): true,
		},
	}
}

func readyStages() []StageSnapshot {
	return []StageSnapshot{
		{Number: 1, Name: "Kick-Off & Onboarding", Completed: true},
		{Number: 2, Name: "Valuation", Completed: true},
		{Number: 3, Name: "KYC & Compliance", Completed: true},
		{Number: 4, Name: "Legals & Conditions Precedent", Completed: true},
	}
}

func TestScoreReadinessFullBridge(t *testing.T) {
	breakdown := ScoreReadiness(ReadinessInput{
		State:    fullyReadyState(),
		Facility: models.FacilityBridge,
		Stages:   readyStages(),
	})

	require.Equal(t, 100, breakdown.Score)
	require.Len(t, breakdown.Categories, 5)

	weightSum := 0
	for _, c := range breakdown.Categories {
		weightSum += c.Weight
	}
	require.Equal(t, 100, weightSum)
}

func TestScoreReadinessDevelopmentWeights(t *testing.T) {
	breakdown := ScoreReadiness(ReadinessInput{
		State:    fullyReadyState(),
		Facility: models.FacilityDevelopment,
		Stages:   readyStages(),
	})

	require.Equal(t, 100, breakdown.Score)
	require.Len(t, breakdown.Categories, 7)

	byName := make(map[string]ReadinessCategory)
	weightSum := 0
	for _, c := range breakdown.Categories {
		byName[c.Name] = c
		weightSum += c.Weight
	}
	require.Equal(t, 100, weightSum)

	// Base weights shrink to make room for the deliverable categories.
	require.Equal(t, 35, byName["conditions_precedent"].Weight)
	require.Equal(t, 25, byName["critical_tasks"].Weight)
	require.Equal(t, 5, byName["valuation_report"].Weight)
	require.Equal(t, 5, byName["ims_initial_report"].Weight)
}

func TestScoreReadinessCPWeightIsForty(t *testing.T) {
	state := &workflow.DealState{
		MandatoryCPTotal:     3,
		MandatoryCPSatisfied: 3,
	}

	breakdown := ScoreReadiness(ReadinessInput{State: state, Facility: models.FacilityBridge, Stages: readyStages()})

	for _, c := range breakdown.Categories {
		if c.Name == "conditions_precedent" {
			require.Equal(t, 40, c.Weight)
			require.Equal(t, 40, c.Earned)
		}
	}
}

func TestScoreReadinessEmptyDeal(t *testing.T) {
	breakdown := ScoreReadiness(ReadinessInput{
		State:    &workflow.DealState{},
		Facility: models.FacilityBridge,
		Stages:   nil,
	})

	require.GreaterOrEqual(t, breakdown.Score, 0)
	require.LessOrEqual(t, breakdown.Score, 100)

	byName := make(map[string]ReadinessCategory)
	for _, c := range breakdown.Categories {
		byName[c.Name] = c
	}

	// With nothing recorded the gated categories earn zero and explain why.
	require.Equal(t, 0, byName["conditions_precedent"].Earned)
	require.NotEmpty(t, byName["conditions_precedent"].Note)
	require.Equal(t, 0, byName["critical_tasks"].Earned)
	require.NotEmpty(t, byName["critical_tasks"].Note)
	require.Equal(t, 0, byName["legal_stage_tasks"].Earned)
	require.NotEmpty(t, byName["legal_stage_tasks"].Note)
	require.Equal(t, 0, byName["kyc_stage"].Earned)
	require.NotEmpty(t, byName["kyc_stage"].Note)

	// No requisitions raised is fully satisfied, not a gap.
	require.Equal(t, 5, byName["requisitions"].Earned)
}

func TestScoreReadinessPartialProgress(t *testing.T) {
	state := &workflow.DealState{
		Tasks: []workflow.TaskState{
			{StageNumber: 1, Title: "a", Priority: models.PriorityCritical, Status: models.TaskCompleted},
			{StageNumber: 1, Title: "b", Priority: models.PriorityCritical, Status: models.TaskPending},
			{StageNumber: 4, Title: "c", Priority: models.PriorityHigh, Status: models.TaskCompleted},
			{StageNumber: 4, Title: "d", Priority: models.PriorityHigh, Status: models.TaskPending},
		},
		MandatoryCPTotal:     2,
		MandatoryCPSatisfied: 1,
	}
	stages := []StageSnapshot{
		{Number: 1, Name: "Kick-Off & Onboarding", Completed: true},
		{Number: 3, Name: "KYC & Compliance", Completed: false},
		{Number: 4, Name: "Legals & Conditions Precedent", Completed: false},
	}

	breakdown := ScoreReadiness(ReadinessInput{
		State:            state,
		Facility:         models.FacilityBridge,
		Stages:           stages,
		OpenRequisitions: 1,
	})

	byName := make(map[string]ReadinessCategory)
	for _, c := range breakdown.Categories {
		byName[c.Name] = c
	}

	require.Equal(t, 20, byName["conditions_precedent"].Earned) // 40 * 1/2
	require.Equal(t, 15, byName["critical_tasks"].Earned)       // 30 * 1/2
	require.Equal(t, 7, byName["legal_stage_tasks"].Earned)     // 15 * 1/2
	require.Equal(t, 0, byName["kyc_stage"].Earned)
	require.Equal(t, 0, byName["requisitions"].Earned)
	require.Equal(t, 42, breakdown.Score)
}

func TestScoreReadinessOpenRequisitionsEarnNothing(t *testing.T) {
	breakdown := ScoreReadiness(ReadinessInput{
		State:            &workflow.DealState{},
		Facility:         models.FacilityBridge,
		Stages:           readyStages(),
		OpenRequisitions: 1,
	})

	for _, c := range breakdown.Categories {
		if c.Name == "requisitions" {
			// The category is all or nothing, never pro-rated.
			require.Equal(t, 0, c.Earned)
			require.NotEmpty(t, c.Note)
		}
	}
}

func TestScoreReadinessKYCStageIsFlat(t *testing.T) {
	stages := []StageSnapshot{
		{Number: 3, Name: "KYC & Compliance", Completed: true},
	}

	breakdown := ScoreReadiness(ReadinessInput{State: &workflow.DealState{}, Facility: models.FacilityBridge, Stages: stages})

	for _, c := range breakdown.Categories {
		if c.Name == "kyc_stage" {
			require.Equal(t, 10, c.Earned)
		}
	}
}
