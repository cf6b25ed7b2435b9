package workflow

import (
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// TaskTemplate defines a task seeded into a stage at deal creation.
// DependsOn names other task titles within the same stage; the edges are
// created alongside the tasks.
type TaskTemplate struct {
	Title          string
	Description    string
	OwnerPartyType models.PartyType
	Priority       models.TaskPriority
	Required       bool
	DependsOn      []string
}

// StageTemplate defines one stage of a facility workflow.
type StageTemplate struct {
	Number        int
	Name          string
	SLATargetDays int
	EntryCriteria []Criterion
	ExitCriteria  []Criterion
	Tasks         []TaskTemplate
}

// ResolveFacilityType maps an application product type onto a facility
// workflow. Unknown products fall back to the bridge workflow.
func ResolveFacilityType(productType string) models.FacilityType {
	switch productType {
	case "development_finance", "senior_debt":
		return models.FacilityDevelopment
	case "commercial_mortgage", "mortgage":
		return models.FacilityTerm
	default:
		return models.FacilityBridge
	}
}

// Templates returns the ordered stage definitions for a facility type.
// The returned slices are shared; callers must not mutate them.
func Templates(facility models.FacilityType) []StageTemplate {
	switch facility {
	case models.FacilityDevelopment:
		return developmentStages
	case models.FacilityTerm:
		return termStages
	default:
		return bridgeStages
	}
}

var kickOffTasks = []TaskTemplate{
	{Title: "Issue welcome pack", OwnerPartyType: models.PartyAdmin, Priority: models.PriorityMedium, Required: true},
	{Title: "Confirm facility terms", Description: "Borrower countersigns the indicative terms captured at acceptance.", OwnerPartyType: models.PartyBorrower, Priority: models.PriorityCritical, Required: true, DependsOn: []string{"Issue welcome pack"}},
	{Title: "Appoint lender solicitor", OwnerPartyType: models.PartyLender, Priority: models.PriorityCritical, Required: true},
	{Title: "Provide property schedule", OwnerPartyType: models.PartyBorrower, Priority: models.PriorityHigh, Required: true},
	{Title: "Hold kick-off call", OwnerPartyType: models.PartyAdmin, Priority: models.PriorityLow, Required: false},
}

var valuationTasks = []TaskTemplate{
	{Title: "Instruct valuer", OwnerPartyType: models.PartyLender, Priority: models.PriorityCritical, Required: true},
	{Title: "Schedule site inspection", OwnerPartyType: models.PartyValuer, Priority: models.PriorityHigh, Required: true, DependsOn: []string{"Instruct valuer"}},
	{Title: "Review valuation report", OwnerPartyType: models.PartyLender, Priority: models.PriorityCritical, Required: true, DependsOn: []string{"Schedule site inspection"}},
}

var kycTasks = []TaskTemplate{
	{Title: "Collect certified ID documents", OwnerPartyType: models.PartyBorrower, Priority: models.PriorityCritical, Required: true},
	{Title: "Run AML screening", OwnerPartyType: models.PartyAdmin, Priority: models.PriorityCritical, Required: true, DependsOn: []string{"Collect certified ID documents"}},
	{Title: "Verify source of funds", OwnerPartyType: models.PartyAdmin, Priority: models.PriorityHigh, Required: true},
}

var legalsTasks = []TaskTemplate{
	{Title: "Issue facility agreement", OwnerPartyType: models.PartySolicitor, Priority: models.PriorityCritical, Required: true},
	{Title: "Raise conditions precedent list", OwnerPartyType: models.PartySolicitor, Priority: models.PriorityCritical, Required: true},
	{Title: "Report on title received", OwnerPartyType: models.PartySolicitor, Priority: models.PriorityHigh, Required: true, DependsOn: []string{"Issue facility agreement"}},
}

var completionPrepTasks = []TaskTemplate{
	{Title: "Agree completion statement", OwnerPartyType: models.PartyLender, Priority: models.PriorityCritical, Required: true},
	{Title: "Confirm funds available", OwnerPartyType: models.PartyLender, Priority: models.PriorityCritical, Required: true},
	{Title: "Execute facility documents", OwnerPartyType: models.PartyBorrower, Priority: models.PriorityCritical, Required: true, DependsOn: []string{"Agree completion statement"}},
}

var completionTasks = []TaskTemplate{
	{Title: "Release funds", OwnerPartyType: models.PartyLender, Priority: models.PriorityCritical, Required: true},
	{Title: "Confirm registration formalities", OwnerPartyType: models.PartySolicitor, Priority: models.PriorityHigh, Required: true},
}

var postCompletionTasks = []TaskTemplate{
	{Title: "Register charge", OwnerPartyType: models.PartySolicitor, Priority: models.PriorityCritical, Required: true},
	{Title: "File completion pack", OwnerPartyType: models.PartyAdmin, Priority: models.PriorityMedium, Required: false},
}

// Stage 8 of the bridge workflow was retired; the numbering is kept for
// reporting continuity, so the sequence runs 1-7 then 9.
var bridgeStages = []StageTemplate{
	{
		Number: 1, Name: "Kick-Off & Onboarding", SLATargetDays: 3,
		ExitCriteria: []Criterion{RequiredTasksCompleted()},
		Tasks:        kickOffTasks,
	},
	{
		Number: 2, Name: "Valuation", SLATargetDays: 10,
		EntryCriteria: []Criterion{StageCompleted(1)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         valuationTasks,
	},
	{
		Number: 3, Name: "KYC & Compliance", SLATargetDays: 5,
		EntryCriteria: []Criterion{StageCompleted(2)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         kycTasks,
	},
	{
		Number: 4, Name: "Legals & Conditions Precedent", SLATargetDays: 15,
		EntryCriteria: []Criterion{StageCompleted(3), PartyActive(models.PartySolicitor, models.ActingForLender)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted(), MandatoryCPsSatisfied()},
		Tasks:         legalsTasks,
	},
	{
		Number: 5, Name: "Requisitions & Searches", SLATargetDays: 7,
		EntryCriteria: []Criterion{StageCompleted(4)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks: []TaskTemplate{
			{Title: "Submit pre-completion searches", OwnerPartyType: models.PartySolicitor, Priority: models.PriorityHigh, Required: true},
			{Title: "Resolve outstanding requisitions", OwnerPartyType: models.PartyBorrower, Priority: models.PriorityCritical, Required: true},
		},
	},
	{
		Number: 6, Name: "Completion Preparation", SLATargetDays: 5,
		EntryCriteria: []Criterion{StageCompleted(5)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         completionPrepTasks,
	},
	{
		Number: 7, Name: "Completion & Funds Release", SLATargetDays: 2,
		EntryCriteria: []Criterion{StageCompleted(6)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         completionTasks,
	},
	{
		Number: 9, Name: "Post-Completion", SLATargetDays: 30,
		EntryCriteria: []Criterion{StageCompleted(7)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         postCompletionTasks,
	},
}

var termStages = []StageTemplate{
	{
		Number: 1, Name: "Kick-Off & Onboarding", SLATargetDays: 5,
		ExitCriteria: []Criterion{RequiredTasksCompleted()},
		Tasks:        kickOffTasks,
	},
	{
		Number: 2, Name: "Valuation", SLATargetDays: 15,
		EntryCriteria: []Criterion{StageCompleted(1)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         valuationTasks,
	},
	{
		Number: 3, Name: "KYC & Compliance", SLATargetDays: 7,
		EntryCriteria: []Criterion{StageCompleted(2)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         kycTasks,
	},
	{
		Number: 4, Name: "Legals & Conditions Precedent", SLATargetDays: 20,
		EntryCriteria: []Criterion{StageCompleted(3), PartyActive(models.PartySolicitor, models.ActingForLender)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted(), MandatoryCPsSatisfied()},
		Tasks:         legalsTasks,
	},
	{
		Number: 5, Name: "Completion Preparation", SLATargetDays: 5,
		EntryCriteria: []Criterion{StageCompleted(4)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         completionPrepTasks,
	},
	{
		Number: 6, Name: "Completion & Funds Release", SLATargetDays: 2,
		EntryCriteria: []Criterion{StageCompleted(5)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         completionTasks,
	},
	{
		Number: 7, Name: "Post-Completion", SLATargetDays: 30,
		EntryCriteria: []Criterion{StageCompleted(6)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         postCompletionTasks,
	},
}

var developmentStages = []StageTemplate{
	{
		Number: 1, Name: "Kick-Off & Onboarding", SLATargetDays: 5,
		ExitCriteria: []Criterion{RequiredTasksCompleted()},
		Tasks: append([]TaskTemplate{
			{Title: "Appoint monitoring surveyor", OwnerPartyType: models.PartyLender, Priority: models.PriorityCritical, Required: true},
			{Title: "Provide development appraisal", OwnerPartyType: models.PartyBorrower, Priority: models.PriorityCritical, Required: true},
		}, kickOffTasks...),
	},
	{
		Number: 2, Name: "Valuation & Monitoring Setup", SLATargetDays: 15,
		EntryCriteria: []Criterion{StageCompleted(1)},
		ExitCriteria: []Criterion{
			RequiredTasksCompleted(),
			DeliverableApproved(models.ProviderValuer, models.DeliverableValuationReport),
			DeliverableApproved(models.ProviderMonitoringSurveyor, models.DeliverableIMSInitialReport),
		},
		Tasks: append([]TaskTemplate{
			{Title: "Commission IMS initial report", OwnerPartyType: models.PartyMonitoringSurveyor, Priority: models.PriorityCritical, Required: true},
			{Title: "Agree drawdown schedule", OwnerPartyType: models.PartyLender, Priority: models.PriorityHigh, Required: true, DependsOn: []string{"Commission IMS initial report"}},
		}, valuationTasks...),
	},
	{
		Number: 3, Name: "KYC & Compliance", SLATargetDays: 7,
		EntryCriteria: []Criterion{StageCompleted(2)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         kycTasks,
	},
	{
		Number: 4, Name: "Legals & Conditions Precedent", SLATargetDays: 20,
		EntryCriteria: []Criterion{StageCompleted(3), PartyActive(models.PartySolicitor, models.ActingForLender)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted(), MandatoryCPsSatisfied()},
		Tasks:         legalsTasks,
	},
	{
		Number: 5, Name: "First Drawdown Preparation", SLATargetDays: 10,
		EntryCriteria: []Criterion{StageCompleted(4), PartyActive(models.PartyMonitoringSurveyor, models.ActingForLender)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks: []TaskTemplate{
			{Title: "Submit initial cost breakdown", OwnerPartyType: models.PartyBorrower, Priority: models.PriorityCritical, Required: true},
			{Title: "Validate build programme", OwnerPartyType: models.PartyMonitoringSurveyor, Priority: models.PriorityCritical, Required: true, DependsOn: []string{"Submit initial cost breakdown"}},
		},
	},
	{
		Number: 6, Name: "Completion & First Advance", SLATargetDays: 5,
		EntryCriteria: []Criterion{StageCompleted(5)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         append(append([]TaskTemplate{}, completionPrepTasks...), completionTasks...),
	},
	{
		Number: 7, Name: "Drawdown Management", SLATargetDays: 0,
		EntryCriteria: []Criterion{StageCompleted(6)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks: []TaskTemplate{
			{Title: "Approve final drawdown", OwnerPartyType: models.PartyLender, Priority: models.PriorityCritical, Required: true},
			{Title: "Monitor build progress", OwnerPartyType: models.PartyMonitoringSurveyor, Priority: models.PriorityHigh, Required: false},
		},
	},
	{
		Number: 8, Name: "Practical Completion", SLATargetDays: 10,
		EntryCriteria: []Criterion{StageCompleted(7)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks: []TaskTemplate{
			{Title: "Obtain practical completion certificate", OwnerPartyType: models.PartyMonitoringSurveyor, Priority: models.PriorityCritical, Required: true},
			{Title: "Confirm building control sign-off", OwnerPartyType: models.PartyBorrower, Priority: models.PriorityHigh, Required: true},
		},
	},
	{
		Number: 9, Name: "Redemption & Post-Completion", SLATargetDays: 30,
		EntryCriteria: []Criterion{StageCompleted(8)},
		ExitCriteria:  []Criterion{RequiredTasksCompleted()},
		Tasks:         postCompletionTasks,
	},
}
