package workflow

import (
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// ProviderStageTemplate is one step of a provider's own progression,
// tracked independently of the main deal stages.
type ProviderStageTemplate struct {
	Sequence int
	Key      string
	Name     string
}

var valuerStages = []ProviderStageTemplate{
	{1, "instructed", "Instructed"},
	{2, "terms_accepted", "Terms Accepted"},
	{3, "inspection_scheduled", "Inspection Scheduled"},
	{4, "inspection_completed", "Inspection Completed"},
	{5, "report_draft", "Report in Draft"},
	{6, "report_issued", "Report Issued"},
	{7, "completed", "Completed"},
}

var monitoringSurveyorStages = []ProviderStageTemplate{
	{1, "instructed", "Instructed"},
	{2, "initial_report", "Initial Report"},
	{3, "drawdown_monitoring", "Drawdown Monitoring"},
	{4, "final_certificate", "Final Certificate"},
	{5, "completed", "Completed"},
}

var solicitorStages = []ProviderStageTemplate{
	{1, "instructed", "Instructed"},
	{2, "due_diligence", "Due Diligence"},
	{3, "cps_issued", "CPs Issued"},
	{4, "requisitions", "Requisitions"},
	{5, "report_on_title", "Report on Title"},
	{6, "completion", "Completion"},
	{7, "completed", "Completed"},
}

// ProviderTemplates returns the stage sequence for a provider role.
func ProviderTemplates(role models.ProviderRole) []ProviderStageTemplate {
	switch role {
	case models.ProviderValuer:
		return valuerStages
	case models.ProviderMonitoringSurveyor:
		return monitoringSurveyorStages
	case models.ProviderSolicitor:
		return solicitorStages
	default:
		return nil
	}
}

// NextProviderStage returns the stage key following current, or "" when
// current is the last stage or unknown.
func NextProviderStage(role models.ProviderRole, current string) string {
	stages := ProviderTemplates(role)
	for i, s := range stages {
		if s.Key == current && i+1 < len(stages) {
			return stages[i+1].Key
		}
	}
	return ""
}
