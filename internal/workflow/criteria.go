package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/BuildFund/New-Main-sub000/internal/models"

	"github.com/pkg/errors"
)

// CriterionKind discriminates the criterion variants.
type CriterionKind string

const (
	KindStageCompleted         CriterionKind = "stage_completed"
	KindRequiredTasksCompleted CriterionKind = "required_tasks_completed"
	KindPartyActive            CriterionKind = "party_active"
	KindMandatoryCPsSatisfied  CriterionKind = "mandatory_cps_satisfied"
	KindDeliverableApproved    CriterionKind = "deliverable_approved"
)

// Criterion is a single typed entry or exit condition on a stage. The
// set of kinds is closed; evaluation switches exhaustively over Kind so
// a malformed criterion is reported rather than silently passing.
type Criterion struct {
	Kind CriterionKind `json:"kind"`

	// StageNumber applies to stage_completed.
	StageNumber int `json:"stage_number,omitempty"`

	// PartyType and ActingFor apply to party_active.
	PartyType models.PartyType `json:"party_type,omitempty"`
	ActingFor models.ActingFor `json:"acting_for,omitempty"`

	// Role and Deliverable apply to deliverable_approved.
	Role        models.ProviderRole    `json:"role,omitempty"`
	Deliverable models.DeliverableType `json:"deliverable,omitempty"`
}

// StageCompleted requires the numbered stage to be completed.
func StageCompleted(n int) Criterion {
	return Criterion{Kind: KindStageCompleted, StageNumber: n}
}

// RequiredTasksCompleted requires every required task of the stage under
// evaluation to be completed.
func RequiredTasksCompleted() Criterion {
	return Criterion{Kind: KindRequiredTasksCompleted}
}

// PartyActive requires an active party of the given type; ActingFor
// narrows consultant roles to one side of the deal.
func PartyActive(pt models.PartyType, af models.ActingFor) Criterion {
	return Criterion{Kind: KindPartyActive, PartyType: pt, ActingFor: af}
}

// MandatoryCPsSatisfied requires every mandatory condition precedent to
// be satisfied or waived.
func MandatoryCPsSatisfied() Criterion {
	return Criterion{Kind: KindMandatoryCPsSatisfied}
}

// DeliverableApproved requires an approved provider deliverable of the
// given role and type.
func DeliverableApproved(role models.ProviderRole, d models.DeliverableType) Criterion {
	return Criterion{Kind: KindDeliverableApproved, Role: role, Deliverable: d}
}

// Describe renders the criterion for caller-visible unmet lists.
func (c Criterion) Describe() string {
	switch c.Kind {
	case KindStageCompleted:
		return fmt.Sprintf("stage %d completed", c.StageNumber)
	case KindRequiredTasksCompleted:
		return "all required tasks completed"
	case KindPartyActive:
		if c.ActingFor != "" {
			return fmt.Sprintf("active %s acting for %s", c.PartyType, c.ActingFor)
		}
		return fmt.Sprintf("active %s appointed", c.PartyType)
	case KindMandatoryCPsSatisfied:
		return "all mandatory conditions precedent satisfied"
	case KindDeliverableApproved:
		return fmt.Sprintf("%s approved by %s review", c.Deliverable, c.Role)
	default:
		return fmt.Sprintf("unknown criterion %q", c.Kind)
	}
}

// TaskState is the task slice of a deal snapshot.
type TaskState struct {
	StageNumber int
	Title       string
	Required    bool
	Priority    models.TaskPriority
	Status      models.TaskStatus
}

// PartyState is the party slice of a deal snapshot.
type PartyState struct {
	Type      models.PartyType
	ActingFor models.ActingFor
	Active    bool
}

// DealState is an in-memory snapshot of the deal facts the criteria and
// the readiness scorer evaluate against. It is assembled once per
// evaluation so a single advance call sees a consistent view.
type DealState struct {
	CompletedStages map[int]bool
	Tasks           []TaskState
	Parties         []PartyState

	MandatoryCPTotal     int
	MandatoryCPSatisfied int

	// ApprovedDeliverables is keyed by role/type, see DeliverableKey.
	ApprovedDeliverables map[string]bool
}

// DeliverableKey builds the lookup key for ApprovedDeliverables.
func DeliverableKey(role models.ProviderRole, d models.DeliverableType) string {
	return string(role) + "/" + string(d)
}

// Holds reports whether the criterion is satisfied by the snapshot.
// stageNumber is the stage under evaluation (required_tasks_completed
// scopes to it).
func (c Criterion) Holds(s *DealState, stageNumber int) bool {
	switch c.Kind {
	case KindStageCompleted:
		return s.CompletedStages[c.StageNumber]
	case KindRequiredTasksCompleted:
		for _, t := range s.Tasks {
			if t.StageNumber != stageNumber || !t.Required {
				continue
			}
			if t.Status != models.TaskCompleted && t.Status != models.TaskCancelled {
				return false
			}
		}
		return true
	case KindPartyActive:
		for _, p := range s.Parties {
			if !p.Active || p.Type != c.PartyType {
				continue
			}
			if c.ActingFor == "" || p.ActingFor == c.ActingFor {
				return true
			}
		}
		return false
	case KindMandatoryCPsSatisfied:
		return s.MandatoryCPSatisfied >= s.MandatoryCPTotal
	case KindDeliverableApproved:
		return s.ApprovedDeliverables[DeliverableKey(c.Role, c.Deliverable)]
	default:
		// Unknown kinds never hold; they surface in the unmet list.
		return false
	}
}

// Evaluate checks every criterion against the snapshot and returns
// whether all hold plus the descriptions of those that do not. Unmet
// criteria are a normal outcome, not an error.
func Evaluate(criteria []Criterion, s *DealState, stageNumber int) (bool, []string) {
	var unmet []string
	for _, c := range criteria {
		if !c.Holds(s, stageNumber) {
			unmet = append(unmet, c.Describe())
		}
	}
	return len(unmet) == 0, unmet
}

// EncodeCriteria serializes criteria for storage on a stage row.
func EncodeCriteria(criteria []Criterion) ([]byte, error) {
	data, err := json.Marshal(criteria)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode criteria")
	}
	return data, nil
}

// DecodeCriteria deserializes criteria stored on a stage row.
func DecodeCriteria(data []byte) ([]Criterion, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var criteria []Criterion
	if err := json.Unmarshal(data, &criteria); err != nil {
		return nil, errors.Wrap(err, "failed to decode criteria")
	}
	return criteria, nil
}
