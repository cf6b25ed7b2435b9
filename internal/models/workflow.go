package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StageStatus is the lifecycle status of a deal stage.
type StageStatus string

const (
	StageNotStarted StageStatus = "not_started"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
	StageBlocked    StageStatus = "blocked"
)

// DealStage is an ordered phase of a deal's progression. Stage numbers
// come from the template registry and may carry gaps (bridge keeps its
// legacy 1-7,9 numbering), so ordering rather than arithmetic defines
// the next stage.
type DealStage struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DealID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_deal_stage_number,priority:1" json:"deal_id"`
	Deal   Deal      `gorm:"foreignKey:DealID" json:"-"`

	StageNumber int         `gorm:"not null;uniqueIndex:idx_deal_stage_number,priority:2" json:"stage_number"`
	Name        string      `gorm:"not null" json:"name"`
	Status      StageStatus `gorm:"not null;default:'not_started'" json:"status"`

	// Entry and exit criteria are snapshotted from the template at deal
	// creation so later template edits do not change in-flight deals.
	EntryCriteria datatypes.JSON `gorm:"type:jsonb" json:"entry_criteria"`
	ExitCriteria  datatypes.JSON `gorm:"type:jsonb" json:"exit_criteria"`

	SLATargetDays int `gorm:"not null;default:0" json:"sla_target_days"`

	EnteredAt   *time.Time `json:"entered_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Tasks []DealTask `gorm:"foreignKey:StageID;constraint:OnDelete:CASCADE" json:"-"`
}

// TaskPriority ranks a task's urgency.
type TaskPriority string

const (
	PriorityCritical TaskPriority = "critical"
	PriorityHigh     TaskPriority = "high"
	PriorityMedium   TaskPriority = "medium"
	PriorityLow      TaskPriority = "low"
)

// TaskStatus is the lifecycle status of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
	TaskCancelled  TaskStatus = "cancelled"
)

// DealTask is a unit of work scoped to a stage. Dependencies form a DAG:
// a task cannot complete until every task it depends on has completed,
// and edges that would create a cycle are rejected at insertion time.
type DealTask struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DealID  uuid.UUID `gorm:"type:uuid;not null;index" json:"deal_id"`
	StageID uuid.UUID `gorm:"type:uuid;not null;index" json:"stage_id"`
	Stage   DealStage `gorm:"foreignKey:StageID" json:"-"`

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description,omitempty"`

	OwnerPartyType PartyType  `gorm:"not null" json:"owner_party_type"`
	AssigneeID     *uuid.UUID `gorm:"type:uuid" json:"assignee_id,omitempty"`
	Assignee       *DealParty `gorm:"foreignKey:AssigneeID" json:"-"`

	Priority TaskPriority `gorm:"not null;default:'medium'" json:"priority"`
	Status   TaskStatus   `gorm:"not null;default:'pending';index" json:"status"`
	Required bool         `gorm:"not null;default:true" json:"required"`

	DueDate *time.Time `json:"due_date,omitempty"`
	// OverdueNotified guards the SLA sweep against repeat notifications.
	OverdueNotified bool `gorm:"not null;default:false" json:"-"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy string     `json:"completed_by,omitempty"`

	Dependencies []TaskDependency `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

// TaskDependency is a directed edge: Task cannot complete before DependsOn.
type TaskDependency struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	TaskID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_task_dependency_edge,priority:1" json:"task_id"`
	Task   DealTask  `gorm:"foreignKey:TaskID" json:"-"`

	DependsOnID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_task_dependency_edge,priority:2" json:"depends_on_id"`
	DependsOn   DealTask  `gorm:"foreignKey:DependsOnID" json:"-"`
}
