package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderRole identifies an external professional tracked independently
// of the main deal stages.
type ProviderRole string

const (
	ProviderValuer             ProviderRole = "valuer"
	ProviderMonitoringSurveyor ProviderRole = "monitoring_surveyor"
	ProviderSolicitor          ProviderRole = "solicitor"
)

// SelectionStatus is the lifecycle of a provider selection.
type SelectionStatus string

const (
	SelectionProposed   SelectionStatus = "proposed"
	SelectionInstructed SelectionStatus = "instructed"
	SelectionActive     SelectionStatus = "active"
	SelectionCompleted  SelectionStatus = "completed"
	SelectionTerminated SelectionStatus = "terminated"
)

// DealProviderSelection appoints a provider for a role on a deal and
// tracks that provider's own stage sequence (from the provider template
// registry) independently of the deal's main stages.
type DealProviderSelection struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DealID uuid.UUID `gorm:"type:uuid;not null;index" json:"deal_id"`
	Deal   Deal      `gorm:"foreignKey:DealID" json:"-"`

	Role ProviderRole `gorm:"not null" json:"role"`

	PartyID *uuid.UUID `gorm:"type:uuid" json:"party_id,omitempty"`
	Party   *DealParty `gorm:"foreignKey:PartyID" json:"-"`

	Status       SelectionStatus `gorm:"not null;default:'proposed'" json:"status"`
	CurrentStage string          `json:"current_stage,omitempty"`

	InstructedAt *time.Time `json:"instructed_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	Deliverables []ProviderDeliverable `gorm:"foreignKey:SelectionID;constraint:OnDelete:CASCADE" json:"-"`
}

// DeliverableType identifies a typed provider work product.
type DeliverableType string

const (
	DeliverableValuationReport  DeliverableType = "valuation_report"
	DeliverableIMSInitialReport DeliverableType = "ims_initial_report"
	DeliverableIMSDrawdownCert  DeliverableType = "ims_drawdown_certificate"
	DeliverableReportOnTitle    DeliverableType = "report_on_title"
)

// DeliverableStatus is the review lifecycle of a deliverable.
type DeliverableStatus string

const (
	DeliverableDraft     DeliverableStatus = "draft"
	DeliverableSubmitted DeliverableStatus = "submitted"
	DeliverableApproved  DeliverableStatus = "approved"
	DeliverableRejected  DeliverableStatus = "rejected"
)

// ProviderDeliverable tracks a typed work product (valuation report, IMS
// initial report, report on title) through submission and review.
// Approvals feed stage criteria and the readiness scorer.
type ProviderDeliverable struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DealID      uuid.UUID             `gorm:"type:uuid;not null;index" json:"deal_id"`
	SelectionID uuid.UUID             `gorm:"type:uuid;not null;index" json:"selection_id"`
	Selection   DealProviderSelection `gorm:"foreignKey:SelectionID" json:"-"`

	Role            ProviderRole      `gorm:"not null" json:"role"`
	DeliverableType DeliverableType   `gorm:"not null" json:"deliverable_type"`
	Status          DeliverableStatus `gorm:"not null;default:'draft';index" json:"status"`

	DocumentRef string `json:"document_ref,omitempty"`

	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}
