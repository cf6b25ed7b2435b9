package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FacilityType identifies the lending product family a deal belongs to.
type FacilityType string

const (
	FacilityBridge      FacilityType = "bridge"
	FacilityTerm        FacilityType = "term"
	FacilityDevelopment FacilityType = "development"
)

// DealStatus is the lifecycle status of a deal.
type DealStatus string

const (
	DealActive    DealStatus = "active"
	DealCompleted DealStatus = "completed"
	DealCancelled DealStatus = "cancelled"
	DealOnHold    DealStatus = "on_hold"
)

// CommercialTerms is the immutable snapshot of the commercial terms
// captured when the application is accepted. It is stored as JSONB and
// never mutated; a change of terms requires a new deal.
type CommercialTerms struct {
	LoanAmount   float64 `json:"loan_amount"`
	InterestRate float64 `json:"interest_rate"`
	TermMonths   int     `json:"term_months"`
	LTV          float64 `json:"ltv"`
	ProductRef   string  `json:"product_ref"`
}

// Deal is the root aggregate for a loan in progression. It owns stages,
// tasks, conditions precedent, requisitions, drawdowns, message threads
// and audit events.
type Deal struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// DealRef is the unique external deal identifier (e.g. BF-2024-00042).
	DealRef string `gorm:"not null;uniqueIndex" json:"deal_ref"`
	// ApplicationRef anchors idempotent creation: one deal per accepted application.
	ApplicationRef string `gorm:"not null;uniqueIndex" json:"application_ref"`

	BorrowerRef string `gorm:"not null" json:"borrower_ref"`
	LenderRef   string `gorm:"not null" json:"lender_ref"`

	FacilityType FacilityType `gorm:"not null" json:"facility_type"`
	Jurisdiction string       `gorm:"not null;default:'england_wales'" json:"jurisdiction"`
	Status       DealStatus   `gorm:"not null;default:'active';index" json:"status"`

	Terms datatypes.JSON `gorm:"type:jsonb;not null" json:"terms"`

	CurrentStageID *uuid.UUID `gorm:"type:uuid" json:"current_stage_id"`
	CurrentStage   *DealStage `gorm:"foreignKey:CurrentStageID" json:"-"`

	// PendingStageNumber is set when the current stage's exit criteria
	// were met but the next stage's entry criteria were not; the deal
	// is then blocked pending those entry conditions.
	PendingStageNumber *int `json:"pending_stage_number,omitempty"`

	ReadinessScore     int            `gorm:"not null;default:0" json:"readiness_score"`
	ReadinessBreakdown datatypes.JSON `gorm:"type:jsonb" json:"readiness_breakdown"`

	// Monotonic per-deal counters. Bumped under a row lock and never
	// rewound, so requisition references and drawdown sequence numbers
	// are unique even after deletions.
	RequisitionCounter int `gorm:"not null;default:0" json:"-"`
	DrawdownCounter    int `gorm:"not null;default:0" json:"-"`
	CPCounter          int `gorm:"not null;default:0" json:"-"`

	Parties      []DealParty         `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"-"`
	Stages       []DealStage         `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"-"`
	Tasks        []DealTask          `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"-"`
	CPs          []DealCP            `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"-"`
	Requisitions []DealRequisition   `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"-"`
	Drawdowns    []Drawdown          `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"-"`
	Threads      []DealMessageThread `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"-"`
	AuditEvents  []AuditEvent        `gorm:"foreignKey:DealID;constraint:OnDelete:CASCADE" json:"-"`
}

// PartyType identifies the role a participant plays on a deal.
type PartyType string

const (
	PartyBorrower           PartyType = "borrower"
	PartyLender             PartyType = "lender"
	PartyAdmin              PartyType = "admin"
	PartyValuer             PartyType = "valuer"
	PartyMonitoringSurveyor PartyType = "monitoring_surveyor"
	PartySolicitor          PartyType = "solicitor"
)

// ConsultantPartyTypes are the external professional roles that must
// declare which side of the deal they act for.
var ConsultantPartyTypes = map[PartyType]bool{
	PartyValuer:             true,
	PartyMonitoringSurveyor: true,
	PartySolicitor:          true,
}

// ActingFor identifies which principal a consultant acts for.
type ActingFor string

const (
	ActingForLender   ActingFor = "lender"
	ActingForBorrower ActingFor = "borrower"
)

// AppointmentStatus is the lifecycle of a party appointment.
type AppointmentStatus string

const (
	AppointmentInvited             AppointmentStatus = "invited"
	AppointmentPendingConfirmation AppointmentStatus = "pending_confirmation"
	AppointmentConfirmed           AppointmentStatus = "confirmed"
	AppointmentActive              AppointmentStatus = "active"
	AppointmentRemoved             AppointmentStatus = "removed"
)

// DealParty binds an external identity to a role on a deal.
//
// Invariant: at most one party per deal may hold
// (solicitor, acting for lender, active, is_active_lender_solicitor).
// Replacement goes through an explicit, reasoned operation.
type DealParty struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DealID uuid.UUID `gorm:"type:uuid;not null;index" json:"deal_id"`
	Deal   Deal      `gorm:"foreignKey:DealID" json:"-"`

	// PartyRef is the external identity reference (user/firm id in the
	// identity service). Identity itself is not modelled here.
	PartyRef string `gorm:"not null;index" json:"party_ref"`

	PartyType PartyType `gorm:"not null" json:"party_type"`
	// ActingForParty is required for consultant roles.
	ActingForParty ActingFor `json:"acting_for_party,omitempty"`

	AppointmentStatus       AppointmentStatus `gorm:"not null;default:'invited'" json:"appointment_status"`
	IsActiveLenderSolicitor bool              `gorm:"not null;default:false" json:"is_active_lender_solicitor"`

	FirmName           string `json:"firm_name,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty"`

	InvitedAt     *time.Time `json:"invited_at,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	RemovedAt     *time.Time `json:"removed_at,omitempty"`
	RemovalReason string     `json:"removal_reason,omitempty"`
}
