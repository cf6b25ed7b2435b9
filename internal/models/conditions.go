package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CPStatus is the lifecycle status of a condition precedent.
type CPStatus string

const (
	CPPending   CPStatus = "pending"
	CPSatisfied CPStatus = "satisfied"
	CPRejected  CPStatus = "rejected"
	CPWaived    CPStatus = "waived"
)

// DealCP is a condition precedent: a legal condition that must be
// satisfied (or waived) before completion. Completion readiness requires
// every mandatory CP to be satisfied.
type DealCP struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DealID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_deal_cp_number,priority:1" json:"deal_id"`
	Deal   Deal      `gorm:"foreignKey:DealID" json:"-"`

	CPNumber int    `gorm:"not null;uniqueIndex:idx_deal_cp_number,priority:2" json:"cp_number"`
	Title    string `gorm:"not null" json:"title"`

	Description    string    `json:"description,omitempty"`
	IsMandatory    bool      `gorm:"not null;default:true" json:"is_mandatory"`
	OwnerPartyType PartyType `gorm:"not null" json:"owner_party_type"`
	Status         CPStatus  `gorm:"not null;default:'pending';index" json:"status"`

	SatisfiedBy     string     `json:"satisfied_by,omitempty"`
	SatisfiedAt     *time.Time `json:"satisfied_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	WaivedBy        string     `json:"waived_by,omitempty"`
	WaivedAt        *time.Time `json:"waived_at,omitempty"`

	Documents []DealDocumentLink `gorm:"polymorphic:Owner;polymorphicValue:cp" json:"-"`
}

// RequisitionStatus is the lifecycle status of a requisition.
type RequisitionStatus string

const (
	RequisitionOpen      RequisitionStatus = "open"
	RequisitionResponded RequisitionStatus = "responded"
	RequisitionApproved  RequisitionStatus = "approved"
	RequisitionRejected  RequisitionStatus = "rejected"
	RequisitionClosed    RequisitionStatus = "closed"
)

// DealRequisition is a formal legal query raised by the deal's active
// lender solicitor to the borrower side. References are assigned from
// the deal's monotonic counter (REQ-001, REQ-002, ...) and never reused.
type DealRequisition struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DealID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_deal_requisition_number,priority:1" json:"deal_id"`
	Deal   Deal      `gorm:"foreignKey:DealID" json:"-"`

	Number    int    `gorm:"not null;uniqueIndex:idx_deal_requisition_number,priority:2" json:"number"`
	Reference string `gorm:"not null" json:"reference"`

	Question string            `gorm:"not null" json:"question"`
	Status   RequisitionStatus `gorm:"not null;default:'open';index" json:"status"`

	RaisedByID uuid.UUID  `gorm:"type:uuid;not null" json:"raised_by_id"`
	RaisedBy   *DealParty `gorm:"foreignKey:RaisedByID" json:"-"`

	ResponseText string     `json:"response_text,omitempty"`
	RespondedBy  string     `json:"responded_by,omitempty"`
	RespondedAt  *time.Time `json:"responded_at,omitempty"`

	ApprovedBy string     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}
