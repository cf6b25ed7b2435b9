package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MSReviewStatus tracks the monitoring surveyor review of a drawdown.
type MSReviewStatus string

const (
	MSPending            MSReviewStatus = "pending"
	MSUnderReview        MSReviewStatus = "under_review"
	MSSiteVisitScheduled MSReviewStatus = "site_visit_scheduled"
	MSSiteVisitCompleted MSReviewStatus = "site_visit_completed"
	MSApproved           MSReviewStatus = "ms_approved"
	MSRejected           MSReviewStatus = "ms_rejected"
)

// LenderApprovalStatus tracks the lender side of a drawdown.
type LenderApprovalStatus string

const (
	LenderRequested LenderApprovalStatus = "requested"
	LenderReview    LenderApprovalStatus = "lender_review"
	LenderApproved  LenderApprovalStatus = "approved"
	LenderPaid      LenderApprovalStatus = "paid"
	LenderRejected  LenderApprovalStatus = "rejected"
)

// Drawdown is a funds-release request on a development facility. The two
// approval tracks run independently except for the hard gate: lender
// approval requires the monitoring surveyor track to be ms_approved.
type Drawdown struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DealID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_deal_drawdown_seq,priority:1" json:"deal_id"`
	Deal   Deal      `gorm:"foreignKey:DealID" json:"-"`

	// SequenceNumber comes from the deal's monotonic counter; sequences
	// are strictly increasing per deal and never recycled after deletion.
	SequenceNumber int `gorm:"not null;uniqueIndex:idx_deal_drawdown_seq,priority:2" json:"sequence_number"`

	AmountRequested float64 `gorm:"not null" json:"amount_requested"`
	Purpose         string  `json:"purpose,omitempty"`

	MSReviewStatus       MSReviewStatus       `gorm:"not null;default:'pending';index" json:"ms_review_status"`
	LenderApprovalStatus LenderApprovalStatus `gorm:"not null;default:'requested';index" json:"lender_approval_status"`

	RequestedByID uuid.UUID  `gorm:"type:uuid;not null" json:"requested_by_id"`
	RequestedBy   *DealParty `gorm:"foreignKey:RequestedByID" json:"-"`

	SiteVisitScheduledFor *time.Time `json:"site_visit_scheduled_for,omitempty"`
	SiteVisitCompletedAt  *time.Time `json:"site_visit_completed_at,omitempty"`

	MSReviewedBy      string     `json:"ms_reviewed_by,omitempty"`
	MSReviewedAt      *time.Time `json:"ms_reviewed_at,omitempty"`
	MSRejectionReason string     `json:"ms_rejection_reason,omitempty"`

	LenderReviewedBy      string     `json:"lender_reviewed_by,omitempty"`
	LenderApprovedAt      *time.Time `json:"lender_approved_at,omitempty"`
	LenderRejectionReason string     `json:"lender_rejection_reason,omitempty"`
	PaidAt                *time.Time `json:"paid_at,omitempty"`

	Documents []DrawdownDocument `gorm:"foreignKey:DrawdownID;constraint:OnDelete:CASCADE" json:"-"`
}

// DrawdownDocumentCategory classifies supporting evidence on a drawdown.
type DrawdownDocumentCategory string

const (
	DrawdownDocProgressReports  DrawdownDocumentCategory = "progress_reports"
	DrawdownDocPhotos           DrawdownDocumentCategory = "photos"
	DrawdownDocBuildingControl  DrawdownDocumentCategory = "consultants_building_control"
	DrawdownDocOther            DrawdownDocumentCategory = "other"
)

// DrawdownDocument links an opaque document reference to a drawdown.
// File bytes live in the external document store.
type DrawdownDocument struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	DrawdownID uuid.UUID `gorm:"type:uuid;not null;index" json:"drawdown_id"`
	Drawdown   Drawdown  `gorm:"foreignKey:DrawdownID" json:"-"`

	Category    DrawdownDocumentCategory `gorm:"not null;default:'other'" json:"category"`
	DocumentRef string                   `gorm:"not null" json:"document_ref"`
	UploadedBy  string                   `json:"uploaded_by,omitempty"`
}
