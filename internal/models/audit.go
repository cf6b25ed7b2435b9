package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditEventType enumerates the recorded deal events.
type AuditEventType string

const (
	AuditDealCreated         AuditEventType = "deal_created"
	AuditDealStatusChanged   AuditEventType = "deal_status_changed"
	AuditStageEntered        AuditEventType = "stage_entered"
	AuditStageCompleted      AuditEventType = "stage_completed"
	AuditStageBlocked        AuditEventType = "stage_blocked"
	AuditTaskStarted         AuditEventType = "task_started"
	AuditTaskCompleted       AuditEventType = "task_completed"
	AuditTaskOverdue         AuditEventType = "task_overdue"
	AuditPartyInvited        AuditEventType = "party_invited"
	AuditPartyConfirmed      AuditEventType = "party_confirmed"
	AuditPartyRemoved        AuditEventType = "party_removed"
	AuditSolicitorReplaced   AuditEventType = "lender_solicitor_replaced"
	AuditCPAdded             AuditEventType = "cp_added"
	AuditCPSatisfied         AuditEventType = "cp_satisfied"
	AuditCPRejected          AuditEventType = "cp_rejected"
	AuditCPWaived            AuditEventType = "cp_waived"
	AuditRequisitionRaised   AuditEventType = "requisition_raised"
	AuditRequisitionAnswered AuditEventType = "requisition_responded"
	AuditRequisitionApproved AuditEventType = "requisition_approved"
	AuditDrawdownRequested   AuditEventType = "drawdown_requested"
	AuditDrawdownMSUpdated   AuditEventType = "drawdown_ms_updated"
	AuditDrawdownApproved    AuditEventType = "drawdown_approved"
	AuditDrawdownRejected    AuditEventType = "drawdown_rejected"
	AuditDrawdownPaid        AuditEventType = "drawdown_paid"
	AuditDeliverableReviewed AuditEventType = "deliverable_reviewed"
)

// AuditEvent is an immutable, append-only record of a meaningful state
// change on a deal. Events are never updated or deleted; the Processed
// flag only tracks export into the external reporting index.
type AuditEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	DealID uuid.UUID `gorm:"type:uuid;not null;index" json:"deal_id"`
	Deal   Deal      `gorm:"foreignKey:DealID" json:"-"`

	EventType AuditEventType `gorm:"not null;index" json:"event_type"`
	ActorRef  string         `json:"actor_ref,omitempty"`

	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Processed marks the event as exported to the reporting index.
	Processed bool `gorm:"not null;default:false;index" json:"-"`
}
