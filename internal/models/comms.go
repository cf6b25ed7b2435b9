package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ThreadType determines the default visible-party set of a message thread.
type ThreadType string

const (
	ThreadGeneral   ThreadType = "general"
	ThreadLegal     ThreadType = "legal"
	ThreadValuation ThreadType = "valuation"
	ThreadIMS       ThreadType = "ims"
)

// DefaultThreadVisibility maps a thread type to the party types that can
// see it by default. Private threads ignore this and restrict visibility
// to explicitly listed parties.
var DefaultThreadVisibility = map[ThreadType][]PartyType{
	ThreadGeneral:   {PartyBorrower, PartyLender, PartyAdmin},
	ThreadLegal:     {PartyLender, PartySolicitor, PartyAdmin},
	ThreadValuation: {PartyLender, PartyBorrower, PartyValuer, PartyAdmin},
	ThreadIMS:       {PartyLender, PartyBorrower, PartyMonitoringSurveyor, PartyAdmin},
}

// DealMessageThread is a role-scoped communication channel on a deal.
type DealMessageThread struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DealID uuid.UUID `gorm:"type:uuid;not null;index" json:"deal_id"`
	Deal   Deal      `gorm:"foreignKey:DealID" json:"-"`

	ThreadType ThreadType `gorm:"not null;default:'general'" json:"thread_type"`
	Title      string     `gorm:"not null" json:"title"`
	IsPrivate  bool       `gorm:"not null;default:false" json:"is_private"`

	Participants []ThreadParticipant `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE" json:"-"`
	Messages     []DealMessage       `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE" json:"-"`
}

// ThreadParticipant grants a party type (role-scoped threads) or a
// specific party (private threads) visibility of a thread.
type ThreadParticipant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	ThreadID uuid.UUID         `gorm:"type:uuid;not null;index" json:"thread_id"`
	Thread   DealMessageThread `gorm:"foreignKey:ThreadID" json:"-"`

	PartyType PartyType  `json:"party_type,omitempty"`
	PartyID   *uuid.UUID `gorm:"type:uuid" json:"party_id,omitempty"`
	Party     *DealParty `gorm:"foreignKey:PartyID" json:"-"`
}

// DealMessage is a single message within a thread.
type DealMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	ThreadID uuid.UUID         `gorm:"type:uuid;not null;index" json:"thread_id"`
	Thread   DealMessageThread `gorm:"foreignKey:ThreadID" json:"-"`

	SenderID uuid.UUID  `gorm:"type:uuid;not null" json:"sender_id"`
	Sender   *DealParty `gorm:"foreignKey:SenderID" json:"-"`

	Body string `gorm:"not null" json:"body"`

	Documents []DealDocumentLink `gorm:"polymorphic:Owner;polymorphicValue:message" json:"-"`
}

// DealDocumentLink stores an opaque reference to a document held in the
// external document store, attached to a CP, drawdown, message or the
// deal itself. Only the reference, category and visibility live here.
type DealDocumentLink struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DealID uuid.UUID `gorm:"type:uuid;not null;index" json:"deal_id"`

	OwnerType string    `gorm:"not null;index:idx_document_owner" json:"owner_type"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index:idx_document_owner" json:"owner_id"`

	DocumentRef string `gorm:"not null" json:"document_ref"`
	Category    string `json:"category,omitempty"`

	// VisibleTo restricts access to the listed party types; empty means
	// visible to all deal parties.
	VisibleTo  string `json:"visible_to,omitempty"`
	UploadedBy string `json:"uploaded_by,omitempty"`
}
