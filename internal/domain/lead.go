package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lead sources.
const (
	LeadSourceWebsite     = "website"
	LeadSourceReservation = "reservation"
	LeadSourceWebhook     = "webhook"
	LeadSourceManual      = "manual"
	LeadSourceReferral    = "referral"
)

// Lead statuses. Converted, not_interested and invalid close the lead.
const (
	LeadNew           = "new"
	LeadContacted     = "contacted"
	LeadInterested    = "interested"
	LeadConverted     = "converted"
	LeadNotInterested = "not_interested"
	LeadInvalid       = "invalid"
)

// ClosedLeadStatuses do not count towards an executive's open load.
var ClosedLeadStatuses = []string{LeadConverted, LeadNotInterested, LeadInvalid}

// LeadSources lists every accepted source.
var LeadSources = []string{LeadSourceWebsite, LeadSourceReservation, LeadSourceWebhook, LeadSourceManual, LeadSourceReferral}

// LeadStatuses lists every accepted status.
var LeadStatuses = []string{LeadNew, LeadContacted, LeadInterested, LeadConverted, LeadNotInterested, LeadInvalid}

// Lead is a prospect contact record. Email is not unique but acts as the
// dedup key. Once converted, AssignedExecutiveID and ConvertedUserID are frozen.
type Lead struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email               string         `gorm:"column:email;not null;index" json:"email"`
	Name                string         `gorm:"column:name" json:"name"`
	Phone               string         `gorm:"column:phone" json:"phone"`
	Source              string         `gorm:"column:source;not null;index" json:"source"`
	SourceDetail        string         `gorm:"column:source_detail" json:"source_detail"`
	Status              string         `gorm:"column:status;not null;default:new;index" json:"status"`
	AssignedExecutiveID *uuid.UUID     `gorm:"column:assigned_executive_id;type:uuid;index" json:"assigned_executive_id"`
	AssignedAt          *time.Time     `gorm:"column:assigned_at" json:"assigned_at"`
	ConvertedUserID     *uuid.UUID     `gorm:"column:converted_user_id;type:uuid" json:"converted_user_id"`
	ConvertedAt         *time.Time     `gorm:"column:converted_at" json:"converted_at"`
	InterestedProjectID *uuid.UUID     `gorm:"column:interested_project_id;type:uuid" json:"interested_project_id"`
	Notes               string         `gorm:"column:notes" json:"notes"`
	ExternalPayload     datatypes.JSON `gorm:"column:external_payload" json:"external_payload,omitempty"`
	Interactions        []Interaction  `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE" json:"interactions,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = LeadNew
	}
	return nil
}

// IsConverted reports whether the lead became an investor.
func (l *Lead) IsConverted() bool {
	return l.Status == LeadConverted
}

// Interaction types.
const (
	InteractionCall     = "call"
	InteractionEmail    = "email"
	InteractionMeeting  = "meeting"
	InteractionWhatsApp = "whatsapp"
	InteractionChat     = "chat"
	InteractionNote     = "note"
)

// InteractionTypes lists every accepted interaction type.
var InteractionTypes = []string{InteractionCall, InteractionEmail, InteractionMeeting, InteractionWhatsApp, InteractionChat, InteractionNote}

// Interaction is an append-only log entry on a lead.
type Interaction struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LeadID      uuid.UUID  `gorm:"column:lead_id;type:uuid;not null;index" json:"lead_id"`
	Type        string     `gorm:"column:type;not null" json:"type"`
	Description string     `gorm:"column:description;not null" json:"description"`
	Outcome     string     `gorm:"column:outcome" json:"outcome"`
	ExecutiveID *uuid.UUID `gorm:"column:executive_id;type:uuid" json:"executive_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Interaction) TableName() string {
	return "lead_interactions"
}

func (i *Interaction) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
