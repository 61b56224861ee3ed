package models

import (
	"time"

	"gorm.io/gorm"
)

// Draft statuses. A draft is non-terminal while pending_approval or
// approved; at most one non-terminal draft may exist per
// (invoice, workflow_step) pair — enforced by a partial unique index
// created in the config migration.
const (
	DraftStatusPendingApproval = "pending_approval"
	DraftStatusApproved        = "approved"
	DraftStatusRejected        = "rejected"
	DraftStatusSent            = "sent"
)

// NonTerminalDraftStatuses is the set counted by the de-duplication gate.
var NonTerminalDraftStatuses = []string{DraftStatusPendingApproval, DraftStatusApproved}

// Draft is a generated, not-yet-sent outreach message awaiting human
// approval. Created once by the draft writer; later transitioned by
// the review and delivery flows, never rewritten by the engine.
type Draft struct {
	gorm.Model
	UserID         uint `gorm:"not null;index" json:"user_id"`
	InvoiceID      uint `gorm:"not null;index" json:"invoice_id"`
	WorkflowStepID uint `gorm:"not null;index" json:"workflow_step_id"`
	PersonaID      uint `gorm:"not null" json:"persona_id"`

	Channel     string `gorm:"not null" json:"channel"` // email, sms
	Subject     string `json:"subject"`                 // empty for sms
	MessageBody string `gorm:"type:text;not null" json:"message_body"`

	StepNumber        int        `gorm:"not null" json:"step_number"`
	DaysPastDue       int        `gorm:"not null" json:"days_past_due"` // at creation time
	Status            string     `gorm:"default:'pending_approval';index" json:"status"`
	RecommendedSendAt time.Time  `gorm:"not null" json:"recommended_send_at"`
	ToneModifier      string     `json:"tone_modifier"`
	ApproachStyle     string     `json:"approach_style"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	DeliveryMessageID string     `gorm:"index" json:"delivery_message_id,omitempty"`

	// Relations
	Invoice      Invoice      `json:"-"`
	WorkflowStep WorkflowStep `json:"-"`
	Persona      Persona      `json:"-"`
}

// CollectionRun records one orchestrator invocation for auditing:
// which tenant/bucket ran, what it produced, and the collected errors.
type CollectionRun struct {
	gorm.Model
	UserID uint   `gorm:"not null;index" json:"user_id"`
	RunID  string `gorm:"not null;uniqueIndex" json:"run_id"`

	AgingBucket   string `gorm:"not null" json:"aging_bucket"`
	ToneModifier  string `json:"tone_modifier"`
	ApproachStyle string `json:"approach_style"`
	TriggeredBy   string `gorm:"default:'api'" json:"triggered_by"` // api, worker

	Status            string     `gorm:"default:'running'" json:"status"` // running, completed, failed
	InvoicesProcessed int        `gorm:"default:0" json:"invoices_processed"`
	DraftsCreated     int        `gorm:"default:0" json:"drafts_created"`
	DraftsSkipped     int        `gorm:"default:0" json:"drafts_skipped"`
	Errors            string     `gorm:"type:text" json:"errors"` // JSON array of error strings
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}
