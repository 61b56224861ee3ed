package models

import (
	"time"

	"gorm.io/gorm"
)

// Invoice statuses. Open and InPaymentPlan are the "open" set eligible
// for collections processing; everything else is terminal for dunning.
const (
	InvoiceStatusOpen          = "open"
	InvoiceStatusInPaymentPlan = "in_payment_plan"
	InvoiceStatusPaid          = "paid"
	InvoiceStatusDisputed      = "disputed"
	InvoiceStatusWrittenOff    = "written_off"
)

// OpenInvoiceStatuses is the status set the collections engine acts on.
var OpenInvoiceStatuses = []string{InvoiceStatusOpen, InvoiceStatusInPaymentPlan}

// Invoice represents a receivable owed by a debtor
type Invoice struct {
	gorm.Model
	UserID   uint `gorm:"not null;index" json:"user_id"`
	DebtorID uint `gorm:"not null;index" json:"debtor_id"`

	InvoiceNumber string    `gorm:"not null;index" json:"invoice_number"`
	AmountCents   int64     `gorm:"not null" json:"amount_cents"`
	Currency      string    `gorm:"default:'USD'" json:"currency"`
	IssuedAt      time.Time `json:"issued_at"`
	DueDate       time.Time `gorm:"not null;index" json:"due_date"`
	Status        string    `gorm:"default:'open';index" json:"status"`

	// Free-form description shown in generated messages
	Description string `json:"description"`

	// Relations
	Debtor Debtor         `json:"debtor"`
	Drafts []Draft        `gorm:"foreignKey:InvoiceID" json:"drafts,omitempty"`
	Events []InvoiceEvent `gorm:"foreignKey:InvoiceID" json:"events,omitempty"`
}

// IsOpen reports whether the invoice is still subject to collections.
func (i *Invoice) IsOpen() bool {
	return i.Status == InvoiceStatusOpen || i.Status == InvoiceStatusInPaymentPlan
}

// Debtor represents a company or person that owes money
type Debtor struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name    string `gorm:"not null" json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
	Notes   string `gorm:"type:text" json:"notes"`

	// Relations
	Contacts []DebtorContact `gorm:"foreignKey:DebtorID" json:"contacts,omitempty"`
	Invoices []Invoice       `gorm:"foreignKey:DebtorID" json:"invoices,omitempty"`
}

// DisplayName resolves the name used in outreach copy: the primary
// outreach-enabled contact wins, then any outreach-enabled contact,
// then the debtor's own name.
func (d *Debtor) DisplayName() string {
	var fallback string
	for _, c := range d.Contacts {
		if !c.OutreachEnabled || c.Name == "" {
			continue
		}
		if c.IsPrimary {
			return c.Name
		}
		if fallback == "" {
			fallback = c.Name
		}
	}
	if fallback != "" {
		return fallback
	}
	return d.Name
}

// PrimaryContact returns the contact outreach should be addressed to,
// or nil when no contact is enabled for outreach.
func (d *Debtor) PrimaryContact() *DebtorContact {
	var fallback *DebtorContact
	for i := range d.Contacts {
		c := &d.Contacts[i]
		if !c.OutreachEnabled {
			continue
		}
		if c.IsPrimary {
			return c
		}
		if fallback == nil {
			fallback = c
		}
	}
	return fallback
}

// DebtorContact is a reachable person at a debtor
type DebtorContact struct {
	gorm.Model
	DebtorID uint `gorm:"not null;index" json:"debtor_id"`

	Name  string `json:"name"`
	Email string `gorm:"index" json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`

	OutreachEnabled bool `gorm:"default:true" json:"outreach_enabled"`
	IsPrimary       bool `gorm:"default:false" json:"is_primary"`

	// Deliverability check results
	EmailVerified   bool    `gorm:"default:false" json:"email_verified"`
	EmailStatus     string  `json:"email_status"` // valid, invalid, disposable, catch-all, unknown
	LastVerifiedAt  *string `json:"last_verified_at,omitempty"`
	VerifierDetails string  `json:"verifier_details,omitempty"`
}

// InvoiceEvent is a timeline entry on an invoice: status changes,
// outreach sends, and ingested debtor replies.
type InvoiceEvent struct {
	gorm.Model
	InvoiceID uint  `gorm:"not null;index" json:"invoice_id"`
	UserID    uint  `gorm:"not null;index" json:"user_id"`
	DraftID   *uint `json:"draft_id,omitempty"`

	EventType  string    `gorm:"not null" json:"event_type"` // status_change, draft_sent, reply_received, note
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`
	Summary    string    `json:"summary"`
	Body       string    `gorm:"type:text" json:"body"`
	FromEmail  string    `json:"from_email,omitempty"`
	MessageID  string    `gorm:"index" json:"message_id,omitempty"`

	Invoice Invoice `json:"-"`
}
