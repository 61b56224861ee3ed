package models

import "gorm.io/gorm"

// Plan represents available draft-credit packages
type Plan struct {
	gorm.Model
	Name        string `gorm:"not null;uniqueIndex" json:"name"` // free, starter, grow, enterprise
	Description string `json:"description"`

	// Draft generation credits
	DraftCredits int `gorm:"not null" json:"draft_credits"`
	Price        int `gorm:"not null" json:"price"` // in cents

	// Features
	MaxMailboxes   int  `gorm:"default:1" json:"max_mailboxes"`
	MaxWorkflows   int  `gorm:"default:3" json:"max_workflows"`
	AutoRunEnabled bool `gorm:"default:false" json:"auto_run_enabled"`
	SMSEnabled     bool `gorm:"default:false" json:"sms_enabled"`

	// For display purposes
	DisplayPrice string `gorm:"-" json:"display_price"` // e.g. "$29"
	IsPopular    bool   `gorm:"default:false" json:"is_popular"`
	Recommended  bool   `gorm:"default:false" json:"recommended"`

	StripePriceID   string `json:"stripe_price_id"`
	BillingInterval string `json:"billing_interval" gorm:"default:'one_time'"` // one_time, monthly, yearly
}

// CreditTransaction records credit purchases and usage
type CreditTransaction struct {
	gorm.Model
	UserID uint  `gorm:"not null;index" json:"user_id"`
	PlanID *uint `json:"plan_id,omitempty"`

	// Credit changes: positive for purchases, negative for usage
	DraftCredits int `gorm:"not null" json:"draft_credits"`

	// Financial information
	Amount        int    `json:"amount"` // in cents
	Currency      string `gorm:"default:'USD'" json:"currency"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `gorm:"default:'pending'" json:"payment_status"` // pending, completed, failed, refunded

	// Metadata
	Description string `json:"description"`
	ReferenceID string `json:"reference_id"`

	StripePaymentIntentID string `json:"stripe_payment_intent_id"`
	StripeChargeID        string `json:"stripe_charge_id"`
	ReceiptURL            string `json:"receipt_url,omitempty"`

	// Relations
	User User  `json:"-"`
	Plan *Plan `json:"plan,omitempty"`
}

// CreditUsage tracks per-draft credit consumption
type CreditUsage struct {
	gorm.Model
	UserID    uint  `gorm:"not null;index" json:"user_id"`
	DraftID   *uint `json:"draft_id,omitempty"`
	InvoiceID *uint `json:"invoice_id,omitempty"`

	Amount int    `gorm:"not null" json:"amount"` // always positive
	Action string `gorm:"not null" json:"action"` // generate_draft, regenerate_draft
	RunID  string `json:"run_id,omitempty"`

	// Relations
	User  User   `json:"-"`
	Draft *Draft `json:"draft,omitempty"`
}
