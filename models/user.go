package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a tenant account in the system
type User struct {
	gorm.Model

	// Authentication fields
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string `gorm:"not null" json:"-"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`
	TokenVersion  int    `gorm:"default:0" json:"-"`

	// Google OAuth fields
	GoogleID       *string `gorm:"uniqueIndex" json:"google_id,omitempty"`
	GoogleImageURL *string `json:"google_image_url,omitempty"`

	// Profile information
	Name        *string `json:"name,omitempty"`
	CompanyName string  `json:"company_name"`
	Timezone    string  `gorm:"default:'UTC'" json:"timezone"`
	Language    string  `gorm:"default:'en'" json:"language"`

	// Account status
	IsActive bool `gorm:"default:true" json:"is_active"`
	IsAdmin  bool `gorm:"default:false" json:"is_admin"`

	// Collections settings
	AutoRunEnabled   bool   `gorm:"default:false" json:"auto_run_enabled"` // opt-in for the dunning worker
	DefaultTone      string `gorm:"default:'standard'" json:"default_tone"`
	DefaultApproach  string `gorm:"default:'standard'" json:"default_approach"`
	ReplyToEmail     string `json:"reply_to_email"`
	SignatureName    string `json:"signature_name"` // name used to sign outreach messages
	SignatureCompany string `json:"signature_company"`

	// Credit-based plan information
	PlanID          *uint      `json:"plan_id,omitempty"`
	PlanName        string     `gorm:"default:'free'" json:"plan_name"` // free, starter, grow, enterprise
	DraftCredits    int        `gorm:"default:500" json:"draft_credits"`
	CreditsConsumed int        `gorm:"default:0" json:"credits_consumed"`
	LastCreditReset *time.Time `json:"last_credit_reset"`

	// Stripe integration
	StripeCustomerID    *string `gorm:"index" json:"stripe_customer_id,omitempty"`
	StripePaymentMethod *string `json:"stripe_payment_method,omitempty"`
	DefaultCurrency     string  `gorm:"default:'usd'" json:"default_currency"`

	// Relations
	Invoices     []Invoice            `gorm:"foreignKey:UserID" json:"invoices,omitempty"`
	Debtors      []Debtor             `gorm:"foreignKey:UserID" json:"debtors,omitempty"`
	Workflows    []CollectionWorkflow `gorm:"foreignKey:UserID" json:"workflows,omitempty"`
	Mailboxes    []Mailbox            `gorm:"foreignKey:UserID" json:"mailboxes,omitempty"`
	Transactions []CreditTransaction  `gorm:"foreignKey:UserID" json:"transactions,omitempty"`
}

// RefreshToken stores issued refresh tokens so they can be revoked
type RefreshToken struct {
	gorm.Model
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`

	User User `json:"-"`
}
