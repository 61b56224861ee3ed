package models

import (
	"time"

	"gorm.io/gorm"
)

// Mailbox holds a tenant's sending and receiving credentials. The
// delivery worker sends approved drafts through it over SMTP and the
// reply worker polls its IMAP inbox for debtor responses.
type Mailbox struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name      string `gorm:"not null" json:"name"`
	FromEmail string `gorm:"not null" json:"from_email"`
	FromName  string `gorm:"not null" json:"from_name"`

	// SMTP configuration
	SMTPHost     string `gorm:"not null" json:"smtp_host"`
	SMTPPort     int    `gorm:"not null" json:"smtp_port"`
	SMTPUsername string `gorm:"not null" json:"smtp_username"`
	SMTPPassword string `gorm:"not null" json:"-"`          // encrypted in application layer
	Encryption   string `gorm:"not null" json:"encryption"` // SSL, TLS, STARTTLS

	// IMAP configuration (reply ingestion)
	IMAPHost       string `json:"imap_host"`
	IMAPPort       int    `json:"imap_port" gorm:"default:993"`
	IMAPUsername   string `json:"imap_username"`
	IMAPPassword   string `json:"-"` // encrypted in application layer
	IMAPEncryption string `json:"imap_encryption" gorm:"default:'SSL'"`
	IMAPMailbox    string `json:"imap_mailbox" gorm:"default:'INBOX'"`

	// Status
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	SMTPVerified bool       `gorm:"default:false" json:"smtp_verified"`
	IMAPVerified bool       `gorm:"default:false" json:"imap_verified"`
	LastTestedAt *time.Time `json:"last_tested_at"`
	LastError    *string    `json:"last_error"`
	LastPolledAt *time.Time `json:"last_polled_at"` // reply worker high-water mark

	// Usage metrics
	DailyLimit int `gorm:"default:500" json:"daily_limit"`
	SentToday  int `gorm:"default:0" json:"sent_today"`
	TotalSent  int `gorm:"default:0" json:"total_sent"`
}
