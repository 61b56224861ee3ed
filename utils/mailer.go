package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"collectra/models"
)

// DraftMailer delivers approved email drafts through a tenant's own
// SMTP mailbox.
type DraftMailer struct{}

func NewDraftMailer() *DraftMailer {
	return &DraftMailer{}
}

// SendDraft sends one approved draft to the given recipient and
// returns the Message-ID used, so replies can be threaded back to the
// invoice.
func (dm *DraftMailer) SendDraft(mailbox *models.Mailbox, toEmail, toName string, draft *models.Draft) (string, error) {
	if toEmail == "" {
		return "", fmt.Errorf("no recipient email for draft %d", draft.ID)
	}

	password, err := Decrypt(mailbox.SMTPPassword)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt SMTP password: %w", err)
	}

	messageID := fmt.Sprintf("<%s@collectra>", uuid.New().String())

	m := gomail.NewMessage()
	m.SetAddressHeader("From", mailbox.FromEmail, mailbox.FromName)
	if toName != "" {
		m.SetAddressHeader("To", toEmail, toName)
	} else {
		m.SetHeader("To", toEmail)
	}
	m.SetHeader("Subject", draft.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/plain", draft.MessageBody)

	d := gomail.NewDialer(mailbox.SMTPHost, mailbox.SMTPPort, mailbox.SMTPUsername, password)
	switch strings.ToUpper(mailbox.Encryption) {
	case "SSL", "TLS":
		d.SSL = true
	}

	if err := d.DialAndSend(m); err != nil {
		return "", fmt.Errorf("SMTP send failed: %w", err)
	}
	return messageID, nil
}
