package controller

import (
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"collectra/models"
	"collectra/utils"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ReplyController ingests debtor replies from tenant mailboxes and
// attaches them to invoice timelines. An ingested reply is a strong
// signal to pause dunning, so operators review them before the next
// run.
type ReplyController struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewReplyController(db *gorm.DB, logger *log.Logger) *ReplyController {
	return &ReplyController{
		db:     db,
		logger: logger,
	}
}

// FetchReplies polls every IMAP-configured mailbox of the tenant and
// ingests new messages that reference an open invoice.
func (rc *ReplyController) FetchReplies(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	ingested, err := rc.IngestReplies(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Reply fetch failed: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Reply fetch completed",
		"ingested": ingested,
	})
}

// IngestReplies does the actual polling; shared between the API
// endpoint and the reply worker.
func (rc *ReplyController) IngestReplies(userID uint) (int, error) {
	var mailboxes []models.Mailbox
	if err := rc.db.Where("user_id = ? AND is_active = ? AND imap_host <> ''", userID, true).Find(&mailboxes).Error; err != nil {
		return 0, fmt.Errorf("failed to load mailboxes: %w", err)
	}

	total := 0
	for i := range mailboxes {
		n, err := rc.fetchFromIMAP(&mailboxes[i], userID)
		if err != nil {
			rc.logger.Printf("Failed to fetch replies from mailbox %d: %v", mailboxes[i].ID, err)
			continue
		}
		total += n
	}
	return total, nil
}

func (rc *ReplyController) fetchFromIMAP(mailbox *models.Mailbox, userID uint) (int, error) {
	password, err := utils.Decrypt(mailbox.IMAPPassword)
	if err != nil {
		return 0, fmt.Errorf("failed to decrypt IMAP password: %w", err)
	}

	var imapClient *client.Client
	imapAddr := fmt.Sprintf("%s:%d", mailbox.IMAPHost, mailbox.IMAPPort)

	switch strings.ToUpper(mailbox.IMAPEncryption) {
	case "SSL", "TLS":
		imapClient, err = client.DialTLS(imapAddr, &tls.Config{
			InsecureSkipVerify: false,
			ServerName:         mailbox.IMAPHost,
		})
	case "STARTTLS":
		imapClient, err = client.Dial(imapAddr)
		if err == nil {
			err = imapClient.StartTLS(&tls.Config{
				InsecureSkipVerify: false,
				ServerName:         mailbox.IMAPHost,
			})
		}
	default:
		imapClient, err = client.Dial(imapAddr)
	}

	if err != nil {
		return 0, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(mailbox.IMAPUsername, password); err != nil {
		return 0, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	folder := "INBOX"
	if mailbox.IMAPMailbox != "" {
		folder = mailbox.IMAPMailbox
	}

	if _, err := imapClient.Select(folder, false); err != nil {
		return 0, fmt.Errorf("failed to select mailbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	if mailbox.LastPolledAt != nil {
		// SINCE has day granularity; the message-ID dedupe below
		// absorbs the overlap.
		criteria.Since = *mailbox.LastPolledAt
	} else {
		criteria.WithoutFlags = []string{"\\Seen"}
	}

	ids, err := imapClient.Search(criteria)
	if err != nil {
		return 0, fmt.Errorf("failed to search messages: %w", err)
	}

	polled := time.Now()
	if len(ids) == 0 {
		rc.advanceHighWaterMark(mailbox, polled)
		return 0, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]")}, messages)
	}()

	// Load the tenant's open invoices once for number matching
	var invoices []models.Invoice
	if err := rc.db.
		Preload("Debtor").
		Preload("Debtor.Contacts").
		Where("user_id = ? AND status IN ?", userID, models.OpenInvoiceStatuses).
		Find(&invoices).Error; err != nil {
		return 0, fmt.Errorf("failed to load open invoices: %w", err)
	}

	ingested := 0
	for msg := range messages {
		ok, err := rc.processIMAPMessage(msg, userID, invoices)
		if err != nil {
			rc.logger.Printf("Failed to process message %d: %v", msg.SeqNum, err)
			continue
		}
		if ok {
			ingested++
		}
	}

	if err := <-done; err != nil {
		return ingested, fmt.Errorf("error during fetch: %w", err)
	}

	rc.advanceHighWaterMark(mailbox, polled)
	return ingested, nil
}

// processIMAPMessage parses one message and, when it matches an open
// invoice, records a reply_received event on that invoice's timeline.
func (rc *ReplyController) processIMAPMessage(msg *imap.Message, userID uint, invoices []models.Invoice) (bool, error) {
	if msg.Envelope == nil || msg.Envelope.MessageId == "" {
		return false, nil
	}

	// Dedupe on the message ID: SINCE-based polling re-reads messages.
	var existing int64
	if err := rc.db.Model(&models.InvoiceEvent{}).
		Where("user_id = ? AND message_id = ?", userID, msg.Envelope.MessageId).
		Count(&existing).Error; err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	bodyText, err := messagePlainText(msg)
	if err != nil {
		return false, err
	}

	invoice := matchInvoice(invoices, msg.Envelope.Subject, bodyText, senderEmail(msg.Envelope.From))
	if invoice == nil {
		return false, nil
	}

	summary := msg.Envelope.Subject
	if summary == "" {
		summary = "Reply received"
	}

	event := models.InvoiceEvent{
		InvoiceID:  invoice.ID,
		UserID:     userID,
		EventType:  "reply_received",
		OccurredAt: msg.Envelope.Date,
		Summary:    summary,
		Body:       bodyText,
		FromEmail:  senderEmail(msg.Envelope.From),
		MessageID:  msg.Envelope.MessageId,
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := rc.db.Create(&event).Error; err != nil {
		return false, fmt.Errorf("failed to save reply event: %w", err)
	}

	rc.logger.Printf("Ingested reply for invoice %s from %s", invoice.InvoiceNumber, event.FromEmail)
	return true, nil
}

// messagePlainText extracts the first text/plain part of a fetched
// message. Section lookup goes through GetBody, which matches
// sections by value; msg.Body keys are pointers the fetch response
// allocated.
func messagePlainText(msg *imap.Message) (string, error) {
	if len(msg.Body) == 0 {
		return "", nil
	}

	section := imap.BodySectionName{}
	literal := msg.GetBody(&section)
	if literal == nil {
		return "", fmt.Errorf("message body not found")
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return "", fmt.Errorf("failed to create message reader: %w", err)
	}

	var bodyText string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return "", fmt.Errorf("failed to read next part: %w", err)
		}

		if h, ok := p.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := h.ContentType()
			if strings.Contains(contentType, "text/plain") {
				b, err := io.ReadAll(p.Body)
				if err != nil {
					return "", fmt.Errorf("failed to read body: %w", err)
				}
				bodyText = string(b)
			}
		}
	}
	return bodyText, nil
}

func (rc *ReplyController) advanceHighWaterMark(mailbox *models.Mailbox, polled time.Time) {
	if err := rc.db.Model(mailbox).Update("last_polled_at", polled).Error; err != nil {
		rc.logger.Printf("Failed to update poll mark for mailbox %d: %v", mailbox.ID, err)
	}
}

// matchInvoice finds the open invoice a reply refers to: invoice
// number in the subject or body wins; otherwise fall back to the
// sender's address matching a debtor contact. Ambiguous contact
// matches resolve to the most overdue invoice.
func matchInvoice(invoices []models.Invoice, subject, body, fromEmail string) *models.Invoice {
	haystack := strings.ToLower(subject + "\n" + body)
	for i := range invoices {
		if invoices[i].InvoiceNumber != "" &&
			strings.Contains(haystack, strings.ToLower(invoices[i].InvoiceNumber)) {
			return &invoices[i]
		}
	}

	if fromEmail == "" {
		return nil
	}
	from := strings.ToLower(fromEmail)
	var match *models.Invoice
	for i := range invoices {
		for _, contact := range invoices[i].Debtor.Contacts {
			if strings.ToLower(contact.Email) != from {
				continue
			}
			if match == nil || invoices[i].DueDate.Before(match.DueDate) {
				match = &invoices[i]
			}
		}
	}
	return match
}

func senderEmail(addrs []*imap.Address) string {
	for _, addr := range addrs {
		if addr.MailboxName != "" && addr.HostName != "" {
			return addr.MailboxName + "@" + addr.HostName
		}
	}
	return ""
}
