package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"collectra/models"
	"collectra/utils"

	"gorm.io/gorm"
)

// DeliveryWorker sends approved email drafts once their recommended
// send time has passed. SMS drafts are left for the tenant to deliver
// through their own channel; we only mark and send email.
type DeliveryWorker struct {
	DB       *gorm.DB
	Mailer   *utils.DraftMailer
	Logger   *log.Logger
	Interval time.Duration
}

func NewDeliveryWorker(db *gorm.DB, mailer *utils.DraftMailer, logger *log.Logger, intervalMinutes int) *DeliveryWorker {
	return &DeliveryWorker{
		DB:       db,
		Mailer:   mailer,
		Logger:   logger,
		Interval: time.Duration(intervalMinutes) * time.Minute,
	}
}

func (dw *DeliveryWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(15 * time.Second)

	dw.Logger.Println("Delivery worker started")

	ticker := time.NewTicker(dw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dw.Logger.Println("Delivery worker shutting down...")
			return
		case <-ticker.C:
			dw.resetDailyCounters()
			dw.processDueDrafts(ctx)
		}
	}
}

func (dw *DeliveryWorker) processDueDrafts(ctx context.Context) {
	var drafts []models.Draft
	if err := dw.DB.Where("status = ? AND channel = ? AND recommended_send_at <= ?",
		models.DraftStatusApproved, models.ChannelEmail, time.Now()).
		Preload("Invoice").
		Preload("Invoice.Debtor").
		Preload("Invoice.Debtor.Contacts").
		Order("recommended_send_at ASC").
		Limit(100).
		Find(&drafts).Error; err != nil {
		dw.Logger.Printf("Error fetching due drafts: %v", err)
		return
	}

	for i := range drafts {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := dw.deliverDraft(&drafts[i]); err != nil {
			dw.Logger.Printf("Error delivering draft %d: %v", drafts[i].ID, err)
		}
	}
}

func (dw *DeliveryWorker) deliverDraft(draft *models.Draft) error {
	contact := draft.Invoice.Debtor.PrimaryContact()
	if contact == nil {
		return fmt.Errorf("no outreach-enabled contact for debtor %d", draft.Invoice.DebtorID)
	}

	mailbox, err := dw.pickMailbox(draft.UserID)
	if err != nil {
		return err
	}

	messageID, err := dw.Mailer.SendDraft(mailbox, contact.Email, contact.Name, draft)
	if err != nil {
		utils.ReportError("draft_delivery_failed", err, map[string]interface{}{
			"draft_id":   draft.ID,
			"user_id":    draft.UserID,
			"mailbox_id": mailbox.ID,
		})
		return err
	}

	now := time.Now()
	return dw.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(draft).Updates(map[string]interface{}{
			"status":              models.DraftStatusSent,
			"sent_at":             now,
			"delivery_message_id": messageID,
		}).Error; err != nil {
			return err
		}

		draftID := draft.ID
		event := models.InvoiceEvent{
			InvoiceID:  draft.InvoiceID,
			UserID:     draft.UserID,
			DraftID:    &draftID,
			EventType:  "draft_sent",
			OccurredAt: now,
			Summary:    fmt.Sprintf("Step %d email sent to %s", draft.StepNumber, contact.Email),
			FromEmail:  mailbox.FromEmail,
			MessageID:  messageID,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		return tx.Model(mailbox).Updates(map[string]interface{}{
			"sent_today": gorm.Expr("sent_today + ?", 1),
			"total_sent": gorm.Expr("total_sent + ?", 1),
		}).Error
	})
}

// pickMailbox returns the tenant's verified mailbox with the most
// remaining daily headroom.
func (dw *DeliveryWorker) pickMailbox(userID uint) (*models.Mailbox, error) {
	var mailbox models.Mailbox
	err := dw.DB.Where("user_id = ? AND is_active = ? AND smtp_verified = ? AND sent_today < daily_limit",
		userID, true, true).
		Order("daily_limit - sent_today DESC").
		First(&mailbox).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("no verified mailbox with remaining capacity for user %d", userID)
		}
		return nil, err
	}
	return &mailbox, nil
}

func (dw *DeliveryWorker) resetDailyCounters() {
	startOfDay := time.Now().Truncate(24 * time.Hour)
	if err := dw.DB.Model(&models.Mailbox{}).
		Where("sent_today > 0 AND updated_at < ?", startOfDay).
		Update("sent_today", 0).Error; err != nil {
		dw.Logger.Printf("Error resetting daily counters: %v", err)
	}
}
