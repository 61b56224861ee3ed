package controller

import (
	"log"
	"time"

	"collectra/engine"
	"collectra/models"
	"collectra/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewDashboardController(db *gorm.DB, logger *log.Logger) *DashboardController {
	return &DashboardController{
		DB:     db,
		Logger: logger,
	}
}

type DashboardStats struct {
	OpenInvoices     int64 `json:"open_invoices"`
	OutstandingCents int64 `json:"outstanding_cents"`
	PendingDrafts    int64 `json:"pending_drafts"`
	DraftsSent       int64 `json:"drafts_sent"`
	RepliesReceived  int64 `json:"replies_received"`
	DraftCredits     int   `json:"draft_credits"`
}

type BucketSummary struct {
	Bucket       string `json:"bucket"`
	InvoiceCount int    `json:"invoice_count"`
	AmountCents  int64  `json:"amount_cents"`
}

// GetDashboardStats returns summary statistics for the dashboard cards
func (dc *DashboardController) GetDashboardStats(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	timeFrame := c.Query("time_frame", "week") // day, week, month

	now := time.Now()
	var startTime time.Time
	switch timeFrame {
	case "day":
		startTime = now.Add(-24 * time.Hour)
	case "month":
		startTime = now.Add(-30 * 24 * time.Hour)
	default:
		startTime = now.Add(-7 * 24 * time.Hour)
	}

	stats := DashboardStats{DraftCredits: user.DraftCredits}

	if err := dc.DB.Model(&models.Invoice{}).
		Where("user_id = ? AND status IN ?", user.ID, models.OpenInvoiceStatuses).
		Count(&stats.OpenInvoices).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get invoice stats", err)
	}

	var outstanding *int64
	if err := dc.DB.Model(&models.Invoice{}).
		Select("SUM(amount_cents)").
		Where("user_id = ? AND status IN ?", user.ID, models.OpenInvoiceStatuses).
		Scan(&outstanding).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get outstanding amount", err)
	}
	if outstanding != nil {
		stats.OutstandingCents = *outstanding
	}

	dc.DB.Model(&models.Draft{}).
		Where("user_id = ? AND status = ?", user.ID, models.DraftStatusPendingApproval).
		Count(&stats.PendingDrafts)

	dc.DB.Model(&models.Draft{}).
		Where("user_id = ? AND status = ? AND sent_at BETWEEN ? AND ?",
			user.ID, models.DraftStatusSent, startTime, now).
		Count(&stats.DraftsSent)

	dc.DB.Model(&models.InvoiceEvent{}).
		Where("user_id = ? AND event_type = ? AND occurred_at BETWEEN ? AND ?",
			user.ID, "reply_received", startTime, now).
		Count(&stats.RepliesReceived)

	return c.JSON(utils.SuccessResponse(stats))
}

// GetAgingSummary buckets the tenant's open invoices by days past due.
// Classification runs through the same bucket table the engine uses,
// so the dashboard and the orchestrator never disagree on membership.
func (dc *DashboardController) GetAgingSummary(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var invoices []models.Invoice
	if err := dc.DB.
		Where("user_id = ? AND status IN ?", user.ID, models.OpenInvoiceStatuses).
		Find(&invoices).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load invoices", err)
	}

	byBucket := make(map[string]*BucketSummary, len(models.AgingBuckets))
	summaries := make([]*BucketSummary, 0, len(models.AgingBuckets))
	for _, label := range models.AgingBuckets {
		s := &BucketSummary{Bucket: label}
		byBucket[label] = s
		summaries = append(summaries, s)
	}

	today := time.Now()
	for i := range invoices {
		_, bucket, err := engine.Classify(engine.DefaultBucketTable, invoices[i].DueDate, today)
		if err != nil {
			dc.Logger.Printf("Failed to classify invoice %s: %v", invoices[i].InvoiceNumber, err)
			continue
		}
		s := byBucket[bucket.Label]
		s.InvoiceCount++
		s.AmountCents += invoices[i].AmountCents
	}

	return c.JSON(utils.SuccessResponse(summaries))
}

// GetRecentRuns returns data for the recent runs table
func (dc *DashboardController) GetRecentRuns(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	limit := c.QueryInt("limit", 5)

	var runs []models.CollectionRun
	if err := dc.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get runs", err)
	}

	return c.JSON(utils.SuccessResponse(runs))
}
