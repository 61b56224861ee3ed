package controller

import (
	"fmt"
	"time"

	"collectra/config"
	"collectra/models"
	"collectra/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type EditDraftRequest struct {
	Subject     *string `json:"subject" validate:"omitempty,max=300"`
	MessageBody *string `json:"message_body" validate:"omitempty,min=1"`
}

func GetDrafts(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := config.DB.Model(&models.Draft{}).Where("user_id = ?", user.ID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if invoiceID := c.Query("invoice_id"); invoiceID != "" {
		query = query.Where("invoice_id = ?", utils.ParseUint(invoiceID))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count drafts",
		})
	}

	var drafts []models.Draft
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&drafts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch drafts",
		})
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  drafts,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func GetDraft(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var draft models.Draft
	if err := config.DB.
		Preload("Invoice").
		Preload("Invoice.Debtor").
		Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&draft).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Draft not found",
		})
	}

	return c.JSON(draft)
}

// EditDraft lets a reviewer touch up copy before approval. Approved
// and terminal drafts are immutable.
func EditDraft(c *fiber.Ctx) error {
	var req EditDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	user := c.Locals("user").(*models.User)

	var draft models.Draft
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&draft).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Draft not found",
		})
	}

	if draft.Status != models.DraftStatusPendingApproval {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Only pending drafts can be edited",
		})
	}

	if req.Subject != nil {
		draft.Subject = *req.Subject
	}
	if req.MessageBody != nil {
		draft.MessageBody = *req.MessageBody
	}

	if err := config.DB.Save(&draft).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update draft",
		})
	}

	return c.JSON(draft)
}

// ApproveDraft marks a pending draft ready for delivery. The delivery
// worker picks it up once its recommended send date arrives.
func ApproveDraft(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var draft models.Draft
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&draft).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Draft not found",
		})
	}

	if draft.Status != models.DraftStatusPendingApproval {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Draft is not pending approval",
		})
	}

	now := time.Now()
	draft.Status = models.DraftStatusApproved
	draft.ApprovedAt = &now

	if err := config.DB.Save(&draft).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to approve draft",
		})
	}

	return c.JSON(draft)
}

// MarkDraftSent records an out-of-band delivery. SMS drafts have no
// delivery worker, so tenants report sending them through their own
// channel here; email drafts already delivered elsewhere may use it
// too.
func MarkDraftSent(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var draft models.Draft
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&draft).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Draft not found",
		})
	}

	if draft.Status != models.DraftStatusApproved {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Only approved drafts can be marked sent",
		})
	}

	now := time.Now()
	draft.Status = models.DraftStatusSent
	draft.SentAt = &now

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&draft).Error; err != nil {
			return err
		}
		draftID := draft.ID
		return tx.Create(&models.InvoiceEvent{
			InvoiceID:  draft.InvoiceID,
			UserID:     user.ID,
			DraftID:    &draftID,
			EventType:  "draft_sent",
			OccurredAt: now,
			Summary:    fmt.Sprintf("Step %d %s marked sent manually", draft.StepNumber, draft.Channel),
		}).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to mark draft sent",
		})
	}

	return c.JSON(draft)
}

// RejectDraft discards a pending draft. Rejection is terminal, so the
// step becomes eligible again on the next run.
func RejectDraft(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var draft models.Draft
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&draft).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Draft not found",
		})
	}

	if draft.Status != models.DraftStatusPendingApproval && draft.Status != models.DraftStatusApproved {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Draft is already terminal",
		})
	}

	draft.Status = models.DraftStatusRejected
	draft.ApprovedAt = nil

	if err := config.DB.Save(&draft).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reject draft",
		})
	}

	return c.JSON(draft)
}
