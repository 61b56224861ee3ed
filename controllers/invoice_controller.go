package controller

import (
	"time"

	"gorm.io/gorm"

	"collectra/config"
	"collectra/models"
	"collectra/utils"
	"github.com/gofiber/fiber/v2"
)

type CreateInvoiceRequest struct {
	DebtorID      uint      `json:"debtor_id" validate:"required"`
	InvoiceNumber string    `json:"invoice_number" validate:"required,max=100"`
	AmountCents   int64     `json:"amount_cents" validate:"required,gt=0"`
	Currency      string    `json:"currency" validate:"omitempty,len=3"`
	IssuedAt      time.Time `json:"issued_at"`
	DueDate       time.Time `json:"due_date" validate:"required"`
	Description   string    `json:"description" validate:"omitempty,max=2000"`
}

type UpdateInvoiceRequest struct {
	AmountCents *int64     `json:"amount_cents" validate:"omitempty,gt=0"`
	Currency    *string    `json:"currency" validate:"omitempty,len=3"`
	DueDate     *time.Time `json:"due_date"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
}

type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_payment_plan paid disputed written_off"`
	Note   string `json:"note" validate:"omitempty,max=2000"`
}

func CreateInvoice(c *fiber.Ctx) error {
	var req CreateInvoiceRequest
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

	// Debtor must belong to the tenant
	var debtor models.Debtor
	if err := config.DB.Where("id = ? AND user_id = ?", req.DebtorID, user.ID).First(&debtor).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Debtor not found",
		})
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	issuedAt := req.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	invoice := models.Invoice{
		UserID:        user.ID,
		DebtorID:      debtor.ID,
		InvoiceNumber: req.InvoiceNumber,
		AmountCents:   req.AmountCents,
		Currency:      currency,
		IssuedAt:      issuedAt,
		DueDate:       req.DueDate,
		Status:        models.InvoiceStatusOpen,
		Description:   req.Description,
	}

	if err := config.DB.Create(&invoice).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create invoice",
		})
	}

	invoice.Debtor = debtor
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

func GetInvoices(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := config.DB.Model(&models.Invoice{}).Where("user_id = ?", user.ID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if debtorID := c.Query("debtor_id"); debtorID != "" {
		query = query.Where("debtor_id = ?", utils.ParseUint(debtorID))
	}
	if c.Query("open") == "true" {
		query = query.Where("status IN ?", models.OpenInvoiceStatuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count invoices",
		})
	}

	var invoices []models.Invoice
	if err := query.
		Preload("Debtor").
		Order("due_date ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&invoices).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch invoices",
		})
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  invoices,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func GetInvoice(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var invoice models.Invoice
	if err := config.DB.
		Preload("Debtor").
		Preload("Debtor.Contacts").
		Preload("Drafts", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&invoice).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invoice not found",
		})
	}

	return c.JSON(invoice)
}

func UpdateInvoice(c *fiber.Ctx) error {
	var req UpdateInvoiceRequest
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

	var invoice models.Invoice
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&invoice).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invoice not found",
		})
	}

	if req.AmountCents != nil {
		invoice.AmountCents = *req.AmountCents
	}
	if req.Currency != nil {
		invoice.Currency = *req.Currency
	}
	if req.DueDate != nil {
		invoice.DueDate = *req.DueDate
	}
	if req.Description != nil {
		invoice.Description = *req.Description
	}

	if err := config.DB.Save(&invoice).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update invoice",
		})
	}

	return c.JSON(invoice)
}

// UpdateInvoiceStatus transitions the invoice and records the change on
// its timeline. Moving an invoice out of the open set stops future
// dunning runs from touching it.
func UpdateInvoiceStatus(c *fiber.Ctx) error {
	var req UpdateInvoiceStatusRequest
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

	var invoice models.Invoice
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&invoice).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invoice not found",
		})
	}

	previous := invoice.Status
	if previous == req.Status {
		return c.JSON(invoice)
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		invoice.Status = req.Status
		if err := tx.Save(&invoice).Error; err != nil {
			return err
		}

		event := models.InvoiceEvent{
			InvoiceID:  invoice.ID,
			UserID:     user.ID,
			EventType:  "status_change",
			OccurredAt: time.Now(),
			Summary:    previous + " -> " + req.Status,
			Body:       req.Note,
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update invoice status",
		})
	}

	return c.JSON(invoice)
}

func DeleteInvoice(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var invoice models.Invoice
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&invoice).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invoice not found",
		})
	}

	if err := config.DB.Delete(&invoice).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete invoice",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetInvoiceTimeline returns the event history of one invoice
func GetInvoiceTimeline(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var invoice models.Invoice
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&invoice).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invoice not found",
		})
	}

	var events []models.InvoiceEvent
	if err := config.DB.
		Where("invoice_id = ?", invoice.ID).
		Order("occurred_at DESC").
		Find(&events).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch timeline",
		})
	}

	return c.JSON(events)
}
