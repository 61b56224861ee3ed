package controller

import (
	"time"

	"collectra/config"
	"collectra/models"
	"collectra/utils"
	"github.com/gofiber/fiber/v2"
)

type CreateDebtorRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Company string `json:"company" validate:"omitempty,max=200"`
	Phone   string `json:"phone" validate:"omitempty,max=50"`
	Website string `json:"website" validate:"omitempty,max=200"`
	Notes   string `json:"notes" validate:"omitempty,max=5000"`
}

type UpdateDebtorRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=200"`
	Company *string `json:"company" validate:"omitempty,max=200"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
	Website *string `json:"website" validate:"omitempty,max=200"`
	Notes   *string `json:"notes" validate:"omitempty,max=5000"`
}

type ContactRequest struct {
	Name            string `json:"name" validate:"omitempty,max=200"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,max=50"`
	Role            string `json:"role" validate:"omitempty,max=100"`
	OutreachEnabled *bool  `json:"outreach_enabled"`
	IsPrimary       *bool  `json:"is_primary"`
}

func CreateDebtor(c *fiber.Ctx) error {
	var req CreateDebtorRequest
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

	debtor := models.Debtor{
		UserID:  user.ID,
		Name:    req.Name,
		Company: req.Company,
		Phone:   req.Phone,
		Website: req.Website,
		Notes:   req.Notes,
	}

	if err := config.DB.Create(&debtor).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create debtor",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(debtor)
}

func GetDebtors(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := config.DB.Model(&models.Debtor{}).Where("user_id = ?", user.ID)
	if search := c.Query("search"); search != "" {
		query = query.Where("name ILIKE ? OR company ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count debtors",
		})
	}

	var debtors []models.Debtor
	if err := query.
		Preload("Contacts").
		Order("name ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&debtors).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch debtors",
		})
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  debtors,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func GetDebtor(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var debtor models.Debtor
	if err := config.DB.
		Preload("Contacts").
		Preload("Invoices").
		Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&debtor).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Debtor not found",
		})
	}

	return c.JSON(debtor)
}

func UpdateDebtor(c *fiber.Ctx) error {
	var req UpdateDebtorRequest
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

	var debtor models.Debtor
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&debtor).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Debtor not found",
		})
	}

	if req.Name != nil {
		debtor.Name = *req.Name
	}
	if req.Company != nil {
		debtor.Company = *req.Company
	}
	if req.Phone != nil {
		debtor.Phone = *req.Phone
	}
	if req.Website != nil {
		debtor.Website = *req.Website
	}
	if req.Notes != nil {
		debtor.Notes = *req.Notes
	}

	if err := config.DB.Save(&debtor).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update debtor",
		})
	}

	return c.JSON(debtor)
}

func DeleteDebtor(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var debtor models.Debtor
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&debtor).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Debtor not found",
		})
	}

	// Open invoices block deletion
	var openCount int64
	if err := config.DB.Model(&models.Invoice{}).
		Where("debtor_id = ? AND status IN ?", debtor.ID, models.OpenInvoiceStatuses).
		Count(&openCount).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check invoices",
		})
	}
	if openCount > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Debtor has open invoices",
		})
	}

	if err := config.DB.Delete(&debtor).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete debtor",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func AddDebtorContact(c *fiber.Ctx) error {
	var req ContactRequest
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

	var debtor models.Debtor
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&debtor).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Debtor not found",
		})
	}

	contact := models.DebtorContact{
		DebtorID:        debtor.ID,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Role:            req.Role,
		OutreachEnabled: true,
	}
	if req.OutreachEnabled != nil {
		contact.OutreachEnabled = *req.OutreachEnabled
	}
	if req.IsPrimary != nil {
		contact.IsPrimary = *req.IsPrimary
	}

	// Only one primary contact per debtor
	if contact.IsPrimary {
		if err := config.DB.Model(&models.DebtorContact{}).
			Where("debtor_id = ?", debtor.ID).
			Update("is_primary", false).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update contacts",
			})
		}
	}

	if err := config.DB.Create(&contact).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create contact",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(contact)
}

func UpdateDebtorContact(c *fiber.Ctx) error {
	var req ContactRequest
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

	contact, err := findTenantContact(user.ID, c.Params("id"), c.Params("contactId"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Contact not found",
		})
	}

	emailChanged := contact.Email != req.Email

	contact.Name = req.Name
	contact.Email = req.Email
	contact.Phone = req.Phone
	contact.Role = req.Role
	if req.OutreachEnabled != nil {
		contact.OutreachEnabled = *req.OutreachEnabled
	}
	if req.IsPrimary != nil {
		if *req.IsPrimary && !contact.IsPrimary {
			if err := config.DB.Model(&models.DebtorContact{}).
				Where("debtor_id = ?", contact.DebtorID).
				Update("is_primary", false).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Failed to update contacts",
				})
			}
		}
		contact.IsPrimary = *req.IsPrimary
	}

	// A changed address needs re-verification
	if emailChanged {
		contact.EmailVerified = false
		contact.EmailStatus = ""
		contact.VerifierDetails = ""
		contact.LastVerifiedAt = nil
	}

	if err := config.DB.Save(contact).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update contact",
		})
	}

	return c.JSON(contact)
}

func DeleteDebtorContact(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	contact, err := findTenantContact(user.ID, c.Params("id"), c.Params("contactId"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Contact not found",
		})
	}

	if err := config.DB.Delete(contact).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete contact",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// VerifyDebtorContact runs the deliverability check on a contact's
// address and stores the verdict. Contacts with a bounce-risk verdict
// should have outreach disabled by the operator.
func VerifyDebtorContact(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	contact, err := findTenantContact(user.ID, c.Params("id"), c.Params("contactId"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Contact not found",
		})
	}

	verification, err := utils.VerifyContactEmail(contact.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Verification failed",
		})
	}

	now := time.Now().Format(time.RFC3339)
	contact.EmailVerified = verification.Status == "valid"
	contact.EmailStatus = verification.Status
	contact.VerifierDetails = verification.Details
	contact.LastVerifiedAt = &now

	if err := config.DB.Save(contact).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save verification result",
		})
	}

	return c.JSON(verification)
}

// findTenantContact resolves a contact through its debtor's ownership.
func findTenantContact(userID uint, debtorID, contactID string) (*models.DebtorContact, error) {
	var debtor models.Debtor
	if err := config.DB.Where("id = ? AND user_id = ?", debtorID, userID).First(&debtor).Error; err != nil {
		return nil, err
	}

	var contact models.DebtorContact
	if err := config.DB.Where("id = ? AND debtor_id = ?", contactID, debtor.ID).First(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}
