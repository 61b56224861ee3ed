package controller

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/emersion/go-imap/client"

	"collectra/config"
	"collectra/models"
	"collectra/utils"
	"github.com/gofiber/fiber/v2"
)

type CreateMailboxRequest struct {
	Name      string `json:"name" validate:"required"`
	FromEmail string `json:"from_email" validate:"required,email"`
	FromName  string `json:"from_name" validate:"required"`

	SMTPHost     string `json:"smtp_host" validate:"required"`
	SMTPPort     int    `json:"smtp_port" validate:"required"`
	SMTPUsername string `json:"smtp_username" validate:"required"`
	SMTPPassword string `json:"smtp_password" validate:"required"`
	Encryption   string `json:"encryption" validate:"required,oneof=SSL TLS STARTTLS"`

	IMAPHost       string `json:"imap_host"`
	IMAPPort       int    `json:"imap_port"`
	IMAPUsername   string `json:"imap_username"`
	IMAPPassword   string `json:"imap_password"`
	IMAPEncryption string `json:"imap_encryption" validate:"omitempty,oneof=SSL TLS STARTTLS"`
	IMAPMailbox    string `json:"imap_mailbox"`

	DailyLimit int `json:"daily_limit" validate:"omitempty,gt=0"`
}

type UpdateMailboxRequest struct {
	Name         *string `json:"name"`
	FromEmail    *string `json:"from_email" validate:"omitempty,email"`
	FromName     *string `json:"from_name"`
	SMTPPassword *string `json:"smtp_password"`
	IMAPPassword *string `json:"imap_password"`
	IsActive     *bool   `json:"is_active"`
	DailyLimit   *int    `json:"daily_limit" validate:"omitempty,gt=0"`
}

type TestResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func CreateMailbox(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateMailboxRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Encrypt sensitive data
	encryptedSMTPPassword, err := utils.Encrypt(req.SMTPPassword)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to encrypt SMTP password",
		})
	}

	encryptedIMAPPassword, err := utils.Encrypt(req.IMAPPassword)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to encrypt IMAP password",
		})
	}

	mailbox := models.Mailbox{
		UserID:         user.ID,
		Name:           req.Name,
		FromEmail:      req.FromEmail,
		FromName:       req.FromName,
		SMTPHost:       req.SMTPHost,
		SMTPPort:       req.SMTPPort,
		SMTPUsername:   req.SMTPUsername,
		SMTPPassword:   encryptedSMTPPassword,
		Encryption:     req.Encryption,
		IMAPHost:       req.IMAPHost,
		IMAPPort:       req.IMAPPort,
		IMAPUsername:   req.IMAPUsername,
		IMAPPassword:   encryptedIMAPPassword,
		IMAPEncryption: req.IMAPEncryption,
		IMAPMailbox:    req.IMAPMailbox,
		IsActive:       true,
	}
	if req.DailyLimit > 0 {
		mailbox.DailyLimit = req.DailyLimit
	}

	if err := config.DB.Create(&mailbox).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create mailbox",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(mailbox)
}

func GetMailboxes(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var mailboxes []models.Mailbox
	if err := config.DB.Where("user_id = ?", user.ID).Find(&mailboxes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch mailboxes",
		})
	}

	return c.JSON(mailboxes)
}

func GetMailbox(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var mailbox models.Mailbox
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&mailbox).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Mailbox not found",
		})
	}

	return c.JSON(mailbox)
}

func UpdateMailbox(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req UpdateMailboxRequest
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

	var mailbox models.Mailbox
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&mailbox).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Mailbox not found",
		})
	}

	if req.Name != nil {
		mailbox.Name = *req.Name
	}
	if req.FromEmail != nil {
		mailbox.FromEmail = *req.FromEmail
	}
	if req.FromName != nil {
		mailbox.FromName = *req.FromName
	}
	if req.SMTPPassword != nil {
		encrypted, err := utils.Encrypt(*req.SMTPPassword)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to encrypt SMTP password",
			})
		}
		mailbox.SMTPPassword = encrypted
		mailbox.SMTPVerified = false
	}
	if req.IMAPPassword != nil {
		encrypted, err := utils.Encrypt(*req.IMAPPassword)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to encrypt IMAP password",
			})
		}
		mailbox.IMAPPassword = encrypted
		mailbox.IMAPVerified = false
	}
	if req.IsActive != nil {
		mailbox.IsActive = *req.IsActive
	}
	if req.DailyLimit != nil {
		mailbox.DailyLimit = *req.DailyLimit
	}

	if err := config.DB.Save(&mailbox).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update mailbox",
		})
	}

	return c.JSON(mailbox)
}

func DeleteMailbox(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var mailbox models.Mailbox
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&mailbox).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Mailbox not found",
		})
	}

	if err := config.DB.Delete(&mailbox).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete mailbox",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// TestMailbox exercises the mailbox's SMTP and IMAP credentials and
// records the verdicts on the row.
func TestMailbox(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var mailbox models.Mailbox
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&mailbox).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Mailbox not found",
		})
	}

	smtpPassword, err := utils.Decrypt(mailbox.SMTPPassword)
	if err != nil {
		utils.ReportError("decrypt_failed", err, map[string]interface{}{
			"operation":  "SMTP password decryption",
			"mailbox_id": mailbox.ID,
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to decrypt SMTP password",
		})
	}

	var results struct {
		SMTP TestResult `json:"smtp"`
		IMAP TestResult `json:"imap"`
	}

	results.SMTP = testSMTPConnection(mailbox, smtpPassword)
	if mailbox.IMAPHost != "" {
		results.IMAP = testIMAPConnection(mailbox)
	}

	now := time.Now()
	mailbox.SMTPVerified = results.SMTP.Success
	mailbox.IMAPVerified = results.IMAP.Success
	mailbox.LastTestedAt = &now
	if !results.SMTP.Success {
		mailbox.LastError = &results.SMTP.Error
	} else if mailbox.IMAPHost != "" && !results.IMAP.Success {
		mailbox.LastError = &results.IMAP.Error
	} else {
		mailbox.LastError = nil
	}

	if err := config.DB.Save(&mailbox).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save test results",
		})
	}

	return c.JSON(results)
}

func testSMTPConnection(mailbox models.Mailbox, password string) TestResult {
	result := TestResult{Success: false}

	logContext := map[string]interface{}{
		"smtp_host": mailbox.SMTPHost,
		"smtp_port": mailbox.SMTPPort,
		"username":  mailbox.SMTPUsername,
	}

	smtpAddr := fmt.Sprintf("%s:%d", mailbox.SMTPHost, mailbox.SMTPPort)

	var auth smtp.Auth
	if mailbox.SMTPUsername != "" && password != "" {
		auth = smtp.PlainAuth("", mailbox.SMTPUsername, password, mailbox.SMTPHost)
	}

	switch strings.ToUpper(mailbox.Encryption) {
	case "SSL", "TLS":
		tlsConfig := &tls.Config{
			InsecureSkipVerify: false,
			ServerName:         mailbox.SMTPHost,
		}

		conn, err := tls.Dial("tcp", smtpAddr, tlsConfig)
		if err != nil {
			result.Error = fmt.Sprintf("Failed to establish TLS connection: %v", err)
			utils.ReportError("smtp_tls_connection", err, logContext)
			return result
		}
		defer conn.Close()

		cl, err := smtp.NewClient(conn, mailbox.SMTPHost)
		if err != nil {
			result.Error = fmt.Sprintf("Failed to create SMTP client: %v", err)
			utils.ReportError("smtp_client_creation", err, logContext)
			return result
		}
		defer cl.Close()

		if auth != nil {
			if err := cl.Auth(auth); err != nil {
				result.Error = fmt.Sprintf("SMTP authentication failed: %v", err)
				utils.ReportError("smtp_authentication", err, logContext)
				return result
			}
		}
		result.Success = true

	case "STARTTLS":
		cl, err := smtp.Dial(smtpAddr)
		if err != nil {
			result.Error = fmt.Sprintf("Failed to connect to SMTP server: %v", err)
			utils.ReportError("smtp_connection", err, logContext)
			return result
		}
		defer cl.Close()

		if err := cl.StartTLS(&tls.Config{ServerName: mailbox.SMTPHost}); err != nil {
			result.Error = fmt.Sprintf("Failed to start TLS: %v", err)
			utils.ReportError("smtp_starttls", err, logContext)
			return result
		}

		if auth != nil {
			if err := cl.Auth(auth); err != nil {
				result.Error = fmt.Sprintf("SMTP authentication failed: %v", err)
				utils.ReportError("smtp_authentication", err, logContext)
				return result
			}
		}
		result.Success = true

	default:
		result.Error = "Unsupported encryption type: " + mailbox.Encryption
	}

	return result
}

func testIMAPConnection(mailbox models.Mailbox) TestResult {
	result := TestResult{Success: false}

	logContext := map[string]interface{}{
		"imap_host": mailbox.IMAPHost,
		"imap_port": mailbox.IMAPPort,
		"username":  mailbox.IMAPUsername,
	}

	imapPassword, err := utils.Decrypt(mailbox.IMAPPassword)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to decrypt IMAP password: %v", err)
		utils.ReportError("imap_password_decrypt", err, logContext)
		return result
	}

	imapAddr := fmt.Sprintf("%s:%d", mailbox.IMAPHost, mailbox.IMAPPort)
	var cl *client.Client

	switch strings.ToUpper(mailbox.IMAPEncryption) {
	case "SSL", "TLS":
		cl, err = client.DialTLS(imapAddr, &tls.Config{
			InsecureSkipVerify: false,
			ServerName:         mailbox.IMAPHost,
		})
	case "STARTTLS":
		cl, err = client.Dial(imapAddr)
		if err == nil {
			err = cl.StartTLS(&tls.Config{
				InsecureSkipVerify: false,
				ServerName:         mailbox.IMAPHost,
			})
		}
	default:
		cl, err = client.Dial(imapAddr)
	}

	if err != nil {
		result.Error = fmt.Sprintf("Failed to connect to IMAP server: %v", err)
		utils.ReportError("imap_connection", err, logContext)
		return result
	}
	defer cl.Logout()

	cl.Timeout = 10 * time.Second

	if err := cl.Login(mailbox.IMAPUsername, imapPassword); err != nil {
		result.Error = fmt.Sprintf("IMAP authentication failed: %v", err)
		utils.ReportError("imap_authentication", err, logContext)
		return result
	}

	if mailbox.IMAPMailbox != "" {
		if _, err := cl.Select(mailbox.IMAPMailbox, true); err != nil {
			result.Error = fmt.Sprintf("Failed to select mailbox: %v", err)
			utils.ReportError("imap_mailbox_select", err, logContext)
			return result
		}
	}

	result.Success = true
	return result
}
