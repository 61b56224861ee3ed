package controller

import (
	"gorm.io/gorm"

	"collectra/config"
	"collectra/models"
	"collectra/utils"
	"github.com/gofiber/fiber/v2"
)

type WorkflowStepRequest struct {
	StepOrder    int    `json:"step_order" validate:"required,gt=0"`
	DayOffset    int    `json:"day_offset"`
	Channel      string `json:"channel" validate:"required,oneof=email sms"`
	IsActive     *bool  `json:"is_active"`
	BodyTemplate string `json:"body_template" validate:"required"`
}

type CreateWorkflowRequest struct {
	Name        string                `json:"name" validate:"required,max=200"`
	Description string                `json:"description" validate:"omitempty,max=2000"`
	AgingBucket string                `json:"aging_bucket" validate:"required"`
	IsActive    *bool                 `json:"is_active"`
	Steps       []WorkflowStepRequest `json:"steps" validate:"required,min=1,dive"`
}

type UpdateWorkflowRequest struct {
	Name        *string               `json:"name" validate:"omitempty,max=200"`
	Description *string               `json:"description" validate:"omitempty,max=2000"`
	IsActive    *bool                 `json:"is_active"`
	Steps       []WorkflowStepRequest `json:"steps" validate:"omitempty,min=1,dive"`
}

func CreateWorkflow(c *fiber.Ctx) error {
	var req CreateWorkflowRequest
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

	if !models.IsValidBucket(req.AgingBucket) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown aging bucket: " + req.AgingBucket,
		})
	}

	user := c.Locals("user").(*models.User)

	workflow := models.CollectionWorkflow{
		UserID:      &user.ID,
		Name:        req.Name,
		Description: req.Description,
		AgingBucket: req.AgingBucket,
		IsActive:    true,
	}
	if req.IsActive != nil {
		workflow.IsActive = *req.IsActive
	}

	// Activating this workflow supersedes any other active tenant
	// workflow for the same bucket.
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if workflow.IsActive {
			if err := tx.Model(&models.CollectionWorkflow{}).
				Where("user_id = ? AND aging_bucket = ? AND is_active = ?", user.ID, req.AgingBucket, true).
				Update("is_active", false).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&workflow).Error; err != nil {
			return err
		}

		for _, s := range req.Steps {
			step := models.WorkflowStep{
				WorkflowID:   workflow.ID,
				StepOrder:    s.StepOrder,
				DayOffset:    s.DayOffset,
				Channel:      s.Channel,
				IsActive:     true,
				BodyTemplate: s.BodyTemplate,
			}
			if s.IsActive != nil {
				step.IsActive = *s.IsActive
			}
			if err := tx.Create(&step).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create workflow",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(workflowWithSteps(workflow.ID))
}

func GetWorkflows(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	// Tenant workflows plus the global defaults they can fall back to
	var workflows []models.CollectionWorkflow
	query := config.DB.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Order("aging_bucket ASC, user_id ASC NULLS LAST")

	if c.Query("include_defaults") == "true" {
		query = query.Where("user_id = ? OR user_id IS NULL", user.ID)
	} else {
		query = query.Where("user_id = ?", user.ID)
	}

	if err := query.Find(&workflows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch workflows",
		})
	}

	return c.JSON(workflows)
}

func GetWorkflow(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var workflow models.CollectionWorkflow
	if err := config.DB.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Where("id = ? AND (user_id = ? OR user_id IS NULL)", c.Params("id"), user.ID).
		First(&workflow).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Workflow not found",
		})
	}

	return c.JSON(workflow)
}

func UpdateWorkflow(c *fiber.Ctx) error {
	var req UpdateWorkflowRequest
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

	// Global defaults are read-only through the API
	var workflow models.CollectionWorkflow
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&workflow).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Workflow not found",
		})
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if req.Name != nil {
			workflow.Name = *req.Name
		}
		if req.Description != nil {
			workflow.Description = *req.Description
		}
		if req.IsActive != nil {
			if *req.IsActive && !workflow.IsActive {
				if err := tx.Model(&models.CollectionWorkflow{}).
					Where("user_id = ? AND aging_bucket = ? AND is_active = ?", user.ID, workflow.AgingBucket, true).
					Update("is_active", false).Error; err != nil {
					return err
				}
			}
			workflow.IsActive = *req.IsActive
		}

		if err := tx.Save(&workflow).Error; err != nil {
			return err
		}

		// Steps are replaced wholesale when provided. Existing drafts
		// keep their workflow_step_id references, so steps are
		// soft-deleted rather than rewritten in place.
		if req.Steps != nil {
			if err := tx.Where("workflow_id = ?", workflow.ID).Delete(&models.WorkflowStep{}).Error; err != nil {
				return err
			}
			for _, s := range req.Steps {
				step := models.WorkflowStep{
					WorkflowID:   workflow.ID,
					StepOrder:    s.StepOrder,
					DayOffset:    s.DayOffset,
					Channel:      s.Channel,
					IsActive:     true,
					BodyTemplate: s.BodyTemplate,
				}
				if s.IsActive != nil {
					step.IsActive = *s.IsActive
				}
				if err := tx.Create(&step).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update workflow",
		})
	}

	return c.JSON(workflowWithSteps(workflow.ID))
}

func DeleteWorkflow(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var workflow models.CollectionWorkflow
	if err := config.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).First(&workflow).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Workflow not found",
		})
	}

	if err := config.DB.Select("Steps").Delete(&workflow).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete workflow",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetPersonas lists the seeded collection personas. Personas are
// platform-level; tenants pick tone and approach per run instead.
func GetPersonas(c *fiber.Ctx) error {
	var personas []models.Persona
	if err := config.DB.Order("bucket_min ASC").Find(&personas).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch personas",
		})
	}
	return c.JSON(personas)
}

// GetAgingBuckets lists the bucket labels runs and workflows accept.
func GetAgingBuckets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"buckets": models.AgingBuckets,
	})
}

func workflowWithSteps(id uint) *models.CollectionWorkflow {
	var workflow models.CollectionWorkflow
	if err := config.DB.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		First(&workflow, id).Error; err != nil {
		return nil
	}
	return &workflow
}
