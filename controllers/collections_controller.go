package controller

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"time"

	"collectra/config"
	"collectra/engine"
	"collectra/models"
	"collectra/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type RunCollectionsRequest struct {
	AgingBucket   string `json:"aging_bucket" validate:"required"`
	ToneModifier  string `json:"tone_modifier"`
	ApproachStyle string `json:"approach_style"`
}

var collectionsLogger = log.New(os.Stdout, "[COLLECTIONS] ", log.LstdFlags)

// RunCollections triggers a synchronous draft-generation batch for one
// aging bucket. Unknown tone/approach values fall back to standard;
// an unknown bucket is rejected outright.
func RunCollections(c *fiber.Ctx) error {
	var req RunCollectionsRequest
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

	if user.DraftCredits <= 0 {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": "No draft credits remaining",
		})
	}

	tone := engine.ParseToneModifier(req.ToneModifier)
	approach := engine.ParseApproachStyle(req.ApproachStyle)

	run := models.CollectionRun{
		UserID:        user.ID,
		RunID:         uuid.NewString(),
		AgingBucket:   req.AgingBucket,
		ToneModifier:  string(tone),
		ApproachStyle: string(approach),
		TriggeredBy:   "api",
		Status:        "running",
	}
	if err := config.DB.Create(&run).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record run",
		})
	}

	orchestrator := engine.NewOrchestrator(
		engine.NewGormStore(config.DB),
		utils.NewGenerationClient(collectionsLogger),
		collectionsLogger,
	)

	result, err := orchestrator.RunBucketDraftGeneration(c.Context(), user, req.AgingBucket, engine.RunOptions{
		Tone:     tone,
		Approach: approach,
		RunID:    run.RunID,
		OnProgress: func(ev engine.ProgressEvent) {
			BroadcastRunProgress(ev)
		},
	})
	if err != nil {
		finalizeRun(&run, result, "failed", err)

		var cfgErr *engine.ConfigurationError
		if errors.As(err, &cfgErr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":          cfgErr.Error(),
				"run_id":         run.RunID,
				"drafts_created": 0,
			})
		}

		utils.ReportError("collection_run_failed", err, map[string]interface{}{
			"user_id": user.ID,
			"bucket":  req.AgingBucket,
			"run_id":  run.RunID,
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "Draft generation failed",
			"run_id": run.RunID,
		})
	}

	finalizeRun(&run, result, "completed", nil)

	return c.JSON(result)
}

// GetCollectionRuns lists the tenant's run history, newest first.
func GetCollectionRuns(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var runs []models.CollectionRun
	if err := config.DB.
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch runs",
		})
	}

	return c.JSON(runs)
}

func GetCollectionRun(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var run models.CollectionRun
	if err := config.DB.
		Where("run_id = ? AND user_id = ?", c.Params("runId"), user.ID).
		First(&run).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Run not found",
		})
	}

	return c.JSON(run)
}

// finalizeRun writes the batch outcome back onto the audit row.
func finalizeRun(run *models.CollectionRun, result *engine.BatchResult, status string, runErr error) {
	run.Status = status
	now := time.Now()
	run.CompletedAt = &now

	errs := []string{}
	if result != nil {
		run.InvoicesProcessed = result.InvoicesProcessed
		run.DraftsCreated = result.DraftsCreated
		run.DraftsSkipped = result.DraftsSkipped
		errs = result.Errors
	}
	if runErr != nil {
		errs = append(errs, runErr.Error())
	}
	if encoded, err := json.Marshal(errs); err == nil {
		run.Errors = string(encoded)
	}

	if err := config.DB.Save(run).Error; err != nil {
		collectionsLogger.Printf("Failed to finalize run %s: %v", run.RunID, err)
	}
}
