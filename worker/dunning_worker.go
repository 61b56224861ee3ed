package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"collectra/engine"
	"collectra/models"
	"collectra/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DunningWorker runs scheduled draft generation for tenants that have
// opted in to automatic runs. Each cycle sweeps every aging bucket for
// every opted-in tenant; per-bucket failures never abort the cycle.
type DunningWorker struct {
	DB        *gorm.DB
	Generator engine.Generator
	Logger    *log.Logger
	Interval  time.Duration
}

func NewDunningWorker(db *gorm.DB, generator engine.Generator, logger *log.Logger, intervalMinutes int) *DunningWorker {
	return &DunningWorker{
		DB:        db,
		Generator: generator,
		Logger:    logger,
		Interval:  time.Duration(intervalMinutes) * time.Minute,
	}
}

func (dw *DunningWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	dw.Logger.Println("Dunning worker started")

	ticker := time.NewTicker(dw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dw.Logger.Println("Dunning worker shutting down...")
			return
		case <-ticker.C:
			dw.processAutoRunUsers(ctx)
		}
	}
}

func (dw *DunningWorker) processAutoRunUsers(ctx context.Context) {
	var users []models.User
	if err := dw.DB.Where("auto_run_enabled = ? AND is_active = ?", true, true).Find(&users).Error; err != nil {
		dw.Logger.Printf("Error fetching auto-run users: %v", err)
		return
	}

	for i := range users {
		user := &users[i]
		if user.DraftCredits <= 0 {
			dw.Logger.Printf("Skipping user %d: no draft credits remaining", user.ID)
			continue
		}

		for _, bucket := range models.AgingBuckets {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if err := dw.runBucket(ctx, user, bucket); err != nil {
				dw.Logger.Printf("Error running bucket %s for user %d: %v", bucket, user.ID, err)
			}
		}
	}
}

func (dw *DunningWorker) runBucket(ctx context.Context, user *models.User, bucket string) error {
	run := models.CollectionRun{
		UserID:        user.ID,
		RunID:         uuid.NewString(),
		AgingBucket:   bucket,
		ToneModifier:  user.DefaultTone,
		ApproachStyle: user.DefaultApproach,
		TriggeredBy:   "worker",
		Status:        "running",
	}
	if err := dw.DB.Create(&run).Error; err != nil {
		return err
	}

	orchestrator := engine.NewOrchestrator(engine.NewGormStore(dw.DB), dw.Generator, dw.Logger)
	result, err := orchestrator.RunBucketDraftGeneration(ctx, user, bucket, engine.RunOptions{
		Tone:     engine.ParseToneModifier(user.DefaultTone),
		Approach: engine.ParseApproachStyle(user.DefaultApproach),
		RunID:    run.RunID,
	})
	if err != nil {
		dw.finalizeRun(&run, "failed", result, []string{err.Error()})
		var cfgErr *engine.ConfigurationError
		if errors.As(err, &cfgErr) {
			// No workflow covers this bucket for this tenant. Quiet skip;
			// the tenant fixes configuration through the API, not us.
			return nil
		}
		utils.ReportError("dunning_run_failed", err, map[string]interface{}{
			"user_id": user.ID,
			"bucket":  bucket,
			"run_id":  run.RunID,
		})
		return err
	}

	dw.finalizeRun(&run, "completed", result, result.Errors)
	if result.DraftsCreated > 0 {
		dw.Logger.Printf("Run %s for user %d (%s): %d drafts created, %d skipped",
			run.RunID, user.ID, bucket, result.DraftsCreated, result.DraftsSkipped)
	}
	return nil
}

func (dw *DunningWorker) finalizeRun(run *models.CollectionRun, status string, result *engine.BatchResult, runErrors []string) {
	now := time.Now()
	run.Status = status
	run.CompletedAt = &now
	if result != nil {
		run.InvoicesProcessed = result.InvoicesProcessed
		run.DraftsCreated = result.DraftsCreated
		run.DraftsSkipped = result.DraftsSkipped
	}
	if len(runErrors) > 0 {
		if encoded, err := json.Marshal(runErrors); err == nil {
			run.Errors = string(encoded)
		}
	}
	if err := dw.DB.Save(run).Error; err != nil {
		dw.Logger.Printf("Error finalizing run %s: %v", run.RunID, err)
	}
}
