package worker

import (
	"context"
	"log"
	"time"

	controller "collectra/controllers"

	"gorm.io/gorm"
)

// ReplyWorker polls tenant IMAP inboxes for debtor responses and
// records them on the invoice timeline. The actual fetch logic lives
// in the reply controller so the manual fetch endpoint and this
// worker stay in lockstep.
type ReplyWorker struct {
	DB       *gorm.DB
	Replies  *controller.ReplyController
	Logger   *log.Logger
	Interval time.Duration
}

func NewReplyWorker(db *gorm.DB, logger *log.Logger, intervalMinutes int) *ReplyWorker {
	return &ReplyWorker{
		DB:       db,
		Replies:  controller.NewReplyController(db, logger),
		Logger:   logger,
		Interval: time.Duration(intervalMinutes) * time.Minute,
	}
}

func (rw *ReplyWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(20 * time.Second)

	rw.Logger.Println("Reply worker started")

	ticker := time.NewTicker(rw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.Logger.Println("Reply worker shutting down...")
			return
		case <-ticker.C:
			rw.pollAllUsers(ctx)
		}
	}
}

func (rw *ReplyWorker) pollAllUsers(ctx context.Context) {
	var userIDs []uint
	if err := rw.DB.Raw(`
        SELECT DISTINCT user_id FROM mailboxes
        WHERE is_active = true AND imap_host <> '' AND deleted_at IS NULL
    `).Scan(&userIDs).Error; err != nil {
		rw.Logger.Printf("Error fetching users with IMAP mailboxes: %v", err)
		return
	}

	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ingested, err := rw.Replies.IngestReplies(userID)
		if err != nil {
			rw.Logger.Printf("Error polling replies for user %d: %v", userID, err)
			continue
		}
		if ingested > 0 {
			rw.Logger.Printf("Ingested %d replies for user %d", ingested, userID)
		}
	}
}
