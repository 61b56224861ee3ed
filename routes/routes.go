package routes

import (
	"log"
	"os"

	controller "collectra/controllers"
	"collectra/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize logger
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Google OAuth routes
	auth.Get("/google", controller.GoogleOAuth)
	auth.Get("/google/callback", controller.GoogleOAuthCallback)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Post("/change-password", controller.ChangePassword)
	protectedAuth.Get("/me", controller.GetCurrentUser)
	protectedAuth.Put("/settings", controller.UpdateSettings)

	// Billing routes; the webhook stays public, Stripe signs it
	app.Post("/payment/webhook", controller.HandlePaymentWebhook)
	payment := app.Group("/payment", middleware.Protected())
	payment.Get("/plans", controller.ListPlans)
	payment.Post("/create-intent", controller.CreatePaymentIntent)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize controllers with their respective loggers
	dashboardController := controller.NewDashboardController(db, log.New(os.Stdout, "DASHBOARD: ", log.LstdFlags))
	replyController := controller.NewReplyController(db, log.New(os.Stdout, "REPLY: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", dashboardController.GetDashboardStats)
	dashboard.Get("/aging", dashboardController.GetAgingSummary)
	dashboard.Get("/recent-runs", dashboardController.GetRecentRuns)

	// Debtor routes
	debtor := api.Group("/debtors")
	debtor.Post("/", controller.CreateDebtor)
	debtor.Get("/", controller.GetDebtors)
	debtor.Get("/:id", controller.GetDebtor)
	debtor.Put("/:id", controller.UpdateDebtor)
	debtor.Delete("/:id", controller.DeleteDebtor)
	debtor.Post("/:id/contacts", controller.AddDebtorContact)
	debtor.Put("/:id/contacts/:contactId", controller.UpdateDebtorContact)
	debtor.Delete("/:id/contacts/:contactId", controller.DeleteDebtorContact)
	debtor.Post("/:id/contacts/:contactId/verify", controller.VerifyDebtorContact)

	// Invoice routes
	invoice := api.Group("/invoices")
	invoice.Post("/", controller.CreateInvoice)
	invoice.Get("/", controller.GetInvoices)
	invoice.Get("/:id", controller.GetInvoice)
	invoice.Put("/:id", controller.UpdateInvoice)
	invoice.Put("/:id/status", controller.UpdateInvoiceStatus)
	invoice.Delete("/:id", controller.DeleteInvoice)
	invoice.Get("/:id/timeline", controller.GetInvoiceTimeline)

	// Workflow and persona routes
	workflow := api.Group("/workflows")
	workflow.Post("/", controller.CreateWorkflow)
	workflow.Get("/", controller.GetWorkflows)
	workflow.Get("/:id", controller.GetWorkflow)
	workflow.Put("/:id", controller.UpdateWorkflow)
	workflow.Delete("/:id", controller.DeleteWorkflow)
	api.Get("/personas", controller.GetPersonas)
	api.Get("/aging-buckets", controller.GetAgingBuckets)

	// Collections run routes with rate limiting on the trigger
	collections := api.Group("/collections")
	collections.Post("/run", middleware.RunRateLimiter(), controller.RunCollections)
	collections.Get("/runs", controller.GetCollectionRuns)
	collections.Get("/runs/:runId", controller.GetCollectionRun)

	// Draft review routes
	draft := api.Group("/drafts")
	draft.Get("/", controller.GetDrafts)
	draft.Get("/:id", controller.GetDraft)
	draft.Put("/:id", controller.EditDraft)
	draft.Post("/:id/approve", controller.ApproveDraft)
	draft.Post("/:id/reject", controller.RejectDraft)
	draft.Post("/:id/sent", controller.MarkDraftSent)

	// Mailbox routes
	mailbox := api.Group("/mailboxes")
	mailbox.Post("/", controller.CreateMailbox)
	mailbox.Get("/", controller.GetMailboxes)
	mailbox.Get("/:id", controller.GetMailbox)
	mailbox.Put("/:id", controller.UpdateMailbox)
	mailbox.Delete("/:id", controller.DeleteMailbox)
	mailbox.Post("/:id/test", controller.TestMailbox)

	// Reply ingestion routes
	replies := api.Group("/replies")
	replies.Post("/fetch", replyController.FetchReplies)

	// WebSocket route for run progress
	app.Get("/api/v1/collections/runs/:runId/progress", websocket.New(func(c *websocket.Conn) {
		controller.HandleRunProgressWS(c)
	}))

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize Stripe
	controller.InitStripe()

	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, db)

	// Setup API routes
	SetupAPIRoutes(app, db)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
