package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"collectra/config"
	"collectra/middleware"
	"collectra/routes"
	"collectra/utils"
	"collectra/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "COLLECTRA: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize error reporting (Sentry)
	if err := utils.InitErrorReporting(); err != nil {
		logger.Printf("Error reporting disabled: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Start background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.AppConfig.WorkersEnabled {
		dunningWorker := worker.NewDunningWorker(
			config.DB,
			utils.NewGenerationClient(log.New(os.Stdout, "GENERATION: ", log.LstdFlags)),
			log.New(os.Stdout, "DUNNING: ", log.LstdFlags),
			config.AppConfig.DunningInterval,
		)
		go dunningWorker.Start(ctx)

		deliveryWorker := worker.NewDeliveryWorker(
			config.DB,
			utils.NewDraftMailer(),
			log.New(os.Stdout, "DELIVERY: ", log.LstdFlags),
			config.AppConfig.DeliveryInterval,
		)
		go deliveryWorker.Start(ctx)

		replyWorker := worker.NewReplyWorker(
			config.DB,
			log.New(os.Stdout, "REPLY: ", log.LstdFlags),
			config.AppConfig.ReplyPollInterval,
		)
		go replyWorker.Start(ctx)
	}

	// Setup routes
	routes.SetupRoutes(app, config.DB)

	// Shut down workers and drain connections on SIGINT/SIGTERM
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Println("Shutdown signal received")
		cancel()
		_ = app.Shutdown()
	}()

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
