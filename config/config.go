package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"collectra/models"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type OAuthConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"-"`
	RedirectURI  string `json:"redirect_uri"`
}

type GenerationConfig struct {
	APIURL  string  `json:"api_url"`
	APIKey  string  `json:"-"`
	Model   string  `json:"model"`
	Timeout int     `json:"timeout_seconds"`
	Temp    float64 `json:"temperature"`
}

type Config struct {
	Environment   string           `json:"environment"`
	Google        OAuthConfig      `json:"google"`
	Generation    GenerationConfig `json:"generation"`
	EncryptionKey string           `json:"-"`
	ServerPort    string           `json:"server_port"`
	SentryDSN     string           `json:"-"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	StripeSecretKey      string `json:"-"`
	StripePublishableKey string `json:"stripe_publishable_key"`
	StripeWebhookSecret  string `json:"-"`

	Redis RedisConfig `json:"redis"`

	// Background worker settings
	DunningInterval   int  `json:"dunning_interval_minutes"`
	DeliveryInterval  int  `json:"delivery_interval_minutes"`
	ReplyPollInterval int  `json:"reply_poll_interval_minutes"`
	WorkersEnabled    bool `json:"workers_enabled"`

	RateLimitDraftRuns int `json:"rate_limit_draft_runs"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Google: OAuthConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
		},
		Generation: GenerationConfig{
			APIURL:  getEnv("GENERATION_API_URL", "https://api.openai.com/v1"),
			APIKey:  getEnv("GENERATION_API_KEY", ""),
			Model:   getEnv("GENERATION_MODEL", "gpt-4o-mini"),
			Timeout: getEnvAsInt("GENERATION_TIMEOUT_SECONDS", 45),
		},
		EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "collectra"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
		StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		DunningInterval:   getEnvAsInt("DUNNING_INTERVAL_MINUTES", 60),
		DeliveryInterval:  getEnvAsInt("DELIVERY_INTERVAL_MINUTES", 15),
		ReplyPollInterval: getEnvAsInt("REPLY_POLL_INTERVAL_MINUTES", 5),
		WorkersEnabled:    getEnv("WORKERS_ENABLED", "true") == "true",

		RateLimitDraftRuns: getEnvAsInt("RATE_LIMIT_DRAFT_RUNS", 10),
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if AppConfig.Generation.APIKey == "" && AppConfig.Environment == "production" {
		return fmt.Errorf("GENERATION_API_KEY is required in production")
	}
	if AppConfig.StripeSecretKey == "" && AppConfig.Environment == "production" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required for billing in production")
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting database migration...")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	if err := seedReferenceData(DB); err != nil {
		return fmt.Errorf("reference data seed failed: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Generation backend: %s (%s)",
		AppConfig.Generation.APIURL,
		AppConfig.Generation.Model)
	log.Printf("Workers enabled: %t, Redis enabled: %t",
		AppConfig.WorkersEnabled,
		AppConfig.Redis.Enabled)
}

func migrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Plan{},
		&models.CreditTransaction{},
		&models.CreditUsage{},
		&models.Debtor{},
		&models.DebtorContact{},
		&models.Invoice{},
		&models.InvoiceEvent{},
		&models.CollectionWorkflow{},
		&models.WorkflowStep{},
		&models.Persona{},
		&models.Draft{},
		&models.CollectionRun{},
		&models.Mailbox{},
	); err != nil {
		return err
	}

	// The at-most-one-draft invariant: one non-terminal draft per
	// (invoice, step). A partial index keeps rejected/sent history out
	// of the constraint. This index is the correctness mechanism; the
	// engine's read-side eligibility check only avoids wasted
	// generation calls.
	return db.Exec(`
        CREATE UNIQUE INDEX IF NOT EXISTS uniq_drafts_open_invoice_step
        ON drafts (invoice_id, workflow_step_id)
        WHERE status IN ('pending_approval', 'approved') AND deleted_at IS NULL
    `).Error
}

func seedReferenceData(db *gorm.DB) error {
	if err := models.CreateDefaultPlans(db); err != nil {
		return err
	}
	if err := models.CreateDefaultPersonas(db); err != nil {
		return err
	}
	return models.CreateDefaultWorkflows(db)
}
