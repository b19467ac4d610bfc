package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	logx "github.com/gratefultolord/insurance_bot/pkg/logger"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Env string `envconfig:"APP_ENV" default:"development"`

	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`

	MindeeAPIKey          string        `envconfig:"MINDEE_API_KEY"`
	MindeePassportURL     string        `envconfig:"MINDEE_PASSPORT_URL" default:"https://api.mindee.net/v1/products/mindee/passport/v1/predict"`
	MindeeVehicleURL      string        `envconfig:"MINDEE_VEHICLE_URL" default:"https://api.mindee.net/v1/products/Whylek/vehicle_registration/v1/predict_async"`
	MindeePollInterval    time.Duration `envconfig:"MINDEE_POLL_INTERVAL" default:"3s"`
	MindeeMaxPollAttempts int           `envconfig:"MINDEE_MAX_POLL_ATTEMPTS" default:"30"`
	ExtractionTimeout     time.Duration `envconfig:"EXTRACTION_TIMEOUT" default:"2m"`

	ComposerProvider string `envconfig:"COMPOSER_PROVIDER" default:"openai"`
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey     string `envconfig:"GEMINI_API_KEY"`
	ComposerModel    string `envconfig:"COMPOSER_MODEL" default:"gpt-4.1-nano"`
	PolicyModel      string `envconfig:"POLICY_MODEL" default:"gpt-3.5-turbo"`

	SessionTTL           time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SessionSweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"10m"`
	RedisURL             string        `envconfig:"REDIS_URL"`

	WorkerIdleTimeout time.Duration `envconfig:"WORKER_IDLE_TIMEOUT" default:"5m"`
	WorkerQueueSize   int           `envconfig:"WORKER_QUEUE_SIZE" default:"16"`

	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	PolicyDir      string `envconfig:"POLICY_DIR" default:"policy_files"`
	PolicyPriceUSD int    `envconfig:"POLICY_PRICE_USD" default:"100"`

	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LedgerEnabled reports whether issued policies should be written to Postgres.
func (c *Config) LedgerEnabled() bool {
	return c.DBName != ""
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logx.Info().Msg("config.Load: no .env file found - using env variables")
	}

	return fromEnv()
}

func fromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("config.Load: TELEGRAM_BOT_TOKEN is required")
	}

	cfg.ComposerProvider = strings.ToLower(strings.TrimSpace(cfg.ComposerProvider))
	if cfg.ComposerProvider != ProviderOpenAI && cfg.ComposerProvider != ProviderGemini {
		return nil, fmt.Errorf("config.Load: unknown COMPOSER_PROVIDER %q", cfg.ComposerProvider)
	}

	if cfg.LedgerEnabled() && (cfg.DBUser == "" || cfg.DBPassword == "") {
		return nil, fmt.Errorf("config.Load: DB_USER and DB_PASSWORD are required when DB_NAME is set")
	}

	if cfg.MindeeMaxPollAttempts <= 0 {
		return nil, fmt.Errorf("config.Load: MINDEE_MAX_POLL_ATTEMPTS must be positive")
	}

	if cfg.PolicyPriceUSD <= 0 {
		return nil, fmt.Errorf("config.Load: POLICY_PRICE_USD must be positive")
	}

	return &cfg, nil
}
