package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	Email EmailConfig
	Push  PushConfig
	Lock  LockConfig
	Alert AlertConfig
}

type EmailConfig struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type PushConfig struct {
	Enabled    bool
	WebhookURL string
	AuthToken  string
}

// LockConfig configures the optional redis evaluation lock used when
// multiple instances process analysis events for the same pet.
type LockConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

// AlertConfig carries tunable alerting policy.
type AlertConfig struct {
	// PriorityMap maps event severities to notification priorities,
	// e.g. "low:low,medium:medium,high:high,critical:high".
	PriorityMap string
	// ActionURL is a URL template for fired alerts; {petId} is replaced
	// with the pet's id.
	ActionURL string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "pawsentry"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:     getenv("DATABASE_TYPE", "postgres"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "pawsentry"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		Email: EmailConfig{
			Enabled:      getenvBool("EMAIL_ENABLED", false),
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "alerts@pawsentry.io"),
		},
		Push: PushConfig{
			Enabled:    getenvBool("PUSH_ENABLED", false),
			WebhookURL: strings.TrimSpace(getenv("PUSH_WEBHOOK_URL", "")),
			AuthToken:  strings.TrimSpace(getenv("PUSH_AUTH_TOKEN", "")),
		},
		Lock: LockConfig{
			Enabled:       getenvBool("EVAL_LOCK_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("EVAL_LOCK_REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("EVAL_LOCK_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("EVAL_LOCK_REDIS_DB", 0),
			TTLSeconds:    getenvInt("EVAL_LOCK_TTL_SECONDS", 30),
		},
		Alert: AlertConfig{
			PriorityMap: getenv("ALERT_PRIORITY_MAP", ""),
			ActionURL:   getenv("ALERT_ACTION_URL", "/pets/{petId}/health"),
		},
	}
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
