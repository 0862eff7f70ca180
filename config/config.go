package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
// It is built once at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AWS      AWSConfig
	Tally    TallyConfig
	Phone    PhoneConfig
	Alerts   AlertsConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Driver   string // postgres | memory
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/stranger_beers?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings. An empty Addr disables the job queue.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds the secret used to validate admin tokens.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the payload archive bucket.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ArchiveBucket   string
}

// TallyConfig holds the accepted form ids and webhook signing settings.
type TallyConfig struct {
	SignupFormID       string
	PaymentFormID      string
	VerifySignature    bool
	SignupSecret       string
	PaymentSecret      string
	SignatureHeader    string
	PaymentStatusLabel string // label phrase of the payment form's status question
}

// PhoneConfig holds phone parsing settings.
type PhoneConfig struct {
	DefaultRegion string // used when users enter national-format numbers like "06..."
}

// AlertsConfig holds where emergency alerts are delivered.
type AlertsConfig struct {
	WebhookURL string // optional; alerts are always logged
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string
	Development bool
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8000"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "stranger_beers"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 15),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ArchiveBucket:   getEnv("AWS_S3_ARCHIVE_BUCKET", ""),
		},
		Tally: TallyConfig{
			SignupFormID:       getEnv("TALLY_SIGNUP_FORM_ID", ""),
			PaymentFormID:      getEnv("TALLY_PAYMENT_FORM_ID", ""),
			VerifySignature:    getEnvBool("VERIFY_TALLY_SIGNATURE", false),
			SignupSecret:       getEnv("TALLY_SIGNUP_SECRET", ""),
			PaymentSecret:      getEnv("TALLY_PAYMENT_SECRET", ""),
			SignatureHeader:    getEnv("TALLY_SIGNATURE_HEADER", "tally-signature"),
			PaymentStatusLabel: getEnv("TALLY_PAYMENT_STATUS_LABEL", "All done"),
		},
		Phone: PhoneConfig{
			DefaultRegion: strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "NL")),
		},
		Alerts: AlertsConfig{
			WebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvBool("LOG_DEVELOPMENT", false),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Tally.SignupFormID != "" && c.Tally.SignupFormID == c.Tally.PaymentFormID {
		return fmt.Errorf("TALLY_SIGNUP_FORM_ID and TALLY_PAYMENT_FORM_ID must differ")
	}
	if len(c.Phone.DefaultRegion) != 2 {
		return fmt.Errorf("DEFAULT_PHONE_REGION must be a two-letter region code, got %q", c.Phone.DefaultRegion)
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
