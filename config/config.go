package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	AWS       AWSConfig
	Admin     AdminConfig
	Broadcast BroadcastConfig
	EmailJS   EmailJSConfig
	WhatsApp  WhatsAppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins string // comma-separated, or "*" for all
	Debug              bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// RedisConfig holds Redis connection settings. Addr may be blank.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and S3 bucket names. Blank buckets
// disable the matching feature (CSV archive, banner upload).
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ExportsBucket        string
	AssetsBucket         string
	PresignExpireMinutes int
}

// S3Enabled reports whether any bucket is configured.
func (c AWSConfig) S3Enabled() bool {
	return c.ExportsBucket != "" || c.AssetsBucket != ""
}

// AdminConfig seeds the admin account on first start.
type AdminConfig struct {
	Email    string
	Password string
	FullName string
}

// BroadcastConfig tunes the broadcast orchestrator and worker.
type BroadcastConfig struct {
	MaxParallel     int           // 0 = unbounded
	LockTTL         time.Duration // Redis lock lifetime
	WorkerInProcess bool          // run the queue consumer inside the API server
}

// EmailJSConfig points the EmailJS transport at its API.
type EmailJSConfig struct {
	BaseURL string
	Timeout time.Duration
}

// WhatsAppConfig points the WhatsApp transport at the Cloud API.
type WhatsAppConfig struct {
	APIBaseURL    string
	APIVersion    string
	RatePerSecond float64
	Timeout       time.Duration
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (DATABASE_URL env), it is used as-is; otherwise built from components.
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
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 120),
			ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
			Debug:              getEnvBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "workshop"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ExportsBucket:        getEnv("AWS_S3_EXPORTS_BUCKET", ""),
			AssetsBucket:         getEnv("AWS_S3_ASSETS_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
			FullName: getEnv("ADMIN_FULL_NAME", "Workshop Admin"),
		},
		Broadcast: BroadcastConfig{
			MaxParallel:     getEnvInt("BROADCAST_MAX_PARALLEL", 10),
			LockTTL:         getEnvDuration("BROADCAST_LOCK_TTL", 15*time.Minute),
			WorkerInProcess: getEnvBool("BROADCAST_WORKER_IN_PROCESS", false),
		},
		EmailJS: EmailJSConfig{
			BaseURL: getEnv("EMAILJS_BASE_URL", "https://api.emailjs.com"),
			Timeout: getEnvDuration("EMAILJS_TIMEOUT", 15*time.Second),
		},
		WhatsApp: WhatsAppConfig{
			APIBaseURL:    getEnv("WHATSAPP_API_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getEnv("WHATSAPP_API_VERSION", "v17.0"),
			RatePerSecond: getEnvFloat("WHATSAPP_RATE_PER_SECOND", 20),
			Timeout:       getEnvDuration("WHATSAPP_TIMEOUT", 15*time.Second),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.Broadcast.MaxParallel < 0 {
		return fmt.Errorf("BROADCAST_MAX_PARALLEL must be >= 0, got %d", c.Broadcast.MaxParallel)
	}
	if c.Broadcast.LockTTL <= 0 {
		return fmt.Errorf("BROADCAST_LOCK_TTL must be positive")
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

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s", "15m").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
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
