package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Storage   StorageConfig
	OCR       OCRConfig
	Decrypt   DecryptConfig
	RateLimit RateLimitConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	UploadTimeout   time.Duration
	ShutdownTimeout time.Duration
}

// StorageConfig holds object-store configuration
type StorageConfig struct {
	Bucket string
	Prefix string
}

// OCRConfig holds OCR provider configuration
type OCRConfig struct {
	Endpoint     string
	APIKey       string
	ModelID      string
	Timeout      time.Duration
	PollInterval time.Duration
	Sandbox      bool
}

// DecryptConfig holds decryption tool configuration
type DecryptConfig struct {
	QPDFPath string
	WorkDir  string
}

// RateLimitConfig holds upload rate-limit configuration
type RateLimitConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	UploadLimit   int
	UploadWindow  time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			UploadTimeout:   getEnvAsDuration("UPLOAD_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Storage: StorageConfig{
			Bucket: getEnv("STORAGE_BUCKET", ""),
			Prefix: getEnv("STORAGE_PREFIX", "documents"),
		},
		OCR: OCRConfig{
			Endpoint:     getEnv("OCR_ENDPOINT", ""),
			APIKey:       getEnv("OCR_API_KEY", ""),
			ModelID:      getEnv("OCR_MODEL_ID", "prebuilt-invoice"),
			Timeout:      getEnvAsDuration("OCR_TIMEOUT", 120*time.Second),
			PollInterval: getEnvAsDuration("OCR_POLL_INTERVAL", 2*time.Second),
			Sandbox:      getEnvAsBool("OCR_SANDBOX", false),
		},
		Decrypt: DecryptConfig{
			QPDFPath: getEnv("QPDF_PATH", "qpdf"),
			WorkDir:  getEnv("DECRYPT_WORK_DIR", ""),
		},
		RateLimit: RateLimitConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			UploadLimit:   getEnvAsInt("UPLOAD_RATE_LIMIT", 30),
			UploadWindow:  getEnvAsDuration("UPLOAD_RATE_WINDOW", time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Storage.Bucket == "" {
		return NewAppError("CONFIG_ERROR", "STORAGE_BUCKET is required", ErrInvalidInput)
	}
	if !c.OCR.Sandbox && (c.OCR.Endpoint == "" || c.OCR.APIKey == "") {
		return NewAppError("CONFIG_ERROR", "OCR_ENDPOINT and OCR_API_KEY are required unless OCR_SANDBOX is set", ErrInvalidInput)
	}
	return nil
}
