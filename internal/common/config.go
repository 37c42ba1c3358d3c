package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	OCR      OCRConfig
	Queue    QueueConfig
	Scanner  ScannerConfig
	Upload   UploadConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// StorageConfig holds object-store configuration
type StorageConfig struct {
	Bucket       string
	PathPrefix   string
	SignedURLTTL time.Duration
}

// OCRConfig holds text-extraction configuration
type OCRConfig struct {
	Provider            string  // "google" or "tesseract"
	ConfidenceThreshold float64 // COMPLETED at or above, LOW_CONFIDENCE below
	MaxRetries          int
	DetectTimeout       time.Duration
	TessdataDir         string
	Languages           string // tesseract language list, e.g. "jpn+jpn_vert+eng"
}

// QueueConfig holds worker and queue configuration
type QueueConfig struct {
	Concurrency        int
	RatePerWindow      int
	RateWindow         time.Duration
	BackoffBase        time.Duration
	BackoffMax         time.Duration
	PollInterval       time.Duration
	CompletedRetention time.Duration
	FailedRetention    time.Duration
}

// ScannerConfig holds malware-scanner configuration
type ScannerConfig struct {
	Enabled   bool
	Address   string // clamd TCP address, host:port
	ChunkSize int
	Timeout   time.Duration
}

// UploadConfig holds file-admission configuration
type UploadConfig struct {
	MaxFileSize int64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Storage: StorageConfig{
			Bucket:       getEnv("GCS_BUCKET", ""),
			PathPrefix:   getEnv("GCS_PATH_PREFIX", "manuscripts"),
			SignedURLTTL: getEnvAsDuration("GCS_SIGNED_URL_TTL", 15*time.Minute),
		},
		OCR: OCRConfig{
			Provider:            getEnv("OCR_PROVIDER", "google"),
			ConfidenceThreshold: getEnvAsFloat64("OCR_CONFIDENCE_THRESHOLD", 70),
			MaxRetries:          getEnvAsInt("OCR_MAX_RETRIES", 3),
			DetectTimeout:       getEnvAsDuration("OCR_DETECT_TIMEOUT", 60*time.Second),
			TessdataDir:         getEnv("TESSDATA_PREFIX", ""),
			Languages:           getEnv("OCR_LANGUAGES", "jpn+jpn_vert+eng"),
		},
		Queue: QueueConfig{
			Concurrency:        getEnvAsInt("QUEUE_CONCURRENCY", 4),
			RatePerWindow:      getEnvAsInt("QUEUE_RATE_MAX", 10),
			RateWindow:         getEnvAsDuration("QUEUE_RATE_WINDOW", time.Minute),
			BackoffBase:        getEnvAsDuration("QUEUE_BACKOFF_BASE", 5*time.Second),
			BackoffMax:         getEnvAsDuration("QUEUE_BACKOFF_MAX", 10*time.Minute),
			PollInterval:       getEnvAsDuration("QUEUE_POLL_INTERVAL", 2*time.Second),
			CompletedRetention: getEnvAsDuration("QUEUE_COMPLETED_RETENTION", 24*time.Hour),
			FailedRetention:    getEnvAsDuration("QUEUE_FAILED_RETENTION", 7*24*time.Hour),
		},
		Scanner: ScannerConfig{
			Enabled:   getEnvAsBool("CLAMAV_ENABLED", false),
			Address:   getEnv("CLAMAV_ADDR", "127.0.0.1:3310"),
			ChunkSize: getEnvAsInt("CLAMAV_CHUNK_SIZE", 32*1024),
			Timeout:   getEnvAsDuration("CLAMAV_TIMEOUT", 30*time.Second),
		},
		Upload: UploadConfig{
			MaxFileSize: getEnvAsInt64("UPLOAD_MAX_FILE_SIZE", 50*1024*1024),
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError(CodeConfigError, "DB_URL is required", nil)
	}
	if c.Storage.Bucket == "" {
		return NewAppError(CodeConfigError, "GCS_BUCKET is required", nil)
	}
	if c.OCR.Provider != "google" && c.OCR.Provider != "tesseract" {
		return NewAppError(CodeConfigError, "OCR_PROVIDER must be google or tesseract", nil)
	}
	if c.OCR.ConfidenceThreshold < 0 || c.OCR.ConfidenceThreshold > 100 {
		return NewAppError(CodeConfigError, "OCR_CONFIDENCE_THRESHOLD must be in [0,100]", nil)
	}
	if c.Queue.Concurrency < 1 {
		return NewAppError(CodeConfigError, "QUEUE_CONCURRENCY must be at least 1", nil)
	}
	return nil
}
