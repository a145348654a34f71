// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Ledger      LedgerConfig
	Indexer     IndexerConfig
	Stream      StreamConfig
	Storage     StorageConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

type LedgerConfig struct {
	TreasuryWallet string
	// DevFaucetAmount is credited to buyers on token issue in non-production
	// environments so the purchase flow can be exercised locally. Zero
	// disables it.
	DevFaucetAmount uint64
}

type IndexerConfig struct {
	Workers            int
	SubscribeBuffer    int
	ApplyMaxAttempts   int
	ApplyBackoffMs     int
	ReconnectBackoffMs int
}

type StreamConfig struct {
	PingIntervalSec int
	WriteTimeoutSec int
	ReadTimeoutSec  int
	SendBufferSize  int
}

type StorageConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	BaseURL         string
}

// RateLimitConfig throttles requests per client IP. General applies to every
// route; Auth and Upload are tighter per-minute budgets for token issuance
// and metadata uploads.
type RateLimitConfig struct {
	GeneralPerSecond int
	GeneralBurst     int
	AuthPerMinute    int
	UploadPerMinute  int
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "creatorclaim"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24), // 24 hours
		},
		Ledger: LedgerConfig{
			TreasuryWallet:  getEnv("LEDGER_TREASURY_WALLET", "creatorclaim-treasury"),
			DevFaucetAmount: uint64(getEnvAsInt("LEDGER_DEV_FAUCET_AMOUNT", 0)),
		},
		Indexer: IndexerConfig{
			Workers:            getEnvAsInt("INDEXER_WORKERS", 4),
			SubscribeBuffer:    getEnvAsInt("INDEXER_SUBSCRIBE_BUFFER", 256),
			ApplyMaxAttempts:   getEnvAsInt("INDEXER_APPLY_MAX_ATTEMPTS", 5),
			ApplyBackoffMs:     getEnvAsInt("INDEXER_APPLY_BACKOFF_MS", 200),
			ReconnectBackoffMs: getEnvAsInt("INDEXER_RECONNECT_BACKOFF_MS", 1000),
		},
		Stream: StreamConfig{
			PingIntervalSec: getEnvAsInt("STREAM_PING_INTERVAL", 30),
			WriteTimeoutSec: getEnvAsInt("STREAM_WRITE_TIMEOUT", 10),
			ReadTimeoutSec:  getEnvAsInt("STREAM_READ_TIMEOUT", 60),
			SendBufferSize:  getEnvAsInt("STREAM_SEND_BUFFER", 64),
		},
		Storage: StorageConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "creatorclaim-metadata"),
			BaseURL:         getEnv("STORAGE_BASE_URL", ""),
		},
		RateLimit: RateLimitConfig{
			GeneralPerSecond: getEnvAsInt("RATE_LIMIT_GENERAL_PER_SECOND", 20),
			GeneralBurst:     getEnvAsInt("RATE_LIMIT_GENERAL_BURST", 40),
			AuthPerMinute:    getEnvAsInt("RATE_LIMIT_AUTH_PER_MINUTE", 10),
			UploadPerMinute:  getEnvAsInt("RATE_LIMIT_UPLOAD_PER_MINUTE", 10),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Ledger.DevFaucetAmount > 0 && c.Environment == "production" {
		return fmt.Errorf("dev faucet must be disabled in production")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
