// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq background task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SpitfireConfig provides credentials for the Spitfire dialer platform.
type SpitfireConfig interface {
	GetSpitfireBaseURL() string
	GetSpitfireUsername() string
	GetSpitfirePassword() string
	GetSpitfireAppType() string
	IsSpitfireEnabled() bool
}

// CallStatusConfig provides settings for call lifecycle handling.
type CallStatusConfig interface {
	// GetSuppressCallEndedOnWarmTransfer gates the call-ended broadcast
	// during warm transfers, independently of the outbound-status gate.
	GetSuppressCallEndedOnWarmTransfer() bool
}

// ListenerConfig provides the notification channel names for the CDC listener.
type ListenerConfig interface {
	GetLeadChannel() string
	GetQueueChannel() string
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketCallRecordings() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Config Implementation
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	SpitfireBaseURL  string
	SpitfireUsername string
	SpitfirePassword string
	SpitfireAppType  string

	SuppressCallEndedOnWarmTransfer bool

	LeadChannel  string
	QueueChannel string

	MinIOEndpoint             string
	MinIOAccessKey            string
	MinIOSecretKey            string
	MinIOUseSSL               bool
	MinioBucketCallRecordings string
}

// Load reads configuration from environment variables (and .env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),

		SpitfireBaseURL:  getEnv("SPITFIRE_BASE_URL", ""),
		SpitfireUsername: getEnv("SPITFIRE_USERNAME", ""),
		SpitfirePassword: getEnv("SPITFIRE_PASSWORD", ""),
		SpitfireAppType:  getEnv("SPITFIRE_APP_TYPE", "AGENT"),

		SuppressCallEndedOnWarmTransfer: strings.EqualFold(getEnv("SUPPRESS_CALL_ENDED_ON_WARM_TRANSFER", "false"), "true"),

		LeadChannel:  getEnv("LEAD_CHANNEL", "combined_lead_changes"),
		QueueChannel: getEnv("QUEUE_CHANNEL", "queue_changes"),

		MinIOEndpoint:             getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:            getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:            getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:               strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketCallRecordings: getEnv("MINIO_BUCKET_CALL_RECORDINGS", "call-recordings"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SpitfireBaseURL != "" && (cfg.SpitfireUsername == "" || cfg.SpitfirePassword == "") {
		return nil, fmt.Errorf("SPITFIRE_USERNAME and SPITFIRE_PASSWORD are required when SPITFIRE_BASE_URL is set")
	}

	return cfg, nil
}

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetSpitfireBaseURL() string  { return c.SpitfireBaseURL }
func (c *Config) GetSpitfireUsername() string { return c.SpitfireUsername }
func (c *Config) GetSpitfirePassword() string { return c.SpitfirePassword }
func (c *Config) GetSpitfireAppType() string  { return c.SpitfireAppType }
func (c *Config) IsSpitfireEnabled() bool     { return c.SpitfireBaseURL != "" }

func (c *Config) GetSuppressCallEndedOnWarmTransfer() bool {
	return c.SuppressCallEndedOnWarmTransfer
}

func (c *Config) GetLeadChannel() string  { return c.LeadChannel }
func (c *Config) GetQueueChannel() string { return c.QueueChannel }

func (c *Config) GetMinIOEndpoint() string             { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string            { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string            { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                 { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketCallRecordings() string { return c.MinioBucketCallRecordings }
func (c *Config) IsMinIOEnabled() bool                 { return c.MinIOEndpoint != "" }

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
