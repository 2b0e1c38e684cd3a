package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Audit delivery modes.
const (
	AuditModeDirect = "direct"
	AuditModeQueue  = "queue"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env
	DevMode bool

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string

	// AWS S3 (payment proofs)
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ProofMaxSizeMB     int
	ProofURLTTL        time.Duration

	// Estimates
	EstimateCacheTTL     time.Duration
	EstimateCacheBackend string // redis, memcached or local
	MemcachedAddr        string

	// Audit
	AuditMode          string
	AuditAMQPURL       string
	AuditAMQPQueue     string
	AuditFanoutWorkers int

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		v, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(v) * time.Second, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "renthub")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.MemcachedAddr = getEnv("MEMCACHED_ADDR", "localhost:11211")
	cfg.EstimateCacheBackend = getEnv("ESTIMATE_CACHE_BACKEND", "redis")
	switch cfg.EstimateCacheBackend {
	case "redis", "memcached", "local":
	default:
		return nil, fmt.Errorf("invalid ESTIMATE_CACHE_BACKEND %q", cfg.EstimateCacheBackend)
	}
	cfg.AuditAMQPURL = getEnv("AUDIT_AMQP_URL", "")
	cfg.AuditAMQPQueue = getEnv("AUDIT_AMQP_QUEUE", "renthub_audit_events")

	cfg.DevMode, err = strconv.ParseBool(getEnv("DEV_MODE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEV_MODE: %w", err)
	}

	cfg.AuditMode = getEnv("AUDIT_MODE", AuditModeDirect)
	if cfg.AuditMode != AuditModeDirect && cfg.AuditMode != AuditModeQueue {
		return nil, fmt.Errorf("invalid AUDIT_MODE %q: expected %s or %s", cfg.AuditMode, AuditModeDirect, AuditModeQueue)
	}

	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.JwtTTL, err = getSeconds("JWT_TTL_SECONDS", "3600"); err != nil {
		return nil, err
	}
	if cfg.ProofMaxSizeMB, err = getInt("PROOF_MAX_SIZE_MB", "5"); err != nil {
		return nil, err
	}
	if cfg.ProofURLTTL, err = getSeconds("PROOF_URL_TTL_SECONDS", "900"); err != nil {
		return nil, err
	}
	if cfg.EstimateCacheTTL, err = getSeconds("ESTIMATE_CACHE_TTL_SECONDS", "300"); err != nil {
		return nil, err
	}
	if cfg.AuditFanoutWorkers, err = getInt("AUDIT_FANOUT_WORKERS", "4"); err != nil {
		return nil, err
	}

	// Rate Limiting
	if cfg.RateLimitSoftBucketSize, err = getInt("RATE_LIMIT_SOFT_BUCKET_SIZE", "2"); err != nil {
		return nil, err
	}
	if cfg.RateLimitSoftRefillRate, err = getInt("RATE_LIMIT_SOFT_REFILL_RATE", "1"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardBucketSize, err = getInt("RATE_LIMIT_HARD_BUCKET_SIZE", "8"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardRefillRate, err = getInt("RATE_LIMIT_HARD_REFILL_RATE", "4"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ProofMaxBytes is the upload limit for a payment proof.
func (c *Config) ProofMaxBytes() int64 {
	return int64(c.ProofMaxSizeMB) << 20
}

// S3Enabled reports whether payment proof storage is configured.
func (c *Config) S3Enabled() bool {
	return c.AwsS3Bucket != "" && c.AwsRegion != ""
}
