package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Configuration errors.
var (
	// ErrInvalidJailThreshold indicates JailThreshold is not positive.
	ErrInvalidJailThreshold = errors.New("config: jail threshold must be positive")

	// ErrInvalidChunkSize indicates StreamChunkSize is not positive.
	ErrInvalidChunkSize = errors.New("config: stream chunk size must be positive")

	// ErrPrefixCollision indicates the cache and jail key prefixes are equal.
	ErrPrefixCollision = errors.New("config: cache and jail key prefixes must differ")

	// ErrInvalidTTL indicates a TTL is not positive.
	ErrInvalidTTL = errors.New("config: TTL must be positive")
)

// Environment variable names recognized by FromEnv.
const (
	EnvCacheTTL        = "AICACHE_TTL_SECONDS"
	EnvJailThreshold   = "AICACHE_JAIL_THRESHOLD"
	EnvJailTTL         = "AICACHE_JAIL_TTL_SECONDS"
	EnvStreamChunkSize = "AICACHE_STREAM_CHUNK_SIZE"
	EnvLoggingEnabled  = "AICACHE_LOGGING_ENABLED"
	EnvMetricsEnabled  = "AICACHE_METRICS_ENABLED"
	EnvKeyPrefix       = "AICACHE_KEY_PREFIX"
	EnvJailKeyPrefix   = "AICACHE_JAIL_KEY_PREFIX"
	EnvMaxKeyLogLength = "AICACHE_MAX_KEY_LOG_LENGTH"
	EnvBackendTimeout  = "AICACHE_BACKEND_TIMEOUT_SECONDS"
	EnvRedisAddr       = "AICACHE_REDIS_ADDR"
	EnvRedisPassword   = "AICACHE_REDIS_PASSWORD"
	EnvRedisDB         = "AICACHE_REDIS_DB"
)

// Config holds all tunables for the cache subsystem.
type Config struct {
	// CacheTTL is how long a successful entry lives.
	CacheTTL time.Duration

	// JailThreshold is the number of problematic responses for a key
	// before the response is promoted to a normal cache entry.
	JailThreshold int

	// JailTTL is the sliding lifetime of a jail entry; every update
	// refreshes it.
	JailTTL time.Duration

	// StreamChunkSize is the number of characters per replayed text chunk.
	StreamChunkSize int

	// LoggingEnabled turns on diagnostic logging.
	LoggingEnabled bool

	// MetricsEnabled turns on counter/histogram emission.
	MetricsEnabled bool

	// KeyPrefix namespaces cache keys.
	KeyPrefix string

	// JailKeyPrefix namespaces jail keys.
	JailKeyPrefix string

	// MaxKeyLogLength truncates keys in log output.
	MaxKeyLogLength int

	// BackendTimeout bounds each backend operation. A timed-out backend
	// call is treated as cache-unavailable, never a request failure.
	BackendTimeout time.Duration

	// Redis holds connection settings for the Redis backend.
	Redis RedisConfig
}

// RedisConfig holds Redis backend connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		CacheTTL:        24 * time.Hour,
		JailThreshold:   3,
		JailTTL:         24 * time.Hour,
		StreamChunkSize: 5,
		LoggingEnabled:  true,
		MetricsEnabled:  true,
		KeyPrefix:       "ai-cache",
		JailKeyPrefix:   "ai-jail",
		MaxKeyLogLength: 20,
		BackendTimeout:  5 * time.Second,
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// FromEnv builds a Config from AICACHE_* environment variables,
// falling back to defaults for anything unset or unparseable.
func FromEnv() Config {
	cfg := Default()

	cfg.CacheTTL = envSeconds(EnvCacheTTL, cfg.CacheTTL)
	cfg.JailTTL = envSeconds(EnvJailTTL, cfg.JailTTL)
	cfg.BackendTimeout = envSeconds(EnvBackendTimeout, cfg.BackendTimeout)
	cfg.JailThreshold = envInt(EnvJailThreshold, cfg.JailThreshold)
	cfg.StreamChunkSize = envInt(EnvStreamChunkSize, cfg.StreamChunkSize)
	cfg.MaxKeyLogLength = envInt(EnvMaxKeyLogLength, cfg.MaxKeyLogLength)
	cfg.LoggingEnabled = envBool(EnvLoggingEnabled, cfg.LoggingEnabled)
	cfg.MetricsEnabled = envBool(EnvMetricsEnabled, cfg.MetricsEnabled)
	cfg.KeyPrefix = envString(EnvKeyPrefix, cfg.KeyPrefix)
	cfg.JailKeyPrefix = envString(EnvJailKeyPrefix, cfg.JailKeyPrefix)
	cfg.Redis.Addr = envString(EnvRedisAddr, cfg.Redis.Addr)
	cfg.Redis.Password = envString(EnvRedisPassword, cfg.Redis.Password)
	cfg.Redis.DB = envInt(EnvRedisDB, cfg.Redis.DB)

	return cfg
}

// FromEnvFile reads a dotenv-style file and builds a Config from it,
// with the process environment taking precedence over file values.
func FromEnvFile(path string) (Config, error) {
	vals, err := godotenv.Read(path)
	if err != nil {
		return Default(), fmt.Errorf("config: failed to read env file: %w", err)
	}

	for k, v := range vals {
		if _, present := os.LookupEnv(k); !present {
			os.Setenv(k, v)
		}
	}

	return FromEnv(), nil
}

// Validate checks the configuration for values that would misbehave
// at runtime.
func (c Config) Validate() error {
	if c.JailThreshold <= 0 {
		return ErrInvalidJailThreshold
	}
	if c.StreamChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.KeyPrefix == c.JailKeyPrefix {
		return ErrPrefixCollision
	}
	if c.CacheTTL <= 0 || c.JailTTL <= 0 {
		return ErrInvalidTTL
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
