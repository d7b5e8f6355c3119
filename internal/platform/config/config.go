package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server needs from the environment so main
// stays lean.
type Config struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	StorageAPI    StorageAPIConfig
	JWTSigningKey string
	JWTIssuer     string

	// ListingCacheTTL bounds staleness of the cached blob-storage listing.
	// Reconciliation always bypasses the cache.
	ListingCacheTTL time.Duration
}

// RedisConfig holds connection tuning for the optional listing cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StorageAPIConfig points at the blob-storage HTTP API that holds provider
// document uploads.
type StorageAPIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("VERIFICA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}
	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "verifica"
	}

	storageTimeout := durationFromEnv("STORAGE_API_TIMEOUT", 10*time.Second)
	cacheTTL := durationFromEnv("LISTING_CACHE_TTL", 30*time.Second)

	return Config{
		Addr:        addr,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intFromEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: intFromEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationFromEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationFromEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationFromEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		StorageAPI: StorageAPIConfig{
			BaseURL: os.Getenv("STORAGE_API_URL"),
			Token:   os.Getenv("STORAGE_API_TOKEN"),
			Timeout: storageTimeout,
		},
		JWTSigningKey:   jwtSigningKey,
		JWTIssuer:       jwtIssuer,
		ListingCacheTTL: cacheTTL,
	}
}

func intFromEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}
