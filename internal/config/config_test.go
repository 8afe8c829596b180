package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfigClampsValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 5*time.Second, cfg.TTL)
}

func TestLoadRateLimitConfigBurstOverride(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "3s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 7, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 3*time.Second, cfg.RefillInterval)
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	t.Setenv("CACHE_ENABLED", "off")

	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
}

func TestLoadOMDBConfigDefaults(t *testing.T) {
	t.Setenv("OMDB_API_KEY", "k")
	t.Setenv("OMDB_ATTEMPTS", "0")

	cfg := LoadOMDBConfig()
	assert.Equal(t, "https://www.omdbapi.com/", cfg.BaseURL)
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, 1, cfg.Attempts)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "yes")
	assert.True(t, envBool("X_FLAG", false))
	t.Setenv("X_FLAG", "maybe")
	assert.False(t, envBool("X_FLAG", false))
}

func TestLoadRedisConfig(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "2")
	cfg := LoadRedisConfig()
	assert.Equal(t, "cache:6380", cfg.Addr)
	assert.Equal(t, 2, cfg.DB)
	assert.False(t, cfg.TLS)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	assert.Equal(t, "redis:6379", LoadRedisConfig().Addr)
}

func TestDisabledRedisYieldsNoClient(t *testing.T) {
	assert.Nil(t, NewRedisClient(RedisConfig{Disabled: true}))
}
