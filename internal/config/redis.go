package config

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the REDIS_* settings.  Redis backs the response cache
// and the distributed rate limiter; both degrade when it is missing.
type RedisConfig struct {
	Disabled    bool
	Addr        string
	Password    string
	DB          int
	TLS         bool
	PingTimeout time.Duration
}

// LoadRedisConfig reads:
//
//	REDIS_HOST and REDIS_PORT – host and port (win over REDIS_ADDR)
//	REDIS_ADDR – host:port shorthand, default localhost:6379
//	REDIS_PASSWORD – optional password
//	REDIS_DB – database number (default 0)
//	REDIS_TLS – enable TLS
//	REDIS_DISABLED – skip Redis entirely
func LoadRedisConfig() RedisConfig {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	return RedisConfig{
		Disabled:    envBool("REDIS_DISABLED", false),
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          envInt("REDIS_DB", 0),
		TLS:         envBool("REDIS_TLS", false),
		PingTimeout: envDur("REDIS_PING_TIMEOUT", 2*time.Second),
	}
}

// NewRedisClient connects and pings.  It returns nil when Redis is disabled
// or unreachable.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if cfg.Disabled {
		return nil
	}
	opts := &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
