package config

// Redis backs the response cache and the rate limiter.  If the server cannot
// be reached during start-up NewRedisClient returns nil and callers degrade
// by disabling both.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisConfig is bound from REDIS_* variables.  Host and Port take precedence
// over Addr when both are set.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     string `envconfig:"REDIS_PORT"`
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	TLS      bool   `envconfig:"REDIS_TLS" default:"false"`
}

func (c RedisConfig) address() string {
	if c.Host != "" && c.Port != "" {
		return c.Host + ":" + c.Port
	}
	return c.Addr
}

// NewRedisClient instantiates a Redis client from the environment and pings
// it with a short timeout.  The returned client is nil when Redis is down.
func NewRedisClient() *redis.Client {
	var c RedisConfig
	if err := envconfig.Process("", &c); err != nil {
		logrus.WithError(err).Warn("redis config invalid")
		return nil
	}
	opts := &redis.Options{
		Addr:     c.address(),
		Password: c.Password,
		DB:       c.DB,
	}
	if c.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).WithField("addr", opts.Addr).Warn("redis unavailable, cache and rate limiting disabled")
		_ = client.Close()
		return nil
	}
	return client
}
