package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the asynq broker and verifies reachability.
func NewRedisClient(cfg *Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return rdb, nil
}

// redisURL normalizes the configured address to a parseable URL. A full
// redis:// or rediss:// URL is taken as-is and carries its own credentials;
// a bare host:port gets the separately configured password and DB attached.
func redisURL(cfg *Config) string {
	if strings.Contains(cfg.RedisURL, "://") {
		return cfg.RedisURL
	}

	u := url.URL{
		Scheme: "redis",
		Host:   cfg.RedisURL,
		Path:   "/" + strconv.Itoa(cfg.RedisDB),
	}
	if cfg.RedisPassword != "" {
		u.User = url.UserPassword("", cfg.RedisPassword)
	}
	return u.String()
}
