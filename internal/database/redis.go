package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// JobKeyPrefix namespaces every Redis key that belongs to evaluation jobs.
const JobKeyPrefix = "eval:jobs"

// ConnectRedis parses url and pings the server within five seconds.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("redis url must not be empty")
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", options.Addr, err)
	}

	return client, nil
}

// JobKey joins parts under JobKeyPrefix, e.g. eval:jobs:<id>:notified.
func JobKey(parts ...string) string {
	return strings.Join(append([]string{JobKeyPrefix}, parts...), ":")
}
