package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed fixed_window.lua
var fixedWindowScript string

//go:embed sliding_window_log.lua
var slidingWindowLogScript string

//go:embed token_bucket.lua
var tokenBucketScript string

// Redis is a Redis-backed implementation of Store.
// Suitable for distributed deployments: every procedure runs as a Lua script,
// which Redis executes atomically per key across all connected processes.
type Redis struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	scripts map[Procedure]*redis.Script
}

// RedisConfig holds configuration for the Redis connection.
// Populate from environment variables in your application code.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Prefix   string

	// Timeout bounds each procedure execution. Defaults to DefaultTimeout.
	// Keep it strictly shorter than the request SLA of the protected API.
	Timeout time.Duration
}

// NewRedis creates a Redis store with the given configuration.
func NewRedis(config RedisConfig) (*Redis, error) {
	if config.Prefix == "" {
		config.Prefix = "ratekit:"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.URL,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{
		client:  client,
		prefix:  config.Prefix,
		timeout: config.Timeout,
		scripts: map[Procedure]*redis.Script{
			ProcFixedWindow:      redis.NewScript(fixedWindowScript),
			ProcSlidingWindowLog: redis.NewScript(slidingWindowLogScript),
			ProcTokenBucket:      redis.NewScript(tokenBucketScript),
		},
	}, nil
}

// Execute runs the named procedure as a Lua script. Script errors and
// connection failures are classified as ErrTimeout or ErrUnavailable; the
// call is never retried here.
func (r *Redis) Execute(ctx context.Context, proc Procedure, key string, args ...any) (Result, error) {
	script, ok := r.scripts[proc]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProcedure, proc)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := script.Run(ctx, r.client, []string{r.prefix + key}, args...).Result()
	if err != nil {
		return nil, classify(ctx, err)
	}

	values, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: procedure %q returned %T", ErrUnavailable, proc, raw)
	}
	return Result(values), nil
}

// Reset removes all state for the given key. Intended for tests and
// operational tooling; the engine itself relies on TTL expiry.
func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis reset failed: %w", err)
	}
	return nil
}

// Close releases resources held by the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
