package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/config"
)

// LoginLimiter throttles credential guessing using Redis. Counters track
// failed logins per email+IP in a fixed window; successful logins clear the
// counter.
type LoginLimiter interface {
	// Allow reports whether another login attempt may proceed
	Allow(ctx context.Context, email, ip string) (bool, error)

	// RecordFailure increments the failed-attempt counter
	RecordFailure(ctx context.Context, email, ip string) error

	// Reset clears the counter after a successful login
	Reset(ctx context.Context, email, ip string) error

	// Close closes the Redis connection
	Close() error
}

type redisLoginLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
	logger      *slog.Logger
}

// NewLoginLimiter creates a new Redis-based login limiter
func NewLoginLimiter(cfg *config.Config, logger *slog.Logger) (LoginLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       int(cfg.RedisDatabase),
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("❌ [LoginLimiter] Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("✅ [LoginLimiter] Connected to Redis",
		"host", cfg.RedisHost,
		"port", cfg.RedisPort,
	)

	return &redisLoginLimiter{
		client:      client,
		maxAttempts: cfg.LoginMaxAttempts,
		window:      time.Duration(cfg.LoginAttemptWindowSecs) * time.Second,
		logger:      logger,
	}, nil
}

// NewLoginLimiterWithClient creates a login limiter with a provided redis
// client (for testing)
func NewLoginLimiterWithClient(client *redis.Client, cfg *config.Config, logger *slog.Logger) LoginLimiter {
	return &redisLoginLimiter{
		client:      client,
		maxAttempts: cfg.LoginMaxAttempts,
		window:      time.Duration(cfg.LoginAttemptWindowSecs) * time.Second,
		logger:      logger,
	}
}

// attemptKey generates the Redis key for failed login attempts.
// Format: login:attempts:{email}:{ip}
func attemptKey(email, ip string) string {
	return fmt.Sprintf("login:attempts:%s:%s", strings.ToLower(email), ip)
}

func (r *redisLoginLimiter) Allow(ctx context.Context, email, ip string) (bool, error) {
	if r.maxAttempts <= 0 {
		return true, nil
	}

	count, err := r.client.Get(ctx, attemptKey(email, ip)).Int64()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		r.logger.Error("❌ [LoginLimiter] Failed to read attempt count", "error", err)
		// On error, allow the request but report it
		return true, err
	}

	return count < r.maxAttempts, nil
}

func (r *redisLoginLimiter) RecordFailure(ctx context.Context, email, ip string) error {
	key := attemptKey(email, ip)

	pipe := r.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.window)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("❌ [LoginLimiter] Failed to record failed attempt", "error", err)
		return err
	}

	return nil
}

func (r *redisLoginLimiter) Reset(ctx context.Context, email, ip string) error {
	if err := r.client.Del(ctx, attemptKey(email, ip)).Err(); err != nil {
		r.logger.Error("❌ [LoginLimiter] Failed to reset attempt count", "error", err)
		return err
	}
	return nil
}

func (r *redisLoginLimiter) Close() error {
	return r.client.Close()
}

// NoOpLoginLimiter always allows login attempts. Used when Redis is not
// available.
type NoOpLoginLimiter struct {
	logger *slog.Logger
}

// NewNoOpLoginLimiter creates a no-op login limiter
func NewNoOpLoginLimiter(logger *slog.Logger) LoginLimiter {
	logger.Warn("⚠️ [LoginLimiter] Using no-op login limiter - login throttling is disabled")
	return &NoOpLoginLimiter{logger: logger}
}

func (r *NoOpLoginLimiter) Allow(ctx context.Context, email, ip string) (bool, error) {
	return true, nil
}

func (r *NoOpLoginLimiter) RecordFailure(ctx context.Context, email, ip string) error {
	return nil
}

func (r *NoOpLoginLimiter) Reset(ctx context.Context, email, ip string) error {
	return nil
}

func (r *NoOpLoginLimiter) Close() error {
	return nil
}
