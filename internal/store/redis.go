// Package store provides storage backends for the Emily API.
//
// This file implements a Redis-backed cache for wizard sessions. It holds the
// hot copy of in-progress wizards; the SQL store stays the system of record.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/getemily/emily-api/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL bounds how long an abandoned wizard session stays cached.
const DefaultSessionTTL = 7 * 24 * time.Hour

// RedisOpts holds configuration for the Redis session cache.
type RedisOpts struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisOption configures Redis session cache construction.
type RedisOption func(*RedisOpts)

// WithRedisAddr sets the Redis server address.
func WithRedisAddr(addr string) RedisOption {
	return func(o *RedisOpts) { o.Addr = addr }
}

// WithRedisPassword sets the Redis password.
func WithRedisPassword(password string) RedisOption {
	return func(o *RedisOpts) { o.Password = password }
}

// WithRedisDB selects the Redis logical database.
func WithRedisDB(db int) RedisOption {
	return func(o *RedisOpts) { o.DB = db }
}

// WithSessionTTL overrides the cached-session expiry.
func WithSessionTTL(ttl time.Duration) RedisOption {
	return func(o *RedisOpts) { o.TTL = ttl }
}

// RedisSessionStore implements SessionStore on top of Redis.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates the cache and verifies connectivity.
func NewRedisSessionStore(opts ...RedisOption) (*RedisSessionStore, error) {
	var cfg RedisOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewRedisSessionStore invoked", "addr", cfg.Addr, "db", cfg.DB)

	if cfg.Addr == "" {
		slog.Error("RedisSessionStore address not set")
		return nil, fmt.Errorf("redis address not set")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Redis ping failed", "error", err, "addr", cfg.Addr)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Debug("Redis ping successful", "addr", cfg.Addr)

	return &RedisSessionStore{client: client, ttl: cfg.TTL}, nil
}

func redisSessionKey(accountID string, variant models.WizardVariant) string {
	return fmt.Sprintf("emily:wizard:%s:%s", accountID, variant)
}

// SaveWizardSession caches a wizard session with the configured TTL.
func (s *RedisSessionStore) SaveWizardSession(sess models.WizardSession) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		slog.Error("RedisSessionStore SaveWizardSession marshal failed", "error", err, "accountID", sess.AccountID)
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	key := redisSessionKey(sess.AccountID, sess.Variant)
	if err := s.client.Set(context.Background(), key, payload, s.ttl).Err(); err != nil {
		slog.Error("RedisSessionStore SaveWizardSession failed", "error", err, "key", key)
		return fmt.Errorf("failed to cache session: %w", err)
	}
	slog.Debug("RedisSessionStore SaveWizardSession succeeded", "key", key, "step", sess.Progress.CurrentStep)
	return nil
}

// GetWizardSession returns the cached session, or nil on miss. A corrupt
// cached payload is treated as a miss so the caller falls back to the
// durable store.
func (s *RedisSessionStore) GetWizardSession(accountID string, variant models.WizardVariant) (*models.WizardSession, error) {
	key := redisSessionKey(accountID, variant)
	raw, err := s.client.Get(context.Background(), key).Result()
	if err == redis.Nil {
		slog.Debug("RedisSessionStore GetWizardSession miss", "key", key)
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisSessionStore GetWizardSession failed", "error", err, "key", key)
		return nil, fmt.Errorf("failed to read cached session: %w", err)
	}

	var sess models.WizardSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		slog.Warn("RedisSessionStore GetWizardSession corrupt payload, treating as miss", "error", err, "key", key)
		return nil, nil
	}
	slog.Debug("RedisSessionStore GetWizardSession hit", "key", key, "step", sess.Progress.CurrentStep)
	return &sess, nil
}

// DeleteWizardSession evicts a cached session.
func (s *RedisSessionStore) DeleteWizardSession(accountID string, variant models.WizardVariant) error {
	key := redisSessionKey(accountID, variant)
	if err := s.client.Del(context.Background(), key).Err(); err != nil {
		slog.Error("RedisSessionStore DeleteWizardSession failed", "error", err, "key", key)
		return fmt.Errorf("failed to evict cached session: %w", err)
	}
	slog.Debug("RedisSessionStore DeleteWizardSession succeeded", "key", key)
	return nil
}

// Close closes the Redis client.
func (s *RedisSessionStore) Close() error {
	slog.Debug("Closing Redis session cache")
	return s.client.Close()
}
