// Package onboarding remembers whether the welcome guide has been shown.
package onboarding

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// GuideKey is the flag set once the guide has been shown.
const GuideKey = "bcc_has_seen_guide"

// RedisRepository keeps the flag in Redis so it survives restarts.
type RedisRepository struct {
	client *redis.Client
	key    string
}

// NewRedisRepository creates a repository over client. An empty prefix keeps the bare key.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	return &RedisRepository{client: client, key: prefix + GuideKey}
}

// Seen reports whether the guide has been shown.
func (r *RedisRepository) Seen(ctx context.Context) (bool, error) {
	n, err := r.client.Exists(ctx, r.key).Result()
	if err != nil {
		return false, fmt.Errorf("onboarding: read flag: %w", err)
	}
	return n > 0, nil
}

// MarkSeen records that the guide has been shown.
func (r *RedisRepository) MarkSeen(ctx context.Context) error {
	if err := r.client.Set(ctx, r.key, "true", 0).Err(); err != nil {
		return fmt.Errorf("onboarding: write flag: %w", err)
	}
	return nil
}

// ShowOnce sets the flag and reports whether it was unset before, so only the first caller shows the guide.
func (r *RedisRepository) ShowOnce(ctx context.Context) (bool, error) {
	set, err := r.client.SetNX(ctx, r.key, "true", 0).Result()
	if err != nil {
		return false, fmt.Errorf("onboarding: set flag: %w", err)
	}
	return set, nil
}

// MemoryRepository is the process-local flag used when no Redis is configured.
type MemoryRepository struct {
	mu   sync.Mutex
	seen bool
}

// NewMemoryRepository creates an unset flag.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Seen(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen, nil
}

func (m *MemoryRepository) MarkSeen(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = true
	return nil
}

func (m *MemoryRepository) ShowOnce(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	show := !m.seen
	m.seen = true
	return show, nil
}
