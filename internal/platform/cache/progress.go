// Package cache keeps short-lived state in redis. It stores export progress
// snapshots so any server instance can answer progress polls.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/config"
	"github.com/phrazzld/carousel-api/internal/export"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "export:progress:"

// Connect creates a redis client and verifies the connection with a ping.
func Connect(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected", "addr", cfg.Addr)
	return client, nil
}

// ProgressStore implements export.ProgressStore on redis. Snapshots expire
// after ttl.
type ProgressStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ export.ProgressStore = (*ProgressStore)(nil)

// NewProgressStore creates a ProgressStore.
func NewProgressStore(client redis.Cmdable, ttl time.Duration) *ProgressStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ProgressStore{client: client, ttl: ttl}
}

// Save implements export.ProgressStore.
func (s *ProgressStore) Save(ctx context.Context, snap *export.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal export snapshot: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+snap.ID.String(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set export snapshot: %w", err)
	}
	return nil
}

// Get implements export.ProgressStore.
func (s *ProgressStore) Get(ctx context.Context, id uuid.UUID) (*export.Snapshot, error) {
	data, err := s.client.Get(ctx, keyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, export.ErrExportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get export snapshot: %w", err)
	}

	var snap export.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal export snapshot: %w", err)
	}
	return &snap, nil
}
