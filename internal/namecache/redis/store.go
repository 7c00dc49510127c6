// Package redis provides a Redis-backed name-cache store for deployments
// where the exporter has no stable local disk. The snapshot is stored as a
// single JSON value under one key, so a SET is as atomic as the file store's
// rename.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ramses-exporter/internal/config"
	"ramses-exporter/internal/namecache"
)

// DefaultKey is the Redis key holding the cache snapshot.
const DefaultKey = "ramses:name_cache"

const opTimeout = 5 * time.Second

// Store persists name-cache snapshots in Redis.
type Store struct {
	client *redis.Client
	key    string
}

// NewStore connects to Redis and verifies the connection.
func NewStore(cfg *config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client, key: DefaultKey}, nil
}

// Load reads the snapshot. A missing key yields an empty snapshot.
func (s *Store) Load() (*namecache.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &namecache.Snapshot{
				Zones:   make(map[string]namecache.Entry),
				Devices: make(map[string]namecache.Entry),
			}, nil
		}
		return nil, fmt.Errorf("failed to get cache snapshot: %w", err)
	}

	snap := &namecache.Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache snapshot: %w", err)
	}
	if snap.Zones == nil {
		snap.Zones = make(map[string]namecache.Entry)
	}
	if snap.Devices == nil {
		snap.Devices = make(map[string]namecache.Entry)
	}
	return snap, nil
}

// Save writes the full snapshot under the store key.
func (s *Store) Save(snap *namecache.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal cache snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set cache snapshot: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
