// Package taskstore provides persistent task stores. Importing it registers
// the "redis" and "sqlite" store types with core/tasks.
package taskstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alphapile/pilesched/core/factory"
	"github.com/alphapile/pilesched/core/model"
	"github.com/alphapile/pilesched/core/tasks"
)

// RedisConfig configures RedisStore.
type RedisConfig struct {
	tasks.TTLConfig
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// Prefix namespaces the keys.
	Prefix string `json:"prefix"`
}

// RedisStore keeps each task as a JSON value under its own key. Expiry uses
// native key TTLs refreshed on every update.
type RedisStore struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisStore connects to the configured server and checks it responds.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return NewRedisStoreWithClient(rdb, cfg.TTL(), cfg.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(rdb redis.UniversalClient, ttl time.Duration, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "pilesched:task:"
	}
	if ttl <= 0 {
		ttl = tasks.DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

func (s *RedisStore) put(ctx context.Context, t tasks.Task) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return s.rdb.Set(ctx, s.key(t.ID), b, s.ttl).Err()
}

// Create registers a pending task.
func (s *RedisStore) Create(ctx context.Context, id string) (tasks.Task, error) {
	now := s.now().UTC()
	t := tasks.Task{ID: id, Status: tasks.Pending, CreatedAt: now, UpdatedAt: now}
	if err := s.put(ctx, t); err != nil {
		return tasks.Task{}, err
	}
	return t, nil
}

// Update changes the task status.
func (s *RedisStore) Update(ctx context.Context, id string, status tasks.Status, result *model.Result, errMsg string) (tasks.Task, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return tasks.Task{}, err
	}
	t.Status = status
	t.Result = result
	t.Error = errMsg
	t.UpdatedAt = s.now().UTC()
	if err := s.put(ctx, t); err != nil {
		return tasks.Task{}, err
	}
	return t, nil
}

// Get returns the task.
func (s *RedisStore) Get(ctx context.Context, id string) (tasks.Task, error) {
	b, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return tasks.Task{}, tasks.ErrNotFound
	}
	if err != nil {
		return tasks.Task{}, err
	}
	var t tasks.Task
	if err := json.Unmarshal(b, &t); err != nil {
		return tasks.Task{}, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return t, nil
}

// Close closes the client.
func (s *RedisStore) Close() error { return s.rdb.Close() }

func init() {
	_ = tasks.RegisterStore("redis", func(conf map[string]any) (tasks.Store, error) {
		var c RedisConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Addr == "" {
			c.Addr = "localhost:6379"
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return NewRedisStore(ctx, c)
	})
}
