// Package tasks runs scheduling requests in the background and keeps their
// status until they expire.
//
// A task moves pending -> running -> completed | failed. Stores are
// key-value: every task is addressed by its id and disappears after the
// store's TTL.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alphapile/pilesched/core/factory"
	"github.com/alphapile/pilesched/core/model"
)

// Status is the lifecycle state of a task.
type Status string

const (
	Pending   Status = "pending"
	Running   Status = "running"
	Completed Status = "completed"
	Failed    Status = "failed"
)

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool { return s == Completed || s == Failed }

var (
	// ErrNotFound is returned for unknown or expired tasks.
	ErrNotFound = errors.New("task not found")
	// ErrQueueFull is returned when no worker slot is available.
	ErrQueueFull = errors.New("task queue full")
)

// Task is the stored state of one request.
type Task struct {
	ID        string        `json:"task_id"`
	Status    Status        `json:"status"`
	Result    *model.Result `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Store persists tasks.
type Store interface {
	// Create registers a pending task.
	Create(ctx context.Context, id string) (Task, error)
	// Update moves a task to status, replacing its result and error.
	Update(ctx context.Context, id string, status Status, result *model.Result, errMsg string) (Task, error)
	// Get returns ErrNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (Task, error)
	Close() error
}

// DefaultTTL is how long tasks are kept when the configuration is silent.
const DefaultTTL = 24 * time.Hour

var storeRegistry = factory.NewRegistry[Store]()

// RegisterStore adds a store factory identified by name.
func RegisterStore(name string, f factory.Factory[Store]) error {
	return storeRegistry.Register(name, f)
}

// NewStore builds the configured store.
func NewStore(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if !storeRegistry.Has(cfg.Type) {
		return nil, fmt.Errorf("unknown task store %q", cfg.Type)
	}
	return storeRegistry.Create(cfg)
}

// StoreTypes lists the registered store names.
func StoreTypes() []string { return storeRegistry.Names() }

// TTLConfig is the common setting of every store.
type TTLConfig struct {
	TTLSeconds int `json:"ttl_seconds"`
}

// TTL returns the configured expiry or DefaultTTL.
func (c TTLConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return DefaultTTL
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

func init() {
	_ = RegisterStore("memory", func(conf map[string]any) (Store, error) {
		var c TTLConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMemoryStore(c.TTL()), nil
	})
}
