package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/alphapile/pilesched/core/model"
)

// MemoryStore keeps tasks in process memory. Expired tasks are dropped
// lazily on access and by Prune.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	tasks map[string]Task
	now   func() time.Time
}

// NewMemoryStore returns an empty store keeping tasks for ttl after their
// last update.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, tasks: map[string]Task{}, now: time.Now}
}

func (s *MemoryStore) expired(t Task) bool {
	return s.now().Sub(t.UpdatedAt) > s.ttl
}

// Create registers a pending task.
func (s *MemoryStore) Create(_ context.Context, id string) (Task, error) {
	now := s.now()
	t := Task{ID: id, Status: Pending, CreatedAt: now, UpdatedAt: now}
	s.mu.Lock()
	s.tasks[id] = t
	s.mu.Unlock()
	return t, nil
}

// Update changes the task status.
func (s *MemoryStore) Update(_ context.Context, id string, status Status, result *model.Result, errMsg string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || s.expired(t) {
		delete(s.tasks, id)
		return Task{}, ErrNotFound
	}
	t.Status = status
	t.Result = result
	t.Error = errMsg
	t.UpdatedAt = s.now()
	s.tasks[id] = t
	return t, nil
}

// Get returns the task.
func (s *MemoryStore) Get(_ context.Context, id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	if s.expired(t) {
		delete(s.tasks, id)
		return Task{}, ErrNotFound
	}
	return t, nil
}

// Prune removes expired tasks and returns how many were dropped.
func (s *MemoryStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, t := range s.tasks {
		if s.expired(t) {
			delete(s.tasks, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored tasks, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
