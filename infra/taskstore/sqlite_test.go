package taskstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alphapile/pilesched/core/factory"
	"github.com/alphapile/pilesched/core/model"
	"github.com/alphapile/pilesched/core/tasks"
)

func TestSQLiteStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tasks.db"), time.Hour)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = s.Close() }()
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if _, err := s.Create(ctx, "a"); err != nil {
		t.Fatalf("create: %v", err)
	}
	mk := 42.0
	now = now.Add(time.Minute)
	if _, err := s.Update(ctx, "a", tasks.Completed, &model.Result{Status: "OPTIMAL", MakespanHours: &mk}, ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != tasks.Completed || got.Result == nil || *got.Result.MakespanHours != mk {
		t.Fatalf("unexpected task %+v", got)
	}
	if !got.CreatedAt.Equal(now.Add(-time.Minute)) {
		t.Fatalf("created_at changed: %v", got.CreatedAt)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, tasks.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := s.Get(ctx, "a"); !errors.Is(err, tasks.ErrNotFound) {
		t.Fatalf("expected expired task, got %v", err)
	}
	n, err := s.Prune(ctx)
	if err != nil || n != 1 {
		t.Fatalf("prune: n=%d err=%v", n, err)
	}
}

func TestSQLiteStoreRegistered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg.db")
	s, err := tasks.NewStore(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": path, "ttl_seconds": "30"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() { _ = s.Close() }()
	ss, ok := s.(*SQLiteStore)
	if !ok {
		t.Fatalf("expected *SQLiteStore, got %T", s)
	}
	if ss.ttl != 30*time.Second {
		t.Fatalf("ttl not decoded: %v", ss.ttl)
	}
}
