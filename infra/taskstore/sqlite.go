package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alphapile/pilesched/core/factory"
	"github.com/alphapile/pilesched/core/model"
	"github.com/alphapile/pilesched/core/tasks"
)

// SQLiteConfig configures SQLiteStore.
type SQLiteConfig struct {
	tasks.TTLConfig
	Path string `json:"path"`
}

// SQLiteStore persists tasks to a SQLite database. Rows past expires_at are
// invisible and removed by Prune.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS tasks (
        id TEXT PRIMARY KEY,
        status TEXT NOT NULL,
        record TEXT NOT NULL,
        updated_at INTEGER NOT NULL,
        expires_at INTEGER NOT NULL
    );
    CREATE INDEX IF NOT EXISTS tasks_expires_at ON tasks (expires_at);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	if ttl <= 0 {
		ttl = tasks.DefaultTTL
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStore) put(ctx context.Context, t tasks.Task) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, status, record, updated_at, expires_at) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET status = excluded.status, record = excluded.record,
         updated_at = excluded.updated_at, expires_at = excluded.expires_at`,
		t.ID, string(t.Status), string(b), t.UpdatedAt.UnixNano(), t.UpdatedAt.Add(s.ttl).UnixNano())
	return err
}

// Create registers a pending task.
func (s *SQLiteStore) Create(ctx context.Context, id string) (tasks.Task, error) {
	now := s.now().UTC()
	t := tasks.Task{ID: id, Status: tasks.Pending, CreatedAt: now, UpdatedAt: now}
	if err := s.put(ctx, t); err != nil {
		return tasks.Task{}, err
	}
	return t, nil
}

// Update changes the task status.
func (s *SQLiteStore) Update(ctx context.Context, id string, status tasks.Status, result *model.Result, errMsg string) (tasks.Task, error) {
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

// Get returns the task unless it expired.
func (s *SQLiteStore) Get(ctx context.Context, id string) (tasks.Task, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM tasks WHERE id = ? AND expires_at > ?`, id, s.now().UnixNano()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return tasks.Task{}, tasks.ErrNotFound
	}
	if err != nil {
		return tasks.Task{}, err
	}
	var t tasks.Task
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return tasks.Task{}, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return t, nil
}

// Prune deletes expired rows and returns how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func init() {
	_ = tasks.RegisterStore("sqlite", func(conf map[string]any) (tasks.Store, error) {
		var c SQLiteConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "tasks.db"
		}
		return NewSQLiteStore(c.Path, c.TTL())
	})
}
