// Package kpi aggregates solver outcomes per day and backend in SQLite.
package kpi

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alphapile/pilesched/core/factory"
	coremetrics "github.com/alphapile/pilesched/core/metrics"
)

// Record is the aggregate of one day for one backend.
type Record struct {
	Day     time.Time `json:"day"`
	Backend string    `json:"backend"`
	Solves  int       `json:"solves"`
	// Solved counts runs that returned a schedule.
	Solved        int     `json:"solved"`
	MakespanHours float64 `json:"makespan_hours"`
	WallSeconds   float64 `json:"wall_seconds"`
}

// MeanMakespan returns the average makespan of solved runs.
func (r Record) MeanMakespan() float64 {
	if r.Solved == 0 {
		return 0
	}
	return r.MakespanHours / float64(r.Solved)
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SQLiteStore persists KPI records in a SQLite database. It implements
// metrics.MetricsSink.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS solve_kpi (
        day INTEGER,
        backend TEXT,
        solves INTEGER,
        solved INTEGER,
        makespan REAL,
        wall REAL,
        PRIMARY KEY(day, backend)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func init() {
	_ = coremetrics.RegisterMetricsSink("sqlite", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "kpi.db"
		}
		return NewSQLiteStore(c.Path)
	})
}

// RecordSolve adds the run to its day's aggregate.
func (s *SQLiteStore) RecordSolve(ev coremetrics.SolveEvent) error {
	var solved int
	var makespan float64
	if ev.Status == "OPTIMAL" || ev.Status == "FEASIBLE" {
		solved, makespan = 1, ev.MakespanHours
	}
	at := ev.Time
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO solve_kpi (day, backend, solves, solved, makespan, wall)
        VALUES (?, ?, 1, ?, ?, ?)
        ON CONFLICT(day, backend) DO UPDATE SET
            solves = solves + 1,
            solved = solved + excluded.solved,
            makespan = makespan + excluded.makespan,
            wall = wall + excluded.wall`,
		Day(at).Unix(), ev.Backend, solved, makespan, ev.WallTime.Seconds())
	return err
}

// Query returns records in the range [start,end] ordered by day.
func (s *SQLiteStore) Query(start, end time.Time) ([]Record, error) {
	rows, err := s.db.Query(`SELECT day, backend, solves, solved, makespan, wall
        FROM solve_kpi WHERE day >= ? AND day <= ? ORDER BY day, backend`,
		Day(start).Unix(), Day(end).Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var r Record
		var ts int64
		if err := rows.Scan(&ts, &r.Backend, &r.Solves, &r.Solved, &r.MakespanHours, &r.WallSeconds); err != nil {
			return nil, err
		}
		r.Day = time.Unix(ts, 0).UTC()
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
