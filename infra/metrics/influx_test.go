package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/alphapile/pilesched/core/metrics"
)

func captureServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, strings.TrimSpace(string(b)))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), bodies...)
	}
}

func TestInfluxSink_RecordSolve(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	now := time.Now()
	ev := coremetrics.SolveEvent{
		TaskID:         "t1",
		Backend:        "native",
		Status:         "OPTIMAL",
		Piles:          4,
		Machines:       2,
		Zones:          2,
		MakespanHours:  40,
		ObjectiveHours: 50,
		ZoneExcess:     1,
		Branches:       12,
		WallTime:       1500 * time.Microsecond,
		Time:           now,
	}
	if err := sink.RecordSolve(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("solve_event").
		AddTag("status", "OPTIMAL").
		AddTag("backend", "native").
		AddTag("task_id", "t1").
		AddField("piles", 4).
		AddField("machines", 2).
		AddField("zones", 2).
		AddField("simultaneous_pairs", 0).
		AddField("forbidden_pairs", 0).
		AddField("makespan_hours", 40.0).
		AddField("objective_hours", 50.0).
		AddField("zone_excess", int64(1)).
		AddField("branches", int64(12)).
		AddField("wall_ms", 1.5).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if got := bodies(); len(got) != 1 || got[0] != exp {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestInfluxSink_RecordRobustnessAndTask(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()
	now := time.Now()

	if err := sink.RecordRobustness(coremetrics.RobustnessEvent{
		Trials: 100, CompletionProbability: 0.4567, MeanHours: 14.2, P90Hours: 17.9, Duration: time.Second, Time: now,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.RecordTaskStatus(coremetrics.TaskEvent{TaskID: "t2", Status: "completed", Elapsed: 2 * time.Millisecond, Time: now}); err != nil {
		t.Fatalf("record: %v", err)
	}

	rp := write.NewPointWithMeasurement("robustness_event").
		AddField("trials", 100).
		AddField("failed", false).
		AddField("completion_probability", 0.457).
		AddField("mean_hours", 14.2).
		AddField("p90_hours", 17.9).
		AddField("duration_ms", 1000.0).
		SetTime(now)
	tp := write.NewPointWithMeasurement("task_status").
		AddTag("task_id", "t2").
		AddTag("status", "completed").
		AddField("elapsed_ms", 2.0).
		SetTime(now)
	want := []string{
		strings.TrimSpace(write.PointToLineProtocol(rp, time.Nanosecond)),
		strings.TrimSpace(write.PointToLineProtocol(tp, time.Nanosecond)),
	}
	got := bodies()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("bodies: %#v", got)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{
		URL:    srv.URL + "/api/v2/write",
		Token:  "tok",
		Org:    "org",
		Bucket: "bucket",
	})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
