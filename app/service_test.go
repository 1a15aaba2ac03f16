package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphapile/pilesched/api/schedule"
	"github.com/alphapile/pilesched/config"
	"github.com/alphapile/pilesched/core/factory"
	"github.com/alphapile/pilesched/core/tasks"
)

const request = `{
  "piles": [
    {"id": 1, "x": 0, "y": 0, "type": 1, "diameter": 1.0, "duration_hours": 6},
    {"id": 2, "x": 100, "y": 0, "type": 1, "diameter": 1.0, "duration_hours": 8}
  ],
  "num_machines": 1,
  "monte_carlo_simulations": 100,
  "forbidden_duration_hours": 36,
  "simultaneous_exclude_half_side": 1,
  "forbidden_zone_diameter_multiplier": 1,
  "num_zones": 1,
  "solver_num_workers": 1,
  "solver_max_time": 10
}`

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Tasks.Store = factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": filepath.Join(t.TempDir(), "tasks.db")}}
	cfg.Server.AuthToken = "tok"
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestServiceEndToEnd(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()
	base := "http://" + ln.Addr().String()

	req, err := http.NewRequest(http.MethodPost, base+"/schedule", strings.NewReader(request))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var sub schedule.SubmitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sub))
	_ = resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var task tasks.Task
	require.Eventually(t, func() bool {
		req, _ := http.NewRequest(http.MethodGet, base+"/schedule/"+sub.TaskID, nil)
		req.Header.Set("Authorization", "Bearer tok")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
			return false
		}
		return task.Status.Terminal()
	}, 10*time.Second, 20*time.Millisecond)

	require.Equal(t, tasks.Completed, task.Status, task.Error)
	require.NotNil(t, task.Result)
	require.NotNil(t, task.Result.MakespanHours)
	assert.Equal(t, 14.0, *task.Result.MakespanHours)
	assert.Len(t, task.Result.Schedule, 2)
	assert.NotNil(t, task.Result.CompletionProbability)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Solver.Backend.Type = "cpsat"
	_, err := New(cfg)
	assert.Error(t, err)
}
