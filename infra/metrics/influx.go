package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/alphapile/pilesched/core/metrics"
	"github.com/alphapile/pilesched/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes planning events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSolve writes one solve_event point.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	p := write.NewPointWithMeasurement("solve_event").
		AddTag("status", ev.Status).
		AddTag("backend", ev.Backend)
	if ev.TaskID != "" {
		p = p.AddTag("task_id", ev.TaskID)
	}
	p = p.AddField("piles", ev.Piles).
		AddField("machines", ev.Machines).
		AddField("zones", ev.Zones).
		AddField("simultaneous_pairs", ev.SimultaneousPairs).
		AddField("forbidden_pairs", ev.ForbiddenPairs).
		AddField("makespan_hours", round3(ev.MakespanHours)).
		AddField("objective_hours", round3(ev.ObjectiveHours)).
		AddField("zone_excess", ev.ZoneExcess).
		AddField("branches", ev.Branches).
		AddField("wall_ms", round3(ev.WallTime.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordRobustness writes one robustness_event point.
func (s *InfluxSink) RecordRobustness(ev coremetrics.RobustnessEvent) error {
	p := write.NewPointWithMeasurement("robustness_event")
	if ev.TaskID != "" {
		p = p.AddTag("task_id", ev.TaskID)
	}
	p = p.AddField("trials", ev.Trials).
		AddField("failed", ev.Failed).
		AddField("completion_probability", round3(ev.CompletionProbability)).
		AddField("mean_hours", round3(ev.MeanHours)).
		AddField("p90_hours", round3(ev.P90Hours)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordTaskStatus writes one task_status point.
func (s *InfluxSink) RecordTaskStatus(ev coremetrics.TaskEvent) error {
	p := write.NewPointWithMeasurement("task_status").
		AddTag("task_id", ev.TaskID).
		AddTag("status", ev.Status).
		AddField("elapsed_ms", round3(ev.Elapsed.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
