package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/alphapile/pilesched/core/metrics"
)

// PromSink records planning events in Prometheus metrics.
type PromSink struct {
	solves     *prometheus.CounterVec
	makespan   *prometheus.HistogramVec
	wallTime   *prometheus.HistogramVec
	excess     prometheus.Histogram
	completion prometheus.Histogram
	robustFail prometheus.Counter
	tasks      *prometheus.CounterVec
	queue      prometheus.Gauge
}

var (
	makespanBuckets = []float64{6, 12, 24, 48, 96, 168, 336, 720}
	wallBuckets     = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120}
)

// NewPromSink registers planning metrics on the default Prometheus registerer.
// The HTTP endpoint is served separately under Config.PrometheusPath.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pilesched_solves_total",
			Help: "Solver runs by final status",
		}, []string{"status", "backend"}),
		makespan: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pilesched_makespan_hours",
			Help:    "Makespan of returned schedules",
			Buckets: makespanBuckets,
		}, []string{"backend"}),
		wallTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pilesched_solve_seconds",
			Help:    "Solver wall time",
			Buckets: wallBuckets,
		}, []string{"backend", "status"}),
		excess: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pilesched_zone_excess",
			Help:    "Zones worked beyond the machine count",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		}),
		completion: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pilesched_completion_probability",
			Help:    "Monte Carlo probability of finishing within the planned makespan",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		robustFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pilesched_robustness_failures_total",
			Help: "Robustness evaluations that returned an error",
		}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pilesched_task_transitions_total",
			Help: "Background task status transitions",
		}, []string{"status"}),
		queue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pilesched_task_queue_depth",
			Help: "Tasks waiting for a worker",
		}),
	}
	if err := register(reg, &s.solves); err != nil {
		return nil, err
	}
	if err := register(reg, &s.makespan); err != nil {
		return nil, err
	}
	if err := register(reg, &s.wallTime); err != nil {
		return nil, err
	}
	if err := register(reg, &s.excess); err != nil {
		return nil, err
	}
	if err := register(reg, &s.completion); err != nil {
		return nil, err
	}
	if err := register(reg, &s.robustFail); err != nil {
		return nil, err
	}
	if err := register(reg, &s.tasks); err != nil {
		return nil, err
	}
	if err := register(reg, &s.queue); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds *c to reg, replacing it with the existing collector when
// one with the same descriptor is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return err
	}
	existing, ok := are.ExistingCollector.(C)
	if !ok {
		return err
	}
	*c = existing
	return nil
}

// RecordSolve counts the run and observes the schedule quality.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(ev.Status, ev.Backend).Inc()
	s.wallTime.WithLabelValues(ev.Backend, ev.Status).Observe(ev.WallTime.Seconds())
	if ev.Status == "OPTIMAL" || ev.Status == "FEASIBLE" {
		s.makespan.WithLabelValues(ev.Backend).Observe(ev.MakespanHours)
		s.excess.Observe(float64(ev.ZoneExcess))
	}
	return nil
}

// RecordRobustness observes the completion probability.
func (s *PromSink) RecordRobustness(ev coremetrics.RobustnessEvent) error {
	if ev.Failed {
		s.robustFail.Inc()
		return nil
	}
	s.completion.Observe(ev.CompletionProbability)
	return nil
}

// RecordTaskStatus counts a task transition.
func (s *PromSink) RecordTaskStatus(ev coremetrics.TaskEvent) error {
	s.tasks.WithLabelValues(ev.Status).Inc()
	return nil
}

// RecordQueueDepth sets the queue gauge.
func (s *PromSink) RecordQueueDepth(depth int) error {
	s.queue.Set(float64(depth))
	return nil
}
