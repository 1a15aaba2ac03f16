// Package app wires configuration into the planner, the task runner and
// the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alphapile/pilesched/api/schedule"
	_ "github.com/alphapile/pilesched/app/plugins"
	"github.com/alphapile/pilesched/config"
	"github.com/alphapile/pilesched/core/events"
	coremetrics "github.com/alphapile/pilesched/core/metrics"
	coremon "github.com/alphapile/pilesched/core/monitoring"
	"github.com/alphapile/pilesched/core/planner"
	"github.com/alphapile/pilesched/core/solver"
	"github.com/alphapile/pilesched/core/tasks"
	"github.com/alphapile/pilesched/infra/logger"
	"github.com/alphapile/pilesched/infra/metrics"
	"github.com/alphapile/pilesched/infra/monitoring"
	"github.com/alphapile/pilesched/infra/mqtt"
	"github.com/alphapile/pilesched/internal/eventbus"
)

// Service runs the scheduling API and its background workers.
type Service struct {
	cfg     *config.Config
	log     logger.Logger
	store   tasks.Store
	runner  *tasks.Runner
	bus     *eventbus.Bus[events.TaskEvent]
	sink    coremetrics.MetricsSink
	mqtt    *mqtt.PahoClient
	handler http.Handler
	logFile io.Closer
}

// NewPlanner builds a planner from the solver and robustness sections.
func NewPlanner(cfg *config.Config, sink coremetrics.MetricsSink, log logger.Logger) (*planner.Planner, error) {
	backend, err := solver.NewBackend(cfg.Solver.Backend)
	if err != nil {
		return nil, fmt.Errorf("solver backend: %w", err)
	}
	opts := []planner.Option{
		planner.WithLogger(log),
		planner.WithSimulationWorkers(cfg.Robustness.Workers),
	}
	if sink != nil {
		opts = append(opts, planner.WithMetrics(sink))
	}
	if cfg.Robustness.Disabled {
		opts = append(opts, planner.WithoutRobustness())
	}
	return planner.New(backend, opts...), nil
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logFile, err := logger.Setup(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	p, err := NewPlanner(cfg, sink, logger.New("planner"))
	if err != nil {
		return nil, err
	}
	store, err := tasks.NewStore(cfg.Tasks.Store)
	if err != nil {
		return nil, fmt.Errorf("task store: %w", err)
	}

	svc := &Service{
		cfg:     cfg,
		log:     logg,
		store:   store,
		bus:     eventbus.New[events.TaskEvent](64),
		sink:    sink,
		logFile: logFile,
	}
	if cfg.MQTT.Enabled() {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqtt = client
	}
	svc.runner = tasks.NewRunner(tasks.RunnerConfig{
		Workers:    cfg.Tasks.Workers,
		QueueSize:  cfg.Tasks.QueueSize,
		JobTimeout: cfg.Tasks.JobTimeout(),
	}, store, p, svc.bus, sink, logger.New("runner"))

	opts := schedule.Options{
		Token:          cfg.Server.AuthToken,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Log:            logger.New("api"),
	}
	if cfg.Metrics.PrometheusPath != "" {
		opts.Metrics = promhttp.Handler()
		opts.MetricsPath = cfg.Metrics.PrometheusPath
	}
	svc.handler = schedule.NewHandler(svc.runner, opts)
	return svc, nil
}

// Handler returns the API handler.
func (s *Service) Handler() http.Handler { return s.handler }

// Run starts the workers and serves HTTP until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	s.runner.Start(ctx)
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.mqtt != nil {
		mqtt.StartNotifier(ctx, s.bus, s.mqtt)
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout(),
		WriteTimeout: s.cfg.Server.WriteTimeout(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http server shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the workers and releases resources held by the service.
func (s *Service) Close() error {
	s.runner.Stop()
	s.bus.Close()
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	coremon.Flush(2 * time.Second)
	err := s.store.Close()
	if cerr := s.logFile.Close(); err == nil {
		err = cerr
	}
	return err
}
