package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alphapile/pilesched/core/events"
	corelog "github.com/alphapile/pilesched/core/logger"
	"github.com/alphapile/pilesched/core/metrics"
	"github.com/alphapile/pilesched/core/model"
	"github.com/alphapile/pilesched/core/monitoring"
	"github.com/alphapile/pilesched/core/planner"
	"github.com/alphapile/pilesched/infra/logger"
	"github.com/alphapile/pilesched/internal/eventbus"
)

// Planner solves one request.
type Planner interface {
	Plan(ctx context.Context, req planner.Request) (*model.Result, error)
}

// RunnerConfig sizes the worker pool.
type RunnerConfig struct {
	Workers   int
	QueueSize int
	// JobTimeout bounds one Plan call on top of the solver's own limit.
	// Zero disables it.
	JobTimeout time.Duration
}

type job struct {
	id  string
	req planner.Request
	at  time.Time
}

// Runner executes submitted requests on a fixed pool of workers.
type Runner struct {
	cfg     RunnerConfig
	store   Store
	planner Planner
	bus     *eventbus.Bus[events.TaskEvent]
	sink    metrics.MetricsSink
	log     corelog.Logger

	queue chan job
	wg    sync.WaitGroup
	once  sync.Once
	mu    sync.RWMutex
	done  bool
}

// NewRunner creates a runner. bus, sink and log may be nil.
func NewRunner(cfg RunnerConfig, store Store, p Planner, bus *eventbus.Bus[events.TaskEvent], sink metrics.MetricsSink, log corelog.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Runner{
		cfg:     cfg,
		store:   store,
		planner: p,
		bus:     bus,
		sink:    sink,
		log:     log,
		queue:   make(chan job, cfg.QueueSize),
	}
}

// Start launches the workers. They exit when ctx is done or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-r.queue:
					if !ok {
						return
					}
					r.recordDepth()
					r.run(ctx, j)
				}
			}
		}()
	}
}

// Submit stores a pending task and queues it. When the queue is full the
// task is marked failed and ErrQueueFull is returned.
func (r *Runner) Submit(ctx context.Context, req planner.Request) (Task, error) {
	id := uuid.NewString()
	t, err := r.store.Create(ctx, id)
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	r.publish(t, 0)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.done {
		r.fail(ctx, id, ErrQueueFull.Error(), time.Now())
		return Task{}, ErrQueueFull
	}
	select {
	case r.queue <- job{id: id, req: req, at: t.CreatedAt}:
		r.recordDepth()
		return t, nil
	default:
		r.fail(ctx, id, ErrQueueFull.Error(), t.CreatedAt)
		return Task{}, ErrQueueFull
	}
}

// Get returns the stored task.
func (r *Runner) Get(ctx context.Context, id string) (Task, error) {
	return r.store.Get(ctx, id)
}

// Stop stops accepting work and waits for queued tasks to finish.
func (r *Runner) Stop() {
	r.once.Do(func() {
		r.mu.Lock()
		r.done = true
		close(r.queue)
		r.mu.Unlock()
	})
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, j job) {
	t, err := r.store.Update(ctx, j.id, Running, nil, "")
	if err != nil {
		r.log.Warnf("task %s dropped before start: %v", j.id, err)
		return
	}
	r.publish(t, time.Since(j.at))
	started := time.Now()

	res, err := r.plan(ctx, j)
	if err != nil {
		r.log.Errorf("task %s failed: %v", j.id, err)
		r.fail(ctx, j.id, err.Error(), started)
		return
	}
	t, err = r.store.Update(ctx, j.id, Completed, res, "")
	if err != nil {
		r.log.Warnf("task %s: store result: %v", j.id, err)
		return
	}
	r.publish(t, time.Since(started))
	r.log.Infof("task %s completed with status %s", j.id, res.Status)
}

// plan runs the planner, turning panics into errors.
func (r *Runner) plan(ctx context.Context, j job) (res *model.Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			monitoring.CapturePanic(v, map[string]string{"task_id": j.id})
			err = fmt.Errorf("panic: %v", v)
		}
	}()
	if r.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.JobTimeout)
		defer cancel()
	}
	res, err = r.planner.Plan(planner.WithTaskID(ctx, j.id), j.req)
	if err != nil {
		monitoring.CaptureException(err, map[string]string{"task_id": j.id})
	}
	return res, err
}

func (r *Runner) fail(ctx context.Context, id, msg string, since time.Time) {
	t, err := r.store.Update(ctx, id, Failed, nil, msg)
	if err != nil {
		r.log.Warnf("task %s: mark failed: %v", id, err)
		return
	}
	r.publish(t, time.Since(since))
}

func (r *Runner) publish(t Task, elapsed time.Duration) {
	ev := events.TaskEvent{
		TaskID:  t.ID,
		Status:  string(t.Status),
		Error:   t.Error,
		Elapsed: elapsed,
		Time:    t.UpdatedAt,
	}
	if t.Result != nil {
		ev.MakespanHours = t.Result.MakespanHours
	}
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

func (r *Runner) recordDepth() {
	if rec, ok := r.sink.(metrics.QueueDepthRecorder); ok {
		if err := rec.RecordQueueDepth(len(r.queue)); err != nil {
			r.log.Debugf("record queue depth: %v", err)
		}
	}
}
