// Package planner turns a scheduling request into a pile construction plan.
//
// Plan runs the whole pipeline: zoning, duration estimation, conflict
// analysis, model construction, solving through a solver.Backend, decoding
// and an optional Monte Carlo robustness check of the solved plan.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/alphapile/pilesched/core/duration"
	"github.com/alphapile/pilesched/core/geometry"
	corelog "github.com/alphapile/pilesched/core/logger"
	"github.com/alphapile/pilesched/core/metrics"
	"github.com/alphapile/pilesched/core/model"
	"github.com/alphapile/pilesched/core/simulation"
	"github.com/alphapile/pilesched/core/solver"
	"github.com/alphapile/pilesched/core/zoning"
	"github.com/alphapile/pilesched/infra/logger"
)

// Planner solves scheduling requests with a fixed backend.
type Planner struct {
	backend        solver.Backend
	sink           metrics.MetricsSink
	log            corelog.Logger
	simWorkers     int
	skipRobustness bool
}

// Option customizes a Planner.
type Option func(*Planner)

// WithMetrics records solve and robustness events on s.
func WithMetrics(s metrics.MetricsSink) Option {
	return func(p *Planner) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l corelog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}

// WithSimulationWorkers bounds concurrent Monte Carlo trials.
func WithSimulationWorkers(n int) Option {
	return func(p *Planner) { p.simWorkers = n }
}

// WithoutRobustness skips the Monte Carlo evaluation.
func WithoutRobustness() Option {
	return func(p *Planner) { p.skipRobustness = true }
}

// New returns a Planner solving with backend.
func New(backend solver.Backend, opts ...Option) *Planner {
	p := &Planner{backend: backend, sink: metrics.NopSink{}, log: logger.NopLogger{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Plan solves req. Invalid requests return a *ValidationError. A request with
// no feasible plan, or none found in time, is not an error: the result only
// carries the solver status.
func (p *Planner) Plan(ctx context.Context, req Request) (*model.Result, error) {
	begin := time.Now()
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	scenario, err := duration.ParseScenario(req.DurationScenario)
	if err != nil {
		return nil, err
	}
	taskID, _ := ctx.Value(taskIDKey{}).(string)

	piles := append([]model.Pile(nil), req.Piles...)
	zoning.AssignPiles(piles, req.NumZones)

	est := req.Estimator()
	var seed uint64
	if req.RandomSeed != nil {
		seed = *req.RandomSeed
	}
	hours, err := est.Estimate(len(piles), scenario, seed)
	if err != nil {
		return nil, err
	}
	for i, pl := range piles {
		if pl.DurationHours != nil {
			hours[i] = *pl.DurationHours
		}
	}
	durations := model.DurationsToUnits(hours)

	conflicts := geometry.Analyze(piles, req.SimultaneousExcludeHalfSide, req.ForbiddenZoneDiameterMultiplier)
	simPairs, forbPairs := conflicts.Counts()
	p.log.Debugw("conflicts analyzed", map[string]any{
		"piles":        len(piles),
		"simultaneous": simPairs,
		"forbidden":    forbPairs,
	})

	sm, err := Build(piles, durations, conflicts, BuildParams{
		Machines:           req.NumMachines,
		Forbidden:          model.ToUnits(req.ForbiddenDurationHours),
		ZonePenaltyHours:   req.PenaltyHours(),
		StrictSimultaneous: req.StrictSimultaneous,
	})
	if err != nil {
		return nil, err
	}

	resp, err := p.backend.Solve(ctx, sm.Model, solver.Params{
		NumWorkers: req.SolverNumWorkers,
		MaxTime:    time.Duration(req.SolverMaxTime) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("solve with %s: %w", p.backend.Name(), err)
	}

	res := &model.Result{
		Status:   resp.Status.String(),
		Schedule: []model.ScheduleEntry{},
		Statistics: model.SolveStatistics{
			Branches:  resp.Branches,
			Conflicts: resp.Conflicts,
			WallTime:  resp.WallTime.Seconds(),
		},
	}
	ev := metrics.SolveEvent{
		TaskID:            taskID,
		Backend:           p.backend.Name(),
		Status:            res.Status,
		Piles:             len(piles),
		Machines:          req.NumMachines,
		Zones:             req.NumZones,
		SimultaneousPairs: simPairs,
		ForbiddenPairs:    forbPairs,
		Branches:          resp.Branches,
		Conflicts:         resp.Conflicts,
		WallTime:          resp.WallTime,
		Time:              time.Now(),
	}

	if !resp.Status.HasSolution() {
		p.log.Warnf("no plan found for %d piles: %s", len(piles), res.Status)
		p.record(ev)
		res.APIProcessingTime = time.Since(begin).Seconds()
		return res, nil
	}

	dec := sm.Decode(resp)
	makespan := dec.Makespan.Hours()
	buffered := makespan + req.WeatherBufferHours
	res.Schedule = dec.Entries
	res.MakespanHours = &makespan
	res.EstimatedMakespanWithBuffer = &buffered
	res.Statistics.ObjectiveHours = dec.Objective.Hours()
	res.Statistics.ZoneExcess = dec.ZoneExcess
	ev.MakespanHours = makespan
	ev.ObjectiveHours = dec.Objective.Hours()
	ev.ZoneExcess = dec.ZoneExcess
	p.record(ev)
	p.log.Infof("%s plan for %d piles on %d machines: makespan %.1fh, zone excess %d",
		res.Status, len(piles), req.NumMachines, makespan, dec.ZoneExcess)

	if !p.skipRobustness {
		p.evaluate(ctx, taskID, res, est, simulation.Plan{
			Entries:        dec.Entries,
			PileIndex:      dec.PileIndex,
			Conflicts:      conflicts,
			ForbiddenHours: req.ForbiddenDurationHours,
		}, makespan, req.MonteCarloSimulations)
	}

	res.APIProcessingTime = time.Since(begin).Seconds()
	return res, nil
}

func (p *Planner) evaluate(ctx context.Context, taskID string, res *model.Result, est duration.Estimator, plan simulation.Plan, makespan float64, trials int) {
	begin := time.Now()
	rob := simulation.NewEvaluator(est, p.simWorkers).Evaluate(ctx, plan, makespan, trials)
	res.CompletionProbability = rob.CompletionProbability
	res.SimulatedStats = rob.SimulatedStats
	res.RobustnessError = rob.Error

	ev := metrics.RobustnessEvent{
		TaskID:   taskID,
		Trials:   trials,
		Failed:   rob.Error != nil,
		Duration: time.Since(begin),
		Time:     time.Now(),
	}
	if rob.Error != nil {
		p.log.Warnf("robustness evaluation failed: %s", *rob.Error)
	} else {
		ev.CompletionProbability = *rob.CompletionProbability
		ev.MeanHours = rob.SimulatedStats.Mean
		ev.P90Hours = rob.SimulatedStats.P90
	}
	if r, ok := p.sink.(metrics.RobustnessRecorder); ok {
		if err := r.RecordRobustness(ev); err != nil {
			p.log.Warnf("record robustness: %v", err)
		}
	}
}

func (p *Planner) record(ev metrics.SolveEvent) {
	if err := p.sink.RecordSolve(ev); err != nil {
		p.log.Warnf("record solve: %v", err)
	}
}

type taskIDKey struct{}

// WithTaskID tags ctx so metrics emitted by Plan carry the task id.
func WithTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskIDKey{}, id)
}
