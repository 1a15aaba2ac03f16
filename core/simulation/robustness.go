package simulation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/alphapile/pilesched/core/duration"
	"github.com/alphapile/pilesched/core/model"
	"github.com/alphapile/pilesched/internal/stats"
)

// ErrEmptySchedule is reported when there is nothing to replay.
var ErrEmptySchedule = errors.New("Empty schedule")

// makespanTolerance absorbs float noise when comparing against the planned
// makespan.
const makespanTolerance = 1e-9

// Evaluator runs Monte Carlo trials of a plan.
type Evaluator struct {
	Estimator duration.Estimator
	// Workers bounds concurrent trials. Zero uses GOMAXPROCS.
	Workers int
}

// NewEvaluator returns an evaluator drawing from est.
func NewEvaluator(est duration.Estimator, workers int) *Evaluator {
	return &Evaluator{Estimator: est, Workers: workers}
}

// Evaluate replays p trials times. Trial k draws its durations from seed k,
// so results do not depend on worker count or scheduling. Failures are
// reported in the result's Error field.
func (e *Evaluator) Evaluate(ctx context.Context, p Plan, plannedHours float64, trials int) model.RobustnessResult {
	if len(p.Entries) == 0 {
		return failed(ErrEmptySchedule.Error())
	}
	if trials <= 0 {
		return failed(fmt.Sprintf("Simulation error: trial count must be positive, got %d", trials))
	}
	makespans, err := e.run(ctx, p, trials)
	if err != nil {
		return failed("Simulation error: " + err.Error())
	}

	var hits int
	for _, m := range makespans {
		if m <= plannedHours+makespanTolerance {
			hits++
		}
	}
	prob := float64(hits) / float64(trials)
	stats := Summarize(makespans)
	return model.RobustnessResult{CompletionProbability: &prob, SimulatedStats: &stats}
}

func (e *Evaluator) run(ctx context.Context, p Plan, trials int) (out []float64, err error) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out = make([]float64, trials)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k := 0; k < trials; k++ {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("trial %d panicked: %v", k, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			out[k] = Simulate(p, e.Estimator.Sample(len(p.Entries), uint64(k)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summarize computes descriptive statistics of xs. Std is the population
// standard deviation; the median and percentiles interpolate between the two
// closest ranks.
func Summarize(xs []float64) model.SimulatedStats {
	if len(xs) == 0 {
		return model.SimulatedStats{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mean, std := stat.PopMeanStdDev(sorted, nil)
	q := func(p float64) float64 { return stats.Percentile(sorted, p) }
	return model.SimulatedStats{
		Mean:           mean,
		Median:         q(0.5),
		Std:            std,
		P10:            q(0.10),
		P25:            q(0.25),
		P75:            q(0.75),
		P90:            q(0.90),
		Min:            sorted[0],
		Max:            sorted[len(sorted)-1],
		NumSimulations: len(xs),
	}
}

func failed(msg string) model.RobustnessResult {
	return model.RobustnessResult{Error: &msg}
}
