// Package duration estimates pile construction durations from a log-normal
// model of historical work times.
package duration

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/alphapile/pilesched/internal/stats"
)

// Default log-normal parameters fitted on historical construction logs.
const (
	DefaultMu    = 3.16
	DefaultSigma = 0.63
)

// RandomSampleDraws is the number of full draws used by the random_sample
// scenario before taking the per-pile 75th percentile.
const RandomSampleDraws = 100

const pessimisticQuantile = 0.895

// Scenario selects how a point duration is derived from the distribution.
type Scenario string

const (
	Expected      Scenario = "expected"
	Pessimistic90 Scenario = "pessimistic_90"
	MostLikely    Scenario = "most_likely"
	RandomSample  Scenario = "random_sample"
)

// ErrUnknownScenario is returned for scenario names outside the known set.
var ErrUnknownScenario = errors.New("unknown duration scenario")

// Scenarios lists the accepted scenario names.
func Scenarios() []Scenario {
	return []Scenario{Expected, Pessimistic90, MostLikely, RandomSample}
}

// ParseScenario validates a scenario name. An empty name selects Expected.
func ParseScenario(name string) (Scenario, error) {
	if name == "" {
		return Expected, nil
	}
	for _, s := range Scenarios() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownScenario, name)
}

// Estimator draws durations in hours from LogNormal(Mu, Sigma).
type Estimator struct {
	Mu    float64
	Sigma float64
}

// NewEstimator returns an estimator. Non-positive sigma falls back to the
// defaults.
func NewEstimator(mu, sigma float64) Estimator {
	if sigma <= 0 {
		return Estimator{Mu: DefaultMu, Sigma: DefaultSigma}
	}
	return Estimator{Mu: mu, Sigma: sigma}
}

// NewSource returns the deterministic random source used for a given seed.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// Distribution returns the underlying distribution bound to src.
func (e Estimator) Distribution(src rand.Source) distuv.LogNormal {
	return distuv.LogNormal{Mu: e.Mu, Sigma: e.Sigma, Src: src}
}

// Estimate returns n durations for the given scenario. The seed is only used
// by RandomSample.
func (e Estimator) Estimate(n int, scenario Scenario, seed uint64) ([]float64, error) {
	d := e.Distribution(nil)
	switch scenario {
	case Expected:
		return fill(n, d.Mean()), nil
	case Pessimistic90:
		return fill(n, d.Quantile(pessimisticQuantile)), nil
	case MostLikely:
		return fill(n, d.Mode()), nil
	case RandomSample:
		return e.sampledP75(n, seed), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, scenario)
	}
}

// Sample draws one i.i.d. duration per pile. The same seed yields the same
// slice.
func (e Estimator) Sample(n int, seed uint64) []float64 {
	d := e.Distribution(NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

func (e Estimator) sampledP75(n int, seed uint64) []float64 {
	d := e.Distribution(NewSource(seed))
	draws := make([][]float64, n)
	for i := range draws {
		draws[i] = make([]float64, RandomSampleDraws)
	}
	for k := 0; k < RandomSampleDraws; k++ {
		for i := 0; i < n; i++ {
			draws[i][k] = d.Rand()
		}
	}
	out := make([]float64, n)
	for i, col := range draws {
		sort.Float64s(col)
		out[i] = stats.Percentile(col, 0.75)
	}
	return out
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
