package duration

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatePointScenarios(t *testing.T) {
	e := NewEstimator(DefaultMu, DefaultSigma)
	cases := []struct {
		scenario Scenario
		want     float64
	}{
		{Expected, math.Exp(DefaultMu + DefaultSigma*DefaultSigma/2)},
		{MostLikely, math.Exp(DefaultMu - DefaultSigma*DefaultSigma)},
	}
	for _, c := range cases {
		got, err := e.Estimate(3, c.scenario, 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for _, v := range got {
			assert.InDelta(t, c.want, v, 1e-9, string(c.scenario))
		}
	}
}

func TestEstimatePessimisticAboveExpected(t *testing.T) {
	e := NewEstimator(DefaultMu, DefaultSigma)
	pess, err := e.Estimate(1, Pessimistic90, 0)
	require.NoError(t, err)
	exp, err := e.Estimate(1, Expected, 0)
	require.NoError(t, err)
	assert.Greater(t, pess[0], exp[0])
	// exp(mu + sigma*z(0.895)), z(0.895) ~= 1.2536
	assert.InDelta(t, math.Exp(DefaultMu+DefaultSigma*1.2536), pess[0], 0.05)
}

func TestEstimateRandomSampleReproducible(t *testing.T) {
	e := NewEstimator(DefaultMu, DefaultSigma)
	a, err := e.Estimate(5, RandomSample, 7)
	require.NoError(t, err)
	b, err := e.Estimate(5, RandomSample, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	median := math.Exp(DefaultMu)
	for _, v := range a {
		// the 75th percentile of 100 draws sits well above the median
		assert.Greater(t, v, median*0.9)
	}
}

func TestEstimateUnknownScenario(t *testing.T) {
	e := NewEstimator(DefaultMu, DefaultSigma)
	_, err := e.Estimate(2, Scenario("optimistic"), 0)
	if !errors.Is(err, ErrUnknownScenario) {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
}

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario("")
	require.NoError(t, err)
	assert.Equal(t, Expected, s)
	s, err = ParseScenario("pessimistic_90")
	require.NoError(t, err)
	assert.Equal(t, Pessimistic90, s)
	_, err = ParseScenario("worst")
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestSampleDeterministicPerSeed(t *testing.T) {
	e := NewEstimator(DefaultMu, DefaultSigma)
	a := e.Sample(10, 3)
	b := e.Sample(10, 3)
	c := e.Sample(10, 4)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, v := range a {
		assert.Greater(t, v, 0.0)
	}
}

func TestNewEstimatorFallsBackOnBadSigma(t *testing.T) {
	e := NewEstimator(1, 0)
	assert.Equal(t, DefaultMu, e.Mu)
	assert.Equal(t, DefaultSigma, e.Sigma)
}
