package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alphapile/pilesched/core/model"
)

func TestAnalyzeRelations(t *testing.T) {
	piles := []model.Pile{
		{ID: 1, X: 0, Y: 0, Diameter: 2},
		{ID: 2, X: 3, Y: 4, Diameter: 0.5},
		{ID: 3, X: 100, Y: 0, Diameter: 1},
	}
	c := Analyze(piles, 5, 10)

	assert.Equal(t, 5.0, c.Distance(0, 1))
	assert.True(t, c.Simultaneous(0, 1))
	assert.True(t, c.Simultaneous(1, 0))
	assert.False(t, c.Simultaneous(0, 2))

	// radius(0) = 2*10/2 = 10 >= 5, radius(1) = 0.5*10/2 = 2.5 < 5
	assert.True(t, c.Forbidden(0, 1))
	assert.False(t, c.Forbidden(1, 0))
	assert.Equal(t, []Pair{{I: 0, J: 1}}, c.ForbiddenPairs())
	assert.Equal(t, []Pair{{I: 0, J: 1}}, c.SimultaneousPairs())
	assert.Equal(t, []int{0}, c.ForbiddenSources(1))
	assert.True(t, c.HasForbidden())

	s, f := c.Counts()
	assert.Equal(t, 1, s)
	assert.Equal(t, 1, f)
}

func TestAnalyzeNoSelfConflict(t *testing.T) {
	piles := []model.Pile{{ID: 1, Diameter: 5}, {ID: 2, Diameter: 5}}
	c := Analyze(piles, 1, 1)
	for i := 0; i < 2; i++ {
		assert.False(t, c.Simultaneous(i, i))
		assert.False(t, c.Forbidden(i, i))
	}
	// coincident piles conflict both ways
	assert.True(t, c.Simultaneous(0, 1))
	assert.True(t, c.Forbidden(0, 1))
	assert.True(t, c.Forbidden(1, 0))
}

func TestAnalyzeBoundaryInclusive(t *testing.T) {
	piles := []model.Pile{{ID: 1, X: 0, Diameter: 2}, {ID: 2, X: 1, Diameter: 2}}
	c := Analyze(piles, 1, 1)
	assert.True(t, c.Simultaneous(0, 1))
	assert.True(t, c.Forbidden(0, 1))
}

func TestAnalyzeEmpty(t *testing.T) {
	c := Analyze(nil, 1, 1)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.SimultaneousPairs())
	assert.False(t, c.HasForbidden())
}
