// Package geometry derives pairwise spatial conflicts between piles.
//
// Two relations are computed once per request over dense pile indices:
// a symmetric simultaneous-work exclusion for piles closer than a half side
// length, and a directional forbidden-zone relation i->j when j lies inside
// the disturbed ground around i. Both are stored as n*n bitsets and never
// change after Analyze returns.
package geometry

import (
	"math"

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/mat"

	"github.com/alphapile/pilesched/core/model"
)

// Pair is an ordered pair of pile indices.
type Pair struct {
	I, J int
}

// Conflicts holds the conflict relations for one pile set.
type Conflicts struct {
	n            int
	dist         *mat.SymDense
	simultaneous *bitset.BitSet
	forbidden    *bitset.BitSet
}

// Distances returns the symmetric Euclidean distance matrix.
func Distances(piles []model.Pile) *mat.SymDense {
	n := len(piles)
	if n == 0 {
		return nil
	}
	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d.SetSym(i, j, math.Hypot(piles[i].X-piles[j].X, piles[i].Y-piles[j].Y))
		}
	}
	return d
}

// Analyze computes both relations. Simultaneous(i,j) holds when the distance
// is at most halfSide; Forbidden(i,j) holds when it is at most
// diameter(i)*multiplier/2. A pile never conflicts with itself.
func Analyze(piles []model.Pile, halfSide, multiplier float64) *Conflicts {
	n := len(piles)
	c := &Conflicts{
		n:            n,
		dist:         Distances(piles),
		simultaneous: bitset.New(uint(n * n)),
		forbidden:    bitset.New(uint(n * n)),
	}
	for i := 0; i < n; i++ {
		radius := piles[i].Diameter * multiplier / 2
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := c.dist.At(i, j)
			if d <= halfSide {
				c.simultaneous.Set(c.bit(i, j))
			}
			if d <= radius {
				c.forbidden.Set(c.bit(i, j))
			}
		}
	}
	return c
}

func (c *Conflicts) bit(i, j int) uint { return uint(i*c.n + j) }

// Len returns the number of piles.
func (c *Conflicts) Len() int { return c.n }

// Distance returns the distance between piles i and j.
func (c *Conflicts) Distance(i, j int) float64 {
	if c.dist == nil {
		return 0
	}
	return c.dist.At(i, j)
}

// Simultaneous reports whether i and j must not be worked at the same time.
func (c *Conflicts) Simultaneous(i, j int) bool {
	return c.simultaneous.Test(c.bit(i, j))
}

// Forbidden reports whether finishing i blocks starting j for the forbidden
// duration.
func (c *Conflicts) Forbidden(i, j int) bool {
	return c.forbidden.Test(c.bit(i, j))
}

// SimultaneousPairs lists each unordered pair once with I < J.
func (c *Conflicts) SimultaneousPairs() []Pair {
	var out []Pair
	for b, ok := c.simultaneous.NextSet(0); ok; b, ok = c.simultaneous.NextSet(b + 1) {
		i, j := int(b)/c.n, int(b)%c.n
		if i < j {
			out = append(out, Pair{I: i, J: j})
		}
	}
	return out
}

// ForbiddenPairs lists all directional pairs i->j.
func (c *Conflicts) ForbiddenPairs() []Pair {
	var out []Pair
	for b, ok := c.forbidden.NextSet(0); ok; b, ok = c.forbidden.NextSet(b + 1) {
		out = append(out, Pair{I: int(b) / c.n, J: int(b) % c.n})
	}
	return out
}

// ForbiddenSources returns every i with Forbidden(i, j).
func (c *Conflicts) ForbiddenSources(j int) []int {
	var out []int
	for i := 0; i < c.n; i++ {
		if c.Forbidden(i, j) {
			out = append(out, i)
		}
	}
	return out
}

// HasForbidden reports whether any forbidden pair exists.
func (c *Conflicts) HasForbidden() bool { return c.forbidden.Any() }

// Counts returns the number of simultaneous (unordered) and forbidden
// (directional) pairs.
func (c *Conflicts) Counts() (simultaneous, forbidden int) {
	return int(c.simultaneous.Count()) / 2, int(c.forbidden.Count())
}
