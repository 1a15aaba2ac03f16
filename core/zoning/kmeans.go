// Package zoning partitions piles into spatial work zones with k-means.
package zoning

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/alphapile/pilesched/core/model"
)

// Clustering parameters. The seed is fixed so that identical inputs always
// yield identical zones.
const (
	Seed          = 42
	Restarts      = 10
	MaxIterations = 300
)

// Points extracts pile coordinates.
func Points(piles []model.Pile) []r2.Vec {
	pts := make([]r2.Vec, len(piles))
	for i, p := range piles {
		pts[i] = r2.Vec{X: p.X, Y: p.Y}
	}
	return pts
}

// Assign returns a zone label in [0, zones) for every point. With no more
// points than zones each point gets its own zone.
func Assign(points []r2.Vec, zones int) []int {
	if len(points) == 0 {
		return []int{}
	}
	if zones < 1 {
		zones = 1
	}
	if len(points) <= zones {
		labels := make([]int, len(points))
		for i := range labels {
			labels[i] = i
		}
		return labels
	}
	var (
		best        []int
		bestInertia = math.Inf(1)
	)
	for r := 0; r < Restarts; r++ {
		rng := rand.New(rand.NewPCG(Seed, uint64(r)))
		labels, inertia := lloyd(points, seedCenters(points, zones, rng))
		if inertia < bestInertia {
			best, bestInertia = labels, inertia
		}
	}
	return best
}

// AssignPiles sets ZoneID on every pile in place.
func AssignPiles(piles []model.Pile, zones int) {
	labels := Assign(Points(piles), zones)
	for i := range piles {
		piles[i].ZoneID = labels[i]
	}
}

// seedCenters implements k-means++ seeding.
func seedCenters(points []r2.Vec, k int, rng *rand.Rand) []r2.Vec {
	centers := make([]r2.Vec, 0, k)
	centers = append(centers, points[rng.IntN(len(points))])
	dist := make([]float64, len(points))
	for len(centers) < k {
		var total float64
		for i, p := range points {
			dist[i] = nearest(p, centers).d2
			total += dist[i]
		}
		if total == 0 {
			// all remaining points coincide with a center
			centers = append(centers, points[rng.IntN(len(points))])
			continue
		}
		target := rng.Float64() * total
		idx := len(points) - 1
		for i, d := range dist {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		centers = append(centers, points[idx])
	}
	return centers
}

func lloyd(points []r2.Vec, centers []r2.Vec) ([]int, float64) {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}
	k := len(centers)
	for iter := 0; iter < MaxIterations; iter++ {
		changed := false
		for i, p := range points {
			if c := nearest(p, centers).idx; c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}
		sums := make([]r2.Vec, k)
		counts := make([]int, k)
		for i, p := range points {
			sums[labels[i]] = r2.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range centers {
			if counts[c] > 0 {
				centers[c] = r2.Scale(1/float64(counts[c]), sums[c])
			}
		}
	}
	var inertia float64
	for i, p := range points {
		inertia += r2.Norm2(r2.Sub(p, centers[labels[i]]))
	}
	return labels, inertia
}

type hit struct {
	idx int
	d2  float64
}

func nearest(p r2.Vec, centers []r2.Vec) hit {
	h := hit{idx: 0, d2: math.Inf(1)}
	for c, ctr := range centers {
		if d := r2.Norm2(r2.Sub(p, ctr)); d < h.d2 {
			h = hit{idx: c, d2: d}
		}
	}
	return h
}
