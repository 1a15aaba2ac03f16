package planner

import (
	"sort"

	"github.com/alphapile/pilesched/core/geometry"
	"github.com/alphapile/pilesched/core/model"
)

// listSchedule places piles one at a time at the earliest start that keeps
// every hard rule of the model. Piles are taken zone by zone; each goes to
// the machine where it can start first, preferring a machine already working
// its zone. Every start is at most the latest end so far plus one forbidden
// wait, so the result always fits inside Horizon.
func listSchedule(piles []model.Pile, durations []model.Units, c *geometry.Conflicts, p BuildParams) (machine []int, start []model.Units) {
	n := len(piles)
	machine = make([]int, n)
	start = make([]model.Units, n)
	end := make([]model.Units, n)
	var gap model.Units
	if c.HasForbidden() {
		gap = p.Forbidden
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return piles[order[a]].ZoneID < piles[order[b]].ZoneID
	})

	free := make([]model.Units, p.Machines)
	zoneOn := make([]map[int]bool, p.Machines)
	for k := range zoneOn {
		zoneOn[k] = map[int]bool{}
	}
	var placed []int
	var latest model.Units

	fits := func(j int, t model.Units) bool {
		ej := t + durations[j]
		for _, i := range placed {
			if p.StrictSimultaneous && c.Simultaneous(i, j) && ej > start[i] && end[i] > t {
				return false
			}
			if c.Forbidden(i, j) {
				if g := t - end[i]; g < p.Forbidden && g > -1 {
					return false
				}
			}
			if c.Forbidden(j, i) {
				if g := start[i] - ej; g < p.Forbidden && g > -1 {
					return false
				}
			}
		}
		return true
	}
	earliest := func(j int, from model.Units) model.Units {
		cands := []model.Units{from}
		for _, i := range placed {
			for _, t := range [2]model.Units{end[i], end[i] + gap} {
				if t > from {
					cands = append(cands, t)
				}
			}
		}
		sort.Slice(cands, func(a, b int) bool { return cands[a] < cands[b] })
		for _, t := range cands {
			if fits(j, t) {
				return t
			}
		}
		if len(placed) == 0 {
			return from
		}
		return max(from, latest+gap)
	}

	for _, j := range order {
		bestK, bestT := -1, model.Units(0)
		for k := 0; k < p.Machines; k++ {
			t := earliest(j, free[k])
			switch {
			case bestK < 0, t < bestT:
				bestK, bestT = k, t
			case t == bestT && zoneOn[k][piles[j].ZoneID] && !zoneOn[bestK][piles[j].ZoneID]:
				bestK = k
			}
		}
		machine[j], start[j], end[j] = bestK, bestT, bestT+durations[j]
		free[bestK] = end[j]
		zoneOn[bestK][piles[j].ZoneID] = true
		latest = max(latest, end[j])
		placed = append(placed, j)
	}
	return machine, start
}
