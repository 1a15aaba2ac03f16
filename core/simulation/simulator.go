// Package simulation replays a fixed schedule under random durations and
// measures how likely the planned makespan is to hold.
package simulation

import (
	"sort"

	"github.com/alphapile/pilesched/core/geometry"
	"github.com/alphapile/pilesched/core/model"
)

// Plan is a solved schedule ready for replay.
type Plan struct {
	Entries []model.ScheduleEntry
	// PileIndex[k] is the conflict index of Entries[k].
	PileIndex      []int
	Conflicts      *geometry.Conflicts
	ForbiddenHours float64
}

// Simulate replays p with actual[k] as the duration of Entries[k] and returns
// the resulting makespan in hours.
//
// Entries are processed in planned start order. Each one starts once its
// machine is free and every already processed pile whose forbidden zone
// covers it has been finished for ForbiddenHours. Machine assignment and
// order are never changed. Simultaneous-work exclusion is not replayed.
func Simulate(p Plan, actual []float64) float64 {
	order := make([]int, len(p.Entries))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.Entries[order[a]].StartHour < p.Entries[order[b]].StartHour
	})

	free := make([]float64, model.MachineCount(p.Entries)+1)
	ends := make([]float64, len(p.Entries))
	done := make([]int, 0, len(order))
	var makespan float64
	for _, k := range order {
		e := p.Entries[k]
		earliest := free[e.Machine]
		if p.Conflicts != nil {
			j := p.PileIndex[k]
			for _, prev := range done {
				if p.Conflicts.Forbidden(p.PileIndex[prev], j) {
					earliest = max(earliest, ends[prev]+p.ForbiddenHours)
				}
			}
		}
		d := e.DurationHour
		if k < len(actual) {
			d = actual[k]
		}
		ends[k] = earliest + d
		free[e.Machine] = ends[k]
		makespan = max(makespan, ends[k])
		done = append(done, k)
	}
	return makespan
}
