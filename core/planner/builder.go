package planner

import (
	"fmt"
	"sort"

	"github.com/alphapile/pilesched/core/geometry"
	"github.com/alphapile/pilesched/core/model"
	"github.com/alphapile/pilesched/core/solver"
)

// BuildParams are the scheduling knobs of a model.
type BuildParams struct {
	Machines           int
	Forbidden          model.Units
	ZonePenaltyHours   float64
	StrictSimultaneous bool
}

// ScheduleModel is a solver model together with the variables needed to
// decode a response into a schedule.
type ScheduleModel struct {
	Model   *solver.Model
	Horizon model.Units
	// PenaltyCoeff is the objective weight of one unit of zone excess.
	PenaltyCoeff int64

	piles     []model.Pile
	durations []model.Units
	machines  int

	start, end []solver.IntVar
	on         [][]solver.Literal
	makespan   solver.IntVar
	excess     solver.IntVar
}

// Decoded is a schedule read back from a solver response.
type Decoded struct {
	Entries []model.ScheduleEntry
	// PileIndex maps each entry to its pile's position in the request.
	PileIndex  []int
	Makespan   model.Units
	Objective  model.Units
	ZoneExcess int64
}

// Horizon bounds every start and end time. It leaves room for the fully
// serialized plan including one forbidden wait between consecutive piles.
func Horizon(durations []model.Units, c *geometry.Conflicts, forbidden model.Units) model.Units {
	var h model.Units
	for _, d := range durations {
		h += d
	}
	if c.HasForbidden() && len(durations) > 1 {
		h += model.Units(len(durations)-1) * forbidden
	}
	return h
}

// Build translates piles, their durations and conflicts into a solver model.
// Piles must already carry their zone ids.
func Build(piles []model.Pile, durations []model.Units, c *geometry.Conflicts, p BuildParams) (*ScheduleModel, error) {
	n := len(piles)
	if n == 0 {
		return nil, fmt.Errorf("build model: no piles")
	}
	if len(durations) != n || c.Len() != n {
		return nil, fmt.Errorf("build model: %d piles, %d durations, %d conflict rows", n, len(durations), c.Len())
	}
	if p.Machines <= 0 {
		return nil, fmt.Errorf("build model: machines must be positive, got %d", p.Machines)
	}

	m := solver.NewModel()
	sm := &ScheduleModel{
		Model:        m,
		Horizon:      Horizon(durations, c, p.Forbidden),
		PenaltyCoeff: int64(p.ZonePenaltyHours * model.TimeScale),
		piles:        piles,
		durations:    durations,
		machines:     p.Machines,
		start:        make([]solver.IntVar, n),
		end:          make([]solver.IntVar, n),
		on:           make([][]solver.Literal, n),
	}
	h := int64(sm.Horizon)
	perMachine := make([][]int, p.Machines)

	for i := range piles {
		d := int64(durations[i])
		sm.start[i] = m.NewIntVar(0, h, fmt.Sprintf("start_%d", i))
		sm.end[i] = m.NewIntVar(0, h, fmt.Sprintf("end_%d", i))
		m.NewIntervalVar(sm.start[i], d, sm.end[i], fmt.Sprintf("task_%d", i))
		sm.on[i] = make([]solver.Literal, p.Machines)
		for k := 0; k < p.Machines; k++ {
			on := m.NewBoolVar(fmt.Sprintf("on_%d_%d", i, k))
			sm.on[i][k] = on
			perMachine[k] = append(perMachine[k],
				m.NewOptionalIntervalVar(sm.start[i], d, sm.end[i], on, fmt.Sprintf("task_%d_m%d", i, k)))
		}
		m.AddExactlyOne(sm.on[i]...)
	}
	for k := range perMachine {
		m.AddNoOverlap(perMachine[k]...)
	}

	for _, pr := range c.SimultaneousPairs() {
		sm.addSimultaneous(pr.I, pr.J, p.StrictSimultaneous)
	}
	for _, pr := range c.ForbiddenPairs() {
		sm.addForbidden(pr.I, pr.J, int64(p.Forbidden))
	}

	sm.addObjective()

	assign := make([]solver.IntVar, 0, n*p.Machines)
	for i := range piles {
		for _, on := range sm.on[i] {
			assign = append(assign, on.Var())
		}
	}
	m.AddDecisionStrategy(assign, solver.ChooseFirst, solver.SelectMaxValue)
	m.AddDecisionStrategy(sm.start, solver.ChooseLowestMin, solver.SelectMinValue)
	sm.addHints(listSchedule(piles, durations, c, p))
	return sm, nil
}

// addHints suggests a complete plan: machine, start and end of every pile.
func (sm *ScheduleModel) addHints(machine []int, start []model.Units) {
	for i := range sm.piles {
		for k, on := range sm.on[i] {
			var v int64
			if k == machine[i] {
				v = 1
			}
			sm.Model.AddHint(on.Var(), v)
		}
		sm.Model.AddHint(sm.start[i], int64(start[i]))
		sm.Model.AddHint(sm.end[i], int64(start[i]+sm.durations[i]))
	}
}

// before returns a literal equivalent to end_a <= start_b.
func (sm *ScheduleModel) before(a, b int) solver.Literal {
	m := sm.Model
	lit := m.NewBoolVar(fmt.Sprintf("before_%d_%d", a, b))
	diff := func() *solver.LinearExpr {
		return solver.NewLinearExpr().Add(sm.end[a], 1).Add(sm.start[b], -1)
	}
	m.AddLessOrEqual(diff(), 0).OnlyEnforceIf(lit)
	m.AddGreaterOrEqual(diff(), 1).OnlyEnforceIf(lit.Not())
	return lit
}

func (sm *ScheduleModel) addSimultaneous(i, j int, strict bool) {
	m := sm.Model
	ij := sm.before(i, j)
	ji := sm.before(j, i)
	if strict {
		m.AddBoolOr(ij, ji)
		return
	}
	same := m.NewBoolVar(fmt.Sprintf("same_%d_%d", i, j))
	both := make([]solver.Literal, sm.machines)
	for k := 0; k < sm.machines; k++ {
		b := m.NewBoolVar(fmt.Sprintf("both_%d_%d_m%d", i, j, k))
		m.AddImplication(b, sm.on[i][k])
		m.AddImplication(b, sm.on[j][k])
		m.AddBoolOr(sm.on[i][k].Not(), sm.on[j][k].Not()).OnlyEnforceIf(b.Not())
		m.AddImplication(b, same)
		both[k] = b
	}
	m.AddBoolOr(both...).OnlyEnforceIf(same)
	m.AddBoolOr(ij, ji, same.Not())
}

func (sm *ScheduleModel) addForbidden(i, j int, f int64) {
	m := sm.Model
	lit := m.NewBoolVar(fmt.Sprintf("forbid_%d_%d", i, j))
	gap := func() *solver.LinearExpr {
		return solver.NewLinearExpr().Add(sm.start[j], 1).Add(sm.end[i], -1)
	}
	m.AddGreaterOrEqual(gap(), f).OnlyEnforceIf(lit)
	m.AddLessOrEqual(gap(), -1).OnlyEnforceIf(lit.Not())
}

// addObjective posts makespan + penalty*max(0, zones worked - machines).
func (sm *ScheduleModel) addObjective() {
	m := sm.Model
	h := int64(sm.Horizon)
	sm.makespan = m.NewIntVar(0, h, "makespan")
	m.AddMaxEquality(sm.makespan, sm.end...)

	zones := map[int][]int{}
	var ids []int
	for i, p := range sm.piles {
		if _, ok := zones[p.ZoneID]; !ok {
			ids = append(ids, p.ZoneID)
		}
		zones[p.ZoneID] = append(zones[p.ZoneID], i)
	}
	sort.Ints(ids)

	total := solver.NewLinearExpr()
	for k := 0; k < sm.machines; k++ {
		for _, z := range ids {
			w := m.NewBoolVar(fmt.Sprintf("zone_%d_m%d", z, k))
			members := make([]solver.IntVar, 0, len(zones[z]))
			for _, i := range zones[z] {
				members = append(members, sm.on[i][k].Var())
			}
			m.AddMaxEquality(w.Var(), members...)
			total.AddLiteral(w, 1)
		}
	}
	worked := int64(sm.machines * len(ids))
	machines := int64(sm.machines)
	diff := m.NewIntVar(-machines, worked-machines, "zone_diff")
	m.AddEquality(total.Add(diff, -1), machines)
	zero := m.NewConstant(0)
	sm.excess = m.NewIntVar(0, max(0, worked-machines), "zone_excess")
	m.AddMaxEquality(sm.excess, zero, diff)

	m.Minimize(solver.NewLinearExpr().Add(sm.makespan, 1).Add(sm.excess, sm.PenaltyCoeff))
}

// Decode reads a schedule out of a response that holds a solution. Entries
// are ordered by start time, ties broken by pile index.
func (sm *ScheduleModel) Decode(resp *solver.Response) Decoded {
	n := len(sm.piles)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return resp.Value(sm.start[order[a]]) < resp.Value(sm.start[order[b]])
	})

	out := Decoded{
		Entries:    make([]model.ScheduleEntry, 0, n),
		PileIndex:  order,
		Makespan:   model.Units(resp.Value(sm.makespan)),
		Objective:  model.Units(resp.Objective),
		ZoneExcess: resp.Value(sm.excess),
	}
	for _, i := range order {
		p := sm.piles[i]
		machine := 0
		for k, on := range sm.on[i] {
			if resp.BoolValue(on) {
				machine = k + 1
				break
			}
		}
		start := model.Units(resp.Value(sm.start[i]))
		end := model.Units(resp.Value(sm.end[i]))
		out.Entries = append(out.Entries, model.ScheduleEntry{
			PileID:       p.ID,
			X:            p.X,
			Y:            p.Y,
			Type:         p.Type,
			Diameter:     p.Diameter,
			ZoneID:       p.ZoneID,
			Machine:      machine,
			StartHour:    start.Hours(),
			EndHour:      end.Hours(),
			DurationHour: sm.durations[i].Hours(),
		})
	}
	return out
}
