package native

import (
	"context"
	"time"

	"github.com/alphapile/pilesched/core/solver"
)

type search struct {
	ctx       context.Context
	m         *solver.Model
	deadline  time.Time
	nodeLimit int64
	// budget caps branches of the hint dive. Zero means no cap.
	budget int64

	boolOrder []int
	boolFirst []int64
	intOrder  []int
	lowestMin []bool
	restBools []int
	restInts  []int

	branches  int64
	conflicts int64
	stopped   bool
	done      bool

	found    bool
	bestObj  int64
	best     []int64
	objBound *solver.Linear
}

func newSearch(ctx context.Context, m *solver.Model, p solver.Params, nodeLimit int64) *search {
	s := &search{ctx: ctx, m: m, nodeLimit: nodeLimit}
	if p.MaxTime > 0 {
		s.deadline = time.Now().Add(p.MaxTime)
	}
	s.buildOrders()
	return s
}

// buildOrders lays out branching order. Strategy variables are decided in
// the order they were declared; every other variable is only branched on
// once they are all fixed. Hinted booleans try their hint first.
func (s *search) buildOrders() {
	n := s.m.NumVars()
	seen := make([]bool, n)
	s.boolFirst = make([]int64, n)
	s.lowestMin = make([]bool, n)
	for _, ds := range s.m.DecisionStrategies() {
		for _, v := range ds.Vars {
			i := v.Index()
			if i < 0 || i >= n || seen[i] {
				continue
			}
			seen[i] = true
			if s.m.IsBool(i) {
				s.boolOrder = append(s.boolOrder, i)
				if ds.Value == solver.SelectMaxValue {
					s.boolFirst[i] = 1
				}
			} else {
				s.intOrder = append(s.intOrder, i)
				s.lowestMin[i] = ds.Var == solver.ChooseLowestMin
			}
		}
	}
	for i := 0; i < n; i++ {
		if seen[i] {
			continue
		}
		if s.m.IsBool(i) {
			s.restBools = append(s.restBools, i)
		} else {
			s.restInts = append(s.restInts, i)
		}
	}
	for _, h := range s.m.Hints() {
		if i := h.Var.Index(); s.m.IsBool(i) && (h.Value == 0 || h.Value == 1) {
			s.boolFirst[i] = h.Value
		}
	}
}

func (s *search) shouldStop() bool {
	if s.stopped {
		return true
	}
	if s.ctx.Err() != nil ||
		(!s.deadline.IsZero() && time.Now().After(s.deadline)) ||
		(s.nodeLimit > 0 && s.branches >= s.nodeLimit) {
		s.stopped = true
	}
	return s.stopped
}

func (s *search) propagate(st *state) bool {
	ivs := s.m.Intervals()
	for {
		changed := false
		for _, c := range s.m.Linears() {
			ch, ok := propagateLinear(st, c)
			if !ok {
				return false
			}
			changed = changed || ch
		}
		if s.objBound != nil {
			ch, ok := propagateLinear(st, s.objBound)
			if !ok {
				return false
			}
			changed = changed || ch
		}
		for _, c := range s.m.BoolOrs() {
			ch, ok := propagateBoolOr(st, c)
			if !ok {
				return false
			}
			changed = changed || ch
		}
		for _, c := range s.m.MaxEqualities() {
			ch, ok := propagateMax(st, c)
			if !ok {
				return false
			}
			changed = changed || ch
		}
		for _, c := range s.m.NoOverlaps() {
			ch, ok := propagateNoOverlap(st, ivs, c)
			if !ok {
				return false
			}
			changed = changed || ch
		}
		ch, ok := propagatePrecs(st, ivs)
		if !ok {
			return false
		}
		if !changed && !ch {
			return true
		}
	}
}

// halted reports whether the current dive must unwind.
func (s *search) halted() bool {
	return s.done || s.stopped || (s.budget > 0 && s.branches >= s.budget)
}

// hintDive fixes every hinted variable and searches below that node with a
// small branch budget. A complete hint is a single leaf.
func (s *search) hintDive(root *state) {
	hints := s.m.Hints()
	if len(hints) == 0 || s.shouldStop() {
		return
	}
	st := root.clone()
	for _, h := range hints {
		v := h.Var.Index()
		if h.Value < root.lo[v] || h.Value > root.hi[v] {
			return
		}
		st.lo[v], st.hi[v] = h.Value, h.Value
	}
	s.budget = s.branches + int64(10*s.m.NumVars()) + 100
	s.dfs(st)
	s.budget = 0
}

func (s *search) dfs(st *state) {
	if s.halted() || s.shouldStop() {
		return
	}
	if !s.propagate(st) {
		s.conflicts++
		return
	}
	if v, ok := s.pickBool(st, s.boolOrder); ok {
		s.branchBool(st, v)
		return
	}
	if a, b, ok := s.pickPair(st); ok {
		for _, p := range [2]prec{{a: a, b: b}, {a: b, b: a}} {
			child := st.clone()
			child.precs = append(child.precs, p)
			s.branches++
			s.dfs(child)
			if s.halted() {
				return
			}
		}
		return
	}
	if v, ok := s.pickInt(st); ok {
		s.branchInt(st, v)
		return
	}
	if v, ok := s.pickBool(st, s.restBools); ok {
		s.branchBool(st, v)
		return
	}
	for _, v := range s.restInts {
		if !st.fixed(v) {
			s.branchInt(st, v)
			return
		}
	}
	s.record(st)
}

func (s *search) branchBool(st *state, v int) {
	first := s.boolFirst[v]
	for _, val := range [2]int64{first, 1 - first} {
		child := st.clone()
		child.lo[v], child.hi[v] = val, val
		s.branches++
		s.dfs(child)
		if s.halted() {
			return
		}
	}
}

// branchInt tries v at its lower bound, then above it.
func (s *search) branchInt(st *state, v int) {
	lo := st.lo[v]
	child := st.clone()
	child.hi[v] = lo
	s.branches++
	s.dfs(child)
	if s.halted() {
		return
	}
	child = st.clone()
	child.lo[v] = lo + 1
	s.branches++
	s.dfs(child)
}

func (s *search) pickBool(st *state, order []int) (int, bool) {
	for _, v := range order {
		if !st.fixed(v) {
			return v, true
		}
	}
	return 0, false
}

// pickPair returns two present intervals of a no-overlap constraint whose
// order is still open, earliest first.
func (s *search) pickPair(st *state) (int, int, bool) {
	ivs := s.m.Intervals()
	bestA, bestB := -1, -1
	var bestKey int64
	for _, c := range s.m.NoOverlaps() {
		for x := 0; x < len(c.Intervals); x++ {
			a := c.Intervals[x]
			if st.presence(&ivs[a]) != present {
				continue
			}
			for y := x + 1; y < len(c.Intervals); y++ {
				b := c.Intervals[y]
				if st.presence(&ivs[b]) != present {
					continue
				}
				if !st.canPrecede(&ivs[a], &ivs[b]) || !st.canPrecede(&ivs[b], &ivs[a]) {
					continue
				}
				if st.ordered(a, b) {
					continue
				}
				la, lb := st.lo[ivs[a].Start.Index()], st.lo[ivs[b].Start.Index()]
				key := min(la, lb)
				if bestA < 0 || key < bestKey {
					bestKey = key
					if lb < la {
						bestA, bestB = b, a
					} else {
						bestA, bestB = a, b
					}
				}
			}
		}
	}
	return bestA, bestB, bestA >= 0
}

func (st *state) ordered(a, b int) bool {
	for _, p := range st.precs {
		if (p.a == a && p.b == b) || (p.a == b && p.b == a) {
			return true
		}
	}
	return false
}

func (s *search) pickInt(st *state) (int, bool) {
	pick := -1
	for _, v := range s.intOrder {
		if st.fixed(v) {
			continue
		}
		if !s.lowestMin[v] {
			if pick < 0 {
				return v, true
			}
			break
		}
		if pick < 0 || st.lo[v] < st.lo[pick] {
			pick = v
		}
	}
	return pick, pick >= 0
}

func (s *search) record(st *state) {
	obj := s.m.Objective()
	var val int64
	if obj != nil {
		val, _ = st.activity(obj)
	}
	if s.found && val >= s.bestObj {
		return
	}
	s.found = true
	s.bestObj = val
	s.best = append(s.best[:0], st.lo...)
	if obj == nil {
		s.done = true
		return
	}
	s.objBound = &solver.Linear{Expr: *obj, Hi: val - 1, HasHi: true}
}
