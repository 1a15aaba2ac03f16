package native

import (
	"math"

	"github.com/alphapile/pilesched/core/solver"
)

// state is the domain store of one search node. Variables are bounded by
// [lo, hi]; precs holds interval orderings decided by branching.
type state struct {
	lo, hi []int64
	precs  []prec
}

// prec orders interval a before interval b.
type prec struct{ a, b int }

func (st *state) clone() *state {
	c := &state{
		lo:    append([]int64(nil), st.lo...),
		hi:    append([]int64(nil), st.hi...),
		precs: append([]prec(nil), st.precs...),
	}
	return c
}

func (st *state) fixed(v int) bool { return st.lo[v] == st.hi[v] }

func (st *state) setMin(v int, x int64) (changed, ok bool) {
	if x <= st.lo[v] {
		return false, true
	}
	if x > st.hi[v] {
		return false, false
	}
	st.lo[v] = x
	return true, true
}

func (st *state) setMax(v int, x int64) (changed, ok bool) {
	if x >= st.hi[v] {
		return false, true
	}
	if x < st.lo[v] {
		return false, false
	}
	st.hi[v] = x
	return true, true
}

func (st *state) litValue(l solver.Literal) (val, fixed bool) {
	v := l.Var().Index()
	if !st.fixed(v) {
		return false, false
	}
	return (st.lo[v] == 1) != l.Negated(), true
}

func (st *state) setLit(l solver.Literal, val bool) (changed, ok bool) {
	v := l.Var().Index()
	var target int64
	if val != l.Negated() {
		target = 1
	}
	c1, ok := st.setMin(v, target)
	if !ok {
		return false, false
	}
	c2, ok := st.setMax(v, target)
	return c1 || c2, ok
}

type enforcement int

const (
	inactive enforcement = iota
	active
	undecided
)

// enforced classifies enforcement literals. When undecided it also returns
// the number of unfixed literals and one of them.
func (st *state) enforced(lits []solver.Literal) (enforcement, int, solver.Literal) {
	var (
		free int
		last solver.Literal
	)
	for _, l := range lits {
		val, fixed := st.litValue(l)
		if !fixed {
			free++
			last = l
			continue
		}
		if !val {
			return inactive, 0, last
		}
	}
	if free == 0 {
		return active, 0, last
	}
	return undecided, free, last
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}

func (st *state) activity(e *solver.LinearExpr) (minAct, maxAct int64) {
	minAct, maxAct = e.Offset, e.Offset
	for _, t := range e.Terms {
		lo, hi := st.lo[t.Var], st.hi[t.Var]
		if t.Coeff > 0 {
			minAct += t.Coeff * lo
			maxAct += t.Coeff * hi
		} else {
			minAct += t.Coeff * hi
			maxAct += t.Coeff * lo
		}
	}
	return minAct, maxAct
}

func propagateLinear(st *state, c *solver.Linear) (changed, ok bool) {
	en, free, last := st.enforced(c.Enforce)
	if en == inactive {
		return false, true
	}
	minAct, maxAct := st.activity(&c.Expr)
	violated := (c.HasHi && minAct > c.Hi) || (c.HasLo && maxAct < c.Lo)
	if en == undecided {
		if violated && free == 1 {
			return st.setLit(last, false)
		}
		return false, true
	}
	if violated {
		return false, false
	}
	for _, t := range c.Expr.Terms {
		if t.Coeff == 0 {
			continue
		}
		lo, hi := st.lo[t.Var], st.hi[t.Var]
		tMin, tMax := t.Coeff*lo, t.Coeff*hi
		if t.Coeff < 0 {
			tMin, tMax = tMax, tMin
		}
		if c.HasHi {
			r := c.Hi - (minAct - tMin)
			var ch bool
			if t.Coeff > 0 {
				ch, ok = st.setMax(t.Var, floorDiv(r, t.Coeff))
			} else {
				ch, ok = st.setMin(t.Var, ceilDiv(r, t.Coeff))
			}
			if !ok {
				return false, false
			}
			changed = changed || ch
		}
		if c.HasLo {
			r := c.Lo - (maxAct - tMax)
			var ch bool
			if t.Coeff > 0 {
				ch, ok = st.setMin(t.Var, ceilDiv(r, t.Coeff))
			} else {
				ch, ok = st.setMax(t.Var, floorDiv(r, t.Coeff))
			}
			if !ok {
				return false, false
			}
			changed = changed || ch
		}
	}
	return changed, true
}

func propagateBoolOr(st *state, c *solver.BoolOr) (changed, ok bool) {
	en, enFree, enLast := st.enforced(c.Enforce)
	if en == inactive {
		return false, true
	}
	var (
		free int
		last solver.Literal
	)
	for _, l := range c.Lits {
		val, fixed := st.litValue(l)
		if fixed && val {
			return false, true
		}
		if !fixed {
			free++
			last = l
		}
	}
	if en == active {
		switch free {
		case 0:
			return false, false
		case 1:
			return st.setLit(last, true)
		}
		return false, true
	}
	if free == 0 && enFree == 1 {
		return st.setLit(enLast, false)
	}
	return false, true
}

func propagateMax(st *state, c *solver.MaxEquality) (changed, ok bool) {
	if len(c.Vars) == 0 {
		return false, true
	}
	t := c.Target.Index()
	maxLo, maxHi := int64(math.MinInt64), int64(math.MinInt64)
	for _, v := range c.Vars {
		maxLo = max(maxLo, st.lo[v.Index()])
		maxHi = max(maxHi, st.hi[v.Index()])
	}
	c1, ok := st.setMin(t, maxLo)
	if !ok {
		return false, false
	}
	c2, ok := st.setMax(t, maxHi)
	if !ok {
		return false, false
	}
	changed = c1 || c2
	support, supports := -1, 0
	for _, v := range c.Vars {
		ch, ok := st.setMax(v.Index(), st.hi[t])
		if !ok {
			return false, false
		}
		changed = changed || ch
		if st.hi[v.Index()] >= st.lo[t] {
			support = v.Index()
			supports++
		}
	}
	switch supports {
	case 0:
		return false, false
	case 1:
		ch, ok := st.setMin(support, st.lo[t])
		return changed || ch, ok
	}
	return changed, true
}

type presence int

const (
	absent presence = iota
	present
	maybe
)

func (st *state) presence(iv *solver.Interval) presence {
	if iv.Presence == nil {
		return present
	}
	val, fixed := st.litValue(*iv.Presence)
	switch {
	case !fixed:
		return maybe
	case val:
		return present
	default:
		return absent
	}
}

func (st *state) canPrecede(a, b *solver.Interval) bool {
	return st.lo[a.Start.Index()]+a.Size <= st.hi[b.Start.Index()]
}

// order enforces a before b on start bounds.
func (st *state) order(a, b *solver.Interval) (changed, ok bool) {
	c1, ok := st.setMin(b.Start.Index(), st.lo[a.Start.Index()]+a.Size)
	if !ok {
		return false, false
	}
	c2, ok := st.setMax(a.Start.Index(), st.hi[b.Start.Index()]-a.Size)
	return c1 || c2, ok
}

func propagateNoOverlap(st *state, ivs []solver.Interval, c *solver.NoOverlap) (changed, ok bool) {
	var in, unknown []*solver.Interval
	for _, i := range c.Intervals {
		iv := &ivs[i]
		switch st.presence(iv) {
		case present:
			in = append(in, iv)
		case maybe:
			unknown = append(unknown, iv)
		}
	}
	for x := 0; x < len(in); x++ {
		for y := x + 1; y < len(in); y++ {
			a, b := in[x], in[y]
			ab, ba := st.canPrecede(a, b), st.canPrecede(b, a)
			ch, ok := false, true
			switch {
			case !ab && !ba:
				return false, false
			case ab && !ba:
				ch, ok = st.order(a, b)
			case ba && !ab:
				ch, ok = st.order(b, a)
			}
			if !ok {
				return false, false
			}
			changed = changed || ch
		}
	}
	for _, u := range unknown {
		for _, b := range in {
			if !st.canPrecede(u, b) && !st.canPrecede(b, u) {
				ch, ok := st.setLit(*u.Presence, false)
				if !ok {
					return false, false
				}
				changed = changed || ch
				break
			}
		}
	}
	if len(in) > 1 {
		minStart, maxEnd := int64(math.MaxInt64), int64(math.MinInt64)
		var sum int64
		for _, iv := range in {
			minStart = min(minStart, st.lo[iv.Start.Index()])
			maxEnd = max(maxEnd, st.hi[iv.Start.Index()]+iv.Size)
			sum += iv.Size
		}
		if sum > maxEnd-minStart {
			return false, false
		}
	}
	return changed, true
}

func propagatePrecs(st *state, ivs []solver.Interval) (changed, ok bool) {
	for _, p := range st.precs {
		ch, ok := st.order(&ivs[p.a], &ivs[p.b])
		if !ok {
			return false, false
		}
		changed = changed || ch
	}
	return changed, true
}
