// Package solver defines a backend-neutral constraint model for discrete
// scheduling problems and the Backend interface used to solve it.
//
// The model vocabulary mirrors the usual CP-SAT building blocks: integer and
// boolean variables, fixed-size (optional) intervals, no-overlap, linear
// constraints with enforcement literals, boolean clauses, max-equality and a
// linear objective to minimize.
package solver

import "fmt"

// IntVar references an integer variable of a Model.
type IntVar struct{ index int }

// Index returns the dense variable index.
func (v IntVar) Index() int { return v.index }

// Literal references a boolean variable or its negation.
type Literal struct {
	index   int
	negated bool
}

// Not returns the negated literal.
func (l Literal) Not() Literal { return Literal{index: l.index, negated: !l.negated} }

// Var returns the underlying 0/1 variable.
func (l Literal) Var() IntVar { return IntVar{index: l.index} }

// Negated reports whether l is a negation.
func (l Literal) Negated() bool { return l.negated }

// Term is one coefficient*variable product of a linear expression.
type Term struct {
	Var   int
	Coeff int64
}

// LinearExpr is sum(Coeff*Var) + Offset.
type LinearExpr struct {
	Terms  []Term
	Offset int64
}

// NewLinearExpr returns an empty expression.
func NewLinearExpr() *LinearExpr { return &LinearExpr{} }

// Add appends coeff*v.
func (e *LinearExpr) Add(v IntVar, coeff int64) *LinearExpr {
	e.Terms = append(e.Terms, Term{Var: v.index, Coeff: coeff})
	return e
}

// AddLiteral appends coeff*l, rewriting a negated literal as coeff*(1-x).
func (e *LinearExpr) AddLiteral(l Literal, coeff int64) *LinearExpr {
	if l.negated {
		e.Offset += coeff
		coeff = -coeff
	}
	e.Terms = append(e.Terms, Term{Var: l.index, Coeff: coeff})
	return e
}

// AddConstant adds c to the offset.
func (e *LinearExpr) AddConstant(c int64) *LinearExpr {
	e.Offset += c
	return e
}

// Sum builds sum(vars).
func Sum(vars ...IntVar) *LinearExpr {
	e := NewLinearExpr()
	for _, v := range vars {
		e.Add(v, 1)
	}
	return e
}

// Interval is a fixed-size interval Start + Size == End. When Presence is
// set the interval only constrains the model while the literal is true.
type Interval struct {
	Start    IntVar
	End      IntVar
	Size     int64
	Presence *Literal
	Name     string
}

// Linear is Lo <= expr <= Hi, active when all enforcement literals are true.
type Linear struct {
	Expr    LinearExpr
	Lo, Hi  int64
	HasLo   bool
	HasHi   bool
	Enforce []Literal
}

// OnlyEnforceIf makes the constraint conditional.
func (c *Linear) OnlyEnforceIf(lits ...Literal) *Linear {
	c.Enforce = append(c.Enforce, lits...)
	return c
}

// BoolOr requires at least one literal to be true, when enforced.
type BoolOr struct {
	Lits    []Literal
	Enforce []Literal
}

// OnlyEnforceIf makes the clause conditional.
func (c *BoolOr) OnlyEnforceIf(lits ...Literal) *BoolOr {
	c.Enforce = append(c.Enforce, lits...)
	return c
}

// MaxEquality is Target == max(Vars).
type MaxEquality struct {
	Target IntVar
	Vars   []IntVar
}

// NoOverlap forbids any two present intervals from overlapping.
type NoOverlap struct {
	Intervals []int
}

// VarStrategy picks the next variable of a decision strategy.
type VarStrategy int

const (
	ChooseFirst VarStrategy = iota
	ChooseLowestMin
)

// ValueStrategy picks the value tried first.
type ValueStrategy int

const (
	SelectMinValue ValueStrategy = iota
	SelectMaxValue
)

// DecisionStrategy is a search hint consumed by backends that support it.
type DecisionStrategy struct {
	Vars  []IntVar
	Var   VarStrategy
	Value ValueStrategy
}

// Hint is a suggested value for one variable. A backend may use a complete
// set of hints as its first candidate solution.
type Hint struct {
	Var   IntVar
	Value int64
}

// Model is a declarative constraint model.
type Model struct {
	lo, hi     []int64
	names      []string
	isBool     []bool
	intervals  []Interval
	linears    []*Linear
	ors        []*BoolOr
	maxEqs     []*MaxEquality
	noOverlaps []*NoOverlap
	objective  *LinearExpr
	strategies []DecisionStrategy
	hints      []Hint
}

// NewModel returns an empty model.
func NewModel() *Model { return &Model{} }

// NewIntVar adds an integer variable with domain [lo, hi].
func (m *Model) NewIntVar(lo, hi int64, name string) IntVar {
	m.lo = append(m.lo, lo)
	m.hi = append(m.hi, hi)
	m.names = append(m.names, name)
	m.isBool = append(m.isBool, false)
	return IntVar{index: len(m.lo) - 1}
}

// NewConstant adds a fixed variable.
func (m *Model) NewConstant(v int64) IntVar {
	return m.NewIntVar(v, v, fmt.Sprintf("const_%d", v))
}

// NewBoolVar adds a 0/1 variable and returns its positive literal.
func (m *Model) NewBoolVar(name string) Literal {
	v := m.NewIntVar(0, 1, name)
	m.isBool[v.index] = true
	return Literal{index: v.index}
}

// NewIntervalVar adds a mandatory interval.
func (m *Model) NewIntervalVar(start IntVar, size int64, end IntVar, name string) int {
	m.intervals = append(m.intervals, Interval{Start: start, End: end, Size: size, Name: name})
	m.AddEquality(NewLinearExpr().Add(end, 1).Add(start, -1), size)
	return len(m.intervals) - 1
}

// NewOptionalIntervalVar adds an interval that only exists when presence is
// true.
func (m *Model) NewOptionalIntervalVar(start IntVar, size int64, end IntVar, presence Literal, name string) int {
	p := presence
	m.intervals = append(m.intervals, Interval{Start: start, End: end, Size: size, Presence: &p, Name: name})
	m.AddEquality(NewLinearExpr().Add(end, 1).Add(start, -1), size).OnlyEnforceIf(presence)
	return len(m.intervals) - 1
}

// AddLinear adds lo <= expr <= hi.
func (m *Model) AddLinear(expr *LinearExpr, lo, hi int64) *Linear {
	c := &Linear{Expr: *expr, Lo: lo, Hi: hi, HasLo: true, HasHi: true}
	m.linears = append(m.linears, c)
	return c
}

// AddLessOrEqual adds expr <= hi.
func (m *Model) AddLessOrEqual(expr *LinearExpr, hi int64) *Linear {
	c := &Linear{Expr: *expr, Hi: hi, HasHi: true}
	m.linears = append(m.linears, c)
	return c
}

// AddGreaterOrEqual adds expr >= lo.
func (m *Model) AddGreaterOrEqual(expr *LinearExpr, lo int64) *Linear {
	c := &Linear{Expr: *expr, Lo: lo, HasLo: true}
	m.linears = append(m.linears, c)
	return c
}

// AddEquality adds expr == v.
func (m *Model) AddEquality(expr *LinearExpr, v int64) *Linear {
	return m.AddLinear(expr, v, v)
}

// AddExactlyOne requires exactly one literal to be true.
func (m *Model) AddExactlyOne(lits ...Literal) *Linear {
	e := NewLinearExpr()
	for _, l := range lits {
		e.AddLiteral(l, 1)
	}
	return m.AddEquality(e, 1)
}

// AddBoolOr adds a clause.
func (m *Model) AddBoolOr(lits ...Literal) *BoolOr {
	c := &BoolOr{Lits: append([]Literal(nil), lits...)}
	m.ors = append(m.ors, c)
	return c
}

// AddImplication adds a => b.
func (m *Model) AddImplication(a, b Literal) *BoolOr {
	return m.AddBoolOr(a.Not(), b)
}

// AddMaxEquality adds target == max(vars).
func (m *Model) AddMaxEquality(target IntVar, vars ...IntVar) {
	m.maxEqs = append(m.maxEqs, &MaxEquality{Target: target, Vars: append([]IntVar(nil), vars...)})
}

// AddNoOverlap forbids overlap among the given intervals.
func (m *Model) AddNoOverlap(intervals ...int) {
	m.noOverlaps = append(m.noOverlaps, &NoOverlap{Intervals: append([]int(nil), intervals...)})
}

// Minimize sets the objective.
func (m *Model) Minimize(expr *LinearExpr) {
	e := *expr
	m.objective = &e
}

// AddDecisionStrategy appends a search hint.
func (m *Model) AddDecisionStrategy(vars []IntVar, vs VarStrategy, val ValueStrategy) {
	m.strategies = append(m.strategies, DecisionStrategy{Vars: append([]IntVar(nil), vars...), Var: vs, Value: val})
}

// AddHint suggests a value for v. Later hints for the same variable win.
func (m *Model) AddHint(v IntVar, value int64) {
	m.hints = append(m.hints, Hint{Var: v, Value: value})
}

// Hints returns the solution hints in insertion order.
func (m *Model) Hints() []Hint { return m.hints }

// NumVars returns the number of variables.
func (m *Model) NumVars() int { return len(m.lo) }

// Bounds returns the initial domain of v.
func (m *Model) Bounds(v int) (lo, hi int64) { return m.lo[v], m.hi[v] }

// IsBool reports whether v was declared as a boolean.
func (m *Model) IsBool(v int) bool { return m.isBool[v] }

// VarName returns the name given at creation.
func (m *Model) VarName(v int) string { return m.names[v] }

// Intervals returns the declared intervals.
func (m *Model) Intervals() []Interval { return m.intervals }

// Linears returns the linear constraints.
func (m *Model) Linears() []*Linear { return m.linears }

// BoolOrs returns the clauses.
func (m *Model) BoolOrs() []*BoolOr { return m.ors }

// MaxEqualities returns the max-equality constraints.
func (m *Model) MaxEqualities() []*MaxEquality { return m.maxEqs }

// NoOverlaps returns the no-overlap constraints.
func (m *Model) NoOverlaps() []*NoOverlap { return m.noOverlaps }

// Objective returns the objective, or nil for a satisfaction model.
func (m *Model) Objective() *LinearExpr { return m.objective }

// DecisionStrategies returns the search hints in insertion order.
func (m *Model) DecisionStrategies() []DecisionStrategy { return m.strategies }

// Validate checks variable references and domains.
func (m *Model) Validate() error {
	n := len(m.lo)
	for i := range m.lo {
		if m.lo[i] > m.hi[i] {
			return fmt.Errorf("variable %s has empty domain [%d,%d]", m.names[i], m.lo[i], m.hi[i])
		}
	}
	checkVar := func(v int) error {
		if v < 0 || v >= n {
			return fmt.Errorf("variable index %d out of range", v)
		}
		return nil
	}
	checkLits := func(lits []Literal) error {
		for _, l := range lits {
			if err := checkVar(l.index); err != nil {
				return err
			}
			if !m.isBool[l.index] {
				return fmt.Errorf("literal on non boolean variable %s", m.names[l.index])
			}
		}
		return nil
	}
	for _, iv := range m.intervals {
		if iv.Size < 0 {
			return fmt.Errorf("interval %s has negative size", iv.Name)
		}
		if err := checkVar(iv.Start.index); err != nil {
			return err
		}
		if err := checkVar(iv.End.index); err != nil {
			return err
		}
	}
	for _, c := range m.linears {
		for _, t := range c.Expr.Terms {
			if err := checkVar(t.Var); err != nil {
				return err
			}
		}
		if err := checkLits(c.Enforce); err != nil {
			return err
		}
	}
	for _, c := range m.ors {
		if err := checkLits(c.Lits); err != nil {
			return err
		}
		if err := checkLits(c.Enforce); err != nil {
			return err
		}
	}
	for _, c := range m.maxEqs {
		if err := checkVar(c.Target.index); err != nil {
			return err
		}
		for _, v := range c.Vars {
			if err := checkVar(v.index); err != nil {
				return err
			}
		}
	}
	for _, c := range m.noOverlaps {
		for _, i := range c.Intervals {
			if i < 0 || i >= len(m.intervals) {
				return fmt.Errorf("interval index %d out of range", i)
			}
		}
	}
	for _, h := range m.hints {
		if err := checkVar(h.Var.index); err != nil {
			return err
		}
	}
	if m.objective != nil {
		for _, t := range m.objective.Terms {
			if err := checkVar(t.Var); err != nil {
				return err
			}
		}
	}
	return nil
}
