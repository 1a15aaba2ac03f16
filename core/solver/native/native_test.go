package native

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphapile/pilesched/core/factory"
	"github.com/alphapile/pilesched/core/solver"
)

func solve(t *testing.T, m *solver.Model) *solver.Response {
	t.Helper()
	resp, err := New(Config{}).Solve(context.Background(), m, solver.Params{NumWorkers: 1, MaxTime: 10 * time.Second})
	require.NoError(t, err)
	return resp
}

func TestSolveSequencesSingleMachine(t *testing.T) {
	m := solver.NewModel()
	sizes := []int64{60, 80}
	var ends []solver.IntVar
	var ivs []int
	for _, d := range sizes {
		s := m.NewIntVar(0, 140, "s")
		e := m.NewIntVar(0, 140, "e")
		ivs = append(ivs, m.NewIntervalVar(s, d, e, "iv"))
		ends = append(ends, e)
	}
	m.AddNoOverlap(ivs...)
	mk := m.NewIntVar(0, 140, "makespan")
	m.AddMaxEquality(mk, ends...)
	m.Minimize(solver.Sum(mk))

	resp := solve(t, m)
	require.Equal(t, solver.Optimal, resp.Status)
	assert.Equal(t, int64(140), resp.Objective)
	assert.Equal(t, int64(140), resp.Value(mk))
}

func TestSolveSpreadsOverMachines(t *testing.T) {
	m := solver.NewModel()
	const machines = 2
	sizes := []int64{50, 50, 40}
	perMachine := make([][]int, machines)
	var ends []solver.IntVar
	onVars := make([][]solver.Literal, len(sizes))
	for i, d := range sizes {
		s := m.NewIntVar(0, 140, "s")
		e := m.NewIntVar(0, 140, "e")
		m.AddEquality(solver.NewLinearExpr().Add(e, 1).Add(s, -1), d)
		ends = append(ends, e)
		for k := 0; k < machines; k++ {
			on := m.NewBoolVar("on")
			onVars[i] = append(onVars[i], on)
			perMachine[k] = append(perMachine[k], m.NewOptionalIntervalVar(s, d, e, on, "iv"))
		}
		m.AddExactlyOne(onVars[i]...)
	}
	for k := range perMachine {
		m.AddNoOverlap(perMachine[k]...)
	}
	mk := m.NewIntVar(0, 140, "makespan")
	m.AddMaxEquality(mk, ends...)
	m.Minimize(solver.Sum(mk))

	resp := solve(t, m)
	require.Equal(t, solver.Optimal, resp.Status)
	assert.Equal(t, int64(90), resp.Objective)
	for i := range sizes {
		count := 0
		for k := 0; k < machines; k++ {
			if resp.BoolValue(onVars[i][k]) {
				count++
			}
		}
		assert.Equal(t, 1, count, "pile %d machines", i)
	}
}

func TestSolveEnforcedLinear(t *testing.T) {
	m := solver.NewModel()
	x := m.NewIntVar(0, 10, "x")
	b := m.NewBoolVar("b")
	m.AddGreaterOrEqual(solver.Sum(x), 3).OnlyEnforceIf(b)
	m.AddLessOrEqual(solver.Sum(x), 1).OnlyEnforceIf(b.Not())
	m.AddBoolOr(b)
	m.Minimize(solver.Sum(x))

	resp := solve(t, m)
	require.Equal(t, solver.Optimal, resp.Status)
	assert.Equal(t, int64(3), resp.Value(x))
	assert.True(t, resp.BoolValue(b))
	assert.False(t, resp.BoolValue(b.Not()))
}

func TestSolveImplicationAndNegatedTerms(t *testing.T) {
	m := solver.NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	m.AddImplication(a, b)
	m.AddBoolOr(a)
	// minimize (1-b)*5 + a: b must be true, a must be true
	m.Minimize(solver.NewLinearExpr().AddLiteral(b.Not(), 5).AddLiteral(a, 1))
	resp := solve(t, m)
	require.Equal(t, solver.Optimal, resp.Status)
	assert.Equal(t, int64(1), resp.Objective)
}

func TestSolveInfeasible(t *testing.T) {
	m := solver.NewModel()
	x := m.NewIntVar(0, 3, "x")
	m.AddGreaterOrEqual(solver.Sum(x), 5)
	resp := solve(t, m)
	assert.Equal(t, solver.Infeasible, resp.Status)
	assert.False(t, resp.Status.HasSolution())
}

func TestSolveModelInvalid(t *testing.T) {
	m := solver.NewModel()
	m.NewIntVar(5, 1, "broken")
	resp := solve(t, m)
	assert.Equal(t, solver.ModelInvalid, resp.Status)
	assert.Equal(t, "MODEL_INVALID", resp.Status.String())
}

func TestSolveCancelledContext(t *testing.T) {
	m := solver.NewModel()
	x := m.NewIntVar(0, 3, "x")
	m.Minimize(solver.Sum(x))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, err := New(Config{}).Solve(ctx, m, solver.Params{})
	require.NoError(t, err)
	assert.Equal(t, solver.Unknown, resp.Status)
}

func TestSatisfactionModelStopsAtFirstSolution(t *testing.T) {
	m := solver.NewModel()
	x := m.NewIntVar(2, 9, "x")
	y := m.NewIntVar(0, 9, "y")
	m.AddEquality(solver.NewLinearExpr().Add(x, 1).Add(y, 1), 7)
	resp := solve(t, m)
	require.Equal(t, solver.Optimal, resp.Status)
	assert.Equal(t, int64(7), resp.Value(x)+resp.Value(y))
}

func TestDivHelpers(t *testing.T) {
	assert.Equal(t, int64(-2), floorDiv(-3, 2))
	assert.Equal(t, int64(1), floorDiv(3, 2))
	assert.Equal(t, int64(2), ceilDiv(3, 2))
	assert.Equal(t, int64(-1), ceilDiv(-3, 2))
	assert.Equal(t, int64(2), ceilDiv(-3, -2))
	assert.Equal(t, int64(1), floorDiv(-3, -2))
}

func TestRegisteredInSolverRegistry(t *testing.T) {
	b, err := solver.NewBackend(factory.ModuleConfig{Type: Name, Conf: map[string]any{"node_limit": 10}})
	require.NoError(t, err)
	assert.Equal(t, Name, b.Name())
	_, err = solver.NewBackend(factory.ModuleConfig{Type: "cplex"})
	assert.ErrorIs(t, err, solver.ErrUnknownBackend)

	// a second registration fails, so init panics instead of running without
	// the backend
	assert.ErrorContains(t, register(), "already registered")
}

func TestPropagateNoOverlapKeepsOpenOrder(t *testing.T) {
	m := solver.NewModel()
	s0 := m.NewIntVar(0, 10, "s0")
	e0 := m.NewIntVar(0, 15, "e0")
	s1 := m.NewIntVar(0, 10, "s1")
	e1 := m.NewIntVar(0, 15, "e1")
	a := m.NewIntervalVar(s0, 5, e0, "a")
	b := m.NewIntervalVar(s1, 5, e1, "b")
	m.AddNoOverlap(a, b)

	st := &state{lo: make([]int64, m.NumVars()), hi: make([]int64, m.NumVars())}
	for v := 0; v < m.NumVars(); v++ {
		st.lo[v], st.hi[v] = m.Bounds(v)
	}
	changed, ok := propagateNoOverlap(st, m.Intervals(), m.NoOverlaps()[0])
	require.True(t, ok, "either order is still possible")
	assert.False(t, changed)

	// once a must come first, b is pushed behind it
	st.hi[s0.Index()] = 4
	st.lo[s1.Index()] = 3
	changed, ok = propagateNoOverlap(st, m.Intervals(), m.NoOverlaps()[0])
	require.True(t, ok)
	assert.True(t, changed)
	assert.Equal(t, int64(5), st.lo[s1.Index()])
}

func TestSolveTwoTasksFillHorizon(t *testing.T) {
	m := solver.NewModel()
	var ends []solver.IntVar
	var ivs []int
	for _, d := range []int64{6, 8} {
		s := m.NewIntVar(0, 14, "s")
		e := m.NewIntVar(0, 14, "e")
		ivs = append(ivs, m.NewIntervalVar(s, d, e, "iv"))
		ends = append(ends, e)
	}
	m.AddNoOverlap(ivs...)
	mk := m.NewIntVar(0, 14, "makespan")
	m.AddMaxEquality(mk, ends...)
	m.Minimize(solver.Sum(mk))

	resp := solve(t, m)
	require.Equal(t, solver.Optimal, resp.Status, "branches %d conflicts %d", resp.Branches, resp.Conflicts)
	assert.Equal(t, int64(14), resp.Objective)
}

func hintedSequence() (*solver.Model, []solver.IntVar) {
	m := solver.NewModel()
	var vars, ends []solver.IntVar
	var ivs []int
	for _, d := range []int64{60, 80} {
		s := m.NewIntVar(0, 200, "s")
		e := m.NewIntVar(0, 200, "e")
		ivs = append(ivs, m.NewIntervalVar(s, d, e, "iv"))
		ends = append(ends, e)
		vars = append(vars, s, e)
	}
	m.AddNoOverlap(ivs...)
	mk := m.NewIntVar(0, 200, "makespan")
	m.AddMaxEquality(mk, ends...)
	m.Minimize(solver.Sum(mk))
	return m, vars
}

func TestHintSeedsFirstSolution(t *testing.T) {
	m, vars := hintedSequence()
	// a valid plan with idle time between the tasks
	for i, v := range []int64{0, 60, 70, 150} {
		m.AddHint(vars[i], v)
	}
	resp, err := New(Config{NodeLimit: 1}).Solve(context.Background(), m, solver.Params{})
	require.NoError(t, err)
	require.Equal(t, solver.Feasible, resp.Status)
	assert.Equal(t, int64(150), resp.Objective)
	assert.Equal(t, int64(70), resp.Value(vars[2]))

	// an out of domain hint is ignored
	m, vars = hintedSequence()
	m.AddHint(vars[0], 900)
	resp, err = New(Config{NodeLimit: 1}).Solve(context.Background(), m, solver.Params{})
	require.NoError(t, err)
	assert.Equal(t, solver.Unknown, resp.Status)

	m, vars = hintedSequence()
	m.AddHint(vars[0], 80)
	resp = solve(t, m)
	require.Equal(t, solver.Optimal, resp.Status)
	assert.Equal(t, int64(140), resp.Objective)
}
