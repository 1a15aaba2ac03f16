// Package native is a pure Go backend for solver models.
//
// It runs a depth-first branch and bound over bounds-consistent domains.
// Booleans named by decision strategies are decided first, then the relative
// order of intervals sharing a no-overlap constraint, then strategy integers
// from their lower bound. Other variables are left to propagation and only
// branched on if still open at that point. Solution hints are tried as a
// first dive before the full search. Each improving solution tightens the
// objective bound for the rest of the search. Search is single threaded; NumWorkers is accepted for parity with
// parallel backends.
package native

import (
	"context"
	"time"

	"github.com/alphapile/pilesched/core/factory"
	"github.com/alphapile/pilesched/core/solver"
)

// Name is the registry key of this backend.
const Name = "native"

// Config tunes the search.
type Config struct {
	// NodeLimit stops the search after this many branches. Zero means no
	// limit.
	NodeLimit int64 `json:"node_limit"`
}

// Solver implements solver.Backend.
type Solver struct {
	cfg Config
}

// New returns a native solver.
func New(cfg Config) *Solver { return &Solver{cfg: cfg} }

func init() {
	if err := register(); err != nil {
		panic(err)
	}
}

func register() error {
	return solver.Register(Name, func(conf map[string]any) (solver.Backend, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c), nil
	})
}

// Name returns the backend name.
func (s *Solver) Name() string { return Name }

// Solve searches for an optimal assignment of m.
func (s *Solver) Solve(ctx context.Context, m *solver.Model, p solver.Params) (*solver.Response, error) {
	begin := time.Now()
	if err := m.Validate(); err != nil {
		resp := solver.NewResponse(solver.ModelInvalid, 0, nil)
		resp.WallTime = time.Since(begin)
		return resp, nil
	}
	sr := newSearch(ctx, m, p, s.cfg.NodeLimit)
	root := &state{lo: make([]int64, m.NumVars()), hi: make([]int64, m.NumVars())}
	for v := 0; v < m.NumVars(); v++ {
		root.lo[v], root.hi[v] = m.Bounds(v)
	}
	sr.hintDive(root)
	sr.dfs(root)

	var status solver.Status
	switch {
	case sr.found && !sr.stopped:
		status = solver.Optimal
	case sr.found:
		status = solver.Feasible
	case sr.stopped:
		status = solver.Unknown
	default:
		status = solver.Infeasible
	}
	resp := solver.NewResponse(status, sr.bestObj, sr.best)
	resp.Branches = sr.branches
	resp.Conflicts = sr.conflicts
	resp.WallTime = time.Since(begin)
	return resp, nil
}
