package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alphapile/pilesched/core/factory"
)

// Status is the outcome of a solve.
type Status int

const (
	Unknown Status = iota
	ModelInvalid
	Feasible
	Infeasible
	Optimal
)

// String returns the status name used in API results.
func (s Status) String() string {
	switch s {
	case ModelInvalid:
		return "MODEL_INVALID"
	case Feasible:
		return "FEASIBLE"
	case Infeasible:
		return "INFEASIBLE"
	case Optimal:
		return "OPTIMAL"
	default:
		return "UNKNOWN"
	}
}

// HasSolution reports whether variable values are available.
func (s Status) HasSolution() bool { return s == Optimal || s == Feasible }

// Params bounds a solve.
type Params struct {
	NumWorkers int
	MaxTime    time.Duration
}

// Response carries the solve outcome and, when HasSolution, a full
// assignment.
type Response struct {
	Status    Status
	Objective int64
	Branches  int64
	Conflicts int64
	WallTime  time.Duration
	values    []int64
}

// NewResponse builds a response holding values.
func NewResponse(status Status, objective int64, values []int64) *Response {
	return &Response{Status: status, Objective: objective, values: values}
}

// Value returns the value of v in the solution.
func (r *Response) Value(v IntVar) int64 {
	if v.index >= len(r.values) {
		return 0
	}
	return r.values[v.index]
}

// BoolValue returns the truth value of l in the solution.
func (r *Response) BoolValue(l Literal) bool {
	b := r.Value(l.Var()) == 1
	if l.negated {
		return !b
	}
	return b
}

// Backend solves a Model. Implementations must honor ctx cancellation and
// Params.MaxTime and return the best assignment found so far.
type Backend interface {
	Name() string
	Solve(ctx context.Context, m *Model, p Params) (*Response, error)
}

// ErrUnknownBackend is returned for unregistered backend types.
var ErrUnknownBackend = errors.New("unknown solver backend")

var registry = factory.NewRegistry[Backend]()

// Register adds a backend factory.
func Register(name string, f factory.Factory[Backend]) error {
	return registry.Register(name, f)
}

// NewBackend builds the configured backend.
func NewBackend(cfg factory.ModuleConfig) (Backend, error) {
	if !registry.Has(cfg.Type) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Type)
	}
	return registry.Create(cfg)
}

// Backends lists the registered backend names.
func Backends() []string { return registry.Names() }
