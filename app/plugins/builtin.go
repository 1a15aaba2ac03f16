// Package plugins links the built-in solver backends, metrics sinks and
// task stores into the binary. Each imported package registers itself by
// name from init.
package plugins

import (
	"github.com/alphapile/pilesched/core/metrics"
	"github.com/alphapile/pilesched/core/solver"
	_ "github.com/alphapile/pilesched/core/solver/native"
	"github.com/alphapile/pilesched/core/tasks"
	_ "github.com/alphapile/pilesched/infra/kpi"
	_ "github.com/alphapile/pilesched/infra/metrics"
	_ "github.com/alphapile/pilesched/infra/taskstore"
)

// Available returns the registered names per component kind.
func Available() map[string][]string {
	return map[string][]string{
		"solver":  solver.Backends(),
		"metrics": metrics.SinkTypes(),
		"tasks":   tasks.StoreTypes(),
	}
}
