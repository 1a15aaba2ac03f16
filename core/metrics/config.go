package metrics

import "github.com/alphapile/pilesched/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusPath is where the service exposes the default registry.
	// Empty disables the endpoint.
	PrometheusPath string `json:"prometheus_path"`
}
