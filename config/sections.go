package config

import (
	"fmt"
	"time"

	"github.com/alphapile/pilesched/core/factory"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address string `json:"address"`
	// AuthToken enables bearer token authentication when set.
	AuthToken string `json:"auth_token"`
	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins      []string `json:"allowed_origins"`
	ReadTimeoutSeconds  int      `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `json:"write_timeout_seconds"`
	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64 `json:"max_body_bytes"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8000"
	}
	if c.ReadTimeoutSeconds == 0 {
		c.ReadTimeoutSeconds = 30
	}
	if c.WriteTimeoutSeconds == 0 {
		c.WriteTimeoutSeconds = 30
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 10 << 20
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
}

func (c ServerConfig) Validate() error {
	if c.ReadTimeoutSeconds < 0 || c.WriteTimeoutSeconds < 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	return nil
}

// ReadTimeout returns the read timeout as a duration.
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the write timeout as a duration.
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// SolverConfig selects the solver backend and its settings.
type SolverConfig struct {
	Backend factory.ModuleConfig `json:"backend"`
}

func (c *SolverConfig) SetDefaults() {
	if c.Backend.Type == "" {
		c.Backend.Type = "native"
	}
}

func (c SolverConfig) Validate() error {
	if c.Backend.Type == "" {
		return fmt.Errorf("backend type is required")
	}
	return nil
}

// RobustnessConfig tunes the Monte Carlo evaluation.
type RobustnessConfig struct {
	// Workers bounds concurrent simulations. Zero selects one per CPU.
	Workers  int  `json:"workers"`
	Disabled bool `json:"disabled"`
}

func (c *RobustnessConfig) SetDefaults() {}

func (c RobustnessConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}

// TasksConfig sizes the background worker pool and selects the store.
type TasksConfig struct {
	Workers           int                  `json:"workers"`
	QueueSize         int                  `json:"queue_size"`
	JobTimeoutSeconds int                  `json:"job_timeout_seconds"`
	Store             factory.ModuleConfig `json:"store"`
}

func (c *TasksConfig) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = 2
	}
	if c.QueueSize == 0 {
		c.QueueSize = 64
	}
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
}

func (c TasksConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1")
	}
	if c.JobTimeoutSeconds < 0 {
		return fmt.Errorf("job_timeout_seconds must be positive")
	}
	return nil
}

// JobTimeout returns the per-task timeout; zero disables it.
func (c TasksConfig) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutSeconds) * time.Second
}
