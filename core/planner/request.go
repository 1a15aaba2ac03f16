package planner

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alphapile/pilesched/core/duration"
	"github.com/alphapile/pilesched/core/model"
)

// Request is one scheduling problem.
type Request struct {
	Piles                           []model.Pile `json:"piles" yaml:"piles" validate:"required,min=1,dive"`
	NumMachines                     int          `json:"num_machines" yaml:"num_machines" validate:"gt=0"`
	DurationScenario                string       `json:"duration_scenario" yaml:"duration_scenario" validate:"omitempty,oneof=expected pessimistic_90 most_likely random_sample"`
	WeatherBufferHours              float64      `json:"weather_buffer_hours" yaml:"weather_buffer_hours" validate:"gte=0"`
	MonteCarloSimulations           int          `json:"monte_carlo_simulations" yaml:"monte_carlo_simulations" validate:"gte=100,lte=10000"`
	ForbiddenDurationHours          float64      `json:"forbidden_duration_hours" yaml:"forbidden_duration_hours" validate:"gt=0"`
	SimultaneousExcludeHalfSide     float64      `json:"simultaneous_exclude_half_side" yaml:"simultaneous_exclude_half_side" validate:"gt=0"`
	ForbiddenZoneDiameterMultiplier float64      `json:"forbidden_zone_diameter_multiplier" yaml:"forbidden_zone_diameter_multiplier" validate:"gt=0"`
	NumZones                        int          `json:"num_zones" yaml:"num_zones" validate:"gt=0"`
	ZonePenaltyHours                *float64     `json:"zone_penalty_hours,omitempty" yaml:"zone_penalty_hours,omitempty" validate:"omitempty,gte=0"`
	SolverNumWorkers                int          `json:"solver_num_workers" yaml:"solver_num_workers" validate:"gte=1,lte=64"`
	SolverMaxTime                   int          `json:"solver_max_time" yaml:"solver_max_time" validate:"gte=1"`

	// Log-normal parameters of the duration model; defaults apply when nil.
	DurationMu    *float64 `json:"duration_mu,omitempty" yaml:"duration_mu,omitempty"`
	DurationSigma *float64 `json:"duration_sigma,omitempty" yaml:"duration_sigma,omitempty" validate:"omitempty,gt=0"`
	// RandomSeed seeds the random_sample scenario.
	RandomSeed *uint64 `json:"random_seed,omitempty" yaml:"random_seed,omitempty"`
	// StrictSimultaneous serializes every simultaneous pair, even across
	// machines.
	StrictSimultaneous bool `json:"strict_simultaneous,omitempty" yaml:"strict_simultaneous,omitempty"`
}

// Defaults for fields a request may omit.
const (
	DefaultMonteCarloSimulations           = 1000
	DefaultForbiddenDurationHours          = 36.0
	DefaultSimultaneousExcludeHalfSide     = 10.0
	DefaultForbiddenZoneDiameterMultiplier = 12.0
	DefaultZonePenaltyHours                = 10.0
	DefaultSolverNumWorkers                = 3
	DefaultSolverMaxTime                   = 300
)

// ApplyDefaults fills optional fields left at their zero value. NumZones
// defaults to NumMachines.
func (r *Request) ApplyDefaults() {
	if r.DurationScenario == "" {
		r.DurationScenario = string(duration.Expected)
	}
	if r.MonteCarloSimulations == 0 {
		r.MonteCarloSimulations = DefaultMonteCarloSimulations
	}
	if r.ForbiddenDurationHours == 0 {
		r.ForbiddenDurationHours = DefaultForbiddenDurationHours
	}
	if r.SimultaneousExcludeHalfSide == 0 {
		r.SimultaneousExcludeHalfSide = DefaultSimultaneousExcludeHalfSide
	}
	if r.ForbiddenZoneDiameterMultiplier == 0 {
		r.ForbiddenZoneDiameterMultiplier = DefaultForbiddenZoneDiameterMultiplier
	}
	if r.NumZones == 0 {
		r.NumZones = r.NumMachines
	}
	if r.ZonePenaltyHours == nil {
		v := DefaultZonePenaltyHours
		r.ZonePenaltyHours = &v
	}
	if r.SolverNumWorkers == 0 {
		r.SolverNumWorkers = DefaultSolverNumWorkers
	}
	if r.SolverMaxTime == 0 {
		r.SolverMaxTime = DefaultSolverMaxTime
	}
}

// PenaltyHours returns the zone penalty, or its default when unset.
func (r *Request) PenaltyHours() float64 {
	if r.ZonePenaltyHours == nil {
		return DefaultZonePenaltyHours
	}
	return *r.ZonePenaltyHours
}

// Estimator returns the duration model selected by the request.
func (r *Request) Estimator() duration.Estimator {
	mu, sigma := duration.DefaultMu, duration.DefaultSigma
	if r.DurationMu != nil {
		mu = *r.DurationMu
	}
	if r.DurationSigma != nil {
		sigma = *r.DurationSigma
	}
	return duration.NewEstimator(mu, sigma)
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a request is malformed.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks r against its field rules. Failures are returned as a
// *ValidationError.
func (r *Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   strings.TrimPrefix(fe.Namespace(), "Request."),
			Message: describe(fe),
		})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must contain at least " + fe.Param() + " item(s)"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "failed " + fe.Tag() + " rule"
}
