package model

// SimulatedStats summarizes the Monte Carlo makespan distribution in hours.
type SimulatedStats struct {
	Mean           float64 `json:"mean"`
	Median         float64 `json:"median"`
	Std            float64 `json:"std"`
	P10            float64 `json:"p10"`
	P25            float64 `json:"p25"`
	P75            float64 `json:"p75"`
	P90            float64 `json:"p90"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	NumSimulations int     `json:"num_simulations"`
}

// RobustnessResult is the outcome of a robustness evaluation. When Error is
// set the other fields are nil.
type RobustnessResult struct {
	CompletionProbability *float64        `json:"completion_probability"`
	SimulatedStats        *SimulatedStats `json:"simulated_stats"`
	Error                 *string         `json:"error,omitempty"`
}

// SolveStatistics carries solver diagnostics.
type SolveStatistics struct {
	Branches       int64   `json:"branches"`
	Conflicts      int64   `json:"conflicts"`
	WallTime       float64 `json:"wall_time"`
	ObjectiveHours float64 `json:"objective_hours"`
	ZoneExcess     int64   `json:"zone_excess"`
}

// Result is the full answer to a scheduling request.
type Result struct {
	Status                      string          `json:"status"`
	MakespanHours               *float64        `json:"makespan_hours"`
	EstimatedMakespanWithBuffer *float64        `json:"estimated_makespan_with_buffer"`
	CompletionProbability       *float64        `json:"completion_probability"`
	SimulatedStats              *SimulatedStats `json:"simulated_stats"`
	RobustnessError             *string         `json:"robustness_error,omitempty"`
	Schedule                    []ScheduleEntry `json:"schedule"`
	Statistics                  SolveStatistics `json:"statistics"`
	APIProcessingTime           float64         `json:"api_processing_time"`
}
