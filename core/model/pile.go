package model

// Pile is a single construction task located on the site plan.
type Pile struct {
	ID       int     `json:"id" yaml:"id"`
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Type     int     `json:"type" yaml:"type"`
	Diameter float64 `json:"diameter" yaml:"diameter" validate:"gt=0"`
	// DurationHours overrides the estimated duration when set.
	DurationHours *float64 `json:"duration_hours,omitempty" yaml:"duration_hours,omitempty" validate:"omitempty,gt=0"`
	// ZoneID is filled in by zoning before conflict analysis.
	ZoneID int `json:"zone_id" yaml:"-"`
}

// ScheduleEntry is one scheduled pile. Machine is 1-based.
type ScheduleEntry struct {
	PileID       int     `json:"pile_id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Type         int     `json:"type"`
	Diameter     float64 `json:"diameter"`
	ZoneID       int     `json:"zone_id"`
	Machine      int     `json:"machine"`
	StartHour    float64 `json:"start_hour"`
	EndHour      float64 `json:"end_hour"`
	DurationHour float64 `json:"duration_hour"`
}

// MachineCount returns the highest machine number used in the schedule.
func MachineCount(entries []ScheduleEntry) int {
	n := 0
	for _, e := range entries {
		if e.Machine > n {
			n = e.Machine
		}
	}
	return n
}
