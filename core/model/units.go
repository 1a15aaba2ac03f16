package model

// TimeScale is the number of solver time units per hour.
const TimeScale = 10

// Units is a duration or instant expressed in tenths of an hour.
type Units int64

// ToUnits converts hours to units, truncating toward zero.
func ToUnits(hours float64) Units {
	return Units(hours * TimeScale)
}

// Hours converts units back to hours.
func (u Units) Hours() float64 {
	return float64(u) / TimeScale
}

// DurationsToUnits converts a slice of hour durations.
func DurationsToUnits(hours []float64) []Units {
	out := make([]Units, len(hours))
	for i, h := range hours {
		out[i] = ToUnits(h)
	}
	return out
}
