package durationfit

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/alphapile/pilesched/core/duration"
)

// ErrNoDurations is returned when no positive duration is available.
var ErrNoDurations = errors.New("no positive durations to fit")

// Fit is a log-normal fit of observed durations.
type Fit struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
	// N is the number of durations used; Skipped counts non-positive ones.
	N       int `json:"n"`
	Skipped int `json:"skipped"`
}

// Estimator returns the duration model described by f.
func (f Fit) Estimator() duration.Estimator {
	return duration.NewEstimator(f.Mu, f.Sigma)
}

// LogNormal returns the maximum likelihood log-normal parameters of hours.
// Non-positive values are ignored.
func LogNormal(hours []float64) (Fit, error) {
	logs := make([]float64, 0, len(hours))
	var skipped int
	for _, h := range hours {
		if h <= 0 || math.IsNaN(h) || math.IsInf(h, 0) {
			skipped++
			continue
		}
		logs = append(logs, math.Log(h))
	}
	if len(logs) == 0 {
		return Fit{Skipped: skipped}, ErrNoDurations
	}
	mu, sigma := stat.PopMeanStdDev(logs, nil)
	return Fit{Mu: mu, Sigma: sigma, N: len(logs), Skipped: skipped}, nil
}

// Columns selects where timestamps live in a table. Either Range or both
// Start and End must be set; indices are zero-based.
type Columns struct {
	Range int
	Start int
	End   int
}

// RangeColumn selects a single start/end range column.
func RangeColumn(i int) Columns { return Columns{Range: i, Start: -1, End: -1} }

// PairColumns selects separate start and end columns.
func PairColumns(start, end int) Columns { return Columns{Range: -1, Start: start, End: end} }

// Report summarizes a cleaning pass.
type Report struct {
	Rows       int `json:"rows"`
	Parsed     int `json:"parsed"`
	Unreadable int `json:"unreadable"`
	Year       int `json:"year"`
}

// Durations extracts durations in hours from data rows (no header).
func Durations(rows [][]string, cols Columns) ([]float64, Report, error) {
	if cols.Range < 0 && (cols.Start < 0 || cols.End < 0) {
		return nil, Report{}, fmt.Errorf("durations: need a range column or start and end columns")
	}
	cell := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}
	var sample []string
	for _, row := range rows {
		if cols.Range >= 0 {
			sample = append(sample, cell(row, cols.Range))
		} else {
			sample = append(sample, cell(row, cols.Start), cell(row, cols.End))
		}
	}
	rep := Report{Rows: len(rows), Year: FindYear(sample)}

	var out []float64
	for _, row := range rows {
		var (
			start, end time.Time
			ok         bool
		)
		if cols.Range >= 0 {
			start, end, ok = SplitRange(cell(row, cols.Range), rep.Year)
		} else {
			var endOK bool
			start, ok = ParseTimestamp(cell(row, cols.Start), rep.Year)
			year := rep.Year
			if ok {
				year = start.Year()
			}
			end, endOK = ParseTimestamp(cell(row, cols.End), year)
			ok = ok && endOK
		}
		if !ok {
			rep.Unreadable++
			continue
		}
		rep.Parsed++
		out = append(out, HoursBetween(start, end))
	}
	return out, rep, nil
}
