// Package export writes schedules as JSON, CSV or an HTML chart.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/alphapile/pilesched/core/model"
)

// CSVHeader lists the columns written by WriteCSV.
var CSVHeader = []string{
	"pile_id", "x", "y", "type", "diameter", "zone_id",
	"machine", "start_hour", "end_hour", "duration_hour",
}

// WriteJSON writes the schedule to w as an indented JSON array.
func WriteJSON(w io.Writer, entries []model.ScheduleEntry) error {
	if entries == nil {
		entries = []model.ScheduleEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// WriteCSV writes the schedule to w in CSV format with a header row.
func WriteCSV(w io.Writer, entries []model.ScheduleEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, e := range entries {
		rec := []string{
			strconv.Itoa(e.PileID),
			f(e.X),
			f(e.Y),
			strconv.Itoa(e.Type),
			f(e.Diameter),
			strconv.Itoa(e.ZoneID),
			strconv.Itoa(e.Machine),
			f(e.StartHour),
			f(e.EndHour),
			f(e.DurationHour),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSchedule decodes either a bare schedule array or a full result
// object and returns its entries.
func ReadSchedule(r io.Reader) ([]model.ScheduleEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty schedule document")
	}
	if data[0] == '[' {
		var entries []model.ScheduleEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
		return entries, nil
	}
	var res model.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return res.Schedule, nil
}
