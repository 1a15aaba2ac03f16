package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alphapile/pilesched/core/model"
)

func sample() []model.ScheduleEntry {
	return []model.ScheduleEntry{
		{PileID: 1, X: 0, Y: 0, Type: 1, Diameter: 1.2, ZoneID: 0, Machine: 1, StartHour: 0, EndHour: 6, DurationHour: 6},
		{PileID: 2, X: 10.5, Y: 3, Type: 2, Diameter: 1, ZoneID: 1, Machine: 2, StartHour: 0, EndHour: 8, DurationHour: 8},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != strings.Join(CSVHeader, ",") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[2] != "2,10.5,3,2,1,1,2,0,8,8" {
		t.Fatalf("unexpected row %q", lines[2])
	}
}

func TestJSONRoundTripThroughResult(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("nil schedule should encode as [], got %s", buf.String())
	}

	buf.Reset()
	if err := WriteJSON(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, err := ReadSchedule(&buf)
	if err != nil || len(entries) != 2 || entries[1].PileID != 2 {
		t.Fatalf("read array: %v %+v", err, entries)
	}

	entries, err = ReadSchedule(strings.NewReader(`{"status":"OPTIMAL","schedule":[{"pile_id":7,"machine":1}]}`))
	if err != nil || len(entries) != 1 || entries[0].PileID != 7 {
		t.Fatalf("read result: %v %+v", err, entries)
	}

	if _, err := ReadSchedule(strings.NewReader("  ")); err == nil {
		t.Fatalf("expected error on empty input")
	}
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChart(&buf, "Block A", sample()); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"Block A", "Site plan", "machine 1", "machine 2", "pile 2"} {
		if !strings.Contains(html, want) {
			t.Errorf("chart missing %q", want)
		}
	}
}
