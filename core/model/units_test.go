package model

import "testing"

func TestToUnitsTruncates(t *testing.T) {
	cases := []struct {
		hours float64
		want  Units
	}{
		{6, 60},
		{0.5, 5},
		{23.67, 236},
		{0.09, 0},
	}
	for _, c := range cases {
		if got := ToUnits(c.hours); got != c.want {
			t.Errorf("ToUnits(%v) = %d, want %d", c.hours, got, c.want)
		}
	}
}

func TestUnitsHours(t *testing.T) {
	if h := Units(145).Hours(); h != 14.5 {
		t.Fatalf("expected 14.5 got %v", h)
	}
}

func TestMachineCount(t *testing.T) {
	entries := []ScheduleEntry{{Machine: 1}, {Machine: 3}, {Machine: 2}}
	if n := MachineCount(entries); n != 3 {
		t.Fatalf("expected 3 got %d", n)
	}
	if n := MachineCount(nil); n != 0 {
		t.Fatalf("expected 0 got %d", n)
	}
}
