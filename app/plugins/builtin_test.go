package plugins

import (
	"slices"
	"testing"
)

func TestAvailable(t *testing.T) {
	got := Available()
	want := map[string][]string{
		"solver":  {"native"},
		"metrics": {"influx", "nop", "prometheus", "sqlite"},
		"tasks":   {"memory", "redis", "sqlite"},
	}
	for kind, names := range want {
		for _, n := range names {
			if !slices.Contains(got[kind], n) {
				t.Errorf("%s: %q not registered (have %v)", kind, n, got[kind])
			}
		}
	}
}
