package zoning

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/alphapile/pilesched/core/model"
)

func TestAssignFewerPilesThanZones(t *testing.T) {
	labels := Assign([]r2.Vec{{X: 1, Y: 1}, {X: 5, Y: 5}}, 4)
	if len(labels) != 2 || labels[0] != 0 || labels[1] != 1 {
		t.Fatalf("expected sequential labels, got %v", labels)
	}
}

func TestAssignEmpty(t *testing.T) {
	if labels := Assign(nil, 3); len(labels) != 0 {
		t.Fatalf("expected empty labels, got %v", labels)
	}
}

func TestAssignSeparatesClusters(t *testing.T) {
	pts := []r2.Vec{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1},
		{X: 100, Y: 100}, {X: 101, Y: 100}, {X: 100, Y: 101},
	}
	labels := Assign(pts, 2)
	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Fatalf("first cluster split: %v", labels)
	}
	if labels[3] != labels[4] || labels[4] != labels[5] {
		t.Fatalf("second cluster split: %v", labels)
	}
	if labels[0] == labels[3] {
		t.Fatalf("clusters merged: %v", labels)
	}
	for _, l := range labels {
		if l < 0 || l >= 2 {
			t.Fatalf("label out of range: %v", labels)
		}
	}
}

func TestAssignDeterministic(t *testing.T) {
	pts := make([]r2.Vec, 0, 30)
	for i := 0; i < 30; i++ {
		pts = append(pts, r2.Vec{X: float64(i * 7 % 13), Y: float64(i * 5 % 11)})
	}
	a := Assign(pts, 4)
	b := Assign(pts, 4)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non deterministic labels at %d: %v vs %v", i, a, b)
		}
	}
}

func TestAssignPilesSetsZone(t *testing.T) {
	piles := []model.Pile{{ID: 1, X: 0, Y: 0}, {ID: 2, X: 0, Y: 1}, {ID: 3, X: 50, Y: 50}}
	AssignPiles(piles, 2)
	if piles[0].ZoneID != piles[1].ZoneID || piles[0].ZoneID == piles[2].ZoneID {
		t.Fatalf("unexpected zones %+v", piles)
	}
}
