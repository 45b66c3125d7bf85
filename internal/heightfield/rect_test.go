package heightfield

import "testing"

func TestRectAdjacent(t *testing.T) {
	base := Rect{MinRow: 2, MinCol: 2, MaxRow: 4, MaxCol: 4}
	tests := []struct {
		name string
		o    Rect
		want bool
	}{
		{"shares right edge", Rect{2, 5, 3, 6}, true},
		{"shares left edge", Rect{4, 0, 6, 1}, true},
		{"shares top edge", Rect{0, 3, 1, 3}, true},
		{"shares bottom edge", Rect{5, 4, 5, 9}, true},
		{"corner only", Rect{5, 5, 6, 6}, false},
		{"gap of one", Rect{2, 6, 4, 7}, false},
		{"overlapping", Rect{3, 3, 5, 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Adjacent(tt.o); got != tt.want {
				t.Errorf("%s.Adjacent(%s) = %v, want %v", base, tt.o, got, tt.want)
			}
			if got := tt.o.Adjacent(base); got != tt.want {
				t.Errorf("Adjacent is not symmetric for %s", tt.o)
			}
		})
	}
}

func TestRectOverlapsAndUnion(t *testing.T) {
	a := Rect{0, 0, 1, 1}
	b := Rect{1, 1, 3, 2}
	if !a.Overlaps(b) {
		t.Error("expected overlap at (1,1)")
	}
	if got, want := a.Union(b), (Rect{0, 0, 3, 2}); got != want {
		t.Errorf("Union = %s, want %s", got, want)
	}
	if got, want := a.Intersect(b), Cell(1, 1); got != want {
		t.Errorf("Intersect = %s, want %s", got, want)
	}
	if !(Rect{0, 0, 0, 0}).Intersect(Rect{2, 2, 3, 3}).Empty() {
		t.Error("disjoint intersection should be empty")
	}
}

func TestRectExpandClamp(t *testing.T) {
	bounds := Rect{0, 0, 3, 3}
	got := Cell(0, 3).Expand(1).Clamp(bounds)
	want := Rect{0, 2, 1, 3}
	if got != want {
		t.Errorf("Expand+Clamp = %s, want %s", got, want)
	}
	if got.Area() != 4 {
		t.Errorf("Area = %d, want 4", got.Area())
	}
}
