package lattice

import "testing"

func TestNeighborhoodSizes(t *testing.T) {
	if got := VonNeumann.Size(); got != 6 {
		t.Errorf("VonNeumann.Size() = %d, want 6", got)
	}
	if got := Moore.Size(); got != 26 {
		t.Errorf("Moore.Size() = %d, want 26", got)
	}
}

func TestParseNeighborhood(t *testing.T) {
	tests := []struct {
		in      string
		want    Neighborhood
		wantErr bool
	}{
		{"VON_NEUMANN", VonNeumann, false},
		{"moore", Moore, false},
		{" Moore ", Moore, false},
		{"HEX", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseNeighborhood(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseNeighborhood(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseNeighborhood(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewPeriodic_RejectsSmallPeriod(t *testing.T) {
	if _, err := NewPeriodic(2); err == nil {
		t.Fatal("expected error for period 2")
	}
	if _, err := NewPeriodic(MinPeriod); err != nil {
		t.Fatalf("unexpected error for period %d: %v", MinPeriod, err)
	}
}

func TestPeriodic_Wrap(t *testing.T) {
	p, _ := NewPeriodic(10)
	tests := []struct {
		in, want Coord
	}{
		{Coord{0, 0, 0}, Coord{0, 0, 0}},
		{Coord{-1, 10, 23}, Coord{9, 0, 3}},
		{Coord{-21, -10, 5}, Coord{9, 0, 5}},
	}
	for _, tt := range tests {
		if got := p.Wrap(tt.in); got != tt.want {
			t.Errorf("Wrap(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPeriodic_NeighborsWrapAndAreDistinct(t *testing.T) {
	p, _ := NewPeriodic(3)
	for _, n := range []Neighborhood{VonNeumann, Moore} {
		center := Coord{0, 0, 0}
		got := p.Neighbors(center, n)
		if len(got) != n.Size() {
			t.Fatalf("%v: got %d neighbors, want %d", n, len(got), n.Size())
		}
		seen := map[Coord]bool{center: true}
		for _, c := range got {
			if c.X < 0 || c.X >= 3 || c.Y < 0 || c.Y >= 3 || c.Z < 0 || c.Z >= 3 {
				t.Errorf("%v: neighbor %v not canonical", n, c)
			}
			if seen[c] {
				t.Errorf("%v: duplicate neighbor %v", n, c)
			}
			seen[c] = true
		}
	}
}

func TestPeriodic_NeighborsStableOrder(t *testing.T) {
	p, _ := NewPeriodic(8)
	a := p.Neighbors(Coord{4, 4, 4}, Moore)
	b := p.Neighbors(Coord{4, 4, 4}, Moore)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("neighbor order differs at %d: %v vs %v", i, a[i], b[i])
		}
	}
	if a[0] != (Coord{3, 3, 3}) {
		t.Errorf("first Moore neighbor = %v, want (3, 3, 3)", a[0])
	}
}

func TestPeriodic_Displacement(t *testing.T) {
	p, _ := NewPeriodic(10)
	got := p.Displacement(Coord{9, 0, 5}, Coord{0, 9, 5})
	want := Coord{1, -1, 0}
	if got != want {
		t.Errorf("Displacement = %v, want %v", got, want)
	}
}

func TestPoint(t *testing.T) {
	var s Space = Point{}
	if s.Wrap(Coord{5, 6, 7}) != Origin {
		t.Error("Point.Wrap should collapse onto Origin")
	}
	if n := s.Neighbors(Origin, Moore); len(n) != 0 {
		t.Errorf("Point has no neighbors, got %d", len(n))
	}
	if s.Type() != TypePoint {
		t.Errorf("Type() = %v, want POINT", s.Type())
	}
}

func TestFindAvailable(t *testing.T) {
	p, _ := NewPeriodic(5)
	center := Coord{2, 2, 2}
	full := map[Coord]bool{{1, 2, 2}: true, {2, 2, 3}: true}
	spare := func(c Coord) int64 {
		if full[c] {
			return 0
		}
		return 4
	}

	got := FindAvailable(p, center, VonNeumann, spare, 1)
	if len(got) != 4 {
		t.Fatalf("got %d available, want 4: %v", len(got), got)
	}
	for _, c := range got {
		if full[c] {
			t.Errorf("full site %v reported available", c)
		}
	}

	if got := FindAvailable(p, center, VonNeumann, spare, 5); len(got) != 0 {
		t.Errorf("need 5 exceeds every site's spare, got %v", got)
	}
}

func TestCoordLess(t *testing.T) {
	a, b := Coord{1, 2, 3}, Coord{1, 3, 0}
	if !a.Less(b) || b.Less(a) {
		t.Errorf("expected %v < %v", a, b)
	}
	if a.Compare(a) != 0 || a.Compare(b) != -1 || b.Compare(a) != 1 {
		t.Error("Compare inconsistent with Less")
	}
}
