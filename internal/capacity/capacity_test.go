package capacity

import (
	"errors"
	"testing"

	"github.com/nvandessel/tumor-lattice/internal/lattice"
)

func TestNewUniform(t *testing.T) {
	for _, v := range []int64{0, -5} {
		if _, err := NewUniform(v); !errors.Is(err, ErrNonPositive) {
			t.Errorf("NewUniform(%d) error = %v, want ErrNonPositive", v, err)
		}
	}
	u, err := NewUniform(100)
	if err != nil {
		t.Fatalf("NewUniform(100): %v", err)
	}
	if got := u.SiteCapacity(lattice.Coord{X: 3}); got != 100 {
		t.Errorf("SiteCapacity = %d, want 100", got)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		typ     Type
		value   int64
		want    int64
		wantErr bool
	}{
		{TypeUniform, 50, 50, false},
		{TypeUniform, 0, 0, true},
		{TypeSingle, 0, 1, false},
		{TypeUnlimited, -1, Unbounded, false},
	}
	for _, tt := range tests {
		m, err := New(tt.typ, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%v, %d) error = %v, wantErr %v", tt.typ, tt.value, err, tt.wantErr)
			continue
		}
		if err == nil && m.SiteCapacity(lattice.Origin) != tt.want {
			t.Errorf("New(%v).SiteCapacity = %d, want %d", tt.typ, m.SiteCapacity(lattice.Origin), tt.want)
		}
	}
}

func TestParseType(t *testing.T) {
	if got, err := ParseType("single"); err != nil || got != TypeSingle {
		t.Errorf("ParseType(single) = %v, %v", got, err)
	}
	if _, err := ParseType("HEXAGONAL"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestNeighborhoodCapacity(t *testing.T) {
	p, _ := lattice.NewPeriodic(10)
	center := p.Center()

	if got := NeighborhoodCapacity(Single{}, p, center, lattice.Moore); got != 27 {
		t.Errorf("Single/Moore = %d, want 27", got)
	}
	u, _ := NewUniform(100)
	if got := NeighborhoodCapacity(u, p, center, lattice.VonNeumann); got != 700 {
		t.Errorf("Uniform(100)/VonNeumann = %d, want 700", got)
	}
	if got := NeighborhoodCapacity(Unlimited{}, lattice.Point{}, lattice.Origin, lattice.Moore); got != Unbounded {
		t.Errorf("Unlimited/Point = %d, want Unbounded", got)
	}
}
