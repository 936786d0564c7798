package carrier

import (
	"errors"
	"testing"

	"github.com/nvandessel/tumor-lattice/internal/growth"
	"github.com/nvandessel/tumor-lattice/internal/mutation"
)

var testRate = growth.Rate{Birth: 0.5, Death: 0.2}

func newFactory(t *testing.T, kind Kind, size int64) *Factory {
	t.Helper()
	f, err := NewFactory(kind, testRate, size, mutation.NewArena())
	if err != nil {
		t.Fatalf("NewFactory(%v, %d): %v", kind, size, err)
	}
	return f
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"cell": Cell, "DEME": Deme, " Lineage ": Lineage} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseKind("ORGANOID"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestNewFactory_FounderSize(t *testing.T) {
	tests := []struct {
		kind Kind
		size int64
		ok   bool
	}{
		{Cell, 1, true},
		{Cell, 2, false},
		{Lineage, 0, false},
		{Deme, 100, true},
	}
	for _, tt := range tests {
		_, err := NewFactory(tt.kind, testRate, tt.size, nil)
		if (err == nil) != tt.ok {
			t.Errorf("NewFactory(%v, %d) error = %v", tt.kind, tt.size, err)
		}
		if err != nil && !errors.Is(err, ErrFounderSize) {
			t.Errorf("error should wrap ErrFounderSize: %v", err)
		}
	}
}

func TestFounder(t *testing.T) {
	d := newFactory(t, Deme, 100).Founder()
	if d.Kind() != Deme || d.CountCells() != 100 {
		t.Fatalf("deme founder = %v", d)
	}
	ls := d.Lineages()
	if len(ls) != 1 || ls[0].Parent() != d.ID() || ls[0].Genotype() != mutation.Root {
		t.Errorf("deme founder lineages = %v", ls)
	}

	c := newFactory(t, Cell, 1).Founder()
	if c.CountCells() != 1 || c.Parent() != 0 {
		t.Errorf("cell founder = %v parent %d", c, c.Parent())
	}
}

func TestDaughter(t *testing.T) {
	f := newFactory(t, Lineage, 10)
	p := f.Founder()
	m := mutation.Mutation{ID: 1, Type: mutation.Selective, Coefficient: 0.5}
	d := f.Daughter(p, m)

	if d.Parent() != p.ID() || d.CountCells() != 1 || d.Kind() != Lineage {
		t.Fatalf("daughter = %v parent %d", d, d.Parent())
	}
	if d.Rate().Birth != 0.75 || p.Rate().Birth != 0.5 {
		t.Errorf("daughter birth = %v, parent birth = %v", d.Rate().Birth, p.Rate().Birth)
	}
	acc := f.Arena().Accumulated(d.Genotype())
	if len(acc) != 1 || acc[0] != m {
		t.Errorf("daughter genotype = %v", acc)
	}
	if p.Genotype() != mutation.Root {
		t.Error("parent genotype changed")
	}
}

func TestSplitLineage_Conserves(t *testing.T) {
	f := newFactory(t, Lineage, 40)
	p := f.Founder()
	clone := f.Split(p, []int64{15})
	if p.CountCells() != 25 || clone.CountCells() != 15 {
		t.Errorf("after split parent=%d clone=%d", p.CountCells(), clone.CountCells())
	}
	if clone.Parent() != p.ID() || clone.Genotype() != p.Genotype() {
		t.Errorf("clone ancestry wrong: %v", clone)
	}
}

func TestSplitDeme_ConservesAndPrunes(t *testing.T) {
	f := newFactory(t, Deme, 60)
	d := f.Founder()
	lin := d.Lineages()[0]
	d.AddLineage(f.Daughter(lin, mutation.Mutation{ID: 1}))
	before := d.CountCells()

	clone := f.Split(d, []int64{30, 1})
	if got := d.CountCells() + clone.CountCells(); got != before {
		t.Fatalf("cells not conserved: %d != %d", got, before)
	}
	if len(d.Lineages()) != 1 {
		t.Errorf("emptied lineage not pruned: %v", d.Lineages())
	}
	if len(clone.Lineages()) != 2 {
		t.Errorf("clone lineages = %v", clone.Lineages())
	}
	for _, l := range clone.Lineages() {
		if l.Kind() != Lineage || l.CountCells() == 0 {
			t.Errorf("bad clone lineage %v", l)
		}
	}
}

func TestRemoveCells_PanicsOnNegative(t *testing.T) {
	c := newFactory(t, Lineage, 3).Founder()
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	c.RemoveCells(4)
}

func TestSenesceIsTerminal(t *testing.T) {
	c := newFactory(t, Cell, 1).Founder()
	if c.IsSenescent() {
		t.Fatal("founder should be active")
	}
	c.Senesce()
	c.Senesce()
	if !c.IsSenescent() {
		t.Error("senescence did not stick")
	}
}

func TestSamples(t *testing.T) {
	f := newFactory(t, Deme, 5)
	d := f.Founder()
	d.AddLineage(f.Daughter(d.Lineages()[0], mutation.Mutation{ID: 9}))
	s := d.Samples()
	if len(s) != 2 || s[0].Cells != 5 || s[1].Cells != 1 {
		t.Errorf("Samples = %v", s)
	}
}
