package carrier

import (
	"errors"
	"fmt"

	"github.com/nvandessel/tumor-lattice/internal/growth"
	"github.com/nvandessel/tumor-lattice/internal/mutation"
)

// ErrFounderSize is returned for a non-positive founder size, or a CELL
// founder with more than one cell.
var ErrFounderSize = errors.New("invalid founder size")

// Factory creates the carriers of one trial: founders, mutated daughters
// and division clones. It owns the trial's carrier ID sequence and the
// genotype arena daughters extend.
type Factory struct {
	kind        Kind
	rate        growth.Rate
	founderSize int64
	arena       *mutation.Arena
	next        ID
}

// NewFactory validates the founder description.
func NewFactory(kind Kind, rate growth.Rate, founderSize int64, arena *mutation.Arena) (*Factory, error) {
	if founderSize <= 0 || (kind == Cell && founderSize != 1) {
		return nil, fmt.Errorf("%w: %d for %v", ErrFounderSize, founderSize, kind)
	}
	if arena == nil {
		arena = mutation.NewArena()
	}
	return &Factory{kind: kind, rate: rate, founderSize: founderSize, arena: arena, next: 1}, nil
}

// Kind is the component kind this factory produces.
func (f *Factory) Kind() Kind { return f.kind }

// Arena is the genotype arena shared by every carrier of the trial.
func (f *Factory) Arena() *mutation.Arena { return f.arena }

func (f *Factory) nextID() ID {
	id := f.next
	f.next++
	return id
}

// Founder creates the initial component with the root genotype.
func (f *Factory) Founder() *Carrier {
	if f.kind != Deme {
		return &Carrier{id: f.nextID(), kind: f.kind, rate: f.rate, cells: f.founderSize, genotype: mutation.Root}
	}
	d := &Carrier{id: f.nextID(), kind: Deme, rate: f.rate, genotype: mutation.Root}
	d.lineages = []*Carrier{{
		id:       f.nextID(),
		parent:   d.id,
		kind:     Lineage,
		rate:     f.rate,
		cells:    f.founderSize,
		genotype: mutation.Root,
	}}
	return d
}

// Daughter creates a one-cell carrier descended from parent (a cell or
// lineage) whose genotype adds m. Selective mutations scale the daughter's
// birth rate by m.FitnessFactor.
func (f *Factory) Daughter(parent *Carrier, m mutation.Mutation) *Carrier {
	parent.mustNotDeme("Daughter")
	rate := parent.rate
	if m.Coefficient != 0 {
		rate = rate.ScaleBirth(m.FitnessFactor())
	}
	return &Carrier{
		id:       f.nextID(),
		parent:   parent.id,
		kind:     parent.kind,
		rate:     rate,
		cells:    1,
		genotype: f.arena.Child(parent.genotype, m),
	}
}

// Offspring creates an unmutated one-cell copy of a cell.
func (f *Factory) Offspring(parent *Carrier) *Carrier {
	if parent.kind != Cell {
		panic(fmt.Sprintf("carrier %d: Offspring of %v", parent.id, parent.kind))
	}
	return &Carrier{id: f.nextID(), parent: parent.id, kind: Cell, rate: parent.rate, cells: 1, genotype: parent.genotype}
}

// Split moves cells out of parent into a new clone. For a lineage,
// transfer has one entry; for a deme, one entry per member lineage in
// Lineages order. The clone shares genotype nodes with the parent. Total
// cells are conserved; member lineages emptied by the split are pruned.
func (f *Factory) Split(parent *Carrier, transfer []int64) *Carrier {
	switch parent.kind {
	case Lineage:
		if len(transfer) != 1 {
			panic(fmt.Sprintf("carrier %d: lineage split with %d transfers", parent.id, len(transfer)))
		}
		clone := &Carrier{id: f.nextID(), parent: parent.id, kind: Lineage, rate: parent.rate, genotype: parent.genotype}
		parent.RemoveCells(transfer[0])
		clone.cells = transfer[0]
		return clone
	case Deme:
		if len(transfer) != len(parent.lineages) {
			panic(fmt.Sprintf("carrier %d: deme split with %d transfers for %d lineages", parent.id, len(transfer), len(parent.lineages)))
		}
		clone := &Carrier{id: f.nextID(), parent: parent.id, kind: Deme, rate: parent.rate, genotype: parent.genotype}
		for i, l := range parent.lineages {
			k := transfer[i]
			if k == 0 {
				continue
			}
			l.RemoveCells(k)
			clone.lineages = append(clone.lineages, &Carrier{
				id:       f.nextID(),
				parent:   l.id,
				kind:     Lineage,
				rate:     l.rate,
				cells:    k,
				genotype: l.genotype,
			})
		}
		parent.PruneLineages()
		return clone
	default:
		panic(fmt.Sprintf("carrier %d: %v cannot be split", parent.id, parent.kind))
	}
}
