package tumor

import (
	"context"
	"fmt"

	"github.com/nvandessel/tumor-lattice/internal/carrier"
	"github.com/nvandessel/tumor-lattice/internal/growth"
	"github.com/nvandessel/tumor-lattice/internal/lattice"
	"github.com/nvandessel/tumor-lattice/internal/senescence"
)

// Step advances the trial by one discrete step. Components are visited in
// a shuffled order of occupied sites, fixed at the start of the step;
// components created during the step are first visited in the next one.
// For each component: senescence, then growth (removing it if emptied),
// then division, then migration.
func (t *Tumor) Step() (StepStats, error) {
	if t.state == Terminated {
		return StepStats{}, ErrTerminated
	}
	t.state = Stepping
	t.step++
	stats := StepStats{Step: t.step}

	for _, c := range t.traversal() {
		if _, live := t.location[c.ID()]; !live {
			continue
		}
		t.advance(c, &stats)
	}

	if n := t.opts.ReleaseInterval; n > 0 && t.step%n == 0 {
		t.ReleaseGenotypes()
	}

	stats.Cells = t.cells
	stats.Components = t.components
	if t.opts.Observer != nil {
		t.opts.Observer.ObserveStep(stats)
	}
	t.checkTermination()
	return stats, nil
}

// Run steps until the trial terminates or ctx is done. Cancellation is only
// observed between steps.
func (t *Tumor) Run(ctx context.Context) error {
	for t.state != Terminated {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tumor) traversal() []*carrier.Carrier {
	coords := t.Coords()
	t.stream.Shuffle(len(coords), func(i, j int) {
		coords[i], coords[j] = coords[j], coords[i]
	})
	order := make([]*carrier.Carrier, 0, t.components)
	for _, site := range coords {
		order = append(order, t.sites[site]...)
	}
	return order
}

func (t *Tumor) advance(c *carrier.Carrier, stats *StepStats) {
	site := t.location[c.ID()]
	if !c.IsSenescent() && t.models.Senescence.Senesce(t, c) {
		c.Senesce()
		stats.Senesced++
		t.emitSenescence(c, site)
	}
	if c.IsSenescent() {
		return
	}

	switch c.Kind() {
	case carrier.Cell:
		t.growCell(c, site, stats)
	case carrier.Lineage:
		t.growLineage(c, site, stats)
	case carrier.Deme:
		t.growDeme(c, site, stats)
	}
	if _, live := t.location[c.ID()]; !live {
		return
	}

	if c.Kind().Aggregate() {
		t.divide(c, site, stats)
	}
	t.migrate(c, stats)
}

func (t *Tumor) rate(c *carrier.Carrier, site lattice.Coord) growth.Rate {
	return t.models.Growth.Rate(c.Rate(), growth.Context{
		SiteOccupancy: t.occupancy[site],
		SiteCapacity:  t.SiteCapacity(site),
	})
}

// growCell applies a Bernoulli birth and death to a single cell. A
// newborn goes to the parent's site if it has room, else to a random
// available neighbor; with nowhere to go the birth is suppressed.
func (t *Tumor) growCell(c *carrier.Carrier, site lattice.Coord, stats *StepStats) {
	count := growth.Sample(t.stream, t.rate(c, site), 1)
	if count.Deaths > 0 {
		t.remove(c)
		stats.Removed++
		t.emit(Event{Kind: EventDeath, Carrier: c.ID(), Site: site})
	}
	if count.Births > 0 {
		target, ok := t.placeCell(site)
		if !ok {
			count.Births = 0
		} else {
			var d *carrier.Carrier
			kind := EventPlacement
			if muts := t.models.Mutation.Generate(t.stream, 1); len(muts) > 0 {
				d = t.factory.Daughter(c, muts[0])
				stats.Mutations++
				kind = EventMutation
			} else {
				d = t.factory.Offspring(c)
			}
			t.insert(d, target)
			t.emit(Event{Kind: kind, Carrier: c.ID(), Related: d.ID(), Site: site, Target: target})
		}
	}
	stats.Growth = stats.Growth.Add(count)
}

func (t *Tumor) placeCell(site lattice.Coord) (lattice.Coord, bool) {
	if t.Spare(site) >= 1 {
		return site, true
	}
	avail := t.FindAvailable(site, 1)
	if len(avail) == 0 {
		return lattice.Coord{}, false
	}
	return avail[t.stream.IntN(len(avail))], true
}

// growLineage grows a top-level lineage in place; mutated newborns become
// new one-cell lineages at the same site.
func (t *Tumor) growLineage(c *carrier.Carrier, site lattice.Coord, stats *StepStats) {
	count := growth.CapBirths(growth.Sample(t.stream, t.rate(c, site), c.CountCells()), t.Spare(site))
	for _, d := range t.applyGrowth(c, site, count, stats) {
		t.insert(d, site)
	}
	if c.IsEmpty() {
		t.remove(c)
		stats.Removed++
		t.emit(Event{Kind: EventDeath, Carrier: c.ID(), Site: site})
	}
}

// growDeme grows each member lineage present at the start of the step;
// mutated newborns join the deme as new lineages.
func (t *Tumor) growDeme(d *carrier.Carrier, site lattice.Coord, stats *StepStats) {
	for _, l := range d.Lineages() {
		count := growth.CapBirths(growth.Sample(t.stream, t.rate(l, site), l.CountCells()), t.Spare(site))
		for _, daughter := range t.applyGrowth(l, site, count, stats) {
			d.AddLineage(daughter)
			t.adjust(site, daughter.CountCells())
		}
	}
	d.PruneLineages()
	if d.IsEmpty() {
		t.remove(d)
		stats.Removed++
		t.emit(Event{Kind: EventDeath, Carrier: d.ID(), Site: site})
	}
}

// applyGrowth applies count to lineage l and returns the daughters founded
// by mutated newborns. Daughters are not yet placed and their cells are
// not yet counted in the occupancy map.
func (t *Tumor) applyGrowth(l *carrier.Carrier, site lattice.Coord, count growth.Count, stats *StepStats) []*carrier.Carrier {
	l.RemoveCells(count.Deaths)
	t.adjust(site, -count.Deaths)

	muts := t.models.Mutation.Generate(t.stream, count.Births)
	unmutated := count.Births - int64(len(muts))
	l.AddCells(unmutated)
	t.adjust(site, unmutated)

	var daughters []*carrier.Carrier
	for _, m := range muts {
		d := t.factory.Daughter(l, m)
		daughters = append(daughters, d)
		t.emit(Event{Kind: EventMutation, Carrier: l.ID(), Related: d.ID(), Site: site, Target: site})
	}
	stats.Mutations += int64(len(muts))
	stats.Growth = stats.Growth.Add(count)
	return daughters
}

// divide applies a division plan. The plan is checked against current
// occupancy before any state changes, so either the parent shrinks and the
// clone is placed, or nothing happens.
func (t *Tumor) divide(c *carrier.Carrier, site lattice.Coord, stats *StepStats) {
	plan, ok := t.models.Division.Divide(t, c, t.stream)
	if !ok {
		return
	}
	moved := plan.CloneCells()
	if spare := t.Spare(plan.Target); spare < moved {
		panic(fmt.Sprintf("tumor: invariant violated: division of %d cells into %v with %d spare", moved, plan.Target, spare))
	}

	before := c.CountCells()
	fraction := float64(before) / float64(t.SiteCapacity(site))
	clone := t.factory.Split(c, plan.Transfer)
	if c.CountCells()+clone.CountCells() != before {
		panic(fmt.Sprintf("tumor: invariant violated: division of carrier %d did not conserve cells", c.ID()))
	}
	t.adjust(site, -clone.CountCells())
	t.insert(clone, plan.Target)
	stats.Divisions++

	t.emit(Event{
		Kind:         EventDivision,
		Carrier:      c.ID(),
		Related:      clone.ID(),
		Site:         site,
		Target:       plan.Target,
		CellsBefore:  before,
		Moved:        moved,
		SiteCapacity: t.SiteCapacity(site),
		Fraction:     fraction,
	})
}

func (t *Tumor) migrate(c *carrier.Carrier, stats *StepStats) {
	to, ok := t.models.Migration.Migrate(t, c)
	if !ok {
		return
	}
	from := t.location[c.ID()]
	to = t.opts.Space.Wrap(to)
	if to == from || t.Spare(to) < c.CountCells() {
		return
	}
	t.move(c, to)
	stats.Migrations++
	t.emit(Event{Kind: EventMigration, Carrier: c.ID(), Site: from, Target: to, Moved: c.CountCells()})
}

type neighborhoodModel interface {
	Neighborhood() lattice.Neighborhood
}

func (t *Tumor) emitSenescence(c *carrier.Carrier, site lattice.Coord) {
	if t.opts.OnEvent == nil {
		return
	}
	e := Event{
		Kind:         EventSenescence,
		Carrier:      c.ID(),
		Site:         site,
		CellsBefore:  c.CountCells(),
		SiteCapacity: t.SiteCapacity(site),
		Fraction:     senescence.SiteFraction(t, site),
	}
	if m, ok := t.models.Senescence.(neighborhoodModel); ok {
		e.NeighborhoodFraction = senescence.NeighborhoodFraction(t, site, m.Neighborhood())
	}
	t.emit(e)
}

func (t *Tumor) checkTermination() {
	reason := ReasonNone
	switch {
	case t.cells == 0:
		reason = ReasonExtinct
	case t.opts.MaxSize > 0 && t.cells > t.opts.MaxSize:
		reason = ReasonMaxSize
	case t.opts.MaxSteps > 0 && t.step >= t.opts.MaxSteps:
		reason = ReasonMaxSteps
	case t.CountActive() == 0:
		reason = ReasonQuiescent
	}
	if reason == ReasonNone {
		return
	}
	t.state = Terminated
	t.reason = reason
	t.emit(Event{Kind: EventTerminated, Reason: reason})
	t.logger.Debug("trial terminated",
		"reason", string(reason),
		"step", t.step,
		"cells", t.cells,
		"components", t.components)
}
