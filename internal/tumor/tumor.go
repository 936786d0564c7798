// Package tumor implements the lattice tumor engine: it owns the occupancy
// map and live carriers of one trial and advances them one discrete step at
// a time through senescence, growth, division and migration.
package tumor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/nvandessel/tumor-lattice/internal/capacity"
	"github.com/nvandessel/tumor-lattice/internal/carrier"
	"github.com/nvandessel/tumor-lattice/internal/division"
	"github.com/nvandessel/tumor-lattice/internal/growth"
	"github.com/nvandessel/tumor-lattice/internal/lattice"
	"github.com/nvandessel/tumor-lattice/internal/migration"
	"github.com/nvandessel/tumor-lattice/internal/mutation"
	"github.com/nvandessel/tumor-lattice/internal/rng"
	"github.com/nvandessel/tumor-lattice/internal/senescence"
)

// ErrTerminated is returned by Step once the trial has ended.
var ErrTerminated = errors.New("tumor: trial terminated")

// State is the trial lifecycle: Initialized -> Stepping -> Terminated.
type State int

const (
	Initialized State = iota
	Stepping
	Terminated
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "INITIALIZED"
	case Stepping:
		return "STEPPING"
	case Terminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TerminationReason explains why a trial ended.
type TerminationReason string

const (
	ReasonNone      TerminationReason = ""
	ReasonMaxSteps  TerminationReason = "max_steps"
	ReasonMaxSize   TerminationReason = "max_size"
	ReasonExtinct   TerminationReason = "extinct"
	ReasonQuiescent TerminationReason = "quiescent"
)

// Models are the strategies a trial runs with. They are built once from
// configuration and never change during the trial.
type Models struct {
	Capacity   capacity.Model
	Growth     growth.Model
	Division   division.Model
	Migration  migration.Model
	Senescence senescence.Model
	Mutation   mutation.Generator
}

// Options configure one trial.
type Options struct {
	Space lattice.Space
	// Neighborhood is where daughters and clones may be placed.
	Neighborhood lattice.Neighborhood
	// MaxSteps ends the trial after this many steps; 0 means no limit.
	MaxSteps int
	// MaxSize ends the trial once total cells exceed it; 0 means no limit.
	MaxSize int64
	// ReleaseInterval frees extinct genotype nodes every this many steps;
	// 0 disables.
	ReleaseInterval int

	Logger   *slog.Logger
	OnEvent  func(Event)
	Observer Observer
}

// Observer receives per-step statistics after each completed step.
type Observer interface {
	ObserveStep(StepStats)
}

// StepStats summarizes one step.
type StepStats struct {
	Step       int
	Growth     growth.Count
	Mutations  int64
	Divisions  int
	Senesced   int
	Migrations int
	Removed    int
	Cells      int64
	Components int
}

// Tumor is the engine for one trial. It is not safe for concurrent use.
type Tumor struct {
	models  Models
	opts    Options
	factory *carrier.Factory
	stream  *rng.Stream
	logger  *slog.Logger

	sites     map[lattice.Coord][]*carrier.Carrier
	occupancy map[lattice.Coord]int64
	location  map[carrier.ID]lattice.Coord

	cells      int64
	components int
	step       int
	state      State
	reason     TerminationReason
}

// New creates a tumor and places the factory's founder at the center of
// the space.
func New(models Models, factory *carrier.Factory, stream *rng.Stream, opts Options) (*Tumor, error) {
	if opts.Space == nil {
		return nil, errors.New("tumor: space is required")
	}
	if models.Capacity == nil || models.Growth == nil || models.Division == nil ||
		models.Migration == nil || models.Senescence == nil || models.Mutation == nil {
		return nil, errors.New("tumor: all models are required")
	}
	if factory == nil || stream == nil {
		return nil, errors.New("tumor: factory and random stream are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	t := &Tumor{
		models:    models,
		opts:      opts,
		factory:   factory,
		stream:    stream,
		logger:    logger,
		sites:     make(map[lattice.Coord][]*carrier.Carrier),
		occupancy: make(map[lattice.Coord]int64),
		location:  make(map[carrier.ID]lattice.Coord),
	}

	founder := factory.Founder()
	center := opts.Space.Center()
	if founder.CountCells() > t.SiteCapacity(center) {
		return nil, fmt.Errorf("tumor: founder of %d cells exceeds site capacity %d", founder.CountCells(), t.SiteCapacity(center))
	}
	t.insert(founder, center)
	return t, nil
}

// State returns the lifecycle state.
func (t *Tumor) State() State { return t.state }

// Reason returns why the trial terminated, or ReasonNone.
func (t *Tumor) Reason() TerminationReason { return t.reason }

// StepCount is the number of completed steps.
func (t *Tumor) StepCount() int { return t.step }

// Arena is the genotype arena of this trial.
func (t *Tumor) Arena() *mutation.Arena { return t.factory.Arena() }

// Space returns the spatial topology.
func (t *Tumor) Space() lattice.Space { return t.opts.Space }

// Capacity returns the capacity model.
func (t *Tumor) Capacity() capacity.Model { return t.models.Capacity }

// SiteCapacity is the capacity of site.
func (t *Tumor) SiteCapacity(site lattice.Coord) int64 {
	return t.models.Capacity.SiteCapacity(site)
}

// Occupancy is the number of cells resident at site.
func (t *Tumor) Occupancy(site lattice.Coord) int64 { return t.occupancy[site] }

// Spare is the free capacity at site.
func (t *Tumor) Spare(site lattice.Coord) int64 {
	return t.SiteCapacity(site) - t.occupancy[site]
}

// Locate returns the site c occupies; ok is false if c is not a live
// component.
func (t *Tumor) Locate(c *carrier.Carrier) (lattice.Coord, bool) {
	site, ok := t.location[c.ID()]
	return site, ok
}

// FindAvailable lists neighbors of center with at least need spare cells.
func (t *Tumor) FindAvailable(center lattice.Coord, need int64) []lattice.Coord {
	return lattice.FindAvailable(t.opts.Space, center, t.opts.Neighborhood, t.Spare, need)
}

// insert adds a component at site.
func (t *Tumor) insert(c *carrier.Carrier, site lattice.Coord) {
	if _, dup := t.location[c.ID()]; dup {
		panic(fmt.Sprintf("tumor: invariant violated: carrier %d inserted twice", c.ID()))
	}
	t.sites[site] = append(t.sites[site], c)
	t.location[c.ID()] = site
	t.components++
	t.adjust(site, c.CountCells())
}

// remove drops a component from its site. Its remaining cells, if any,
// leave the occupancy map with it.
func (t *Tumor) remove(c *carrier.Carrier) {
	site, ok := t.location[c.ID()]
	if !ok {
		panic(fmt.Sprintf("tumor: invariant violated: removing unknown carrier %d", c.ID()))
	}
	residents := t.sites[site]
	i := slices.Index(residents, c)
	residents = slices.Delete(residents, i, i+1)
	if len(residents) == 0 {
		delete(t.sites, site)
	} else {
		t.sites[site] = residents
	}
	delete(t.location, c.ID())
	t.components--
	t.adjust(site, -c.CountCells())
}

// move relocates a component without changing its cells.
func (t *Tumor) move(c *carrier.Carrier, to lattice.Coord) {
	from := t.location[c.ID()]
	n := c.CountCells()
	residents := t.sites[from]
	i := slices.Index(residents, c)
	residents = slices.Delete(residents, i, i+1)
	if len(residents) == 0 {
		delete(t.sites, from)
	} else {
		t.sites[from] = residents
	}
	t.adjust(from, -n)
	t.sites[to] = append(t.sites[to], c)
	t.location[c.ID()] = to
	t.adjust(to, n)
}

// adjust changes the occupancy of site and the total cell count, failing
// loudly if the site would go negative or over capacity.
func (t *Tumor) adjust(site lattice.Coord, delta int64) {
	if delta == 0 {
		return
	}
	occ := t.occupancy[site] + delta
	if occ < 0 {
		panic(fmt.Sprintf("tumor: invariant violated: negative occupancy %d at %v", occ, site))
	}
	if capacity := t.SiteCapacity(site); occ > capacity {
		panic(fmt.Sprintf("tumor: invariant violated: occupancy %d exceeds capacity %d at %v", occ, capacity, site))
	}
	if occ == 0 {
		delete(t.occupancy, site)
	} else {
		t.occupancy[site] = occ
	}
	t.cells += delta
}

func (t *Tumor) emit(e Event) {
	if t.opts.OnEvent != nil {
		e.Step = t.step
		t.opts.OnEvent(e)
	}
}
