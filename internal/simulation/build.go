package simulation

import (
	"fmt"
	"log/slog"

	"github.com/nvandessel/tumor-lattice/internal/capacity"
	"github.com/nvandessel/tumor-lattice/internal/carrier"
	"github.com/nvandessel/tumor-lattice/internal/config"
	"github.com/nvandessel/tumor-lattice/internal/division"
	"github.com/nvandessel/tumor-lattice/internal/growth"
	"github.com/nvandessel/tumor-lattice/internal/lattice"
	"github.com/nvandessel/tumor-lattice/internal/logging"
	"github.com/nvandessel/tumor-lattice/internal/migration"
	"github.com/nvandessel/tumor-lattice/internal/mutation"
	"github.com/nvandessel/tumor-lattice/internal/rng"
	"github.com/nvandessel/tumor-lattice/internal/senescence"
	"github.com/nvandessel/tumor-lattice/internal/tumor"
)

// Plan is a validated configuration, ready to build trials.
type Plan struct {
	Config   *config.SimConfig
	Resolved *config.Resolved
}

// NewPlan validates c.
func NewPlan(c *config.SimConfig) (*Plan, error) {
	r, err := c.Resolve()
	if err != nil {
		return nil, err
	}
	return &Plan{Config: c, Resolved: r}, nil
}

// TrialOptions attach observers to a trial. All fields are optional.
type TrialOptions struct {
	Logger   *slog.Logger
	Events   *logging.EventLogger
	Observer tumor.Observer
}

// NewTrial builds the tumor for trial index trial. Models are constructed
// here, once per trial, and stay fixed for its lifetime.
func (p *Plan) NewTrial(trial int, opts TrialOptions) (*tumor.Tumor, error) {
	c, r := p.Config, p.Resolved

	var space lattice.Space = lattice.Point{}
	if r.Space == lattice.TypeLattice {
		periodic, err := lattice.NewPeriodic(c.Lattice.Period)
		if err != nil {
			return nil, err
		}
		space = periodic
	}

	var (
		models tumor.Models
		err    error
	)
	if models.Capacity, err = capacity.New(r.Capacity, c.Capacity.Value); err != nil {
		return nil, err
	}
	if models.Growth, err = growth.New(r.Growth); err != nil {
		return nil, err
	}
	if models.Division, err = division.New(r.Division, c.Division.Threshold, c.Division.MinSize); err != nil {
		return nil, err
	}
	if models.Migration, err = migration.New(r.Migration); err != nil {
		return nil, err
	}
	if models.Senescence, err = senescence.New(r.Senescence, r.SenescenceNeighborhood, c.Senescence.Threshold); err != nil {
		return nil, err
	}
	// The Poisson generator owns the mutation ID sequence, so each trial
	// needs its own.
	if models.Mutation, err = mutation.NewGenerator(r.Generator, r.Rates); err != nil {
		return nil, err
	}

	factory, err := carrier.NewFactory(r.Kind, r.Rate, c.Tumor.FounderSize, nil)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger != nil {
		logger = logger.With("trial", trial)
	}
	t, err := tumor.New(models, factory, rng.ForTrial(c.Random.Seed, trial), tumor.Options{
		Space:           space,
		Neighborhood:    r.Neighborhood,
		MaxSteps:        c.Tumor.MaxSteps,
		MaxSize:         c.Tumor.MaxSize,
		ReleaseInterval: c.Tumor.ReleaseInterval,
		Logger:          logger,
		OnEvent:         eventSink(opts.Events, trial),
		Observer:        opts.Observer,
	})
	if err != nil {
		return nil, fmt.Errorf("trial %d: %w", trial, err)
	}
	return t, nil
}

// eventSink forwards structural events to the event log. Per-birth
// placement and mutation events are only kept at trace level.
func eventSink(events *logging.EventLogger, trial int) func(tumor.Event) {
	if events == nil {
		return nil
	}
	verbose := events.Verbose()
	return func(e tumor.Event) {
		if !verbose && (e.Kind == tumor.EventPlacement || e.Kind == tumor.EventMutation) {
			return
		}
		events.Log(trial, e.Fields())
	}
}
