// Package metrics exports engine progress as Prometheus collectors. Each
// trial gets an Observer that feeds per-step statistics into counters and
// gauges labeled by trial index.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nvandessel/tumor-lattice/internal/tumor"
)

const namespace = "tumorsim"

// Collectors owns a private registry and the simulation collectors.
type Collectors struct {
	registry *prometheus.Registry

	steps      *prometheus.CounterVec
	births     *prometheus.CounterVec
	deaths     *prometheus.CounterVec
	mutations  *prometheus.CounterVec
	divisions  *prometheus.CounterVec
	senescence *prometheus.CounterVec
	cells      *prometheus.GaugeVec
	components *prometheus.GaugeVec
	trials     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Collectors {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"trial"})
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"trial"})
	}

	c := &Collectors{
		registry:   prometheus.NewRegistry(),
		steps:      counter("steps_total", "Completed simulation steps."),
		births:     counter("births_total", "Cells born."),
		deaths:     counter("deaths_total", "Cells died."),
		mutations:  counter("mutations_total", "Mutations arisen in newborn cells."),
		divisions:  counter("divisions_total", "Aggregate divisions."),
		senescence: counter("senescence_total", "Components that became senescent."),
		cells:      gauge("cells", "Current total cell count."),
		components: gauge("components", "Current component count."),
		trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_completed_total",
			Help:      "Trials run to termination, by reason.",
		}, []string{"reason"}),
	}
	c.registry.MustRegister(
		c.steps, c.births, c.deaths, c.mutations, c.divisions,
		c.senescence, c.cells, c.components, c.trials,
	)
	return c
}

// Registry exposes the registry for scraping or testing.
func (c *Collectors) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Trial returns the observer for one trial. A nil Collectors yields a nil
// observer, which the engine ignores.
func (c *Collectors) Trial(trial int) tumor.Observer {
	if c == nil {
		return nil
	}
	return &trialObserver{c: c, label: strconv.Itoa(trial)}
}

// TrialDone records a finished trial.
func (c *Collectors) TrialDone(reason tumor.TerminationReason) {
	if c == nil {
		return
	}
	c.trials.WithLabelValues(string(reason)).Inc()
}

type trialObserver struct {
	c     *Collectors
	label string
}

func (o *trialObserver) ObserveStep(s tumor.StepStats) {
	c := o.c
	c.steps.WithLabelValues(o.label).Inc()
	c.births.WithLabelValues(o.label).Add(float64(s.Growth.Births))
	c.deaths.WithLabelValues(o.label).Add(float64(s.Growth.Deaths))
	c.mutations.WithLabelValues(o.label).Add(float64(s.Mutations))
	c.divisions.WithLabelValues(o.label).Add(float64(s.Divisions))
	c.senescence.WithLabelValues(o.label).Add(float64(s.Senesced))
	c.cells.WithLabelValues(o.label).Set(float64(s.Cells))
	c.components.WithLabelValues(o.label).Set(float64(s.Components))
}
