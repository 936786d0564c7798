package tumor

import (
	"github.com/nvandessel/tumor-lattice/internal/carrier"
	"github.com/nvandessel/tumor-lattice/internal/lattice"
)

// EventKind names a structural change the engine reports.
type EventKind string

const (
	EventSenescence EventKind = "senescence"
	EventDivision   EventKind = "division"
	EventMutation   EventKind = "mutation"
	EventDeath      EventKind = "death"
	EventPlacement  EventKind = "placement"
	EventMigration  EventKind = "migration"
	EventTerminated EventKind = "terminated"
)

// Event describes one structural change. Fields not meaningful for a kind
// are zero.
type Event struct {
	Kind    EventKind
	Step    int
	Carrier carrier.ID
	// Related is the clone, daughter or offspring created by the event.
	Related carrier.ID
	Site    lattice.Coord
	Target  lattice.Coord

	// CellsBefore is the carrier's size when the event was decided.
	CellsBefore int64
	// Moved is the number of cells transferred to Related or Target.
	Moved        int64
	SiteCapacity int64
	// Fraction is the site occupancy fraction when the event was decided;
	// for senescence NeighborhoodFraction is also set.
	Fraction             float64
	NeighborhoodFraction float64

	Reason TerminationReason
}

// Fields renders the event for structured logs.
func (e Event) Fields() map[string]any {
	f := map[string]any{
		"event":   string(e.Kind),
		"step":    e.Step,
		"carrier": int64(e.Carrier),
	}
	switch e.Kind {
	case EventDivision:
		f["clone"] = int64(e.Related)
		f["site"] = e.Site.String()
		f["target"] = e.Target.String()
		f["cells_before"] = e.CellsBefore
		f["moved"] = e.Moved
		f["fraction"] = e.Fraction
	case EventSenescence:
		f["site"] = e.Site.String()
		f["fraction"] = e.Fraction
		f["neighborhood_fraction"] = e.NeighborhoodFraction
	case EventMutation, EventPlacement:
		f["daughter"] = int64(e.Related)
		f["target"] = e.Target.String()
	case EventMigration:
		f["site"] = e.Site.String()
		f["target"] = e.Target.String()
	case EventTerminated:
		f["reason"] = string(e.Reason)
	}
	return f
}
