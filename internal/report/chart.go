package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/nvandessel/tumor-lattice/internal/simulation"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no trajectory data")

// Series is the cell count trajectory of one trial.
type Series struct {
	Trial int
	Steps []float64
	Cells []float64
}

// FromResult extracts per-trial trajectories.
func FromResult(result *simulation.Result) []Series {
	out := make([]Series, 0, len(result.Trials))
	for _, o := range result.Trials {
		s := Series{Trial: o.Trial}
		for _, snap := range o.Trajectory {
			s.Steps = append(s.Steps, float64(snap.Step))
			s.Cells = append(s.Cells, float64(snap.Cells))
		}
		out = append(out, s)
	}
	return out
}

// ReadTrajectory loads a trajectory table written by Writer, gzipped or
// not, grouped by trial in trial order.
func ReadTrajectory(path string) ([]Series, error) {
	in, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trajectory: %w", err)
	}
	defer in.Close()

	cr := csv.NewReader(in)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading trajectory header: %w", err)
	}
	if !slices.Equal(header, TrajectoryHeader) {
		return nil, fmt.Errorf("unexpected trajectory header %v", header)
	}

	byTrial := make(map[int]*Series)
	var order []int
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading trajectory: %w", err)
		}
		trial, err1 := strconv.Atoi(rec[0])
		step, err2 := strconv.ParseFloat(rec[1], 64)
		cells, err3 := strconv.ParseFloat(rec[2], 64)
		if err := errors.Join(err1, err2, err3); err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("trajectory line %d: %w", line, err)
		}
		s, ok := byTrial[trial]
		if !ok {
			s = &Series{Trial: trial}
			byTrial[trial] = s
			order = append(order, trial)
		}
		s.Steps = append(s.Steps, step)
		s.Cells = append(s.Cells, cells)
	}

	slices.Sort(order)
	out := make([]Series, 0, len(order))
	for _, trial := range order {
		out = append(out, *byTrial[trial])
	}
	return out, nil
}

// Mean averages cell counts across series by index. Series that end early
// carry their last value forward.
func Mean(series []Series) Series {
	longest := 0
	for _, s := range series {
		longest = max(longest, len(s.Steps))
	}
	mean := Series{Trial: -1, Steps: make([]float64, longest), Cells: make([]float64, longest)}
	if len(series) == 0 {
		return mean
	}
	for i := range longest {
		mean.Steps[i] = float64(i)
		var sum float64
		for _, s := range series {
			switch {
			case i < len(s.Cells):
				sum += s.Cells[i]
			case len(s.Cells) > 0:
				sum += s.Cells[len(s.Cells)-1]
			}
		}
		mean.Cells[i] = sum / float64(len(series))
	}
	return mean
}

// RenderChart draws every trial in grey and the across-trial mean in red,
// as PNG.
func RenderChart(w io.Writer, series []Series) error {
	var xMax, yMax float64
	for _, s := range series {
		for i := range s.Steps {
			xMax = max(xMax, s.Steps[i])
			yMax = max(yMax, s.Cells[i])
		}
	}
	if len(series) == 0 || xMax == 0 {
		return ErrNoData
	}

	var lines []chart.Series
	for _, s := range series {
		lines = append(lines, chart.ContinuousSeries{
			Name:    fmt.Sprintf("trial %d", s.Trial),
			XValues: s.Steps,
			YValues: s.Cells,
			Style: chart.Style{
				StrokeColor: drawing.Color{R: 160, G: 160, B: 160, A: 160},
				StrokeWidth: 1.0,
			},
		})
	}
	mean := Mean(series)
	lines = append(lines, chart.ContinuousSeries{
		Name:    "mean",
		XValues: mean.Steps,
		YValues: mean.Cells,
		Style: chart.Style{
			StrokeColor: chart.ColorRed,
			StrokeWidth: 3.0,
		},
	})

	graph := chart.Chart{
		Width:  1024,
		Height: 512,
		XAxis: chart.XAxis{
			Name:  "step",
			Range: &chart.ContinuousRange{Min: 0, Max: xMax},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  "cells",
			Range: &chart.ContinuousRange{Min: 0, Max: max(yMax, 1)},
		},
		Series: lines,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}

func writeChart(path string, series []Series) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart: %w", err)
	}
	if err := RenderChart(f, series); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
