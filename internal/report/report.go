// Package report writes trial outcomes as CSV tables and renders the
// trajectory chart.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/nvandessel/tumor-lattice/internal/mutation"
	"github.com/nvandessel/tumor-lattice/internal/simulation"
)

// Base names of the files Write produces. CSV tables get a ".gz" suffix
// when compression is on.
const (
	TrajectoryFile    = "trajectory.csv"
	SitesFile         = "sites.csv"
	MutationsFile     = "mutations.csv"
	MutationTypesFile = "mutation_types.csv"
	MomentsFile       = "moments.csv"
	SummaryFile       = "summary.json"
	ChartFile         = "trajectory.png"
)

// Headers of the CSV tables.
var (
	TrajectoryHeader    = []string{"trial", "step", "cells", "components", "senescent", "sites"}
	SitesHeader         = []string{"trial", "x", "y", "z", "components", "cells", "senescent", "genotypes"}
	MutationsHeader     = []string{"trial", "mutation_id", "type", "coefficient", "frequency"}
	MutationTypesHeader = []string{"trial", "type", "count"}
	MomentsHeader       = []string{
		"trial", "count", "center_x", "center_y", "center_z", "radius_gyration",
		"lambda1", "lambda2", "lambda3", "asphericity", "acylindricity", "anisotropy",
	}
)

// Writer writes report files into one directory.
type Writer struct {
	dir  string
	gzip bool
}

// NewWriter returns a writer for dir. With compress set, CSV tables are
// gzipped.
func NewWriter(dir string, compress bool) *Writer {
	return &Writer{dir: dir, gzip: compress}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Write produces every report file for result and returns their paths.
func (w *Writer) Write(result *simulation.Result) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}

	tables := []struct {
		name   string
		header []string
		rows   func(o simulation.TrialOutcome) [][]string
	}{
		{TrajectoryFile, TrajectoryHeader, trajectoryRows},
		{SitesFile, SitesHeader, siteRows},
		{MutationsFile, MutationsHeader, mutationRows},
		{MutationTypesFile, MutationTypesHeader, mutationTypeRows},
		{MomentsFile, MomentsHeader, momentRows},
	}

	var paths []string
	for _, tbl := range tables {
		path, err := w.writeTable(tbl.name, tbl.header, result.Trials, tbl.rows)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	summary := filepath.Join(w.dir, SummaryFile)
	if err := writeSummary(summary, result); err != nil {
		return paths, err
	}
	paths = append(paths, summary)

	chartPath := filepath.Join(w.dir, ChartFile)
	switch err := writeChart(chartPath, FromResult(result)); {
	case errors.Is(err, ErrNoData):
		return paths, nil
	case err != nil:
		return paths, err
	}
	return append(paths, chartPath), nil
}

func (w *Writer) writeTable(name string, header []string, trials []simulation.TrialOutcome, rows func(simulation.TrialOutcome) [][]string) (string, error) {
	path := filepath.Join(w.dir, name)
	if w.gzip {
		path += ".gz"
	}
	out, err := create(path, w.gzip)
	if err != nil {
		return "", err
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		out.Close()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	for _, o := range trials {
		if err := cw.WriteAll(rows(o)); err != nil {
			out.Close()
			return "", fmt.Errorf("writing %s: %w", name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		out.Close()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", name, err)
	}
	return path, nil
}

func trajectoryRows(o simulation.TrialOutcome) [][]string {
	trial := strconv.Itoa(o.Trial)
	rows := make([][]string, 0, len(o.Trajectory))
	for _, s := range o.Trajectory {
		rows = append(rows, []string{
			trial,
			strconv.Itoa(s.Step),
			strconv.FormatInt(s.Cells, 10),
			strconv.Itoa(s.Components),
			strconv.Itoa(s.Senescent),
			strconv.Itoa(s.Sites),
		})
	}
	return rows
}

func siteRows(o simulation.TrialOutcome) [][]string {
	trial := strconv.Itoa(o.Trial)
	rows := make([][]string, 0, len(o.Sites))
	for _, s := range o.Sites {
		rows = append(rows, []string{
			trial,
			strconv.Itoa(s.Coord.X),
			strconv.Itoa(s.Coord.Y),
			strconv.Itoa(s.Coord.Z),
			strconv.Itoa(s.Components),
			strconv.FormatInt(s.Cells, 10),
			strconv.Itoa(s.Senescent),
			strconv.Itoa(s.Genotypes),
		})
	}
	return rows
}

func mutationRows(o simulation.TrialOutcome) [][]string {
	trial := strconv.Itoa(o.Trial)
	rows := make([][]string, 0, len(o.Mutations))
	for _, f := range o.Mutations {
		rows = append(rows, []string{
			trial,
			strconv.FormatInt(int64(f.Mutation.ID), 10),
			f.Mutation.Type.String(),
			formatFloat(f.Mutation.Coefficient),
			formatFloat(f.Fraction),
		})
	}
	return rows
}

func mutationTypeRows(o simulation.TrialOutcome) [][]string {
	trial := strconv.Itoa(o.Trial)
	types := []mutation.Type{mutation.Neutral, mutation.Selective, mutation.Neoantigen, mutation.Scalar}
	rows := make([][]string, 0, len(types))
	for _, t := range types {
		rows = append(rows, []string{trial, t.String(), strconv.Itoa(o.MutationCounts[t])})
	}
	return rows
}

func momentRows(o simulation.TrialOutcome) [][]string {
	m := o.Moment
	return [][]string{{
		strconv.Itoa(o.Trial),
		strconv.Itoa(m.Count),
		formatFloat(m.CenterX),
		formatFloat(m.CenterY),
		formatFloat(m.CenterZ),
		formatFloat(m.RadiusGyration),
		formatFloat(m.Principal[0]),
		formatFloat(m.Principal[1]),
		formatFloat(m.Principal[2]),
		formatFloat(m.Asphericity),
		formatFloat(m.Acylindricity),
		formatFloat(m.Anisotropy),
	}}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeSummary(path string, result *simulation.Result) error {
	data, err := json.MarshalIndent(struct {
		Seed uint64 `json:"seed"`
		simulation.Summary
	}{result.Seed, result.Summarize()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// gzipFile closes the gzip stream before the file under it.
type gzipFile struct {
	*gzip.Writer
	f *os.File
}

func (g gzipFile) Close() error {
	if err := g.Writer.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

func create(path string, compress bool) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if !compress {
		return f, nil
	}
	gzw, err := gzip.NewWriterLevel(f, gzip.DefaultCompression)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	return gzipFile{Writer: gzw, f: f}, nil
}

// open reads path, transparently decompressing ".gz" files.
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gzr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	return gzipReader{Reader: gzr, f: f}, nil
}

type gzipReader struct {
	*gzip.Reader
	f *os.File
}

func (g gzipReader) Close() error {
	g.Reader.Close()
	return g.f.Close()
}
