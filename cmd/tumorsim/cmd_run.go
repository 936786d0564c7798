package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nvandessel/tumor-lattice/internal/blob"
	"github.com/nvandessel/tumor-lattice/internal/config"
	"github.com/nvandessel/tumor-lattice/internal/logging"
	"github.com/nvandessel/tumor-lattice/internal/metrics"
	"github.com/nvandessel/tumor-lattice/internal/report"
	"github.com/nvandessel/tumor-lattice/internal/simulation"
	"github.com/nvandessel/tumor-lattice/internal/store"
)

// ConfigFile is the effective configuration saved next to the reports.
const ConfigFile = "config.yaml"

type runOutput struct {
	RunID    string             `json:"run_id"`
	OutDir   string             `json:"out_dir"`
	Seed     uint64             `json:"seed"`
	Summary  simulation.Summary `json:"summary"`
	Files    []string           `json:"files"`
	Uploaded []blob.Info        `json:"uploaded,omitempty"`
	Elapsed  string             `json:"elapsed"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run simulation trials and write reports",
		Long: `Run every configured trial to termination, then write CSV reports, a
summary and a trajectory chart to the output directory.

Examples:
  tumorsim run -c deme.yaml
  tumorsim run --set tumor.trials=100 --set random.seed=7 --gzip
  tumorsim run -c deme.yaml --store runs.db --upload s3://bucket/sims
  tumorsim run --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sigChan := make(chan os.Signal, 1)
			notifySignals(sigChan)
			go func() {
				select {
				case <-sigChan:
					cancel()
				case <-ctx.Done():
				}
			}()

			out, err := runSimulation(ctx, cmd, cfg)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			w := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(w).Encode(out)
			}
			printRunOutput(w, out)
			return nil
		},
	}

	cmd.Flags().Int("trials", 0, "Number of trials (overrides tumor.trials)")
	cmd.Flags().Uint64("seed", 0, "Random seed (overrides random.seed)")
	cmd.Flags().Int("max-steps", 0, "Step limit per trial (overrides tumor.max_steps)")
	cmd.Flags().StringP("out", "o", "", "Output directory (overrides output.dir)")
	cmd.Flags().Bool("gzip", false, "Gzip CSV reports (overrides output.gzip)")
	cmd.Flags().String("store", "", "Record the run in a database: SQLite path or postgres:// DSN (overrides output.store_dsn)")
	cmd.Flags().String("upload", "", "Upload reports to file://dir or s3://bucket/prefix (overrides output.upload_url)")
	cmd.Flags().String("log-level", "", "Log level: info, debug, trace (overrides logging.level)")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.Flags().Int("parallel", 0, "Trials run concurrently (default GOMAXPROCS)")
	cmd.Flags().Bool("check", false, "Verify occupancy against capacity after every step")

	return cmd
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.SimConfig) {
	f := cmd.Flags()
	if f.Changed("trials") {
		cfg.Tumor.Trials, _ = f.GetInt("trials")
	}
	if f.Changed("seed") {
		cfg.Random.Seed, _ = f.GetUint64("seed")
	}
	if f.Changed("max-steps") {
		cfg.Tumor.MaxSteps, _ = f.GetInt("max-steps")
	}
	if f.Changed("out") {
		cfg.Output.Dir, _ = f.GetString("out")
	}
	if f.Changed("gzip") {
		cfg.Output.Gzip, _ = f.GetBool("gzip")
	}
	if f.Changed("store") {
		cfg.Output.StoreDSN, _ = f.GetString("store")
	}
	if f.Changed("upload") {
		cfg.Output.UploadURL, _ = f.GetString("upload")
	}
	if f.Changed("log-level") {
		cfg.Logging.Level, _ = f.GetString("log-level")
	}
}

func runSimulation(ctx context.Context, cmd *cobra.Command, cfg *config.SimConfig) (*runOutput, error) {
	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	runID := uuid.NewString()
	outDir := cfg.Output.Dir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	events, err := logging.NewEventLogger(outDir, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	defer events.Close()

	m := metrics.New()
	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr != "" {
		stop, err := serveMetrics(addr, m, logger)
		if err != nil {
			return nil, err
		}
		defer stop()
	}

	parallel, _ := cmd.Flags().GetInt("parallel")
	check, _ := cmd.Flags().GetBool("check")
	opts := []simulation.Option{
		simulation.WithLogger(logger),
		simulation.WithEvents(events),
		simulation.WithMetrics(m),
		simulation.WithParallelism(parallel),
	}
	if check {
		opts = append(opts, simulation.WithCapacityChecks())
	}
	runner, err := simulation.NewRunner(cfg, opts...)
	if err != nil {
		return nil, err
	}

	logger.Info("run starting",
		"run_id", runID,
		"trials", cfg.Tumor.Trials,
		"seed", cfg.Random.Seed,
		"component_type", cfg.Tumor.ComponentType)
	result, err := runner.Run(ctx)
	if err != nil {
		return nil, err
	}

	files, err := report.NewWriter(outDir, cfg.Output.Gzip).Write(result)
	if err != nil {
		return nil, fmt.Errorf("writing reports: %w", err)
	}
	cfgYAML, err := cfg.Marshal()
	if err != nil {
		return nil, err
	}
	cfgPath := filepath.Join(outDir, ConfigFile)
	if err := os.WriteFile(cfgPath, cfgYAML, 0o644); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	files = append(files, cfgPath)
	if events.Written() > 0 {
		if err := events.Close(); err != nil {
			return nil, err
		}
		files = append(files, filepath.Join(outDir, logging.EventsFile))
	}

	out := &runOutput{
		RunID:   runID,
		OutDir:  outDir,
		Seed:    result.Seed,
		Summary: result.Summarize(),
		Files:   files,
		Elapsed: result.Elapsed.Round(time.Millisecond).String(),
	}

	if cfg.Output.StoreDSN != "" {
		id, err := recordRun(ctx, cfg.Output.StoreDSN, string(cfgYAML), result)
		if err != nil {
			return nil, err
		}
		out.RunID = id
		logger.Info("run recorded", "run_id", id)
	}

	if cfg.Output.UploadURL != "" {
		sink, err := blob.Open(ctx, cfg.Output.UploadURL)
		if err != nil {
			return nil, err
		}
		out.Uploaded, err = blob.Upload(ctx, sink, out.RunID, files)
		if err != nil {
			return nil, err
		}
		logger.Info("reports uploaded", "driver", string(sink.Driver()), "files", len(out.Uploaded))
	}
	return out, nil
}

// recordRun saves the run and every trial, returning the run ID.
func recordRun(ctx context.Context, dsn, cfgYAML string, result *simulation.Result) (string, error) {
	s, err := store.Open(ctx, dsn)
	if err != nil {
		return "", err
	}
	defer s.Close()

	run, err := s.CreateRun(ctx, result.Seed, len(result.Trials), cfgYAML)
	if err != nil {
		return "", err
	}
	for _, o := range result.Trials {
		if err := s.SaveTrial(ctx, run.ID, o.StoreResult(), o.Points(), o.MutationRecords()); err != nil {
			return "", err
		}
	}
	return run.ID, nil
}

// serveMetrics starts the Prometheus endpoint and returns a shutdown func.
func serveMetrics(addr string, m *metrics.Collectors, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}

func printRunOutput(w io.Writer, out *runOutput) {
	s := out.Summary
	fmt.Fprintf(w, "Run %s (seed %d): %d trials in %s\n", out.RunID, out.Seed, s.Trials, out.Elapsed)
	fmt.Fprintf(w, "  Final cells: mean %.1f, stddev %.1f\n", s.MeanCells, s.StdDevCells)
	fmt.Fprintf(w, "  Mean steps:  %.1f\n", s.MeanSteps)
	for _, reason := range slices.Sorted(maps.Keys(s.Reasons)) {
		fmt.Fprintf(w, "  %-10s %d\n", string(reason)+":", s.Reasons[reason])
	}
	fmt.Fprintf(w, "Reports in %s (%d files)\n", out.OutDir, len(out.Files))
	for _, u := range out.Uploaded {
		fmt.Fprintf(w, "  uploaded %s\n", u.Location)
	}
}
