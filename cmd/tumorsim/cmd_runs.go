package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tumor-lattice/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs recorded with --store",
		Long: `List, show and delete runs recorded in a run database.

Examples:
  tumorsim runs list --store runs.db
  tumorsim runs show <run-id> --store runs.db
  tumorsim runs show <run-id> --trial 3 --store postgres://localhost/sims
  tumorsim runs delete <run-id> --store runs.db`,
	}
	cmd.PersistentFlags().String("store", "", "SQLite path or postgres:// DSN")
	cmd.MarkPersistentFlagRequired("store")

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsDeleteCmd(),
	)
	return cmd
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dsn, _ := cmd.Flags().GetString("store")
	return store.Open(cmd.Context(), dsn)
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			w := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(w).Encode(map[string]any{"runs": runs, "count": len(runs)})
			}
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs recorded")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(w, "%s  %s  seed=%d  trials=%d\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Seed, r.Trials)
			}
			return nil
		},
	}
}

func newRunsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run's trials, or one trial's trajectory and mutations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			run, err := s.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			w := cmd.OutOrStdout()

			if cmd.Flags().Changed("trial") {
				trial, _ := cmd.Flags().GetInt("trial")
				points, err := s.Trajectory(ctx, run.ID, trial)
				if err != nil {
					return err
				}
				muts, err := s.Mutations(ctx, run.ID, trial)
				if err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(w).Encode(map[string]any{
						"run_id":     run.ID,
						"trial":      trial,
						"trajectory": points,
						"mutations":  muts,
					})
				}
				fmt.Fprintf(w, "Run %s trial %d: %d steps, %d mutations\n", run.ID, trial, len(points), len(muts))
				for _, p := range points {
					fmt.Fprintf(w, "  step %-6d cells %-10d components %-8d senescent %d\n", p.Step, p.Cells, p.Components, p.Senescent)
				}
				return nil
			}

			trials, err := s.Trials(ctx, run.ID)
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(w).Encode(map[string]any{"run": run, "trials": trials})
			}
			fmt.Fprintf(w, "Run %s (seed %d, created %s)\n", run.ID, run.Seed, run.CreatedAt.Format("2006-01-02 15:04:05"))
			for _, t := range trials {
				fmt.Fprintf(w, "  trial %-4s %-10s steps %-6d cells %d\n", strconv.Itoa(t.Trial), t.Reason, t.Steps, t.Cells)
			}
			return nil
		},
	}
	cmd.Flags().Int("trial", 0, "Show this trial's trajectory and mutations")
	return cmd
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and everything recorded for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"status": "deleted", "run_id": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}
