package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tumor-lattice/internal/report"
)

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot <trajectory.csv[.gz]>",
		Short: "Render a trajectory table as a PNG chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			series, err := report.ReadTrajectory(args[0])
			if err != nil {
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := report.RenderChart(f, series); err != nil {
				f.Close()
				os.Remove(output)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"output": output,
					"trials": len(series),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d trials)\n", output, len(series))
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", report.ChartFile, "PNG file to write")
	return cmd
}
