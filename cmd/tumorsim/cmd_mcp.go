package main

import (
	"github.com/spf13/cobra"

	"github.com/nvandessel/tumor-lattice/internal/logging"
	"github.com/nvandessel/tumor-lattice/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve simulation tools over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing:

  tumor_run              run trials and return per-trial final states
  tumor_validate_config  check a configuration

Logs go to stderr; stdout carries the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			auditDir, _ := cmd.Flags().GetString("audit-dir")
			maxTrials, _ := cmd.Flags().GetInt("max-trials")
			maxSteps, _ := cmd.Flags().GetInt("max-steps")
			level, _ := cmd.Flags().GetString("log-level")

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "tumorsim",
				Version:  version,
				AuditDir: auditDir,
				Logger:   logging.NewLogger(level, cmd.ErrOrStderr()),
				Limits:   mcp.Limits{MaxTrials: maxTrials, MaxSteps: maxSteps},
			})
			if err != nil {
				return err
			}
			defer server.Close()
			return server.Run(cmd.Context())
		},
	}
	cmd.Flags().String("audit-dir", "", "Directory for audit.jsonl (disabled when empty)")
	cmd.Flags().Int("max-trials", mcp.DefaultMaxTrials, "Largest trial count a request may ask for")
	cmd.Flags().Int("max-steps", mcp.DefaultMaxSteps, "Largest max_steps a request may ask for")
	cmd.Flags().String("log-level", "info", "Log level: info, debug, trace")
	return cmd
}
