package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tumor-lattice/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect simulation configuration",
		Long: `Show the effective configuration or the flat property keys it accepts.

Examples:
  tumorsim config show                                # Defaults as YAML
  tumorsim config show -c deme.yaml --set tumor.trials=5
  tumorsim config keys                                # Every --set key`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigKeysCmd(),
	)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List property keys with their current values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			props := cfg.Properties()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(props)
			}
			for _, k := range config.Keys() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, props[k])
			}
			return nil
		},
	}
}
