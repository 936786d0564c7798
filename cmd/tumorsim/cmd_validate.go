package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tumor-lattice/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration without running it",
		Long: `Load the configuration (--config plus any --set overrides) and report the
first invalid property. Exits non-zero when the configuration is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			w := cmd.OutOrStdout()

			cfg, err := loadConfig(cmd)
			if err == nil {
				err = cfg.Validate()
			}

			if jsonOut {
				result := map[string]any{"valid": err == nil}
				if err != nil {
					result["error"] = err.Error()
					var verr *config.ValidationError
					if errors.As(err, &verr) {
						result["property"] = verr.Property
						result["value"] = fmt.Sprint(verr.Value)
					}
				}
				if encErr := json.NewEncoder(w).Encode(result); encErr != nil {
					return encErr
				}
				return err
			}

			if err != nil {
				return err
			}
			fmt.Fprintln(w, "Configuration is valid")
			return nil
		},
	}
}
