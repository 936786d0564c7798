package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/tumor-lattice/internal/config"
)

// loadConfig reads --config, then applies --set overrides. The result is
// not validated.
func loadConfig(cmd *cobra.Command) (*config.SimConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	sets, _ := cmd.Flags().GetStringArray("set")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	props, err := parseSets(sets)
	if err != nil {
		return nil, err
	}
	if err := cfg.Set(props); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseSets splits key=value pairs.
func parseSets(sets []string) (map[string]string, error) {
	props := make(map[string]string, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", s)
		}
		props[k] = v
	}
	return props, nil
}
