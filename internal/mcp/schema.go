package mcp

import (
	"github.com/nvandessel/tumor-lattice/internal/simulation"
)

// RunInput defines the input for the tumor_run tool.
type RunInput struct {
	Config     string            `json:"config,omitempty" jsonschema:"YAML simulation config applied over the defaults"`
	Properties map[string]string `json:"properties,omitempty" jsonschema:"Flat key=value overrides such as growth.birth_rate, applied after config"`
	Seed       uint64            `json:"seed,omitempty" jsonschema:"Random seed; zero keeps the configured seed"`
	Trials     int               `json:"trials,omitempty" jsonschema:"Number of trials; zero keeps the configured count"`
	Trajectory bool              `json:"trajectory,omitempty" jsonschema:"Include the per-step trajectory of every trial"`
}

// RunOutput defines the output for the tumor_run tool.
type RunOutput struct {
	Seed      uint64             `json:"seed" jsonschema:"Seed the run used"`
	Summary   simulation.Summary `json:"summary" jsonschema:"Across-trial summary of final states"`
	Trials    []TrialSummary     `json:"trials" jsonschema:"Final state of each trial"`
	ElapsedMs int64              `json:"elapsed_ms" jsonschema:"Wall time of the run in milliseconds"`
}

// TrialSummary is the final state of one trial.
type TrialSummary struct {
	Trial      int     `json:"trial"`
	Reason     string  `json:"reason"`
	Steps      int     `json:"steps"`
	Cells      int64   `json:"cells"`
	Components int     `json:"components"`
	Senescent  int     `json:"senescent"`
	Mutations  int     `json:"mutations"`
	Radius     float64 `json:"radius_gyration"`
	Trajectory []int64 `json:"trajectory,omitempty" jsonschema:"Total cells at each step, starting at step 0"`
}

// ValidateInput defines the input for the tumor_validate_config tool.
type ValidateInput struct {
	Config     string            `json:"config,omitempty" jsonschema:"YAML simulation config applied over the defaults"`
	Properties map[string]string `json:"properties,omitempty" jsonschema:"Flat key=value overrides applied after config"`
}

// ValidateOutput defines the output for the tumor_validate_config tool.
type ValidateOutput struct {
	Valid    bool   `json:"valid" jsonschema:"Whether the configuration is runnable"`
	Property string `json:"property,omitempty" jsonschema:"Offending property when invalid"`
	Value    string `json:"value,omitempty" jsonschema:"Offending value when invalid"`
	Error    string `json:"error,omitempty" jsonschema:"Human-readable error message"`
	Resolved string `json:"resolved,omitempty" jsonschema:"Effective configuration as YAML when valid"`
}
