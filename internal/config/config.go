// Package config provides unified configuration loading for tumorsim.
// It supports YAML files, flat key=value property files and environment
// variables. Enumerations are parsed and checked once by Validate, before
// any trial is built.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SimConfig contains every simulation setting.
type SimConfig struct {
	Tumor      TumorConfig      `json:"tumor" yaml:"tumor"`
	Lattice    LatticeConfig    `json:"lattice" yaml:"lattice"`
	Capacity   CapacityConfig   `json:"capacity" yaml:"capacity"`
	Growth     GrowthConfig     `json:"growth" yaml:"growth"`
	Division   DivisionConfig   `json:"division" yaml:"division"`
	Migration  MigrationConfig  `json:"migration" yaml:"migration"`
	Senescence SenescenceConfig `json:"senescence" yaml:"senescence"`
	Mutation   MutationConfig   `json:"mutation" yaml:"mutation"`
	Random     RandomConfig     `json:"random" yaml:"random"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Output     OutputConfig     `json:"output" yaml:"output"`
}

// TumorConfig selects the carrier kind, topology and trial limits.
type TumorConfig struct {
	// ComponentType is CELL, LINEAGE or DEME.
	ComponentType string `json:"component_type" yaml:"component_type"`
	// SpatialType is POINT or LATTICE.
	SpatialType string `json:"spatial_type" yaml:"spatial_type"`
	FounderSize int64  `json:"founder_size" yaml:"founder_size"`
	MaxSteps    int    `json:"max_steps" yaml:"max_steps"`
	// MaxSize ends a trial once total cells exceed it; 0 disables.
	MaxSize int64 `json:"max_size" yaml:"max_size"`
	Trials  int   `json:"trials" yaml:"trials"`
	// ReleaseInterval frees extinct genotypes every this many steps.
	ReleaseInterval int `json:"release_interval" yaml:"release_interval"`
}

// LatticeConfig shapes the periodic lattice.
type LatticeConfig struct {
	Period int `json:"period" yaml:"period"`
	// Neighborhood is where daughters and clones are placed:
	// VON_NEUMANN or MOORE.
	Neighborhood string `json:"neighborhood" yaml:"neighborhood"`
}

// CapacityConfig selects the site capacity model.
type CapacityConfig struct {
	// Type is UNIFORM, SINGLE or UNLIMITED.
	Type  string `json:"type" yaml:"type"`
	Value int64  `json:"value" yaml:"value"`
}

// GrowthConfig holds the founder's intrinsic rates and the growth policy.
type GrowthConfig struct {
	// Model is INTRINSIC or LOCAL_OCCUPANCY.
	Model     string  `json:"model" yaml:"model"`
	BirthRate float64 `json:"birth_rate" yaml:"birth_rate"`
	DeathRate float64 `json:"death_rate" yaml:"death_rate"`
}

// DivisionConfig selects the division policy.
type DivisionConfig struct {
	// Type is NONE or THRESHOLD.
	Type      string  `json:"type" yaml:"type"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	MinSize   int64   `json:"min_size" yaml:"min_size"`
}

// MigrationConfig selects the migration policy.
type MigrationConfig struct {
	Type string `json:"type" yaml:"type"`
}

// SenescenceConfig selects the senescence policy.
type SenescenceConfig struct {
	// Type is NONE or NEIGHBORHOOD_OCCUPANCY_FRACTION.
	Type         string  `json:"type" yaml:"type"`
	Neighborhood string  `json:"neighborhood" yaml:"neighborhood"`
	Threshold    float64 `json:"threshold" yaml:"threshold"`
}

// MutationConfig holds the mutation generator and its Poisson rates, in
// mean arrivals per newborn cell.
type MutationConfig struct {
	// Generator is PERFECT or GLOBAL.
	Generator      string  `json:"generator" yaml:"generator"`
	NeutralRate    float64 `json:"neutral_rate" yaml:"neutral_rate"`
	SelectiveRate  float64 `json:"selective_rate" yaml:"selective_rate"`
	SelectionCoeff float64 `json:"selection_coeff" yaml:"selection_coeff"`
	NeoantigenRate float64 `json:"neoantigen_rate" yaml:"neoantigen_rate"`
	ScalarRate     float64 `json:"scalar_rate" yaml:"scalar_rate"`
	ScalarMean     float64 `json:"scalar_mean" yaml:"scalar_mean"`
	ScalarStdDev   float64 `json:"scalar_stddev" yaml:"scalar_stddev"`
}

// RandomConfig holds the master seed. Trial i draws from a stream derived
// from Seed and i.
type RandomConfig struct {
	Seed uint64 `json:"seed" yaml:"seed"`
}

// LoggingConfig configures tumorsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the events.jsonl event log in the output directory.
	Level string `json:"level" yaml:"level"`
}

// OutputConfig says where run artifacts go.
type OutputConfig struct {
	Dir  string `json:"dir" yaml:"dir"`
	Gzip bool   `json:"gzip" yaml:"gzip"`
	// StoreDSN is a sqlite file path or a postgres:// URL; empty disables.
	StoreDSN string `json:"store_dsn,omitempty" yaml:"store_dsn,omitempty"`
	// UploadURL is file:///dir or s3://bucket/prefix; empty disables.
	UploadURL string `json:"upload_url,omitempty" yaml:"upload_url,omitempty"`
}

// Default returns a SimConfig with sensible defaults: a single
// unconstrained lineage on a point.
func Default() *SimConfig {
	return &SimConfig{
		Tumor: TumorConfig{
			ComponentType:   "LINEAGE",
			SpatialType:     "POINT",
			FounderSize:     1,
			MaxSteps:        100,
			Trials:          1,
			ReleaseInterval: 50,
		},
		Lattice:    LatticeConfig{Period: 21, Neighborhood: "MOORE"},
		Capacity:   CapacityConfig{Type: "UNLIMITED"},
		Growth:     GrowthConfig{Model: "INTRINSIC", BirthRate: 0.55, DeathRate: 0.45},
		Division:   DivisionConfig{Type: "NONE", Threshold: 0.9, MinSize: 2},
		Migration:  MigrationConfig{Type: "PINNED"},
		Senescence: SenescenceConfig{Type: "NONE", Neighborhood: "MOORE", Threshold: 0.95},
		Mutation:   MutationConfig{Generator: "PERFECT"},
		Random:     RandomConfig{Seed: 1},
		Logging:    LoggingConfig{Level: "info"},
		Output:     OutputConfig{Dir: "out"},
	}
}

// Load reads path (YAML, or flat properties if it ends in .properties),
// falling back to defaults when path is empty, then applies environment
// overrides. The result is not yet validated.
func Load(path string) (*SimConfig, error) {
	config := Default()
	if path != "" {
		var err error
		if strings.EqualFold(filepath.Ext(path), ".properties") {
			config, err = LoadProperties(path)
		} else {
			config, err = LoadFromFile(path)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a YAML file. Unknown keys are an
// error.
func LoadFromFile(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*SimConfig, error) {
	config := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return config, nil
}

// Marshal renders the configuration as YAML.
func (c *SimConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *SimConfig) error {
	if v := os.Getenv("TUMORSIM_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return &ValidationError{Property: "TUMORSIM_SEED", Value: v, Reason: "not an unsigned integer"}
		}
		config.Random.Seed = seed
	}
	if v := os.Getenv("TUMORSIM_MAX_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ValidationError{Property: "TUMORSIM_MAX_STEPS", Value: v, Reason: "not an integer"}
		}
		config.Tumor.MaxSteps = n
	}
	if v := os.Getenv("TUMORSIM_TRIALS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ValidationError{Property: "TUMORSIM_TRIALS", Value: v, Reason: "not an integer"}
		}
		config.Tumor.Trials = n
	}
	if v := os.Getenv("TUMORSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	return nil
}
