package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	config := Default()

	if config.Tumor.ComponentType != "LINEAGE" || config.Tumor.SpatialType != "POINT" {
		t.Errorf("tumor defaults = %+v", config.Tumor)
	}
	if config.Capacity.Type != "UNLIMITED" {
		t.Errorf("expected UNLIMITED capacity, got %q", config.Capacity.Type)
	}
	if config.Growth.BirthRate != 0.55 || config.Growth.DeathRate != 0.45 {
		t.Errorf("growth defaults = %+v", config.Growth)
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got %q", config.Logging.Level)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
tumor:
  component_type: DEME
  spatial_type: LATTICE
  founder_size: 100
  max_steps: 40
  trials: 4
lattice:
  period: 11
  neighborhood: VON_NEUMANN
capacity:
  type: UNIFORM
  value: 100
division:
  type: THRESHOLD
  threshold: 0.9
mutation:
  generator: GLOBAL
  neutral_rate: 0.01
random:
  seed: 42
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if config.Tumor.ComponentType != "DEME" || config.Tumor.FounderSize != 100 || config.Tumor.Trials != 4 {
		t.Errorf("tumor = %+v", config.Tumor)
	}
	if config.Capacity.Value != 100 || config.Division.Threshold != 0.9 {
		t.Errorf("capacity=%+v division=%+v", config.Capacity, config.Division)
	}
	// Unset keys keep their defaults.
	if config.Growth.Model != "INTRINSIC" || config.Division.MinSize != 2 {
		t.Errorf("defaults lost: growth=%+v division=%+v", config.Growth, config.Division)
	}
	if config.Random.Seed != 42 {
		t.Errorf("seed = %d", config.Random.Seed)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFromFile_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("growth:\n  birthrate: 0.5\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil || !strings.Contains(err.Error(), "birthrate") {
		t.Errorf("expected unknown-field error naming birthrate, got %v", err)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParse_Empty(t *testing.T) {
	config, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if config.Tumor.MaxSteps != Default().Tumor.MaxSteps {
		t.Errorf("empty document should yield defaults, got %+v", config.Tumor)
	}
}

func TestLoad_PropertiesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.properties")
	content := `# scenario C
tumor.component_type = CELL
tumor.spatial_type = LATTICE
lattice.period = 9
capacity.type = SINGLE
senescence.type = NEIGHBORHOOD_OCCUPANCY_FRACTION
senescence.threshold = 0.95
! trailing comment
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	config, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if config.Tumor.ComponentType != "CELL" || config.Lattice.Period != 9 || config.Capacity.Type != "SINGLE" {
		t.Errorf("config = %+v", config)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TUMORSIM_SEED", "777")
	t.Setenv("TUMORSIM_MAX_STEPS", "12")
	t.Setenv("TUMORSIM_TRIALS", "3")
	t.Setenv("TUMORSIM_LOG_LEVEL", "debug")

	config, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if config.Random.Seed != 777 || config.Tumor.MaxSteps != 12 || config.Tumor.Trials != 3 || config.Logging.Level != "debug" {
		t.Errorf("overrides not applied: %+v %+v %+v", config.Random, config.Tumor, config.Logging)
	}
}

func TestLoad_BadEnvOverride(t *testing.T) {
	t.Setenv("TUMORSIM_SEED", "-1")
	_, err := Load("")
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Property != "TUMORSIM_SEED" {
		t.Errorf("expected ValidationError for TUMORSIM_SEED, got %v", err)
	}
}

func TestFromProperties(t *testing.T) {
	config, err := FromProperties(map[string]string{
		"growth.birth_rate": "0.6",
		"tumor.max_size":    "5000",
		"output.gzip":       "true",
		"random.seed":       "9",
	})
	if err != nil {
		t.Fatal(err)
	}
	if config.Growth.BirthRate != 0.6 || config.Tumor.MaxSize != 5000 || !config.Output.Gzip || config.Random.Seed != 9 {
		t.Errorf("config = %+v", config)
	}
}

func TestFromProperties_Errors(t *testing.T) {
	tests := []struct {
		name     string
		props    map[string]string
		property string
	}{
		{"unknown key", map[string]string{"growth.rate": "0.5"}, "growth.rate"},
		{"bad float", map[string]string{"growth.death_rate": "half"}, "growth.death_rate"},
		{"bad int", map[string]string{"lattice.period": "1.5"}, "lattice.period"},
		{"bad bool", map[string]string{"output.gzip": "maybe"}, "output.gzip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromProperties(tt.props)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Property != tt.property {
				t.Errorf("property = %q, want %q", ve.Property, tt.property)
			}
		})
	}
}

func TestProperties_RoundTrip(t *testing.T) {
	config := Default()
	config.Mutation.NeutralRate = 0.125
	config.Lattice.Neighborhood = "VON_NEUMANN"

	back, err := FromProperties(config.Properties())
	if err != nil {
		t.Fatal(err)
	}
	if *back != *config {
		t.Errorf("round trip changed config:\n got %+v\nwant %+v", back, config)
	}
	if len(Keys()) != len(config.Properties()) {
		t.Errorf("Keys() has %d entries, Properties() %d", len(Keys()), len(config.Properties()))
	}
}

func TestValidate(t *testing.T) {
	lattice := func(c *SimConfig) {
		c.Tumor.SpatialType = "LATTICE"
		c.Capacity.Type = "UNIFORM"
		c.Capacity.Value = 100
	}
	tests := []struct {
		name     string
		mutate   func(c *SimConfig)
		property string
	}{
		{"bad component type", func(c *SimConfig) { c.Tumor.ComponentType = "TISSUE" }, "tumor.component_type"},
		{"bad spatial type", func(c *SimConfig) { c.Tumor.SpatialType = "GRID" }, "tumor.spatial_type"},
		{"zero founder", func(c *SimConfig) { c.Tumor.FounderSize = 0 }, "tumor.founder_size"},
		{"multi-cell CELL founder", func(c *SimConfig) { c.Tumor.ComponentType = "CELL"; c.Tumor.FounderSize = 2 }, "tumor.founder_size"},
		{"zero steps", func(c *SimConfig) { c.Tumor.MaxSteps = 0 }, "tumor.max_steps"},
		{"zero trials", func(c *SimConfig) { c.Tumor.Trials = 0 }, "tumor.trials"},
		{"small period", func(c *SimConfig) { lattice(c); c.Lattice.Period = 2 }, "lattice.period"},
		{"bad neighborhood", func(c *SimConfig) { c.Lattice.Neighborhood = "HEX" }, "lattice.neighborhood"},
		{"non-positive capacity", func(c *SimConfig) { lattice(c); c.Capacity.Value = 0 }, "capacity.value"},
		{"point with uniform", func(c *SimConfig) { c.Capacity.Type = "UNIFORM"; c.Capacity.Value = 10 }, "capacity.type"},
		{"single with lineage", func(c *SimConfig) { lattice(c); c.Capacity.Type = "SINGLE" }, "capacity.type"},
		{"founder over capacity", func(c *SimConfig) { lattice(c); c.Tumor.FounderSize = 101 }, "tumor.founder_size"},
		{"birth rate over one", func(c *SimConfig) { c.Growth.BirthRate = 1.2 }, "growth.birth_rate"},
		{"negative death rate", func(c *SimConfig) { c.Growth.DeathRate = -0.1 }, "growth.death_rate"},
		{"bad growth model", func(c *SimConfig) { c.Growth.Model = "LOGISTIC" }, "growth.model"},
		{"division threshold", func(c *SimConfig) { lattice(c); c.Division.Type = "THRESHOLD"; c.Division.Threshold = 1.5 }, "division.threshold"},
		{"division min size", func(c *SimConfig) { lattice(c); c.Division.Type = "THRESHOLD"; c.Division.MinSize = 1 }, "division.min_size"},
		{"division on point", func(c *SimConfig) { c.Division.Type = "THRESHOLD" }, "division.type"},
		{"bad migration", func(c *SimConfig) { c.Migration.Type = "RANDOM_WALK" }, "migration.type"},
		{"senescence threshold", func(c *SimConfig) { c.Senescence.Type = "NEIGHBORHOOD_OCCUPANCY_FRACTION"; c.Senescence.Threshold = -1 }, "senescence.threshold"},
		{"bad generator", func(c *SimConfig) { c.Mutation.Generator = "SYSTEM" }, "mutation.generator"},
		{"negative scalar stddev", func(c *SimConfig) { c.Mutation.ScalarStdDev = -1 }, "mutation.scalar_stddev"},
		{"NaN birth rate", func(c *SimConfig) { c.Growth.BirthRate = math.NaN() }, "growth.birth_rate"},
		{"infinite death rate", func(c *SimConfig) { c.Growth.DeathRate = math.Inf(1) }, "growth.death_rate"},
		{"NaN division threshold", func(c *SimConfig) { lattice(c); c.Division.Type = "THRESHOLD"; c.Division.Threshold = math.NaN() }, "division.threshold"},
		{"NaN senescence threshold", func(c *SimConfig) { c.Senescence.Type = "NEIGHBORHOOD_OCCUPANCY_FRACTION"; c.Senescence.Threshold = math.NaN() }, "senescence.threshold"},
		{"negative neutral rate", func(c *SimConfig) { c.Mutation.NeutralRate = -0.1 }, "mutation.neutral_rate"},
		{"NaN selective rate", func(c *SimConfig) { c.Mutation.SelectiveRate = math.NaN() }, "mutation.selective_rate"},
		{"infinite neoantigen rate", func(c *SimConfig) { c.Mutation.NeoantigenRate = math.Inf(1) }, "mutation.neoantigen_rate"},
		{"negative scalar rate", func(c *SimConfig) { c.Mutation.ScalarRate = -1 }, "mutation.scalar_rate"},
		{"NaN selection coefficient", func(c *SimConfig) { c.Mutation.SelectionCoeff = math.NaN() }, "mutation.selection_coeff"},
		{"infinite scalar mean", func(c *SimConfig) { c.Mutation.ScalarMean = math.Inf(-1) }, "mutation.scalar_mean"},
		{"bad log level", func(c *SimConfig) { c.Logging.Level = "warn" }, "logging.level"},
		{"empty output dir", func(c *SimConfig) { c.Output.Dir = "" }, "output.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Property != tt.property {
				t.Errorf("property = %q, want %q (%v)", ve.Property, tt.property, err)
			}
			if !IsValidationError(err) {
				t.Error("IsValidationError = false")
			}
		})
	}
}

func TestValidate_NonFiniteProperties(t *testing.T) {
	tests := []struct {
		key, value string
		extra      map[string]string
	}{
		{"growth.birth_rate", "NaN", nil},
		{"growth.death_rate", "NaN", nil},
		{"growth.birth_rate", "+Inf", nil},
		{"division.threshold", "NaN", map[string]string{
			"tumor.component_type": "DEME", "tumor.spatial_type": "LATTICE",
			"capacity.type": "UNIFORM", "capacity.value": "100", "division.type": "THRESHOLD",
		}},
		{"senescence.threshold", "NaN", map[string]string{"senescence.type": "NEIGHBORHOOD_OCCUPANCY_FRACTION"}},
		{"mutation.neutral_rate", "-0.1", nil},
		{"mutation.scalar_stddev", "Inf", nil},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			props := map[string]string{tt.key: tt.value}
			for k, v := range tt.extra {
				props[k] = v
			}
			c, err := FromProperties(props)
			if err != nil {
				t.Fatalf("FromProperties: %v", err)
			}
			err = c.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if ve.Property != tt.key {
				t.Errorf("property = %q, want %q", ve.Property, tt.key)
			}
			if _, ok := ve.Value.(float64); !ok {
				t.Errorf("value = %#v, want the scalar float", ve.Value)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	c := Default()
	c.Tumor.ComponentType = "deme"
	c.Tumor.SpatialType = "lattice"
	c.Capacity.Type = "uniform"
	c.Capacity.Value = 50
	c.Division.Type = "threshold"
	c.Mutation.Generator = "global"
	c.Mutation.SelectiveRate = 0.01
	c.Mutation.SelectionCoeff = 0.2

	r, err := c.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if r.Kind.String() != "DEME" || r.Space.String() != "LATTICE" || r.Division.String() != "THRESHOLD" {
		t.Errorf("resolved = %+v", r)
	}
	if r.Rates.Selective != 0.01 || r.Rates.SelectionCoeff != 0.2 {
		t.Errorf("rates = %+v", r.Rates)
	}
}

func TestMarshal(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatal(err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("re-parsing marshaled config: %v", err)
	}
	if *back != *Default() {
		t.Errorf("marshal round trip changed config")
	}
}
