package config

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// property binds one flat key to a SimConfig field.
type property struct {
	get func(c *SimConfig) string
	set func(c *SimConfig, v string) error
}

func stringProp(field func(c *SimConfig) *string) property {
	return property{
		get: func(c *SimConfig) string { return *field(c) },
		set: func(c *SimConfig, v string) error { *field(c) = v; return nil },
	}
}

func intProp(field func(c *SimConfig) *int) property {
	return property{
		get: func(c *SimConfig) string { return strconv.Itoa(*field(c)) },
		set: func(c *SimConfig, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("not an integer")
			}
			*field(c) = n
			return nil
		},
	}
}

func int64Prop(field func(c *SimConfig) *int64) property {
	return property{
		get: func(c *SimConfig) string { return strconv.FormatInt(*field(c), 10) },
		set: func(c *SimConfig, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("not an integer")
			}
			*field(c) = n
			return nil
		},
	}
}

func floatProp(field func(c *SimConfig) *float64) property {
	return property{
		get: func(c *SimConfig) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *SimConfig, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("not a number")
			}
			*field(c) = f
			return nil
		},
	}
}

var properties = map[string]property{
	"tumor.component_type":   stringProp(func(c *SimConfig) *string { return &c.Tumor.ComponentType }),
	"tumor.spatial_type":     stringProp(func(c *SimConfig) *string { return &c.Tumor.SpatialType }),
	"tumor.founder_size":     int64Prop(func(c *SimConfig) *int64 { return &c.Tumor.FounderSize }),
	"tumor.max_steps":        intProp(func(c *SimConfig) *int { return &c.Tumor.MaxSteps }),
	"tumor.max_size":         int64Prop(func(c *SimConfig) *int64 { return &c.Tumor.MaxSize }),
	"tumor.trials":           intProp(func(c *SimConfig) *int { return &c.Tumor.Trials }),
	"tumor.release_interval": intProp(func(c *SimConfig) *int { return &c.Tumor.ReleaseInterval }),

	"lattice.period":       intProp(func(c *SimConfig) *int { return &c.Lattice.Period }),
	"lattice.neighborhood": stringProp(func(c *SimConfig) *string { return &c.Lattice.Neighborhood }),

	"capacity.type":  stringProp(func(c *SimConfig) *string { return &c.Capacity.Type }),
	"capacity.value": int64Prop(func(c *SimConfig) *int64 { return &c.Capacity.Value }),

	"growth.model":      stringProp(func(c *SimConfig) *string { return &c.Growth.Model }),
	"growth.birth_rate": floatProp(func(c *SimConfig) *float64 { return &c.Growth.BirthRate }),
	"growth.death_rate": floatProp(func(c *SimConfig) *float64 { return &c.Growth.DeathRate }),

	"division.type":      stringProp(func(c *SimConfig) *string { return &c.Division.Type }),
	"division.threshold": floatProp(func(c *SimConfig) *float64 { return &c.Division.Threshold }),
	"division.min_size":  int64Prop(func(c *SimConfig) *int64 { return &c.Division.MinSize }),

	"migration.type": stringProp(func(c *SimConfig) *string { return &c.Migration.Type }),

	"senescence.type":         stringProp(func(c *SimConfig) *string { return &c.Senescence.Type }),
	"senescence.neighborhood": stringProp(func(c *SimConfig) *string { return &c.Senescence.Neighborhood }),
	"senescence.threshold":    floatProp(func(c *SimConfig) *float64 { return &c.Senescence.Threshold }),

	"mutation.generator":       stringProp(func(c *SimConfig) *string { return &c.Mutation.Generator }),
	"mutation.neutral_rate":    floatProp(func(c *SimConfig) *float64 { return &c.Mutation.NeutralRate }),
	"mutation.selective_rate":  floatProp(func(c *SimConfig) *float64 { return &c.Mutation.SelectiveRate }),
	"mutation.selection_coeff": floatProp(func(c *SimConfig) *float64 { return &c.Mutation.SelectionCoeff }),
	"mutation.neoantigen_rate": floatProp(func(c *SimConfig) *float64 { return &c.Mutation.NeoantigenRate }),
	"mutation.scalar_rate":     floatProp(func(c *SimConfig) *float64 { return &c.Mutation.ScalarRate }),
	"mutation.scalar_mean":     floatProp(func(c *SimConfig) *float64 { return &c.Mutation.ScalarMean }),
	"mutation.scalar_stddev":   floatProp(func(c *SimConfig) *float64 { return &c.Mutation.ScalarStdDev }),

	"random.seed": {
		get: func(c *SimConfig) string { return strconv.FormatUint(c.Random.Seed, 10) },
		set: func(c *SimConfig, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("not an unsigned integer")
			}
			c.Random.Seed = n
			return nil
		},
	},

	"logging.level": stringProp(func(c *SimConfig) *string { return &c.Logging.Level }),

	"output.dir": stringProp(func(c *SimConfig) *string { return &c.Output.Dir }),
	"output.gzip": {
		get: func(c *SimConfig) string { return strconv.FormatBool(c.Output.Gzip) },
		set: func(c *SimConfig, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("not a boolean")
			}
			c.Output.Gzip = b
			return nil
		},
	},
	"output.store_dsn":  stringProp(func(c *SimConfig) *string { return &c.Output.StoreDSN }),
	"output.upload_url": stringProp(func(c *SimConfig) *string { return &c.Output.UploadURL }),
}

// Keys lists every recognized flat property key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// FromProperties applies flat key/value pairs over the defaults. Unknown
// keys and unparseable values are a *ValidationError.
func FromProperties(props map[string]string) (*SimConfig, error) {
	c := Default()
	if err := c.Set(props); err != nil {
		return nil, err
	}
	return c, nil
}

// Set applies flat key/value pairs to c in key order.
func (c *SimConfig) Set(props map[string]string) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		p, ok := properties[k]
		if !ok {
			return &ValidationError{Property: k, Value: props[k], Reason: "unknown property"}
		}
		v := strings.TrimSpace(props[k])
		if err := p.set(c, v); err != nil {
			return &ValidationError{Property: k, Value: v, Reason: err.Error()}
		}
	}
	return nil
}

// Properties renders c as flat key/value pairs.
func (c *SimConfig) Properties() map[string]string {
	out := make(map[string]string, len(properties))
	for k, p := range properties {
		out[k] = p.get(c)
	}
	return out
}

// LoadProperties reads a key=value file. Blank lines and lines starting
// with # or ! are ignored.
func LoadProperties(path string) (*SimConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading properties file: %w", err)
	}
	defer f.Close()

	props := make(map[string]string)
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "!") {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return nil, fmt.Errorf("%s:%d: expected key=value", path, line)
		}
		props[strings.TrimSpace(key)] = value
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading properties file: %w", err)
	}
	return FromProperties(props)
}
