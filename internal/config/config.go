// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Run modes understood by the environment engine. Unknown modes behave
// like ModeNormal.
const (
	ModeNormal = "normal"
	ModeChaos  = "chaos"
)

// Defaults for optional fields.
const (
	DefaultDescription         = "A generic simulated world."
	DefaultIterations          = 1000
	DefaultNumSentients        = 10
	DefaultNumNonSentients     = 10
	DefaultMaxPopulationSize   = 100
	DefaultGodEventProbability = 0.1
	DefaultSpawnRate           = 0.1
	DefaultTemperature         = 0.5
)

// SimulationConfig is the root configuration for one simulation run.
// Defaults are resolved once at load time; the controller treats the
// struct as immutable afterwards.
type SimulationConfig struct {
	Name                string           `yaml:"name" json:"name"`
	Description         string           `yaml:"description" json:"description"`
	Iterations          int              `yaml:"iterations" json:"iterations"`
	NumSentients        int              `yaml:"num_sentients" json:"num_sentients"`
	NumNonSentients     int              `yaml:"num_non_sentients" json:"num_non_sentients"`
	MaxPopulationSize   int              `yaml:"max_population_size" json:"max_population_size"`
	GodEventProbability float64          `yaml:"god_event_probability" json:"god_event_probability"`
	SpawnRate           float64          `yaml:"spawn_rate" json:"spawn_rate"`
	Temperature         float64          `yaml:"temperature" json:"temperature"`
	Mode                string           `yaml:"mode" json:"mode"`
	Verbose             bool             `yaml:"verbose" json:"verbose"`
	Data                []map[string]any `yaml:"data,omitempty" json:"data,omitempty"`
	Environment         map[string]any   `yaml:"environment" json:"environment"`
}

// Default returns a SimulationConfig with every optional field at its
// documented default. Name and Environment have no defaults; they are
// required and checked by Validate.
func Default() SimulationConfig {
	return SimulationConfig{
		Description:         DefaultDescription,
		Iterations:          DefaultIterations,
		NumSentients:        DefaultNumSentients,
		NumNonSentients:     DefaultNumNonSentients,
		MaxPopulationSize:   DefaultMaxPopulationSize,
		GodEventProbability: DefaultGodEventProbability,
		SpawnRate:           DefaultSpawnRate,
		Temperature:         DefaultTemperature,
		Mode:                ModeNormal,
	}
}

// UnmarshalYAML decodes over a default-filled value, so keys absent
// from the document keep their defaults while explicit values,
// including zeros, win.
func (c *SimulationConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain SimulationConfig
	out := plain(Default())
	if err := value.Decode(&out); err != nil {
		return err
	}
	*c = SimulationConfig(out)
	return nil
}

// ApplyDefaults fills zero-valued optional fields on a programmatically
// built config. Required fields are left untouched.
func (c *SimulationConfig) ApplyDefaults() {
	d := Default()
	if c.Description == "" {
		c.Description = d.Description
	}
	if c.Iterations == 0 {
		c.Iterations = d.Iterations
	}
	if c.NumSentients == 0 {
		c.NumSentients = d.NumSentients
	}
	if c.NumNonSentients == 0 {
		c.NumNonSentients = d.NumNonSentients
	}
	if c.MaxPopulationSize == 0 {
		c.MaxPopulationSize = d.MaxPopulationSize
	}
	if c.GodEventProbability == 0 {
		c.GodEventProbability = d.GodEventProbability
	}
	if c.SpawnRate == 0 {
		c.SpawnRate = d.SpawnRate
	}
	if c.Temperature == 0 {
		c.Temperature = d.Temperature
	}
	if c.Mode == "" {
		c.Mode = d.Mode
	}
}

// Validate checks required fields and value ranges.
func (c *SimulationConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("config: name is required")
	}
	if len(c.Environment) == 0 {
		return fmt.Errorf("config: environment is required")
	}
	if c.Iterations < 0 {
		return fmt.Errorf("config: iterations must not be negative, got %d", c.Iterations)
	}
	if c.NumSentients < 0 || c.NumNonSentients < 0 {
		return fmt.Errorf("config: population counts must not be negative")
	}
	if c.MaxPopulationSize < 1 {
		return fmt.Errorf("config: max_population_size must be at least 1, got %d", c.MaxPopulationSize)
	}
	for field, v := range map[string]float64{
		"god_event_probability": c.GodEventProbability,
		"spawn_rate":            c.SpawnRate,
		"temperature":           c.Temperature,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("config: %s must be within [0,1], got %g", field, v)
		}
	}
	return nil
}

// Load loads YAML config, validates it against a CUE schema, and
// resolves defaults.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
