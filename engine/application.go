package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
	"github.com/spaghettifunk/nbody/engine/simulation"
)

// Duration reads "90s" or "2m" style values from configuration files.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type AttractorConfig struct {
	Radius float32 `toml:"radius" yaml:"radius"`
	Speed  float32 `toml:"speed" yaml:"speed"`
}

type SimulationConfig struct {
	ParticleCount    uint32                 `toml:"particles" yaml:"particles"`
	Mode             metadata.BufferingMode `toml:"mode" yaml:"mode"`
	Duration         Duration               `toml:"duration" yaml:"duration"`
	AcquireTimeout   Duration               `toml:"acquire_timeout" yaml:"acquire_timeout"`
	ThrottlePresent  bool                   `toml:"throttle_present" yaml:"throttle_present"`
	RecordEveryFrame bool                   `toml:"record_every_frame" yaml:"record_every_frame"`
	Seed             uint64                 `toml:"seed" yaml:"seed"`
	Attractor        AttractorConfig        `toml:"attractor" yaml:"attractor"`
}

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"x" yaml:"x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"y" yaml:"y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"width" yaml:"width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"height" yaml:"height"`
	// The application name used in windowing, if applicable.
	Name     string `toml:"name" yaml:"name"`
	LogLevel string `toml:"log_level" yaml:"log_level"`

	// Vendor is the preferred GPU vendor, "amd" or "nvidia".
	Vendor     string     `toml:"vendor" yaml:"vendor"`
	Validation bool       `toml:"validation" yaml:"validation"`
	Timestamps bool       `toml:"timestamps" yaml:"timestamps"`
	ClearColor [4]float32 `toml:"clear_color" yaml:"clear_color"`
	ShaderDir  string     `toml:"shaders" yaml:"shaders"`
	// ReportDir receives the CSV report and the metrics dump of each run. Empty disables reports.
	ReportDir string `toml:"reports" yaml:"reports"`

	Simulation SimulationConfig `toml:"simulation" yaml:"simulation"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	sim := simulation.DefaultConfig()
	return &ApplicationConfig{
		StartPosX:   100,
		StartPosY:   100,
		StartWidth:  1280,
		StartHeight: 720,
		Name:        "N-Body",
		LogLevel:    "info",
		Timestamps:  true,
		ClearColor:  [4]float32{0, 0, 0, 1},
		ShaderDir:   "assets/shaders",
		Simulation: SimulationConfig{
			ParticleCount:    sim.ParticleCount,
			Mode:             sim.Mode,
			Duration:         Duration(sim.Duration),
			AcquireTimeout:   Duration(sim.AcquireTimeout),
			ThrottlePresent:  sim.ThrottlePresent,
			RecordEveryFrame: sim.RecordEveryFrame,
			Seed:             sim.Seed,
			Attractor: AttractorConfig{
				Radius: sim.Attractor.Radius,
				Speed:  sim.Attractor.Speed,
			},
		},
	}
}

// LoadApplicationConfig reads a TOML or YAML file on top of the defaults.
// Unknown keys are rejected.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultApplicationConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, fmt.Errorf("failed to parse config file %s: %s", path, strict.String())
			}
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (expected .toml, .yaml or .yml)", ext)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.StartWidth, c.StartHeight)
	}
	if c.ShaderDir == "" {
		return fmt.Errorf("shader directory must be set")
	}
	return c.SimulationConfig().Validate()
}

// SimulationConfig converts the file level settings to the simulation value object.
func (c *ApplicationConfig) SimulationConfig() simulation.Config {
	s := c.Simulation
	return simulation.Config{
		ParticleCount:    s.ParticleCount,
		Mode:             s.Mode,
		Duration:         time.Duration(s.Duration),
		AcquireTimeout:   time.Duration(s.AcquireTimeout),
		ThrottlePresent:  s.ThrottlePresent,
		RecordEveryFrame: s.RecordEveryFrame,
		Seed:             s.Seed,
		Attractor: simulation.AttractorConfig{
			Radius: s.Attractor.Radius,
			Speed:  s.Attractor.Speed,
		},
	}
}
