package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadApplicationConfig_TOML(t *testing.T) {
	path := writeConfig(t, "nbody.toml", `
name = "bench"
vendor = "nvidia"
width = 800
height = 600
reports = "out"

[simulation]
particles = 65536
mode = "double"
duration = "2m"
acquire_timeout = "250ms"
throttle_present = false

[simulation.attractor]
radius = 0.25
`)

	cfg, err := LoadApplicationConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "bench", cfg.Name)
	assert.Equal(t, "nvidia", cfg.Vendor)
	assert.Equal(t, uint32(800), cfg.StartWidth)
	assert.Equal(t, "out", cfg.ReportDir)

	sim := cfg.SimulationConfig()
	assert.Equal(t, uint32(65536), sim.ParticleCount)
	assert.Equal(t, metadata.BUFFERING_MODE_ASYNC_DOUBLE_BUFFER, sim.Mode)
	assert.Equal(t, 2*time.Minute, sim.Duration)
	assert.Equal(t, 250*time.Millisecond, sim.AcquireTimeout)
	assert.False(t, sim.ThrottlePresent)
	assert.Equal(t, float32(0.25), sim.Attractor.Radius)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultApplicationConfig().Simulation.Attractor.Speed, sim.Attractor.Speed)
	assert.Equal(t, "assets/shaders", cfg.ShaderDir)
}

func TestLoadApplicationConfig_YAML(t *testing.T) {
	path := writeConfig(t, "nbody.yaml", `
name: bench
clear_color: [0.1, 0.1, 0.2, 1]
simulation:
  particles: 4096
  mode: transfer
  record_every_frame: true
  seed: 42
`)

	cfg, err := LoadApplicationConfig(path)
	require.NoError(t, err)

	assert.Equal(t, [4]float32{0.1, 0.1, 0.2, 1}, cfg.ClearColor)
	sim := cfg.SimulationConfig()
	assert.Equal(t, metadata.BUFFERING_MODE_ASYNC_TRANSFER, sim.Mode)
	assert.True(t, sim.RecordEveryFrame)
	assert.True(t, sim.ThrottlePresent)
	assert.Equal(t, uint64(42), sim.Seed)
}

func TestLoadApplicationConfig_Rejects(t *testing.T) {
	cases := map[string]struct {
		name    string
		content string
	}{
		"unknown toml key": {"a.toml", "particles = 10\n"},
		"unknown yaml key": {"a.yaml", "simulation:\n  particle_count: 10\n"},
		"bad mode":         {"a.toml", "[simulation]\nmode = \"triple\"\n"},
		"bad duration":     {"a.yaml", "simulation:\n  duration: soon\n"},
		"zero particles":   {"a.toml", "[simulation]\nparticles = 0\n"},
		"zero width":       {"a.yaml", "width: 0\n"},
		"unknown format":   {"a.json", "{}"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadApplicationConfig(writeConfig(t, c.name, c.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte(" 90s ")))
	assert.Equal(t, Duration(90*time.Second), d)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("5 minutes")))
}

func TestDefaultApplicationConfigIsValid(t *testing.T) {
	cfg := DefaultApplicationConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.SimulationConfig().ThrottlePresent)
	assert.Equal(t, metadata.BUFFERING_MODE_SYNC, cfg.SimulationConfig().Mode)
}
