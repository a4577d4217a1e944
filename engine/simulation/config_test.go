package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/math"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cases := map[string]func(*Config){
		"no particles":      func(c *Config) { c.ParticleCount = 0 },
		"unknown mode":      func(c *Config) { c.Mode = metadata.BufferingMode(9) },
		"zero timeout":      func(c *Config) { c.AcquireTimeout = 0 },
		"negative duration": func(c *Config) { c.Duration = -time.Second },
	}
	for name, tweak := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			tweak(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGroupCount(t *testing.T) {
	assert.Equal(t, uint32(1), GroupCount(1))
	assert.Equal(t, uint32(4), GroupCount(1000))
	assert.Equal(t, uint32(4), GroupCount(1024))
	assert.Equal(t, uint32(5), GroupCount(1025))
}

func TestInitialParticles(t *testing.T) {
	a := InitialParticles(500, 7)
	b := InitialParticles(500, 7)
	c := InitialParticles(500, 8)

	assert.Len(t, a, 500)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, p := range a {
		assert.LessOrEqual(t, p.Position.XY().Length(), float32(1.0001))
		assert.Equal(t, float32(1), p.Position.W)
		assert.Equal(t, math.NewVec4Zero(), p.Velocity)
	}
}

func TestAttractorPosition(t *testing.T) {
	cfg := AttractorConfig{Radius: 0.5, Speed: 1}
	start := AttractorPosition(cfg, 0)
	assert.InDelta(t, 0.5, start.X, 1e-6)
	assert.InDelta(t, 0, start.Y, 1e-6)

	quarterTurn := float64(time.Second) * float64(math.K_PI) / 2
	quarter := AttractorPosition(cfg, time.Duration(quarterTurn))
	assert.InDelta(t, 0, quarter.X, 1e-4)
	assert.InDelta(t, 0.5, quarter.Y, 1e-4)
}

func TestOwnershipLedger(t *testing.T) {
	l := NewOwnershipLedger()
	assert.Equal(t, WINDOW_NONE, l.Last(1))

	assert.NoError(t, l.Open(1, WINDOW_READ))
	assert.NoError(t, l.Open(1, WINDOW_WRITE))
	assert.NoError(t, l.Open(2, WINDOW_WRITE))
	assert.NoError(t, l.Open(1, WINDOW_READ))

	assert.ErrorIs(t, l.Open(1, WINDOW_READ), core.ErrOwnershipViolation)
	assert.ErrorIs(t, l.Open(2, WINDOW_WRITE), core.ErrOwnershipViolation)
	assert.Equal(t, uint64(3), l.Windows(1))
	assert.Equal(t, uint64(1), l.Windows(2))
	assert.Equal(t, WINDOW_READ, l.Last(1))
}
