package simulation

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// WorkgroupSize is the local size of the compute shader.
const WorkgroupSize = 256

type AttractorConfig struct {
	// Radius of the circle the attractor orbits on.
	Radius float32
	// Speed in radians per second.
	Speed float32
}

// Config is the value object handed to the core by the outer layers.
type Config struct {
	ParticleCount uint32
	Mode          metadata.BufferingMode
	// Duration tells the outer loop when to stop calling Frame. Zero runs until closed.
	Duration       time.Duration
	AcquireTimeout time.Duration
	// ThrottlePresent blocks the host until the present queue is idle before
	// the compute dispatch of the same frame.
	ThrottlePresent bool
	// RecordEveryFrame re-records the job command batch on each dispatch
	// instead of reusing the batch recorded the first time.
	RecordEveryFrame bool
	Attractor        AttractorConfig
	Seed             uint64
}

func DefaultConfig() Config {
	return Config{
		ParticleCount:   8192,
		Mode:            metadata.BUFFERING_MODE_SYNC,
		AcquireTimeout:  time.Second,
		ThrottlePresent: true,
		Attractor: AttractorConfig{
			Radius: 0.5,
			Speed:  0.8,
		},
		Seed: 1,
	}
}

func (c Config) Validate() error {
	if c.ParticleCount == 0 {
		return fmt.Errorf("particle count must be greater than zero")
	}
	if _, err := c.Mode.MarshalText(); err != nil {
		return err
	}
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("acquire timeout must be positive, got %s", c.AcquireTimeout)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must not be negative, got %s", c.Duration)
	}
	return nil
}

// GroupCount is the number of workgroups covering every particle once.
func GroupCount(particles uint32) uint32 {
	return (particles + WorkgroupSize - 1) / WorkgroupSize
}
