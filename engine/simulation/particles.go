package simulation

import (
	"time"

	"github.com/spaghettifunk/nbody/engine/math"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// InitialParticles scatters count particles in the unit disc, at rest. The
// same seed always yields the same field.
func InitialParticles(count uint32, seed uint64) []metadata.Particle {
	rng := math.NewRandom(seed)
	particles := make([]metadata.Particle, count)
	for i := range particles {
		radius := rng.Float()
		angle := rng.FloatInRange(0, math.K_PI_2)
		pos := math.NewVec2Polar(radius, angle)
		particles[i] = metadata.Particle{
			Position: math.NewVec4(pos.X, pos.Y, 0, 1),
			Velocity: math.NewVec4Zero(),
		}
	}
	return particles
}

// AttractorPosition is where the attractor sits after elapsed time.
func AttractorPosition(cfg AttractorConfig, elapsed time.Duration) math.Vec2 {
	angle := cfg.Speed * float32(elapsed.Seconds())
	return math.NewVec2Polar(cfg.Radius, angle)
}
