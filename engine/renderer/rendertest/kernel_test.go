package rendertest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	nmath "github.com/spaghettifunk/nbody/engine/math"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

func TestAttractorKernel_PullsTowardsTarget(t *testing.T) {
	particles := []metadata.Particle{
		{Position: nmath.NewVec4(0.5, 0, 0, 1), Velocity: nmath.NewVec4(0, 0, 0, 3)},
	}
	u := metadata.ComputeUniforms{DeltaT: 0.01, ParticleCount: 1}

	// in place, source and destination alias
	AttractorKernel(particles, particles, u)

	p := particles[0]
	assert.Less(t, p.Velocity.X, float32(0))
	assert.Equal(t, float32(0), p.Velocity.Y)
	assert.InDelta(t, 0.5, p.Velocity.Z, 1e-6)
	assert.Equal(t, float32(3), p.Velocity.W)
	assert.Equal(t, float32(1), p.Position.W)
	assert.InDelta(t, 0.5, p.Position.X, 1e-4)
}

func TestAttractorKernel_BouncesAtClipSpace(t *testing.T) {
	src := []metadata.Particle{
		{Position: nmath.NewVec4(0.99, 0, 0, 1), Velocity: nmath.NewVec4(5, 0, 0, 0)},
	}
	dst := make([]metadata.Particle, 1)

	AttractorKernel(dst, src, metadata.ComputeUniforms{DeltaT: 0.01, ParticleCount: 1})

	assert.Equal(t, float32(0.99), dst[0].Position.X)
	assert.Less(t, dst[0].Velocity.X, float32(0))
	// source untouched
	assert.Equal(t, float32(5), src[0].Velocity.X)
}

func TestAttractorKernel_ParticleOnTargetStaysFinite(t *testing.T) {
	src := []metadata.Particle{
		{Position: nmath.NewVec4(0.25, 0.25, 0, 1)},
		{Position: nmath.NewVec4(0.5, 0.5, 0, 1)},
	}
	dst := make([]metadata.Particle, 2)

	AttractorKernel(dst, src, metadata.ComputeUniforms{DeltaT: 0.01, DestX: 0.25, DestY: 0.25, ParticleCount: 1})

	assert.Equal(t, src[0].Position, dst[0].Position)
	assert.Equal(t, nmath.NewVec4Zero(), dst[0].Velocity)
	// beyond ParticleCount
	assert.Equal(t, metadata.Particle{}, dst[1])
}
