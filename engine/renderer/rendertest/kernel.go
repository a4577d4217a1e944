package rendertest

import (
	m "math"

	nmath "github.com/spaghettifunk/nbody/engine/math"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// Kernel is the CPU stand-in for the compute shader. src and dst may alias.
type Kernel func(dst, src []metadata.Particle, u metadata.ComputeUniforms)

const (
	attractionDamping  = 0.5
	attractionStrength = 0.0035
	attractionBoost    = 12
	repulsionStrength  = -0.000035
	repulsionScale     = 0.05
	bounceDamping      = 0.1
)

func attraction(pos, target nmath.Vec2) nmath.Vec2 {
	delta := target.Sub(pos)
	invDist := float32(1 / m.Sqrt(float64(delta.LengthSquared()+attractionDamping)))
	return delta.Scale(invDist * invDist * invDist * attractionStrength)
}

func repulsion(pos, target nmath.Vec2) nmath.Vec2 {
	delta := target.Sub(pos)
	dist := delta.Length()
	if dist == 0 {
		// the shader yields NaN here
		return nmath.Vec2{}
	}
	return delta.Scale(1 / (dist * dist * dist) * repulsionStrength)
}

// AttractorKernel is the update of assets/shaders/particle.comp: a weak
// repulsion from (DestX, DestY), a strong attraction towards it and a bounce
// back into clip space.
func AttractorKernel(dst, src []metadata.Particle, u metadata.ComputeUniforms) {
	n := int(u.ParticleCount)
	if n > len(src) {
		n = len(src)
	}
	if n > len(dst) {
		n = len(dst)
	}
	target := nmath.NewVec2(u.DestX, u.DestY)
	for i := 0; i < n; i++ {
		in := src[i]
		pos := in.Position.XY()
		vel := in.Velocity.XY()

		distance := target.Sub(pos).Length()
		vel = vel.Add(repulsion(pos, target).Scale(repulsionScale))
		pos = pos.Add(vel.Scale(u.DeltaT))

		if pos.X < -1 || pos.X > 1 || pos.Y < -1 || pos.Y > 1 {
			vel = vel.Scale(-bounceDamping).Add(attraction(pos, target).Scale(attractionBoost))
			pos = in.Position.XY()
		} else {
			vel = vel.Add(attraction(pos, target).Scale(attractionBoost))
		}

		dst[i] = metadata.Particle{
			Position: nmath.NewVec4(pos.X, pos.Y, in.Position.Z, in.Position.W),
			Velocity: nmath.NewVec4(vel.X, vel.Y, distance, in.Velocity.W),
		}
	}
}
