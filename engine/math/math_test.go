package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandom_SameSeedSameSequence(t *testing.T) {
	a := NewRandom(42)
	b := NewRandom(42)
	for i := 0; i < 16; i++ {
		assert.Equal(t, a.Float(), b.Float())
	}
	v := NewRandom(7).FloatInRange(-1, 1)
	assert.GreaterOrEqual(t, v, float32(-1))
	assert.Less(t, v, float32(1))
}

func TestVec2_Polar(t *testing.T) {
	p := NewVec2Polar(2, K_PI/2)
	assert.InDelta(t, 0.0, p.X, 1e-5)
	assert.InDelta(t, 2.0, p.Y, 1e-5)
	assert.InDelta(t, 2.0, p.Length(), 1e-5)
}

func TestVec2_Arithmetic(t *testing.T) {
	a := NewVec2(1, 2)
	b := NewVec2(3, 5)
	assert.Equal(t, NewVec2(4, 7), a.Add(b))
	assert.Equal(t, NewVec2(2, 3), b.Sub(a))
	assert.Equal(t, NewVec2(0.5, 1), a.Scale(0.5))
	assert.Equal(t, float32(25), NewVec2(3, 4).LengthSquared())
	assert.Equal(t, NewVec2(3, 5), NewVec4(3, 5, 7, 9).XY())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 3, Clamp(5, 1, 3))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
	assert.Equal(t, uint32(2), Clamp(uint32(1), 2, 4))
}
