package metadata

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/nbody/engine/math"
)

/** @brief How the compute stage hands particle state over to the graphics stage. */
type BufferingMode uint8

const (
	/** @brief One job, one fence, one binding table. Every frame serializes on a single fence. */
	BUFFERING_MODE_SYNC BufferingMode = iota
	/** @brief Compute writes a scratch buffer that is copied into the buffer graphics reads. */
	BUFFERING_MODE_ASYNC_TRANSFER
	/** @brief Two jobs and two binding tables used round robin over ping-pong buffers. */
	BUFFERING_MODE_ASYNC_DOUBLE_BUFFER
)

var bufferingModeNames = map[BufferingMode]string{
	BUFFERING_MODE_SYNC:                "sync",
	BUFFERING_MODE_ASYNC_TRANSFER:      "transfer",
	BUFFERING_MODE_ASYNC_DOUBLE_BUFFER: "double",
}

func (m BufferingMode) String() string {
	if name, ok := bufferingModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("BufferingMode(%d)", uint8(m))
}

// ParseBufferingMode accepts the mode names used on the command line. The
// legacy name "compute" is an alias of "sync".
func ParseBufferingMode(s string) (BufferingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sync", "compute":
		return BUFFERING_MODE_SYNC, nil
	case "transfer", "async-transfer":
		return BUFFERING_MODE_ASYNC_TRANSFER, nil
	case "double", "async-double", "double-buffer":
		return BUFFERING_MODE_ASYNC_DOUBLE_BUFFER, nil
	}
	return BUFFERING_MODE_SYNC, fmt.Errorf("unknown buffering mode %q (expected sync, transfer or double)", s)
}

func (m BufferingMode) MarshalText() ([]byte, error) {
	if _, ok := bufferingModeNames[m]; !ok {
		return nil, fmt.Errorf("unknown buffering mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *BufferingMode) UnmarshalText(text []byte) error {
	mode, err := ParseBufferingMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// JobCount is the number of compute jobs kept resident by the mode.
func (m BufferingMode) JobCount() int {
	if m == BUFFERING_MODE_ASYNC_DOUBLE_BUFFER {
		return 2
	}
	return 1
}

/** @brief Indices into the device queue families. Immutable once the device exists. */
type QueueFamilyIndices struct {
	Graphics uint32
	Present  uint32
	Compute  uint32
}

// ComputeSharesGraphics reports whether compute runs on the graphics family.
func (q QueueFamilyIndices) ComputeSharesGraphics() bool {
	return q.Graphics == q.Compute
}

/** @brief Per job uniform block, laid out like the std140 block of the compute shader. */
type ComputeUniforms struct {
	DeltaT        float32
	DestX         float32
	DestY         float32
	ParticleCount uint32
}

// ComputeUniformsSize is the size in bytes of ComputeUniforms on the device.
const ComputeUniformsSize = 16

/** @brief A single simulated particle, two vec4 in the storage buffer. */
type Particle struct {
	Position math.Vec4
	Velocity math.Vec4
}

// ParticleSize is the size in bytes of a Particle on the device.
const ParticleSize = 32

type BufferHandle uint32

type BindingTableHandle uint32

type PipelineHandle uint32

type SharingMode uint8

const (
	SHARING_MODE_EXCLUSIVE SharingMode = iota
	SHARING_MODE_CONCURRENT
)

// SCRATCH_BUFFER_SLOT addresses the compute-private scratch buffer in a TableLayout.
const SCRATCH_BUFFER_SLOT = -1

/**
 * @brief Which buffers a binding table binds, expressed as slots into the
 * particle buffers of the run (or SCRATCH_BUFFER_SLOT).
 */
type TableLayout struct {
	Source      int
	Destination int
}

/** @brief A binding table resolved to concrete buffers. */
type BindingTable struct {
	Handle      BindingTableHandle
	Source      BufferHandle
	Destination BufferHandle
}

/**
 * @brief What the setup collaborator must build for a buffering mode.
 */
type ResourceRequirements struct {
	Mode BufferingMode
	/** @brief Number of compute jobs (command buffer, fence, uniforms, finished signal). */
	Jobs int
	/** @brief Number of graphics-visible particle buffers. */
	ParticleBuffers int
	/** @brief Whether a compute-private scratch buffer is needed. */
	Scratch bool
	/** @brief One layout per job. */
	Tables []TableLayout
	/**
	 * @brief Graphics and compute may read the same buffer at the same time,
	 * so buffers must be shared concurrently when the families differ.
	 */
	ConcurrentSharing bool
	ParticleCount     uint32
	/** @brief Initial state uploaded into every particle buffer and the scratch buffer. */
	InitialParticles []Particle
}

// BufferSize is the byte size of one particle buffer.
func (r ResourceRequirements) BufferSize() uint64 {
	return uint64(r.ParticleCount) * ParticleSize
}
