package rendertest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

func syncRequirements() metadata.ResourceRequirements {
	return metadata.ResourceRequirements{
		Mode:            metadata.BUFFERING_MODE_SYNC,
		Jobs:            1,
		ParticleCount:   4,
		ParticleBuffers: 1,
		Tables:          []metadata.TableLayout{{Source: 0, Destination: 0}},
	}
}

func submitGraphics(t *testing.T, res *renderer.SimulationResources) {
	t.Helper()
	cb, err := res.Presentation.GraphicsCommands(0, res.ParticleBuffers[0])
	require.NoError(t, err)
	require.NoError(t, res.GraphicsQueue.Submit([]renderer.SubmitInfo{{Commands: []renderer.CommandBuffer{cb}}}, nil))
	require.NoError(t, res.GraphicsQueue.WaitIdle())
}

func TestOwnership_GraphicsCommandsCarryBothHalves(t *testing.T) {
	b := NewBackend(Options{Families: metadata.QueueFamilyIndices{Graphics: 0, Present: 0, Compute: 1}})
	res, err := b.Initialize(syncRequirements())
	require.NoError(t, err)

	submitGraphics(t, res)

	transfers := b.OwnershipTransfers()
	require.Len(t, transfers, 2)
	assert.Equal(t, EVENT_OWNERSHIP_ACQUIRE, transfers[0].Kind)
	assert.Equal(t, uint32(1), transfers[0].Barrier.SrcQueueFamily)
	assert.Equal(t, uint32(0), transfers[0].Barrier.DstQueueFamily)
	assert.Equal(t, EVENT_OWNERSHIP_RELEASE, transfers[1].Kind)
	assert.Equal(t, uint32(0), transfers[1].Barrier.SrcQueueFamily)
	assert.Equal(t, uint32(1), transfers[1].Barrier.DstQueueFamily)
	assert.Empty(t, b.Violations())
}

func TestOwnership_AcquireWithoutReleaseIsReported(t *testing.T) {
	b := NewBackend(Options{Families: metadata.QueueFamilyIndices{Graphics: 0, Present: 0, Compute: 1}})
	res, err := b.Initialize(syncRequirements())
	require.NoError(t, err)

	// the second draw acquires a buffer compute never released back
	submitGraphics(t, res)
	submitGraphics(t, res)

	require.NotEmpty(t, b.Violations())
	assert.Contains(t, b.Violations()[0], "without a matching release")
}

func TestOwnership_SharedFamilyRecordsNoTransfers(t *testing.T) {
	b := NewBackend(Options{})
	res, err := b.Initialize(syncRequirements())
	require.NoError(t, err)

	submitGraphics(t, res)

	assert.Empty(t, b.OwnershipTransfers())
	assert.Empty(t, b.Violations())
}
