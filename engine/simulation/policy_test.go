package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
	"github.com/spaghettifunk/nbody/engine/renderer/rendertest"
)

func TestRequirements(t *testing.T) {
	cfg := DefaultConfig()
	initial := InitialParticles(16, 1)

	cfg.Mode = metadata.BUFFERING_MODE_SYNC
	req := Requirements(cfg, initial)
	assert.Equal(t, 1, req.Jobs)
	assert.Equal(t, 1, req.ParticleBuffers)
	assert.False(t, req.Scratch)

	cfg.Mode = metadata.BUFFERING_MODE_ASYNC_TRANSFER
	req = Requirements(cfg, initial)
	assert.Equal(t, 1, req.Jobs)
	assert.True(t, req.Scratch)
	assert.Equal(t, []metadata.TableLayout{{Source: metadata.SCRATCH_BUFFER_SLOT, Destination: metadata.SCRATCH_BUFFER_SLOT}}, req.Tables)

	cfg.Mode = metadata.BUFFERING_MODE_ASYNC_DOUBLE_BUFFER
	req = Requirements(cfg, initial)
	assert.Equal(t, 2, req.Jobs)
	assert.Equal(t, 2, req.ParticleBuffers)
	assert.True(t, req.ConcurrentSharing)
	assert.Equal(t, []metadata.TableLayout{{Source: 0, Destination: 1}, {Source: 1, Destination: 0}}, req.Tables)
}

func TestNewPolicy_UnknownMode(t *testing.T) {
	_, err := NewPolicy(metadata.BufferingMode(42))
	assert.Error(t, err)
}

func TestPolicy_PrepareRejectsMismatchedResources(t *testing.T) {
	// resources built for sync do not fit the double buffer policy
	cfg := DefaultConfig()
	cfg.ParticleCount = 64
	backend := rendertest.NewBackend(rendertest.Options{Families: sharedFamilies})
	res, err := backend.Initialize(Requirements(cfg, nil))
	require.NoError(t, err)

	for _, mode := range []metadata.BufferingMode{metadata.BUFFERING_MODE_ASYNC_DOUBLE_BUFFER, metadata.BUFFERING_MODE_ASYNC_TRANSFER} {
		policy, err := NewPolicy(mode)
		require.NoError(t, err)
		assert.ErrorIs(t, policy.Prepare(res), core.ErrSetupFailed, mode.String())
	}

	policy, err := NewPolicy(metadata.BUFFERING_MODE_SYNC)
	require.NoError(t, err)
	assert.ErrorIs(t, policy.Prepare(nil), core.ErrSetupFailed)
	assert.NoError(t, policy.Prepare(res))
}

func TestDoubleBufferPolicy_RejectsCrossedTables(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ParticleCount = 64
	cfg.Mode = metadata.BUFFERING_MODE_ASYNC_DOUBLE_BUFFER
	req := Requirements(cfg, nil)
	req.Tables = []metadata.TableLayout{{Source: 1, Destination: 0}, {Source: 0, Destination: 1}}

	res, err := rendertest.NewBackend(rendertest.Options{Families: sharedFamilies}).Initialize(req)
	require.NoError(t, err)

	policy, err := NewPolicy(cfg.Mode)
	require.NoError(t, err)
	assert.ErrorIs(t, policy.Prepare(res), core.ErrSetupFailed)
}

func TestPolicy_TransferRecordsCopyBetweenBarriers(t *testing.T) {
	r := newRig(t, metadata.BUFFERING_MODE_ASYNC_TRANSFER, rendertest.Options{Families: distinctFamilies}, nil)
	r.run(t, 1)

	var kinds []rendertest.EventKind
	for _, e := range r.backend.Events() {
		if e.Slot == 0 && (e.Kind == rendertest.EVENT_BARRIER || e.Kind == rendertest.EVENT_DISPATCH || e.Kind == rendertest.EVENT_COPY) {
			kinds = append(kinds, e.Kind)
		}
	}
	assert.Equal(t, []rendertest.EventKind{
		rendertest.EVENT_BARRIER,
		rendertest.EVENT_DISPATCH,
		rendertest.EVENT_BARRIER,
		rendertest.EVENT_BARRIER,
		rendertest.EVENT_COPY,
		rendertest.EVENT_BARRIER,
	}, kinds)

	barriers := r.backend.Barriers(0)
	require.Len(t, barriers, 4)
	// scratch never leaves the compute queue
	assert.Equal(t, r.res.Scratch, barriers[0].Buffer)
	assert.False(t, barriers[0].IsOwnershipTransfer())
	assert.Equal(t, r.res.Scratch, barriers[1].Buffer)
	assert.Equal(t, metadata.ACCESS_TRANSFER_READ, barriers[1].DstAccess)
	// the shared buffer moves from graphics to the copy and back
	assert.Equal(t, r.res.ParticleBuffers[0], barriers[2].Buffer)
	assert.Equal(t, metadata.ACCESS_TRANSFER_WRITE, barriers[2].DstAccess)
	assert.True(t, barriers[2].IsOwnershipTransfer())
	assert.Equal(t, metadata.ACCESS_TRANSFER_WRITE, barriers[3].SrcAccess)
	assert.True(t, barriers[3].IsOwnershipTransfer())
}

func TestPolicy_DoubleBufferBarriersTargetWrittenBuffer(t *testing.T) {
	r := newRig(t, metadata.BUFFERING_MODE_ASYNC_DOUBLE_BUFFER, rendertest.Options{Families: distinctFamilies}, nil)
	r.run(t, 2)

	for slot := 0; slot < 2; slot++ {
		barriers := r.backend.Barriers(slot)
		require.Len(t, barriers, 3)
		read, write := r.res.ParticleBuffers[slot], r.res.ParticleBuffers[1-slot]
		assert.Equal(t, read, barriers[0].Buffer)
		assert.Equal(t, write, barriers[1].Buffer)
		assert.Equal(t, write, barriers[2].Buffer)
		// concurrent buffers never change owner
		for _, b := range barriers {
			assert.False(t, b.IsOwnershipTransfer())
		}
	}
}
