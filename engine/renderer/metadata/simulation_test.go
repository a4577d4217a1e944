package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBufferingMode(t *testing.T) {
	cases := map[string]BufferingMode{
		"sync":     BUFFERING_MODE_SYNC,
		"compute":  BUFFERING_MODE_SYNC,
		"Transfer": BUFFERING_MODE_ASYNC_TRANSFER,
		" double ": BUFFERING_MODE_ASYNC_DOUBLE_BUFFER,
	}
	for in, want := range cases {
		got, err := ParseBufferingMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseBufferingMode("triple")
	assert.Error(t, err)
}

func TestBufferingMode_TextRoundTrip(t *testing.T) {
	text, err := BUFFERING_MODE_ASYNC_DOUBLE_BUFFER.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "double", string(text))

	var m BufferingMode
	require.NoError(t, m.UnmarshalText([]byte("transfer")))
	assert.Equal(t, BUFFERING_MODE_ASYNC_TRANSFER, m)

	_, err = BufferingMode(9).MarshalText()
	assert.Error(t, err)
}

func TestBufferingMode_JobCount(t *testing.T) {
	assert.Equal(t, 1, BUFFERING_MODE_SYNC.JobCount())
	assert.Equal(t, 1, BUFFERING_MODE_ASYNC_TRANSFER.JobCount())
	assert.Equal(t, 2, BUFFERING_MODE_ASYNC_DOUBLE_BUFFER.JobCount())
}

func TestBufferBarrier_IsOwnershipTransfer(t *testing.T) {
	local := BufferBarrier{SrcQueueFamily: QUEUE_FAMILY_IGNORED, DstQueueFamily: QUEUE_FAMILY_IGNORED}
	assert.False(t, local.IsOwnershipTransfer())
	release := BufferBarrier{SrcQueueFamily: 1, DstQueueFamily: 0}
	assert.True(t, release.IsOwnershipTransfer())
	assert.Equal(t, "shader-read|transfer-write", (ACCESS_SHADER_READ | ACCESS_TRANSFER_WRITE).String())
}

func TestResourceRequirements_BufferSize(t *testing.T) {
	r := ResourceRequirements{ParticleCount: 1000}
	assert.Equal(t, uint64(32000), r.BufferSize())
}
