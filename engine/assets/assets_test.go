package assets

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/nbody/engine/core"
)

func spirv(words ...uint32) []byte {
	out := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(out, SPIRV_MAGIC)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*(i+1):], w)
	}
	return out
}

func writeShader(t *testing.T, dir, name string, words ...uint32) string {
	t.Helper()
	path := filepath.Join(dir, name+SHADER_EXTENSION)
	require.NoError(t, os.WriteFile(path, spirv(words...), 0o644))
	return path
}

func TestDecodeSPIRV(t *testing.T) {
	code, err := DecodeSPIRV(spirv(0x00010000, 42))
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRV_MAGIC, 0x00010000, 42}, code)

	_, err = DecodeSPIRV([]byte{0x03, 0x02, 0x23})
	assert.ErrorIs(t, err, core.ErrSetupFailed)

	_, err = DecodeSPIRV([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.ErrorIs(t, err, core.ErrSetupFailed)

	_, err = DecodeSPIRV(nil)
	assert.Error(t, err)
}

func TestShaderStoreLoad(t *testing.T) {
	dir := t.TempDir()
	writeShader(t, dir, "particle.comp", 7)

	store, err := NewShaderStore(dir)
	require.NoError(t, err)

	code, err := store.Load("particle.comp")
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRV_MAGIC, 7}, code)

	_, err = store.Load("particle.vert")
	assert.ErrorIs(t, err, core.ErrSetupFailed)
}

func TestNewShaderStoreRejectsMissingDir(t *testing.T) {
	_, err := NewShaderStore(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, core.ErrSetupFailed)

	file := writeShader(t, t.TempDir(), "particle.frag")
	_, err = NewShaderStore(file)
	assert.ErrorIs(t, err, core.ErrSetupFailed)
}

func TestChangedOnlyReportsLoadedShaders(t *testing.T) {
	dir := t.TempDir()
	comp := writeShader(t, dir, "particle.comp")
	vert := writeShader(t, dir, "particle.vert")

	store, err := NewShaderStore(dir)
	require.NoError(t, err)
	_, err = store.Load("particle.comp")
	require.NoError(t, err)

	store.handleFileEvent(fsnotify.Event{Name: vert, Op: fsnotify.Write})
	store.handleFileEvent(fsnotify.Event{Name: comp, Op: fsnotify.Chmod})
	store.handleFileEvent(fsnotify.Event{Name: filepath.Join(dir, "particle.comp.glsl"), Op: fsnotify.Write})
	assert.Empty(t, store.Changed())

	store.handleFileEvent(fsnotify.Event{Name: comp, Op: fsnotify.Write})
	store.handleFileEvent(fsnotify.Event{Name: comp, Op: fsnotify.Create})
	assert.Equal(t, []string{"particle.comp"}, store.Changed())
	// The flag is cleared once reported.
	assert.Empty(t, store.Changed())
}

func TestWatchFlagsRewrittenShader(t *testing.T) {
	dir := t.TempDir()
	path := writeShader(t, dir, "particle.comp", 1)

	store, err := NewShaderStore(dir)
	require.NoError(t, err)
	_, err = store.Load("particle.comp")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()

	// The watcher registers asynchronously, keep rewriting until it notices.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, spirv(2), 0o644)
		return len(store.Changed()) == 1
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
