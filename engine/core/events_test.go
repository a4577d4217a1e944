package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_FireStopsAtFirstHandler(t *testing.T) {
	bus := NewEventBus()
	var calls []string
	first := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		calls = append(calls, listener.(string))
		return data.U32[0] > 100
	}

	assert.True(t, bus.Register(EVENT_CODE_RESIZED, "a", first))
	assert.True(t, bus.Register(EVENT_CODE_RESIZED, "b", first))
	assert.False(t, bus.Register(EVENT_CODE_RESIZED, "a", first))

	assert.False(t, bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{U32: [4]uint32{10, 10}}))
	assert.Equal(t, []string{"a", "b"}, calls)

	calls = nil
	assert.True(t, bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{U32: [4]uint32{800, 600}}))
	assert.Equal(t, []string{"a"}, calls)
}

func TestEventBus_Unregister(t *testing.T) {
	bus := NewEventBus()
	handled := func(SystemEventCode, interface{}, interface{}, EventContext) bool { return true }

	assert.False(t, bus.Register(0, "x", handled))
	assert.True(t, bus.Register(EVENT_CODE_APPLICATION_QUIT, "x", handled))
	assert.True(t, bus.Unregister(EVENT_CODE_APPLICATION_QUIT, "x"))
	assert.False(t, bus.Unregister(EVENT_CODE_APPLICATION_QUIT, "x"))
	assert.False(t, bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}))

	bus.Register(EVENT_CODE_KEY_PRESSED, "y", handled)
	bus.Clear()
	assert.False(t, bus.Fire(EVENT_CODE_KEY_PRESSED, nil, EventContext{}))
}
