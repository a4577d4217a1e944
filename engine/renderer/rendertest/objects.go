package rendertest

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

type Semaphore struct {
	name     string
	signaled bool
}

func (s *Semaphore) Name() string {
	return s.name
}

// Signaled reports whether a signal is pending on the semaphore.
func (s *Semaphore) Signaled() bool {
	return s.signaled
}

type Fence struct {
	b        *Backend
	name     string
	compute  bool
	signaled bool
	pending  *submission
}

func (f *Fence) Name() string {
	return f.name
}

func (f *Fence) Wait(timeout time.Duration) error {
	f.b.record(Event{Kind: EVENT_FENCE_WAIT, Fence: f.name})
	if f.compute {
		wait := f.b.computeFenceWaits
		f.b.computeFenceWaits++
		if wait == f.b.lostAtComputeWait {
			f.b.deviceLost = true
		}
	}
	if f.b.deviceLost {
		return core.ErrDeviceLost
	}
	if f.signaled {
		return nil
	}
	if f.pending == nil {
		if timeout == renderer.Infinite {
			f.b.violate("fence %s waited forever without a pending submission", f.name)
		}
		return core.ErrFenceTimeout
	}
	f.pending.queue.completeThrough(f.pending)
	return nil
}

func (f *Fence) Reset() error {
	if f.pending != nil {
		f.b.violate("fence %s reset while its submission is pending", f.name)
	}
	f.signaled = false
	return nil
}

func (f *Fence) IsSignaled() bool {
	return f.signaled
}

type cbState uint8

const (
	cbInitial cbState = iota
	cbRecording
	cbExecutable
	cbPending
)

type command struct {
	kind    EventKind
	barrier metadata.BufferBarrier
	table   metadata.BindingTable
	groups  uint32
	src     metadata.BufferHandle
	dst     metadata.BufferHandle
	size    uint64
}

type CommandBuffer struct {
	b        *Backend
	name     string
	slot     int
	compute  bool
	state    cbState
	commands []command
	uniforms *UniformBuffer
}

func (c *CommandBuffer) Name() string {
	return c.name
}

func (c *CommandBuffer) Begin() error {
	if c.state == cbPending {
		c.b.violate("command buffer %s re-recorded while pending", c.name)
		return fmt.Errorf("command buffer %s is pending", c.name)
	}
	c.commands = nil
	c.state = cbRecording
	c.b.record(Event{Kind: EVENT_RECORD, Slot: c.slot, Queue: c.queueName()})
	return nil
}

func (c *CommandBuffer) End() error {
	if c.state != cbRecording {
		return fmt.Errorf("command buffer %s is not recording", c.name)
	}
	c.state = cbExecutable
	return nil
}

func (c *CommandBuffer) Reset() error {
	if c.state == cbPending {
		c.b.violate("command buffer %s reset while pending", c.name)
		return fmt.Errorf("command buffer %s is pending", c.name)
	}
	c.commands = nil
	c.state = cbInitial
	return nil
}

func (c *CommandBuffer) PipelineBarrier(barriers ...metadata.BufferBarrier) {
	for _, barrier := range barriers {
		c.commands = append(c.commands, command{kind: EVENT_BARRIER, barrier: barrier})
		c.b.record(Event{Kind: EVENT_BARRIER, Slot: c.slot, Queue: c.queueName(), Barrier: barrier, Buffer: barrier.Buffer})
	}
}

func (c *CommandBuffer) BindComputePipeline(pipeline metadata.PipelineHandle) {}

func (c *CommandBuffer) BindBindingTable(pipeline metadata.PipelineHandle, table metadata.BindingTable) {
	c.commands = append(c.commands, command{kind: EVENT_BIND, table: table})
}

func (c *CommandBuffer) Dispatch(groupCountX, groupCountY, groupCountZ uint32) {
	c.commands = append(c.commands, command{kind: EVENT_DISPATCH, groups: groupCountX * groupCountY * groupCountZ})
	c.b.record(Event{Kind: EVENT_DISPATCH, Slot: c.slot, Queue: c.queueName()})
}

func (c *CommandBuffer) CopyBuffer(src, dst metadata.BufferHandle, size uint64) {
	c.commands = append(c.commands, command{kind: EVENT_COPY, src: src, dst: dst, size: size})
	c.b.record(Event{Kind: EVENT_COPY, Slot: c.slot, Queue: c.queueName(), Buffer: dst})
}

func (c *CommandBuffer) queueName() string {
	if c.compute {
		return QUEUE_COMPUTE
	}
	return QUEUE_GRAPHICS
}

// execute replays the recorded commands against the buffer memory.
func (c *CommandBuffer) execute() {
	var table metadata.BindingTable
	for _, cmd := range c.commands {
		switch cmd.kind {
		case EVENT_BIND:
			table = cmd.table
		case EVENT_DISPATCH:
			u := c.uniforms.current
			c.b.kernel(c.b.memory[table.Destination], c.b.memory[table.Source], u)
		case EVENT_COPY:
			n := int(cmd.size / metadata.ParticleSize)
			copy(c.b.memory[cmd.dst][:n], c.b.memory[cmd.src][:n])
		}
	}
}

type UniformBuffer struct {
	b       *Backend
	slot    int
	cb      *CommandBuffer
	current metadata.ComputeUniforms
	writes  int
}

func (u *UniformBuffer) Write(v metadata.ComputeUniforms) error {
	if u.cb != nil && u.cb.state == cbPending {
		u.b.violate("uniforms of job %d written while the job is in flight", u.slot)
	}
	u.current = v
	u.writes++
	return nil
}

type Timer struct {
	elapsed time.Duration
	begun   int
	ended   int
}

func (t *Timer) Begin(cb renderer.CommandBuffer) {
	t.begun++
}

func (t *Timer) End(cb renderer.CommandBuffer) {
	t.ended++
}

func (t *Timer) Elapsed() (time.Duration, error) {
	return t.elapsed, nil
}
