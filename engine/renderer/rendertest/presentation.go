package rendertest

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

type imageBuffer struct {
	image  uint32
	buffer metadata.BufferHandle
}

type Presentation struct {
	b        *Backend
	images   uint32
	next     uint32
	acquires int
	presents int
	commands map[imageBuffer]*CommandBuffer
}

func (p *Presentation) AcquireNextImage(timeout time.Duration, signal renderer.Semaphore) (uint32, error) {
	call := p.acquires
	p.acquires++
	p.b.record(Event{Kind: EVENT_ACQUIRE})
	if p.b.deviceLost {
		return 0, core.ErrDeviceLost
	}
	if p.b.staleAcquire[call] {
		return 0, fmt.Errorf("acquire %d: %w", call, core.ErrSurfaceStale)
	}
	if p.b.timeoutAcquire[call] {
		return 0, fmt.Errorf("acquire %d after %s: %w", call, timeout, core.ErrAcquireTimeout)
	}

	sem := signal.(*Semaphore)
	if sem.signaled {
		p.b.violate("acquire signals semaphore %s twice", sem.name)
		return 0, fmt.Errorf("semaphore %s already signaled", sem.name)
	}
	sem.signaled = true

	image := p.next
	p.next = (p.next + 1) % p.images
	return image, nil
}

func (p *Presentation) Present(imageIndex uint32, wait renderer.Semaphore) error {
	call := p.presents
	p.presents++
	p.b.record(Event{Kind: EVENT_PRESENT, Image: imageIndex})
	if p.b.deviceLost {
		return core.ErrDeviceLost
	}
	sem := wait.(*Semaphore)
	if !sem.signaled {
		p.b.violate("present waits on unsignaled semaphore %s", sem.name)
		return fmt.Errorf("semaphore %s has no pending signal", sem.name)
	}
	sem.signaled = false
	if p.b.stalePresent[call] {
		return fmt.Errorf("present %d: %w", call, core.ErrSurfaceStale)
	}
	return nil
}

func (p *Presentation) GraphicsCommands(imageIndex uint32, particles metadata.BufferHandle) (renderer.CommandBuffer, error) {
	cb, ok := p.commands[imageBuffer{image: imageIndex, buffer: particles}]
	if !ok {
		return nil, fmt.Errorf("no graphics commands for image %d and buffer %d", imageIndex, particles)
	}
	return cb, nil
}

func (p *Presentation) ImageCount() uint32 {
	return p.images
}

func (p *Presentation) build(buffers []metadata.BufferHandle) {
	p.next = 0
	p.commands = make(map[imageBuffer]*CommandBuffer)
	for i := uint32(0); i < p.images; i++ {
		for _, buf := range buffers {
			cb := &CommandBuffer{
				b:     p.b,
				name:  fmt.Sprintf("graphics-%d-%d", i, buf),
				slot:  -1,
				state: cbExecutable,
			}
			// acquire before the draw, release after it
			if acquire, ok := p.b.protocol.GraphicsAcquire(buf); ok {
				cb.PipelineBarrier(acquire)
			}
			if release, ok := p.b.protocol.GraphicsRelease(buf); ok {
				cb.PipelineBarrier(release)
			}
			p.commands[imageBuffer{image: i, buffer: buf}] = cb
		}
	}
}
