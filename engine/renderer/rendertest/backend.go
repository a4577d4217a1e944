// Package rendertest provides a recording in-memory backend for exercising
// the simulation core without a GPU. Submissions complete lazily, when a fence
// is waited on or a queue drained, and compute work is replayed on the CPU.
// Misuse of fences, semaphores and command buffers is recorded as violations.
package rendertest

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

type EventKind uint8

const (
	EVENT_ACQUIRE EventKind = iota
	EVENT_SUBMIT
	EVENT_PRESENT
	EVENT_WAIT_IDLE
	EVENT_FENCE_WAIT
	EVENT_RECORD
	EVENT_BARRIER
	EVENT_BIND
	EVENT_DISPATCH
	EVENT_COPY
	EVENT_REBUILD
	EVENT_SHUTDOWN
	EVENT_OWNERSHIP_RELEASE
	EVENT_OWNERSHIP_ACQUIRE
)

type Event struct {
	Kind    EventKind
	Queue   string
	Slot    int
	Image   uint32
	Fence   string
	Buffer  metadata.BufferHandle
	Barrier metadata.BufferBarrier
	Waits   []string
	Signals []string
}

type Options struct {
	Families       metadata.QueueFamilyIndices
	ImageCount     uint32
	FramesInFlight int
	Kernel         Kernel
	// ComputeTime enables GPU timers on the jobs reporting this duration.
	ComputeTime time.Duration
}

type Backend struct {
	opts   Options
	kernel Kernel

	graphics     *Queue
	present      *Queue
	compute      *Queue
	presentation *Presentation
	jobs         []*renderer.ComputeJob
	uniforms     []*UniformBuffer
	memory       map[metadata.BufferHandle][]metadata.Particle
	buffers      []metadata.BufferHandle
	protocol     *renderer.BarrierProtocol
	ownership    *ownership

	events     []Event
	violations []string

	computeFenceWaits  int
	lostAtComputeWait  int
	deviceLost         bool
	maxComputeInFlight int
	staleAcquire       map[int]bool
	timeoutAcquire     map[int]bool
	stalePresent       map[int]bool
	rebuilds           int
	shutdown           bool
}

func NewBackend(opts Options) *Backend {
	if opts.ImageCount == 0 {
		opts.ImageCount = 3
	}
	if opts.FramesInFlight == 0 {
		opts.FramesInFlight = 2
	}
	if opts.Kernel == nil {
		opts.Kernel = AttractorKernel
	}
	return &Backend{
		opts:              opts,
		kernel:            opts.Kernel,
		memory:            make(map[metadata.BufferHandle][]metadata.Particle),
		ownership:         newOwnership(),
		lostAtComputeWait: -1,
		staleAcquire:      make(map[int]bool),
		timeoutAcquire:    make(map[int]bool),
		stalePresent:      make(map[int]bool),
	}
}

func (b *Backend) Initialize(req metadata.ResourceRequirements) (*renderer.SimulationResources, error) {
	if req.ParticleCount == 0 {
		return nil, fmt.Errorf("rendertest: no particles requested")
	}
	fam := b.opts.Families
	b.graphics = &Queue{b: b, name: QUEUE_GRAPHICS, family: fam.Graphics}
	b.present = b.graphics
	if fam.Present != fam.Graphics {
		b.present = &Queue{b: b, name: QUEUE_PRESENT, family: fam.Present}
	}
	b.compute = b.graphics
	if fam.Compute != fam.Graphics {
		b.compute = &Queue{b: b, name: QUEUE_COMPUTE, family: fam.Compute}
	}

	res := &renderer.SimulationResources{
		DeviceName:    "rendertest",
		Families:      fam,
		GraphicsQueue: b.graphics,
		PresentQueue:  b.present,
		ComputeQueue:  b.compute,
		ParticleCount: req.ParticleCount,
		BufferSize:    req.BufferSize(),
		Sharing:       metadata.SHARING_MODE_EXCLUSIVE,
	}
	if req.ConcurrentSharing && !fam.ComputeSharesGraphics() {
		res.Sharing = metadata.SHARING_MODE_CONCURRENT
	}

	next := metadata.BufferHandle(0)
	newBuffer := func() metadata.BufferHandle {
		h := next
		next++
		mem := make([]metadata.Particle, req.ParticleCount)
		copy(mem, req.InitialParticles)
		b.memory[h] = mem
		return h
	}
	for i := 0; i < req.ParticleBuffers; i++ {
		res.ParticleBuffers = append(res.ParticleBuffers, newBuffer())
	}
	if req.Scratch {
		res.Scratch = newBuffer()
		res.HasScratch = true
	}
	b.buffers = res.ParticleBuffers

	// setup leaves every particle buffer released from compute to graphics
	b.protocol = renderer.NewBarrierProtocol(fam, res.Sharing)
	if b.protocol.TransfersOwnership() {
		for _, h := range res.ParticleBuffers {
			b.ownership.handOver(h, fam.Compute, fam.Graphics)
		}
	}

	resolve := func(slot int) metadata.BufferHandle {
		if slot == metadata.SCRATCH_BUFFER_SLOT {
			return res.Scratch
		}
		return res.ParticleBuffers[slot]
	}
	for i := 0; i < req.Jobs; i++ {
		cb := &CommandBuffer{b: b, name: fmt.Sprintf("compute-%d", i), slot: i, compute: true}
		ub := &UniformBuffer{b: b, slot: i, cb: cb}
		cb.uniforms = ub
		job := &renderer.ComputeJob{
			Slot:     i,
			Commands: cb,
			Fence:    &Fence{b: b, name: fmt.Sprintf("compute-fence-%d", i), compute: true, signaled: true},
			Finished: &Semaphore{name: fmt.Sprintf("compute-finished-%d", i)},
			Uniforms: ub,
		}
		if i < len(req.Tables) {
			job.Table = metadata.BindingTable{
				Handle:      metadata.BindingTableHandle(i),
				Source:      resolve(req.Tables[i].Source),
				Destination: resolve(req.Tables[i].Destination),
			}
		}
		if b.opts.ComputeTime > 0 {
			job.Timer = &Timer{elapsed: b.opts.ComputeTime}
		}
		b.jobs = append(b.jobs, job)
		b.uniforms = append(b.uniforms, ub)
	}
	res.Jobs = b.jobs

	for i := 0; i < b.opts.FramesInFlight; i++ {
		res.Frames = append(res.Frames, renderer.FrameSync{
			ImageAvailable: &Semaphore{name: fmt.Sprintf("image-available-%d", i)},
			RenderFinished: &Semaphore{name: fmt.Sprintf("render-finished-%d", i)},
			GraphicsDone:   &Semaphore{name: fmt.Sprintf("graphics-done-%d", i)},
			InFlight:       &Fence{b: b, name: fmt.Sprintf("in-flight-%d", i), signaled: true},
		})
	}

	b.presentation = &Presentation{b: b, images: b.opts.ImageCount}
	b.presentation.build(res.ParticleBuffers)
	res.Presentation = b.presentation
	return res, nil
}

func (b *Backend) RebuildPresentation() error {
	b.record(Event{Kind: EVENT_REBUILD})
	b.rebuilds++
	b.presentation.build(b.buffers)
	return nil
}

func (b *Backend) WaitIdle() error {
	for _, q := range []*Queue{b.graphics, b.present, b.compute} {
		if q == nil {
			continue
		}
		if err := q.WaitIdle(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) Shutdown() error {
	b.record(Event{Kind: EVENT_SHUTDOWN})
	b.shutdown = true
	return nil
}

func (b *Backend) record(e Event) {
	b.events = append(b.events, e)
}

func (b *Backend) violate(format string, args ...interface{}) {
	b.violations = append(b.violations, fmt.Sprintf(format, args...))
}

func (b *Backend) trackInFlight() {
	if b.compute == nil {
		return
	}
	if n := b.compute.inFlightCompute(); n > b.maxComputeInFlight {
		b.maxComputeInFlight = n
	}
}

// LoseDeviceAtComputeWait makes the n-th (zero based) compute fence wait
// report a lost device, and every later device call with it.
func (b *Backend) LoseDeviceAtComputeWait(n int) {
	b.lostAtComputeWait = n
}

// StaleOnAcquire makes the given (zero based) acquire calls report a stale surface.
func (b *Backend) StaleOnAcquire(calls ...int) {
	for _, c := range calls {
		b.staleAcquire[c] = true
	}
}

// TimeoutOnAcquire makes the given acquire calls time out.
func (b *Backend) TimeoutOnAcquire(calls ...int) {
	for _, c := range calls {
		b.timeoutAcquire[c] = true
	}
}

// StaleOnPresent makes the given (zero based) present calls report a stale surface.
func (b *Backend) StaleOnPresent(calls ...int) {
	for _, c := range calls {
		b.stalePresent[c] = true
	}
}

func (b *Backend) Events() []Event {
	return b.events
}

// Count returns the number of events of kind, restricted to queue when set.
func (b *Backend) Count(kind EventKind, queue string) int {
	n := 0
	for _, e := range b.events {
		if e.Kind == kind && (queue == "" || e.Queue == queue) {
			n++
		}
	}
	return n
}

// ComputeSlots is the job slot of every compute submission, in order.
func (b *Backend) ComputeSlots() []int {
	var slots []int
	for _, e := range b.events {
		if e.Kind == EVENT_SUBMIT && e.Slot >= 0 {
			slots = append(slots, e.Slot)
		}
	}
	return slots
}

// OwnershipTransfers returns the release and acquire halves executed by the
// queues, in submission order.
func (b *Backend) OwnershipTransfers() []Event {
	var out []Event
	for _, e := range b.events {
		if e.Kind == EVENT_OWNERSHIP_RELEASE || e.Kind == EVENT_OWNERSHIP_ACQUIRE {
			out = append(out, e)
		}
	}
	return out
}

// ComputeSubmits counts submissions carrying a compute job.
func (b *Backend) ComputeSubmits() int {
	return len(b.ComputeSlots())
}

// Barriers returns the barriers recorded into the compute job of slot.
func (b *Backend) Barriers(slot int) []metadata.BufferBarrier {
	var out []metadata.BufferBarrier
	for _, e := range b.events {
		if e.Kind == EVENT_BARRIER && e.Slot == slot {
			out = append(out, e.Barrier)
		}
	}
	return out
}

func (b *Backend) MaxComputeInFlight() int {
	return b.maxComputeInFlight
}

func (b *Backend) Violations() []string {
	return b.violations
}

func (b *Backend) Particles(h metadata.BufferHandle) []metadata.Particle {
	out := make([]metadata.Particle, len(b.memory[h]))
	copy(out, b.memory[h])
	return out
}

func (b *Backend) Uniforms(slot int) metadata.ComputeUniforms {
	return b.uniforms[slot].current
}

func (b *Backend) Rebuilds() int {
	return b.rebuilds
}

func (b *Backend) IsShutdown() bool {
	return b.shutdown
}

func (b *Backend) DeviceLost() bool {
	return b.deviceLost
}
