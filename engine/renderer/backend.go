package renderer

import (
	"time"

	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// Infinite makes a wait unbounded.
const Infinite time.Duration = -1

// Fence is a host observable completion flag for a submitted batch.
type Fence interface {
	// Wait blocks until the fence is signaled. It returns core.ErrDeviceLost
	// when the device is gone and core.ErrFenceTimeout when timeout elapses.
	Wait(timeout time.Duration) error
	Reset() error
	IsSignaled() bool
}

// Semaphore is a GPU side single use dependency edge between two submissions.
type Semaphore interface {
	Name() string
}

// GPUTimer measures the device time spent between Begin and End.
type GPUTimer interface {
	Begin(cb CommandBuffer)
	End(cb CommandBuffer)
	// Elapsed is valid once the batch holding the timestamps completed.
	Elapsed() (time.Duration, error)
}

// CommandBuffer records a batch of device commands.
type CommandBuffer interface {
	Begin() error
	End() error
	Reset() error
	PipelineBarrier(barriers ...metadata.BufferBarrier)
	BindComputePipeline(pipeline metadata.PipelineHandle)
	BindBindingTable(pipeline metadata.PipelineHandle, table metadata.BindingTable)
	Dispatch(groupCountX, groupCountY, groupCountZ uint32)
	CopyBuffer(src, dst metadata.BufferHandle, size uint64)
}

// UniformBuffer is host visible memory holding the uniforms of one job.
type UniformBuffer interface {
	Write(u metadata.ComputeUniforms) error
}

type SemaphoreWait struct {
	Semaphore Semaphore
	Stage     metadata.PipelineStage
}

type SubmitInfo struct {
	Waits    []SemaphoreWait
	Commands []CommandBuffer
	Signals  []Semaphore
}

type Queue interface {
	Name() string
	Family() uint32
	// Submit enqueues the batches. A non-nil fence is signaled when all of them complete.
	Submit(batches []SubmitInfo, fence Fence) error
	WaitIdle() error
}

// Presentation is the swapchain side of the setup collaborator. Graphics
// command buffers are recorded by the collaborator once per image and per
// particle buffer, and re-recorded when the presentation is rebuilt.
type Presentation interface {
	// AcquireNextImage returns core.ErrSurfaceStale or core.ErrAcquireTimeout
	// when no image can be handed out.
	AcquireNextImage(timeout time.Duration, signal Semaphore) (uint32, error)
	Present(imageIndex uint32, wait Semaphore) error
	GraphicsCommands(imageIndex uint32, particles metadata.BufferHandle) (CommandBuffer, error)
	ImageCount() uint32
}

// FrameContext lives between the acquisition and the presentation of a single frame.
type FrameContext struct {
	ImageIndex     uint32
	ImageAvailable Semaphore
	RenderFinished Semaphore
	GraphicsDone   Semaphore
	InFlight       Fence
	Particles      metadata.BufferHandle
}

// FrameSync is the set of synchronization objects of one frame in flight.
type FrameSync struct {
	ImageAvailable Semaphore
	RenderFinished Semaphore
	// GraphicsDone is signaled by the graphics submit and consumed by a later compute submit.
	GraphicsDone Semaphore
	InFlight     Fence
}

// ComputeJob is one resident compute command batch with its resources.
type ComputeJob struct {
	Slot     int
	Commands CommandBuffer
	Fence    Fence
	// Finished is signaled by the compute submit and consumed by a later graphics submit.
	Finished Semaphore
	Uniforms UniformBuffer
	Table    metadata.BindingTable
	// Timer is optional.
	Timer GPUTimer
}

// SimulationResources is everything the setup collaborator hands to the core.
type SimulationResources struct {
	DeviceName      string
	Families        metadata.QueueFamilyIndices
	GraphicsQueue   Queue
	PresentQueue    Queue
	ComputeQueue    Queue
	Presentation    Presentation
	Frames          []FrameSync
	Jobs            []*ComputeJob
	ParticleBuffers []metadata.BufferHandle
	Scratch         metadata.BufferHandle
	HasScratch      bool
	Sharing         metadata.SharingMode
	Pipeline        metadata.PipelineHandle
	ParticleCount   uint32
	BufferSize      uint64
}

// Backend is the setup collaborator: it builds the device resources, rebuilds
// the presentation when the surface goes stale and owns their release.
type Backend interface {
	Initialize(req metadata.ResourceRequirements) (*SimulationResources, error)
	RebuildPresentation() error
	WaitIdle() error
	Shutdown() error
}
