package vulkan

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

type imageBuffer struct {
	image  uint32
	buffer metadata.BufferHandle
}

/**
 * @brief Everything tied to the swapchain: the swapchain itself, the render
 * pass, the framebuffers, the particle pipeline and one recorded graphics
 * command buffer per swapchain image and particle buffer.
 */
type VulkanPresentation struct {
	context   *VulkanContext
	resources *resourceTables
	present   *VulkanQueue
	protocol  *renderer.BarrierProtocol
	stages    []vk.PipelineShaderStageCreateInfo
	clear     [4]float32

	// Released and rebuilt as a whole.
	scope    *core.Scope
	pipeline *VulkanPipeline
	commands map[imageBuffer]*VulkanCommandBuffer
}

func (p *VulkanPresentation) AcquireNextImage(timeout time.Duration, signal renderer.Semaphore) (uint32, error) {
	s, ok := signal.(*VulkanSemaphore)
	if !ok {
		return 0, fmt.Errorf("%w: acquire signal of type %T", core.ErrSetupFailed, signal)
	}
	var index uint32
	err := p.context.Locks.SafeCall(SwapchainManagement, func() error {
		var err error
		index, err = p.context.Swapchain.SwapchainAcquireNextImageIndex(p.context, timeout, s.Handle)
		return err
	})
	return index, err
}

func (p *VulkanPresentation) Present(imageIndex uint32, wait renderer.Semaphore) error {
	s, ok := wait.(*VulkanSemaphore)
	if !ok {
		return fmt.Errorf("%w: present wait of type %T", core.ErrSubmitFailed, wait)
	}
	return p.present.locks.SafeQueueCall(p.present.family, 0, func() error {
		return p.context.Locks.SafeCall(SwapchainManagement, func() error {
			return p.context.Swapchain.SwapchainPresent(p.context, p.present.Handle, s.Handle, imageIndex)
		})
	})
}

func (p *VulkanPresentation) GraphicsCommands(imageIndex uint32, particles metadata.BufferHandle) (renderer.CommandBuffer, error) {
	cb, ok := p.commands[imageBuffer{image: imageIndex, buffer: particles}]
	if !ok {
		err := fmt.Errorf("%w: no graphics commands for image %d and buffer %d", core.ErrSetupFailed, imageIndex, particles)
		core.LogError(err.Error())
		return nil, err
	}
	return cb, nil
}

func (p *VulkanPresentation) ImageCount() uint32 {
	if p.context.Swapchain == nil {
		return 0
	}
	return p.context.Swapchain.ImageCount
}

// build creates the swapchain and everything depending on it for a
// framebuffer of width x height.
func (p *VulkanPresentation) build(width, height uint32, particles []metadata.BufferHandle) error {
	p.scope = core.NewScope("presentation")
	context := p.context

	sc, err := SwapchainCreate(context, width, height)
	if err != nil {
		return err
	}
	context.Swapchain = sc
	p.scope.DeferFunc("swapchain", func() {
		sc.SwapchainDestroy(context)
		context.Swapchain = nil
	})
	context.FramebufferWidth = sc.Extent.Width
	context.FramebufferHeight = sc.Extent.Height

	rp, err := RenderpassCreate(
		context,
		sc.ImageFormat.Format,
		0, 0, float32(sc.Extent.Width), float32(sc.Extent.Height),
		p.clear[0], p.clear[1], p.clear[2], p.clear[3])
	if err != nil {
		return err
	}
	context.MainRenderpass = rp
	p.scope.DeferFunc("renderpass", func() {
		rp.RenderpassDestroy(context)
		context.MainRenderpass = nil
	})

	// Swapchain framebuffers.
	sc.Framebuffers = make([]*VulkanFramebuffer, sc.ImageCount)
	for i := range sc.Framebuffers {
		fb, err := FramebufferCreate(context, rp, sc.Extent.Width, sc.Extent.Height, []vk.ImageView{sc.Views[i]})
		if err != nil {
			return err
		}
		sc.Framebuffers[i] = fb
		p.scope.DeferFunc(fmt.Sprintf("framebuffer %d", i), func() { fb.Destroy(context) })
	}

	viewport, scissor := p.viewport(sc.Extent)
	pipeline, err := NewGraphicsPipeline(context, &VulkanPipelineConfig{
		Renderpass: rp,
		Stride:     metadata.ParticleSize,
		Attributes: particleAttributes(),
		Stages:     p.stages,
		Viewport:   viewport,
		Scissor:    scissor,
	})
	if err != nil {
		return err
	}
	p.pipeline = pipeline
	p.scope.Defer("graphics pipeline", func() error { return pipeline.Destroy(context) })

	p.commands = make(map[imageBuffer]*VulkanCommandBuffer, int(sc.ImageCount)*len(particles))
	for i := uint32(0); i < sc.ImageCount; i++ {
		for _, h := range particles {
			name := fmt.Sprintf("graphics-%d-%d", i, h)
			cb, err := NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, p.resources, name)
			if err != nil {
				return err
			}
			p.scope.DeferFunc(name, cb.Free)
			if err := p.record(cb, i, h); err != nil {
				return err
			}
			p.commands[imageBuffer{image: i, buffer: h}] = cb
		}
	}
	core.LogDebug("Recorded %d graphics command buffers.", len(p.commands))
	return nil
}

func (p *VulkanPresentation) viewport(extent vk.Extent2D) (vk.Viewport, vk.Rect2D) {
	viewport := vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	return viewport, scissor
}

// record draws the particles of buffer into swapchain image. When compute
// runs on another family the buffer is acquired first and released last.
func (p *VulkanPresentation) record(cb *VulkanCommandBuffer, image uint32, buffer metadata.BufferHandle) error {
	vertices, err := p.resources.buffer(buffer)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrSetupFailed, err)
	}
	if err := cb.Begin(); err != nil {
		return err
	}
	if acquire, ok := p.protocol.GraphicsAcquire(buffer); ok {
		cb.PipelineBarrier(acquire)
	}

	sc := p.context.Swapchain
	p.context.MainRenderpass.RenderpassBegin(cb, sc.Framebuffers[image].Handle)
	p.pipeline.Bind(cb, vk.PipelineBindPointGraphics)

	// Dynamic state
	viewport, scissor := p.viewport(sc.Extent)
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})

	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{vertices}, []vk.DeviceSize{0})
	count := p.particleCount(buffer)
	vk.CmdDraw(cb.Handle, count, 1, 0, 0)
	p.context.MainRenderpass.RenderpassEnd(cb)

	if release, ok := p.protocol.GraphicsRelease(buffer); ok {
		cb.PipelineBarrier(release)
	}
	return cb.End()
}

func (p *VulkanPresentation) particleCount(buffer metadata.BufferHandle) uint32 {
	b, err := p.resources.buffers.Get(uint32(buffer))
	if err != nil {
		return 0
	}
	return uint32(b.Size / metadata.ParticleSize)
}

func (p *VulkanPresentation) destroy() error {
	if p.scope == nil {
		return nil
	}
	err := p.scope.Close()
	p.scope = nil
	p.commands = nil
	p.pipeline = nil
	return err
}
