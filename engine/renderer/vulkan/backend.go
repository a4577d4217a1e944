package vulkan

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

// Window is the platform side the backend renders into.
type Window interface {
	GetRequiredExtensionNames() []string
	CreateSurface(instance interface{}) (uintptr, error)
	FramebufferSize() (uint32, uint32)
}

// ShaderSource hands out SPIR-V by shader name.
type ShaderSource interface {
	Load(name string) ([]uint32, error)
}

type Config struct {
	ApplicationName string
	// Validation enables the Khronos validation layer and the debug report callback.
	Validation bool
	// Preferred PCI vendor, zero for no preference.
	Vendor uint32
	// Timestamps attaches a GPU timer to every compute job when the device supports it.
	Timestamps bool
	ClearColor [4]float32
}

var _ renderer.Backend = (*VulkanRenderer)(nil)

type VulkanRenderer struct {
	config  Config
	window  Window
	shaders ShaderSource
	context *VulkanContext

	resources    *resourceTables
	presentation *VulkanPresentation
	particles    []metadata.BufferHandle

	graphicsQueue *VulkanQueue
	presentQueue  *VulkanQueue
	computeQueue  *VulkanQueue

	// Device lifetime objects, released in reverse order.
	scope *core.Scope
}

func New(config Config, window Window, shaders ShaderSource) *VulkanRenderer {
	return &VulkanRenderer{
		config:  config,
		window:  window,
		shaders: shaders,
		context: &VulkanContext{
			Allocator: nil,
			Device:    &VulkanDevice{},
			Locks:     NewVulkanLockPool(),
		},
		resources: newResourceTables(),
		scope:     core.NewScope("vulkan"),
	}
}

func (vr *VulkanRenderer) Initialize(req metadata.ResourceRequirements) (*renderer.SimulationResources, error) {
	res, err := vr.initialize(req)
	if err != nil {
		// Whatever got created so far is released here.
		_ = vr.Shutdown()
		return nil, err
	}
	return res, nil
}

func (vr *VulkanRenderer) initialize(req metadata.ResourceRequirements) (*renderer.SimulationResources, error) {
	if req.ParticleCount == 0 || req.Jobs == 0 || req.ParticleBuffers == 0 {
		err := fmt.Errorf("%w: incomplete resource requirements %+v", core.ErrSetupFailed, req)
		core.LogError(err.Error())
		return nil, err
	}
	if err := vr.createInstance(); err != nil {
		return nil, err
	}
	if err := vr.createSurface(); err != nil {
		return nil, err
	}

	// Device creation
	if err := DeviceCreate(vr.context, vr.config.Vendor); err != nil {
		return nil, err
	}
	vr.scope.DeferFunc("device", func() { DeviceDestroy(vr.context) })

	device := vr.context.Device
	families := device.Families
	vr.graphicsQueue = NewVulkanQueue("graphics", device.GraphicsQueue, families.Graphics, vr.context.Locks)
	vr.presentQueue = NewVulkanQueue("present", device.PresentQueue, families.Present, vr.context.Locks)
	vr.computeQueue = NewVulkanQueue("compute", device.ComputeQueue, families.Compute, vr.context.Locks)

	res := &renderer.SimulationResources{
		DeviceName:    device.Name,
		Families:      families,
		GraphicsQueue: vr.graphicsQueue,
		PresentQueue:  vr.presentQueue,
		ComputeQueue:  vr.computeQueue,
		ParticleCount: req.ParticleCount,
		BufferSize:    req.BufferSize(),
		Sharing:       metadata.SHARING_MODE_EXCLUSIVE,
	}
	if req.ConcurrentSharing && !families.ComputeSharesGraphics() {
		res.Sharing = metadata.SHARING_MODE_CONCURRENT
	}
	protocol := renderer.NewBarrierProtocol(families, res.Sharing)

	pipeline, setLayout, err := vr.createComputePipeline()
	if err != nil {
		return nil, err
	}
	res.Pipeline = pipeline

	if err := vr.createParticleBuffers(req, res); err != nil {
		return nil, err
	}
	if err := vr.uploadInitialParticles(req, res, protocol); err != nil {
		return nil, err
	}
	if err := vr.createJobs(req, res, setLayout); err != nil {
		return nil, err
	}
	if err := vr.createFrames(res); err != nil {
		return nil, err
	}

	stages, err := vr.loadGraphicsStages()
	if err != nil {
		return nil, err
	}
	vr.presentation = &VulkanPresentation{
		context:   vr.context,
		resources: vr.resources,
		present:   vr.presentQueue,
		protocol:  protocol,
		stages:    stages,
		clear:     vr.config.ClearColor,
	}
	width, height := vr.window.FramebufferSize()
	if err := vr.presentation.build(width, height, vr.particles); err != nil {
		_ = vr.presentation.destroy()
		return nil, err
	}
	res.Presentation = vr.presentation

	core.LogInfo("Vulkan renderer initialized successfully.")
	return res, nil
}

func (vr *VulkanRenderer) createInstance() error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("%w: GetInstanceProcAddress is nil", core.ErrSetupFailed)
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		err = fmt.Errorf("%w: failed to initialize vk: %w", core.ErrSetupFailed, err)
		core.LogError(err.Error())
		return err
	}

	// Setup Vulkan instance.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vr.config.ApplicationName),
		PEngineName:        VulkanSafeString("NBody Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := []string{"VK_KHR_surface"} // Generic surface extension
	requiredExtensions = append(requiredExtensions, vr.window.GetRequiredExtensionNames()...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	if vr.config.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName) // debug utilities
		core.LogDebug("Required extensions: %v", requiredExtensions)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers.
	requiredValidationLayerNames := []string{}

	// If validation should be done, get a list of the required validation layert names
	// and make sure they exist.
	if vr.config.Validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredValidationLayerNames = []string{"VK_LAYER_KHRONOS_validation"}

		// Obtain a list of available validation layers
		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			return resultError(res, core.ErrSetupFailed, "vkEnumerateInstanceLayerProperties")
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			return resultError(res, core.ErrSetupFailed, "vkEnumerateInstanceLayerProperties")
		}

		// Verify all required layers are available.
		for _, required := range requiredValidationLayerNames {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				if required == cString(availableLayers[j].LayerName[:]) {
					found = true
					break
				}
			}
			if !found {
				err := fmt.Errorf("%w: required validation layer is missing: %s", core.ErrSetupFailed, required)
				core.LogError(err.Error())
				return err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredValidationLayerNames)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &instance); res != vk.Success {
		return resultError(res, core.ErrSetupFailed, "vkCreateInstance")
	}
	vr.context.Instance = instance
	vr.scope.DeferFunc("instance", func() {
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
	})
	if err := vk.InitInstance(instance); err != nil {
		err = fmt.Errorf("%w: %w", core.ErrSetupFailed, err)
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	// Debugger
	if vr.config.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
			PNext:       nil,
		}

		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(instance, &debugCreateInfo, nil, &dbg)); err != nil {
			err = fmt.Errorf("%w: vkCreateDebugReportCallbackEXT: %w", core.ErrSetupFailed, err)
			core.LogError(err.Error())
			return err
		}
		vr.context.debugMessenger = dbg
		vr.scope.DeferFunc("debugger", func() {
			vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		})
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func (vr *VulkanRenderer) createSurface() error {
	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.window.CreateSurface(vr.context.Instance)
	if err != nil || surface == 0 {
		err = fmt.Errorf("%w: vulkan surface creation failed: %v", core.ErrSetupFailed, err)
		core.LogError(err.Error())
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	vr.scope.DeferFunc("surface", func() {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = nil
	})
	core.LogDebug("Vulkan surface created.")
	return nil
}

func (vr *VulkanRenderer) createComputePipeline() (metadata.PipelineHandle, vk.DescriptorSetLayout, error) {
	code, err := vr.shaders.Load(SHADER_PARTICLE_COMPUTE)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", core.ErrSetupFailed, err)
	}
	stage, err := NewShaderStage(vr.context, SHADER_PARTICLE_COMPUTE, code, vk.ShaderStageComputeBit)
	if err != nil {
		return 0, nil, err
	}
	// The module is only needed while the pipeline is built.
	defer stage.Destroy(vr.context)

	layout, err := ComputeDescriptorSetLayoutCreate(vr.context)
	if err != nil {
		return 0, nil, err
	}
	vr.scope.DeferFunc("compute descriptor set layout", func() {
		vk.DestroyDescriptorSetLayout(vr.context.Device.LogicalDevice, layout, vr.context.Allocator)
	})

	pipeline, err := NewComputePipeline(vr.context, stage, []vk.DescriptorSetLayout{layout})
	if err != nil {
		return 0, nil, err
	}
	id := vr.resources.pipelines.Acquire(pipeline)
	vr.scope.Defer("compute pipeline", func() error {
		_ = vr.resources.pipelines.Release(id)
		return pipeline.Destroy(vr.context)
	})
	return metadata.PipelineHandle(id), layout, nil
}

func (vr *VulkanRenderer) loadGraphicsStages() ([]vk.PipelineShaderStageCreateInfo, error) {
	var stages []vk.PipelineShaderStageCreateInfo
	for _, s := range []struct {
		name string
		flag vk.ShaderStageFlagBits
	}{
		{SHADER_PARTICLE_VERTEX, vk.ShaderStageVertexBit},
		{SHADER_PARTICLE_FRAGMENT, vk.ShaderStageFragmentBit},
	} {
		code, err := vr.shaders.Load(s.name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrSetupFailed, err)
		}
		stage, err := NewShaderStage(vr.context, s.name, code, s.flag)
		if err != nil {
			return nil, err
		}
		// Graphics pipelines are rebuilt with the presentation, so the modules stay.
		vr.scope.DeferFunc("shader "+s.name, func() { stage.Destroy(vr.context) })
		stages = append(stages, stage.ShaderStageCreateInfo)
	}
	return stages, nil
}

func (vr *VulkanRenderer) registerBuffer(desc bufferSpec) (metadata.BufferHandle, *VulkanBuffer, error) {
	buffer, err := BufferCreate(vr.context, desc)
	if err != nil {
		return 0, nil, err
	}
	id := vr.resources.buffers.Acquire(buffer)
	vr.scope.DeferFunc("buffer "+desc.name, func() {
		_ = vr.resources.buffers.Release(id)
		buffer.Destroy(vr.context)
	})
	return metadata.BufferHandle(id), buffer, nil
}

func (vr *VulkanRenderer) createParticleBuffers(req metadata.ResourceRequirements, res *renderer.SimulationResources) error {
	families := vr.context.Device.Families
	var concurrent []uint32
	if res.Sharing == metadata.SHARING_MODE_CONCURRENT {
		concurrent = []uint32{families.Graphics, families.Compute}
	}
	usage := vk.BufferUsageStorageBufferBit | vk.BufferUsageVertexBufferBit | vk.BufferUsageTransferDstBit | vk.BufferUsageTransferSrcBit
	for i := 0; i < req.ParticleBuffers; i++ {
		h, _, err := vr.registerBuffer(bufferSpec{
			name:               fmt.Sprintf("particles-%d", i),
			size:               req.BufferSize(),
			usage:              usage,
			memoryFlags:        vk.MemoryPropertyDeviceLocalBit,
			concurrentFamilies: concurrent,
		})
		if err != nil {
			return err
		}
		res.ParticleBuffers = append(res.ParticleBuffers, h)
	}
	vr.particles = res.ParticleBuffers

	if req.Scratch {
		h, _, err := vr.registerBuffer(bufferSpec{
			name:        "scratch",
			size:        req.BufferSize(),
			usage:       vk.BufferUsageStorageBufferBit | vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit,
			memoryFlags: vk.MemoryPropertyDeviceLocalBit,
		})
		if err != nil {
			return err
		}
		res.Scratch = h
		res.HasScratch = true
	}
	return nil
}

// uploadInitialParticles fills every particle buffer and the scratch buffer
// through a staging buffer on the compute queue, then hands the particle
// buffers over to the graphics stage.
func (vr *VulkanRenderer) uploadInitialParticles(req metadata.ResourceRequirements, res *renderer.SimulationResources, protocol *renderer.BarrierProtocol) error {
	data, err := encodeParticles(req.InitialParticles)
	if err != nil {
		err = fmt.Errorf("%w: encoding initial particles: %w", core.ErrSetupFailed, err)
		core.LogError(err.Error())
		return err
	}
	staging, err := BufferCreate(vr.context, bufferSpec{
		name:        "staging",
		size:        req.BufferSize(),
		usage:       vk.BufferUsageTransferSrcBit,
		memoryFlags: vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit,
	})
	if err != nil {
		return err
	}
	defer staging.Destroy(vr.context)
	if err := staging.LoadData(vr.context, data); err != nil {
		return err
	}

	stagingID := vr.resources.buffers.Acquire(staging)
	defer func() { _ = vr.resources.buffers.Release(stagingID) }()

	cb, err := AllocateAndBeginSingleUse(vr.context, vr.context.Device.ComputeCommandPool, vr.resources)
	if err != nil {
		return err
	}
	targets := append([]metadata.BufferHandle(nil), res.ParticleBuffers...)
	if res.HasScratch {
		targets = append(targets, res.Scratch)
	}
	for _, h := range targets {
		cb.CopyBuffer(metadata.BufferHandle(stagingID), h, req.BufferSize())
	}
	for _, h := range res.ParticleBuffers {
		cb.PipelineBarrier(protocol.ToGraphics(h, renderer.TransferWrite))
	}
	if res.HasScratch {
		cb.PipelineBarrier(protocol.Local(res.Scratch, renderer.TransferWrite, renderer.ComputeWrite))
	}
	return cb.EndSingleUse(vr.computeQueue)
}

func (vr *VulkanRenderer) createJobs(req metadata.ResourceRequirements, res *renderer.SimulationResources, setLayout vk.DescriptorSetLayout) error {
	pool, err := DescriptorPoolCreate(vr.context, uint32(req.Jobs))
	if err != nil {
		return err
	}
	vr.scope.DeferFunc("descriptor pool", func() {
		vk.DestroyDescriptorPool(vr.context.Device.LogicalDevice, pool, vr.context.Allocator)
	})

	resolve := func(slot int) (metadata.BufferHandle, error) {
		if slot == metadata.SCRATCH_BUFFER_SLOT {
			if !res.HasScratch {
				return 0, fmt.Errorf("%w: binding table references a missing scratch buffer", core.ErrSetupFailed)
			}
			return res.Scratch, nil
		}
		if slot < 0 || slot >= len(res.ParticleBuffers) {
			return 0, fmt.Errorf("%w: binding table references particle buffer %d of %d", core.ErrSetupFailed, slot, len(res.ParticleBuffers))
		}
		return res.ParticleBuffers[slot], nil
	}

	for i := 0; i < req.Jobs; i++ {
		if i >= len(req.Tables) {
			return fmt.Errorf("%w: no binding table layout for compute job %d", core.ErrSetupFailed, i)
		}
		src, err := resolve(req.Tables[i].Source)
		if err != nil {
			return err
		}
		dst, err := resolve(req.Tables[i].Destination)
		if err != nil {
			return err
		}

		uniforms, err := NewUniformBuffer(vr.context, fmt.Sprintf("uniforms-%d", i))
		if err != nil {
			return err
		}
		vr.scope.DeferFunc(fmt.Sprintf("uniforms %d", i), func() { uniforms.buffer.Destroy(vr.context) })

		srcBuffer, _ := vr.resources.buffers.Get(uint32(src))
		dstBuffer, _ := vr.resources.buffers.Get(uint32(dst))
		table, err := BindingTableCreate(vr.context, pool, setLayout, srcBuffer, dstBuffer, uniforms.buffer)
		if err != nil {
			return err
		}
		tableID := vr.resources.tables.Acquire(table)
		vr.scope.DeferFunc(fmt.Sprintf("binding table %d", i), func() { _ = vr.resources.tables.Release(tableID) })

		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.ComputeCommandPool, vr.resources, fmt.Sprintf("compute-%d", i))
		if err != nil {
			return err
		}
		vr.scope.DeferFunc(cb.Name(), cb.Free)

		// Signaled, the first dispatch must not wait.
		fence, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.scope.DeferFunc(fmt.Sprintf("compute fence %d", i), fence.FenceDestroy)

		finished, err := NewSemaphore(vr.context, fmt.Sprintf("compute-finished-%d", i))
		if err != nil {
			return err
		}
		vr.scope.DeferFunc(finished.Name(), func() { finished.Destroy(vr.context) })

		job := &renderer.ComputeJob{
			Slot:     i,
			Commands: cb,
			Fence:    fence,
			Finished: finished,
			Uniforms: uniforms,
			Table: metadata.BindingTable{
				Handle:      metadata.BindingTableHandle(tableID),
				Source:      src,
				Destination: dst,
			},
		}
		if vr.config.Timestamps && vr.context.Device.TimestampPeriod > 0 {
			timer, err := NewTimer(vr.context)
			if err != nil {
				return err
			}
			vr.scope.DeferFunc(fmt.Sprintf("timer %d", i), timer.Destroy)
			job.Timer = timer
		}
		res.Jobs = append(res.Jobs, job)
	}
	return nil
}

func (vr *VulkanRenderer) createFrames(res *renderer.SimulationResources) error {
	for i := 0; i < VULKAN_MAX_FRAMES_IN_FLIGHT; i++ {
		var semaphores [3]*VulkanSemaphore
		for j, name := range []string{"image-available", "render-finished", "graphics-done"} {
			s, err := NewSemaphore(vr.context, fmt.Sprintf("%s-%d", name, i))
			if err != nil {
				return err
			}
			vr.scope.DeferFunc(s.Name(), func() { s.Destroy(vr.context) })
			semaphores[j] = s
		}

		// Create the fence in a signaled state, indicating that the first frame has already been "rendered".
		// This will prevent the application from waiting indefinitely for the first frame to render since it
		// cannot be rendered until a frame is "rendered" before it.
		fence, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.scope.DeferFunc(fmt.Sprintf("in-flight fence %d", i), fence.FenceDestroy)

		res.Frames = append(res.Frames, renderer.FrameSync{
			ImageAvailable: semaphores[0],
			RenderFinished: semaphores[1],
			GraphicsDone:   semaphores[2],
			InFlight:       fence,
		})
	}
	return nil
}

// RebuildPresentation recreates the swapchain and every object depending on
// it for the current framebuffer size.
func (vr *VulkanRenderer) RebuildPresentation() error {
	if vr.presentation == nil {
		return fmt.Errorf("%w: presentation was never built", core.ErrSetupFailed)
	}
	width, height := vr.window.FramebufferSize()
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: framebuffer is %dx%d", core.ErrSurfaceStale, width, height)
	}
	// Wait for any operations to complete.
	if err := vr.WaitIdle(); err != nil {
		return err
	}
	if err := vr.presentation.destroy(); err != nil {
		return err
	}
	if err := vr.presentation.build(width, height, vr.particles); err != nil {
		return err
	}
	core.LogInfo("Presentation rebuilt for %dx%d.", width, height)
	return nil
}

func (vr *VulkanRenderer) WaitIdle() error {
	if vr.context.Device == nil || vr.context.Device.LogicalDevice == nil {
		return nil
	}
	var errs []error
	for _, q := range []*VulkanQueue{vr.graphicsQueue, vr.presentQueue, vr.computeQueue} {
		if q == nil {
			continue
		}
		if err := q.WaitIdle(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown releases everything in the opposite order of creation.
func (vr *VulkanRenderer) Shutdown() error {
	if vr.context.Device != nil && vr.context.Device.LogicalDevice != nil {
		if res := vk.DeviceWaitIdle(vr.context.Device.LogicalDevice); res != vk.Success {
			core.LogWarn("vkDeviceWaitIdle failed with %s", VulkanResultString(res, false))
		}
	}
	var errs []error
	if vr.presentation != nil {
		errs = append(errs, vr.presentation.destroy())
		vr.presentation = nil
	}
	errs = append(errs, vr.scope.Close())
	return errors.Join(errs...)
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
