package vulkan

import (
	"fmt"
	"sort"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

type VulkanDevice struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	SwapchainSupport VulkanSwapchainSupportInfo

	Families metadata.QueueFamilyIndices

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	ComputeQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool
	ComputeCommandPool  vk.CommandPool

	Name       string
	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties

	// Nanoseconds per timestamp tick. Zero when the compute family cannot write timestamps.
	TimestampPeriod float32
}

/** @brief What a queue family of a physical device can do. */
type queueFamilyCaps struct {
	Graphics           bool
	Compute            bool
	Transfer           bool
	Present            bool
	TimestampValidBits uint32
}

// pickQueueFamilies selects the graphics, present and compute families. A
// compute family without graphics support is preferred so that compute
// work runs on its own queue.
func pickQueueFamilies(families []queueFamilyCaps) (metadata.QueueFamilyIndices, bool) {
	const none = ^uint32(0)
	indices := metadata.QueueFamilyIndices{Graphics: none, Present: none, Compute: none}

	for i, f := range families {
		if f.Graphics && indices.Graphics == none {
			indices.Graphics = uint32(i)
		}
	}
	if indices.Graphics == none {
		return indices, false
	}

	// Present on the graphics family when possible.
	if families[indices.Graphics].Present {
		indices.Present = indices.Graphics
	} else {
		for i, f := range families {
			if f.Present {
				indices.Present = uint32(i)
				break
			}
		}
	}

	for i, f := range families {
		if f.Compute && !f.Graphics {
			indices.Compute = uint32(i)
			break
		}
	}
	if indices.Compute == none && families[indices.Graphics].Compute {
		indices.Compute = indices.Graphics
	}
	return indices, indices.Present != none && indices.Compute != none
}

type deviceCandidate struct {
	index    int
	name     string
	vendorID uint32
	discrete bool
}

// rankDevices orders candidates by preference: the requested vendor, then
// discrete GPUs, then the vendors known to run the simulation well.
func rankDevices(candidates []deviceCandidate, preferredVendor uint32) []deviceCandidate {
	score := func(c deviceCandidate) int {
		s := 0
		if preferredVendor != 0 && c.vendorID == preferredVendor {
			s += 1000
		}
		if c.discrete {
			s += 100
		}
		if c.vendorID == VENDOR_ID_AMD || c.vendorID == VENDOR_ID_NVIDIA {
			s += 10
		}
		return s
	}
	ranked := append([]deviceCandidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})
	return ranked
}

func DeviceCreate(context *VulkanContext, preferredVendor uint32) error {
	if err := SelectPhysicalDevice(context, preferredVendor); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	families := context.Device.Families
	indices := []uint32{families.Graphics}
	if families.Present != families.Graphics {
		indices = append(indices, families.Present)
	}
	if families.Compute != families.Graphics && families.Compute != families.Present {
		indices = append(indices, families.Compute)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i].SType = vk.StructureTypeDeviceQueueCreateInfo
		queueCreateInfos[i].QueueFamilyIndex = indices[i]
		queueCreateInfos[i].QueueCount = 1
		queueCreateInfos[i].Flags = 0
		queueCreateInfos[i].PNext = nil
		queueCreateInfos[i].PQueuePriorities = []float32{1.0}
	}

	portabilityRequired := false
	var availableExtensionCount uint32 = 0
	if res := vk.EnumerateDeviceExtensionProperties(context.Device.PhysicalDevice, "", &availableExtensionCount, nil); res != vk.Success {
		return resultError(res, core.ErrSetupFailed, "vkEnumerateDeviceExtensionProperties")
	}
	if availableExtensionCount != 0 {
		availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
		if res := vk.EnumerateDeviceExtensionProperties(context.Device.PhysicalDevice, "", &availableExtensionCount, availableExtensions); res != vk.Success {
			return resultError(res, core.ErrSetupFailed, "vkEnumerateDeviceExtensionProperties")
		}
		for i := range availableExtensions {
			availableExtensions[i].Deref()
			if cString(availableExtensions[i].ExtensionName[:]) == "VK_KHR_portability_subset" {
				core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
				portabilityRequired = true
				break
			}
		}
	}

	extensionNames := []string{VulkanSafeString(vk.KhrSwapchainExtensionName)}
	if portabilityRequired {
		extensionNames = append(extensionNames, VulkanSafeString("VK_KHR_portability_subset"))
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: extensionNames,
		// Deprecated and ignored, so pass nothing.
		EnabledLayerCount:   0,
		PpEnabledLayerNames: nil,
	}

	var device vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device); res != vk.Success {
		return resultError(res, core.ErrSetupFailed, "vkCreateDevice")
	}
	context.Device.LogicalDevice = device
	core.LogInfo("Logical device created.")

	// Get queues.
	var queue vk.Queue
	vk.GetDeviceQueue(device, families.Graphics, 0, &queue)
	context.Device.GraphicsQueue = queue
	vk.GetDeviceQueue(device, families.Present, 0, &queue)
	context.Device.PresentQueue = queue
	vk.GetDeviceQueue(device, families.Compute, 0, &queue)
	context.Device.ComputeQueue = queue
	core.LogInfo("Queues obtained.")

	// Command buffers of both pools are reset individually when re-recorded.
	graphicsPool, err := createCommandPool(context, families.Graphics)
	if err != nil {
		return err
	}
	context.Device.GraphicsCommandPool = graphicsPool
	core.LogInfo("Graphics command pool created.")

	computePool, err := createCommandPool(context, families.Compute)
	if err != nil {
		return err
	}
	context.Device.ComputeCommandPool = computePool
	core.LogInfo("Compute command pool created.")

	return nil
}

func createCommandPool(context *VulkanContext, family uint32) (vk.CommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		return nil, resultError(res, core.ErrSetupFailed, "vkCreateCommandPool")
	}
	return pool, nil
}

func DeviceDestroy(context *VulkanContext) {
	if context.Device == nil {
		return
	}
	// Unset queues
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil
	context.Device.ComputeQueue = nil

	core.LogInfo("Destroying command pools...")
	if context.Device.GraphicsCommandPool != nil {
		vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, context.Allocator)
		context.Device.GraphicsCommandPool = nil
	}
	if context.Device.ComputeCommandPool != nil {
		vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.ComputeCommandPool, context.Allocator)
		context.Device.ComputeCommandPool = nil
	}

	// Destroy logical device
	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = VulkanSwapchainSupportInfo{}
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	// Surface capabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return resultError(res, core.ErrSetupFailed, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR")
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	// Surface formats
	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return resultError(res, core.ErrSetupFailed, "vkGetPhysicalDeviceSurfaceFormatsKHR")
	}
	supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
	if formatCount != 0 {
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); res != vk.Success {
			return resultError(res, core.ErrSetupFailed, "vkGetPhysicalDeviceSurfaceFormatsKHR")
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	// Present modes
	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return resultError(res, core.ErrSetupFailed, "vkGetPhysicalDeviceSurfacePresentModesKHR")
	}
	supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
	if presentModeCount != 0 {
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			return resultError(res, core.ErrSetupFailed, "vkGetPhysicalDeviceSurfacePresentModesKHR")
		}
	}
	return nil
}

func queryQueueFamilies(device vk.PhysicalDevice, surface vk.Surface) ([]queueFamilyCaps, error) {
	var queueFamilyCount uint32 = 0
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	caps := make([]queueFamilyCaps, queueFamilyCount)
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		flags := vk.QueueFlagBits(queueFamilies[i].QueueFlags)
		caps[i].Graphics = flags&vk.QueueGraphicsBit != 0
		caps[i].Compute = flags&vk.QueueComputeBit != 0
		caps[i].Transfer = flags&vk.QueueTransferBit != 0
		caps[i].TimestampValidBits = queueFamilies[i].TimestampValidBits

		var supportsPresent vk.Bool32 = vk.False
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return nil, resultError(res, core.ErrSetupFailed, "vkGetPhysicalDeviceSurfaceSupportKHR")
		}
		caps[i].Present = supportsPresent == vk.True
	}
	return caps, nil
}

func SelectPhysicalDevice(context *VulkanContext, preferredVendor uint32) error {
	var physicalDeviceCount uint32 = 0
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return resultError(res, core.ErrSetupFailed, "vkEnumeratePhysicalDevices")
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("%w: no devices which support Vulkan were found", core.ErrSetupFailed)
		core.LogError(err.Error())
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return resultError(res, core.ErrSetupFailed, "vkEnumeratePhysicalDevices")
	}

	candidates := make([]deviceCandidate, 0, physicalDeviceCount)
	properties := make([]vk.PhysicalDeviceProperties, physicalDeviceCount)
	for i := range physicalDevices {
		vk.GetPhysicalDeviceProperties(physicalDevices[i], &properties[i])
		properties[i].Deref()
		candidates = append(candidates, deviceCandidate{
			index:    i,
			name:     cString(properties[i].DeviceName[:]),
			vendorID: properties[i].VendorID,
			discrete: properties[i].DeviceType == vk.PhysicalDeviceTypeDiscreteGpu,
		})
	}

	for _, candidate := range rankDevices(candidates, preferredVendor) {
		physicalDevice := physicalDevices[candidate.index]
		caps, err := queryQueueFamilies(physicalDevice, context.Surface)
		if err != nil {
			return err
		}
		families, ok := pickQueueFamilies(caps)
		if !ok {
			core.LogInfo("Device '%s' lacks a graphics, present or compute queue, skipping.", candidate.name)
			continue
		}

		var support VulkanSwapchainSupportInfo
		if err := DeviceQuerySwapchainSupport(physicalDevice, context.Surface, &support); err != nil {
			return err
		}
		if len(support.Formats) < 1 || len(support.PresentModes) < 1 {
			core.LogInfo("Required swapchain support not present on '%s', skipping device.", candidate.name)
			continue
		}

		props := properties[candidate.index]
		props.Limits.Deref()

		context.Device.PhysicalDevice = physicalDevice
		context.Device.Families = families
		context.Device.SwapchainSupport = support
		context.Device.Name = candidate.name
		context.Device.Properties = props
		if caps[families.Compute].TimestampValidBits > 0 {
			context.Device.TimestampPeriod = props.Limits.TimestampPeriod
		}

		memory := vk.PhysicalDeviceMemoryProperties{}
		vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memory)
		memory.Deref()
		context.Device.Memory = memory

		core.LogInfo("Selected device: '%s' (vendor 0x%04X).", candidate.name, candidate.vendorID)
		core.LogInfo(
			"GPU Driver version: %d.%d.%d",
			vk.Version(props.DriverVersion).Major(),
			vk.Version(props.DriverVersion).Minor(),
			vk.Version(props.DriverVersion).Patch(),
		)
		core.LogDebug("Graphics Family Index: %d", families.Graphics)
		core.LogDebug("Present Family Index:  %d", families.Present)
		core.LogDebug("Compute Family Index:  %d", families.Compute)
		return nil
	}

	err := fmt.Errorf("%w: no physical devices were found which meet the requirements", core.ErrSetupFailed)
	core.LogError(err.Error())
	return err
}
