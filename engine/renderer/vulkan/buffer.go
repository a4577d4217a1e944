package vulkan

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	Usage  vk.BufferUsageFlags
	Name   string
	// Host address of the memory while it is mapped.
	mapped unsafe.Pointer
}

/** @brief Describes a buffer to create. */
type bufferSpec struct {
	name        string
	size        uint64
	usage       vk.BufferUsageFlagBits
	memoryFlags vk.MemoryPropertyFlagBits
	// Families sharing the buffer concurrently. Fewer than two distinct
	// families leave the buffer exclusively owned.
	concurrentFamilies []uint32
}

// distinctFamilies removes duplicated family indices, keeping the order.
func distinctFamilies(families []uint32) []uint32 {
	var out []uint32
	for _, f := range families {
		seen := false
		for _, o := range out {
			if o == f {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, f)
		}
	}
	return out
}

func BufferCreate(context *VulkanContext, desc bufferSpec) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{
		Size:  desc.size,
		Usage: vk.BufferUsageFlags(desc.usage),
		Name:  desc.name,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.size),
		Usage:       vk.BufferUsageFlags(desc.usage),
		SharingMode: vk.SharingModeExclusive,
	}
	if families := distinctFamilies(desc.concurrentFamilies); len(families) > 1 {
		bufferInfo.SharingMode = vk.SharingModeConcurrent
		bufferInfo.QueueFamilyIndexCount = uint32(len(families))
		bufferInfo.PQueueFamilyIndices = families
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &handle); res != vk.Success {
		return nil, resultError(res, core.ErrSetupFailed, "vkCreateBuffer "+desc.name)
	}
	buffer.Handle = handle

	// Gather memory requirements.
	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, handle, &requirements)
	requirements.Deref()

	memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(desc.memoryFlags))
	if memoryIndex == -1 {
		buffer.Destroy(context)
		err := fmt.Errorf("%w: unable to create buffer %s because the required memory type index was not found", core.ErrSetupFailed, desc.name)
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		buffer.Destroy(context)
		return nil, resultError(res, core.ErrSetupFailed, "vkAllocateMemory "+desc.name)
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, handle, memory, 0); res != vk.Success {
		buffer.Destroy(context)
		return nil, resultError(res, core.ErrSetupFailed, "vkBindBufferMemory "+desc.name)
	}
	return buffer, nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	if b.mapped != nil {
		b.Unmap(context)
	}
	if b.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = nil
	}
	if b.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = nil
	}
	b.Size = 0
}

// Map keeps the whole buffer mapped until Unmap. The memory must be host visible.
func (b *VulkanBuffer) Map(context *VulkanContext) (unsafe.Pointer, error) {
	if b.mapped != nil {
		return b.mapped, nil
	}
	var data unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, 0, vk.DeviceSize(b.Size), 0, &data); res != vk.Success {
		return nil, resultError(res, core.ErrSetupFailed, "vkMapMemory "+b.Name)
	}
	b.mapped = data
	return data, nil
}

func (b *VulkanBuffer) Unmap(context *VulkanContext) {
	if b.mapped == nil {
		return
	}
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	b.mapped = nil
}

// LoadData copies data into a host visible buffer.
func (b *VulkanBuffer) LoadData(context *VulkanContext, data []byte) error {
	if uint64(len(data)) > b.Size {
		err := fmt.Errorf("%w: %d bytes do not fit buffer %s of %d bytes", core.ErrSetupFailed, len(data), b.Name, b.Size)
		core.LogError(err.Error())
		return err
	}
	wasMapped := b.mapped != nil
	ptr, err := b.Map(context)
	if err != nil {
		return err
	}
	vk.Memcopy(ptr, data)
	if !wasMapped {
		b.Unmap(context)
	}
	return nil
}

// encodeParticles lays particles out like the storage buffer of the compute shader.
func encodeParticles(particles []metadata.Particle) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(particles)*metadata.ParticleSize))
	if err := binary.Write(buf, binary.LittleEndian, particles); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeUniforms lays u out like the std140 uniform block of the compute shader.
func encodeUniforms(u metadata.ComputeUniforms) []byte {
	out := make([]byte, metadata.ComputeUniformsSize)
	binary.LittleEndian.PutUint32(out[0:], math.Float32bits(u.DeltaT))
	binary.LittleEndian.PutUint32(out[4:], math.Float32bits(u.DestX))
	binary.LittleEndian.PutUint32(out[8:], math.Float32bits(u.DestY))
	binary.LittleEndian.PutUint32(out[12:], u.ParticleCount)
	return out
}
