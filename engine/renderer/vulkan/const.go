package vulkan

import (
	"fmt"
	"strings"
)

// Frames the host may record ahead of the device.
const VULKAN_MAX_FRAMES_IN_FLIGHT = 2

// Bindings of the particle compute shader.
const (
	COMPUTE_BINDING_SOURCE      uint32 = 0
	COMPUTE_BINDING_DESTINATION uint32 = 1
	COMPUTE_BINDING_UNIFORMS    uint32 = 2
	COMPUTE_BINDING_COUNT       uint32 = 3
)

// PCI vendor identifiers used for the device preference.
const (
	VENDOR_ID_AMD    uint32 = 0x1002
	VENDOR_ID_NVIDIA uint32 = 0x10DE
)

const (
	SHADER_PARTICLE_COMPUTE  = "particle.comp"
	SHADER_PARTICLE_VERTEX   = "particle.vert"
	SHADER_PARTICLE_FRAGMENT = "particle.frag"
)

// VendorID maps a vendor name as given on the command line to its PCI id.
// An empty name means no preference.
func VendorID(name string) (uint32, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "any":
		return 0, nil
	case "amd":
		return VENDOR_ID_AMD, nil
	case "nvidia":
		return VENDOR_ID_NVIDIA, nil
	}
	return 0, fmt.Errorf("unknown vendor %q (expected amd or nvidia)", name)
}
