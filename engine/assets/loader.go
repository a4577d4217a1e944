package assets

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spaghettifunk/nbody/engine/core"
)

// SPIRV_MAGIC is the first word of every SPIR-V module.
const SPIRV_MAGIC uint32 = 0x07230203

// LoadSPIRV reads a compiled shader from path.
func LoadSPIRV(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSetupFailed, err)
	}
	return DecodeSPIRV(data)
}

// DecodeSPIRV turns a little endian SPIR-V binary into words.
func DecodeSPIRV(data []byte) ([]uint32, error) {
	if len(data) < 4 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: SPIR-V size %d is not a multiple of 4", core.ErrSetupFailed, len(data))
	}
	code := make([]uint32, len(data)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if code[0] != SPIRV_MAGIC {
		return nil, fmt.Errorf("%w: bad SPIR-V magic 0x%08x", core.ErrSetupFailed, code[0])
	}
	return code, nil
}
