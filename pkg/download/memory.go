package download

import (
	"github.com/shirou/gopsutil/mem"
)

const (
	// MemoryCutoff is the share of available memory a single transfer may
	// buffer at once.
	MemoryCutoff = 0.75
	// StreamChunkSize is the copy buffer used for transfers that do not fit
	// below the cutoff or whose size is unknown.
	StreamChunkSize = 4 << 20
	// MaxBufferSize caps the buffer of transfers that do fit.
	MaxBufferSize = 256 << 20
	minBufferSize = 32 << 10
)

// AvailableMemory returns the memory the system can hand out without swapping.
func AvailableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// ChunkSize picks the copy buffer for a transfer of size bytes given the
// available memory. Transfers below the cutoff are read in as few chunks as
// possible, everything else is streamed in StreamChunkSize pieces.
func ChunkSize(size int64, available uint64) int {
	if size <= 0 || float64(size) >= float64(available)*MemoryCutoff {
		return StreamChunkSize
	}
	return int(min(max(size, minBufferSize), MaxBufferSize))
}
