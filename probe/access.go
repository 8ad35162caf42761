package probe

import (
	"memprobe/probe/region"
)

// MemoryAccess is the platform seam. It is the only place raw OS access to a
// foreign process occurs; everything above it works in terms of Handle.
type MemoryAccess interface {
	// Open opens the process with the given PID for memory operations
	Open(pid ProcessID) (Handle, error)
}

// Handle is an opened target process. All reads and writes are bounds-checked
// byte operations; a short read is reported as an error, never as truncated
// data. Concurrent ReadBytes calls on one Handle are safe.
type Handle interface {
	// PID returns the process ID the handle was opened for
	PID() ProcessID

	// Alive reports whether the target process still exists
	Alive() bool

	// ReadBytes reads exactly size bytes at addr
	ReadBytes(addr Address, size Size) ([]byte, error)

	// WriteBytes writes data at addr
	WriteBytes(addr Address, data []byte) error

	// Regions enumerates the current memory regions of the process
	Regions() ([]region.Region, error)

	// Modules enumerates the file-backed modules mapped into the process
	Modules() ([]region.Module, error)

	// Close releases the handle; the handle is invalid afterwards
	Close() error
}
