package region

import "fmt"

// Region represents a contiguous range of a process's virtual address space
// with uniform protection. A Region is immutable once captured in a Catalog
// snapshot; a later snapshot may contain a different region at the same base.
type Region struct {
	Base  uint64 // Starting address of the region
	Size  uint64 // Size of the region in bytes
	Perms string // Permissions (e.g., "r-xp" for read, execute, private)
	Path  string // Backing file path, empty for anonymous mappings
}

// End returns the first address past the region.
func (r Region) End() uint64 {
	return r.Base + r.Size
}

// Contains reports whether [addr, addr+size) lies entirely within the region.
func (r Region) Contains(addr, size uint64) bool {
	return addr >= r.Base && size <= r.Size && addr-r.Base <= r.Size-size
}

func (r Region) IsReadable() bool {
	return len(r.Perms) > 0 && r.Perms[0] == 'r'
}

func (r Region) IsWritable() bool {
	return len(r.Perms) > 1 && r.Perms[1] == 'w'
}

func (r Region) IsExecutable() bool {
	return len(r.Perms) > 2 && r.Perms[2] == 'x'
}

func (r Region) String() string {
	return fmt.Sprintf("Base: %x, Size: %d, Perms: %s, Path: %s", r.Base, r.Size, r.Perms, r.Path)
}

// Module represents a file-backed module mapped into a process, aggregated
// over all regions sharing the same backing path.
type Module struct {
	Name string // Base name of the backing file
	Path string // Full backing file path
	Base uint64 // Lowest base address of the module's regions
	Size uint64 // Span from Base to the highest region end
}
