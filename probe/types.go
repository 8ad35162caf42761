package probe

import (
	"fmt"
)

// ProcessID represents a unique identifier for a target process
type ProcessID int

// Address represents a memory address within a target process
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("0x%X", uint64(a))
}

// Size represents a size of memory in bytes
type Size uint64
