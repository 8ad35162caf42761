//go:build linux

package probe_linux

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"memprobe/probe"
)

// processVMWritev writes memory into another process in a single syscall.
func processVMWritev(pid probe.ProcessID, remoteAddr probe.Address, data []byte) error {
	localIov := unix.Iovec{
		Base: &data[0],
		Len:  uint64(len(data)),
	}
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(data),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
		uintptr(pid),
		uintptr(unsafe.Pointer(&localIov)),
		uintptr(1),
		uintptr(unsafe.Pointer(&remoteIov)),
		uintptr(1),
		uintptr(0),
	)

	if errno != 0 {
		return fmt.Errorf("process_vm_writev: %w", mapErrno(errno))
	}
	if int(n) != len(data) {
		return fmt.Errorf("process_vm_writev: partial write %d of %d bytes: %w", n, len(data), probe.ErrOutOfRegion)
	}

	return nil
}

// WriteBytes writes data into the process at addr.
func (h *linuxHandle) WriteBytes(addr probe.Address, data []byte) error {
	if h.closed {
		return fmt.Errorf("process %d: %w", h.pid, probe.ErrProcessGone)
	}
	if len(data) == 0 {
		return nil
	}

	if err := processVMWritev(h.pid, addr, data); err != nil {
		return fmt.Errorf("write %s size %d: %w", addr, len(data), err)
	}

	h.log.Debugln("Wrote", len(data), "bytes at", addr.String())
	return nil
}
