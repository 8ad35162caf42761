//go:build linux

package probe_linux

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"memprobe/probe"
)

// processVMReadv reads memory from another process in a single syscall
// without attaching a debugger to it.
func processVMReadv(pid probe.ProcessID, remoteAddr probe.Address, size probe.Size) ([]byte, error) {
	buf := make([]byte, size)

	localIov := unix.Iovec{
		Base: &buf[0],
		Len:  uint64(size),
	}
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  int(size),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),
		uintptr(unsafe.Pointer(&localIov)),
		uintptr(1),
		uintptr(unsafe.Pointer(&remoteIov)),
		uintptr(1),
		uintptr(0),
	)

	if errno != 0 {
		return nil, fmt.Errorf("process_vm_readv: %w", mapErrno(errno))
	}

	// A short read means the tail of the range is not readable; callers must
	// never mistake truncated data for valid data.
	if probe.Size(n) != size {
		return nil, fmt.Errorf("process_vm_readv: partial read %d of %d bytes: %w", n, size, probe.ErrOutOfRegion)
	}

	return buf, nil
}

// mapErrno translates syscall errors into the probe error taxonomy.
func mapErrno(errno unix.Errno) error {
	switch errno {
	case unix.ESRCH:
		return fmt.Errorf("%w (%v)", probe.ErrProcessGone, errno)
	case unix.EPERM, unix.EACCES:
		return fmt.Errorf("%w (%v)", probe.ErrAccessDenied, errno)
	case unix.EFAULT, unix.EIO:
		return fmt.Errorf("%w (%v)", probe.ErrOutOfRegion, errno)
	}
	return errno
}

// ReadBytes reads exactly size bytes from the process at addr.
func (h *linuxHandle) ReadBytes(addr probe.Address, size probe.Size) ([]byte, error) {
	if h.closed {
		return nil, fmt.Errorf("process %d: %w", h.pid, probe.ErrProcessGone)
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-length read at %s", probe.ErrOutOfRegion, addr)
	}

	data, err := processVMReadv(h.pid, addr, size)
	if err != nil {
		return nil, fmt.Errorf("read %s size %d: %w", addr, size, err)
	}
	return data, nil
}
