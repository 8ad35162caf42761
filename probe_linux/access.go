//go:build linux

// Package probe_linux implements the probe.MemoryAccess seam for Linux using
// procfs for topology and the process_vm_readv/process_vm_writev syscalls for
// raw byte transfer.
package probe_linux

import (
	"fmt"
	"os"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"memprobe/probe"
	"memprobe/probe/region"
)

// Access implements probe.MemoryAccess for Linux.
type Access struct{}

// NewAccess creates the Linux platform access collaborator.
func NewAccess() probe.MemoryAccess {
	return &Access{}
}

// Open opens a process by PID for memory operations.
func (a *Access) Open(pid probe.ProcessID) (probe.Handle, error) {
	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("process with PID %d: %w", pid, probe.ErrNotFound)
	}

	h := &linuxHandle{
		pid: pid,
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("probe-%d", pid))),
	}

	// Probe readability once up front so permission problems surface at open
	// time instead of as per-region failures mid-scan.
	if _, err := h.Regions(); err != nil {
		return nil, err
	}

	h.log.Infoln("Process opened")
	return h, nil
}

// linuxHandle implements probe.Handle for one opened Linux process.
type linuxHandle struct {
	pid    probe.ProcessID
	log    *logger.Logger
	closed bool
}

func (h *linuxHandle) PID() probe.ProcessID {
	return h.pid
}

// Alive reports whether the target process still exists.
func (h *linuxHandle) Alive() bool {
	if h.closed {
		return false
	}
	_, err := os.Stat(fmt.Sprintf("/proc/%d", h.pid))
	return err == nil
}

// Regions enumerates the current memory regions from /proc/[pid]/maps.
func (h *linuxHandle) Regions() ([]region.Region, error) {
	if h.closed {
		return nil, fmt.Errorf("process %d: %w", h.pid, probe.ErrProcessGone)
	}

	regions, err := region.ReadProcessMaps(int(h.pid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("process %d: %w", h.pid, probe.ErrProcessGone)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("process %d maps: %w", h.pid, probe.ErrAccessDenied)
		}
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}

	return regions, nil
}

// Modules aggregates file-backed mappings into modules.
func (h *linuxHandle) Modules() ([]region.Module, error) {
	regions, err := h.Regions()
	if err != nil {
		return nil, err
	}
	return region.ModulesFromRegions(regions), nil
}

func (h *linuxHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.log.Infoln("Process closed")
	return nil
}
