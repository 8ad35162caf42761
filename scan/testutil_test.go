package scan

import (
	"fmt"
	"sync/atomic"

	"memprobe/probe"
	"memprobe/probe/region"
)

func regionAt(base, size uint64, perms, path string) region.Region {
	return region.Region{Base: base, Size: size, Perms: perms, Path: path}
}

// fakeRegion is one in-memory region served by fakeHandle.
type fakeRegion struct {
	region.Region
	data     []byte
	failRead bool
}

// fakeHandle implements probe.Handle over synthetic in-memory regions.
type fakeHandle struct {
	pid     probe.ProcessID
	regions []fakeRegion
	dead    atomic.Bool
	reads   atomic.Int64
}

func newFakeHandle(pid probe.ProcessID, regions ...fakeRegion) *fakeHandle {
	return &fakeHandle{pid: pid, regions: regions}
}

func (f *fakeHandle) PID() probe.ProcessID { return f.pid }

func (f *fakeHandle) Alive() bool { return !f.dead.Load() }

func (f *fakeHandle) ReadBytes(addr probe.Address, size probe.Size) ([]byte, error) {
	f.reads.Add(1)
	if f.dead.Load() {
		return nil, probe.ErrProcessGone
	}
	for _, r := range f.regions {
		if !r.Contains(uint64(addr), uint64(size)) {
			continue
		}
		if r.failRead {
			return nil, probe.ErrAccessDenied
		}
		off := uint64(addr) - r.Base
		out := make([]byte, size)
		copy(out, r.data[off:off+uint64(size)])
		return out, nil
	}
	return nil, probe.ErrOutOfRegion
}

func (f *fakeHandle) WriteBytes(addr probe.Address, data []byte) error {
	for _, r := range f.regions {
		if r.Contains(uint64(addr), uint64(len(data))) {
			copy(r.data[uint64(addr)-r.Base:], data)
			return nil
		}
	}
	return probe.ErrOutOfRegion
}

func (f *fakeHandle) Regions() ([]region.Region, error) {
	if f.dead.Load() {
		return nil, fmt.Errorf("enumerate regions: %w", probe.ErrProcessGone)
	}
	out := make([]region.Region, len(f.regions))
	for i, r := range f.regions {
		out[i] = r.Region
	}
	return out, nil
}

func (f *fakeHandle) Modules() ([]region.Module, error) {
	regs, err := f.Regions()
	if err != nil {
		return nil, err
	}
	return region.ModulesFromRegions(regs), nil
}

func (f *fakeHandle) Close() error {
	f.dead.Store(true)
	return nil
}
