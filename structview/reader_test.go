package structview

import (
	"encoding/binary"
	"errors"
	"sync/atomic"
	"testing"

	"memprobe/probe"
	"memprobe/probe/region"
)

// memHandle implements probe.Handle over a single in-memory address space.
type memHandle struct {
	regions []region.Region
	data    map[uint64][]byte // Region base -> bytes
	reads   atomic.Int64
}

func newMemHandle() *memHandle {
	return &memHandle{data: make(map[uint64][]byte)}
}

func (m *memHandle) addRegion(base uint64, data []byte, perms string) {
	m.regions = append(m.regions, region.Region{Base: base, Size: uint64(len(data)), Perms: perms})
	m.data[base] = data
}

func (m *memHandle) PID() probe.ProcessID { return 99 }
func (m *memHandle) Alive() bool          { return true }

func (m *memHandle) ReadBytes(addr probe.Address, size probe.Size) ([]byte, error) {
	m.reads.Add(1)
	for _, r := range m.regions {
		if r.Contains(uint64(addr), uint64(size)) {
			off := uint64(addr) - r.Base
			out := make([]byte, size)
			copy(out, m.data[r.Base][off:off+uint64(size)])
			return out, nil
		}
	}
	return nil, probe.ErrOutOfRegion
}

func (m *memHandle) WriteBytes(addr probe.Address, data []byte) error {
	return probe.ErrAccessDenied
}

func (m *memHandle) Regions() ([]region.Region, error) {
	out := make([]region.Region, len(m.regions))
	copy(out, m.regions)
	return out, nil
}

func (m *memHandle) Modules() ([]region.Module, error) {
	return region.ModulesFromRegions(m.regions), nil
}

func (m *memHandle) Close() error { return nil }

func put64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:], v)
}

func TestReadTypedValue(t *testing.T) {
	data := make([]byte, 32)
	put64(data, 0, 7)
	put64(data, 8, 0x2000)
	binary.LittleEndian.PutUint32(data[16:], 0xCAFE)

	h := newMemHandle()
	h.addRegion(0x1000, data, "r--p")

	type header struct {
		RefCount int64
		TypePtr  uintptr
		Flags    uint32
		Pad      uint32
	}
	desc, err := DescriptorFor(header{})
	if err != nil {
		t.Fatal(err)
	}

	v, err := NewReader(h).Read(0x1000, desc)
	if err != nil {
		t.Fatal(err)
	}

	if got, err := v.Int64(0); err != nil || got != 7 {
		t.Fatalf("Int64(0) = %d, %v; want 7", got, err)
	}
	if got, err := v.Field("TypePtr"); err != nil || got.(probe.Address) != 0x2000 {
		t.Fatalf("Field(TypePtr) = %v, %v; want 0x2000", got, err)
	}
	if got, err := v.Field("Flags"); err != nil || got.(uint32) != 0xCAFE {
		t.Fatalf("Field(Flags) = %v, %v; want 0xCAFE", got, err)
	}
}

func TestReadUnaligned(t *testing.T) {
	h := newMemHandle()
	h.addRegion(0x1000, make([]byte, 64), "r--p")
	r := NewReader(h)

	for _, align := range []uint64{1, 2, 4, 8} {
		desc := Descriptor{Size: 8, Align: align}
		for offset := uint64(0); offset < 8; offset++ {
			addr := probe.Address(0x1000 + offset)
			_, err := r.Read(addr, desc)
			if offset%align != 0 {
				if !errors.Is(err, probe.ErrUnaligned) {
					t.Fatalf("align %d addr %s: err = %v, want ErrUnaligned", align, addr, err)
				}
			} else if err != nil {
				t.Fatalf("align %d addr %s: unexpected err %v", align, addr, err)
			}
		}
	}
}

func TestReadOutOfRegion(t *testing.T) {
	h := newMemHandle()
	h.addRegion(0x1000, make([]byte, 16), "r--p")
	h.addRegion(0x1010, make([]byte, 16), "r--p")
	r := NewReader(h)

	desc := Descriptor{Size: 8, Align: 1}

	// Extent straddling two adjacent regions must be rejected before reading.
	if _, err := r.Read(0x100C, desc); !errors.Is(err, probe.ErrOutOfRegion) {
		t.Fatalf("err = %v, want ErrOutOfRegion", err)
	}

	// Unmapped address.
	if _, err := r.Read(0x9000, desc); !errors.Is(err, probe.ErrOutOfRegion) {
		t.Fatalf("err = %v, want ErrOutOfRegion", err)
	}
}

func TestReadChain(t *testing.T) {
	// base region: pointer at base+8 -> 0x2000
	// second region: pointer at 0x2000+16 -> 0x3000
	// third region: value 0x42 at 0x3000+4
	base := make([]byte, 32)
	put64(base, 8, 0x2000)
	second := make([]byte, 32)
	put64(second, 16, 0x3000)
	third := make([]byte, 32)
	binary.LittleEndian.PutUint32(third[4:], 0x42)

	h := newMemHandle()
	h.addRegion(0x1000, base, "r--p")
	h.addRegion(0x2000, second, "r--p")
	h.addRegion(0x3000, third, "r--p")

	desc := Descriptor{Size: 4, Align: 4, Fields: []Field{{Name: "Value", Offset: 0, Kind: Uint32}}}

	v, err := NewReader(h).ReadChain(0x1000, desc, 8, 16, 4)
	if err != nil {
		t.Fatal(err)
	}
	if v.Addr() != 0x3004 {
		t.Fatalf("Addr = %s, want 0x3004", v.Addr())
	}
	if got, err := v.Uint32(0); err != nil || got != 0x42 {
		t.Fatalf("Uint32(0) = %#x, %v; want 0x42", got, err)
	}
}

func TestReadChainFailsAtFirstHop(t *testing.T) {
	// The pointer at base+0 leads outside any known region; the chain must
	// fail at hop 0 and never attempt hop 1.
	base := make([]byte, 16)
	put64(base, 0, 0xDEAD0000)

	h := newMemHandle()
	h.addRegion(0x1000, base, "r--p")

	readsBefore := h.reads.Load()
	_, err := NewReader(h).ReadChain(0x1000, Descriptor{Size: 4, Align: 1}, 0, 8)

	var hop *HopError
	if !errors.As(err, &hop) {
		t.Fatalf("err = %v, want HopError", err)
	}
	if hop.Hop != 0 {
		t.Fatalf("Hop = %d, want 0", hop.Hop)
	}
	if !errors.Is(err, probe.ErrOutOfRegion) {
		t.Fatalf("err = %v, want wrapped ErrOutOfRegion", err)
	}
	// One read resolves the hop-0 pointer; no further read may follow.
	if got := h.reads.Load() - readsBefore; got != 1 {
		t.Fatalf("reads = %d, want 1", got)
	}
}

func TestReadChainNullPointer(t *testing.T) {
	h := newMemHandle()
	h.addRegion(0x1000, make([]byte, 16), "r--p")

	_, err := NewReader(h).ReadChain(0x1000, Descriptor{Size: 4, Align: 1}, 0, 8)

	var hop *HopError
	if !errors.As(err, &hop) {
		t.Fatalf("err = %v, want HopError", err)
	}
	if hop.Hop != 0 {
		t.Fatalf("Hop = %d, want 0", hop.Hop)
	}
}

func TestReadChainNoOffsets(t *testing.T) {
	data := make([]byte, 8)
	put64(data, 0, 1234)

	h := newMemHandle()
	h.addRegion(0x1000, data, "r--p")

	v, err := NewReader(h).ReadChain(0x1000, Descriptor{Size: 8, Align: 8})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := v.Uint64(0); got != 1234 {
		t.Fatalf("Uint64(0) = %d, want 1234", got)
	}
}

func TestViewBounds(t *testing.T) {
	v := &View{addr: 0x1000, data: []byte{1, 2, 3, 4}}

	if _, err := v.Uint32(0); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Uint32(1); !errors.Is(err, probe.ErrOutOfRegion) {
		t.Fatalf("err = %v, want ErrOutOfRegion", err)
	}
	if _, err := v.Uint64(0); !errors.Is(err, probe.ErrOutOfRegion) {
		t.Fatalf("err = %v, want ErrOutOfRegion", err)
	}
}

func TestViewNTS(t *testing.T) {
	v := &View{addr: 0x1000, data: []byte{'t', 'y', 'p', 'e', 0, 'x', 'y'}}

	s, err := v.NTS(0, 16)
	if err != nil {
		t.Fatal(err)
	}
	if s != "type" {
		t.Fatalf("NTS = %q, want %q", s, "type")
	}

	// No terminator within range: the whole window is returned.
	s, err = v.NTS(5, 16)
	if err != nil {
		t.Fatal(err)
	}
	if s != "xy" {
		t.Fatalf("NTS = %q, want %q", s, "xy")
	}
}
