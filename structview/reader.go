package structview

import (
	"encoding/binary"
	"fmt"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"memprobe/probe"
	"memprobe/probe/region"
)

const pointerSize = 8

// HopError reports which pointer-chain hop failed and why.
type HopError struct {
	Hop  int           // Zero-based index of the failed hop
	Addr probe.Address // Address the hop tried to dereference or read
	Err  error
}

func (e *HopError) Error() string {
	return fmt.Sprintf("pointer chain hop %d at %s: %v", e.Hop, e.Addr, e.Err)
}

func (e *HopError) Unwrap() error {
	return e.Err
}

// Reader performs validated typed reads against a live handle. Every read is
// checked for alignment and whole-extent containment in one readable region
// of a fresh catalog snapshot before any bytes are fetched.
type Reader struct {
	h   probe.Handle
	log *logger.Logger
}

// NewReader creates a Reader for a handle.
func NewReader(h probe.Handle) *Reader {
	return &Reader{
		h:   h,
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("view-%d", h.PID()))),
	}
}

func (r *Reader) snapshot() (region.Catalog, error) {
	regions, err := r.h.Regions()
	if err != nil {
		if !r.h.Alive() {
			return region.Catalog{}, fmt.Errorf("process %d: %w", r.h.PID(), probe.ErrProcessGone)
		}
		return region.Catalog{}, fmt.Errorf("failed to enumerate regions: %w", err)
	}
	return region.NewCatalog(regions), nil
}

// Read captures a typed view of [addr, addr+desc.Size). It fails with
// ErrUnaligned if addr violates the descriptor's alignment and with
// ErrOutOfRegion if the extent is not wholly inside one readable region.
func (r *Reader) Read(addr probe.Address, desc Descriptor) (*View, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}

	cat, err := r.snapshot()
	if err != nil {
		return nil, err
	}

	return r.readAt(cat, addr, desc)
}

func (r *Reader) readAt(cat region.Catalog, addr probe.Address, desc Descriptor) (*View, error) {
	if !aligned(uint64(addr), desc.Align) {
		return nil, fmt.Errorf("%w: address %s requires alignment %d", probe.ErrUnaligned, addr, desc.Align)
	}
	if _, ok := cat.FindExtent(uint64(addr), desc.Size); !ok {
		return nil, fmt.Errorf("%w: %s size %d", probe.ErrOutOfRegion, addr, desc.Size)
	}

	data, err := r.h.ReadBytes(addr, probe.Size(desc.Size))
	if err != nil {
		return nil, fmt.Errorf("read %s size %d: %w", addr, desc.Size, err)
	}

	return &View{addr: addr, desc: desc, data: data}, nil
}

// ReadChain walks pointer fields at all offsets except the last, which is a
// raw byte offset into the final struct, then captures a typed view there.
// Every hop is validated against the same fresh catalog snapshot; the chain
// fails at the first invalid hop with a HopError naming it, and never
// attempts later hops.
//
// Example:
//
//	// base -> [ +0 ]ptrA -> [ +24 ]ptrB, view at (ptrB + 144)
//	v, err := r.ReadChain(base, desc, 0, 24, 144)
func (r *Reader) ReadChain(base probe.Address, desc Descriptor, offsets ...uint64) (*View, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}

	cat, err := r.snapshot()
	if err != nil {
		return nil, err
	}

	if len(offsets) == 0 {
		return r.readAt(cat, base, desc)
	}

	current := base
	for i := 0; i < len(offsets)-1; i++ {
		addr := current + probe.Address(offsets[i])

		ptr, err := r.readPointer(cat, addr)
		if err != nil {
			return nil, &HopError{Hop: i, Addr: addr, Err: err}
		}
		if ptr == 0 {
			return nil, &HopError{Hop: i, Addr: addr, Err: fmt.Errorf("%w: null pointer", probe.ErrOutOfRegion)}
		}
		if _, ok := cat.Find(uint64(ptr)); !ok {
			return nil, &HopError{Hop: i, Addr: addr, Err: fmt.Errorf("%w: pointer %s", probe.ErrOutOfRegion, ptr)}
		}

		r.log.Debugln("Chain hop", i, ":", addr.String(), "->", ptr.String())
		current = ptr
	}

	final := current + probe.Address(offsets[len(offsets)-1])
	v, err := r.readAt(cat, final, desc)
	if err != nil {
		return nil, &HopError{Hop: len(offsets) - 1, Addr: final, Err: err}
	}
	return v, nil
}

func (r *Reader) readPointer(cat region.Catalog, addr probe.Address) (probe.Address, error) {
	if _, ok := cat.FindExtent(uint64(addr), pointerSize); !ok {
		return 0, fmt.Errorf("%w: %s size %d", probe.ErrOutOfRegion, addr, pointerSize)
	}
	data, err := r.h.ReadBytes(addr, pointerSize)
	if err != nil {
		return 0, err
	}
	return probe.Address(binary.LittleEndian.Uint64(data)), nil
}
