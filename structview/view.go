package structview

import (
	"encoding/binary"
	"fmt"
	"math"

	"memprobe/probe"
)

// View is an independent, validated copy of target memory. It never aliases
// live memory of the target; every accessor decodes from the captured bytes.
type View struct {
	addr probe.Address
	desc Descriptor
	data []byte
}

// Addr returns the address the view was captured from.
func (v *View) Addr() probe.Address {
	return v.addr
}

// Data returns the raw captured bytes.
func (v *View) Data() []byte {
	return v.data
}

func (v *View) slice(off, size uint64) ([]byte, error) {
	if off > uint64(len(v.data)) || size > uint64(len(v.data))-off {
		return nil, fmt.Errorf("%w: offset %d size %d in view of %d bytes", probe.ErrOutOfRegion, off, size, len(v.data))
	}
	return v.data[off : off+size], nil
}

// Uint8 decodes an unsigned 8-bit integer at the given view offset.
func (v *View) Uint8(off uint64) (uint8, error) {
	b, err := v.slice(off, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 decodes an unsigned 16-bit integer at the given view offset.
func (v *View) Uint16(off uint64) (uint16, error) {
	b, err := v.slice(off, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 decodes an unsigned 32-bit integer at the given view offset.
func (v *View) Uint32(off uint64) (uint32, error) {
	b, err := v.slice(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 decodes an unsigned 64-bit integer at the given view offset.
func (v *View) Uint64(off uint64) (uint64, error) {
	b, err := v.slice(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Int8 decodes a signed 8-bit integer at the given view offset.
func (v *View) Int8(off uint64) (int8, error) {
	u, err := v.Uint8(off)
	return int8(u), err
}

// Int16 decodes a signed 16-bit integer at the given view offset.
func (v *View) Int16(off uint64) (int16, error) {
	u, err := v.Uint16(off)
	return int16(u), err
}

// Int32 decodes a signed 32-bit integer at the given view offset.
func (v *View) Int32(off uint64) (int32, error) {
	u, err := v.Uint32(off)
	return int32(u), err
}

// Int64 decodes a signed 64-bit integer at the given view offset.
func (v *View) Int64(off uint64) (int64, error) {
	u, err := v.Uint64(off)
	return int64(u), err
}

// Float32 decodes a 32-bit float at the given view offset.
func (v *View) Float32(off uint64) (float32, error) {
	u, err := v.Uint32(off)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// Float64 decodes a 64-bit float at the given view offset.
func (v *View) Float64(off uint64) (float64, error) {
	u, err := v.Uint64(off)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// Pointer decodes a pointer-sized value at the given view offset.
func (v *View) Pointer(off uint64) (probe.Address, error) {
	u, err := v.Uint64(off)
	return probe.Address(u), err
}

// Bytes returns size raw bytes at the given view offset.
func (v *View) Bytes(off, size uint64) ([]byte, error) {
	b, err := v.slice(off, size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, b)
	return out, nil
}

// NTS decodes a null-terminated string starting at the given view offset,
// reading at most max bytes.
func (v *View) NTS(off, max uint64) (string, error) {
	if off > uint64(len(v.data)) {
		return "", fmt.Errorf("%w: offset %d in view of %d bytes", probe.ErrOutOfRegion, off, len(v.data))
	}
	if rest := uint64(len(v.data)) - off; max > rest {
		max = rest
	}
	b, err := v.slice(off, max)
	if err != nil {
		return "", err
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

// Field decodes the named descriptor field as its natural Go type.
func (v *View) Field(name string) (any, error) {
	f, ok := v.desc.FieldByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: field %q", probe.ErrNotFound, name)
	}

	switch f.Kind {
	case Uint8:
		return v.Uint8(f.Offset)
	case Uint16:
		return v.Uint16(f.Offset)
	case Uint32:
		return v.Uint32(f.Offset)
	case Uint64:
		return v.Uint64(f.Offset)
	case Int8:
		return v.Int8(f.Offset)
	case Int16:
		return v.Int16(f.Offset)
	case Int32:
		return v.Int32(f.Offset)
	case Int64:
		return v.Int64(f.Offset)
	case Float32:
		return v.Float32(f.Offset)
	case Float64:
		return v.Float64(f.Offset)
	case Pointer:
		return v.Pointer(f.Offset)
	case Bytes:
		return v.Bytes(f.Offset, f.Len)
	}
	return nil, fmt.Errorf("unknown kind %d for field %q", f.Kind, name)
}
