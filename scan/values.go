package scan

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"

	"memprobe/pattern"
	"memprobe/probe"
)

// ScanInteger finds a little-endian integer value of the given byte width.
func (e *Engine) ScanInteger(h probe.Handle, value int64, width uint, scope Scope) ([]Match, error) {
	var buf []byte

	switch width {
	case 1:
		buf = []byte{byte(value)}
	case 2:
		buf = binary.LittleEndian.AppendUint16(nil, uint16(value))
	case 4:
		buf = binary.LittleEndian.AppendUint32(nil, uint32(value))
	case 8:
		buf = binary.LittleEndian.AppendUint64(nil, uint64(value))
	default:
		return nil, fmt.Errorf("%w: invalid integer width %d", probe.ErrInvalidPattern, width)
	}

	pat, err := pattern.FromBytes(buf)
	if err != nil {
		return nil, err
	}
	return e.Scan(h, pat, scope)
}

// ScanFloat finds a floating point value, either as 32-bit or 64-bit bits.
func (e *Engine) ScanFloat(h probe.Handle, value float64, isFloat32 bool, scope Scope) ([]Match, error) {
	var buf []byte
	if isFloat32 {
		buf = binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(value)))
	} else {
		buf = binary.LittleEndian.AppendUint64(nil, math.Float64bits(value))
	}

	pat, err := pattern.FromBytes(buf)
	if err != nil {
		return nil, err
	}
	return e.Scan(h, pat, scope)
}

// ScanString finds a string, encoded as UTF-8 or little-endian UTF-16.
func (e *Engine) ScanString(h probe.Handle, value string, isUTF16 bool, scope Scope) ([]Match, error) {
	var buf []byte
	if isUTF16 {
		for _, u := range utf16.Encode([]rune(value)) {
			buf = binary.LittleEndian.AppendUint16(buf, u)
		}
	} else {
		buf = []byte(value)
	}

	pat, err := pattern.FromBytes(buf)
	if err != nil {
		return nil, err
	}
	return e.Scan(h, pat, scope)
}
