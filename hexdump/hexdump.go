// Package hexdump renders memory buffers as colored hex dumps for the CLI
// tools, with optional match highlighting and pointer annotation against a
// region catalog.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/Moonlight-Companies/gologger/coloransi"

	"memprobe/probe"
	"memprobe/probe/region"
)

// Options controls the dump layout and coloring.
type Options struct {
	// BytesPerLine is the number of bytes rendered per output line.
	BytesPerLine int

	// ShowASCII adds the printable-character column.
	ShowASCII bool

	// BaseAddress is the address of data[0], shown in the offset column.
	BaseAddress probe.Address

	// Highlight marks every occurrence of these bytes in the dump.
	Highlight []byte

	// MaxLines truncates the dump after this many lines (0 means no limit).
	MaxLines int

	// Catalog, when set, annotates qword-aligned values that point into a
	// known region.
	Catalog *region.Catalog

	OffsetColor    coloransi.ColorCode
	HexColor       coloransi.ColorCode
	ZeroColor      coloransi.ColorCode
	ASCIIColor     coloransi.ColorCode
	HighlightColor coloransi.ColorCode
	PointerColor   coloransi.ColorCode
}

// DefaultOptions returns the layout used by the CLI tools.
func DefaultOptions() Options {
	return Options{
		BytesPerLine:   16,
		ShowASCII:      true,
		OffsetColor:    coloransi.Cyan,
		HexColor:       coloransi.Green,
		ZeroColor:      coloransi.BrightBlack,
		ASCIIColor:     coloransi.White,
		HighlightColor: coloransi.Yellow,
		PointerColor:   coloransi.BrightBlue,
	}
}

// Dump renders data as a string.
func Dump(data []byte, options Options) string {
	var buf bytes.Buffer
	DumpTo(&buf, data, options)
	return buf.String()
}

// DumpTo writes the rendered dump to w.
func DumpTo(w io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}

	lines := 0
	for off := 0; off < len(data); off += options.BytesPerLine {
		if options.MaxLines > 0 && lines >= options.MaxLines {
			fmt.Fprintf(w, "... %d more bytes\n", len(data)-off)
			return
		}

		end := off + options.BytesPerLine
		if end > len(data) {
			end = len(data)
		}
		writeLine(w, data, off, end, options)
		lines++
	}
}

func writeLine(w io.Writer, data []byte, off, end int, options Options) {
	addr := uint64(options.BaseAddress) + uint64(off)
	fmt.Fprint(w, coloransi.Foreground(options.OffsetColor, fmt.Sprintf("%012x", addr)), "  ")

	half := options.BytesPerLine / 2
	for i := off; i < off+options.BytesPerLine; i++ {
		if half > 0 && i-off == half {
			fmt.Fprint(w, " ")
		}
		if i >= end {
			fmt.Fprint(w, "   ")
			continue
		}
		fmt.Fprint(w, hexByte(data, i, options), " ")
	}

	if options.ShowASCII {
		fmt.Fprint(w, " |")
		for i := off; i < end; i++ {
			fmt.Fprint(w, asciiByte(data, i, options))
		}
		fmt.Fprint(w, "|")
	}

	if options.Catalog != nil {
		writePointers(w, data[off:end], addr, options)
	}

	fmt.Fprintln(w)
}

func hexByte(data []byte, i int, options Options) string {
	s := fmt.Sprintf("%02x", data[i])
	switch {
	case inHighlight(data, i, options.Highlight):
		return coloransi.Color(options.HighlightColor, coloransi.Black, s)
	case data[i] == 0:
		return coloransi.Foreground(options.ZeroColor, s)
	default:
		return coloransi.Foreground(options.HexColor, s)
	}
}

func asciiByte(data []byte, i int, options Options) string {
	b := data[i]
	if inHighlight(data, i, options.Highlight) {
		return coloransi.Color(options.HighlightColor, coloransi.Black, printable(b))
	}
	if b == 0 || !unicode.IsPrint(rune(b)) {
		return coloransi.Foreground(options.ZeroColor, ".")
	}
	return coloransi.Foreground(options.ASCIIColor, printable(b))
}

func printable(b byte) string {
	if b != 0 && unicode.IsPrint(rune(b)) {
		return string(rune(b))
	}
	return "."
}

// inHighlight reports whether data[i] falls inside any occurrence of the
// highlight bytes.
func inHighlight(data []byte, i int, highlight []byte) bool {
	if len(highlight) == 0 {
		return false
	}
	start := i - len(highlight) + 1
	if start < 0 {
		start = 0
	}
	for at := start; at <= i; at++ {
		if at+len(highlight) > len(data) {
			break
		}
		if bytes.Equal(data[at:at+len(highlight)], highlight) {
			return true
		}
	}
	return false
}

// writePointers annotates qwords on this line that land inside a known region.
func writePointers(w io.Writer, line []byte, addr uint64, options Options) {
	var notes []string
	for i := 0; i+8 <= len(line); i += 8 {
		if (addr+uint64(i))%8 != 0 {
			continue
		}
		ptr := binary.LittleEndian.Uint64(line[i : i+8])
		if ptr == 0 {
			continue
		}
		if _, ok := options.Catalog.Find(ptr); ok {
			notes = append(notes, coloransi.Foreground(options.PointerColor, fmt.Sprintf("0x%x", ptr)))
		}
	}
	if len(notes) > 0 {
		fmt.Fprint(w, "  -> ", strings.Join(notes, " "))
	}
}
