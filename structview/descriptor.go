// Package structview reinterprets raw bytes read from a target process as
// typed values, validating alignment and region bounds before any read, and
// resolves pointer chains with every hop independently validated.
package structview

import (
	"fmt"
	"reflect"

	"github.com/modern-go/reflect2"
	"golang.org/x/exp/constraints"
)

// Kind identifies the primitive interpretation of a field.
type Kind int

const (
	Uint8 Kind = iota
	Uint16
	Uint32
	Uint64
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	Pointer
	Bytes
)

// Width returns the encoded size of the kind in bytes; 0 for Bytes, whose
// length comes from the field.
func (k Kind) Width() uint64 {
	switch k {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64, Int64, Float64, Pointer:
		return 8
	}
	return 0
}

// Field describes one member of a typed layout.
type Field struct {
	Name   string
	Offset uint64
	Kind   Kind
	Len    uint64 // Byte length for Kind Bytes, ignored otherwise
}

func (f Field) size() uint64 {
	if f.Kind == Bytes {
		return f.Len
	}
	return f.Kind.Width()
}

// Descriptor describes how to reinterpret a byte buffer: total size, required
// alignment and field layout. Purely descriptive data, no behavior.
type Descriptor struct {
	Size   uint64
	Align  uint64
	Fields []Field
}

// Validate checks the descriptor's internal consistency.
func (d Descriptor) Validate() error {
	if d.Size == 0 {
		return fmt.Errorf("descriptor size is zero")
	}
	if d.Align == 0 || d.Align&(d.Align-1) != 0 {
		return fmt.Errorf("descriptor alignment %d is not a power of two", d.Align)
	}
	for _, f := range d.Fields {
		if f.size() == 0 {
			return fmt.Errorf("field %q has zero size", f.Name)
		}
		if f.Offset+f.size() > d.Size {
			return fmt.Errorf("field %q at offset %d exceeds descriptor size %d", f.Name, f.Offset, d.Size)
		}
	}
	return nil
}

// FieldByName returns the named field.
func (d Descriptor) FieldByName(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// DescriptorFor derives a Descriptor from a Go struct value. Field offsets
// and the struct alignment come from the Go layout, so a struct mirroring the
// target's C layout describes the remote bytes directly. Only fixed-width
// field types are supported.
func DescriptorFor(v any) (Descriptor, error) {
	typ := reflect2.TypeOf(v)
	if typ == nil {
		return Descriptor{}, fmt.Errorf("nil value")
	}

	t := typ.Type1()
	if t.Kind() != reflect.Struct {
		return Descriptor{}, fmt.Errorf("%s is not a struct", t)
	}

	d := Descriptor{
		Size:  uint64(t.Size()),
		Align: uint64(t.Align()),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		f := Field{Name: field.Name, Offset: uint64(field.Offset)}
		switch field.Type.Kind() {
		case reflect.Uint8:
			f.Kind = Uint8
		case reflect.Uint16:
			f.Kind = Uint16
		case reflect.Uint32:
			f.Kind = Uint32
		case reflect.Uint64:
			f.Kind = Uint64
		case reflect.Int8:
			f.Kind = Int8
		case reflect.Int16:
			f.Kind = Int16
		case reflect.Int32:
			f.Kind = Int32
		case reflect.Int64:
			f.Kind = Int64
		case reflect.Float32:
			f.Kind = Float32
		case reflect.Float64:
			f.Kind = Float64
		case reflect.Uintptr, reflect.UnsafePointer:
			f.Kind = Pointer
		case reflect.Array:
			if field.Type.Elem().Kind() != reflect.Uint8 {
				return Descriptor{}, fmt.Errorf("unsupported array element type %s for field %q", field.Type.Elem(), field.Name)
			}
			f.Kind = Bytes
			f.Len = uint64(field.Type.Len())
		default:
			return Descriptor{}, fmt.Errorf("unsupported field type %s for field %q", field.Type, field.Name)
		}

		d.Fields = append(d.Fields, f)
	}

	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// aligned reports whether v is a multiple of a, which must be a power of two.
func aligned[I constraints.Integer](v, a I) bool {
	return a > 0 && v&(a-1) == 0
}
