package structview

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDescriptorFor(t *testing.T) {
	type header struct {
		RefCount int64
		TypePtr  uintptr
		Flags    uint32
		Tag      [4]byte
	}

	d, err := DescriptorFor(header{})
	if err != nil {
		t.Fatal(err)
	}

	if d.Size != 32 {
		t.Fatalf("Size = %d, want 32", d.Size)
	}
	if d.Align != 8 {
		t.Fatalf("Align = %d, want 8", d.Align)
	}

	want := []Field{
		{Name: "RefCount", Offset: 0, Kind: Int64},
		{Name: "TypePtr", Offset: 8, Kind: Pointer},
		{Name: "Flags", Offset: 16, Kind: Uint32},
		{Name: "Tag", Offset: 20, Kind: Bytes, Len: 4},
	}
	if diff := cmp.Diff(want, d.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptorForRejectsUnsupported(t *testing.T) {
	type bad struct {
		S string
	}
	if _, err := DescriptorFor(bad{}); err == nil {
		t.Fatal("expected error for string field")
	}

	if _, err := DescriptorFor(42); err == nil {
		t.Fatal("expected error for non-struct")
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{"valid", Descriptor{Size: 16, Align: 8, Fields: []Field{{Name: "a", Offset: 0, Kind: Uint64}}}, false},
		{"zero size", Descriptor{Size: 0, Align: 1}, true},
		{"non power of two align", Descriptor{Size: 8, Align: 3}, true},
		{"zero align", Descriptor{Size: 8, Align: 0}, true},
		{"field past end", Descriptor{Size: 4, Align: 4, Fields: []Field{{Name: "a", Offset: 2, Kind: Uint32}}}, true},
		{"zero size bytes field", Descriptor{Size: 4, Align: 4, Fields: []Field{{Name: "a", Offset: 0, Kind: Bytes}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
