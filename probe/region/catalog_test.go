package region

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewCatalogFiltersAndSorts(t *testing.T) {
	cat := NewCatalog([]Region{
		{Base: 0x3000, Size: 0x1000, Perms: "r--p"},
		{Base: 0x1000, Size: 0x1000, Perms: "rw-p"},
		{Base: 0x2000, Size: 0x1000, Perms: "---p"},
		{Base: 0x5000, Size: 0, Perms: "r--p"},
	})

	want := []Region{
		{Base: 0x1000, Size: 0x1000, Perms: "rw-p"},
		{Base: 0x3000, Size: 0x1000, Perms: "r--p"},
	}
	if diff := cmp.Diff(want, cat.Regions()); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogFind(t *testing.T) {
	cat := NewCatalog([]Region{
		{Base: 0x1000, Size: 0x1000, Perms: "r--p"},
		{Base: 0x4000, Size: 0x2000, Perms: "r-xp"},
	})

	tests := []struct {
		name     string
		addr     uint64
		wantBase uint64
		wantOK   bool
	}{
		{"first byte of first region", 0x1000, 0x1000, true},
		{"last byte of first region", 0x1fff, 0x1000, true},
		{"gap between regions", 0x2000, 0, false},
		{"inside second region", 0x5123, 0x4000, true},
		{"past last region", 0x6000, 0, false},
		{"before first region", 0x500, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := cat.Find(tt.addr)
			if ok != tt.wantOK {
				t.Fatalf("Find(%#x) ok = %v, want %v", tt.addr, ok, tt.wantOK)
			}
			if ok && r.Base != tt.wantBase {
				t.Fatalf("Find(%#x) base = %#x, want %#x", tt.addr, r.Base, tt.wantBase)
			}
		})
	}
}

func TestCatalogFindExtent(t *testing.T) {
	// Two adjacent regions; an extent spanning the boundary must not resolve.
	cat := NewCatalog([]Region{
		{Base: 0x1000, Size: 0x1000, Perms: "r--p"},
		{Base: 0x2000, Size: 0x1000, Perms: "r--p"},
	})

	if _, ok := cat.FindExtent(0x1ff8, 16); ok {
		t.Fatal("extent straddling two adjacent regions should not resolve")
	}
	if _, ok := cat.FindExtent(0x1ff0, 16); !ok {
		t.Fatal("extent ending exactly at the region boundary should resolve")
	}
	if _, ok := cat.FindExtent(0x2000, 16); !ok {
		t.Fatal("extent at the start of the second region should resolve")
	}
}

func TestModulesFromRegions(t *testing.T) {
	mods := ModulesFromRegions([]Region{
		{Base: 0x1000, Size: 0x1000, Perms: "r-xp", Path: "/usr/lib/libc.so.6"},
		{Base: 0x2000, Size: 0x1000, Perms: "rw-p", Path: "/usr/lib/libc.so.6"},
		{Base: 0x8000, Size: 0x1000, Perms: "rw-p"},
		{Base: 0x9000, Size: 0x1000, Perms: "rw-p", Path: "[heap]"},
		{Base: 0xa000, Size: 0x1000, Perms: "r-xp", Path: "/usr/bin/target"},
	})

	want := []Module{
		{Name: "libc.so.6", Path: "/usr/lib/libc.so.6", Base: 0x1000, Size: 0x2000},
		{Name: "target", Path: "/usr/bin/target", Base: 0xa000, Size: 0x1000},
	}
	if diff := cmp.Diff(want, mods); diff != "" {
		t.Fatalf("modules mismatch (-want +got):\n%s", diff)
	}
}
