package region

import (
	"path/filepath"
	"sort"
)

// Catalog is an immutable snapshot of the readable memory regions of a
// process at a point in time, sorted by base address ascending. A Catalog is
// rebuilt, never patched, whenever fresh topology is needed.
type Catalog struct {
	regions []Region
}

// NewCatalog builds a snapshot from an enumerated region list. Non-readable
// regions are filtered out and the remainder is sorted by base address.
func NewCatalog(regions []Region) Catalog {
	filtered := make([]Region, 0, len(regions))
	for _, r := range regions {
		if r.IsReadable() && r.Size > 0 {
			filtered = append(filtered, r)
		}
	}

	// Find requires the regions to be sorted by address
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Base < filtered[j].Base
	})

	return Catalog{regions: filtered}
}

// Len returns the number of readable regions in the snapshot.
func (c Catalog) Len() int {
	return len(c.regions)
}

// Regions returns a copy of the snapshot's region list.
func (c Catalog) Regions() []Region {
	result := make([]Region, len(c.regions))
	copy(result, c.regions)
	return result
}

// Find returns the region containing addr via binary search.
func (c Catalog) Find(addr uint64) (Region, bool) {
	i := sort.Search(len(c.regions), func(i int) bool {
		return c.regions[i].End() > addr
	})
	if i < len(c.regions) && c.regions[i].Base <= addr {
		return c.regions[i], true
	}
	return Region{}, false
}

// FindExtent returns the region wholly containing [addr, addr+size).
// Scanning and typed reads must never straddle a region boundary, so an
// extent spanning two adjacent regions is reported as not found.
func (c Catalog) FindExtent(addr, size uint64) (Region, bool) {
	r, ok := c.Find(addr)
	if !ok || !r.Contains(addr, size) {
		return Region{}, false
	}
	return r, true
}

// ModulesFromRegions aggregates file-backed regions into modules, one per
// distinct backing path, preserving first-seen order.
func ModulesFromRegions(regions []Region) []Module {
	var mods []Module
	index := make(map[string]int)

	for _, r := range regions {
		if r.Path == "" || r.Path[0] == '[' {
			continue
		}
		if i, ok := index[r.Path]; ok {
			end := mods[i].Base + mods[i].Size
			if r.End() > end {
				end = r.End()
			}
			if r.Base < mods[i].Base {
				mods[i].Base = r.Base
			}
			mods[i].Size = end - mods[i].Base
			continue
		}
		index[r.Path] = len(mods)
		mods = append(mods, Module{
			Name: filepath.Base(r.Path),
			Path: r.Path,
			Base: r.Base,
			Size: r.Size,
		})
	}

	return mods
}
