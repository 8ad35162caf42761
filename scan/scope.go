package scan

import (
	"fmt"

	"memprobe/probe/region"
)

// ScopeKind selects which memory regions a scan considers.
type ScopeKind int

const (
	// ScopeProcess scans every readable region of the process.
	ScopeProcess ScopeKind = iota

	// ScopeModule scans only regions backed by one named module.
	ScopeModule

	// ScopeRange scans only the explicit address range [Start, End).
	ScopeRange
)

// Scope narrows a scan to the whole process, one named module, or one
// explicit address range.
type Scope struct {
	Kind   ScopeKind
	Module string
	Start  uint64
	End    uint64
}

// ProcessScope returns a scope covering the whole process.
func ProcessScope() Scope {
	return Scope{Kind: ScopeProcess}
}

// ModuleScope returns a scope covering regions backed by the named module.
func ModuleScope(name string) Scope {
	return Scope{Kind: ScopeModule, Module: name}
}

// RangeScope returns a scope covering the address range [start, end).
func RangeScope(start, end uint64) Scope {
	return Scope{Kind: ScopeRange, Start: start, End: end}
}

// key returns the scope's cache key component.
func (s Scope) key() string {
	switch s.Kind {
	case ScopeModule:
		return "module:" + s.Module
	case ScopeRange:
		return fmt.Sprintf("range:%x-%x", s.Start, s.End)
	default:
		return "process"
	}
}

// filter selects the regions of a catalog snapshot the scope covers, in base
// address order. Range scopes clip regions to the requested window so a scan
// unit still never leaves its region.
func (s Scope) filter(cat region.Catalog, mods []region.Module) []region.Region {
	regions := cat.Regions()

	switch s.Kind {
	case ScopeModule:
		var out []region.Region
		for _, m := range mods {
			if m.Name != s.Module {
				continue
			}
			for _, r := range regions {
				if r.Base >= m.Base && r.End() <= m.Base+m.Size && r.Path == m.Path {
					out = append(out, r)
				}
			}
		}
		return out

	case ScopeRange:
		if s.End <= s.Start {
			return nil
		}
		var out []region.Region
		for _, r := range regions {
			if r.End() <= s.Start || r.Base >= s.End {
				continue
			}
			clipped := r
			if clipped.Base < s.Start {
				clipped.Size -= s.Start - clipped.Base
				clipped.Base = s.Start
			}
			if clipped.Base+clipped.Size > s.End {
				clipped.Size = s.End - clipped.Base
			}
			out = append(out, clipped)
		}
		return out

	default:
		return regions
	}
}
