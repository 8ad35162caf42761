package pattern

import "bytes"

// FindAll returns every offset in buf where the pattern matches. Overlapping
// matches are all reported. A position whose tail would run past the end of
// buf never matches; the matcher never reads beyond the buffer it was given.
func (p *Pattern) FindAll(buf []byte) []int {
	n := len(p.bytes)
	if n == 0 || len(buf) < n {
		return nil
	}

	if p.anchor < 0 {
		// All wildcards: every position with room for the full pattern matches.
		matches := make([]int, 0, len(buf)-n+1)
		for i := 0; i <= len(buf)-n; i++ {
			matches = append(matches, i)
		}
		return matches
	}

	var matches []int
	anchorByte := p.bytes[p.anchor]

	// Scan for anchor candidates first, then verify the remaining fixed
	// positions around each candidate.
	for at := p.anchor; at <= len(buf)-n+p.anchor; {
		rel := bytes.IndexByte(buf[at:len(buf)-n+p.anchor+1], anchorByte)
		if rel < 0 {
			break
		}
		at += rel
		if p.verify(buf, at-p.anchor) {
			matches = append(matches, at-p.anchor)
		}
		at++
	}

	return matches
}

func (p *Pattern) verify(buf []byte, start int) bool {
	for i, m := range p.mask {
		if m != 0 && buf[start+i] != p.bytes[i] {
			return false
		}
	}
	return true
}
