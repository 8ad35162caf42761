// Package pattern compiles wildcard byte patterns and scans byte buffers for
// all occurrences.
package pattern

import (
	"encoding/hex"
	"fmt"
	"strings"

	"memprobe/probe"
)

// Wildcard is the pattern token matching any byte.
const Wildcard = "??"

// MaxTokens bounds the pattern length so matcher tables stay small.
const MaxTokens = 256

// Pattern is a compiled sequence of exact-byte and wildcard tokens.
type Pattern struct {
	bytes  []byte // Token values, zero at wildcard positions
	mask   []byte // 0xFF for exact match, 0x00 for wildcard
	anchor int    // Index of the rarest fixed byte, -1 if all wildcards
	str    string // Canonical token string
}

// Parse compiles a pattern string of space separated tokens, each either two
// hex digits or "??" for a wildcard byte.
func Parse(s string) (*Pattern, error) {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty pattern", probe.ErrInvalidPattern)
	}
	if len(tokens) > MaxTokens {
		return nil, fmt.Errorf("%w: %d tokens exceeds maximum of %d", probe.ErrInvalidPattern, len(tokens), MaxTokens)
	}

	pat := make([]byte, len(tokens))
	mask := make([]byte, len(tokens))

	for i, tok := range tokens {
		if tok == Wildcard {
			continue
		}
		if len(tok) != 2 {
			return nil, fmt.Errorf("%w: token %q at position %d", probe.ErrInvalidPattern, tok, i)
		}
		b, err := hex.DecodeString(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: token %q at position %d", probe.ErrInvalidPattern, tok, i)
		}
		pat[i] = b[0]
		mask[i] = 0xFF
	}

	return compile(pat, mask), nil
}

// FromBytes compiles an exact pattern with no wildcards, used for value scans.
func FromBytes(b []byte) (*Pattern, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty pattern", probe.ErrInvalidPattern)
	}
	if len(b) > MaxTokens {
		return nil, fmt.Errorf("%w: %d bytes exceeds maximum of %d", probe.ErrInvalidPattern, len(b), MaxTokens)
	}

	pat := make([]byte, len(b))
	copy(pat, b)
	mask := make([]byte, len(b))
	for i := range mask {
		mask[i] = 0xFF
	}

	return compile(pat, mask), nil
}

func compile(pat, mask []byte) *Pattern {
	p := &Pattern{bytes: pat, mask: mask, anchor: -1}

	// Anchor on the fixed byte least likely to occur in process memory so the
	// candidate pre-scan discards most positions cheaply.
	best := -1
	for i := range pat {
		if mask[i] == 0 {
			continue
		}
		if score := commonness(pat[i]); best == -1 || score < best {
			best = score
			p.anchor = i
		}
	}

	var sb strings.Builder
	for i := range pat {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if mask[i] == 0 {
			sb.WriteString(Wildcard)
		} else {
			fmt.Fprintf(&sb, "%02X", pat[i])
		}
	}
	p.str = sb.String()

	return p
}

// commonness gives a coarse rank of how often a byte value tends to occur in
// process memory. Lower is rarer and therefore a better scan anchor.
func commonness(b byte) int {
	switch b {
	case 0x00, 0xFF:
		return 3
	case 0x01, 0x20, 0x7F, 0xCC:
		return 2
	}
	if b < 0x80 {
		return 1
	}
	return 0
}

// Len returns the number of tokens in the pattern.
func (p *Pattern) Len() int {
	return len(p.bytes)
}

// String returns the canonical token form of the pattern.
func (p *Pattern) String() string {
	return p.str
}
