// Package probe defines the core types and the platform access seam for
// reading the memory of an external, uninstrumented process.
//
// Pattern strings are space separated tokens, each either two hex digits for
// an exact byte or "??" for a wildcard byte, e.g. "48 8B ?? ?? 05".
package probe
