package probe

import "errors"

var (
	// ErrNotFound is returned when the requested process or module does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied is returned when the caller lacks permission for the
	// requested operation on the target process.
	ErrAccessDenied = errors.New("access denied")

	// ErrProcessGone is returned when the handle was invalidated mid-operation
	// because the target process exited.
	ErrProcessGone = errors.New("process gone")

	// ErrUnaligned is returned when a typed read violates the descriptor's
	// required alignment.
	ErrUnaligned = errors.New("unaligned address")

	// ErrOutOfRegion is returned when an address range is not wholly contained
	// in one readable memory region.
	ErrOutOfRegion = errors.New("address out of region")

	// ErrInvalidPattern is returned for a malformed pattern string.
	ErrInvalidPattern = errors.New("invalid pattern")
)
