package hart

import "errors"

// Hard errors: malformed requests that indicate a caller bug rather than
// an architectural trap condition, returned as-is rather than latched
// into TrapState.
var (
	errBadCSRLength = errors.New("hart: csr access length must equal XLEN/8")
	errBadSpace     = errors.New("hart: unknown address space")

	// errTrapLatched is returned by Read/Write once an architectural trap
	// has been recorded into TrapState, so the executor's "err != nil"
	// check still sees a failure without needing to inspect TrapError
	// internals for the common (non-debug) path.
	errTrapLatched = errors.New("hart: trap latched, see TrapState")
)
