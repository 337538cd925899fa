package lockgraph

import (
	"errors"
	"fmt"
)

// ErrAllocFailure is returned by NewReference, NewLocker, LockOne, and
// (*Locker).Join when an internal allocation cannot be satisfied. The
// operation has no effect: the caller's prior state is unchanged, and the
// operation may be retried or abandoned freely.
//
// Under the ordinary Go allocator this path is not reachable; it exists so
// that a future (or test-injected) allocator hook has somewhere to surface
// failure without changing the API.
var ErrAllocFailure = errors.New("lockgraph: allocation failure")

// allocFailure wraps ErrAllocFailure with the operation name that failed.
func allocFailure(op string) error {
	return fmt.Errorf("lockgraph: %s: %w", op, ErrAllocFailure)
}

// invariantViolation panics with a message identifying a broken internal
// invariant or a caller misuse. These are never recoverable: they indicate
// either a bug in this package or a caller that violated a documented
// precondition (e.g. freeing a Locker that is still locked).
func invariantViolation(format string, args ...any) {
	panic(fmt.Sprintf("lockgraph: invariant violation: "+format, args...))
}
