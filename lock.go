package lockgraph

import (
	"sync"
	"sync/atomic"

	"github.com/dijkstracula/lockgraph/internal/ilist"
)

// failAlloc, when non-nil, is consulted by every internal allocation point
// so that tests can exercise the ErrAllocFailure paths deterministically
// without needing to actually exhaust memory. Production code never sets
// it; it is wired only from _test.go files.
var failAlloc func(op string) bool

func allocShouldFail(op string) bool {
	return failAlloc != nil && failAlloc(op)
}

// Lock is the concrete mutex shared by every Reference in its refsets. A
// Lock is never constructed directly by callers: it is returned by
// LockOne, or implicitly held (and visible only indirectly) by a Locker
// while locked. Its identity is what Join/Split merge and fragment.
type Lock struct {
	mu      sync.Mutex
	refcnt  atomic.Int64
	refsets ilist.List[*Reference]
	owner   *Locker
}

// newLock allocates a fresh Lock with refcnt 1 representing the single
// strong count the caller is about to take (a Reference pointing at it, or
// a fragment freshly minted by Split).
func newLock() (*Lock, error) {
	if allocShouldFail("newLock") {
		return nil, allocFailure("newLock")
	}
	l := &Lock{}
	l.refcnt.Store(1)
	return l, nil
}

// lockRef adds one strong count to l. l must already have at least one
// strong count (it is never resurrected from zero).
func lockRef(l *Lock) {
	if n := l.refcnt.Add(1); n <= 1 {
		invariantViolation("lockRef: refcnt %d <= 1 after increment", n)
	}
}

// lockUnref drops one strong count from l. It must NOT be called while
// holding l.mu: the last unref asserts the Lock is quiescent (empty
// refsets, no owner), and doing that under its own mutex would deadlock a
// caller that also expects to retake the mutex to inspect it.
func lockUnref(l *Lock) {
	if l == nil {
		return
	}
	n := l.refcnt.Add(-1)
	if n < 0 {
		invariantViolation("lockUnref: refcnt underflow")
	}
	if n > 0 {
		return
	}

	l.mu.Lock()
	empty := l.refsets.Len() == 0
	noOwner := l.owner == nil
	l.mu.Unlock()

	if !empty {
		invariantViolation("lockUnref: refsets not empty at refcnt 0")
	}
	if !noOwner {
		invariantViolation("lockUnref: owner set at refcnt 0")
	}
}
