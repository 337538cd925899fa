package lockgraph

import (
	"sort"
	"sync/atomic"
	"unsafe"

	"github.com/dijkstracula/lockgraph/internal/ilist"
)

// recomputeCnt is incremented once per Reference whose lock pointer is
// rewritten by Join or Split. It is the only signal a Locker needs to
// decide whether its cached view of refs[] might be stale; comparing a
// remembered snapshot against the live value is far cheaper than
// re-deriving the cache on every LockMany.
var recomputeCnt atomic.Uint64

// lockerRef is one cached (Reference, last-observed Lock) pair inside a
// Locker. The Lock field is only trustworthy while the Locker's mutex
// discipline (l.mu held, or ref.spin held) guarantees it hasn't moved
// since the last updateRefs.
type lockerRef struct {
	ref  *Reference
	lock *Lock
}

// Locker is a batched acquisition context over a caller-supplied set of
// References. It is not safe for concurrent use by multiple goroutines:
// exactly one goroutine may call Lock/Unlock/Join/Split/Free on a given
// Locker at a time.
type Locker struct {
	refs   []lockerRef
	locked ilist.List[*Lock]
	recomp uint64
}

// NewLocker allocates a Locker over refs. The input order is irrelevant
// and duplicates (or nil entries) are permitted — they are simply skipped
// at acquisition time. The cache is populated and sorted by Lock address
// before NewLocker returns.
func NewLocker(refs ...*Reference) (*Locker, error) {
	if allocShouldFail("NewLocker") {
		return nil, allocFailure("NewLocker")
	}
	lk := &Locker{
		refs: make([]lockerRef, len(refs)),
		// Any value other than the current recompute count forces the
		// first updateRefs call to actually do work.
		recomp: recomputeCnt.Load() - 1,
	}
	for i, r := range refs {
		lk.refs[i].ref = r
	}
	lk.updateRefs(true)
	return lk, nil
}

// Free releases the Locker's cached strong counts. It must not be called
// while the Locker is locked.
func (lk *Locker) Free() {
	if lk.locked.Len() != 0 {
		invariantViolation("Free: locked set not empty")
	}
	for _, ref := range lk.refs {
		lockUnref(ref.lock)
	}
	lk.refs = nil
}

// lockAddr returns a total-ordering key for l. Plain Go has no relational
// operators on pointers; the address itself is a cheap, consistent,
// content-independent key, so it is recovered once per comparison via
// unsafe.Pointer. This is the only use of unsafe in the package.
func lockAddr(l *Lock) uintptr {
	if l == nil {
		return ^uintptr(0) // nil sorts to the high end
	}
	return uintptr(unsafe.Pointer(l))
}

// updateRefs is the Locker's cache maintainer. Called with update=true
// before acquiring (to refresh the cache and re-sort it), and with
// update=false after acquiring (to verify nothing moved while we were
// taking locks). It reports whether any slot's Lock differed from its
// Reference's live lock.
func (lk *Locker) updateRefs(update bool) bool {
	changed := false
	recomp := recomputeCnt.Load()

	if lk.recomp != recomp {
		for i := range lk.refs {
			slot := &lk.refs[i]
			if slot.ref == nil {
				slot.lock = nil
				continue
			}

			slot.ref.spin.Lock()
			live := slot.ref.lock
			slot.ref.spin.Unlock()

			if slot.lock != live {
				changed = true
				if update {
					lockUnref(slot.lock)
					if live != nil {
						lockRef(live)
					}
					slot.lock = live
				}
			}
		}
		if update {
			lk.recomp = recomp
		}
	}

	if changed && update {
		sort.Slice(lk.refs, func(i, j int) bool {
			return lockAddr(lk.refs[i].lock) < lockAddr(lk.refs[j].lock)
		})
	}

	if update {
		debugCheckSorted(lk.refs)
	}

	return changed
}

// Lock acquires every distinct, non-nil Lock referenced by the Locker's
// refs, in ascending address order. Acquiring in a single global total
// order across every Locker is what makes concurrent Lock calls
// deadlock-free: two Lockers racing over overlapping Locks always agree on
// the order to take them in, so no wait-for cycle can form.
//
// Because building the sorted cache and taking the locks are two separate
// steps, a concurrent Join/Split can rewrite the graph in between; Lock
// detects this via a post-acquisition updateRefs(false) and, if anything
// changed, releases everything and retries from scratch.
func (lk *Locker) Lock() {
	if lk.locked.Len() != 0 {
		invariantViolation("Lock: already locked")
	}

	for {
		lk.updateRefs(true)

		var prev *Lock
		for i := range lk.refs {
			l := lk.refs[i].lock
			if l == nil || l == prev {
				continue
			}
			debugCheckAscending(prev, l)
			prev = l

			l.mu.Lock()
			if l.owner != nil {
				invariantViolation("Lock: owner already set")
			}
			l.owner = lk
			lk.locked.PushBack(&ilist.Elem[*Lock]{Value: l})
			lockRef(l) // extra count for locked-list membership
		}

		if !lk.updateRefs(false) {
			return
		}
		// Collided with a concurrent Join/Split: release everything we
		// just took and retry from a freshly sorted cache.
		lk.Unlock()
	}
}

// Unlock releases every Lock currently held by the Locker, in the order
// they were acquired.
func (lk *Locker) Unlock() {
	for e := lk.locked.Pop(); e != nil; e = lk.locked.Pop() {
		l := e.Value
		if l.owner != lk {
			invariantViolation("Unlock: owner mismatch")
		}
		l.owner = nil
		l.mu.Unlock()
		lockUnref(l) // discharge the locked-list count taken in Lock
	}
}
