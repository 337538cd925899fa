//go:build lockgraphdebug

package lockgraph

// This file mirrors the original's #ifdef DBXLOCK_DEBUG blocks
// (dbxupdaterefs' post-sort assert, dbxLockMany's prevlock assert): extra
// invariant checks too expensive to pay for on every call in production,
// enabled only by building with -tags lockgraphdebug.

// debugCheckSorted asserts that refs is sorted in non-decreasing
// Lock-address order, skipping nil-Lock slots exactly as the original's
// post-qsort loop does (nil/duplicate slots are left wherever updateRefs'
// sort put them and carry no ordering requirement of their own).
func debugCheckSorted(refs []lockerRef) {
	for i := 1; i < len(refs); i++ {
		if refs[i].lock == nil {
			continue
		}
		if lockAddr(refs[i-1].lock) > lockAddr(refs[i].lock) {
			invariantViolation("debug: refs[] not sorted at index %d", i)
		}
	}
}

// debugCheckAscending asserts that the per-Lock acquisition loop in
// (*Locker).Lock only ever advances to a strictly greater address, the
// debug-only counterpart of the original's `assert(!prevlock || prevlock <
// plock)`.
func debugCheckAscending(prev, l *Lock) {
	if prev != nil && lockAddr(prev) >= lockAddr(l) {
		invariantViolation("debug: lock acquisition order not strictly ascending")
	}
}
