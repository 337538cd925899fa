package lockgraph

import (
	"sync/atomic"

	"github.com/dijkstracula/lockgraph/internal/ilist"
)

// Link is a symmetric, reference-counted assertion that two References
// must share one Lock. While refcnt > 0 and both endpoints are non-nil,
// A.lock == B.lock is guaranteed to hold. A Link is returned by Join and
// consumed by Split.
type Link struct {
	A, B   *Reference
	refcnt atomic.Int32
	aElem  *ilist.Elem[*Link] // this Link's node in A.linksA
	bElem  *ilist.Elem[*Link] // this Link's node in B.linksB
}

func newLink(a, b *Reference) (*Link, error) {
	if allocShouldFail("newLink") {
		return nil, allocFailure("newLink")
	}
	link := &Link{A: a, B: b}
	link.refcnt.Store(1)
	link.aElem = &ilist.Elem[*Link]{Value: link}
	link.bElem = &ilist.Elem[*Link]{Value: link}
	a.linksA.PushBack(link.aElem)
	b.linksB.PushBack(link.bElem)
	return link, nil
}

// Join asserts that a and b must share a Lock, returning a Link handle
// representing that assertion. Both a and b must already be held by lk
// (i.e. present in lk's refs and currently locked), and a must not equal
// b. If a direct Link between a and b already exists, its refcnt is bumped
// and it is returned instead of allocating a new one.
func (lk *Locker) Join(a, b *Reference) (*Link, error) {
	lockA, lockB := a.lock, b.lock

	if lockA == lockB {
		// Already sharing a Lock, whether directly or transitively linked.
		// Look for an existing direct Link first so that repeated Joins
		// of the same pair bump one refcnt rather than piling up
		// redundant Links.
		for e := a.linksA.Front(); e != nil; e = e.Next() {
			if e.Value.B == b {
				bumpLinkRef(e.Value)
				return e.Value, nil
			}
		}
		for e := a.linksB.Front(); e != nil; e = e.Next() {
			if e.Value.A == b {
				bumpLinkRef(e.Value)
				return e.Value, nil
			}
		}
		return newLink(a, b)
	}

	link, err := newLink(a, b)
	if err != nil {
		return nil, err
	}

	// Merge lockB into lockA: every Reference sharing lockB is re-pointed
	// at lockA, one at a time, each under its own spin lock and each
	// bumping the global recompute counter. A single bump for the whole
	// merge would let a Locker snapshot the counter mid-merge and miss
	// the rewrite of references it hadn't gotten to yet; one bump per
	// Reference guarantees every snapshot taken during the merge is
	// observably stale to someone.
	n := 0
	for e := lockB.refsets.Front(); e != nil; e = e.Next() {
		x := e.Value
		x.spin.Lock()
		x.lock = lockA
		recomputeCnt.Add(1)
		x.spin.Unlock()
		n++
	}

	lockA.refsets.PushAll(&lockB.refsets)

	lockA.refcnt.Add(int64(n))
	if rem := lockB.refcnt.Add(int64(-n)); rem <= 0 {
		invariantViolation("Join: lockB refcnt non-positive after merge")
	}

	return link, nil
}

func bumpLinkRef(link *Link) {
	if n := link.refcnt.Add(1); n <= 1 {
		invariantViolation("Join: link refcnt %d <= 1 after increment", n)
	}
}

// Split releases one reference to link. If other Joins still hold it, this
// is a no-op beyond the refcount decrement. When the last reference
// drains, the Link is detached from both endpoints' link lists; if link
// had been orphaned by a prior Clean (both endpoints nil), it is simply
// freed. Otherwise lk must be non-nil and must hold link.A.lock ==
// link.B.lock: Split then runs a breadth-first search over the link graph
// reachable from A to decide whether any indirect path to B survives the
// removal of this direct edge. If none does, the Lock fragments: a new
// Lock is minted for the connected component that is NOT reachable from
// A, and every Reference in it is re-pointed at the new Lock.
func (lk *Locker) Split(link *Link) {
	if link.refcnt.Add(-1) > 0 {
		return
	}

	a, b := link.A, link.B
	if a == nil && b == nil {
		// Orphaned by a prior Clean; nothing left to detach.
		return
	}

	if lk == nil {
		invariantViolation("Split: locker is nil but link is not orphaned")
	}

	l := a.lock
	if l != b.lock {
		invariantViolation("Split: endpoints do not share a lock")
	}

	a.linksA.Remove(link.aElem)
	b.linksB.Remove(link.bElem)

	// Breadth-first search over the link graph, outward from a, looking
	// for b. Every Reference in l.refsets starts untagged (visited==0);
	// as the frontier expands, a Reference moves from l.refsets onto
	// tovisit (visited==1, queued) and then onto visited (visited==2,
	// expanded). Whatever is left in l.refsets when the search ends was
	// never reached from a at all.
	l.refsets.Do(func(e *ilist.Elem[*Reference]) { e.Value.visited = 0 })

	var visited, tovisit ilist.List[*Reference]

	l.refsets.Remove(a.refsetsElem)
	tovisit.PushBack(a.refsetsElem)
	a.visited = 1

	found := false

outer:
	for e := tovisit.Pop(); e != nil; e = tovisit.Pop() {
		ref := e.Value
		ref.visited = 2
		visited.PushBack(e)

		for le := ref.linksA.Front(); le != nil; le = le.Next() {
			nbr := le.Value.B
			if nbr == b {
				found = true
				break outer
			}
			if nbr.visited == 0 {
				l.refsets.Remove(nbr.refsetsElem)
				tovisit.PushBack(nbr.refsetsElem)
				nbr.visited = 1
			}
		}
		for le := ref.linksB.Front(); le != nil; le = le.Next() {
			nbr := le.Value.A
			if nbr == b {
				found = true
				break outer
			}
			if nbr.visited == 0 {
				l.refsets.Remove(nbr.refsetsElem)
				tovisit.PushBack(nbr.refsetsElem)
				nbr.visited = 1
			}
		}
	}

	if found {
		// An indirect path survives: l does not fragment. Put
		// everything back exactly where it came from.
		l.refsets.PushAll(&visited)
		l.refsets.PushAll(&tovisit)
		return
	}

	// tovisit is empty (the search exhausted it) and l.refsets now holds
	// exactly the component NOT reachable from a: that is the piece that
	// gets a new Lock. a's own component (visited) moves back onto l.
	fragmentLock(lk, l, &visited)
}

// fragmentLock mints a new Lock for the disconnected remainder found by
// Split's BFS (still sitting in l.refsets at the time this is called),
// re-homes every Reference in it, and restores a's surviving component
// (aComponent) onto l.
func fragmentLock(lk *Locker, l *Lock, aComponent *ilist.List[*Reference]) {
	lockB, err := newLock()
	if err != nil {
		// The original C caller treats allocation failure here as a
		// silent no-split (the Lock simply stays merged): restore
		// everything rather than leaving the graph half-split.
		l.refsets.PushAll(aComponent)
		return
	}
	lockB.mu.Lock()
	lockB.owner = lk
	lk.locked.PushBack(&ilist.Elem[*Lock]{Value: lockB})

	n := 0
	for e := l.refsets.Front(); e != nil; e = e.Next() {
		x := e.Value
		x.spin.Lock()
		x.lock = lockB
		recomputeCnt.Add(1)
		x.spin.Unlock()
		n++
	}
	lockB.refsets.PushAll(&l.refsets)
	l.refsets.PushAll(aComponent)

	lockB.refcnt.Add(int64(n))
	if rem := l.refcnt.Add(int64(-n)); rem <= 0 {
		invariantViolation("Split: parent lock refcnt non-positive after fragmenting")
	}
}
