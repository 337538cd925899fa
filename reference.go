package lockgraph

import "github.com/dijkstracula/lockgraph/internal/ilist"

// Reference is a long-lived, individually-lockable handle owned by the
// application. A Reference always belongs to exactly one Lock; which Lock
// changes over time as Join and Split reshape the lock graph, but the
// Reference's address never does, so it is safe to hold a *Reference
// across any number of Join/Split calls.
type Reference struct {
	lock *Lock
	spin spinlock

	linksA ilist.List[*Link] // links where this Reference is the A endpoint
	linksB ilist.List[*Link] // links where this Reference is the B endpoint

	visited int // scratch tag used only during Split's BFS

	refsetsElem *ilist.Elem[*Reference] // this Reference's node in lock.refsets
}

// NewReference creates a Reference that is the sole member of a freshly
// allocated Lock.
func NewReference() (*Reference, error) {
	l, err := newLock()
	if err != nil {
		return nil, allocFailure("NewReference")
	}
	r := &Reference{lock: l}
	r.refsetsElem = &ilist.Elem[*Reference]{Value: r}
	l.refsets.PushBack(r.refsetsElem)
	return r, nil
}

// Clean finalizes r: it must not be called while any live Locker still
// caches r. It quiesces concurrent traffic on r's current Lock, detaches r
// from every Link it participates in (orphaning those Links, which are
// freed only once their own refcnt later drains via Split), removes r from
// its Lock's refsets, and releases r's strong count on that Lock. Clean
// never fails.
func (r *Reference) Clean() {
	// LockOne takes a strong count and returns with l.mu already held.
	// Give back that extra count right away (the Reference's own
	// original count is what we release at the very end via UnlockOne),
	// but keep the mutex: everything below runs inside that critical
	// section, exactly as the original dbxLockRefClean does.
	l, err := LockOne(r)
	if err != nil {
		invariantViolation("Clean: LockOne failed unexpectedly: %v", err)
	}
	lockUnref(l)

	l.refsets.Remove(r.refsetsElem)
	for e := r.linksA.Pop(); e != nil; e = r.linksA.Pop() {
		link := e.Value
		link.B.linksB.Remove(link.bElem)
		link.A = nil
		link.B = nil
	}
	for e := r.linksB.Pop(); e != nil; e = r.linksB.Pop() {
		link := e.Value
		link.A.linksA.Remove(link.aElem)
		link.A = nil
		link.B = nil
	}

	UnlockOne(l)

	r.lock = nil
	r.refsetsElem = nil
}
