package lockgraph

// LockOne acquires the Lock currently associated with r and returns it.
// This is the streamlined single-reference fast path: it is equivalent to
// building a one-element Locker and calling Lock on it, but without the
// Locker's cache bookkeeping.
//
// Algorithm (the "check-lock-recheck" protocol): read r.lock under r.spin
// and take a strong count on it; block on its mutex; reread r.lock under
// r.spin. If the Reference was re-pointed at a different Lock while we
// were blocking (a concurrent Join or Split ran), the mutex we're holding
// is the wrong one: release it, drop the count, and retry. Termination is
// guaranteed except under an unbounded rate of concurrent Join/Split.
func LockOne(r *Reference) (*Lock, error) {
	for {
		r.spin.Lock()
		l := r.lock
		lockRef(l)
		r.spin.Unlock()

		l.mu.Lock()

		r.spin.Lock()
		l2 := r.lock
		r.spin.Unlock()

		if l != l2 {
			l.mu.Unlock()
			lockUnref(l)
			continue
		}

		return l, nil
	}
}

// UnlockOne releases the mutex acquired by LockOne and drops the strong
// count it took. The mutex must be released before the count is dropped:
// the final unref may observe the Lock become unreachable once every other
// reference to it is gone, which must never happen while something still
// holds its mutex.
func UnlockOne(l *Lock) {
	l.mu.Unlock()
	lockUnref(l)
}
