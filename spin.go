package lockgraph

import (
	"runtime"
	"sync/atomic"
)

// spinlock is a short-duration, CAS-based mutual exclusion primitive used to
// guard Reference.lock. Critical sections held under it are always a single
// pointer read or write, so busy-waiting with a bounded backoff is cheaper
// than parking the goroutine on a real mutex.
type spinlock struct {
	held atomic.Int32
}

// Lock spins until ownership is acquired, yielding the processor every 100
// failed attempts so that a long-running holder elsewhere gets a chance to
// make progress.
func (s *spinlock) Lock() {
	for attempt := 1; ; attempt++ {
		if s.held.CompareAndSwap(0, 1) {
			return
		}
		if attempt%100 == 0 {
			runtime.Gosched()
		}
	}
}

// Unlock releases ownership. The caller must hold the lock.
func (s *spinlock) Unlock() {
	s.held.Store(0)
}
