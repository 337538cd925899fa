// Package lockgraph implements a dynamic lock-grouping engine: a
// concurrency primitive for maintaining a large population of
// individually-lockable References while allowing arbitrary subsets of
// them to be declared, at runtime, as Linked so that they share a single
// underlying mutex (a Lock).
//
// Links may be added (Join) and removed (Split) dynamically. The engine
// merges the Locks of two differently-locked References on Join, and
// fragments a Lock on Split when removing the last direct Link leaves no
// indirect path between its endpoints. Callers acquire a single Reference
// (LockOne/UnlockOne) or an arbitrary set of References at once, atomically
// and without deadlock, via a Locker.
//
// The motivating use is a large in-process database of independent records
// that must occasionally be locked as connected groups — an update to
// record A must also lock everything reachable from A through Links —
// where the shape of those groups changes at runtime.
//
// This package makes no fairness guarantees beyond those of sync.Mutex,
// performs no priority inheritance or deadlock detection, and has no
// notion of readers vs. writers or lock upgrade/downgrade: safety comes
// entirely from the fact that any two Lockers acquire overlapping Locks in
// the same (address) order.
package lockgraph
