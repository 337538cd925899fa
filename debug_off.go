//go:build !lockgraphdebug

package lockgraph

// No-op counterparts of debug.go's checks for ordinary (non-debug) builds.

func debugCheckSorted(refs []lockerRef) {}

func debugCheckAscending(prev, l *Lock) {}
