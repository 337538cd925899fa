package lockgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// withFailedAlloc makes every allocation tagged `op` fail for the duration
// of fn, then restores the previous hook.
func withFailedAlloc(op string, fn func()) {
	prev := failAlloc
	failAlloc = func(gotOp string) bool { return gotOp == op }
	defer func() { failAlloc = prev }()
	fn()
}

func TestNewReferenceAllocFailure(t *testing.T) {
	withFailedAlloc("newLock", func() {
		r, err := NewReference()
		require.Nil(t, r)
		require.ErrorIs(t, err, ErrAllocFailure)
	})
}

func TestNewLockerAllocFailure(t *testing.T) {
	a, err := NewReference()
	require.NoError(t, err)
	defer a.Clean()

	withFailedAlloc("NewLocker", func() {
		lk, err := NewLocker(a)
		require.Nil(t, lk)
		require.ErrorIs(t, err, ErrAllocFailure)
	})
}

func TestJoinAllocFailure(t *testing.T) {
	a, err := NewReference()
	require.NoError(t, err)
	b, err := NewReference()
	require.NoError(t, err)

	lk, err := NewLocker(a, b)
	require.NoError(t, err)
	lk.Lock()

	withFailedAlloc("newLink", func() {
		link, err := lk.Join(a, b)
		require.Nil(t, link)
		require.ErrorIs(t, err, ErrAllocFailure)
	})

	lk.Unlock()
	lk.Free()
	a.Clean()
	b.Clean()
}

func TestAllocFailureWraps(t *testing.T) {
	err := allocFailure("newLock")
	require.True(t, errors.Is(err, ErrAllocFailure))
	require.Contains(t, err.Error(), "newLock")
}
