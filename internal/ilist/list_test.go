package ilist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushBackAndOrder(t *testing.T) {
	var l List[int]
	a := &Elem[int]{Value: 1}
	b := &Elem[int]{Value: 2}
	c := &Elem[int]{Value: 3}

	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	require.Equal(t, 3, l.Len())

	var got []int
	l.Do(func(e *Elem[int]) { got = append(got, e.Value) })
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestRemoveMiddle(t *testing.T) {
	var l List[string]
	a := &Elem[string]{Value: "a"}
	b := &Elem[string]{Value: "b"}
	c := &Elem[string]{Value: "c"}
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	l.Remove(b)
	require.Equal(t, 2, l.Len())

	var got []string
	l.Do(func(e *Elem[string]) { got = append(got, e.Value) })
	assert.Equal(t, []string{"a", "c"}, got)

	// Removing again is a no-op.
	l.Remove(b)
	assert.Equal(t, 2, l.Len())
}

func TestPop(t *testing.T) {
	var l List[int]
	a := &Elem[int]{Value: 1}
	b := &Elem[int]{Value: 2}
	l.PushBack(a)
	l.PushBack(b)

	got := l.Pop()
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Value)
	assert.Equal(t, 1, l.Len())

	assert.Nil(t, l.Pop().Next())
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.Pop())
}

func TestPushAllDrainsOther(t *testing.T) {
	var src, dst List[int]
	src.PushBack(&Elem[int]{Value: 1})
	src.PushBack(&Elem[int]{Value: 2})
	dst.PushBack(&Elem[int]{Value: 0})

	dst.PushAll(&src)

	assert.Equal(t, 0, src.Len())
	require.Equal(t, 3, dst.Len())

	var got []int
	dst.Do(func(e *Elem[int]) { got = append(got, e.Value) })
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestNextPrevBoundaries(t *testing.T) {
	var l List[int]
	a := &Elem[int]{Value: 1}
	l.PushBack(a)

	assert.Nil(t, a.Next())
	assert.Nil(t, a.Prev())

	var bare Elem[int]
	assert.Nil(t, bare.Next())
	assert.Nil(t, bare.Prev())
}
