package vector

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vecstore/internal/memory"
)

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(opts...)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func contents(s *Store) []string {
	out := make([]string, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		b, _ := s.Get(i)
		out = append(out, string(b))
	}
	return out
}

func TestNew(t *testing.T) {
	s := newStore(t)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 8, s.Cap())

	s = newStore(t, WithInitialCapacity(2))
	assert.Equal(t, 2, s.Cap())

	s = newStore(t, WithInitialCapacity(-3), WithAllocator(nil))
	assert.Equal(t, DefaultCapacity, s.Cap())
}

func TestNewAllocationFailure(t *testing.T) {
	s, err := New(WithAllocator(memory.NewBudget(nil, 10)))
	require.Error(t, err)
	assert.Nil(t, s, "no partially constructed store")
	assert.ErrorIs(t, err, ErrAllocation)
	assert.ErrorIs(t, err, memory.ErrExhausted)
}

func TestPushGetRoundTripCopies(t *testing.T) {
	s := newStore(t)

	src := []byte("hello\x00")
	require.NoError(t, s.PushBack(src))

	// Mutating the caller's buffer must not show through.
	src[0] = 'J'

	got, ok := s.Get(0)
	require.True(t, ok)
	assert.Equal(t, []byte("hello\x00"), got)
}

func TestPushGetManyValues(t *testing.T) {
	s := newStore(t)
	var want []string
	for i := 0; i < 100; i++ {
		v := fmt.Sprintf("value-%03d", i)
		want = append(want, v)
		require.NoError(t, s.PushBack([]byte(v)))
	}

	if diff := cmp.Diff(want, contents(s)); diff != "" {
		t.Errorf("contents (-want +got):\n%s", diff)
	}
	assert.Equal(t, 128, s.Cap())
}

func TestNinthPushGrows(t *testing.T) {
	s := newStore(t)
	for i := 0; i < 8; i++ {
		require.NoError(t, s.PushBack([]byte{byte(i)}))
	}
	require.Equal(t, 8, s.Cap())

	require.NoError(t, s.PushBack([]byte{8}))
	assert.Equal(t, 16, s.Cap())
	assert.Equal(t, 9, s.Len())

	for i := 0; i < 9; i++ {
		b, ok := s.Get(i)
		require.True(t, ok)
		assert.Equal(t, []byte{byte(i)}, b)
	}
}

func TestLengthInvariant(t *testing.T) {
	s := newStore(t)
	const n, m = 40, 25
	for i := 0; i < n; i++ {
		require.NoError(t, s.PushBack([]byte{byte(i)}))
	}
	for i := 0; i < m; i++ {
		require.NoError(t, s.Erase(i%s.Len()))
	}
	assert.Equal(t, n-m, s.Len())
}

func TestEraseShiftsLeft(t *testing.T) {
	s := newStore(t)
	for _, v := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.PushBack([]byte(v)))
	}

	require.NoError(t, s.Erase(1))
	assert.Equal(t, []string{"a", "c", "d"}, contents(s))
	assert.Equal(t, 3, s.Len())
}

func TestOutOfRangeGet(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.PushBack([]byte("x")))

	_, ok := s.Get(s.Len())
	assert.False(t, ok)
	_, ok = s.Get(-1)
	assert.False(t, ok)
}

func TestFrontEnd(t *testing.T) {
	s := newStore(t)

	_, ok := s.Front()
	assert.False(t, ok)
	_, ok = s.End()
	assert.False(t, ok)

	for _, v := range []string{"first", "middle", "last"} {
		require.NoError(t, s.PushBack([]byte(v)))
	}

	front, ok := s.Front()
	require.True(t, ok)
	assert.Equal(t, "first", string(front))

	end, ok := s.End()
	require.True(t, ok)
	assert.Equal(t, "last", string(end))
}

func TestSetReplacesAndReleases(t *testing.T) {
	counter := memory.NewCounter(nil)
	s := newStore(t, WithAllocator(counter))

	require.NoError(t, s.PushBack([]byte("old")))
	require.NoError(t, s.Set(0, []byte("newer")))

	got, _ := s.Get(0)
	assert.Equal(t, "newer", string(got))
	assert.Equal(t, int64(1), counter.Stats().Live, "old buffer released")
	assert.Equal(t, int64(5), counter.Stats().Bytes)

	err := s.Set(1, []byte("x"))
	assert.ErrorIs(t, err, ErrIndex)
	assert.Equal(t, int64(1), counter.Stats().Live, "failed set allocates nothing")
}

func TestSetAllocationFailureKeepsOld(t *testing.T) {
	budget := memory.NewBudget(nil, 8*slotSize+4)
	s := newStore(t, WithAllocator(budget))

	require.NoError(t, s.PushBack([]byte("abc")))
	err := s.Set(0, []byte("too long"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllocation)

	got, _ := s.Get(0)
	assert.Equal(t, "abc", string(got))
}

func TestInsertPreservesDisplacedElement(t *testing.T) {
	s := newStore(t)
	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, s.PushBack([]byte(v)))
	}

	require.NoError(t, s.Insert(1, []byte("X")))
	assert.Equal(t, []string{"a", "X", "b", "c"}, contents(s))

	require.NoError(t, s.Insert(0, []byte("Y")))
	assert.Equal(t, []string{"Y", "a", "X", "b", "c"}, contents(s))

	require.NoError(t, s.Insert(4, []byte("Z")))
	assert.Equal(t, []string{"Y", "a", "X", "b", "Z", "c"}, contents(s))
}

func TestInsertOutOfRange(t *testing.T) {
	counter := memory.NewCounter(nil)
	s := newStore(t, WithAllocator(counter))
	require.NoError(t, s.PushBack([]byte("a")))

	err := s.Insert(1, []byte("b"))
	assert.ErrorIs(t, err, ErrIndex)
	assert.Equal(t, int64(1), counter.Stats().Allocs)
}

func TestInsertGrowthFailureReleasesCopy(t *testing.T) {
	counter := memory.NewCounter(memory.NewBudget(nil, 8*slotSize+100))
	s := newStore(t, WithAllocator(counter))
	for i := 0; i < 7; i++ {
		require.NoError(t, s.PushBack([]byte{byte(i)}))
	}

	err := s.Insert(0, []byte{99})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, 7, s.Len())
	assert.Equal(t, 8, s.Cap())
	assert.Equal(t, int64(7), counter.Stats().Live)
}

func TestPushAllocationFailureLeavesStoreUnchanged(t *testing.T) {
	// Room for the initial slot array and eight one-byte elements only.
	budget := memory.NewBudget(nil, 8*slotSize+8)
	counter := memory.NewCounter(budget)
	s := newStore(t, WithAllocator(counter))

	for i := 0; i < 8; i++ {
		require.NoError(t, s.PushBack([]byte{byte(i)}))
	}

	err := s.PushBack([]byte{8})
	require.Error(t, err)
	assert.Equal(t, ErrCodeAllocation, CodeOf(err))
	assert.Equal(t, 8, s.Len())
	assert.Equal(t, 8, s.Cap())
	assert.Equal(t, int64(8), counter.Stats().Live)

	// Releasing one element makes room again.
	require.NoError(t, s.PopBack())
	require.NoError(t, s.PushBack([]byte{7}))
	assert.Equal(t, 8, s.Len())
}

func TestGrowthChargedAgainstBudget(t *testing.T) {
	budget := memory.NewBudget(nil, 1<<20)
	s := newStore(t, WithAllocator(budget))
	assert.Equal(t, int64(8*slotSize), budget.Used())

	for i := 0; i < 9; i++ {
		require.NoError(t, s.PushBack([]byte{1}))
	}
	assert.Equal(t, int64(16*slotSize+9), budget.Used())

	require.NoError(t, s.Free())
	assert.Equal(t, int64(0), budget.Used())
}

func TestPopBackEmpty(t *testing.T) {
	s := newStore(t)
	err := s.PopBack()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndex)
}

func TestClearIdempotent(t *testing.T) {
	counter := memory.NewCounter(nil)
	s := newStore(t, WithAllocator(counter))

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Len())

	for i := 0; i < 20; i++ {
		require.NoError(t, s.PushBack([]byte("xy")))
	}
	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 32, s.Cap(), "clear keeps current capacity")
	assert.Equal(t, int64(0), counter.Stats().Live)

	require.NoError(t, s.PushBack([]byte("again")))
	assert.Equal(t, []string{"again"}, contents(s))
}

func TestFreeReleasesEverything(t *testing.T) {
	counter := memory.NewCounter(&memory.Heap{})
	s := newStore(t, WithAllocator(counter))
	for i := 0; i < 10; i++ {
		require.NoError(t, s.PushBack([]byte("element")))
	}

	require.NoError(t, s.Free())
	assert.Equal(t, int64(0), counter.Stats().Live)
	assert.Equal(t, int64(0), counter.Stats().Bytes)
}

func TestOperationsAfterFree(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.PushBack([]byte("a")))
	require.NoError(t, s.Free())

	ops := map[string]error{
		"push_back": s.PushBack([]byte("b")),
		"pop_back":  s.PopBack(),
		"set":       s.Set(0, []byte("c")),
		"insert":    s.Insert(0, []byte("d")),
		"erase":     s.Erase(0),
		"clear":     s.Clear(),
		"free":      s.Free(),
	}
	for op, err := range ops {
		assert.ErrorIs(t, err, ErrInvalidHandle, op)
	}

	_, err := s.Join(",")
	assert.ErrorIs(t, err, ErrInvalidHandle)

	_, ok := s.Get(0)
	assert.False(t, ok)
	_, ok = s.Front()
	assert.False(t, ok)
	_, ok = s.End()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Cap())
}

func TestNilStore(t *testing.T) {
	var s *Store

	assert.ErrorIs(t, s.PushBack([]byte("a")), ErrInvalidHandle)
	assert.ErrorIs(t, s.Free(), ErrInvalidHandle)
	_, ok := s.Get(0)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestEndToEndScenario(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.PushBack([]byte("a\x00")))
	require.NoError(t, s.PushBack([]byte("bb\x00")))

	got, _ := s.Get(0)
	assert.Equal(t, []byte("a\x00"), got)
	got, _ = s.Get(1)
	assert.Equal(t, []byte("bb\x00"), got)
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Erase(0))
	assert.Equal(t, 1, s.Len())
	got, _ = s.Get(0)
	assert.Equal(t, []byte("bb\x00"), got)

	require.NoError(t, s.Free())
}

func TestEraseShrinkRefundsBudget(t *testing.T) {
	budget := memory.NewBudget(nil, 1<<20)
	s := newStore(t, WithAllocator(budget))
	for i := 0; i < 9; i++ {
		require.NoError(t, s.PushBack(nil))
	}
	require.Equal(t, 16, s.Cap())

	for s.Len() > 4 {
		require.NoError(t, s.PopBack())
	}
	assert.Equal(t, 8, s.Cap())
	assert.Equal(t, int64(8*slotSize), budget.Used())
}

func TestJoin(t *testing.T) {
	tests := []struct {
		name  string
		elems []string
		sep   string
		want  string
	}{
		{name: "empty", elems: nil, sep: ", ", want: ""},
		{name: "single", elems: []string{"only"}, sep: ", ", want: "only"},
		{name: "terminated", elems: []string{"a\x00", "bb\x00"}, sep: "-", want: "a-bb"},
		{name: "mixed", elems: []string{"Labas", "pasauli!\x00"}, sep: ", ", want: "Labas, pasauli!"},
		{name: "empty separator", elems: []string{"x", "y", "z"}, sep: "", want: "xyz"},
		{name: "empty element", elems: []string{"", "\x00", "q"}, sep: "|", want: "||q"},
		{name: "unicode", elems: []string{"žodis", "λ"}, sep: " ", want: "žodis λ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			for _, e := range tt.elems {
				require.NoError(t, s.PushBack([]byte(e)))
			}
			got, err := s.Join(tt.sep)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJoinRejectsNonText(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.PushBack([]byte("ok")))
	require.NoError(t, s.PushBack([]byte{0xFF, 0x00, 0x00, 0x00}))

	_, err := s.Join(",")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotText)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 1, e.Index)

	s2 := newStore(t)
	require.NoError(t, s2.PushBack([]byte("a\x00b")))
	_, err = s2.Join(",")
	assert.ErrorIs(t, err, ErrNotText, "embedded NUL")
}
