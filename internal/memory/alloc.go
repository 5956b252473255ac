package memory

import (
	"errors"
	"math/bits"
	"sync"
)

// ErrNegativeSize is returned when a buffer of negative length is requested.
var ErrNegativeSize = errors.New("memory: negative buffer size")

// ErrExhausted is returned when an allocation would exceed a byte budget.
var ErrExhausted = errors.New("memory: allocation budget exhausted")

// Allocator hands out byte buffers and takes them back.
//
// Alloc returns a buffer of exactly n bytes; its contents are unspecified.
// Free must only be called with a buffer returned by the same allocator,
// at full length, and at most once.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(b []byte)
}

// Charger is implemented by allocators that account for memory they do not
// hand out themselves, such as a container's slot array.
type Charger interface {
	// Charge reserves n bytes. It fails without reserving anything.
	Charge(n int) error
	// Refund returns n previously charged bytes.
	Refund(n int)
}

// Plain allocates straight from the Go heap and lets the garbage collector
// reclaim freed buffers.
type Plain struct{}

// Alloc returns a zeroed buffer of length n.
func (Plain) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	return make([]byte, n), nil
}

// Free does nothing.
func (Plain) Free([]byte) {}

const (
	minClassShift = 4  // 16 bytes
	maxClassShift = 14 // 16 KiB
	numClasses    = maxClassShift - minClassShift + 1
)

// Heap is a pooled allocator. Buffers up to 16 KiB are rounded up to a
// power-of-two size class and recycled through a sync.Pool per class;
// larger buffers come from the Go heap and are dropped on Free.
//
// The zero value is ready to use and Heap is safe for concurrent use.
type Heap struct {
	pools [numClasses]sync.Pool
}

// sizeClass returns the pool index for an n-byte request, or false when n
// is too large to pool.
func sizeClass(n int) (int, bool) {
	if n > 1<<maxClassShift {
		return 0, false
	}
	shift := minClassShift
	if n > 1 {
		if s := bits.Len(uint(n - 1)); s > shift {
			shift = s
		}
	}
	return shift - minClassShift, true
}

func classSize(c int) int {
	return 1 << (c + minClassShift)
}

// Alloc returns a buffer of length n, reusing a pooled one of the same
// size class when available. Sizes above the largest class are not pooled.
func (h *Heap) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	c, ok := sizeClass(n)
	if !ok {
		return make([]byte, n), nil
	}
	if bp, _ := h.pools[c].Get().(*[]byte); bp != nil {
		return (*bp)[:n], nil
	}
	return make([]byte, n, classSize(c)), nil
}

// Free returns b to its size-class pool. Buffers not allocated by Heap
// are dropped.
func (h *Heap) Free(b []byte) {
	c, ok := sizeClass(cap(b))
	if !ok || cap(b) != classSize(c) {
		return
	}
	b = b[:cap(b)]
	h.pools[c].Put(&b)
}
