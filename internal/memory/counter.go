package memory

import "sync/atomic"

// Stats is a snapshot of a Counter.
type Stats struct {
	Allocs int64 // successful Alloc calls
	Frees  int64 // Free calls
	Live   int64 // buffers handed out and not yet freed
	Bytes  int64 // bytes handed out and not yet freed
}

// Counter wraps an allocator and counts what passes through it.
// It is safe for concurrent use.
type Counter struct {
	next Allocator

	allocs atomic.Int64
	frees  atomic.Int64
	bytes  atomic.Int64
}

// NewCounter returns a Counter over next. A nil next allocates from Plain.
func NewCounter(next Allocator) *Counter {
	if next == nil {
		next = Plain{}
	}
	return &Counter{next: next}
}

// Alloc allocates from the wrapped allocator and counts the buffer.
func (c *Counter) Alloc(n int) ([]byte, error) {
	b, err := c.next.Alloc(n)
	if err != nil {
		return nil, err
	}
	c.allocs.Add(1)
	c.bytes.Add(int64(len(b)))
	return b, nil
}

// Free counts b and returns it to the wrapped allocator.
func (c *Counter) Free(b []byte) {
	c.frees.Add(1)
	c.bytes.Add(-int64(len(b)))
	c.next.Free(b)
}

// Charge forwards to the wrapped allocator when it is a Charger.
func (c *Counter) Charge(n int) error {
	if ch, ok := c.next.(Charger); ok {
		return ch.Charge(n)
	}
	return nil
}

// Refund forwards to the wrapped allocator when it is a Charger.
func (c *Counter) Refund(n int) {
	if ch, ok := c.next.(Charger); ok {
		ch.Refund(n)
	}
}

// Stats returns the current counts.
func (c *Counter) Stats() Stats {
	allocs, frees := c.allocs.Load(), c.frees.Load()
	return Stats{
		Allocs: allocs,
		Frees:  frees,
		Live:   allocs - frees,
		Bytes:  c.bytes.Load(),
	}
}
