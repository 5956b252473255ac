package memory

import (
	"fmt"
	"sync"
)

// Budget wraps an allocator with a limit on the number of bytes that may be
// outstanding at once. Bytes are counted by requested length, not by the
// size class the underlying allocator rounds up to.
type Budget struct {
	next  Allocator
	limit int64

	mu   sync.Mutex
	used int64
}

// NewBudget returns a Budget allowing up to limit bytes from next.
// A nil next allocates from Plain.
func NewBudget(next Allocator, limit int64) *Budget {
	if next == nil {
		next = Plain{}
	}
	return &Budget{next: next, limit: limit}
}

// Alloc charges n bytes against the limit before allocating.
// It returns ErrExhausted when the charge would exceed the limit.
func (b *Budget) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	if err := b.Charge(n); err != nil {
		return nil, err
	}
	buf, err := b.next.Alloc(n)
	if err != nil {
		b.Refund(n)
		return nil, err
	}
	return buf, nil
}

// Free refunds len(buf) bytes and releases buf.
func (b *Budget) Free(buf []byte) {
	b.Refund(len(buf))
	b.next.Free(buf)
}

// Charge implements Charger.
func (b *Budget) Charge(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.used+int64(n) > b.limit {
		return fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrExhausted, n, b.used, b.limit)
	}
	b.used += int64(n)
	return nil
}

// Refund implements Charger.
func (b *Budget) Refund(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.used -= int64(n)
	if b.used < 0 {
		b.used = 0
	}
}

// Used returns the number of bytes currently charged.
func (b *Budget) Used() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Limit returns the configured byte limit.
func (b *Budget) Limit() int64 {
	return b.limit
}
