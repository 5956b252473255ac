// Package handle maps opaque handles to vector stores.
//
// A Handle is a UUIDv7. Handles are never reused: once a store is freed its
// handle stays invalid for the lifetime of the table.
package handle

import (
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/vecstore/internal/vector"
)

// Handle names a store in a Table.
type Handle uuid.UUID

// Nil is the zero handle. It never names a store.
var Nil Handle

// String returns the hyphenated UUID form.
func (h Handle) String() string {
	return uuid.UUID(h).String()
}

// Parse reads a handle from its string form.
func Parse(s string) (Handle, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Nil, err
	}
	return Handle(id), nil
}

// Generator produces handle IDs.
type Generator interface {
	Generate() uuid.UUID
}

// UUIDv7Generator generates time-sortable UUIDv7 handles.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// SequentialGenerator returns UUIDs whose last bytes count up from 1.
// Used for deterministic traces.
//
// Thread-safety: callers must hold the Table lock (Table does).
type SequentialGenerator struct {
	n uint64
}

// Generate returns the next UUID in the sequence.
func (g *SequentialGenerator) Generate() uuid.UUID {
	g.n++
	var id uuid.UUID
	for i := 0; i < 8; i++ {
		id[15-i] = byte(g.n >> (8 * i))
	}
	return id
}

// Table owns a set of stores addressed by handle.
// It is safe for concurrent use; the stores themselves are not.
type Table struct {
	mu     sync.Mutex
	stores map[Handle]*vector.Store
	gen    Generator
}

// NewTable creates an empty table. A nil gen selects UUIDv7Generator.
func NewTable(gen Generator) *Table {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	return &Table{
		stores: make(map[Handle]*vector.Store),
		gen:    gen,
	}
}

// Create initializes a new store and returns its handle.
func (t *Table) Create(opts ...vector.Option) (Handle, error) {
	s, err := vector.New(opts...)
	if err != nil {
		return Nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	h := Handle(t.gen.Generate())
	t.stores[h] = s
	return h, nil
}

// Lookup returns the store named by h.
// Fails with vector.ErrInvalidHandle for unknown or freed handles.
func (t *Table) Lookup(h Handle) (*vector.Store, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stores[h]
	if !ok {
		return nil, &vector.Error{Code: vector.ErrCodeInvalidHandle, Op: "lookup"}
	}
	return s, nil
}

// Free tears down the store named by h and invalidates the handle.
func (t *Table) Free(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stores[h]
	if !ok {
		return &vector.Error{Code: vector.ErrCodeInvalidHandle, Op: "free"}
	}
	delete(t.stores, h)
	return s.Free()
}

// Len returns the number of live stores.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stores)
}

// Close frees every remaining store.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for h, s := range t.stores {
		_ = s.Free()
		delete(t.stores, h)
	}
}
