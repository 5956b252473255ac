package vector

import (
	"bytes"
	"sync"
)

// Synced guards a Store with a read-write mutex so it can be shared between
// goroutines.
//
// Reads return private copies: a borrowed buffer would otherwise outlive the
// lock that protects it.
type Synced struct {
	mu    sync.RWMutex
	store *Store
}

// NewSynced creates a store with the given options and wraps it.
func NewSynced(opts ...Option) (*Synced, error) {
	s, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return &Synced{store: s}, nil
}

// Len returns the number of elements.
func (s *Synced) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Len()
}

// Cap returns the number of allocated slots.
func (s *Synced) Cap() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Cap()
}

// Get returns a copy of the element at index i.
func (s *Synced) Get(i int) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.store.Get(i))
}

// Front returns a copy of the first element.
func (s *Synced) Front() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.store.Front())
}

// End returns a copy of the last element.
func (s *Synced) End() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.store.End())
}

// Join renders the elements as text.
func (s *Synced) Join(sep string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Join(sep)
}

// PushBack appends a copy of data.
func (s *Synced) PushBack(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.PushBack(data)
}

// PopBack removes the last element.
func (s *Synced) PopBack() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.PopBack()
}

// Set replaces the element at index i.
func (s *Synced) Set(i int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Set(i, data)
}

// Insert places a copy of data at index i.
func (s *Synced) Insert(i int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Insert(i, data)
}

// Erase removes the element at index i.
func (s *Synced) Erase(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Erase(i)
}

// Clear releases every element.
func (s *Synced) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Clear()
}

// Free releases the store.
func (s *Synced) Free() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Free()
}

func clone(b []byte, ok bool) ([]byte, bool) {
	if !ok {
		return nil, false
	}
	return bytes.Clone(b), true
}
