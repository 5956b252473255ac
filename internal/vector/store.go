package vector

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/roach88/vecstore/internal/memory"
)

// slotSize is the byte cost of one slot (a slice header) charged against
// allocators that implement memory.Charger.
const slotSize = 3 * strconv.IntSize / 8

// Option configures a Store.
type Option func(*settings)

type settings struct {
	capacity int
	alloc    memory.Allocator
}

// WithInitialCapacity sets the slot count of a new store. Values below 1
// select DefaultCapacity.
func WithInitialCapacity(n int) Option {
	return func(s *settings) {
		s.capacity = n
	}
}

// WithAllocator sets the allocator used for element copies. When the
// allocator also implements memory.Charger, the slot array is charged
// against it as well.
func WithAllocator(a memory.Allocator) Option {
	return func(s *settings) {
		if a != nil {
			s.alloc = a
		}
	}
}

// Store is an ordered sequence of byte buffers.
//
// Every element is a private copy of the caller's data, taken when the
// element is pushed, inserted or set; later changes to the caller's slice
// never show through. Buffers returned by Get, Front and End are owned by
// the store and stay valid only until the next mutation of that index.
//
// A Store is either live or freed. Once Free has been called every
// operation fails with ErrInvalidHandle and lookups report not found.
// A nil *Store behaves like a freed one.
//
// Store is not safe for concurrent use; see Synced.
type Store struct {
	slots *Array[[]byte]
	alloc memory.Allocator
	freed bool
}

// New creates an empty store with DefaultCapacity slots.
// Returns (nil, error) with code ALLOCATION_FAILED if the slot array cannot
// be charged against the allocator.
func New(opts ...Option) (*Store, error) {
	cfg := settings{capacity: DefaultCapacity, alloc: memory.Plain{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.capacity < 1 {
		cfg.capacity = DefaultCapacity
	}

	charger, _ := cfg.alloc.(memory.Charger)
	if charger != nil {
		if err := charger.Charge(cfg.capacity * slotSize); err != nil {
			return nil, allocError("init", 0, err)
		}
	}

	s := &Store{
		slots: NewArray[[]byte](cfg.capacity),
		alloc: cfg.alloc,
	}
	s.slots.OnRelease(s.alloc.Free)
	if charger != nil {
		s.slots.OnResize(func(from, to int) error {
			if to > from {
				return charger.Charge((to - from) * slotSize)
			}
			charger.Refund((from - to) * slotSize)
			return nil
		})
	}
	return s, nil
}

func (s *Store) live() bool {
	return s != nil && !s.freed
}

// Len returns the number of elements. A freed store has length 0.
func (s *Store) Len() int {
	if !s.live() {
		return 0
	}
	return s.slots.Len()
}

// Cap returns the number of allocated slots. A freed store has capacity 0.
func (s *Store) Cap() int {
	if !s.live() {
		return 0
	}
	return s.slots.Cap()
}

// PushBack appends a copy of data. On failure the store is unchanged.
func (s *Store) PushBack(data []byte) error {
	if !s.live() {
		return invalidHandle("push_back")
	}
	buf, err := s.copyIn("push_back", data)
	if err != nil {
		return err
	}
	if err := s.slots.PushBack(buf); err != nil {
		s.alloc.Free(buf)
		return err
	}
	return nil
}

// PopBack removes the last element. Fails with INDEX_OUT_OF_RANGE when the
// store is empty.
func (s *Store) PopBack() error {
	if !s.live() {
		return invalidHandle("pop_back")
	}
	return s.slots.PopBack()
}

// Get returns the element at index i without copying it.
// Returns (nil, false) if i is outside [0, Len()) or the store is freed.
func (s *Store) Get(i int) ([]byte, bool) {
	if !s.live() {
		return nil, false
	}
	return s.slots.Get(i)
}

// Front returns the first element.
func (s *Store) Front() ([]byte, bool) {
	return s.Get(0)
}

// End returns the last element.
func (s *Store) End() ([]byte, bool) {
	if !s.live() {
		return nil, false
	}
	return s.slots.Get(s.slots.Len() - 1)
}

// Set replaces the element at index i with a copy of data and releases the
// previous buffer. If the copy cannot be allocated the old element stays.
func (s *Store) Set(i int, data []byte) error {
	if !s.live() {
		return invalidHandle("set")
	}
	if i < 0 || i >= s.slots.Len() {
		return indexError("set", i, s.slots.Len())
	}
	buf, err := s.copyIn("set", data)
	if err != nil {
		return err
	}
	return s.slots.Set(i, buf)
}

// Insert places a copy of data at index i, moving the elements at
// [i, Len()) one position later. i must be in [0, Len()); use PushBack to
// append.
func (s *Store) Insert(i int, data []byte) error {
	if !s.live() {
		return invalidHandle("insert")
	}
	if i < 0 || i >= s.slots.Len() {
		return indexError("insert", i, s.slots.Len())
	}
	buf, err := s.copyIn("insert", data)
	if err != nil {
		return err
	}
	if err := s.slots.Insert(i, buf); err != nil {
		s.alloc.Free(buf)
		return err
	}
	return nil
}

// Erase releases the element at index i and moves later elements one
// position earlier.
func (s *Store) Erase(i int) error {
	if !s.live() {
		return invalidHandle("erase")
	}
	return s.slots.Erase(i)
}

// Clear releases every element. The capacity is kept.
func (s *Store) Clear() error {
	if !s.live() {
		return invalidHandle("clear")
	}
	s.slots.Clear()
	return nil
}

// Free releases every element and the slot array. The store must not be
// used afterwards; doing so fails with INVALID_HANDLE.
func (s *Store) Free() error {
	if !s.live() {
		return invalidHandle("free")
	}
	capacity := s.slots.Cap()
	s.slots.Free()
	if charger, ok := s.alloc.(memory.Charger); ok {
		charger.Refund(capacity * slotSize)
	}
	s.freed = true
	return nil
}

// Join renders every element as text and concatenates them with sep
// between consecutive elements.
//
// Elements must be valid UTF-8. A single trailing NUL, as left by callers
// that store C-style terminated strings, is not part of the text. Any
// other element fails the call with NOT_TEXT.
func (s *Store) Join(sep string) (string, error) {
	if !s.live() {
		return "", invalidHandle("join")
	}

	n := s.slots.Len()
	size := 0
	if n > 1 {
		size = len(sep) * (n - 1)
	}
	var bad *Error
	s.slots.Each(func(i int, b []byte) bool {
		txt, ok := text(b)
		if !ok {
			bad = &Error{Code: ErrCodeNotText, Op: "join", Index: i, Length: n}
			return false
		}
		size += len(txt)
		return true
	})
	if bad != nil {
		return "", bad
	}

	var sb strings.Builder
	sb.Grow(size)
	s.slots.Each(func(i int, b []byte) bool {
		if i > 0 {
			sb.WriteString(sep)
		}
		txt, _ := text(b)
		sb.Write(txt)
		return true
	})
	return sb.String(), nil
}

// text strips one trailing NUL and reports whether the rest is valid
// UTF-8 without embedded NULs.
func text(b []byte) ([]byte, bool) {
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return nil, false
	}
	return b, utf8.Valid(b)
}

func (s *Store) copyIn(op string, data []byte) ([]byte, error) {
	buf, err := s.alloc.Alloc(len(data))
	if err != nil {
		return nil, allocError(op, s.slots.Len(), err)
	}
	copy(buf, data)
	return buf, nil
}
