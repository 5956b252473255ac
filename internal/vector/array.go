package vector

// DefaultCapacity is the slot count of a freshly created array.
const DefaultCapacity = 8

// ResizeFunc is consulted before the slot array is relocated from one
// capacity to another. Returning an error vetoes the relocation.
type ResizeFunc func(from, to int) error

// Array is a growable sequence of values with an explicit capacity policy:
//
//   - Growth doubles the capacity when a push finds the array full, or when
//     an insert would leave it full.
//   - Shrink halves the capacity when an erase leaves exactly capacity/4
//     live elements (and at least one).
//
// Values removed by Set, Erase, Clear or Free are passed to the release
// function, if one is set, after they are no longer reachable from the array.
//
// Array is not safe for concurrent use.
type Array[T any] struct {
	slots   []T // len(slots) is the capacity
	length  int
	release func(T)
	resize  ResizeFunc
}

// NewArray creates an empty array with the given capacity. A capacity
// below 1 selects DefaultCapacity.
func NewArray[T any](capacity int) *Array[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Array[T]{slots: make([]T, capacity)}
}

// OnRelease sets the function that receives removed values.
func (a *Array[T]) OnRelease(fn func(T)) {
	a.release = fn
}

// OnResize sets the function consulted before each relocation.
func (a *Array[T]) OnResize(fn ResizeFunc) {
	a.resize = fn
}

// Len returns the number of live elements.
func (a *Array[T]) Len() int {
	return a.length
}

// Cap returns the number of allocated slots.
func (a *Array[T]) Cap() int {
	return len(a.slots)
}

// Get returns the element at index i.
// Returns (zero, false) if i is outside [0, Len()).
func (a *Array[T]) Get(i int) (T, bool) {
	if i < 0 || i >= a.length {
		var zero T
		return zero, false
	}
	return a.slots[i], true
}

// PushBack appends v, doubling the capacity first if the array is full.
func (a *Array[T]) PushBack(v T) error {
	if a.length == len(a.slots) {
		if err := a.relocate("push_back", 2*len(a.slots)); err != nil {
			return err
		}
	}
	a.slots[a.length] = v
	a.length++
	return nil
}

// PopBack removes the last element.
func (a *Array[T]) PopBack() error {
	return a.erase("pop_back", a.length-1)
}

// Set replaces the element at index i and releases the old one.
func (a *Array[T]) Set(i int, v T) error {
	if i < 0 || i >= a.length {
		return indexError("set", i, a.length)
	}
	old := a.slots[i]
	a.slots[i] = v
	a.drop(old)
	return nil
}

// Insert places v at index i. Elements previously at [i, Len()) move one
// position later, keeping their order. i must be in [0, Len()).
func (a *Array[T]) Insert(i int, v T) error {
	if i < 0 || i >= a.length {
		return indexError("insert", i, a.length)
	}
	if a.length+1 >= len(a.slots) {
		if err := a.relocate("insert", 2*len(a.slots)); err != nil {
			return err
		}
	}
	copy(a.slots[i+1:a.length+1], a.slots[i:a.length])
	a.slots[i] = v
	a.length++
	return nil
}

// Erase removes the element at index i, moving later elements one
// position earlier, and shrinks the capacity when the array drops to a
// quarter full.
func (a *Array[T]) Erase(i int) error {
	return a.erase("erase", i)
}

func (a *Array[T]) erase(op string, i int) error {
	if i < 0 || i >= a.length {
		return indexError(op, i, a.length)
	}
	old := a.slots[i]
	copy(a.slots[i:a.length-1], a.slots[i+1:a.length])
	a.length--
	var zero T
	a.slots[a.length] = zero
	a.drop(old)

	if a.length > 0 && a.length == len(a.slots)/4 {
		// A vetoed shrink leaves the array valid at its current capacity.
		_ = a.relocate(op, len(a.slots)/2)
	}
	return nil
}

// Clear releases every element and replaces the slot array with a fresh
// one of the same capacity.
func (a *Array[T]) Clear() {
	a.dropAll()
	a.slots = make([]T, len(a.slots))
	a.length = 0
}

// Free releases every element and the slot array. The array has zero
// capacity afterwards; it must not be used again.
func (a *Array[T]) Free() {
	a.dropAll()
	a.slots = nil
	a.length = 0
}

// Each calls fn for every live element in order until fn returns false.
func (a *Array[T]) Each(fn func(i int, v T) bool) {
	for i := 0; i < a.length; i++ {
		if !fn(i, a.slots[i]) {
			return
		}
	}
}

func (a *Array[T]) relocate(op string, capacity int) error {
	if a.resize != nil {
		if err := a.resize(len(a.slots), capacity); err != nil {
			return allocError(op, a.length, err)
		}
	}
	slots := make([]T, capacity)
	copy(slots, a.slots[:a.length])
	a.slots = slots
	return nil
}

func (a *Array[T]) drop(v T) {
	if a.release != nil {
		a.release(v)
	}
}

func (a *Array[T]) dropAll() {
	for i := 0; i < a.length; i++ {
		a.drop(a.slots[i])
	}
}
