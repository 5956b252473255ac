// Package vector implements a dynamic array of owned byte buffers.
//
// A Store keeps an ordered sequence of elements, a length and a capacity.
// Elements are copies of caller data obtained from a memory.Allocator; the
// store owns them and hands each one back to the allocator when it is
// erased, overwritten, cleared, or when the store is freed.
//
// # Capacity Policy
//
// A new store has 8 slots. Capacity doubles when a push finds the store
// full (or an insert would leave it full) and halves when an erase leaves
// exactly capacity/4 elements with at least one remaining. Relocating the
// slot array never moves the element buffers themselves.
//
// # Errors
//
// Every failure is an *Error carrying one of the codes ALLOCATION_FAILED,
// INDEX_OUT_OF_RANGE, INVALID_HANDLE or NOT_TEXT. Use errors.Is with the
// sentinels (ErrIndex, ...) or CodeOf to inspect them. A failed allocation
// leaves the store exactly as it was.
//
// The generic Array underneath carries the same policy for any element type.
package vector
