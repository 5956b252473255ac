// Package memory provides allocators for the owned element buffers held by
// vector stores.
//
// Every element a store keeps is a private copy obtained through an
// Allocator and handed back through Free when the element is removed,
// replaced, cleared, or the store is torn down. Routing buffers through an
// interface keeps three concerns out of the container itself:
//
//   - Pooling: Heap recycles buffers in power-of-two size classes.
//   - Limits: Budget caps the bytes in use and turns exhaustion into an
//     ordinary error instead of a runtime panic.
//   - Accounting: Counter tracks live buffers so callers can check that
//     nothing was leaked.
//
// Allocators compose by wrapping: NewCounter(NewBudget(&Heap{}, 1<<20)).
package memory
