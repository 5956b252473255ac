// Package script runs data-driven scripts of vector store operations.
//
// A script names one or more stores and applies a sequence of steps to
// them. Each step may carry expectations (error code, element bytes, size,
// capacity, joined text); the runner records every step in a trace and
// collects expectation failures instead of stopping.
//
//	name: erase-shift
//	description: erase moves later elements down
//	steps:
//	  - {op: init, store: v}
//	  - {op: push_back, store: v, value: "a"}
//	  - {op: push_back, store: v, value: "b"}
//	  - {op: erase, store: v, index: 0}
//	  - {op: get, store: v, index: 0, expect: {value: "b"}}
//
// Scripts are YAML (.yaml, .yml) or CUE (.cue). Traces are deterministic:
// handles come from a sequential generator and nothing depends on wall
// time, so a trace can be compared against a golden file.
//
// Runs also check ownership: after the last step every store is freed and
// the allocator must report zero live buffers.
package script
