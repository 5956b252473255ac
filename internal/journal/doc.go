// Package journal records script runs in SQLite.
//
// Each run gets a UUIDv7 ID and a logical sequence number. Its trace is
// stored step by step so a run can be listed and inspected after the
// process that produced it is gone.
//
// # Ordering
//
//   - Runs are ordered by seq, assigned as MAX(seq)+1 inside the write
//     transaction
//   - Steps are ordered by their trace seq within a run
//
// Nothing is ordered by wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
