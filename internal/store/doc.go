// Package store provides the SQLite-backed edit journal.
//
// The journal is append-only:
//   - Sessions: one row per live session (engine build, sample rate, block size)
//   - Generations: one row per edit cycle, committed or rejected
//
// # Critical Patterns
//
// Logical Ordering
//   - Generations are ordered by seq INTEGER (assigned on insert), NEVER timestamps
//   - Session IDs are UUIDv7 and sort by start time
//
// Deterministic Query Results
//   - All queries include an ORDER BY on seq or id COLLATE BINARY
//
// Source, Not State
//   - Rows hold program source text and plan summaries
//   - Graph state is rebuilt by replaying committed sources, never loaded
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
