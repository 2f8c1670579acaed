// Package store provides SQLite-backed durable storage for badges and awards.
//
// The store keeps two tables:
//   - badges: badge definitions keyed by a unique slug, with the denormalized
//     holder_count and the manual_assignment flag
//   - awards: (user_id, badge_id) pairs with an awarded_at timestamp
//
// # Critical Patterns
//
// Pair uniqueness:
//   - UNIQUE(user_id, badge_id) is the final correctness backstop for concurrent
//     reconciliation of the same badge
//   - InsertAwards is all-or-nothing per batch and reports badge.ErrDuplicateKey
//   - InsertAwardsIgnoringConflicts uses ON CONFLICT DO NOTHING row by row
//
// Counter updates:
//   - IncrementCount is a single relative UPDATE clamped at zero, never a
//     read-modify-write
//   - SetCount overwrites (full resync only)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Schema changes are goose migrations embedded from migrations/. SQLITE_BUSY and
// SQLITE_LOCKED are retried with exponential backoff before surfacing as
// badge.ErrStorageUnavailable.
package store
