// Package engine reconciles registered badge recipes with persisted badges
// and awards.
//
// A run is a pass over the selected recipes. Each pass is idempotent: running
// it twice with unchanged membership changes nothing the second time.
//
// OPERATIONS:
//
//   - SyncBadges creates missing badges from recipe metadata and, on request,
//     patches metadata that drifted.
//   - SyncAwards computes each recipe's qualifying users, inserts the missing
//     awards in batches and, when asked, revokes awards of users who no longer
//     qualify.
//   - SyncCounts recomputes the denormalized holder count of every badge.
//   - ResetAwards deletes every award of the selected badges and zeroes their
//     counters.
//   - Grant and Revoke change individual awards by hand.
//
// NOTIFICATIONS:
//
// Every award inserted or deleted by SyncAwards, Grant or Revoke is reported
// to the registered Listeners after its batch commits, exactly once per award.
// Counter is the Listener that keeps holder counts current. Notifications can
// be disabled per run; counts are then repaired with SyncCounts.
//
// FAILURES:
//
// A missing badge or undefined membership skips the recipe. A duplicate-key
// rejection (another writer won the race) is absorbed. Any other storage or
// membership failure stops that recipe only; it is recorded in the report and
// the run moves on. A recipe without an image aborts SyncBadges with a
// *badge.ConfigError.
//
// CONCURRENCY:
//
// Recipes run sequentially unless Workers > 1. Work on a single slug is
// always serialized through a lock.Locker, so parallel runs (or parallel
// processes sharing a Redis locker) never reconcile the same badge at once.
package engine
