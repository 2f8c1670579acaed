// Package badge provides the domain types shared by every other badgify package.
//
// This package contains type definitions, the error taxonomy and the storage
// ports. All other internal packages import badge; badge imports nothing
// internal, so it stays the foundational layer with no circular dependencies.
//
// Key constraints:
//   - A badge is identified by its slug everywhere (join key between recipes,
//     badges and awards)
//   - An award is identified by the (user, badge) pair, which storage must keep unique
//   - HolderCount is denormalized and only written through the counter operations
//     of BadgeStore, never through a Patch
//   - All JSON tags use snake_case
package badge
