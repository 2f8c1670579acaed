// Package recipe defines the badge recipe contract and the registry that
// holds recipes for a run.
//
// A recipe names a badge (name, slug, description, image) and knows how to
// compute the set of users who currently qualify for it. Recipes are plain
// values registered on an explicit Registry; there is no global registry.
//
// Three implementations ship with the package:
//   - Base: embeddable defaults (image and membership not implemented)
//   - Static: fixed metadata and a fixed, replaceable id list
//   - Query: metadata plus a declarative membership query run against the
//     user database
package recipe
