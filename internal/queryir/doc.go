// Package queryir provides the intermediate representation for declarative
// badge membership queries.
//
// A membership query answers one question: which user ids qualify for a
// badge? Recipes declared in CUE are compiled into a Select over a table of
// the user database, and querysql turns that Select into parameterized SQL.
//
//	[recipe CUE] → [queryir.Select] → [querysql] → SELECT DISTINCT id ...
//
// FRAGMENT:
//
// The IR is deliberately small:
//   - Select(from, id column, filter)
//   - Predicates: Compare (=, !=, <, <=, >, >=), In, And
//   - Literals: String, Int, Bool (no floats, no NULL)
//
// SEALED INTERFACES:
//
// Query, Predicate and Value are sealed with marker methods, so backends can
// switch exhaustively over every node type:
//
//	switch p := pred.(type) {
//	case Compare:
//	case In:
//	case And:
//	}
//
// Identifiers (tables and columns) are validated before compilation because
// backends quote but never parameterize them.
package queryir
