// Package registry persists asset metadata in SQLite and exposes the
// compare-and-swap stage transition that serializes concurrent lifecycle
// operations.
//
// The Store manages the database connection and row mapping. It does not
// create schema: the migrate package owns schema evolution and must have run
// before any registry operation touches the assets table.
//
// Rows are never deleted. Marking an asset deleted clears its storage path
// and keeps the row for audit; whether lookups surface deleted rows is a
// construction-time policy.
package registry
