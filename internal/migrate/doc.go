// Package migrate applies versioned schema changes to the registry database
// exactly once each, tracked in a ledger table.
//
// Migrations are .sql files named NNNN_slug.sql, discovered either from the
// on-disk storage/migrations/versions directory or from the set embedded in
// the binary. The runner verifies already-applied versions against their
// recorded checksums before applying anything new, so a drifted deployment
// fails fast instead of running against an unknown schema.
//
// Cross-process exclusion uses a dedicated lock row claimed by
// compare-and-swap with a bounded wait: two daemons racing at boot resolve
// to one applier and one MigrationLocked failure, never a concurrent run.
package migrate
