// Package repository defines the data access interfaces for ipscope.
//
// Two implementations live in subpackages: sqlite (modernc.org/sqlite, the
// default for single-node deployments) and postgres (pgx). Both create their
// schema on startup and share the same table layout:
//
//   - live_monitor: one row per address, the latest reconciled state
//   - history: append-only observation records, pruned by scan time
//   - ip_ranges: configured CIDR ranges with an active flag
//   - ip_assignments: address ownership used for name resolution
//
// Reconciliation of a range is a single transaction. A failure leaves the
// store exactly as it was before the range was written.
package repository
