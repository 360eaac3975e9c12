// Package service implements the discovery pipeline and business logic for ipscope.
//
// # Scanning
//
// ScanService orchestrates one run over an ordered list of CIDR ranges. Each
// range is expanded, probed by the Prober, passed through the active-scan
// fallback for addresses that did not answer, named and attributed to a
// vendor by the Resolver, and finally reconciled into the store in a single
// transaction. Ranges run strictly one after another with a short pause in
// between; history older than the retention horizon is pruned once at the end.
//
// Only one run executes at a time. A concurrent request fails with
// domain.ErrScanInProgress rather than queueing.
//
// # Supporting services
//
// RangeService manages the configured ranges, LiveService serves the reconciled
// state and history, and Scheduler triggers runs over the active ranges on an
// interval.
//
// # Event System
//
// Services publish progress via EventBus; cmd/server forwards the bus to the
// SSE hub so connected clients see scan_started, range_scanned, range_failed
// and scan_complete as they happen.
package service
