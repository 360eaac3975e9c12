// Package domain defines the core types of the ipscope inventory engine.
//
// The engine observes every host address of one or more address ranges and
// keeps two views of what it saw:
//
// ObservedState is the current view, one row per address ever probed. It is
// overwritten by every scan that touches the address, except LastUp, which only
// moves forward when the host is found Up.
//
// ObservationRecord is the history view. One record is appended per address per
// scan and never modified; records older than the retention horizon are pruned.
//
// # Observations
//
// Observation is the per-host record built while a range is scanned. It is
// created by the liveness prober, enriched by the active scan and the name and
// vendor resolvers, and finally converted into an ObservedState and an
// ObservationRecord by ToState and ToRecord. Optional data (MAC, name, vendor)
// is held in pointer fields so "not found" is distinct from an empty string.
//
// # Ranges
//
// AddressRange is a CIDR block with an active flag. ExpandRange turns a CIDR into
// its usable host addresses and fails with ErrInvalidRangeFormat on malformed
// input.
package domain
