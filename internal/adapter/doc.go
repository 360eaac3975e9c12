// Package adapter implements the network-facing probes used by a scan.
//
// Each probe sits behind a small interface so the scan pipeline can be driven
// by stubs in tests:
//
// Pinger performs one reachability check per address. ExecPinger runs the
// system ping binary.
//
// NeighborCache looks up the MAC address the OS has learned for an address.
// ProcNeighborCache reads /proc/net/arp and falls back to "arp -n".
//
// Prober combines both over a bounded pool of workers and returns one
// Observation per address. Probe failures become Down observations; a MAC from
// the neighbor cache is kept even when the ping fails.
//
// ActiveScanner runs a batched host discovery over the addresses the Prober
// found Down. NmapScanner does this with nmap's ARP and ping discovery.
//
// ReverseResolver looks up the PTR name of an address. DNSResolver uses the
// system resolver or a configured DNS server.
//
// # Event System
//
// Probes publish progress events through an optional EventPublisher so
// connected clients can follow a running scan.
package adapter
