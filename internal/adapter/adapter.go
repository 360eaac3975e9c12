package adapter

import (
	"context"
	"time"
)

// Pinger checks whether an address answers a reachability probe.
// A host that does not answer is reported as (false, nil); err is reserved for
// failures to run the probe at all.
type Pinger interface {
	Ping(ctx context.Context, addr string, timeout time.Duration) (bool, error)
}

// NeighborCache resolves an address to the MAC the OS has cached for it
type NeighborCache interface {
	Lookup(ctx context.Context, addr string) (string, bool)
}

// ActiveResult is what the active scan learned about one discovered address
type ActiveResult struct {
	Address  string            `json:"address"`
	MAC      string            `json:"mac,omitempty"`
	Hostname string            `json:"hostname,omitempty"`
	Vendors  map[string]string `json:"vendors,omitempty"` // MAC -> vendor
}

// ActiveScanner discovers which of addrs are present using an active scan.
// Addresses missing from the result were not discovered.
type ActiveScanner interface {
	Discover(ctx context.Context, addrs []string) (map[string]ActiveResult, error)
}

// ReverseResolver returns the PTR name of an address
type ReverseResolver interface {
	LookupName(ctx context.Context, addr string) (string, error)
}

// EventPublisher receives discovery progress events
type EventPublisher interface {
	PublishDiscoveryEvent(eventType string, payload interface{})
}

// Discovery event types
const (
	EventProbeStarted   = "probe-started"
	EventProbeComplete  = "probe-complete"
	EventActiveStarted  = "active-scan-started"
	EventActiveComplete = "active-scan-complete"
)
