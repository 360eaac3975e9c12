package adapter

import (
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
)

// NmapOption is a functional option for configuring NmapScanner
type NmapOption func(*NmapScanner)

// WithHostTimeout gives up on a single host after d (--host-timeout)
func WithHostTimeout(d time.Duration) NmapOption {
	return func(n *NmapScanner) {
		n.hostTimeout = d
	}
}

// WithScanTimeout bounds the whole nmap run
func WithScanTimeout(d time.Duration) NmapOption {
	return func(n *NmapScanner) {
		n.scanTimeout = d
	}
}

// WithMaxRetries sets the probe retransmission cap (--max-retries)
func WithMaxRetries(retries int) NmapOption {
	return func(n *NmapScanner) {
		if retries >= 0 {
			n.maxRetries = retries
		}
	}
}

// WithTiming sets the timing template (-T0 .. -T5)
func WithTiming(timing nmap.Timing) NmapOption {
	return func(n *NmapScanner) {
		n.timing = timing
	}
}

// WithPrivileged toggles --privileged, needed for ARP discovery without root
func WithPrivileged(enabled bool) NmapOption {
	return func(n *NmapScanner) {
		n.privileged = enabled
	}
}

// WithBinaryPath runs a specific nmap binary instead of the one in PATH
func WithBinaryPath(path string) NmapOption {
	return func(n *NmapScanner) {
		n.binaryPath = path
	}
}

// WithStealthTiming slows the scan down for sensitive networks
func WithStealthTiming() NmapOption {
	return func(n *NmapScanner) {
		n.timing = nmap.TimingPolite
		n.hostTimeout = 2 * time.Second
		n.maxRetries = 0
	}
}
