package adapter

import (
	"context"
	"fmt"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"

	"ipscope/internal/logger"
)

// NmapScanner is an ActiveScanner backed by an nmap host discovery scan
// (-sn -PR -n -T4 --max-retries 1 --host-timeout 200ms --privileged by default)
type NmapScanner struct {
	hostTimeout time.Duration
	scanTimeout time.Duration
	maxRetries  int
	timing      nmap.Timing
	privileged  bool
	binaryPath  string
	log         logger.Logger
	publisher   EventPublisher
}

// NewNmapScanner creates a new nmap-based active scanner
func NewNmapScanner(log logger.Logger, opts ...NmapOption) *NmapScanner {
	scanner := &NmapScanner{
		hostTimeout: 200 * time.Millisecond,
		scanTimeout: 10 * time.Minute,
		maxRetries:  1,
		timing:      nmap.TimingAggressive,
		privileged:  true,
		log:         log.WithComponent("nmap"),
	}

	for _, opt := range opts {
		opt(scanner)
	}

	return scanner
}

// SetEventPublisher sets the event publisher for progress updates
func (n *NmapScanner) SetEventPublisher(pub EventPublisher) {
	n.publisher = pub
}

func (n *NmapScanner) publishProgress(eventType string, payload interface{}) {
	if n.publisher != nil {
		n.publisher.PublishDiscoveryEvent(eventType, payload)
	}
}

// Available checks that the nmap binary can be run
func (n *NmapScanner) Available(ctx context.Context) bool {
	opts := []nmap.Option{
		nmap.WithTargets("localhost"),
		nmap.WithListScan(),
	}
	if n.binaryPath != "" {
		opts = append(opts, nmap.WithBinaryPath(n.binaryPath))
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return false
	}

	_, _, err = scanner.Run()
	return err == nil
}

// Discover implements ActiveScanner with one batched scan over addrs
func (n *NmapScanner) Discover(ctx context.Context, addrs []string) (map[string]ActiveResult, error) {
	if len(addrs) == 0 {
		return map[string]ActiveResult{}, nil
	}

	if n.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.scanTimeout)
		defer cancel()
	}

	n.publishProgress(EventActiveStarted, map[string]interface{}{
		"total": len(addrs),
	})

	scanner, err := nmap.NewScanner(ctx, n.options(addrs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	start := time.Now()
	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	if warnings != nil && len(*warnings) > 0 {
		n.log.Warn().Strs("warnings", *warnings).Int("targets", len(addrs)).Msg("Nmap reported warnings")
	}

	found, err := parseRun(result)
	if err != nil {
		return nil, err
	}

	n.log.Info().
		Int("targets", len(addrs)).
		Int("discovered", len(found)).
		Dur("elapsed", time.Since(start)).
		Msg("Active scan complete")
	n.publishProgress(EventActiveComplete, map[string]interface{}{
		"total":      len(addrs),
		"discovered": len(found),
	})

	return found, nil
}

// options builds the nmap argument list for a discovery-only scan
func (n *NmapScanner) options(addrs []string) []nmap.Option {
	opts := []nmap.Option{
		nmap.WithTargets(addrs...),
		nmap.WithPingScan(),
		nmap.WithCustomArguments("-PR"),
		nmap.WithDisabledDNSResolution(),
		nmap.WithTimingTemplate(n.timing),
		nmap.WithMaxRetries(n.maxRetries),
	}
	if n.hostTimeout > 0 {
		opts = append(opts, nmap.WithHostTimeout(n.hostTimeout))
	}
	if n.privileged {
		opts = append(opts, nmap.WithPrivileged())
	}
	if n.binaryPath != "" {
		opts = append(opts, nmap.WithBinaryPath(n.binaryPath))
	}
	return opts
}

// parseRun converts nmap results into ActiveResults keyed by IP address.
// Hosts that are not "up" are dropped.
func parseRun(result *nmap.Run) (map[string]ActiveResult, error) {
	if result == nil {
		return nil, fmt.Errorf("nil scan result")
	}

	found := make(map[string]ActiveResult, len(result.Hosts))
	for _, host := range result.Hosts {
		if len(host.Addresses) == 0 || host.Status.State != "up" {
			continue
		}

		var res ActiveResult
		for _, addr := range host.Addresses {
			switch addr.AddrType {
			case "ipv4", "ipv6":
				if res.Address == "" {
					res.Address = addr.Addr
				}
			case "mac":
				mac, ok := NormalizeMAC(addr.Addr)
				if !ok {
					continue
				}
				res.MAC = mac
				if addr.Vendor != "" {
					if res.Vendors == nil {
						res.Vendors = make(map[string]string)
					}
					res.Vendors[mac] = addr.Vendor
				}
			}
		}
		if res.Address == "" {
			continue
		}

		if len(host.Hostnames) > 0 {
			res.Hostname = host.Hostnames[0].Name
		}

		found[res.Address] = res
	}

	return found, nil
}
