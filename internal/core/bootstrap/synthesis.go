package bootstrap

import (
	"ipscope/internal/config"
)

// Recommendation is the outcome of weighing the evidence
type Recommendation struct {
	Mode       config.Mode `json:"mode"`
	Confidence float64     `json:"confidence"`
	Privileged bool        `json:"privileged"` // nmap may use raw sockets
	Subnets    []string    `json:"subnets,omitempty"`
	Reasons    []string    `json:"reasons"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// Synthesize recommends a mode: discovery needs ping and nmap, monitor needs
// ping, anything less is passive
func Synthesize(es *EvidenceSet) Recommendation {
	rec := Recommendation{}

	canPing := es.Bool(CategoryCapability, "can_icmp_ping")
	hasNmap := es.Bool(CategoryCapability, "has_nmap")
	rec.Privileged = es.Bool(CategoryCapability, "can_raw_socket")

	if canPing {
		rec.Reasons = append(rec.Reasons, "ICMP ping available")
	} else {
		rec.Reasons = append(rec.Reasons, "ICMP ping unavailable, liveness probing disabled")
	}

	if hasNmap {
		rec.Reasons = append(rec.Reasons, "nmap available for the active scan fallback")
	} else {
		rec.Reasons = append(rec.Reasons, "nmap not available, active scan fallback disabled")
	}

	if rec.Privileged {
		rec.Reasons = append(rec.Reasons, "Raw socket capability available")
	} else if hasNmap {
		rec.Warnings = append(rec.Warnings, "No raw socket capability: nmap runs unprivileged and cannot ARP-ping")
	}

	if !es.Bool(CategoryCapability, "can_read_arp") {
		rec.Warnings = append(rec.Warnings, "/proc/net/arp unreadable: MAC addresses fall back to the arp command")
	}

	if es.Bool(CategoryPermissions, "is_root") {
		rec.Reasons = append(rec.Reasons, "Running as root")
	}

	if gw, _, ok := es.BestValue(CategoryNetwork, "gateway"); ok {
		rec.Reasons = append(rec.Reasons, "Default gateway "+gw.(string))
	}

	for _, e := range es.ByProperty(CategoryNetwork, "local_subnet") {
		if s, ok := e.Value.(string); ok {
			rec.Subnets = append(rec.Subnets, s)
		}
	}

	switch {
	case canPing && hasNmap:
		rec.Mode = config.ModeDiscovery
		rec.Confidence = (es.AggregateConfidence(CategoryCapability, "can_icmp_ping") +
			es.AggregateConfidence(CategoryCapability, "has_nmap")) / 2
	case canPing:
		rec.Mode = config.ModeMonitor
		rec.Confidence = es.AggregateConfidence(CategoryCapability, "can_icmp_ping")
	default:
		rec.Mode = config.ModePassive
		rec.Confidence = 0.90
	}

	return rec
}
