package config

import "time"

// Mode defines how far a scan is allowed to go
type Mode string

const (
	ModePassive   Mode = "passive"   // HTTP API only, no probing
	ModeMonitor   Mode = "monitor"   // + ping, neighbor cache and reverse DNS
	ModeDiscovery Mode = "discovery" // + nmap fallback for unreachable hosts
)

// ParseMode converts a string to Mode, defaulting to ModeDiscovery
func ParseMode(s string) Mode {
	switch s {
	case "passive":
		return ModePassive
	case "monitor":
		return ModeMonitor
	case "discovery":
		return ModeDiscovery
	default:
		return ModeDiscovery
	}
}

// Level returns numeric level for comparison (higher = more capabilities)
func (m Mode) Level() int {
	switch m {
	case ModePassive:
		return 0
	case ModeMonitor:
		return 1
	case ModeDiscovery:
		return 2
	default:
		return 2
	}
}

// Allows returns true if this mode allows the given mode's capabilities
func (m Mode) Allows(required Mode) bool {
	return m.Level() >= required.Level()
}

// Posture defines scan aggressiveness
type Posture string

const (
	PostureStealth    Posture = "stealth"    // Few probes in flight, long pauses
	PostureCautious   Posture = "cautious"   // Conservative
	PostureBalanced   Posture = "balanced"   // Default
	PostureAggressive Posture = "aggressive" // Fast, many probes in flight
)

// ParsePosture converts a string to Posture, defaulting to PostureBalanced
func ParsePosture(s string) Posture {
	switch s {
	case "stealth":
		return PostureStealth
	case "cautious":
		return PostureCautious
	case "balanced":
		return PostureBalanced
	case "aggressive":
		return PostureAggressive
	default:
		return PostureBalanced
	}
}

// BehaviorProfile defines timing and concurrency settings for one scan
type BehaviorProfile struct {
	ProbeTimeout       time.Duration `yaml:"probe_timeout"`
	ProbeConcurrency   int           `yaml:"probe_concurrency"`
	ResolveConcurrency int           `yaml:"resolve_concurrency"`
	ResolveTimeout     time.Duration `yaml:"resolve_timeout"` // whole reverse DNS phase
	ActiveHostTimeout  time.Duration `yaml:"active_host_timeout"`
	ActiveMaxRetries   int           `yaml:"active_max_retries"`
	RangePause         time.Duration `yaml:"range_pause"`
}

// PostureProfiles maps postures to their default behavior profiles
var PostureProfiles = map[Posture]BehaviorProfile{
	PostureStealth: {
		ProbeTimeout:       2 * time.Second,
		ProbeConcurrency:   4,
		ResolveConcurrency: 2,
		ResolveTimeout:     10 * time.Second,
		ActiveHostTimeout:  time.Second,
		ActiveMaxRetries:   0,
		RangePause:         10 * time.Second,
	},
	PostureCautious: {
		ProbeTimeout:       time.Second,
		ProbeConcurrency:   20,
		ResolveConcurrency: 5,
		ResolveTimeout:     5 * time.Second,
		ActiveHostTimeout:  500 * time.Millisecond,
		ActiveMaxRetries:   1,
		RangePause:         2 * time.Second,
	},
	PostureBalanced: {
		ProbeTimeout:       time.Second,
		ProbeConcurrency:   80,
		ResolveConcurrency: 20,
		ResolveTimeout:     5 * time.Second,
		ActiveHostTimeout:  200 * time.Millisecond,
		ActiveMaxRetries:   1,
		RangePause:         500 * time.Millisecond,
	},
	PostureAggressive: {
		ProbeTimeout:       time.Second,
		ProbeConcurrency:   200,
		ResolveConcurrency: 50,
		ResolveTimeout:     5 * time.Second,
		ActiveHostTimeout:  200 * time.Millisecond,
		ActiveMaxRetries:   1,
		RangePause:         100 * time.Millisecond,
	},
}

// GetProfile returns the behavior profile for a posture
func (p Posture) GetProfile() BehaviorProfile {
	if profile, ok := PostureProfiles[p]; ok {
		return profile
	}
	return PostureProfiles[PostureBalanced]
}
