package bootstrap

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"ipscope/internal/adapter"
)

// Probes holds the checks run against the host; tests replace them
type Probes struct {
	Pinger      adapter.Pinger
	LookPath    func(file string) (string, error)
	ReadFile    func(path string) ([]byte, error)
	RawSocket   func() (bool, string)
	Geteuid     func() int
	ProbeTarget string
}

// DefaultProbes probes the real host
func DefaultProbes() Probes {
	return Probes{
		Pinger:      adapter.ExecPinger{},
		LookPath:    exec.LookPath,
		ReadFile:    os.ReadFile,
		RawSocket:   probeRawSocket,
		Geteuid:     os.Geteuid,
		ProbeTarget: "127.0.0.1",
	}
}

// DetectPermissions reports who we run as and what we can do with it
func (p Probes) DetectPermissions(ctx context.Context) []Evidence {
	euid := p.Geteuid()
	evidence := []Evidence{
		NewEvidence(CategoryPermissions, "effective_uid", euid, 1.0, "os.Geteuid()"),
		NewEvidence(CategoryPermissions, "is_root", euid == 0, 1.0, "os.Geteuid() == 0"),
	}

	evidence = append(evidence, p.probePing(ctx))

	ok, method := p.RawSocket()
	evidence = append(evidence, NewEvidence(CategoryCapability, "can_raw_socket", ok, 0.95, method))

	evidence = append(evidence, p.probeNmap(ctx))

	if _, err := p.ReadFile("/proc/net/arp"); err == nil {
		evidence = append(evidence, NewEvidence(CategoryCapability, "can_read_arp", true, 0.95, "read /proc/net/arp"))
	} else {
		evidence = append(evidence, NewEvidence(CategoryCapability, "can_read_arp", false, 0.90, "read /proc/net/arp: "+err.Error()))
	}

	return evidence
}

func (p Probes) probePing(ctx context.Context) Evidence {
	if _, err := p.LookPath("ping"); err != nil {
		return NewEvidence(CategoryCapability, "can_icmp_ping", false, 0.90, "ping binary not found in PATH")
	}

	up, err := p.Pinger.Ping(ctx, p.ProbeTarget, time.Second)
	if err != nil || !up {
		method := "ping " + p.ProbeTarget + " failed"
		if err != nil {
			method += ": " + err.Error()
		}
		return NewEvidence(CategoryCapability, "can_icmp_ping", false, 0.95, method)
	}
	return NewEvidence(CategoryCapability, "can_icmp_ping", true, 0.95, "ping "+p.ProbeTarget+" succeeded")
}

func (p Probes) probeNmap(ctx context.Context) Evidence {
	path, err := p.LookPath("nmap")
	if err != nil {
		return NewEvidence(CategoryCapability, "has_nmap", false, 0.95, "nmap not in PATH")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return NewEvidence(CategoryCapability, "has_nmap", false, 0.85, "nmap --version failed: "+err.Error()).
			WithRaw(map[string]any{"nmap_path": path})
	}

	version := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	return NewEvidence(CategoryCapability, "has_nmap", true, 0.99, "nmap --version succeeded").
		WithRaw(map[string]any{"nmap_path": path, "nmap_version": version})
}

// probeRawSocket checks for CAP_NET_RAW, which nmap needs for ARP discovery
func probeRawSocket() (bool, string) {
	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_RAW, syscall.IPPROTO_ICMP)
	if err != nil {
		return false, "raw ICMP socket: " + err.Error()
	}
	syscall.Close(fd)
	return true, "created raw ICMP socket"
}
