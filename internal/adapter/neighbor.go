package adapter

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const procNetARP = "/proc/net/arp"

// MACPattern matches the canonical six-octet colon-separated MAC form
var MACPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// arpOutputMAC finds a MAC in free-form "arp" output; octets may lack a leading zero
var arpOutputMAC = regexp.MustCompile(`\b([0-9A-Fa-f]{1,2}(?::[0-9A-Fa-f]{1,2}){5})\b`)

// ProcNeighborCache reads the kernel ARP table, falling back to the arp
// binary where /proc is unavailable
type ProcNeighborCache struct {
	// Path defaults to /proc/net/arp
	Path string
	// ARPBinary defaults to "arp"
	ARPBinary string
	// Timeout bounds one arp invocation
	Timeout time.Duration
}

// Lookup implements NeighborCache
func (c ProcNeighborCache) Lookup(ctx context.Context, addr string) (string, bool) {
	path := c.Path
	if path == "" {
		path = procNetARP
	}

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		mac, ok := parseProcARP(f, addr)
		if ok {
			return mac, true
		}
		return "", false
	}

	return c.lookupARPCommand(ctx, addr)
}

func (c ProcNeighborCache) lookupARPCommand(ctx context.Context, addr string) (string, bool) {
	binary := c.ARPBinary
	if binary == "" {
		binary = "arp"
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "-n", addr).Output()
	if err != nil {
		return "", false
	}
	return parseARPOutput(out)
}

// parseProcARP finds addr in /proc/net/arp content:
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        eth0
func parseProcARP(r io.Reader, addr string) (string, bool) {
	scanner := bufio.NewScanner(r)
	scanner.Scan() // header
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 || fields[0] != addr {
			continue
		}
		// Flags 0x0 is an incomplete entry
		if fields[2] == "0x0" {
			continue
		}
		if mac, ok := NormalizeMAC(fields[3]); ok {
			return mac, true
		}
	}
	return "", false
}

// parseARPOutput extracts the first MAC from "arp -n <ip>" output (Linux or BSD format)
func parseARPOutput(out []byte) (string, bool) {
	for _, line := range bytes.Split(out, []byte("\n")) {
		m := arpOutputMAC.FindSubmatch(line)
		if m == nil {
			continue
		}
		if mac, ok := NormalizeMAC(string(m[1])); ok {
			return mac, true
		}
	}
	return "", false
}

// NormalizeMAC returns mac in upper-case canonical form (AA:BB:CC:DD:EE:FF).
// Single-digit octets are zero padded. The all-zero address is rejected.
func NormalizeMAC(mac string) (string, bool) {
	mac = strings.ReplaceAll(strings.TrimSpace(mac), "-", ":")
	parts := strings.Split(mac, ":")
	if len(parts) != 6 {
		return "", false
	}
	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		}
	}
	norm := strings.ToUpper(strings.Join(parts, ":"))
	if !MACPattern.MatchString(norm) || norm == "00:00:00:00:00:00" {
		return "", false
	}
	return norm, true
}
