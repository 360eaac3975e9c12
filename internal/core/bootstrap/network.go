package bootstrap

import (
	"encoding/binary"
	"encoding/hex"
	"net"
	"net/netip"
	"os"
	"strings"

	"ipscope/internal/domain"
)

// virtual interfaces whose subnets are not worth scanning
var skipInterfacePrefixes = []string{"veth", "docker", "br-", "cni", "flannel", "virbr"}

// DetectNetwork reports the hostname, default gateway and local subnets
func (p Probes) DetectNetwork() []Evidence {
	var evidence []Evidence

	if hostname, err := os.Hostname(); err == nil {
		evidence = append(evidence, NewEvidence(CategoryNetwork, "hostname", hostname, 0.99, "os.Hostname()"))
	}

	if data, err := p.ReadFile("/proc/net/route"); err == nil {
		if gw, iface, ok := parseDefaultGateway(string(data)); ok {
			evidence = append(evidence, NewEvidence(CategoryNetwork, "gateway", gw, 0.95, "/proc/net/route default route").
				WithRaw(map[string]any{"interface": iface}))
		}
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return evidence
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 || skipInterface(iface.Name) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, subnet := range LocalSubnets(addrs) {
			evidence = append(evidence, NewEvidence(CategoryNetwork, "local_subnet", subnet, 0.90, "net.Interfaces()").
				WithRaw(map[string]any{"interface": iface.Name}))
		}
	}

	return evidence
}

func skipInterface(name string) bool {
	for _, p := range skipInterfacePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// LocalSubnets returns the private IPv4 networks of addrs in normalized form.
// Networks larger than a scannable range are dropped.
func LocalSubnets(addrs []net.Addr) []string {
	var subnets []string
	seen := make(map[string]bool)

	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if !ip.Is4() || !ip.IsPrivate() {
			continue
		}
		ones, _ := ipnet.Mask.Size()

		norm, err := domain.NormalizeRange(netip.PrefixFrom(ip, ones).Masked().String())
		if err != nil || seen[norm] {
			continue
		}
		seen[norm] = true
		subnets = append(subnets, norm)
	}
	return subnets
}

// parseDefaultGateway reads the default route out of /proc/net/route, where
// addresses are little-endian hex
func parseDefaultGateway(data string) (gateway, iface string, ok bool) {
	lines := strings.Split(data, "\n")
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[1] != "00000000" {
			continue
		}
		raw, err := hex.DecodeString(fields[2])
		if err != nil || len(raw) != 4 {
			continue
		}
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], binary.LittleEndian.Uint32(raw))
		return netip.AddrFrom4(b).String(), fields[0], true
	}
	return "", "", false
}
