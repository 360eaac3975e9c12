package domain

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"
)

const (
	// MinIPv4PrefixBits bounds the size of an expandable IPv4 range (/16 = 65534 hosts)
	MinIPv4PrefixBits = 16
	// MinIPv6PrefixBits bounds the size of an expandable IPv6 range
	MinIPv6PrefixBits = 112
)

// ParseRange parses a CIDR string into its masked network prefix.
// Host bits are ignored, so "10.0.0.7/24" yields 10.0.0.0/24. A bare address
// is treated as a single-host prefix.
func ParseRange(cidr string) (netip.Prefix, error) {
	s := strings.TrimSpace(cidr)
	if s == "" {
		return netip.Prefix{}, fmt.Errorf("%w: empty range", ErrInvalidRangeFormat)
	}

	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("%w: %q", ErrInvalidRangeFormat, cidr)
		}
		addr = addr.Unmap()
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}

	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %q", ErrInvalidRangeFormat, cidr)
	}

	// ::ffff:a.b.c.d/n is the IPv4 block a.b.c.d/(n-96)
	if prefix.Addr().Is4In6() {
		if prefix.Bits() < 96 {
			return netip.Prefix{}, fmt.Errorf("%w: %q spans beyond the IPv4-mapped block", ErrInvalidRangeFormat, cidr)
		}
		prefix = netip.PrefixFrom(prefix.Addr().Unmap(), prefix.Bits()-96)
	}
	return prefix.Masked(), nil
}

// NormalizeRange returns the canonical CIDR string for an expandable range
func NormalizeRange(cidr string) (string, error) {
	prefix, err := ParseRange(cidr)
	if err != nil {
		return "", err
	}
	if err := checkRangeSize(prefix); err != nil {
		return "", err
	}
	return prefix.String(), nil
}

func checkRangeSize(prefix netip.Prefix) error {
	addr := prefix.Addr()
	if addr.Is4() && prefix.Bits() < MinIPv4PrefixBits {
		return fmt.Errorf("%w: %s is larger than /%d", ErrInvalidRangeFormat, prefix, MinIPv4PrefixBits)
	}
	if addr.Is6() && prefix.Bits() < MinIPv6PrefixBits {
		return fmt.Errorf("%w: %s is larger than /%d", ErrInvalidRangeFormat, prefix, MinIPv6PrefixBits)
	}
	return nil
}

// ExpandRange returns the usable host addresses of a CIDR block in ascending order.
// For IPv4 the network and broadcast addresses are excluded when the block has
// more than two addresses; for IPv6 the subnet-router anycast address is excluded.
func ExpandRange(cidr string) ([]string, error) {
	prefix, err := ParseRange(cidr)
	if err != nil {
		return nil, err
	}

	if err := checkRangeSize(prefix); err != nil {
		return nil, err
	}

	addr := prefix.Addr()
	hostBits := addr.BitLen() - prefix.Bits()

	hosts := make([]string, 0, 1<<hostBits)
	for a := addr; a.IsValid() && prefix.Contains(a); a = a.Next() {
		hosts = append(hosts, a.String())
	}

	switch {
	case addr.Is4() && hostBits >= 2:
		hosts = hosts[1 : len(hosts)-1]
	case addr.Is6() && hostBits >= 2:
		hosts = hosts[1:]
	}

	return hosts, nil
}

// SortAddresses sorts address strings numerically. Unparseable entries sort last
// in lexical order.
func SortAddresses(addrs []string) {
	sort.SliceStable(addrs, func(i, j int) bool {
		return AddressLess(addrs[i], addrs[j])
	})
}

// AddressLess orders two address strings numerically, unparseable ones last
func AddressLess(x, y string) bool {
	a, errA := netip.ParseAddr(x)
	b, errB := netip.ParseAddr(y)
	switch {
	case errA == nil && errB == nil:
		return a.Less(b)
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return x < y
	}
}
