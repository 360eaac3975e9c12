package adapter

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// DNSResolver performs PTR lookups against the system resolver or a fixed server
type DNSResolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewDNSResolver creates a resolver. An empty server uses the system resolver;
// otherwise server is "host" or "host:port" of a DNS server.
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	r := &DNSResolver{resolver: net.DefaultResolver, timeout: timeout}
	if server == "" {
		return r
	}

	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	r.resolver = &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, "udp", server)
		},
	}
	return r
}

// LookupName implements ReverseResolver
func (r *DNSResolver) LookupName(ctx context.Context, addr string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	names, err := r.resolver.LookupAddr(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("reverse lookup %s: %w", addr, err)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("reverse lookup %s: no names", addr)
	}
	return strings.TrimSuffix(names[0], "."), nil
}
