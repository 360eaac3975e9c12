package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ipscope/internal/adapter"
	"ipscope/internal/domain"
	"ipscope/internal/logger"
	"ipscope/internal/lookup"
)

// ResolverConfig bounds the reverse DNS phase
type ResolverConfig struct {
	// MaxConcurrent bounds the number of reverse lookups in flight
	MaxConcurrent int
	// Timeout caps the whole reverse lookup phase for one range
	Timeout time.Duration
}

// DefaultResolverConfig returns sensible defaults
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MaxConcurrent: 20,
		Timeout:       5 * time.Second,
	}
}

// Resolver fills in display names and vendors for a range's observations
type Resolver struct {
	owners  lookup.OwnerLookup
	dns     adapter.ReverseResolver
	vendors lookup.VendorTable
	config  ResolverConfig
	log     logger.Logger
}

// NewResolver creates a Resolver. owners and dns may be nil to skip that source.
func NewResolver(owners lookup.OwnerLookup, dns adapter.ReverseResolver, vendors lookup.VendorTable, config ResolverConfig, log logger.Logger) *Resolver {
	defaults := DefaultResolverConfig()
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	return &Resolver{
		owners:  owners,
		dns:     dns,
		vendors: vendors,
		config:  config,
		log:     log.WithComponent("resolver"),
	}
}

// ResolveNames names every Up observation in place.
// Priority: assignment > active scan name > reverse DNS > "Unknown".
func (r *Resolver) ResolveNames(ctx context.Context, obs map[string]domain.Observation) {
	var pending []string

	for _, addr := range domain.SortedAddresses(obs) {
		o := obs[addr]
		if !o.IsUp() {
			continue
		}
		if r.owners != nil {
			if name, ok := r.owners.OwnerName(ctx, addr); ok {
				o.SetName(name)
				obs[addr] = o
				continue
			}
		}
		if !o.HasName() {
			pending = append(pending, addr)
		}
	}

	resolved := r.reverseLookup(ctx, pending)

	for _, addr := range pending {
		o := obs[addr]
		if name, ok := resolved[addr]; ok {
			o.SetName(name)
		} else {
			o.SetName(domain.UnknownName)
		}
		obs[addr] = o
	}
}

// reverseLookup runs PTR lookups in a bounded pool under one overall deadline.
// Failed or unfinished lookups are simply absent from the result.
func (r *Resolver) reverseLookup(ctx context.Context, addrs []string) map[string]string {
	names := make(map[string]string, len(addrs))
	if r.dns == nil || len(addrs) == 0 {
		return names
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(r.config.MaxConcurrent)

	for _, addr := range addrs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			name, err := r.dns.LookupName(ctx, addr)
			if err != nil || name == "" {
				r.log.Debug().Err(err).Str("ip", addr).Msg("Reverse lookup failed")
				return nil
			}
			mu.Lock()
			names[addr] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	r.log.Debug().Int("requested", len(addrs)).Int("resolved", len(names)).Msg("Reverse lookup phase complete")
	return names
}

// ResolveVendor picks the vendor for one address: the active scan's vendor map
// first, then the OUI table for a well-formed MAC, otherwise "Unknown"
func (r *Resolver) ResolveVendor(mac string, activeVendors map[string]string) string {
	if v, ok := domain.FirstVendor(activeVendors); ok {
		return v
	}
	if mac == "" || r.vendors == nil || !adapter.MACPattern.MatchString(mac) {
		return domain.UnknownVendor
	}
	if v, ok := r.vendors.Lookup(mac); ok {
		return v
	}
	return domain.UnknownVendor
}

// ResolveVendors sets the vendor on every observation in place
func (r *Resolver) ResolveVendors(obs map[string]domain.Observation) {
	for addr, o := range obs {
		mac := ""
		if o.MAC != nil {
			mac = *o.MAC
		}
		o.SetVendor(r.ResolveVendor(mac, o.ActiveVendors))
		obs[addr] = o
	}
}
