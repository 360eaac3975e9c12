package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"ipscope/internal/adapter"
	"ipscope/internal/domain"
)

var errStub = errors.New("stub failure")

// stubProber reports the configured addresses as Up with optional MACs
type stubProber struct {
	up    map[string]bool
	macs  map[string]string
	block chan struct{}
	calls [][]string
	mu    sync.Mutex
}

func (p *stubProber) Probe(ctx context.Context, addrs []string) map[string]domain.Observation {
	p.mu.Lock()
	p.calls = append(p.calls, addrs)
	p.mu.Unlock()

	if p.block != nil {
		<-p.block
	}

	now := time.Now().UTC()
	out := make(map[string]domain.Observation, len(addrs))
	for _, a := range addrs {
		o := domain.NewObservation(a, now)
		if p.up[a] {
			o.Status = domain.StatusUp
		}
		o.SetMAC(p.macs[a])
		out[a] = o
	}
	return out
}

// stubActive discovers the configured results
type stubActive struct {
	results map[string]adapter.ActiveResult
	err     error
	calls   [][]string
}

func (a *stubActive) Discover(_ context.Context, addrs []string) (map[string]adapter.ActiveResult, error) {
	a.calls = append(a.calls, addrs)
	if a.err != nil {
		return nil, a.err
	}
	out := make(map[string]adapter.ActiveResult)
	for _, addr := range addrs {
		if r, ok := a.results[addr]; ok {
			out[addr] = r
		}
	}
	return out, nil
}

// stubDNS answers from a map; hang makes every lookup wait for the context
type stubDNS struct {
	names map[string]string
	hang  bool
	mu    sync.Mutex
	asked []string
}

func (d *stubDNS) LookupName(ctx context.Context, addr string) (string, error) {
	d.mu.Lock()
	d.asked = append(d.asked, addr)
	d.mu.Unlock()

	if d.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if n, ok := d.names[addr]; ok {
		return n, nil
	}
	return "", errStub
}

type stubOwners map[string]string

func (o stubOwners) OwnerName(_ context.Context, addr string) (string, bool) {
	n, ok := o[addr]
	return n, ok
}

// stubVendors matches on the first 8 characters (AA:BB:CC)
type stubVendors map[string]string

func (v stubVendors) Lookup(mac string) (string, bool) {
	if len(mac) < 8 {
		return "", false
	}
	n, ok := v[strings.ToUpper(mac[:8])]
	return n, ok
}

// memStore is an in-memory ScanStore
type memStore struct {
	mu         sync.Mutex
	active     []string
	listErr    error
	reconciled map[string]domain.Observation
	failRange  map[string]bool
	pruneErr   error
	cutoffs    []time.Time
	batches    []int
	onRecon    func()
}

func newMemStore(active ...string) *memStore {
	return &memStore{
		active:     active,
		reconciled: make(map[string]domain.Observation),
		failRange:  make(map[string]bool),
	}
}

func (m *memStore) ListActiveRanges(context.Context) ([]string, error) {
	return m.active, m.listErr
}

func (m *memStore) ReconcileRange(_ context.Context, _ string, _ time.Time, obs map[string]domain.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for addr := range obs {
		if m.failRange[addr] {
			return errStub
		}
	}
	for addr, o := range obs {
		m.reconciled[addr] = o
	}
	m.batches = append(m.batches, len(obs))
	if m.onRecon != nil {
		m.onRecon()
	}
	return nil
}

func (m *memStore) PruneHistory(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs = append(m.cutoffs, cutoff)
	return 0, m.pruneErr
}

func (m *memStore) observation(addr string) (domain.Observation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.reconciled[addr]
	return o, ok
}
