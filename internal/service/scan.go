package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ipscope/internal/adapter"
	"ipscope/internal/domain"
	"ipscope/internal/logger"
)

// ScanStore is the persistence the orchestrator needs
type ScanStore interface {
	ListActiveRanges(ctx context.Context) ([]string, error)
	ReconcileRange(ctx context.Context, runID string, scanTime time.Time, observations map[string]domain.Observation) error
	PruneHistory(ctx context.Context, cutoff time.Time) (int64, error)
}

// LivenessProber produces one observation per address
type LivenessProber interface {
	Probe(ctx context.Context, addrs []string) map[string]domain.Observation
}

// ScanConfig holds orchestration settings
type ScanConfig struct {
	// RangePause is the delay between consecutive ranges
	RangePause time.Duration
	// Retention is the history horizon applied after every run
	Retention time.Duration
}

// DefaultScanConfig returns sensible defaults
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		RangePause: 500 * time.Millisecond,
		Retention:  14 * 24 * time.Hour,
	}
}

// ScanService runs discovery over CIDR ranges and reconciles the results
type ScanService struct {
	store    ScanStore
	prober   LivenessProber
	active   adapter.ActiveScanner
	resolver *Resolver
	eventBus *EventBus
	config   ScanConfig
	log      logger.Logger

	now      func() time.Time
	newRunID func() string

	mu      sync.Mutex
	running atomic.Bool

	lastMu  sync.RWMutex
	lastRun *domain.ScanRun
}

// NewScanService creates a ScanService. active may be nil to disable the
// active-scan fallback.
func NewScanService(store ScanStore, prober LivenessProber, active adapter.ActiveScanner, resolver *Resolver, eventBus *EventBus, config ScanConfig, log logger.Logger) *ScanService {
	if config.RangePause < 0 {
		config.RangePause = 0
	}
	if config.Retention <= 0 {
		config.Retention = DefaultScanConfig().Retention
	}
	return &ScanService{
		store:    store,
		prober:   prober,
		active:   active,
		resolver: resolver,
		eventBus: eventBus,
		config:   config,
		log:      log.WithComponent("scan"),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// ScanRanges scans cidrs in order and returns the ranges it was asked to scan.
// An empty list falls back to the active ranges in the store.
func (s *ScanService) ScanRanges(ctx context.Context, cidrs []string) ([]string, error) {
	run, err := s.Run(ctx, cidrs)
	if err != nil {
		return nil, err
	}
	return run.Ranges, nil
}

// Run performs one orchestration run and returns its summary. Invalid or
// failing ranges are recorded in the summary without aborting the run.
func (s *ScanService) Run(ctx context.Context, cidrs []string) (*domain.ScanRun, error) {
	if !s.mu.TryLock() {
		return nil, domain.ErrScanInProgress
	}
	defer s.mu.Unlock()
	s.running.Store(true)
	defer s.running.Store(false)

	ranges, err := s.targetRanges(ctx, cidrs)
	if err != nil {
		return nil, err
	}

	run := &domain.ScanRun{
		ID:        s.newRunID(),
		StartedAt: s.now().UTC(),
		Ranges:    ranges,
		Scanned:   make([]string, 0, len(ranges)),
		Failed:    make(map[string]string),
	}

	s.log.Info().Str("run_id", run.ID).Strs("ranges", ranges).Msg("Scan started")
	s.publish(EventScanStarted, map[string]interface{}{
		"run_id": run.ID,
		"ranges": ranges,
	})

	for i, cidr := range ranges {
		if err := ctx.Err(); err != nil {
			run.Failed[cidr] = err.Error()
			continue
		}

		up, down, err := s.scanRange(ctx, run.ID, cidr)
		if err != nil {
			s.log.Error().Err(err).Str("run_id", run.ID).Str("cidr", cidr).Msg("Range scan failed")
			run.Failed[cidr] = err.Error()
			s.publish(EventRangeFailed, map[string]interface{}{
				"run_id": run.ID,
				"cidr":   cidr,
				"error":  err.Error(),
			})
		} else {
			run.Scanned = append(run.Scanned, cidr)
			run.HostsUp += up
			run.HostsDown += down
			s.publish(EventRangeScanned, map[string]interface{}{
				"run_id": run.ID,
				"cidr":   cidr,
				"up":     up,
				"down":   down,
			})
		}

		if i < len(ranges)-1 {
			s.pause(ctx)
		}
	}

	s.prune(ctx, run)

	run.FinishedAt = s.now().UTC()
	s.setLastRun(run)

	s.log.Info().
		Str("run_id", run.ID).
		Int("scanned", len(run.Scanned)).
		Int("failed", len(run.Failed)).
		Int("up", run.HostsUp).
		Int("down", run.HostsDown).
		Dur("duration", run.Duration()).
		Msg("Scan complete")
	s.publish(EventScanComplete, run)

	return run, nil
}

func (s *ScanService) targetRanges(ctx context.Context, cidrs []string) ([]string, error) {
	ranges := make([]string, 0, len(cidrs))
	for _, c := range cidrs {
		if c = strings.TrimSpace(c); c != "" {
			ranges = append(ranges, c)
		}
	}
	if len(ranges) > 0 {
		return ranges, nil
	}

	active, err := s.store.ListActiveRanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active ranges: %w", err)
	}
	if len(active) == 0 {
		return nil, domain.ErrNoRangesConfigured
	}
	return active, nil
}

// scanRange runs expand, probe, fallback, resolve and reconcile for one CIDR
func (s *ScanService) scanRange(ctx context.Context, runID, cidr string) (up, down int, err error) {
	addrs, err := domain.ExpandRange(cidr)
	if err != nil {
		return 0, 0, err
	}

	scanTime := s.now().UTC()
	rlog := s.log.With().Str("run_id", runID).Str("cidr", cidr).Logger()
	rlog.Debug().Int("hosts", len(addrs)).Msg("Scanning range")

	obs := s.prober.Probe(ctx, addrs)
	s.applyActiveScan(ctx, obs)

	if s.resolver != nil {
		s.resolver.ResolveNames(ctx, obs)
		s.resolver.ResolveVendors(obs)
	}

	// A cancelled run must not persist a range whose probes were cut short
	if err := ctx.Err(); err != nil {
		return 0, 0, fmt.Errorf("range %s: %w", cidr, err)
	}

	if err := s.store.ReconcileRange(ctx, runID, scanTime, obs); err != nil {
		return 0, 0, fmt.Errorf("reconcile %s: %w", cidr, err)
	}

	for _, o := range obs {
		if o.IsUp() {
			up++
		} else {
			down++
		}
	}
	rlog.Info().Int("up", up).Int("down", down).Msg("Range reconciled")
	return up, down, nil
}

// applyActiveScan runs the active scan over the Down subset and merges what it finds.
// The active scan's MAC replaces any MAC the passive probe recorded.
func (s *ScanService) applyActiveScan(ctx context.Context, obs map[string]domain.Observation) {
	if s.active == nil {
		return
	}

	var downAddrs []string
	for _, addr := range domain.SortedAddresses(obs) {
		if !obs[addr].IsUp() {
			downAddrs = append(downAddrs, addr)
		}
	}
	if len(downAddrs) == 0 {
		return
	}

	found, err := s.active.Discover(ctx, downAddrs)
	if err != nil {
		s.log.Warn().Err(err).Int("targets", len(downAddrs)).Msg("Active scan failed, keeping probe results")
		return
	}

	for addr, res := range found {
		o, ok := obs[addr]
		if !ok {
			continue
		}
		o.Status = domain.StatusUp
		o.SetMAC(res.MAC)
		o.SetName(res.Hostname)
		if len(res.Vendors) > 0 {
			o.ActiveVendors = res.Vendors
		}
		obs[addr] = o
	}
}

func (s *ScanService) pause(ctx context.Context) {
	if s.config.RangePause <= 0 {
		return
	}
	t := time.NewTimer(s.config.RangePause)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// prune never fails the run; errors are logged
func (s *ScanService) prune(ctx context.Context, run *domain.ScanRun) {
	cutoff := s.now().UTC().Add(-s.config.Retention)
	n, err := s.store.PruneHistory(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Time("cutoff", cutoff).Msg("History pruning failed")
		return
	}
	run.Pruned = n
	if n > 0 {
		s.log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("Pruned history")
	}
}

func (s *ScanService) publish(eventType EventType, payload interface{}) {
	if s.eventBus != nil {
		s.eventBus.Publish(Event{Type: eventType, Payload: payload})
	}
}

func (s *ScanService) setLastRun(run *domain.ScanRun) {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	s.lastRun = run
}

// LastRun returns the summary of the most recent completed run, or nil
func (s *ScanService) LastRun() *domain.ScanRun {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.lastRun == nil {
		return nil
	}
	cp := *s.lastRun
	return &cp
}

// Running reports whether a run is in progress
func (s *ScanService) Running() bool {
	return s.running.Load()
}
