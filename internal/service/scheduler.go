package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"ipscope/internal/domain"
	"ipscope/internal/logger"
)

// RangeScanner runs one orchestration over the given ranges
type RangeScanner interface {
	Run(ctx context.Context, cidrs []string) (*domain.ScanRun, error)
}

// Scheduler scans the active ranges on a fixed interval
type Scheduler struct {
	scanner  RangeScanner
	interval time.Duration
	log      logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. A non-positive interval disables it.
func NewScheduler(scanner RangeScanner, interval time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{
		scanner:  scanner,
		interval: interval,
		log:      log.WithComponent("scheduler"),
	}
}

// Start launches the polling loop. It runs one scan immediately, then one per interval.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info().Msg("Scheduled scanning disabled")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.runOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	s.log.Info().Dur("interval", s.interval).Msg("Scheduled scanning started")
}

// Stop cancels the loop and waits for an in-flight scan to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	_, err := s.scanner.Run(ctx, nil)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrScanInProgress):
		s.log.Debug().Msg("Skipping scheduled scan, another scan is running")
	case errors.Is(err, domain.ErrNoRangesConfigured):
		s.log.Warn().Msg("Scheduled scan skipped, no active ranges configured")
	default:
		s.log.Error().Err(err).Msg("Scheduled scan failed")
	}
}
