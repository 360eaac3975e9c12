package adapter

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"ipscope/internal/domain"
	"ipscope/internal/logger"
)

// ProberConfig holds liveness probe settings
type ProberConfig struct {
	// Timeout for a single ping
	Timeout time.Duration
	// MaxConcurrent bounds the number of probes in flight
	MaxConcurrent int
}

// DefaultProberConfig returns sensible defaults
func DefaultProberConfig() ProberConfig {
	return ProberConfig{
		Timeout:       time.Second,
		MaxConcurrent: 80,
	}
}

// Prober checks liveness and neighbor-cache MACs for a set of addresses
type Prober struct {
	pinger    Pinger
	neighbors NeighborCache
	config    ProberConfig
	log       logger.Logger
	publisher EventPublisher
	now       func() time.Time
}

// NewProber creates a new Prober
func NewProber(pinger Pinger, neighbors NeighborCache, config ProberConfig, log logger.Logger) *Prober {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultProberConfig().MaxConcurrent
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultProberConfig().Timeout
	}
	return &Prober{
		pinger:    pinger,
		neighbors: neighbors,
		config:    config,
		log:       log.WithComponent("prober"),
		now:       time.Now,
	}
}

// SetEventPublisher sets the event publisher for progress updates
func (p *Prober) SetEventPublisher(pub EventPublisher) {
	p.publisher = pub
}

func (p *Prober) publishProgress(eventType string, payload interface{}) {
	if p.publisher != nil {
		p.publisher.PublishDiscoveryEvent(eventType, payload)
	}
}

// Probe pings every address and consults the neighbor cache for each one.
// Workers hand results to a single collector; the returned map holds exactly one
// observation per input address.
func (p *Prober) Probe(ctx context.Context, addrs []string) map[string]domain.Observation {
	checkedAt := p.now().UTC()
	results := make(chan domain.Observation, p.config.MaxConcurrent)

	p.publishProgress(EventProbeStarted, map[string]interface{}{
		"total": len(addrs),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.MaxConcurrent)

	go func() {
		for _, addr := range addrs {
			g.Go(func() error {
				results <- p.probeOne(gctx, addr, checkedAt)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	observations := make(map[string]domain.Observation, len(addrs))
	up := 0
	for obs := range results {
		if obs.IsUp() {
			up++
		}
		observations[obs.Address] = obs
	}

	p.log.Debug().Int("total", len(addrs)).Int("up", up).Msg("Probe phase complete")
	p.publishProgress(EventProbeComplete, map[string]interface{}{
		"total": len(addrs),
		"up":    up,
	})

	return observations
}

// probeOne never fails: probe errors degrade to a Down observation
func (p *Prober) probeOne(ctx context.Context, addr string, checkedAt time.Time) domain.Observation {
	obs := domain.NewObservation(addr, checkedAt)

	up, err := p.pinger.Ping(ctx, addr, p.config.Timeout)
	if err != nil {
		p.log.Debug().Err(err).Str("ip", addr).Msg("Ping failed")
	}
	if up {
		obs.Status = domain.StatusUp
	}

	// The neighbor cache may know the host even when it ignores pings
	if mac, ok := p.neighbors.Lookup(ctx, addr); ok {
		obs.SetMAC(mac)
	}

	return obs
}
