package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipscope/internal/domain"
	"ipscope/internal/logger"
)

type stubPinger struct {
	up       map[string]bool
	fail     map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (s *stubPinger) Ping(ctx context.Context, addr string, _ time.Duration) (bool, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.fail[addr] {
		return false, errors.New("exec: ping: not found")
	}
	return s.up[addr], nil
}

type stubNeighbors map[string]string

func (s stubNeighbors) Lookup(_ context.Context, addr string) (string, bool) {
	mac, ok := s[addr]
	return mac, ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingPublisher) PublishDiscoveryEvent(eventType string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func TestProber_Probe(t *testing.T) {
	pinger := &stubPinger{
		up:   map[string]bool{"10.0.0.1": true, "10.0.0.2": true},
		fail: map[string]bool{"10.0.0.4": true},
	}
	neighbors := stubNeighbors{
		"10.0.0.1": "AA:BB:CC:00:00:01",
		"10.0.0.3": "AA:BB:CC:00:00:03",
	}
	prober := NewProber(pinger, neighbors, ProberConfig{Timeout: time.Second, MaxConcurrent: 4}, logger.NewTestLogger())
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	prober.now = func() time.Time { return fixed }

	pub := &recordingPublisher{}
	prober.SetEventPublisher(pub)

	addrs := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
	obs := prober.Probe(context.Background(), addrs)

	require.Len(t, obs, 4)

	assert.Equal(t, domain.StatusUp, obs["10.0.0.1"].Status)
	require.NotNil(t, obs["10.0.0.1"].MAC)
	assert.Equal(t, "AA:BB:CC:00:00:01", *obs["10.0.0.1"].MAC)

	assert.Equal(t, domain.StatusUp, obs["10.0.0.2"].Status)
	assert.Nil(t, obs["10.0.0.2"].MAC)

	// Down host keeps the MAC seen in the neighbor cache
	assert.Equal(t, domain.StatusDown, obs["10.0.0.3"].Status)
	require.NotNil(t, obs["10.0.0.3"].MAC)
	assert.Equal(t, "AA:BB:CC:00:00:03", *obs["10.0.0.3"].MAC)

	// Probe errors are swallowed into Down
	assert.Equal(t, domain.StatusDown, obs["10.0.0.4"].Status)

	for _, o := range obs {
		assert.Equal(t, fixed, o.CheckedAt)
	}
	assert.Equal(t, []string{EventProbeStarted, EventProbeComplete}, pub.events)
}

func TestProber_RespectsConcurrencyBound(t *testing.T) {
	pinger := &stubPinger{delay: 5 * time.Millisecond}
	prober := NewProber(pinger, stubNeighbors{}, ProberConfig{Timeout: time.Second, MaxConcurrent: 3}, logger.NewTestLogger())

	addrs := make([]string, 30)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("10.0.1.%d", i+1)
	}

	obs := prober.Probe(context.Background(), addrs)
	assert.Len(t, obs, 30)
	assert.LessOrEqual(t, pinger.peak.Load(), int32(3))
}

func TestProber_Empty(t *testing.T) {
	prober := NewProber(&stubPinger{}, stubNeighbors{}, DefaultProberConfig(), logger.NewTestLogger())
	obs := prober.Probe(context.Background(), nil)
	assert.Empty(t, obs)
}

func TestNewProber_Defaults(t *testing.T) {
	prober := NewProber(&stubPinger{}, stubNeighbors{}, ProberConfig{}, logger.NewTestLogger())
	assert.Equal(t, 80, prober.config.MaxConcurrent)
	assert.Equal(t, time.Second, prober.config.Timeout)
}

func TestPingArgs(t *testing.T) {
	args := pingArgs("10.0.0.1", 300*time.Millisecond)
	require.Len(t, args, 5)
	assert.Equal(t, "-c", args[0])
	assert.Equal(t, "1", args[1])
	assert.Equal(t, "-W", args[2])
	assert.Equal(t, "10.0.0.1", args[4])
	assert.NotEqual(t, "0", args[3], "timeout must never round down to zero")
}
