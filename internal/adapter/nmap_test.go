package adapter

import (
	"context"
	"testing"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipscope/internal/logger"
)

// TestNmapScanner_Creation tests scanner creation with various options
func TestNmapScanner_Creation(t *testing.T) {
	tests := []struct {
		name           string
		opts           []NmapOption
		wantTimeout    time.Duration
		wantRetries    int
		wantPrivileged bool
	}{
		{
			name:           "defaults mirror the discovery profile",
			wantTimeout:    200 * time.Millisecond,
			wantRetries:    1,
			wantPrivileged: true,
		},
		{
			name:           "custom host timeout",
			opts:           []NmapOption{WithHostTimeout(time.Second)},
			wantTimeout:    time.Second,
			wantRetries:    1,
			wantPrivileged: true,
		},
		{
			name:           "unprivileged",
			opts:           []NmapOption{WithPrivileged(false), WithMaxRetries(3)},
			wantTimeout:    200 * time.Millisecond,
			wantRetries:    3,
			wantPrivileged: false,
		},
		{
			name:           "negative retries ignored",
			opts:           []NmapOption{WithMaxRetries(-1)},
			wantTimeout:    200 * time.Millisecond,
			wantRetries:    1,
			wantPrivileged: true,
		},
		{
			name:           "stealth timing",
			opts:           []NmapOption{WithStealthTiming()},
			wantTimeout:    2 * time.Second,
			wantRetries:    0,
			wantPrivileged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewNmapScanner(logger.NewTestLogger(), tt.opts...)
			assert.Equal(t, tt.wantTimeout, s.hostTimeout)
			assert.Equal(t, tt.wantRetries, s.maxRetries)
			assert.Equal(t, tt.wantPrivileged, s.privileged)
		})
	}
}

func TestNmapScanner_Options(t *testing.T) {
	s := NewNmapScanner(logger.NewTestLogger(), WithBinaryPath("/opt/nmap/bin/nmap"))
	opts := s.options([]string{"10.0.0.1", "10.0.0.2"})

	// targets, -sn, -PR, -n, -T4, --max-retries, --host-timeout, --privileged, binary path
	assert.Len(t, opts, 9)

	s = NewNmapScanner(logger.NewTestLogger(), WithPrivileged(false), WithHostTimeout(0))
	assert.Len(t, s.options([]string{"10.0.0.1"}), 6, "no privileged or host timeout option")
}

func TestNmapScanner_DiscoverEmpty(t *testing.T) {
	s := NewNmapScanner(logger.NewTestLogger(), WithBinaryPath("/nonexistent/nmap"))

	// An empty target list never reaches nmap
	found, err := s.Discover(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

// TestParseRun tests parsing of mock nmap results
func TestParseRun(t *testing.T) {
	mockResult := &nmap.Run{
		Hosts: []nmap.Host{
			{
				Addresses: []nmap.Address{
					{Addr: "192.168.1.100", AddrType: "ipv4"},
					{Addr: "aa:bb:cc:dd:ee:ff", AddrType: "mac", Vendor: "Test Vendor"},
				},
				Hostnames: []nmap.Hostname{{Name: "testhost.local"}},
				Status:    nmap.Status{State: "up"},
			},
			{
				Addresses: []nmap.Address{
					{Addr: "192.168.1.101", AddrType: "ipv4"},
				},
				Status: nmap.Status{State: "up"},
			},
			{
				Addresses: []nmap.Address{
					{Addr: "192.168.1.102", AddrType: "ipv4"},
					{Addr: "11:22:33:44:55:66", AddrType: "mac"},
				},
				Status: nmap.Status{State: "down"},
			},
			{
				Addresses: []nmap.Address{
					{Addr: "00:11:22:33:44:55", AddrType: "mac", Vendor: "Orphan"},
				},
				Status: nmap.Status{State: "up"},
			},
		},
	}

	found, err := parseRun(mockResult)
	require.NoError(t, err)
	require.Len(t, found, 2)

	first, ok := found["192.168.1.100"]
	require.True(t, ok)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", first.MAC)
	assert.Equal(t, "testhost.local", first.Hostname)
	assert.Equal(t, "Test Vendor", first.Vendors["AA:BB:CC:DD:EE:FF"])

	second := found["192.168.1.101"]
	assert.Empty(t, second.MAC)
	assert.Nil(t, second.Vendors)

	assert.NotContains(t, found, "192.168.1.102", "down host is not reported")
}

func TestParseRun_Nil(t *testing.T) {
	_, err := parseRun(nil)
	assert.Error(t, err)
}
