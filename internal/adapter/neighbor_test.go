package adapter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const procARPSample = `IP address       HW type     Flags       HW address            Mask     Device
192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:01     *        eth0
192.168.1.20     0x1         0x0         00:00:00:00:00:00     *        eth0
192.168.1.30     0x1         0x2         00:00:00:00:00:00     *        eth0
192.168.1.40     0x1         0x2         3c:22:fb:10:20:30     *        wlan0
`

func TestParseProcARP(t *testing.T) {
	tests := []struct {
		ip     string
		want   string
		wantOK bool
	}{
		{"192.168.1.1", "AA:BB:CC:DD:EE:01", true},
		{"192.168.1.40", "3C:22:FB:10:20:30", true},
		{"192.168.1.20", "", false}, // incomplete
		{"192.168.1.30", "", false}, // all-zero MAC
		{"192.168.1.99", "", false}, // absent
		{"IP", "", false},           // header is never an entry
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			got, ok := parseProcARP(strings.NewReader(procARPSample), tt.ip)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseARPOutput(t *testing.T) {
	tests := []struct {
		name   string
		out    string
		want   string
		wantOK bool
	}{
		{
			name:   "linux net-tools",
			out:    "Address                  HWtype  HWaddress           Flags Mask            Iface\n10.0.0.1                 ether   a0:f3:c1:00:11:22   C                     eth0\n",
			want:   "A0:F3:C1:00:11:22",
			wantOK: true,
		},
		{
			name:   "bsd short octets",
			out:    "? (10.0.0.1) at 0:1b:21:a:b:c on en0 ifscope [ethernet]\n",
			want:   "00:1B:21:0A:0B:0C",
			wantOK: true,
		},
		{
			name: "incomplete",
			out:  "? (10.0.0.9) at (incomplete) on en0 ifscope [ethernet]\n",
		},
		{
			name: "no entry",
			out:  "10.0.0.9 (10.0.0.9) -- no entry\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseARPOutput([]byte(tt.out))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"aa:bb:cc:11:22:33", "AA:BB:CC:11:22:33", true},
		{"AA-BB-CC-11-22-33", "AA:BB:CC:11:22:33", true},
		{"0:1:2:3:4:5", "00:01:02:03:04:05", true},
		{"00:00:00:00:00:00", "", false},
		{"aa:bb:cc:11:22", "", false},
		{"gg:bb:cc:11:22:33", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeMAC(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestProcNeighborCache_Lookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arp")
	require.NoError(t, os.WriteFile(path, []byte(procARPSample), 0644))

	cache := ProcNeighborCache{Path: path}

	mac, ok := cache.Lookup(context.Background(), "192.168.1.1")
	assert.True(t, ok)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", mac)

	_, ok = cache.Lookup(context.Background(), "192.168.1.99")
	assert.False(t, ok)
}

func TestProcNeighborCache_FallbackWithoutBinary(t *testing.T) {
	cache := ProcNeighborCache{
		Path:      filepath.Join(t.TempDir(), "missing"),
		ARPBinary: "/nonexistent/arp",
	}

	_, ok := cache.Lookup(context.Background(), "192.168.1.1")
	assert.False(t, ok)
}
