package lookup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ieeeSample = `OUI/MA-L			Organization
company_id			Organization
				Address

00-00-0C   (hex)		Cisco Systems, Inc
00000C     (base 16)		Cisco Systems, Inc
				170 WEST TASMAN DRIVE

AA-BB-CD   (hex)		Example Networks
`

const manufSample = "# Wireshark manuf\n" +
	"00:00:01\tXerox\tXerox Corporation\n" +
	"00:1B:C5\tIeeeRegi\tIEEE Registration Authority\n" +
	"00:1B:C5:00:00:00/36\tConvergi\tConverging Systems Inc.\n" +
	"00:55:DA:00:00:00/28\tShinkoTe\tShinko Technos co.,ltd.\n" +
	"garbage line\n"

func TestOUITable_Builtin(t *testing.T) {
	table := NewOUITable(16)

	vendor, ok := table.Lookup("00:50:56:aa:bb:cc")
	assert.True(t, ok)
	assert.Equal(t, "VMware, Inc.", vendor)

	_, ok = table.Lookup("AA:BB:CC:11:22:33")
	assert.False(t, ok, "unregistered prefix should not match")

	// second lookup is served from the cache and must agree
	_, ok = table.Lookup("AA:BB:CC:11:22:33")
	assert.False(t, ok)
}

func TestOUITable_LoadIEEE(t *testing.T) {
	table := NewOUITable(16)
	before := table.Len()

	added, err := table.Load(strings.NewReader(ieeeSample))
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, before+2, table.Len())

	vendor, ok := table.Lookup("00:00:0c:12:34:56")
	assert.True(t, ok)
	assert.Equal(t, "Cisco Systems, Inc", vendor)

	vendor, ok = table.Lookup("AA-BB-CD-00-00-01")
	assert.True(t, ok)
	assert.Equal(t, "Example Networks", vendor)
}

func TestOUITable_LoadManufLongestPrefix(t *testing.T) {
	table := NewOUITable(16)
	_, err := table.Load(strings.NewReader(manufSample))
	require.NoError(t, err)

	tests := []struct {
		mac  string
		want string
	}{
		{"00:00:01:02:03:04", "Xerox Corporation"},
		{"00:1B:C5:00:00:10", "Converging Systems Inc."},
		{"00:1B:C5:FF:00:10", "IEEE Registration Authority"},
		{"00:55:DA:01:02:03", "Shinko Technos co.,ltd."},
	}
	for _, tt := range tests {
		t.Run(tt.mac, func(t *testing.T) {
			got, ok := table.Lookup(tt.mac)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOUITable_LoadPurgesCachedMiss(t *testing.T) {
	table := NewOUITable(16)

	_, ok := table.Lookup("AA:BB:CD:00:00:01")
	require.False(t, ok)

	_, err := table.Load(strings.NewReader(ieeeSample))
	require.NoError(t, err)

	vendor, ok := table.Lookup("AA:BB:CD:00:00:01")
	assert.True(t, ok)
	assert.Equal(t, "Example Networks", vendor)
}

func TestOUITable_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oui.txt")
	require.NoError(t, os.WriteFile(path, []byte(ieeeSample), 0644))

	table := NewOUITable(16)
	added, err := table.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	_, err = table.LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestOUITable_RejectsMalformedMAC(t *testing.T) {
	table := NewOUITable(16)
	for _, mac := range []string{"", "N/A", "00:50:56", "00:50:56:zz:00:01", "00:50:56:00:00:01:02"} {
		_, ok := table.Lookup(mac)
		assert.False(t, ok, mac)
	}
}
