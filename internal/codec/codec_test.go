package codec

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ipscope/internal/domain"
)

func sampleStates() []domain.ObservedState {
	checked := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	up := checked.Add(-time.Hour)
	return []domain.ObservedState{
		{Address: "10.0.0.1", Name: "gw.lan", MAC: "AA:BB:CC:00:00:01", Vendor: "Ubiquiti Inc.", Status: domain.StatusUp, LastChecked: checked, LastUp: &up},
		{Address: "10.0.0.2", Name: "Unknown", MAC: "AA:BB:CC:00:00:02", Vendor: "Ubiquiti Inc.", Status: domain.StatusUp, LastChecked: checked, LastUp: &up},
		{Address: "10.0.0.3", Name: "alice laptop", MAC: "N/A", Vendor: "Unknown", Status: domain.StatusUp, LastChecked: checked, LastUp: &up},
		{Address: "10.0.0.4", Name: "Unknown", MAC: "N/A", Vendor: "Unknown", Status: domain.StatusDown, LastChecked: checked},
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"ansible", "json", "yaml"}, r.Formats())

	e, ok := r.Get("yaml")
	require.True(t, ok)
	assert.Equal(t, "application/yaml", e.ContentType())

	_, ok = r.Get("xml")
	assert.False(t, ok)
}

func TestJSONCodec_Export(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONCodec().Export(sampleStates(), &buf))

	var got []domain.ObservedState
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 4)
	assert.Equal(t, "gw.lan", got[0].Name)

	buf.Reset()
	require.NoError(t, NewJSONCodec().Export(nil, &buf))
	assert.JSONEq(t, "[]", buf.String())
}

func TestYAMLCodec_Export(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLCodec().Export(sampleStates(), &buf))

	var got yamlInventory
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Hosts, 4)
	assert.Equal(t, "10.0.0.1", got.Hosts[0].IP)
	assert.Equal(t, "2024-05-01T11:00:00Z", got.Hosts[0].LastUp)
	assert.Equal(t, "Down", got.Hosts[3].Status)
	assert.Empty(t, got.Hosts[3].LastUp)
}

func TestAnsibleCodec_Export(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewAnsibleCodec().Export(sampleStates(), &buf))

	var got ansibleInventory
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))

	require.Len(t, got.All.Children, 2)

	ubnt := got.All.Children["vendor_ubiquiti_inc"].Hosts
	require.Len(t, ubnt, 2)
	assert.Equal(t, "10.0.0.1", ubnt["gw.lan"].AnsibleHost)
	assert.Equal(t, "AA:BB:CC:00:00:01", ubnt["gw.lan"].MACAddress)
	assert.Equal(t, "10.0.0.2", ubnt["10.0.0.2"].AnsibleHost)

	unknown := got.All.Children["vendor_unknown"].Hosts
	require.Len(t, unknown, 1)
	// names with spaces are not inventory hostnames
	h, ok := unknown["10.0.0.3"]
	require.True(t, ok)
	assert.Empty(t, h.MACAddress)
	assert.Empty(t, h.Vendor)
}

func TestGroupName(t *testing.T) {
	tests := map[string]string{
		"":                  "vendor_unknown",
		"Unknown":           "vendor_unknown",
		"Apple, Inc.":       "vendor_apple_inc",
		"  Raspberry Pi  ":  "vendor_raspberry_pi",
		"Hewlett-Packard 2": "vendor_hewlett_packard_2",
	}
	for in, want := range tests {
		assert.Equal(t, want, groupName(in), in)
	}
}
