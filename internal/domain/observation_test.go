package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservation_Placeholders(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	obs := NewObservation("10.0.0.5", now)

	assert.Equal(t, StatusDown, obs.Status)
	assert.False(t, obs.IsUp())
	assert.Equal(t, NoMAC, obs.MACOrDefault())
	assert.Equal(t, UnknownName, obs.NameOrUnknown())
	assert.Equal(t, UnknownVendor, obs.VendorOrUnknown())

	obs.SetMAC("")
	obs.SetName("")
	assert.Nil(t, obs.MAC)
	assert.Nil(t, obs.Name)
}

func TestObservation_ToState(t *testing.T) {
	scan := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("up sets last up", func(t *testing.T) {
		obs := NewObservation("10.0.0.5", scan)
		obs.Status = StatusUp
		obs.SetMAC("AA:BB:CC:11:22:33")
		obs.SetName("printer")
		obs.SetVendor("Acme")

		state := obs.ToState(scan)
		assert.Equal(t, "10.0.0.5", state.Address)
		assert.Equal(t, "printer", state.Name)
		assert.Equal(t, "AA:BB:CC:11:22:33", state.MAC)
		assert.Equal(t, "Acme", state.Vendor)
		assert.Equal(t, StatusUp, state.Status)
		assert.Equal(t, scan, state.LastChecked)
		require.NotNil(t, state.LastUp)
		assert.Equal(t, scan, *state.LastUp)
	})

	t.Run("down leaves last up empty", func(t *testing.T) {
		obs := NewObservation("10.0.0.6", scan)
		state := obs.ToState(scan)
		assert.Nil(t, state.LastUp)
		assert.Equal(t, NoMAC, state.MAC)
	})
}

func TestObservation_ToRecord(t *testing.T) {
	scan := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	obs := NewObservation("10.0.0.7", scan)
	obs.SetMAC("AA:BB:CC:11:22:33")

	rec := obs.ToRecord("run-1", scan)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "10.0.0.7", rec.Address)
	assert.Equal(t, UnknownName, rec.Name)
	assert.Equal(t, StatusDown, rec.Status)
	assert.Equal(t, scan, rec.ScanTime)
}

func TestObservation_FirstActiveVendor(t *testing.T) {
	obs := Observation{}
	_, ok := obs.FirstActiveVendor()
	assert.False(t, ok)

	obs.ActiveVendors = map[string]string{
		"BB:00:00:00:00:01": "Second",
		"AA:00:00:00:00:01": "First",
	}
	v, ok := obs.FirstActiveVendor()
	assert.True(t, ok)
	assert.Equal(t, "First", v)
}

func TestOwnerTypeValid(t *testing.T) {
	assert.True(t, OwnerUser.Valid())
	assert.True(t, OwnerDevice.Valid())
	assert.True(t, OwnerServer.Valid())
	assert.False(t, OwnerType("printer").Valid())
}

func TestOwnerTypeKind(t *testing.T) {
	assert.Equal(t, "User", OwnerUser.Kind())
	assert.Equal(t, "Device", OwnerDevice.Kind())
	assert.Equal(t, "Server", OwnerServer.Kind())
	assert.Equal(t, "", OwnerType("").Kind())
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "6.16", ShortAddress("192.168.6.16"))
	assert.Equal(t, "0:1", ShortAddress("fd00::0:1"))
	assert.Equal(t, "bogus", ShortAddress("bogus"))
}
