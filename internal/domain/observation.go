package domain

import (
	"sort"
	"time"
)

// Status is the reachability of an address as seen by one scan
type Status string

const (
	StatusUp   Status = "Up"
	StatusDown Status = "Down"
)

// Placeholders persisted when a value could not be discovered
const (
	UnknownName   = "Unknown"
	UnknownVendor = "Unknown"
	NoMAC         = "N/A"
)

// Observation is everything one scan learned about a single address.
// Optional fields are nil until a phase discovers a value for them.
type Observation struct {
	Address   string    `json:"address"`
	Status    Status    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`

	MAC    *string `json:"mac,omitempty"`
	Name   *string `json:"name,omitempty"`
	Vendor *string `json:"vendor,omitempty"`

	// ActiveVendors is the MAC -> vendor map reported by the active scan
	ActiveVendors map[string]string `json:"active_vendors,omitempty"`
}

// NewObservation creates a Down observation for addr checked at t
func NewObservation(addr string, t time.Time) Observation {
	return Observation{
		Address:   addr,
		Status:    StatusDown,
		CheckedAt: t,
	}
}

// IsUp reports whether the address answered during this scan
func (o Observation) IsUp() bool {
	return o.Status == StatusUp
}

// SetMAC records a MAC address, ignoring empty values
func (o *Observation) SetMAC(mac string) {
	if mac != "" {
		o.MAC = &mac
	}
}

// SetName records a display name, ignoring empty values
func (o *Observation) SetName(name string) {
	if name != "" {
		o.Name = &name
	}
}

// SetVendor records a vendor, ignoring empty values
func (o *Observation) SetVendor(vendor string) {
	if vendor != "" {
		o.Vendor = &vendor
	}
}

// HasName reports whether a name was already captured
func (o Observation) HasName() bool {
	return o.Name != nil && *o.Name != ""
}

// FirstActiveVendor returns the first vendor reported by the active scan
func (o Observation) FirstActiveVendor() (string, bool) {
	return FirstVendor(o.ActiveVendors)
}

// FirstVendor returns the first non-empty vendor of a MAC -> vendor map.
// MAC keys are visited in sorted order so the result is stable.
func FirstVendor(vendors map[string]string) (string, bool) {
	if len(vendors) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(vendors))
	for k := range vendors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := vendors[k]; v != "" {
			return v, true
		}
	}
	return "", false
}

// MACOrDefault returns the MAC or the "N/A" placeholder
func (o Observation) MACOrDefault() string {
	if o.MAC == nil || *o.MAC == "" {
		return NoMAC
	}
	return *o.MAC
}

// NameOrUnknown returns the display name or the "Unknown" placeholder
func (o Observation) NameOrUnknown() string {
	if !o.HasName() {
		return UnknownName
	}
	return *o.Name
}

// VendorOrUnknown returns the vendor or the "Unknown" placeholder
func (o Observation) VendorOrUnknown() string {
	if o.Vendor == nil || *o.Vendor == "" {
		return UnknownVendor
	}
	return *o.Vendor
}

// ToState converts the observation into the current-state row written at scanTime.
// LastUp is only set when the host is Up; the store keeps the previous value otherwise.
func (o Observation) ToState(scanTime time.Time) ObservedState {
	state := ObservedState{
		Address:     o.Address,
		Name:        o.NameOrUnknown(),
		MAC:         o.MACOrDefault(),
		Vendor:      o.VendorOrUnknown(),
		Status:      o.Status,
		LastChecked: scanTime,
	}
	if o.IsUp() {
		t := scanTime
		state.LastUp = &t
	}
	return state
}

// ToRecord converts the observation into the history record for run
func (o Observation) ToRecord(runID string, scanTime time.Time) ObservationRecord {
	return ObservationRecord{
		RunID:    runID,
		Address:  o.Address,
		Name:     o.NameOrUnknown(),
		MAC:      o.MACOrDefault(),
		Vendor:   o.VendorOrUnknown(),
		Status:   o.Status,
		ScanTime: scanTime,
	}
}

// SortedAddresses returns the keys of an observation map in address order
func SortedAddresses(obs map[string]Observation) []string {
	addrs := make([]string, 0, len(obs))
	for a := range obs {
		addrs = append(addrs, a)
	}
	SortAddresses(addrs)
	return addrs
}
