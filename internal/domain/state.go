package domain

import (
	"strings"
	"time"
)

// ObservedState is the current view of one address
type ObservedState struct {
	Address     string     `json:"ip"`
	Name        string     `json:"hostname"`
	MAC         string     `json:"mac_address"`
	Vendor      string     `json:"vendor"`
	Status      Status     `json:"status"`
	LastChecked time.Time  `json:"last_checked"`
	LastUp      *time.Time `json:"last_up,omitempty"`
}

// ObservationRecord is one immutable history entry
type ObservationRecord struct {
	ID       int64     `json:"id"`
	RunID    string    `json:"run_id,omitempty"`
	Address  string    `json:"ip"`
	Name     string    `json:"hostname"`
	MAC      string    `json:"mac_address"`
	Vendor   string    `json:"vendor"`
	Status   Status    `json:"status"`
	ScanTime time.Time `json:"scan_time"`
}

// AddressRange is a configured CIDR block
type AddressRange struct {
	ID     int64  `json:"id"`
	CIDR   string `json:"cidr"`
	Active bool   `json:"active"`
}

// OwnerType identifies the kind of entity an address is assigned to
type OwnerType string

const (
	OwnerUser   OwnerType = "user"
	OwnerDevice OwnerType = "device"
	OwnerServer OwnerType = "server"
)

// Valid reports whether the owner type is one of the known kinds
func (t OwnerType) Valid() bool {
	switch t {
	case OwnerUser, OwnerDevice, OwnerServer:
		return true
	}
	return false
}

// OwnershipAssignment maps an address to the display name of its owner
type OwnershipAssignment struct {
	Address   string    `json:"ip_address"`
	OwnerType OwnerType `json:"owner_type"`
	OwnerName string    `json:"owner_name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryFilter narrows a history listing
type HistoryFilter struct {
	Address string
	RunID   string
	Limit   int
	Offset  int
}

// ScanRun summarizes one orchestration run
type ScanRun struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Ranges     []string          `json:"ranges"`
	Scanned    []string          `json:"scanned"`
	Failed     map[string]string `json:"failed,omitempty"`
	HostsUp    int               `json:"hosts_up"`
	HostsDown  int               `json:"hosts_down"`
	Pruned     int64             `json:"pruned"`
}

// Duration returns how long the run took
func (r *ScanRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// MapSlot is one host address of a range as shown on the address map.
// Taken is set only for assigned addresses; an unassigned address that was
// last seen Up has Kind "Network".
type MapSlot struct {
	Address string `json:"ip"`
	Short   string `json:"short"`
	Taken   bool   `json:"taken"`
	Kind    string `json:"kind"`
	Name    string `json:"name"`
}

// KindNetwork marks an unassigned address that answered on the network
const KindNetwork = "Network"

// Kind returns the display label of the owner type ("User", "Device", "Server")
func (t OwnerType) Kind() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// ShortAddress returns the compact label of an address: the last two octets
// for IPv4, the last two groups for IPv6.
func ShortAddress(addr string) string {
	sep := "."
	if strings.Contains(addr, ":") {
		sep = ":"
	}
	parts := strings.Split(addr, sep)
	if len(parts) < 2 {
		return addr
	}
	return strings.Join(parts[len(parts)-2:], sep)
}
