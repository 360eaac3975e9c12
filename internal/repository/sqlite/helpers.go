package sqlite

import (
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"ipscope/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullToTimePtr safely converts sql.NullTime to *time.Time
func nullToTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time.UTC()
		return &t
	}
	return nil
}

// nullToBool converts sql.NullInt64 to bool (0 = false, non-zero = true)
func nullToBool(ni sql.NullInt64) bool {
	return ni.Valid && ni.Int64 != 0
}

// boolToInt stores booleans as 0/1
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timePtrToNull safely converts *time.Time to sql.NullTime
func timePtrToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// notFound maps sql.ErrNoRows to domain.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to live_monitor:
// 1. Add field to liveRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update liveColumns constant - APPEND to end
// 4. Update toDomain() to map new field to domain.ObservedState
// 5. Update the upsert in ReconcileRange
// 6. Add migration in sqlite.go migrate() using addColumnIfNotExists()
//
// CRITICAL: Column order must match between the *Columns constant and the
// scanArgs() slice. Same pattern applies to history, ranges and assignments.

// ============================================================================
// Live State Row Scanner
// ============================================================================

// liveRow holds all columns from a live_monitor query for scanning
type liveRow struct {
	Address     string
	Name        sql.NullString
	MAC         sql.NullString
	Vendor      sql.NullString
	Status      string
	LastChecked time.Time
	LastUp      sql.NullTime
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match liveColumns order exactly:
// ip, hostname, mac_address, vendor, status, last_checked, last_up
func (r *liveRow) scanArgs() []interface{} {
	return []interface{}{
		&r.Address,     // 1
		&r.Name,        // 2
		&r.MAC,         // 3
		&r.Vendor,      // 4
		&r.Status,      // 5
		&r.LastChecked, // 6
		&r.LastUp,      // 7
	}
}

// toDomain converts the scanned row to a domain.ObservedState
func (r *liveRow) toDomain() domain.ObservedState {
	s := domain.ObservedState{
		Address:     r.Address,
		Name:        nullToString(r.Name),
		MAC:         nullToString(r.MAC),
		Vendor:      nullToString(r.Vendor),
		Status:      domain.Status(r.Status),
		LastChecked: r.LastChecked.UTC(),
		LastUp:      nullToTimePtr(r.LastUp),
	}
	if s.MAC == "" {
		s.MAC = domain.NoMAC
	}
	return s
}

const liveColumns = `ip, hostname, mac_address, vendor, status, last_checked, last_up`

// ============================================================================
// History Row Scanner
// ============================================================================

// historyRow holds all columns from a history query for scanning
type historyRow struct {
	ID       int64
	RunID    sql.NullString
	Address  string
	Name     sql.NullString
	MAC      sql.NullString
	Vendor   sql.NullString
	Status   string
	ScanTime time.Time
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match historyColumns order exactly:
// id, run_id, ip, hostname, mac_address, vendor, status, scan_time
func (r *historyRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,       // 1
		&r.RunID,    // 2
		&r.Address,  // 3
		&r.Name,     // 4
		&r.MAC,      // 5
		&r.Vendor,   // 6
		&r.Status,   // 7
		&r.ScanTime, // 8
	}
}

// toDomain converts the scanned row to a domain.ObservationRecord
func (r *historyRow) toDomain() domain.ObservationRecord {
	return domain.ObservationRecord{
		ID:       r.ID,
		RunID:    nullToString(r.RunID),
		Address:  r.Address,
		Name:     nullToString(r.Name),
		MAC:      nullToString(r.MAC),
		Vendor:   nullToString(r.Vendor),
		Status:   domain.Status(r.Status),
		ScanTime: r.ScanTime.UTC(),
	}
}

const historyColumns = `id, run_id, ip, hostname, mac_address, vendor, status, scan_time`

// ============================================================================
// Range and Assignment Row Scanners
// ============================================================================

type rangeRow struct {
	ID     int64
	CIDR   string
	Active sql.NullInt64
}

// MUST match rangeColumns order: id, cidr, active
func (r *rangeRow) scanArgs() []interface{} {
	return []interface{}{&r.ID, &r.CIDR, &r.Active}
}

func (r *rangeRow) toDomain() domain.AddressRange {
	return domain.AddressRange{ID: r.ID, CIDR: r.CIDR, Active: nullToBool(r.Active)}
}

const rangeColumns = `id, cidr, active`

type assignmentRow struct {
	Address   string
	OwnerType string
	OwnerName string
	UpdatedAt time.Time
}

// MUST match assignmentColumns order: ip_address, owner_type, owner_name, updated_at
func (r *assignmentRow) scanArgs() []interface{} {
	return []interface{}{&r.Address, &r.OwnerType, &r.OwnerName, &r.UpdatedAt}
}

func (r *assignmentRow) toDomain() domain.OwnershipAssignment {
	return domain.OwnershipAssignment{
		Address:   r.Address,
		OwnerType: domain.OwnerType(r.OwnerType),
		OwnerName: r.OwnerName,
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const assignmentColumns = `ip_address, owner_type, owner_name, updated_at`

func sortStates(states []domain.ObservedState) {
	sort.SliceStable(states, func(i, j int) bool {
		return domain.AddressLess(states[i].Address, states[j].Address)
	})
}

func sortAssignments(assignments []domain.OwnershipAssignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		return domain.AddressLess(assignments[i].Address, assignments[j].Address)
	})
}
