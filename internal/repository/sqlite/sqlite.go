package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ipscope/internal/domain"
	"ipscope/internal/repository"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository. Use ":memory:" for an ephemeral database.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func dsn(dbPath string) string {
	params := "_pragma=busy_timeout(5000)&_time_format=sqlite"
	if dbPath == ":memory:" {
		return "file::memory:?" + params
	}
	return "file:" + dbPath + "?" + params + "&_pragma=journal_mode(WAL)"
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS live_monitor (
		ip TEXT PRIMARY KEY,
		hostname TEXT NOT NULL DEFAULT 'Unknown',
		mac_address TEXT NOT NULL DEFAULT 'N/A',
		vendor TEXT NOT NULL DEFAULT 'Unknown',
		status TEXT NOT NULL,
		last_checked DATETIME NOT NULL,
		last_up DATETIME
	);

	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ip TEXT NOT NULL,
		hostname TEXT,
		mac_address TEXT,
		vendor TEXT,
		status TEXT NOT NULL,
		scan_time DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ip_ranges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cidr TEXT NOT NULL UNIQUE,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS ip_assignments (
		ip_address TEXT PRIMARY KEY,
		owner_type TEXT NOT NULL,
		owner_name TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_scan_time ON history(scan_time);
	CREATE INDEX IF NOT EXISTS idx_history_ip ON history(ip);
	`

	if _, err := r.db.Exec(schema); err != nil {
		return err
	}

	// Databases created before run tracking lack run_id
	if err := r.addColumnIfNotExists("history", "run_id", "TEXT"); err != nil {
		return err
	}
	_, err := r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_run ON history(run_id)`)
	return err
}

// addColumnIfNotExists adds a column unless PRAGMA table_info already lists it
func (r *Repository) addColumnIfNotExists(table, column, decl string) error {
	rows, err := r.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("failed to scan table info: %w", err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	if _, err := r.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)); err != nil {
		return fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}
	return nil
}

// ============================================================================
// Live state and history
// ============================================================================

// ReconcileRange writes the current state and one history record per observation
// inside a single transaction
func (r *Repository) ReconcileRange(ctx context.Context, runID string, scanTime time.Time, observations map[string]domain.Observation) error {
	scanTime = scanTime.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	liveStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO live_monitor (ip, hostname, mac_address, vendor, status, last_checked, last_up)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ip) DO UPDATE SET
			hostname = excluded.hostname,
			mac_address = excluded.mac_address,
			vendor = excluded.vendor,
			status = excluded.status,
			last_checked = excluded.last_checked,
			last_up = COALESCE(excluded.last_up, live_monitor.last_up)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare live statement: %w", err)
	}
	defer liveStmt.Close()

	histStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO history (run_id, ip, hostname, mac_address, vendor, status, scan_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare history statement: %w", err)
	}
	defer histStmt.Close()

	for _, addr := range domain.SortedAddresses(observations) {
		obs := observations[addr]
		state := obs.ToState(scanTime)
		if _, err := liveStmt.ExecContext(ctx,
			state.Address, state.Name, state.MAC, state.Vendor, string(state.Status),
			state.LastChecked, timePtrToNull(state.LastUp),
		); err != nil {
			return fmt.Errorf("failed to upsert live state for %s: %w", addr, err)
		}

		rec := obs.ToRecord(runID, scanTime)
		if _, err := histStmt.ExecContext(ctx,
			stringToNull(rec.RunID), rec.Address, rec.Name, rec.MAC, rec.Vendor, string(rec.Status), rec.ScanTime,
		); err != nil {
			return fmt.Errorf("failed to insert history for %s: %w", addr, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PruneHistory deletes history older than cutoff
func (r *Repository) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM history WHERE scan_time < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

// ListLiveStates returns every current-state row
func (r *Repository) ListLiveStates(ctx context.Context) ([]domain.ObservedState, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+liveColumns+` FROM live_monitor`)
	if err != nil {
		return nil, fmt.Errorf("failed to query live states: %w", err)
	}
	defer rows.Close()

	states := make([]domain.ObservedState, 0)
	for rows.Next() {
		var row liveRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan live state: %w", err)
		}
		states = append(states, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating live states: %w", err)
	}

	sortStates(states)
	return states, nil
}

// GetLiveState returns the current state of one address
func (r *Repository) GetLiveState(ctx context.Context, addr string) (*domain.ObservedState, error) {
	var row liveRow
	err := r.db.QueryRowContext(ctx, `SELECT `+liveColumns+` FROM live_monitor WHERE ip = ?`, addr).
		Scan(row.scanArgs()...)
	if err != nil {
		return nil, fmt.Errorf("live state %s: %w", addr, notFound(err))
	}
	s := row.toDomain()
	return &s, nil
}

// ListHistory returns history records newest first
func (r *Repository) ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.ObservationRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Address != "" {
		where = append(where, "ip = ?")
		args = append(args, filter.Address)
	}
	if filter.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, filter.RunID)
	}

	query := `SELECT ` + historyColumns + ` FROM history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scan_time DESC, id DESC LIMIT ? OFFSET ?"

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, repository.ClampLimit(filter.Limit), offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ObservationRecord, 0)
	for rows.Next() {
		var row historyRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		records = append(records, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return records, nil
}

// GetHistory returns one history record
func (r *Repository) GetHistory(ctx context.Context, id int64) (*domain.ObservationRecord, error) {
	var row historyRow
	err := r.db.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM history WHERE id = ?`, id).
		Scan(row.scanArgs()...)
	if err != nil {
		return nil, fmt.Errorf("history %d: %w", id, notFound(err))
	}
	rec := row.toDomain()
	return &rec, nil
}

// ============================================================================
// Ranges
// ============================================================================

// ListRanges returns all configured ranges
func (r *Repository) ListRanges(ctx context.Context) ([]domain.AddressRange, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+rangeColumns+` FROM ip_ranges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranges: %w", err)
	}
	defer rows.Close()

	ranges := make([]domain.AddressRange, 0)
	for rows.Next() {
		var row rangeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan range: %w", err)
		}
		ranges = append(ranges, row.toDomain())
	}
	return ranges, rows.Err()
}

// ListActiveRanges returns the CIDRs of active ranges in creation order
func (r *Repository) ListActiveRanges(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT cidr FROM ip_ranges WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active ranges: %w", err)
	}
	defer rows.Close()

	var cidrs []string
	for rows.Next() {
		var cidr string
		if err := rows.Scan(&cidr); err != nil {
			return nil, fmt.Errorf("failed to scan range: %w", err)
		}
		cidrs = append(cidrs, cidr)
	}
	return cidrs, rows.Err()
}

// GetRange returns one range by id
func (r *Repository) GetRange(ctx context.Context, id int64) (*domain.AddressRange, error) {
	var row rangeRow
	err := r.db.QueryRowContext(ctx, `SELECT `+rangeColumns+` FROM ip_ranges WHERE id = ?`, id).
		Scan(row.scanArgs()...)
	if err != nil {
		return nil, fmt.Errorf("range %d: %w", id, notFound(err))
	}
	rng := row.toDomain()
	return &rng, nil
}

// CreateRange inserts a range and sets its ID
func (r *Repository) CreateRange(ctx context.Context, rng *domain.AddressRange) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ip_ranges (cidr, active) VALUES (?, ?)`, rng.CIDR, boolToInt(rng.Active))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("range %s: %w", rng.CIDR, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert range: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read range id: %w", err)
	}
	rng.ID = id
	return nil
}

// UpdateRange replaces the CIDR and active flag of an existing range
func (r *Repository) UpdateRange(ctx context.Context, rng *domain.AddressRange) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ip_ranges SET cidr = ?, active = ? WHERE id = ?`, rng.CIDR, boolToInt(rng.Active), rng.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("range %s: %w", rng.CIDR, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update range: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("range %d", rng.ID))
}

// DeleteRange removes a range
func (r *Repository) DeleteRange(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ip_ranges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete range: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("range %d", id))
}

// ============================================================================
// Assignments
// ============================================================================

// GetAssignment returns the owner of addr
func (r *Repository) GetAssignment(ctx context.Context, addr string) (*domain.OwnershipAssignment, error) {
	var row assignmentRow
	err := r.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM ip_assignments WHERE ip_address = ?`, addr).
		Scan(row.scanArgs()...)
	if err != nil {
		return nil, fmt.Errorf("assignment %s: %w", addr, notFound(err))
	}
	a := row.toDomain()
	return &a, nil
}

// ListAssignments returns every assignment
func (r *Repository) ListAssignments(ctx context.Context) ([]domain.OwnershipAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+assignmentColumns+` FROM ip_assignments`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]domain.OwnershipAssignment, 0)
	for rows.Next() {
		var row assignmentRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortAssignments(assignments)
	return assignments, nil
}

// UpsertAssignment creates or replaces the assignment for an address
func (r *Repository) UpsertAssignment(ctx context.Context, a domain.OwnershipAssignment) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ip_assignments (ip_address, owner_type, owner_name, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ip_address) DO UPDATE SET
			owner_type = excluded.owner_type,
			owner_name = excluded.owner_name,
			updated_at = excluded.updated_at
	`, a.Address, string(a.OwnerType), a.OwnerName, a.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}
	return nil
}

// DeleteAssignment removes the assignment for addr
func (r *Repository) DeleteAssignment(ctx context.Context, addr string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ip_assignments WHERE ip_address = ?`, addr)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return requireAffected(res, "assignment "+addr)
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
