package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ipscope/internal/domain"
	"ipscope/internal/logger"
	"ipscope/internal/repository"
)

const uniqueViolation = "23505"

// Repository implements repository.Repository on PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

var _ repository.Repository = (*Repository)(nil)

// New connects to dsn and creates the schema
func New(ctx context.Context, dsn string, log logger.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to initialize pool: %w", err)
	}

	repo := &Repository{pool: pool, log: log.WithComponent("postgres")}
	if err := repo.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to migrate database: %w", err)
	}

	repo.log.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Uint16("port", poolConfig.ConnConfig.Port).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Connected to PostgreSQL")

	return repo, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS live_monitor (
		ip TEXT PRIMARY KEY,
		hostname TEXT NOT NULL DEFAULT 'Unknown',
		mac_address TEXT NOT NULL DEFAULT 'N/A',
		vendor TEXT NOT NULL DEFAULT 'Unknown',
		status TEXT NOT NULL,
		last_checked TIMESTAMPTZ NOT NULL,
		last_up TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS history (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT,
		ip TEXT NOT NULL,
		hostname TEXT,
		mac_address TEXT,
		vendor TEXT,
		status TEXT NOT NULL,
		scan_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ip_ranges (
		id BIGSERIAL PRIMARY KEY,
		cidr TEXT NOT NULL UNIQUE,
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS ip_assignments (
		ip_address TEXT PRIMARY KEY,
		owner_type TEXT NOT NULL,
		owner_name TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`ALTER TABLE history ADD COLUMN IF NOT EXISTS run_id TEXT`,
	`CREATE INDEX IF NOT EXISTS idx_history_scan_time ON history(scan_time)`,
	`CREATE INDEX IF NOT EXISTS idx_history_ip ON history(ip)`,
	`CREATE INDEX IF NOT EXISTS idx_history_run ON history(run_id)`,
}

func (r *Repository) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const upsertLive = `
	INSERT INTO live_monitor (ip, hostname, mac_address, vendor, status, last_checked, last_up)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (ip) DO UPDATE SET
		hostname = EXCLUDED.hostname,
		mac_address = EXCLUDED.mac_address,
		vendor = EXCLUDED.vendor,
		status = EXCLUDED.status,
		last_checked = EXCLUDED.last_checked,
		last_up = COALESCE(EXCLUDED.last_up, live_monitor.last_up)`

const insertHistory = `
	INSERT INTO history (run_id, ip, hostname, mac_address, vendor, status, scan_time)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// reconcileBatch queues the upsert and history insert for every observation
func reconcileBatch(runID string, scanTime time.Time, observations map[string]domain.Observation) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, addr := range domain.SortedAddresses(observations) {
		obs := observations[addr]
		state := obs.ToState(scanTime)
		batch.Queue(upsertLive,
			state.Address, state.Name, state.MAC, state.Vendor, string(state.Status), state.LastChecked, state.LastUp)

		rec := obs.ToRecord(runID, scanTime)
		var run *string
		if rec.RunID != "" {
			run = &rec.RunID
		}
		batch.Queue(insertHistory,
			run, rec.Address, rec.Name, rec.MAC, rec.Vendor, string(rec.Status), rec.ScanTime)
	}
	return batch
}

// ReconcileRange writes the range as one batch inside one transaction
func (r *Repository) ReconcileRange(ctx context.Context, runID string, scanTime time.Time, observations map[string]domain.Observation) error {
	batch := reconcileBatch(runID, scanTime.UTC(), observations)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return sendBatchExecAll(ctx, batch, tx.SendBatch, "reconcile")
	})
}

// PruneHistory deletes history older than cutoff
func (r *Repository) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM history WHERE scan_time < $1`, cutoff.UTC())
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}

const liveColumns = `ip, hostname, mac_address, vendor, status, last_checked, last_up`

func scanLive(row pgx.CollectableRow) (domain.ObservedState, error) {
	var (
		s      domain.ObservedState
		status string
	)
	err := row.Scan(&s.Address, &s.Name, &s.MAC, &s.Vendor, &status, &s.LastChecked, &s.LastUp)
	s.Status = domain.Status(status)
	s.LastChecked = s.LastChecked.UTC()
	if s.LastUp != nil {
		t := s.LastUp.UTC()
		s.LastUp = &t
	}
	return s, err
}

// ListLiveStates returns every current-state row
func (r *Repository) ListLiveStates(ctx context.Context) ([]domain.ObservedState, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+liveColumns+` FROM live_monitor`)
	if err != nil {
		return nil, fmt.Errorf("failed to query live states: %w", err)
	}
	states, err := pgx.CollectRows(rows, scanLive)
	if err != nil {
		return nil, fmt.Errorf("failed to scan live states: %w", err)
	}
	sort.SliceStable(states, func(i, j int) bool {
		return domain.AddressLess(states[i].Address, states[j].Address)
	})
	return states, nil
}

// GetLiveState returns the current state of one address
func (r *Repository) GetLiveState(ctx context.Context, addr string) (*domain.ObservedState, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+liveColumns+` FROM live_monitor WHERE ip = $1`, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to query live state: %w", err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanLive)
	if err != nil {
		return nil, fmt.Errorf("live state %s: %w", addr, notFound(err))
	}
	return &s, nil
}

const historyColumns = `id, run_id, ip, hostname, mac_address, vendor, status, scan_time`

func scanHistory(row pgx.CollectableRow) (domain.ObservationRecord, error) {
	var (
		rec                  domain.ObservationRecord
		runID, name, mac, vd *string
		status               string
	)
	err := row.Scan(&rec.ID, &runID, &rec.Address, &name, &mac, &vd, &status, &rec.ScanTime)
	rec.RunID = deref(runID)
	rec.Name = deref(name)
	rec.MAC = deref(mac)
	rec.Vendor = deref(vd)
	rec.Status = domain.Status(status)
	rec.ScanTime = rec.ScanTime.UTC()
	return rec, err
}

// historyQuery builds the filtered, paged history SELECT
func historyQuery(filter domain.HistoryFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Address != "" {
		args = append(args, filter.Address)
		where = append(where, fmt.Sprintf("ip = $%d", len(args)))
	}
	if filter.RunID != "" {
		args = append(args, filter.RunID)
		where = append(where, fmt.Sprintf("run_id = $%d", len(args)))
	}

	query := `SELECT ` + historyColumns + ` FROM history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, repository.ClampLimit(filter.Limit), offset)
	query += fmt.Sprintf(" ORDER BY scan_time DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return query, args
}

// ListHistory returns history records newest first
func (r *Repository) ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.ObservationRecord, error) {
	query, args := historyQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	records, err := pgx.CollectRows(rows, scanHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}
	return records, nil
}

// GetHistory returns one history record
func (r *Repository) GetHistory(ctx context.Context, id int64) (*domain.ObservationRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+historyColumns+` FROM history WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanHistory)
	if err != nil {
		return nil, fmt.Errorf("history %d: %w", id, notFound(err))
	}
	return &rec, nil
}

func scanRange(row pgx.CollectableRow) (domain.AddressRange, error) {
	var rng domain.AddressRange
	err := row.Scan(&rng.ID, &rng.CIDR, &rng.Active)
	return rng, err
}

// ListRanges returns all configured ranges
func (r *Repository) ListRanges(ctx context.Context) ([]domain.AddressRange, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, cidr, active FROM ip_ranges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranges: %w", err)
	}
	return pgx.CollectRows(rows, scanRange)
}

// ListActiveRanges returns the CIDRs of active ranges in creation order
func (r *Repository) ListActiveRanges(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT cidr FROM ip_ranges WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active ranges: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// GetRange returns one range by id
func (r *Repository) GetRange(ctx context.Context, id int64) (*domain.AddressRange, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, cidr, active FROM ip_ranges WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query range: %w", err)
	}
	rng, err := pgx.CollectExactlyOneRow(rows, scanRange)
	if err != nil {
		return nil, fmt.Errorf("range %d: %w", id, notFound(err))
	}
	return &rng, nil
}

// CreateRange inserts a range and sets its ID
func (r *Repository) CreateRange(ctx context.Context, rng *domain.AddressRange) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO ip_ranges (cidr, active) VALUES ($1, $2) RETURNING id`, rng.CIDR, rng.Active).
		Scan(&rng.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("range %s: %w", rng.CIDR, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert range: %w", err)
	}
	return nil
}

// UpdateRange replaces the CIDR and active flag of an existing range
func (r *Repository) UpdateRange(ctx context.Context, rng *domain.AddressRange) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ip_ranges SET cidr = $1, active = $2 WHERE id = $3`, rng.CIDR, rng.Active, rng.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("range %s: %w", rng.CIDR, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update range: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("range %d: %w", rng.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteRange removes a range
func (r *Repository) DeleteRange(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ip_ranges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete range: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("range %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanAssignment(row pgx.CollectableRow) (domain.OwnershipAssignment, error) {
	var (
		a         domain.OwnershipAssignment
		ownerType string
	)
	err := row.Scan(&a.Address, &ownerType, &a.OwnerName, &a.UpdatedAt)
	a.OwnerType = domain.OwnerType(ownerType)
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, err
}

const assignmentColumns = `ip_address, owner_type, owner_name, updated_at`

// GetAssignment returns the owner of addr
func (r *Repository) GetAssignment(ctx context.Context, addr string) (*domain.OwnershipAssignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assignmentColumns+` FROM ip_assignments WHERE ip_address = $1`, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment: %w", err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAssignment)
	if err != nil {
		return nil, fmt.Errorf("assignment %s: %w", addr, notFound(err))
	}
	return &a, nil
}

// ListAssignments returns every assignment
func (r *Repository) ListAssignments(ctx context.Context) ([]domain.OwnershipAssignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assignmentColumns+` FROM ip_assignments`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanAssignment)
	if err != nil {
		return nil, fmt.Errorf("failed to scan assignments: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return domain.AddressLess(list[i].Address, list[j].Address)
	})
	return list, nil
}

// UpsertAssignment creates or replaces the assignment for an address
func (r *Repository) UpsertAssignment(ctx context.Context, a domain.OwnershipAssignment) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ip_assignments (ip_address, owner_type, owner_name, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ip_address) DO UPDATE SET
			owner_type = EXCLUDED.owner_type,
			owner_name = EXCLUDED.owner_name,
			updated_at = EXCLUDED.updated_at
	`, a.Address, string(a.OwnerType), a.OwnerName, a.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}
	return nil
}

// DeleteAssignment removes the assignment for addr
func (r *Repository) DeleteAssignment(ctx context.Context, addr string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ip_assignments WHERE ip_address = $1`, addr)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assignment %s: %w", addr, domain.ErrNotFound)
	}
	return nil
}

// Close releases the pool
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
