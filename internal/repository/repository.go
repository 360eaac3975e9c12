package repository

import (
	"context"
	"time"

	"ipscope/internal/domain"
)

// LiveStore persists the reconciled current state and the observation history
type LiveStore interface {
	// ReconcileRange upserts one current-state row and appends one history row per
	// observation, atomically. Either every row of the range is written or none is.
	ReconcileRange(ctx context.Context, runID string, scanTime time.Time, observations map[string]domain.Observation) error

	// PruneHistory deletes history rows with a scan time strictly before cutoff
	PruneHistory(ctx context.Context, cutoff time.Time) (int64, error)

	ListLiveStates(ctx context.Context) ([]domain.ObservedState, error)
	GetLiveState(ctx context.Context, addr string) (*domain.ObservedState, error)
	ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.ObservationRecord, error)
	GetHistory(ctx context.Context, id int64) (*domain.ObservationRecord, error)
}

// RangeStore persists configured CIDR ranges
type RangeStore interface {
	ListRanges(ctx context.Context) ([]domain.AddressRange, error)
	ListActiveRanges(ctx context.Context) ([]string, error)
	GetRange(ctx context.Context, id int64) (*domain.AddressRange, error)
	CreateRange(ctx context.Context, r *domain.AddressRange) error
	UpdateRange(ctx context.Context, r *domain.AddressRange) error
	DeleteRange(ctx context.Context, id int64) error
}

// AssignmentStore persists address ownership
type AssignmentStore interface {
	GetAssignment(ctx context.Context, addr string) (*domain.OwnershipAssignment, error)
	ListAssignments(ctx context.Context) ([]domain.OwnershipAssignment, error)
	UpsertAssignment(ctx context.Context, a domain.OwnershipAssignment) error
	DeleteAssignment(ctx context.Context, addr string) error
}

// Repository is the complete data access surface
type Repository interface {
	LiveStore
	RangeStore
	AssignmentStore

	// Close releases resources
	Close() error
}

// DefaultHistoryLimit applies when a history filter does not set one
const DefaultHistoryLimit = 100

// MaxHistoryLimit caps a single history page
const MaxHistoryLimit = 1000

// ClampLimit returns a page size within [1, MaxHistoryLimit]
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}
