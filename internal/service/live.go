package service

import (
	"context"
	"fmt"
	"net/netip"

	"ipscope/internal/domain"
	"ipscope/internal/repository"
)

// LiveService exposes the reconciled state and history for reporting
type LiveService struct {
	store repository.Repository
}

// NewLiveService creates a new live service
func NewLiveService(store repository.Repository) *LiveService {
	return &LiveService{store: store}
}

// ListLive returns the current state of every known address
func (s *LiveService) ListLive(ctx context.Context) ([]domain.ObservedState, error) {
	return s.store.ListLiveStates(ctx)
}

// GetLive returns the current state of one address
func (s *LiveService) GetLive(ctx context.Context, addr string) (*domain.ObservedState, error) {
	if _, err := netip.ParseAddr(addr); err != nil {
		return nil, fmt.Errorf("%w: invalid address %q", domain.ErrInvalidArgument, addr)
	}
	return s.store.GetLiveState(ctx, addr)
}

// ListHistory returns a page of history records, newest first
func (s *LiveService) ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.ObservationRecord, error) {
	if filter.Address != "" {
		if _, err := netip.ParseAddr(filter.Address); err != nil {
			return nil, fmt.Errorf("%w: invalid address %q", domain.ErrInvalidArgument, filter.Address)
		}
	}
	if filter.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", domain.ErrInvalidArgument)
	}
	filter.Limit = repository.ClampLimit(filter.Limit)
	return s.store.ListHistory(ctx, filter)
}

// GetHistory returns one history record
func (s *LiveService) GetHistory(ctx context.Context, id int64) (*domain.ObservationRecord, error) {
	return s.store.GetHistory(ctx, id)
}

// RangeMap lays out every host address of an active range with its owner.
// Assigned addresses are taken; unassigned addresses whose current state is Up
// are labelled as network hosts. Unknown or inactive ranges are ErrNotFound.
func (s *LiveService) RangeMap(ctx context.Context, cidr string) ([]domain.MapSlot, error) {
	normalized, err := domain.NormalizeRange(cidr)
	if err != nil {
		return nil, err
	}

	ranges, err := s.store.ListRanges(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for _, r := range ranges {
		if r.Active && r.CIDR == normalized {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: no active range %s", domain.ErrNotFound, normalized)
	}

	addrs, err := domain.ExpandRange(normalized)
	if err != nil {
		return nil, err
	}

	assignments, err := s.store.ListAssignments(ctx)
	if err != nil {
		return nil, err
	}
	owners := make(map[string]domain.OwnershipAssignment, len(assignments))
	for _, a := range assignments {
		owners[a.Address] = a
	}

	states, err := s.store.ListLiveStates(ctx)
	if err != nil {
		return nil, err
	}
	up := make(map[string]bool)
	for _, st := range states {
		if st.Status == domain.StatusUp {
			up[st.Address] = true
		}
	}

	slots := make([]domain.MapSlot, 0, len(addrs))
	for _, addr := range addrs {
		slot := domain.MapSlot{Address: addr, Short: domain.ShortAddress(addr)}
		if a, ok := owners[addr]; ok {
			slot.Taken = true
			slot.Kind = a.OwnerType.Kind()
			slot.Name = a.OwnerName
		} else if up[addr] {
			slot.Kind = domain.KindNetwork
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
