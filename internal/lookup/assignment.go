package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/projectdiscovery/gcache"

	"ipscope/internal/domain"
	"ipscope/internal/logger"
)

// AssignmentStore is the persistence needed by AssignmentService
type AssignmentStore interface {
	GetAssignment(ctx context.Context, addr string) (*domain.OwnershipAssignment, error)
	ListAssignments(ctx context.Context) ([]domain.OwnershipAssignment, error)
	UpsertAssignment(ctx context.Context, a domain.OwnershipAssignment) error
	DeleteAssignment(ctx context.Context, addr string) error
}

// OwnerLookup resolves the owner display name assigned to an address
type OwnerLookup interface {
	OwnerName(ctx context.Context, addr string) (string, bool)
}

// AssignmentService fronts the assignment store with a bounded LRU.
// Misses are cached too, so an unassigned address costs one query per TTL.
type AssignmentService struct {
	store AssignmentStore
	cache gcache.Cache[string, string]
	log   logger.Logger
}

// NewAssignmentService creates an AssignmentService
func NewAssignmentService(store AssignmentStore, size int, ttl time.Duration, log logger.Logger) *AssignmentService {
	if size <= 0 {
		size = 1024
	}
	builder := gcache.New[string, string](size).LRU()
	if ttl > 0 {
		builder = builder.Expiration(ttl)
	}
	return &AssignmentService{
		store: store,
		cache: builder.Build(),
		log:   log.WithComponent("assignments"),
	}
}

// OwnerName implements OwnerLookup. Store errors are logged and treated as no assignment.
func (s *AssignmentService) OwnerName(ctx context.Context, addr string) (string, bool) {
	if name, err := s.cache.Get(addr); err == nil {
		return name, name != ""
	}

	a, err := s.store.GetAssignment(ctx, addr)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		_ = s.cache.Set(addr, "")
		return "", false
	case err != nil:
		s.log.Warn().Err(err).Str("ip", addr).Msg("Assignment lookup failed")
		return "", false
	}

	name := strings.TrimSpace(a.OwnerName)
	_ = s.cache.Set(addr, name)
	return name, name != ""
}

// List returns all assignments
func (s *AssignmentService) List(ctx context.Context) ([]domain.OwnershipAssignment, error) {
	return s.store.ListAssignments(ctx)
}

// Assign creates or replaces the assignment for an address
func (s *AssignmentService) Assign(ctx context.Context, a domain.OwnershipAssignment) error {
	addr, err := netip.ParseAddr(a.Address)
	if err != nil {
		return fmt.Errorf("%w: invalid address %q", domain.ErrInvalidArgument, a.Address)
	}
	a.Address = addr.Unmap().String()
	if !a.OwnerType.Valid() {
		return fmt.Errorf("%w: invalid owner type %q", domain.ErrInvalidArgument, a.OwnerType)
	}
	if strings.TrimSpace(a.OwnerName) == "" {
		return fmt.Errorf("%w: owner name is required", domain.ErrInvalidArgument)
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}

	if err := s.store.UpsertAssignment(ctx, a); err != nil {
		return err
	}
	s.cache.Remove(a.Address)
	return nil
}

// Unassign removes the assignment for an address
func (s *AssignmentService) Unassign(ctx context.Context, addr string) error {
	if err := s.store.DeleteAssignment(ctx, addr); err != nil {
		return err
	}
	s.cache.Remove(addr)
	return nil
}
