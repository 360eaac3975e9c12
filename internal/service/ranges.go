package service

import (
	"context"
	"fmt"

	"ipscope/internal/domain"
	"ipscope/internal/logger"
	"ipscope/internal/repository"
)

// RangeService manages the configured CIDR ranges
type RangeService struct {
	store    repository.RangeStore
	eventBus *EventBus
	log      logger.Logger
}

// NewRangeService creates a new range service
func NewRangeService(store repository.RangeStore, eventBus *EventBus, log logger.Logger) *RangeService {
	return &RangeService{
		store:    store,
		eventBus: eventBus,
		log:      log.WithComponent("ranges"),
	}
}

// List returns all ranges
func (s *RangeService) List(ctx context.Context) ([]domain.AddressRange, error) {
	return s.store.ListRanges(ctx)
}

// Create validates, normalizes and stores a new range
func (s *RangeService) Create(ctx context.Context, cidr string, active bool) (*domain.AddressRange, error) {
	norm, err := domain.NormalizeRange(cidr)
	if err != nil {
		return nil, err
	}

	rng := &domain.AddressRange{CIDR: norm, Active: active}
	if err := s.store.CreateRange(ctx, rng); err != nil {
		return nil, err
	}

	s.log.Info().Int64("id", rng.ID).Str("cidr", rng.CIDR).Bool("active", active).Msg("Range created")
	s.publish(EventRangeCreated, rng)
	return rng, nil
}

// RangeUpdate carries the optional fields of an update
type RangeUpdate struct {
	CIDR   *string `json:"cidr,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// Update applies the non-nil fields of upd to range id
func (s *RangeService) Update(ctx context.Context, id int64, upd RangeUpdate) (*domain.AddressRange, error) {
	rng, err := s.store.GetRange(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.CIDR != nil {
		norm, err := domain.NormalizeRange(*upd.CIDR)
		if err != nil {
			return nil, err
		}
		rng.CIDR = norm
	}
	if upd.Active != nil {
		rng.Active = *upd.Active
	}

	if err := s.store.UpdateRange(ctx, rng); err != nil {
		return nil, err
	}

	s.publish(EventRangeUpdated, rng)
	return rng, nil
}

// Delete removes range id
func (s *RangeService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteRange(ctx, id); err != nil {
		return err
	}
	s.publish(EventRangeDeleted, map[string]int64{"id": id})
	return nil
}

// Seed creates any of cidrs not yet stored, as active ranges. Invalid entries
// are logged and skipped.
func (s *RangeService) Seed(ctx context.Context, cidrs []string) error {
	if len(cidrs) == 0 {
		return nil
	}

	existing, err := s.store.ListRanges(ctx)
	if err != nil {
		return fmt.Errorf("failed to list ranges: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, r := range existing {
		have[r.CIDR] = true
	}

	for _, cidr := range cidrs {
		norm, err := domain.NormalizeRange(cidr)
		if err != nil {
			s.log.Warn().Err(err).Str("cidr", cidr).Msg("Skipping invalid configured range")
			continue
		}
		if have[norm] {
			continue
		}
		if err := s.store.CreateRange(ctx, &domain.AddressRange{CIDR: norm, Active: true}); err != nil {
			return fmt.Errorf("failed to seed range %s: %w", norm, err)
		}
		have[norm] = true
		s.log.Info().Str("cidr", norm).Msg("Seeded range from configuration")
	}
	return nil
}

func (s *RangeService) publish(eventType EventType, payload interface{}) {
	if s.eventBus != nil {
		s.eventBus.Publish(Event{Type: eventType, Payload: payload})
	}
}
