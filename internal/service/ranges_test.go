package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipscope/internal/domain"
	"ipscope/internal/logger"
	"ipscope/internal/repository/sqlite"
)

func newTestRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRangeService_CreateNormalizes(t *testing.T) {
	svc := NewRangeService(newTestRepo(t), NewEventBus(), logger.NewTestLogger())
	ctx := context.Background()

	rng, err := svc.Create(ctx, " 192.168.1.77/24 ", true)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.0/24", rng.CIDR)
	assert.NotZero(t, rng.ID)

	_, err = svc.Create(ctx, "192.168.1.0/24", false)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestRangeService_CreateRejectsInvalid(t *testing.T) {
	svc := NewRangeService(newTestRepo(t), nil, logger.NewTestLogger())

	for _, cidr := range []string{"999.1.1.0/24", "10.0.0.0/8", ""} {
		_, err := svc.Create(context.Background(), cidr, true)
		assert.ErrorIs(t, err, domain.ErrInvalidRangeFormat, cidr)
	}
}

func TestRangeService_UpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewRangeService(repo, nil, logger.NewTestLogger())
	ctx := context.Background()

	rng, err := svc.Create(ctx, "10.0.0.0/24", true)
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(ctx, rng.ID, RangeUpdate{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, "10.0.0.0/24", updated.CIDR)

	active, err := repo.ListActiveRanges(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	bad := "nope"
	_, err = svc.Update(ctx, rng.ID, RangeUpdate{CIDR: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidRangeFormat)

	_, err = svc.Update(ctx, 999, RangeUpdate{Active: &inactive})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, rng.ID))
	assert.ErrorIs(t, svc.Delete(ctx, rng.ID), domain.ErrNotFound)
}

func TestRangeService_Seed(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewRangeService(repo, nil, logger.NewTestLogger())
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx, []string{"10.0.0.0/24", "garbage", "10.0.0.5/24", "10.0.1.0/24"}))
	require.NoError(t, svc.Seed(ctx, []string{"10.0.0.0/24"}))

	active, err := repo.ListActiveRanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/24", "10.0.1.0/24"}, active)
}

func TestLiveService_Validation(t *testing.T) {
	svc := NewLiveService(newTestRepo(t))
	ctx := context.Background()

	_, err := svc.ListHistory(ctx, domain.HistoryFilter{Address: "not-an-ip"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.ListHistory(ctx, domain.HistoryFilter{Offset: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.GetLive(ctx, "10.0.0.300")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.GetLive(ctx, "10.0.0.3")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	records, err := svc.ListHistory(ctx, domain.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}
