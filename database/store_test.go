package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"realtime-scoring-backend/apperror"
	"realtime-scoring-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPoll(id, creator string) *models.Poll {
	return &models.Poll{
		ID:        id,
		Question:  "Lunch?",
		Options:   []models.Option{{ID: "opt_0", Name: "Tacos"}, {ID: "opt_1", Name: "Ramen"}},
		Criteria:  []models.Criterion{models.DefaultCriterion},
		CreatorID: creator,
		CreatedAt: time.Now().UTC(),
	}
}

func admitAll(usage models.UsageStatus) (models.UsageStatus, error) {
	usage.LastCreationDate = "2026-03-01"
	usage.CountToday++
	return usage, nil
}

func TestStore_CreateAndGetPoll(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()

	usage, err := store.CreatePollWithQuota(ctx, newPoll("p1", "alice"), admitAll)
	require.NoError(t, err)
	assert.Equal(t, "alice", usage.UserID)
	assert.Equal(t, models.TierFree, usage.Tier)
	assert.Equal(t, 1, usage.CountToday)
	assert.Equal(t, int64(2), usage.Version)

	poll, err := store.GetPoll(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Lunch?", poll.Question)
	assert.Equal(t, int64(1), poll.Version)
	assert.Len(t, poll.Options, 2)
	assert.Equal(t, "Ramen", poll.Options[1].Name)
	assert.Equal(t, models.StateActive, poll.State())
	assert.Empty(t, poll.VoteMap())
}

func TestStore_GetPollNotFound(t *testing.T) {
	store := NewStore(NewTestDB(t))

	_, err := store.GetPoll(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrPollNotFound)
}

func TestStore_CreateRejectedLeavesNothing(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()
	denied := errors.New("denied")

	_, err := store.CreatePollWithQuota(ctx, newPoll("p1", "alice"), func(models.UsageStatus) (models.UsageStatus, error) {
		return models.UsageStatus{}, denied
	})
	assert.ErrorIs(t, err, denied)

	_, err = store.GetPoll(ctx, "p1")
	assert.ErrorIs(t, err, apperror.ErrPollNotFound)

	usage, err := store.GetUsage(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, usage.CountToday)
	assert.Empty(t, usage.LastCreationDate)
}

func TestStore_UpdateVotesCompareAndSwap(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()
	_, err := store.CreatePollWithQuota(ctx, newPoll("p1", "alice"), admitAll)
	require.NoError(t, err)

	votes := models.VoteMap{"bob": {UserID: "bob", Ratings: models.Ratings{"opt_0": {"crit_0": 5}, "opt_1": {"crit_0": 2}}}}
	version, err := store.UpdateVotes(ctx, "p1", 1, votes)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// A writer still holding version 1 must lose.
	_, err = store.UpdateVotes(ctx, "p1", 1, models.VoteMap{})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	poll, err := store.GetPoll(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), poll.Version)
	require.Contains(t, poll.VoteMap(), "bob")
	assert.Equal(t, 5, poll.VoteMap()["bob"].Ratings.Get("opt_0", "crit_0"))
}

func TestStore_SoftDelete(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()
	_, err := store.CreatePollWithQuota(ctx, newPoll("p1", "alice"), admitAll)
	require.NoError(t, err)

	_, err = store.SoftDelete(ctx, "p1", "mallory")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = store.SoftDelete(ctx, "nope", "alice")
	assert.ErrorIs(t, err, apperror.ErrPollNotFound)

	version, err := store.SoftDelete(ctx, "p1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	version, err = store.SoftDelete(ctx, "p1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	poll, err := store.GetPoll(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StateDeleted, poll.State())
	assert.Equal(t, int64(2), poll.Version)

	// Votes can no longer land, even with the current version.
	_, err = store.UpdateVotes(ctx, "p1", poll.Version, models.VoteMap{})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	polls, err := store.ListPollsByCreator(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, polls)
}

func TestStore_ListPollsByCreator(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()

	older := newPoll("p1", "alice")
	older.CreatedAt = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	newer := newPoll("p2", "alice")
	newer.CreatedAt = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	other := newPoll("p3", "bob")

	for _, p := range []*models.Poll{older, newer, other} {
		_, err := store.CreatePollWithQuota(ctx, p, admitAll)
		require.NoError(t, err)
	}

	polls, err := store.ListPollsByCreator(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, polls, 2)
	assert.Equal(t, "p2", polls[0].ID)
	assert.Equal(t, "p1", polls[1].ID)
}

func TestStore_UsageAndTier(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()

	usage, err := store.GetUsage(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, usage.Tier)
	assert.Equal(t, int64(1), usage.Version)

	// Reading again must not reset or duplicate the document.
	usage, err = store.GetUsage(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.Version)

	usage, err = store.SetTier(ctx, "carol", models.TierPro)
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, usage.Tier)
	assert.Equal(t, int64(2), usage.Version)

	_, err = store.SetTier(ctx, "carol", "platinum")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	usage, err = store.GetUsage(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, usage.Tier)
}
