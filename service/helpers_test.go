package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"realtime-scoring-backend/apperror"
	"realtime-scoring-backend/database"
	"realtime-scoring-backend/models"

	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeMinter struct {
	calls atomic.Int32
}

func (m *fakeMinter) MintAnonymous() (models.Identity, string, error) {
	n := m.calls.Add(1)
	id := models.Identity{UserID: "anon_" + string(rune('a'+n-1)), Anonymous: true}
	return id, "token-" + id.UserID, nil
}

// conflictingStore loses the first failures compare-and-swaps, then
// delegates to the real store.
type conflictingStore struct {
	VersionedPollStore
	failures int32
	updates  atomic.Int32
}

func (s *conflictingStore) UpdateVotes(ctx context.Context, id string, expected int64, votes models.VoteMap) (int64, error) {
	if s.updates.Add(1) <= s.failures {
		return 0, apperror.ErrConflict
	}
	return s.VersionedPollStore.UpdateVotes(ctx, id, expected, votes)
}

type recordingLocker struct {
	mu    sync.Mutex
	names []string
}

func (l *recordingLocker) WithLock(_ context.Context, name string, action func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
	return action()
}

func newStore(t *testing.T) *database.Store {
	t.Helper()
	return database.NewStore(database.NewTestDB(t))
}

// seedPoll inserts an [A,B] poll with the default criterion owned by creator.
func seedPoll(t *testing.T, store *database.Store, id, creator string, criteria ...models.Criterion) *models.Poll {
	t.Helper()
	if len(criteria) == 0 {
		criteria = []models.Criterion{models.DefaultCriterion}
	}
	poll := &models.Poll{
		ID:        id,
		Question:  "Which one?",
		Options:   []models.Option{{ID: "opt_0", Name: "A"}, {ID: "opt_1", Name: "B"}},
		Criteria:  criteria,
		CreatorID: creator,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Version:   1,
	}
	_, err := store.CreatePollWithQuota(context.Background(), poll, func(u models.UsageStatus) (models.UsageStatus, error) {
		return u, nil
	})
	require.NoError(t, err)
	return poll
}

func ratings(a, b int) models.Ratings {
	return models.Ratings{"opt_0": {"crit_0": a}, "opt_1": {"crit_0": b}}
}
