package service

import (
	"context"

	"realtime-scoring-backend/database"
	"realtime-scoring-backend/models"
)

// VersionedPollStore is the compare-and-swap primitive the submission
// protocol needs: a point read that reports the document version, and a
// write that only lands if the version is unchanged.
type VersionedPollStore interface {
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	UpdateVotes(ctx context.Context, id string, expectedVersion int64, votes models.VoteMap) (int64, error)
}

// PollRepository is the full document store used by the poll lifecycle.
type PollRepository interface {
	VersionedPollStore
	CreatePollWithQuota(ctx context.Context, poll *models.Poll, admit database.AdmitFunc) (models.UsageStatus, error)
	SoftDelete(ctx context.Context, id, creatorID string) (int64, error)
	ListPollsByCreator(ctx context.Context, creatorID string) ([]models.Poll, error)
	GetUsage(ctx context.Context, userID string) (models.UsageStatus, error)
	SetTier(ctx context.Context, userID, tier string) (models.UsageStatus, error)
}

// Locker serializes work under a name across instances.
type Locker interface {
	WithLock(ctx context.Context, name string, action func() error) error
}

// AnonymousMinter creates ephemeral identities for callers that have none.
type AnonymousMinter interface {
	MintAnonymous() (models.Identity, string, error)
}

var _ PollRepository = (*database.Store)(nil)
