package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"realtime-scoring-backend/apperror"
	"realtime-scoring-backend/models"
	"realtime-scoring-backend/mq"
	"realtime-scoring-backend/quota"
	"realtime-scoring-backend/scoring"

	"github.com/google/uuid"
)

// Reasons reported when creation is not admitted.
const ReasonDailyLimit = "daily_limit"

// CreateOutcome is the result of a creation request. A closed quota gate is
// a normal outcome with Allowed false, not an error.
type CreateOutcome struct {
	Allowed bool               `json:"allowed"`
	Reason  string             `json:"reason,omitempty"`
	Upgrade bool               `json:"upgrade,omitempty"`
	Poll    *models.Poll       `json:"poll,omitempty"`
	Usage   models.UsageStatus `json:"usage"`
}

// ResultsView is a scored snapshot of a poll at a given version.
type ResultsView struct {
	PollID   string          `json:"pollId"`
	Question string          `json:"question"`
	Version  int64           `json:"version"`
	Results  scoring.Results `json:"results"`
}

// UsageView is what an identity may do today.
type UsageView struct {
	Usage        models.UsageStatus `json:"usage"`
	Capabilities quota.Capabilities `json:"capabilities"`
	CanCreate    bool               `json:"canCreate"`
	Today        string             `json:"today"`
}

// PollService owns the poll lifecycle: quota-gated creation, reads, the
// creator's soft delete and the usage document.
type PollService struct {
	store  PollRepository
	bus    mq.EventBus
	locker Locker
	clock  quota.Clock
	budget int
	newID  func() string
	logger *slog.Logger
}

type PollServiceOption func(*PollService)

// WithCreationLock serializes creations per identity across instances.
func WithCreationLock(l Locker) PollServiceOption {
	return func(s *PollService) { s.locker = l }
}

func WithPollClock(c quota.Clock) PollServiceOption {
	return func(s *PollService) { s.clock = c }
}

func WithCreationRetryBudget(n int) PollServiceOption {
	return func(s *PollService) {
		if n > 0 {
			s.budget = n
		}
	}
}

func WithPollLogger(l *slog.Logger) PollServiceOption {
	return func(s *PollService) { s.logger = l }
}

func NewPollService(store PollRepository, bus mq.EventBus, opts ...PollServiceOption) *PollService {
	s := &PollService{
		store:  store,
		bus:    bus,
		clock:  quota.SystemClock{},
		budget: DefaultRetryBudget,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = ResolveLogger(s.logger)
	return s
}

// CreatePoll validates the definition against the caller's capabilities and
// creates it if the quota gate admits one more poll today. The gate check,
// the usage update and the insert commit together.
func (s *PollService) CreatePoll(ctx context.Context, caller models.Identity, in models.CreatePollInput) (*CreateOutcome, error) {
	if caller.UserID == "" {
		return nil, apperror.ErrUnauthenticated
	}
	if caller.Anonymous {
		return nil, apperror.ErrForbidden
	}

	usage, err := s.store.GetUsage(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	poll, err := models.BuildPoll(in, quota.CapabilitiesFor(usage.Tier).WeightedCriteria)
	if err != nil {
		return nil, err
	}
	poll.ID = s.newID()
	poll.CreatorID = caller.UserID
	poll.CreatedAt = s.clock.Now().UTC()
	poll.Version = 1

	today := quota.Today(s.clock)
	admit := func(current models.UsageStatus) (models.UsageStatus, error) {
		if !quota.CanCreatePoll(caller, current, today) {
			return current, quota.ErrQuotaExceeded
		}
		// The tier may have changed since the definition was validated.
		if !quota.CapabilitiesFor(current.Tier).WeightedCriteria && weighted(poll) {
			return current, apperror.Invalid("weighted criteria require the pro tier")
		}
		return quota.RecordCreation(current, today), nil
	}

	create := func() error {
		for attempt := 0; attempt < s.budget; attempt++ {
			if attempt > 0 {
				if err := sleep(ctx, JitteredBackoff(attempt)); err != nil {
					return err
				}
			}
			usage, err = s.store.CreatePollWithQuota(ctx, poll, admit)
			if !errors.Is(err, apperror.ErrConflict) {
				return err
			}
		}
		return fmt.Errorf("%w after %d attempts", apperror.ErrConflictExhausted, s.budget)
	}

	if s.locker != nil {
		err = s.locker.WithLock(ctx, "poll-create:"+caller.UserID, create)
	} else {
		err = create()
	}

	if errors.Is(err, quota.ErrQuotaExceeded) {
		current, uerr := s.store.GetUsage(ctx, caller.UserID)
		if uerr != nil {
			return nil, uerr
		}
		s.logger.Info("poll creation refused by quota", "user_id", caller.UserID, "tier", current.Tier, "today", today)
		return &CreateOutcome{Allowed: false, Reason: ReasonDailyLimit, Upgrade: true, Usage: current}, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("poll created", "poll_id", poll.ID, "user_id", caller.UserID, "options", len(poll.Options), "criteria", len(poll.Criteria))
	return &CreateOutcome{Allowed: true, Poll: poll, Usage: usage}, nil
}

// GetPoll returns a live poll. Deleted polls report apperror.ErrPollDeleted.
func (s *PollService) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	poll, err := s.store.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	if poll.Deleted {
		return nil, apperror.ErrPollDeleted
	}
	return poll, nil
}

// ListMyPolls returns the caller's non-deleted polls, newest first.
func (s *PollService) ListMyPolls(ctx context.Context, caller models.Identity) ([]models.Poll, error) {
	if caller.UserID == "" {
		return nil, apperror.ErrUnauthenticated
	}
	return s.store.ListPollsByCreator(ctx, caller.UserID)
}

// DeletePoll soft-deletes the caller's poll and tells live subscribers.
func (s *PollService) DeletePoll(ctx context.Context, caller models.Identity, id string) error {
	if caller.UserID == "" {
		return apperror.ErrUnauthenticated
	}

	var (
		version int64
		err     error
	)
	for attempt := 0; attempt < s.budget; attempt++ {
		version, err = s.store.SoftDelete(ctx, id, caller.UserID)
		if !errors.Is(err, apperror.ErrConflict) {
			break
		}
	}
	if errors.Is(err, apperror.ErrConflict) {
		return fmt.Errorf("%w after %d attempts", apperror.ErrConflictExhausted, s.budget)
	}
	if err != nil {
		return err
	}

	s.logger.Info("poll deleted", "poll_id", id, "user_id", caller.UserID, "version", version)
	if s.bus != nil {
		u := mq.PollUpdate{PollID: id, Version: version, Deleted: true, PublishedAt: s.clock.Now().UTC()}
		if err := s.bus.Publish(ctx, u); err != nil {
			s.logger.Warn("publish poll update failed", "poll_id", id, "error", err)
		}
	}
	return nil
}

// Results scores the current state of a live poll.
func (s *PollService) Results(ctx context.Context, id string) (*ResultsView, error) {
	poll, err := s.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ResultsView{
		PollID:   poll.ID,
		Question: poll.Question,
		Version:  poll.Version,
		Results:  scoring.ComputeResults(poll.Options, poll.Criteria, poll.VoteList()),
	}, nil
}

// Snapshot is the first update a live subscriber receives.
func (s *PollService) Snapshot(ctx context.Context, id string) (mq.PollUpdate, error) {
	view, err := s.Results(ctx, id)
	if err != nil {
		return mq.PollUpdate{}, err
	}
	return mq.PollUpdate{
		PollID:      view.PollID,
		Version:     view.Version,
		Results:     &view.Results,
		PublishedAt: s.clock.Now().UTC(),
	}, nil
}

// Usage reports the caller's usage document and what it permits today.
func (s *PollService) Usage(ctx context.Context, caller models.Identity) (*UsageView, error) {
	if caller.UserID == "" {
		return nil, apperror.ErrUnauthenticated
	}
	usage, err := s.store.GetUsage(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	today := quota.Today(s.clock)
	return &UsageView{
		Usage:        usage,
		Capabilities: quota.CapabilitiesFor(usage.Tier),
		CanCreate:    quota.CanCreatePoll(caller, usage, today),
		Today:        today,
	}, nil
}

// SetTier is called by the billing collaborator.
func (s *PollService) SetTier(ctx context.Context, userID, tier string) (models.UsageStatus, error) {
	if userID == "" {
		return models.UsageStatus{}, apperror.Invalid("user id is required")
	}

	var (
		usage models.UsageStatus
		err   error
	)
	for attempt := 0; attempt < s.budget; attempt++ {
		usage, err = s.store.SetTier(ctx, userID, tier)
		if !errors.Is(err, apperror.ErrConflict) {
			break
		}
	}
	if errors.Is(err, apperror.ErrConflict) {
		return models.UsageStatus{}, fmt.Errorf("%w after %d attempts", apperror.ErrConflictExhausted, s.budget)
	}
	if err != nil {
		return models.UsageStatus{}, err
	}
	s.logger.Info("tier updated", "user_id", userID, "tier", tier)
	return usage, nil
}

func weighted(p *models.Poll) bool {
	for _, c := range p.Criteria {
		if c.Weight != 1 {
			return true
		}
	}
	return false
}
