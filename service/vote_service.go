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
)

// VoteReceipt describes a committed vote. Token is set only when an
// anonymous identity was minted for the call.
type VoteReceipt struct {
	Vote     models.Vote     `json:"vote"`
	Identity models.Identity `json:"identity"`
	Token    string          `json:"token,omitempty"`
	Version  int64           `json:"version"`
	Results  scoring.Results `json:"results"`
}

// VoteService runs the vote submission protocol: validate, then upsert the
// caller's vote with an optimistic compare-and-swap, retried on conflict.
type VoteService struct {
	store   VersionedPollStore
	bus     mq.EventBus
	minter  AnonymousMinter
	clock   quota.Clock
	budget  int
	backoff Backoff
	logger  *slog.Logger
}

type VoteServiceOption func(*VoteService)

func WithRetryBudget(n int) VoteServiceOption {
	return func(s *VoteService) {
		if n > 0 {
			s.budget = n
		}
	}
}

func WithBackoff(b Backoff) VoteServiceOption {
	return func(s *VoteService) { s.backoff = b }
}

func WithVoteClock(c quota.Clock) VoteServiceOption {
	return func(s *VoteService) { s.clock = c }
}

func WithVoteLogger(l *slog.Logger) VoteServiceOption {
	return func(s *VoteService) { s.logger = l }
}

// NewVoteService wires the protocol. bus may be nil when nobody listens.
func NewVoteService(store VersionedPollStore, bus mq.EventBus, minter AnonymousMinter, opts ...VoteServiceOption) *VoteService {
	s := &VoteService{
		store:   store,
		bus:     bus,
		minter:  minter,
		clock:   quota.SystemClock{},
		budget:  DefaultRetryBudget,
		backoff: JitteredBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = ResolveLogger(s.logger)
	return s
}

// SubmitVote stores ratings as the caller's single vote on the poll,
// replacing any earlier vote by the same identity. A caller without an
// identity gets a freshly minted anonymous one, returned in the receipt.
func (s *VoteService) SubmitVote(ctx context.Context, pollID string, caller models.Identity, ratings models.Ratings) (*VoteReceipt, error) {
	poll, err := s.livePoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateVote(poll, ratings); err != nil {
		return nil, err
	}

	receipt := &VoteReceipt{Identity: caller}
	if caller.UserID == "" {
		if s.minter == nil {
			return nil, apperror.ErrUnauthenticated
		}
		id, token, err := s.minter.MintAnonymous()
		if err != nil {
			return nil, fmt.Errorf("mint anonymous identity: %w", err)
		}
		receipt.Identity = id
		receipt.Token = token
	}

	vote := models.Vote{
		UserID:      receipt.Identity.UserID,
		Ratings:     cloneRatings(ratings),
		SubmittedAt: s.clock.Now().UTC(),
	}

	for attempt := 0; attempt < s.budget; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, s.backoff(attempt)); err != nil {
				return nil, err
			}
			if poll, err = s.livePoll(ctx, pollID); err != nil {
				return nil, err
			}
		}

		votes := poll.VoteMap().Clone()
		votes[vote.UserID] = vote

		version, err := s.store.UpdateVotes(ctx, poll.ID, poll.Version, votes)
		if errors.Is(err, apperror.ErrConflict) {
			s.logger.Debug("vote write conflict", "poll_id", pollID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}

		poll.Votes = models.NewVotes(votes)
		poll.Version = version
		receipt.Vote = vote
		receipt.Version = version
		receipt.Results = scoring.ComputeResults(poll.Options, poll.Criteria, poll.VoteList())

		s.logger.Info("vote committed",
			"poll_id", pollID,
			"user_id", vote.UserID,
			"version", version,
			"attempts", attempt+1,
		)
		s.publish(ctx, mq.PollUpdate{
			PollID:      pollID,
			Version:     version,
			Results:     &receipt.Results,
			PublishedAt: s.clock.Now().UTC(),
		})
		return receipt, nil
	}

	s.logger.Warn("vote retry budget exhausted", "poll_id", pollID, "user_id", vote.UserID, "budget", s.budget)
	return nil, fmt.Errorf("%w after %d attempts", apperror.ErrConflictExhausted, s.budget)
}

func (s *VoteService) livePoll(ctx context.Context, pollID string) (*models.Poll, error) {
	poll, err := s.store.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Deleted {
		return nil, apperror.ErrPollDeleted
	}
	return poll, nil
}

func (s *VoteService) publish(ctx context.Context, u mq.PollUpdate) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, u); err != nil {
		s.logger.Warn("publish poll update failed", "poll_id", u.PollID, "error", err)
	}
}

func cloneRatings(r models.Ratings) models.Ratings {
	out := make(models.Ratings, len(r))
	for optionID, byCriterion := range r {
		inner := make(map[string]int, len(byCriterion))
		for criterionID, v := range byCriterion {
			inner[criterionID] = v
		}
		out[optionID] = inner
	}
	return out
}
