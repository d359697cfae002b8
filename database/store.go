package database

import (
	"context"
	"errors"
	"fmt"

	"realtime-scoring-backend/apperror"
	"realtime-scoring-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the document store for polls and usage-quota records. Every
// mutation of a document is a compare-and-swap on its version column, so
// writers never overwrite each other's changes.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AdmitFunc decides, inside the creation transaction, whether the current
// usage document admits one more poll and returns the usage state to store.
type AdmitFunc func(usage models.UsageStatus) (models.UsageStatus, error)

// CreatePollWithQuota records the creation against the creator's usage
// document and inserts the poll in one transaction. The usage update is a
// versioned compare-and-swap; losing the race returns apperror.ErrConflict
// and nothing is written.
func (s *Store) CreatePollWithQuota(ctx context.Context, poll *models.Poll, admit AdmitFunc) (models.UsageStatus, error) {
	var stored models.UsageStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		usage, err := loadOrInitUsage(tx, poll.CreatorID)
		if err != nil {
			return err
		}

		next, err := admit(usage)
		if err != nil {
			return err
		}

		res := tx.Model(&models.UsageStatus{}).
			Where("user_id = ? AND version = ?", usage.UserID, usage.Version).
			Updates(map[string]interface{}{
				"last_creation_date": next.LastCreationDate,
				"count_today":        next.CountToday,
				"version":            gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("update usage: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.ErrConflict
		}

		if poll.Version == 0 {
			poll.Version = 1
		}
		if err := tx.Create(poll).Error; err != nil {
			return fmt.Errorf("insert poll: %w", err)
		}

		next.Version = usage.Version + 1
		stored = next
		return nil
	})
	if err != nil {
		return models.UsageStatus{}, err
	}
	return stored, nil
}

// GetPoll reads one poll document. Soft-deleted polls are returned as-is.
func (s *Store) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	var poll models.Poll
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&poll).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrPollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get poll %s: %w", id, err)
	}
	return &poll, nil
}

// UpdateVotes replaces the vote mapping of a live poll if, and only if, the
// stored version still equals expectedVersion. It returns the new version.
// apperror.ErrConflict means another writer committed first or the poll was
// deleted; callers re-read to tell which.
func (s *Store) UpdateVotes(ctx context.Context, id string, expectedVersion int64, votes models.VoteMap) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Poll{}).
		Where("id = ? AND version = ? AND deleted = ?", id, expectedVersion, false).
		Updates(map[string]interface{}{
			"votes":   models.NewVotes(votes),
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("update votes for poll %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperror.ErrConflict
	}
	return expectedVersion + 1, nil
}

// SoftDelete marks a poll deleted and returns the poll version after the
// change. Only the creator may do so. Deleting an already deleted poll is a
// no-op that returns the current version.
func (s *Store) SoftDelete(ctx context.Context, id, creatorID string) (int64, error) {
	var version int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poll models.Poll
		err := tx.Select("id", "creator_id", "deleted", "version").Where("id = ?", id).First(&poll).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrPollNotFound
		}
		if err != nil {
			return fmt.Errorf("get poll %s: %w", id, err)
		}
		if poll.CreatorID != creatorID {
			return apperror.ErrForbidden
		}
		if poll.Deleted {
			version = poll.Version
			return nil
		}

		res := tx.Model(&models.Poll{}).
			Where("id = ? AND version = ?", id, poll.Version).
			Updates(map[string]interface{}{
				"deleted": true,
				"version": gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("soft delete poll %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.ErrConflict
		}
		version = poll.Version + 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// ListPollsByCreator returns the creator's live polls, newest first.
func (s *Store) ListPollsByCreator(ctx context.Context, creatorID string) ([]models.Poll, error) {
	var polls []models.Poll
	err := s.db.WithContext(ctx).
		Where("creator_id = ? AND deleted = ?", creatorID, false).
		Order("created_at desc").
		Find(&polls).Error
	if err != nil {
		return nil, fmt.Errorf("list polls for %s: %w", creatorID, err)
	}
	return polls, nil
}

// GetUsage reads the usage document, creating the free-tier default on first
// encounter.
func (s *Store) GetUsage(ctx context.Context, userID string) (models.UsageStatus, error) {
	var usage models.UsageStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		usage, err = loadOrInitUsage(tx, userID)
		return err
	})
	return usage, err
}

// SetTier is the billing collaborator's write path.
func (s *Store) SetTier(ctx context.Context, userID, tier string) (models.UsageStatus, error) {
	if tier != models.TierFree && tier != models.TierPro {
		return models.UsageStatus{}, apperror.Invalid(fmt.Sprintf("unknown tier %q", tier))
	}

	var usage models.UsageStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadOrInitUsage(tx, userID)
		if err != nil {
			return err
		}
		res := tx.Model(&models.UsageStatus{}).
			Where("user_id = ? AND version = ?", userID, current.Version).
			Updates(map[string]interface{}{
				"tier":    tier,
				"version": gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("set tier: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.ErrConflict
		}
		current.Tier = tier
		current.Version++
		usage = current
		return nil
	})
	return usage, err
}

func loadOrInitUsage(tx *gorm.DB, userID string) (models.UsageStatus, error) {
	initial := models.UsageStatus{UserID: userID, Tier: models.TierFree, Version: 1}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&initial).Error; err != nil {
		return models.UsageStatus{}, fmt.Errorf("init usage for %s: %w", userID, err)
	}

	var usage models.UsageStatus
	if err := tx.Where("user_id = ?", userID).First(&usage).Error; err != nil {
		return models.UsageStatus{}, fmt.Errorf("get usage for %s: %w", userID, err)
	}
	return usage, nil
}
