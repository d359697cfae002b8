package quota

import (
	"time"

	"realtime-scoring-backend/apperror"
	"realtime-scoring-backend/models"
)

// DateLayout is the calendar-day key stored in UsageStatus.LastCreationDate.
const DateLayout = "2006-01-02"

// FreeDailyLimit is how many polls a free-tier identity may create per UTC day.
const FreeDailyLimit = 1

// ErrQuotaExceeded signals a closed gate. It is a normal admission outcome,
// not a failure, and callers are expected to offer an upgrade path.
const ErrQuotaExceeded = apperror.Error("daily poll limit reached")

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Today returns the UTC calendar day for the clock's current instant.
// Day boundaries are always UTC so the same instant maps to the same day for
// every participant, whatever their local zone.
func Today(c Clock) string {
	return c.Now().UTC().Format(DateLayout)
}

// Capabilities are resolved once per identity from its tier.
type Capabilities struct {
	Tier             string `json:"tier"`
	UnlimitedPolls   bool   `json:"unlimitedPolls"`
	WeightedCriteria bool   `json:"weightedCriteria"`
}

// CapabilitiesFor maps a tier to its feature flags. Unknown tiers are treated
// as free.
func CapabilitiesFor(tier string) Capabilities {
	if tier == models.TierPro {
		return Capabilities{Tier: models.TierPro, UnlimitedPolls: true, WeightedCriteria: true}
	}
	return Capabilities{Tier: models.TierFree}
}

// CanCreatePoll reports whether identity may create a poll on day today.
// Anonymous identities never may.
func CanCreatePoll(id models.Identity, usage models.UsageStatus, today string) bool {
	if id.Anonymous || id.UserID == "" {
		return false
	}
	if CapabilitiesFor(usage.Tier).UnlimitedPolls {
		return true
	}
	if usage.LastCreationDate != today {
		return true
	}
	return usage.CountToday < FreeDailyLimit
}

// RecordCreation returns the usage state after one more poll created on today.
func RecordCreation(usage models.UsageStatus, today string) models.UsageStatus {
	next := usage
	if next.LastCreationDate == today {
		next.CountToday++
	} else {
		next.LastCreationDate = today
		next.CountToday = 1
	}
	return next
}

// NewUsage is the document written on first encounter with an identity.
func NewUsage(userID string) models.UsageStatus {
	return models.UsageStatus{UserID: userID, Tier: models.TierFree}
}
