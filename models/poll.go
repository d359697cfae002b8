package models

import (
	"time"

	"gorm.io/datatypes"
)

// PollState is the visibility state of a poll. Active is the only state a
// poll can be voted in; Deleted is terminal.
type PollState string

const (
	StateActive  PollState = "active"
	StateDeleted PollState = "deleted"
)

// Rating bounds. Zero means "not yet rated" and never appears in a stored vote.
const (
	MinRating = 0
	MaxRating = 5
)

// Option is one of the choices being scored.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Criterion is a weighted dimension each option is rated on.
type Criterion struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// Ratings maps optionID -> criterionID -> rating.
type Ratings map[string]map[string]int

// Get returns the rating for an option/criterion pair, 0 when absent.
func (r Ratings) Get(optionID, criterionID string) int {
	return r[optionID][criterionID]
}

// Vote is one participant's complete set of ratings for a poll.
type Vote struct {
	UserID      string    `json:"userId"`
	Ratings     Ratings   `json:"ratings"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// VoteMap holds at most one vote per participant, keyed by user id.
type VoteMap map[string]Vote

// Clone returns a shallow copy safe to mutate without touching the original.
func (m VoteMap) Clone() VoteMap {
	out := make(VoteMap, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Poll is the single document that holds a poll definition and its votes.
// Version is bumped by every committed write and drives compare-and-swap.
type Poll struct {
	ID        string                         `gorm:"primaryKey;size:64" json:"id"`
	Question  string                         `gorm:"type:text;not null" json:"question"`
	Options   datatypes.JSONSlice[Option]    `gorm:"not null" json:"options"`
	Criteria  datatypes.JSONSlice[Criterion] `gorm:"not null" json:"criteria"`
	CreatorID string                         `gorm:"size:128;not null;index:idx_poll_creator" json:"creatorId"`
	CreatedAt time.Time                      `gorm:"not null" json:"createdAt"`
	Deleted   bool                           `gorm:"not null;default:false" json:"deleted"`
	Votes     datatypes.JSONType[VoteMap]    `json:"votes"`
	Version   int64                          `gorm:"not null;default:1" json:"version"`
}

// State reports the poll's visibility state.
func (p *Poll) State() PollState {
	if p.Deleted {
		return StateDeleted
	}
	return StateActive
}

// VoteMap returns the poll's votes, never nil.
func (p *Poll) VoteMap() VoteMap {
	votes := p.Votes.Data()
	if votes == nil {
		return VoteMap{}
	}
	return votes
}

// VoteList returns the votes ordered by user id so that callers observe a
// stable order regardless of map iteration.
func (p *Poll) VoteList() []Vote {
	votes := p.VoteMap()
	list := make([]Vote, 0, len(votes))
	for _, id := range sortedKeys(votes) {
		list = append(list, votes[id])
	}
	return list
}

// Identity is the caller a request acts for. Anonymous identities may vote
// but never create polls.
type Identity struct {
	UserID    string `json:"userId"`
	Anonymous bool   `json:"anonymous"`
}

// Tier values for the usage-quota document. The billing collaborator flips
// Tier out of band; the core only initializes it to TierFree.
const (
	TierFree = "free"
	TierPro  = "pro"
)

// UsageStatus is the per-identity usage-quota document.
type UsageStatus struct {
	UserID           string    `gorm:"primaryKey;size:128" json:"userId"`
	Tier             string    `gorm:"size:16;not null;default:free" json:"tier"`
	LastCreationDate string    `gorm:"size:10" json:"lastCreationDate"`
	CountToday       int       `gorm:"not null;default:0" json:"countToday"`
	Version          int64     `gorm:"not null;default:1" json:"-"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// TableName 指定使用量表名
func (UsageStatus) TableName() string {
	return "usage_statuses"
}

// NewVotes wraps a vote map for storage in a Poll document.
func NewVotes(votes VoteMap) datatypes.JSONType[VoteMap] {
	if votes == nil {
		votes = VoteMap{}
	}
	return datatypes.NewJSONType(votes)
}
