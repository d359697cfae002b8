package mq

import (
	"time"

	"realtime-scoring-backend/scoring"
)

// PollUpdate announces that a poll document changed. Version is the poll's
// version after the change; subscribers drop anything older than what they
// have already seen, so out-of-order delivery never rolls a view back.
type PollUpdate struct {
	PollID      string           `json:"pollId"`
	Version     int64            `json:"version"`
	Deleted     bool             `json:"deleted"`
	Results     *scoring.Results `json:"results,omitempty"`
	PublishedAt time.Time        `json:"publishedAt"`
}
