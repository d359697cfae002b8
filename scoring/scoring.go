package scoring

import (
	"sort"

	"realtime-scoring-backend/models"
)

// CriterionScore is one entry of an option's breakdown: the summed ratings
// for a criterion and the same sum multiplied by the criterion weight.
type CriterionScore struct {
	CriterionID string `json:"criterionId"`
	Name        string `json:"name"`
	Weight      int    `json:"weight"`
	RawTotal    int    `json:"rawTotal"`
	Weighted    int    `json:"weighted"`
}

// OptionResult is an option's place in the ranking.
type OptionResult struct {
	Rank      int              `json:"rank"` // 1-indexed
	OptionID  string           `json:"optionId"`
	Name      string           `json:"name"`
	Score     int              `json:"score"`
	Breakdown []CriterionScore `json:"breakdown"`
}

// Results is the derived view of a poll's votes.
type Results struct {
	Ranked     []OptionResult `json:"ranked"`
	Confidence int            `json:"confidence"`
	VoteCount  int            `json:"voteCount"`
}

// ComputeResults ranks options by total weighted score. It is pure and
// deterministic: options with equal scores keep their definition order.
// Ratings are assumed to be validated already; missing ratings count as 0.
func ComputeResults(options []models.Option, criteria []models.Criterion, votes []models.Vote) Results {
	ranked := make([]OptionResult, len(options))
	for i, option := range options {
		result := OptionResult{
			OptionID:  option.ID,
			Name:      option.Name,
			Breakdown: make([]CriterionScore, len(criteria)),
		}
		for j, criterion := range criteria {
			raw := 0
			for _, vote := range votes {
				raw += vote.Ratings.Get(option.ID, criterion.ID)
			}
			weighted := raw * criterion.Weight
			result.Breakdown[j] = CriterionScore{
				CriterionID: criterion.ID,
				Name:        criterion.Name,
				Weight:      criterion.Weight,
				RawTotal:    raw,
				Weighted:    weighted,
			}
			result.Score += weighted
		}
		ranked[i] = result
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return Results{
		Ranked:     ranked,
		Confidence: confidence(ranked),
		VoteCount:  len(votes),
	}
}

// confidence is the margin between first and second place as a rounded
// percentage of the top score. Computed in integers so that halves round up
// the same way on every platform.
func confidence(ranked []OptionResult) int {
	if len(ranked) == 0 || ranked[0].Score <= 0 {
		return 0
	}
	if len(ranked) == 1 {
		return 100
	}
	top, second := ranked[0].Score, ranked[1].Score
	if second < 0 {
		second = 0
	}
	pct := (200*(top-second) + top) / (2 * top)
	if pct > 100 {
		return 100
	}
	return pct
}

// Winner returns the top-ranked option, or false when nothing has been scored.
func (r Results) Winner() (OptionResult, bool) {
	if len(r.Ranked) == 0 || r.Ranked[0].Score <= 0 {
		return OptionResult{}, false
	}
	return r.Ranked[0], true
}
