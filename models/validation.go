package models

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"realtime-scoring-backend/apperror"
)

// DefaultCriterion is substituted when a poll is created without criteria.
var DefaultCriterion = Criterion{ID: "crit_0", Name: "Rating", Weight: 1}

// MaxWeight is the largest weight a weighted-criteria identity may assign.
const MaxWeight = 3

// CreatePollInput is the creator-supplied poll definition.
type CreatePollInput struct {
	Question string           `json:"question"`
	Options  []string         `json:"options"`
	Criteria []CriterionInput `json:"criteria"`
}

// CriterionInput is a criterion as typed by the creator. Weight 0 means unset.
type CriterionInput struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// BuildPoll normalizes and validates a poll definition. Blank option and
// criterion names are dropped before ids are minted. When weighted is false
// every criterion must carry weight 1.
func BuildPoll(in CreatePollInput, weighted bool) (*Poll, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, apperror.Invalid("question is required")
	}

	var options []Option
	for _, name := range in.Options {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		options = append(options, Option{ID: fmt.Sprintf("opt_%d", len(options)), Name: name})
	}
	if len(options) < 2 {
		return nil, apperror.Invalid("at least two options are required")
	}

	var criteria []Criterion
	for _, c := range in.Criteria {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		weight := c.Weight
		if weight == 0 {
			weight = 1
		}
		if weight < 0 || weight > MaxWeight {
			return nil, apperror.Invalid(fmt.Sprintf("criterion %q: weight must be between 1 and %d", name, MaxWeight))
		}
		if weight != 1 && !weighted {
			return nil, apperror.Invalid(fmt.Sprintf("criterion %q: weighted criteria require the %s tier", name, TierPro))
		}
		criteria = append(criteria, Criterion{ID: fmt.Sprintf("crit_%d", len(criteria)), Name: name, Weight: weight})
	}
	if len(criteria) == 0 {
		criteria = []Criterion{DefaultCriterion}
	}

	return &Poll{
		Question: question,
		Options:  options,
		Criteria: criteria,
	}, nil
}

// ValidateVote checks that ratings reference only ids defined by the poll,
// stay within [MinRating, MaxRating] and rate every option on every criterion.
func ValidateVote(p *Poll, ratings Ratings) error {
	optionIDs := make(map[string]bool, len(p.Options))
	for _, o := range p.Options {
		optionIDs[o.ID] = true
	}
	criterionIDs := make(map[string]bool, len(p.Criteria))
	for _, c := range p.Criteria {
		criterionIDs[c.ID] = true
	}

	for _, optionID := range sortedKeys(ratings) {
		if !optionIDs[optionID] {
			return apperror.Invalid(fmt.Sprintf("unknown option %q", optionID))
		}
		byCriterion := ratings[optionID]
		for _, criterionID := range sortedKeys(byCriterion) {
			if !criterionIDs[criterionID] {
				return apperror.Invalid(fmt.Sprintf("unknown criterion %q", criterionID))
			}
			r := byCriterion[criterionID]
			if r < MinRating || r > MaxRating {
				return apperror.Invalid(fmt.Sprintf("rating for %s/%s must be between %d and %d", optionID, criterionID, MinRating, MaxRating))
			}
		}
	}

	for _, o := range p.Options {
		for _, c := range p.Criteria {
			if ratings.Get(o.ID, c.ID) <= 0 {
				return apperror.Invalid(fmt.Sprintf("vote is incomplete: %s is not rated on %s", o.Name, c.Name))
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
