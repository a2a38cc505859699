// Package proficiency maps a learner's communication profile to the
// difficulty tier used when prompting the language model.
package proficiency

import (
	"math"

	"github.com/pavelanni/parley/internal/model"
)

// Tier is a difficulty level.
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierEasy || t == TierMedium || t == TierHard
}

const (
	easyCeiling   = 60.0
	mediumCeiling = 80.0
)

// Profile holds the five optional communication indicators.
type Profile struct {
	Listening   *float64 `json:"listening,omitempty"`
	EQ          *float64 `json:"eq,omitempty"`
	Tone        *float64 `json:"tone,omitempty"`
	Helpfulness *float64 `json:"helpfulness,omitempty"`
	Clarity     *float64 `json:"clarity,omitempty"`
}

func (p Profile) values() []*float64 {
	return []*float64{p.Listening, p.EQ, p.Tone, p.Helpfulness, p.Clarity}
}

// Classify votes per indicator and applies the majority rule. forceEasy is
// the operator override and wins over any votes.
func Classify(p Profile, forceEasy bool) Tier {
	if forceEasy {
		return TierEasy
	}
	var easy, medium int
	for _, v := range p.values() {
		switch {
		case v == nil || *v <= easyCeiling:
			easy++
		case *v <= mediumCeiling:
			medium++
		}
	}
	switch {
	case easy >= 2:
		return TierEasy
	case medium >= 2:
		return TierMedium
	default:
		return TierHard
	}
}

// Aggregate builds a profile from a user's past evaluations, averaging each
// metric to two decimals. With no evaluations it falls back to the staff
// baseline when that is complete, and otherwise returns an empty profile.
func Aggregate(evals []model.Evaluation, baseline model.MindsBaseline) Profile {
	if len(evals) == 0 {
		if baseline.Complete() {
			return Profile{
				Listening:   baseline.Listening,
				EQ:          baseline.EQ,
				Tone:        baseline.Tone,
				Helpfulness: baseline.Helpfulness,
				Clarity:     baseline.Clarity,
			}
		}
		return Profile{}
	}

	var sums [5]float64
	for _, e := range evals {
		for i, m := range e.Metrics() {
			sums[i] += float64(m)
		}
	}
	n := float64(len(evals))
	avg := func(i int) *float64 {
		v := math.Round(sums[i]/n*100) / 100
		return &v
	}
	return Profile{
		Listening:   avg(0),
		EQ:          avg(1),
		Tone:        avg(2),
		Helpfulness: avg(3),
		Clarity:     avg(4),
	}
}
