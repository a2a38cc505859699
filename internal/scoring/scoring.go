// Package scoring computes the points a learner earns for a completed game.
package scoring

import "github.com/pavelanni/parley/internal/model"

const (
	basePoints      = 10
	metricBonus     = 3
	metricThreshold = 65
	firstTryBonus   = 5
	userTurnsInGame = model.TurnsPerGame / 2
)

// CalculatePoints returns the base award plus a bonus for each metric at or
// above the threshold and a bonus when every user turn succeeded on its first
// attempt. A nil evaluation earns no metric bonus.
func CalculatePoints(turns []model.Turn, eval *model.Evaluation) int {
	points := basePoints
	if eval != nil {
		for _, m := range eval.Metrics() {
			if m >= metricThreshold {
				points += metricBonus
			}
		}
	}
	if firstTryEverywhere(turns) {
		points += firstTryBonus
	}
	return points
}

func firstTryEverywhere(turns []model.Turn) bool {
	var userTurns int
	for _, t := range turns {
		if t.Speaker != model.SpeakerUser {
			continue
		}
		userTurns++
		if t.AttemptsCount != 1 {
			return false
		}
	}
	return userTurns == userTurnsInGame
}
