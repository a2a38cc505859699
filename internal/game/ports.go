// Package game runs practice games: starting and abandoning them, taking the
// learner's attempts turn by turn, and scoring the finished conversation.
package game

import (
	"context"

	"github.com/pavelanni/parley/internal/model"
	"github.com/pavelanni/parley/internal/proficiency"
)

// Repository persists games, turns, attempts and evaluations. Multi-row
// changes are atomic.
type Repository interface {
	CreateGame(ctx context.Context, userID int64, scenarioID, opening string) (*model.Game, error)
	GetGame(ctx context.Context, id string) (*model.Game, error)
	ActiveGame(ctx context.Context, userID int64) (*model.Game, error)
	ClearActiveGame(ctx context.Context, userID int64) error
	ListTurns(ctx context.Context, gameID string) ([]model.Turn, error)
	AppendAttempt(ctx context.Context, gameID, content string, timeTaken float64) (*model.Turn, *model.Attempt, error)
	RollbackAttempt(ctx context.Context, turnID, attemptID string) error
	AdvanceGame(ctx context.Context, turnID, attemptID, line string) (*model.Turn, error)
	CompleteGame(ctx context.Context, turnID, attemptID string) (*model.Game, error)
	AbandonGame(ctx context.Context, gameID string) error
	FinalizeScore(ctx context.Context, gameID string, eval *model.Evaluation, points int, errorsOccurred bool) (int, error)
	GetEvaluation(ctx context.Context, gameID string) (*model.Evaluation, error)
}

// ScenarioLookup resolves a scenario by ID or name. It returns nil when
// nothing matches.
type ScenarioLookup interface {
	GetScenario(ctx context.Context, ref string) (*model.Scenario, error)
}

// ProfileSource supplies a user's proficiency indicators.
type ProfileSource interface {
	Profile(ctx context.Context, userID int64) (proficiency.Profile, error)
}

// Ledger keeps each user's running point total.
type Ledger interface {
	AddPoints(ctx context.Context, userID int64, amount int) error
}

// Gate is the process-wide maintenance switch.
type Gate interface {
	UsageLocked(ctx context.Context) (bool, error)
}

// Store bundles every collaborator; *store.Store satisfies it.
type Store interface {
	Repository
	ScenarioLookup
	ProfileSource
	Ledger
	Gate
}
