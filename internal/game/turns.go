package game

import (
	"context"
	"log/slog"

	"github.com/pavelanni/parley/internal/apperr"
	"github.com/pavelanni/parley/internal/gateway"
	"github.com/pavelanni/parley/internal/model"
	"github.com/pavelanni/parley/internal/proficiency"
	"github.com/pavelanni/parley/internal/scoring"
)

// Outcome is the result of one submitted attempt. Status is one of retry,
// continue or complete; the other fields are set to match.
type Outcome struct {
	Status  Action         `json:"status"`
	Turn    *model.Turn    `json:"turn"`
	Attempt *model.Attempt `json:"attempt"`

	// Guidance explains how to improve a rejected attempt.
	Guidance string `json:"guidance,omitempty"`

	// NextTurn is the system reply after an accepted attempt.
	NextTurn *model.Turn `json:"nextSystemTurn,omitempty"`

	// Result is set once the game completes.
	Result *EvaluationResult `json:"result,omitempty"`
}

// EvaluationResult is the score of a completed game. Evaluation is nil and
// EvaluationFailed set when the conversation could not be evaluated.
type EvaluationResult struct {
	GameID           string            `json:"gameID"`
	PointsEarned     int               `json:"pointsEarned"`
	Evaluation       *model.Evaluation `json:"feedback,omitempty"`
	EvaluationFailed bool              `json:"evaluationFailed,omitempty"`
}

// TurnManager drives a game's turns from attempt to completion.
type TurnManager struct {
	repo      Repository
	scenarios ScenarioLookup
	ledger    Ledger
	gw        gateway.Gateway
	games     keyedGuard
}

func NewTurnManager(repo Repository, scenarios ScenarioLookup, ledger Ledger, gw gateway.Gateway) *TurnManager {
	return &TurnManager{repo: repo, scenarios: scenarios, ledger: ledger, gw: gw}
}

// SubmitAttempt records content as the next attempt on the game's open user
// turn, has it judged, and moves the game forward when it is accepted.
//
// If judging or generating the follow-up fails, the attempt is rolled back
// and the error returned, leaving the game as it was before the call.
func (m *TurnManager) SubmitAttempt(ctx context.Context, gameID, content string, timeTaken float64, tier proficiency.Tier) (*Outcome, error) {
	unlock, ok := m.games.tryLock(gameID)
	if !ok {
		return nil, apperr.New(apperr.KindConflict, "an attempt for this game is already being processed")
	}
	defer unlock()

	g, err := m.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperr.New(apperr.KindNotFound, "game not found")
	}
	if g.Status != model.GameOngoing {
		if err := m.repo.ClearActiveGame(ctx, g.UserID); err != nil {
			slog.Warn("failed to clear active game", "user_id", g.UserID, "error", err)
		}
		return nil, apperr.New(apperr.KindConflict, "game is "+string(g.Status))
	}

	sc, err := m.scenario(ctx, g.ScenarioID)
	if err != nil {
		return nil, err
	}
	turns, err := m.repo.ListTurns(ctx, gameID)
	if err != nil {
		return nil, err
	}
	transcript := model.Transcript(turns, sc, false)

	turn, attempt, err := m.repo.AppendAttempt(ctx, gameID, content, timeTaken)
	if err != nil {
		return nil, err
	}

	judgment, err := m.gw.JudgeAttempt(ctx, transcript, content, sc, tier)
	if err != nil {
		m.rollback(ctx, turn, attempt)
		return nil, err
	}
	action, err := Transition(turn.Seq, judgment.Appropriate)
	if err != nil {
		m.rollback(ctx, turn, attempt)
		return nil, err
	}

	out := &Outcome{Status: action, Turn: turn, Attempt: attempt}
	transcript = append(transcript, model.Line{Speaker: model.SpeakerUser, Label: sc.Label(model.SpeakerUser), Content: content})

	switch action {
	case ActionRetry:
		out.Guidance = judgment.Guidance
		slog.Debug("attempt rejected", "game_id", gameID, "turn", turn.Seq, "attempt", attempt.AttemptNumber)
		return out, nil

	case ActionContinue, ActionWrapUp:
		var line string
		if action == ActionWrapUp {
			line, err = m.gw.GenerateWrapUp(ctx, transcript, sc, tier)
		} else {
			line, err = m.gw.GenerateContinuation(ctx, transcript, sc, tier)
		}
		if err != nil {
			m.rollback(ctx, turn, attempt)
			return nil, err
		}
		next, err := m.repo.AdvanceGame(ctx, turn.ID, attempt.ID, line)
		if err != nil {
			m.rollback(ctx, turn, attempt)
			return nil, err
		}
		markAccepted(turn, attempt)
		out.Status = ActionContinue
		out.NextTurn = next
		return out, nil

	default:
		completed, err := m.repo.CompleteGame(ctx, turn.ID, attempt.ID)
		if err != nil {
			m.rollback(ctx, turn, attempt)
			return nil, err
		}
		markAccepted(turn, attempt)
		slog.Info("game completed", "game_id", gameID, "user_id", g.UserID)

		eval, evalErr := m.evaluate(ctx, completed.ID, transcript, sc)
		if evalErr != nil {
			slog.Warn("conversation evaluation failed, completing without it",
				"game_id", gameID, "error", evalErr)
		}
		res, err := m.finalize(ctx, completed, eval)
		if err != nil {
			return nil, err
		}
		out.Result = res
		return out, nil
	}
}

// Reevaluate runs the whole-conversation evaluation for a completed game
// again, replacing any stored evaluation and settling the point difference.
func (m *TurnManager) Reevaluate(ctx context.Context, g *model.Game) (*EvaluationResult, error) {
	unlock, ok := m.games.tryLock(g.ID)
	if !ok {
		return nil, apperr.New(apperr.KindConflict, "this game is already being evaluated")
	}
	defer unlock()

	sc, err := m.scenario(ctx, g.ScenarioID)
	if err != nil {
		return nil, err
	}
	turns, err := m.repo.ListTurns(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	eval, err := m.evaluate(ctx, g.ID, model.Transcript(turns, sc, false), sc)
	if err != nil {
		return nil, err
	}
	return m.finalize(ctx, g, eval)
}

func (m *TurnManager) evaluate(ctx context.Context, gameID string, transcript []model.Line, sc *model.Scenario) (*model.Evaluation, error) {
	ce, err := m.gw.EvaluateConversation(ctx, transcript, sc)
	if err != nil {
		return nil, err
	}
	eval := ce.Evaluation(gameID)
	return &eval, nil
}

// finalize scores the game, stores the result and credits the user with the
// change in points.
func (m *TurnManager) finalize(ctx context.Context, g *model.Game, eval *model.Evaluation) (*EvaluationResult, error) {
	turns, err := m.repo.ListTurns(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	points := scoring.CalculatePoints(turns, eval)

	previous, err := m.repo.FinalizeScore(ctx, g.ID, eval, points, eval == nil)
	if err != nil {
		return nil, err
	}
	if delta := points - previous; delta != 0 {
		if err := m.ledger.AddPoints(ctx, g.UserID, delta); err != nil {
			return nil, err
		}
	}
	slog.Info("game scored", "game_id", g.ID, "points", points, "previous", previous, "evaluated", eval != nil)

	return &EvaluationResult{
		GameID:           g.ID,
		PointsEarned:     points,
		Evaluation:       eval,
		EvaluationFailed: eval == nil,
	}, nil
}

func (m *TurnManager) scenario(ctx context.Context, id string) (*model.Scenario, error) {
	sc, err := m.scenarios.GetScenario(ctx, id)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, apperr.New(apperr.KindNotFound, "scenario not found")
	}
	return sc, nil
}

func (m *TurnManager) rollback(ctx context.Context, turn *model.Turn, attempt *model.Attempt) {
	// The request context may already be done; the rollback must still land.
	if err := m.repo.RollbackAttempt(context.WithoutCancel(ctx), turn.ID, attempt.ID); err != nil {
		slog.Error("failed to roll back attempt", "turn_id", turn.ID, "attempt_id", attempt.ID, "error", err)
	}
}

func markAccepted(turn *model.Turn, attempt *model.Attempt) {
	attempt.Successful = true
	turn.Successful = true
}
