package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/parley/internal/apperr"
	"github.com/pavelanni/parley/internal/model"
	"github.com/pavelanni/parley/internal/proficiency"
)

const evaluationColumns = `id, game_id, listening, eq, tone, helpfulness, clarity,
	user_feedback, staff_feedback, low_confidence, created_at`

func scanEvaluation(row rowScanner) (*model.Evaluation, error) {
	var e model.Evaluation
	err := row.Scan(&e.ID, &e.GameID, &e.Listening, &e.EQ, &e.Tone, &e.Helpfulness, &e.Clarity,
		&e.UserFeedback, &e.StaffFeedback, &e.LowConfidence, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FinalizeScore records the outcome of a completed game: the evaluation, when
// there is one, replaces any earlier evaluation, and points_earned and
// errors_occurred are overwritten. It returns the points previously recorded
// for the game so the caller can settle the difference on the ledger.
func (s *Store) FinalizeScore(ctx context.Context, gameID string, eval *model.Evaluation, points int, errorsOccurred bool) (int, error) {
	var previous int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var status model.GameStatus
		var prev sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT status, points_earned FROM games WHERE id = ?`, gameID).Scan(&status, &prev)
		if err == sql.ErrNoRows {
			return apperr.New(apperr.KindNotFound, "game not found")
		}
		if err != nil {
			return err
		}
		if status != model.GameComplete {
			return apperr.New(apperr.KindConflict, "only completed games can be scored")
		}
		previous = int(prev.Int64)

		if eval != nil {
			eval.ID = uuid.NewString()
			eval.GameID = gameID
			eval.CreatedAt = time.Now().UTC()
			_, err = tx.ExecContext(ctx,
				`INSERT INTO evaluations (`+evaluationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT(game_id) DO UPDATE SET
				   id = excluded.id, listening = excluded.listening, eq = excluded.eq, tone = excluded.tone,
				   helpfulness = excluded.helpfulness, clarity = excluded.clarity,
				   user_feedback = excluded.user_feedback, staff_feedback = excluded.staff_feedback,
				   low_confidence = excluded.low_confidence, created_at = excluded.created_at`,
				eval.ID, eval.GameID, eval.Listening, eval.EQ, eval.Tone, eval.Helpfulness, eval.Clarity,
				eval.UserFeedback, eval.StaffFeedback, eval.LowConfidence, eval.CreatedAt,
			)
			if err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE games SET points_earned = ?, errors_occurred = ? WHERE id = ?`,
			points, errorsOccurred, gameID)
		return err
	})
	return previous, err
}

// GetEvaluation returns the evaluation for a game, or nil if there is none.
func (s *Store) GetEvaluation(ctx context.Context, gameID string) (*model.Evaluation, error) {
	e, err := scanEvaluation(s.db.QueryRowContext(ctx,
		`SELECT `+evaluationColumns+` FROM evaluations WHERE game_id = ?`, gameID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ListEvaluationsForUser returns the evaluations of all the user's games.
func (s *Store) ListEvaluationsForUser(ctx context.Context, userID int64) ([]model.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.game_id, e.listening, e.eq, e.tone, e.helpfulness, e.clarity,
		        e.user_feedback, e.staff_feedback, e.low_confidence, e.created_at
		 FROM evaluations e JOIN games g ON g.id = e.game_id
		 WHERE g.user_id = ? ORDER BY e.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var evals []model.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, *e)
	}
	return evals, rows.Err()
}

// Profile derives the user's proficiency profile from past evaluations,
// falling back to the staff baseline.
func (s *Store) Profile(ctx context.Context, userID int64) (proficiency.Profile, error) {
	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return proficiency.Profile{}, err
	}
	if u == nil {
		return proficiency.Profile{}, apperr.New(apperr.KindNotFound, "user not found")
	}
	evals, err := s.ListEvaluationsForUser(ctx, userID)
	if err != nil {
		return proficiency.Profile{}, err
	}
	return proficiency.Aggregate(evals, u.Baseline), nil
}
