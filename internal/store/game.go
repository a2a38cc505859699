package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/parley/internal/apperr"
	"github.com/pavelanni/parley/internal/model"
)

const gameColumns = `id, scenario_id, user_id, status, started_at, completed_at, points_earned, errors_occurred`

func scanGame(row rowScanner) (*model.Game, error) {
	var g model.Game
	err := row.Scan(&g.ID, &g.ScenarioID, &g.UserID, &g.Status, &g.StartedAt, &g.CompletedAt, &g.PointsEarned, &g.ErrorsOccurred)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGame starts an ongoing game for the user with the opening line as the
// first, already successful, system turn, and points the user at it.
func (s *Store) CreateGame(ctx context.Context, userID int64, scenarioID, opening string) (*model.Game, error) {
	now := time.Now().UTC()
	g := &model.Game{
		ID:         uuid.NewString(),
		ScenarioID: scenarioID,
		UserID:     userID,
		Status:     model.GameOngoing,
		StartedAt:  now,
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM games WHERE user_id = ? AND status = 'ongoing'`, userID).Scan(&existing)
		if err == nil {
			return apperr.New(apperr.KindConflict, "user already has an active game")
		}
		if err != sql.ErrNoRows {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO games (id, scenario_id, user_id, status, started_at) VALUES (?, ?, ?, ?, ?)`,
			g.ID, g.ScenarioID, g.UserID, g.Status, g.StartedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Wrap(apperr.KindConflict, "user already has an active game", err)
			}
			return fmt.Errorf("insert game: %w", err)
		}
		if _, err := insertSystemTurn(ctx, tx, g.ID, 1, opening, now); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET active_game_id = ? WHERE id = ?`, g.ID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetGame returns a game by ID, or nil if there is none.
func (s *Store) GetGame(ctx context.Context, id string) (*model.Game, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// ActiveGame returns the game the user's active pointer refers to, whatever
// its status, or nil when the pointer is unset or dangling.
func (s *Store) ActiveGame(ctx context.Context, userID int64) (*model.Game, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx,
		`SELECT g.id, g.scenario_id, g.user_id, g.status, g.started_at, g.completed_at, g.points_earned, g.errors_occurred
		 FROM games g JOIN users u ON u.active_game_id = g.id WHERE u.id = ?`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// ListGamesForUser returns a user's games, oldest first.
func (s *Store) ListGamesForUser(ctx context.Context, userID int64) ([]model.Game, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE user_id = ? ORDER BY started_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var games []model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// ListTurns returns a game's turns in creation order with their attempts.
func (s *Store) ListTurns(ctx context.Context, gameID string) ([]model.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game_id, seq, speaker, attempts_count, successful, created_at
		 FROM turns WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, err
	}
	var turns []model.Turn
	index := make(map[string]int)
	for rows.Next() {
		var t model.Turn
		if err := rows.Scan(&t.ID, &t.GameID, &t.Seq, &t.Speaker, &t.AttemptsCount, &t.Successful, &t.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		index[t.ID] = len(turns)
		turns = append(turns, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	arows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.turn_id, a.attempt_number, a.content, a.successful, a.timestamp, a.time_taken_seconds
		 FROM attempts a JOIN turns t ON t.id = a.turn_id
		 WHERE t.game_id = ? ORDER BY t.seq, a.attempt_number`, gameID)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var a model.Attempt
		if err := arows.Scan(&a.ID, &a.TurnID, &a.AttemptNumber, &a.Content, &a.Successful, &a.Timestamp, &a.TimeTakenSeconds); err != nil {
			return nil, err
		}
		if i, ok := index[a.TurnID]; ok {
			turns[i].Attempts = append(turns[i].Attempts, a)
		}
	}
	return turns, arows.Err()
}

// AppendAttempt resolves the game's open user turn, creating it after a
// system turn, and appends the next numbered attempt to it. The whole step is
// one transaction, retried once if the database is busy.
func (s *Store) AppendAttempt(ctx context.Context, gameID, content string, timeTaken float64) (*model.Turn, *model.Attempt, error) {
	var turn *model.Turn
	var attempt *model.Attempt

	err := retryBusy(ctx, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			var status model.GameStatus
			err := tx.QueryRowContext(ctx, `SELECT status FROM games WHERE id = ?`, gameID).Scan(&status)
			if err == sql.ErrNoRows {
				return apperr.New(apperr.KindNotFound, "game not found")
			}
			if err != nil {
				return err
			}
			if status != model.GameOngoing {
				return apperr.New(apperr.KindConflict, "game is "+string(status))
			}

			t, err := openUserTurn(ctx, tx, gameID)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			a := &model.Attempt{
				ID:               uuid.NewString(),
				TurnID:           t.ID,
				AttemptNumber:    t.AttemptsCount + 1,
				Content:          content,
				Timestamp:        now,
				TimeTakenSeconds: timeTaken,
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO attempts (id, turn_id, attempt_number, content, successful, timestamp, time_taken_seconds)
				 VALUES (?, ?, ?, ?, 0, ?, ?)`,
				a.ID, a.TurnID, a.AttemptNumber, a.Content, a.Timestamp, a.TimeTakenSeconds,
			)
			if err != nil {
				return fmt.Errorf("insert attempt: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE turns SET attempts_count = ? WHERE id = ?`, a.AttemptNumber, t.ID); err != nil {
				return err
			}
			t.AttemptsCount = a.AttemptNumber
			turn, attempt = t, a
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return turn, attempt, nil
}

// openUserTurn returns the unresolved user turn or creates the next one.
func openUserTurn(ctx context.Context, tx *sql.Tx, gameID string) (*model.Turn, error) {
	var t model.Turn
	err := tx.QueryRowContext(ctx,
		`SELECT id, game_id, seq, speaker, attempts_count, successful, created_at
		 FROM turns WHERE game_id = ? ORDER BY seq DESC LIMIT 1`, gameID,
	).Scan(&t.ID, &t.GameID, &t.Seq, &t.Speaker, &t.AttemptsCount, &t.Successful, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindInconsistentState, "game has no opening turn")
	}
	if err != nil {
		return nil, err
	}

	if t.Speaker == model.SpeakerUser {
		if t.Successful {
			return nil, apperr.New(apperr.KindInconsistentState,
				fmt.Sprintf("turn %d is a resolved user turn with no system reply", t.Seq))
		}
		return &t, nil
	}

	seq := t.Seq + 1
	if seq > model.TurnsPerGame || model.SpeakerForSeq(seq) != model.SpeakerUser {
		return nil, apperr.New(apperr.KindInconsistentState,
			fmt.Sprintf("turn %d cannot be a user turn", seq))
	}
	next := &model.Turn{
		ID:        uuid.NewString(),
		GameID:    gameID,
		Seq:       seq,
		Speaker:   model.SpeakerUser,
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO turns (id, game_id, seq, speaker, attempts_count, successful, created_at)
		 VALUES (?, ?, ?, ?, 0, 0, ?)`,
		next.ID, next.GameID, next.Seq, next.Speaker, next.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user turn: %w", err)
	}
	return next, nil
}

// RollbackAttempt removes an unjudged attempt so the turn looks as it did
// before it was appended. A user turn left with no attempts is removed too.
// Games that are no longer ongoing are left untouched.
func (s *Store) RollbackAttempt(ctx context.Context, turnID, attemptID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var status model.GameStatus
		err := tx.QueryRowContext(ctx,
			`SELECT g.status FROM turns t JOIN games g ON g.id = t.game_id WHERE t.id = ?`, turnID,
		).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "turn not found")
		}
		if err != nil {
			return err
		}
		if status != model.GameOngoing {
			slog.Info("game no longer ongoing, keeping attempt", "turn_id", turnID, "status", status)
			return nil
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM attempts WHERE id = ? AND turn_id = ? AND successful = 0`, attemptID, turnID)
		if err != nil {
			return err
		}
		if err := expectRow(res, apperr.KindNotFound, "attempt not found"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE turns SET attempts_count = attempts_count - 1 WHERE id = ?`, turnID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM turns WHERE id = ? AND attempts_count = 0 AND successful = 0 AND speaker = 'user'`, turnID)
		return err
	})
}

// AdvanceGame marks the attempt and its user turn successful and appends the
// next system turn carrying line, in one transaction.
func (s *Store) AdvanceGame(ctx context.Context, turnID, attemptID, line string) (*model.Turn, error) {
	var next *model.Turn
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		gameID, seq, err := markSuccess(ctx, tx, turnID, attemptID)
		if err != nil {
			return err
		}
		seq++
		if seq > model.TurnsPerGame || model.SpeakerForSeq(seq) != model.SpeakerSystem {
			return apperr.New(apperr.KindInconsistentState, fmt.Sprintf("turn %d cannot be a system turn", seq))
		}
		next, err = insertSystemTurn(ctx, tx, gameID, seq, line, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// CompleteGame marks the final attempt successful, completes the game and
// clears the owner's active pointer.
func (s *Store) CompleteGame(ctx context.Context, turnID, attemptID string) (*model.Game, error) {
	var gameID string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var seq int
		var err error
		gameID, seq, err = markSuccess(ctx, tx, turnID, attemptID)
		if err != nil {
			return err
		}
		if seq != model.TurnsPerGame {
			return apperr.New(apperr.KindInconsistentState, fmt.Sprintf("cannot complete a game at turn %d", seq))
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE games SET status = 'complete', completed_at = ? WHERE id = ? AND status = 'ongoing'`,
			time.Now().UTC(), gameID)
		if err != nil {
			return err
		}
		if err := expectRow(res, apperr.KindConflict, "game is no longer ongoing"); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET active_game_id = '' WHERE active_game_id = ?`, gameID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetGame(ctx, gameID)
}

// AbandonGame ends an ongoing game and clears the owner's active pointer.
func (s *Store) AbandonGame(ctx context.Context, gameID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE games SET status = 'abandoned' WHERE id = ? AND status = 'ongoing'`, gameID)
		if err != nil {
			return err
		}
		if err := expectRow(res, apperr.KindNotFound, "no ongoing game to abandon"); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET active_game_id = '' WHERE active_game_id = ?`, gameID)
		return err
	})
}

// markSuccess flags an attempt and its unresolved user turn as successful and
// returns the turn's game and position.
func markSuccess(ctx context.Context, tx *sql.Tx, turnID, attemptID string) (string, int, error) {
	var gameID string
	var seq int
	var speaker model.Speaker
	var successful bool
	var status model.GameStatus
	err := tx.QueryRowContext(ctx,
		`SELECT t.game_id, t.seq, t.speaker, t.successful, g.status
		 FROM turns t JOIN games g ON g.id = t.game_id WHERE t.id = ?`, turnID,
	).Scan(&gameID, &seq, &speaker, &successful, &status)
	if err == sql.ErrNoRows {
		return "", 0, apperr.New(apperr.KindNotFound, "turn not found")
	}
	if err != nil {
		return "", 0, err
	}
	if status != model.GameOngoing {
		return "", 0, apperr.New(apperr.KindConflict, "game is "+string(status))
	}
	if speaker != model.SpeakerUser || successful {
		return "", 0, apperr.New(apperr.KindInconsistentState, fmt.Sprintf("turn %d is not an open user turn", seq))
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE attempts SET successful = 1 WHERE id = ? AND turn_id = ?`, attemptID, turnID)
	if err != nil {
		return "", 0, err
	}
	if err := expectRow(res, apperr.KindNotFound, "attempt not found"); err != nil {
		return "", 0, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE turns SET successful = 1 WHERE id = ?`, turnID); err != nil {
		return "", 0, err
	}
	return gameID, seq, nil
}

func insertSystemTurn(ctx context.Context, tx *sql.Tx, gameID string, seq int, line string, now time.Time) (*model.Turn, error) {
	t := &model.Turn{
		ID:            uuid.NewString(),
		GameID:        gameID,
		Seq:           seq,
		Speaker:       model.SpeakerSystem,
		AttemptsCount: 1,
		Successful:    true,
		CreatedAt:     now,
	}
	a := model.Attempt{
		ID:            uuid.NewString(),
		TurnID:        t.ID,
		AttemptNumber: 1,
		Content:       line,
		Successful:    true,
		Timestamp:     now,
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO turns (id, game_id, seq, speaker, attempts_count, successful, created_at)
		 VALUES (?, ?, ?, ?, 1, 1, ?)`,
		t.ID, t.GameID, t.Seq, t.Speaker, t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert system turn: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO attempts (id, turn_id, attempt_number, content, successful, timestamp, time_taken_seconds)
		 VALUES (?, ?, 1, ?, 1, ?, 0)`,
		a.ID, a.TurnID, a.Content, a.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert system attempt: %w", err)
	}
	t.Attempts = []model.Attempt{a}
	return t, nil
}
