package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/pavelanni/parley/internal/apperr"
	"github.com/pavelanni/parley/internal/model"
)

const userColumns = `id, username, display_name, password_hash, role, active, points, active_game_id,
	minds_listening, minds_eq, minds_tone, minds_helpfulness, minds_clarity, minds_assessment, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	b := &u.Baseline
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Role, &u.Active, &u.Points, &u.ActiveGameID,
		&b.Listening, &b.EQ, &b.Tone, &b.Helpfulness, &b.Clarity, &b.Assessment, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, u model.User) (int64, error) {
	if u.Role == "" {
		u.Role = model.UserRoleStandard
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, display_name, password_hash, role, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.DisplayName, u.PasswordHash, u.Role, u.Active, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperr.Wrap(apperr.KindConflict, "username already taken", err)
		}
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "username", u.Username, "role", u.Role)
	return id, nil
}

// GetUserByUsername returns a user by username, or nil if there is none.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUserByID returns a user by ID, or nil if there is none.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// ListUsers returns all users, optionally restricted to one role.
func (s *Store) ListUsers(ctx context.Context, role model.UserRole) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, role)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UserCount returns the total number of users.
func (s *Store) UserCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// AddPoints adds amount, which may be negative, to the user's running total.
func (s *Store) AddPoints(ctx context.Context, userID int64, amount int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET points = points + ? WHERE id = ?`, amount, userID)
	if err != nil {
		return err
	}
	return expectRow(res, apperr.KindNotFound, "user not found")
}

// SetBaseline records the staff-entered MINDS baseline for a user.
func (s *Store) SetBaseline(ctx context.Context, username string, b model.MindsBaseline) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET minds_listening = ?, minds_eq = ?, minds_tone = ?, minds_helpfulness = ?,
		 minds_clarity = ?, minds_assessment = ? WHERE username = ?`,
		b.Listening, b.EQ, b.Tone, b.Helpfulness, b.Clarity, b.Assessment, username,
	)
	if err != nil {
		return err
	}
	return expectRow(res, apperr.KindNotFound, "user not found")
}

// ClearBaseline removes a user's MINDS baseline.
func (s *Store) ClearBaseline(ctx context.Context, username string) error {
	return s.SetBaseline(ctx, username, model.MindsBaseline{})
}

// SetUserActive bans or reinstates a user by username.
func (s *Store) SetUserActive(ctx context.Context, username string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET active = ? WHERE username = ?`, active, username)
	if err != nil {
		return err
	}
	return expectRow(res, apperr.KindNotFound, "user not found")
}

// ClearActiveGame resets the user's active game pointer.
func (s *Store) ClearActiveGame(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET active_game_id = '' WHERE id = ?`, userID)
	return err
}

// expectRow turns an update that touched nothing into a domain error.
func expectRow(res sql.Result, kind apperr.Kind, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(kind, msg)
	}
	return nil
}
