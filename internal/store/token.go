package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/pavelanni/parley/internal/model"
)

// TokenTTL is how long a login token stays valid.
const TokenTTL = 24 * time.Hour

// IssueToken stores a fresh random login token for the user.
func (s *Store) IssueToken(ctx context.Context, userID int64) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(TokenTTL),
	); err != nil {
		return "", err
	}
	return token, nil
}

// TokenUser returns the user a token was issued to, or nil when the token is
// unknown, expired or its user is gone. Expired tokens are revoked on sight.
func (s *Store) TokenUser(ctx context.Context, token string) (*model.User, error) {
	var (
		userID    int64
		expiresAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(expiresAt) {
		return nil, s.RevokeToken(ctx, token)
	}
	return s.GetUserByID(ctx, userID)
}

// RevokeToken deletes a login token. Unknown tokens are ignored.
func (s *Store) RevokeToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// PurgeExpiredTokens deletes every expired login token and reports how many
// went.
func (s *Store) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
