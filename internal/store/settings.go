package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"
)

const usageLockKey = "usage_lock"

// SetSetting upserts a key-value pair in app_settings.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetSetting returns the value for a key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// UsageLocked reports whether the maintenance lock is on.
func (s *Store) UsageLocked(ctx context.Context) (bool, error) {
	v, err := s.GetSetting(ctx, usageLockKey)
	if err != nil || v == "" {
		return false, err
	}
	return strconv.ParseBool(v)
}

// SetUsageLocked turns the maintenance lock on or off.
func (s *Store) SetUsageLocked(ctx context.Context, locked bool) error {
	return s.SetSetting(ctx, usageLockKey, strconv.FormatBool(locked))
}

// GetImportedFileHash returns the content hash recorded for path, or "".
func (s *Store) GetImportedFileHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records that path was imported with the given hash.
func (s *Store) SetImportedFileHash(ctx context.Context, path, hash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO imported_files (path, hash, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, imported_at = excluded.imported_at`,
		path, hash, time.Now().UTC(),
	)
	return err
}
