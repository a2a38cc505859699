package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'standard',
		active INTEGER NOT NULL DEFAULT 1,
		points INTEGER NOT NULL DEFAULT 0,
		active_game_id TEXT NOT NULL DEFAULT '',
		minds_listening REAL,
		minds_eq REAL,
		minds_tone REAL,
		minds_helpfulness REAL,
		minds_clarity REAL,
		minds_assessment TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS scenarios (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		backstory TEXT NOT NULL DEFAULT '',
		objectives TEXT NOT NULL DEFAULT '',
		model_role TEXT NOT NULL,
		user_role TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		scenario_id TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'ongoing',
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		points_earned INTEGER,
		errors_occurred INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (scenario_id) REFERENCES scenarios(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS games_one_ongoing_per_user
		ON games(user_id) WHERE status = 'ongoing';

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		speaker TEXT NOT NULL,
		attempts_count INTEGER NOT NULL DEFAULT 0,
		successful INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		UNIQUE (game_id, seq),
		FOREIGN KEY (game_id) REFERENCES games(id)
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		turn_id TEXT NOT NULL,
		attempt_number INTEGER NOT NULL,
		content TEXT NOT NULL,
		successful INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME NOT NULL,
		time_taken_seconds REAL NOT NULL DEFAULT 0,
		UNIQUE (turn_id, attempt_number),
		FOREIGN KEY (turn_id) REFERENCES turns(id)
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL UNIQUE,
		listening INTEGER NOT NULL,
		eq INTEGER NOT NULL,
		tone INTEGER NOT NULL,
		helpfulness INTEGER NOT NULL,
		clarity INTEGER NOT NULL,
		user_feedback TEXT NOT NULL DEFAULT '',
		staff_feedback TEXT NOT NULL DEFAULT '',
		low_confidence INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (game_id) REFERENCES games(id)
	);

	CREATE TABLE IF NOT EXISTS app_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

const busyRetryDelay = 50 * time.Millisecond

// retryBusy runs fn again once if SQLite reported the database busy.
func retryBusy(ctx context.Context, fn func() error) error {
	err := fn()
	if !isBusy(err) {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(busyRetryDelay):
	}
	return fn()
}

func sqliteCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

func isBusy(err error) bool {
	switch sqliteCode(err) & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func isUniqueViolation(err error) bool {
	code := sqliteCode(err)
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
