package main

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/parley/internal/apperr"
	"github.com/pavelanni/parley/internal/model"
	"github.com/pavelanni/parley/internal/store"
)

//go:embed scenarios.json
var defaultScenarios []byte

const staffUsername = "staff"

// seedStaff creates the first staff account on an empty database.
func seedStaff(ctx context.Context, db *store.Store, password string) error {
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if password == "" {
		return fmt.Errorf("staff password is required: set --staff-password flag or PARLEY_STAFF_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash staff password: %w", err)
	}
	_, err = db.CreateUser(ctx, model.User{
		Username:     staffUsername,
		DisplayName:  "Staff",
		PasswordHash: string(hash),
		Role:         model.UserRoleStaff,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create staff user: %w", err)
	}

	slog.Info("seeded default staff user", "username", staffUsername)
	return nil
}

// seedScenarios adds each built-in scenario that is not already present.
func seedScenarios(ctx context.Context, db *store.Store) error {
	var scenarios []model.ScenarioImport
	if err := json.Unmarshal(defaultScenarios, &scenarios); err != nil {
		return fmt.Errorf("parse built-in scenarios: %w", err)
	}
	for _, si := range scenarios {
		existing, err := db.GetScenario(ctx, si.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := db.InsertScenario(ctx, si); err != nil {
			return fmt.Errorf("insert scenario %q: %w", si.Name, err)
		}
		slog.Info("seeded scenario", "name", si.Name)
	}
	return nil
}

// importScenarios loads scenario files once each. A file whose contents
// changed after it was imported is skipped so existing games keep the
// scenario they were played on.
func importScenarios(ctx context.Context, db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(ctx, path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash {
			slog.Info("scenario file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("scenario file changed since last import, skipping", "path", path)
			continue
		}

		var scenarios []model.ScenarioImport
		if err := json.Unmarshal(data, &scenarios); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		imported := 0
		for _, si := range scenarios {
			_, err := db.InsertScenario(ctx, si)
			switch {
			case apperr.IsKind(err, apperr.KindConflict):
				slog.Warn("scenario already exists, skipping", "path", path, "name", si.Name)
				continue
			case err != nil:
				return fmt.Errorf("insert scenario from %s: %w", path, err)
			}
			imported++
		}

		if err := db.SetImportedFileHash(ctx, path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported scenarios", "path", path, "count", imported)
	}
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
