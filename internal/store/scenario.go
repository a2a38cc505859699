package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/parley/internal/apperr"
	"github.com/pavelanni/parley/internal/model"
)

const scenarioColumns = `id, name, backstory, objectives, model_role, user_role, description, created_at`

func scanScenario(row rowScanner) (*model.Scenario, error) {
	var sc model.Scenario
	err := row.Scan(&sc.ID, &sc.Name, &sc.Backstory, &sc.Objectives, &sc.ModelRole, &sc.UserRole, &sc.Description, &sc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// InsertScenario stores a scenario and returns its ID. A scenario whose name
// already exists is rejected with a Conflict error.
func (s *Store) InsertScenario(ctx context.Context, si model.ScenarioImport) (string, error) {
	if si.Name == "" || si.ModelRole == "" || si.UserRole == "" {
		return "", apperr.New(apperr.KindValidation, "scenario needs a name and both role labels")
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scenarios (`+scenarioColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, si.Name, si.Backstory, si.Objectives, si.ModelRole, si.UserRole, si.Description, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", apperr.Wrap(apperr.KindConflict, "scenario "+si.Name+" already exists", err)
		}
		return "", err
	}
	return id, nil
}

// GetScenario returns a scenario by ID or, failing that, by name. It returns
// nil when neither matches.
func (s *Store) GetScenario(ctx context.Context, ref string) (*model.Scenario, error) {
	sc, err := scanScenario(s.db.QueryRowContext(ctx,
		`SELECT `+scenarioColumns+` FROM scenarios WHERE id = ? OR name = ? ORDER BY id = ? DESC LIMIT 1`,
		ref, ref, ref))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sc, err
}

// ListScenarios returns all scenarios ordered by name.
func (s *Store) ListScenarios(ctx context.Context) ([]model.Scenario, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scenarioColumns+` FROM scenarios ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []model.Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *sc)
	}
	return list, rows.Err()
}

// ScenarioCount returns the number of scenarios.
func (s *Store) ScenarioCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenarios`).Scan(&count)
	return count, err
}
