package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/parley/internal/model"
)

// ExportAll builds export-ready practice history for every standard user.
func (s *Store) ExportAll(ctx context.Context) (*model.PracticeExport, error) {
	users, err := s.ListUsers(ctx, model.UserRoleStandard)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	scenarios, err := s.ListScenarios(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	byID := make(map[string]*model.Scenario, len(scenarios))
	for i := range scenarios {
		byID[scenarios[i].ID] = &scenarios[i]
	}

	out := &model.PracticeExport{ExportedAt: time.Now().UTC(), Results: []model.UserResult{}}
	for _, u := range users {
		games, err := s.ListGamesForUser(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("list games for %s: %w", u.Username, err)
		}

		ur := model.UserResult{
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Points:      u.Points,
			Baseline:    u.Baseline,
			Games:       []model.GameResult{},
		}
		for i, g := range games {
			turns, err := s.ListTurns(ctx, g.ID)
			if err != nil {
				return nil, fmt.Errorf("list turns for game %s: %w", g.ID, err)
			}
			eval, err := s.GetEvaluation(ctx, g.ID)
			if err != nil {
				return nil, fmt.Errorf("get evaluation for game %s: %w", g.ID, err)
			}

			gr := model.GameResult{
				GameNumber:     i + 1,
				Status:         g.Status,
				StartedAt:      g.StartedAt,
				CompletedAt:    g.CompletedAt,
				PointsEarned:   g.PointsEarned,
				ErrorsOccurred: g.ErrorsOccurred,
				Evaluation:     eval,
			}
			sc := byID[g.ScenarioID]
			if sc != nil {
				gr.Scenario = sc.Name
			}
			gr.Conversation = model.Transcript(turns, sc, true)
			ur.Games = append(ur.Games, gr)
		}
		out.Results = append(out.Results, ur)
	}
	return out, nil
}
