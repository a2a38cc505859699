package model

import "time"

// PracticeExport is the top-level JSON structure for practice history export.
type PracticeExport struct {
	ExportedAt time.Time    `json:"exported_at"`
	Results    []UserResult `json:"results"`
}

// UserResult holds one user's practice history for export.
type UserResult struct {
	Username    string        `json:"username"`
	DisplayName string        `json:"display_name"`
	Points      int           `json:"points"`
	Baseline    MindsBaseline `json:"baseline"`
	Games       []GameResult  `json:"games"`
}

// GameResult holds per-game data for export.
type GameResult struct {
	GameNumber     int         `json:"game_number"`
	Scenario       string      `json:"scenario"`
	Status         GameStatus  `json:"status"`
	StartedAt      time.Time   `json:"started_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	PointsEarned   *int        `json:"points_earned,omitempty"`
	ErrorsOccurred bool        `json:"errors_occurred"`
	Conversation   []Line      `json:"conversation"`
	Evaluation     *Evaluation `json:"evaluation,omitempty"`
}
