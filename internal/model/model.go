package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level (distinct from Speaker which marks turn authorship).
type UserRole string

const (
	// UserRoleStandard is a learner practicing conversations.
	UserRoleStandard UserRole = "standard"
	// UserRoleStaff can manage baselines, toggle maintenance and re-run evaluations.
	UserRoleStaff UserRole = "staff"
)

// User represents a system user.
type User struct {
	ID           int64         `json:"id"`
	Username     string        `json:"username"`
	DisplayName  string        `json:"display_name"`
	PasswordHash string        `json:"-"`
	Role         UserRole      `json:"role"`
	Active       bool          `json:"active"`
	Points       int           `json:"points"`
	ActiveGameID string        `json:"active_game_id,omitempty"`
	Baseline     MindsBaseline `json:"baseline"`
	CreatedAt    time.Time     `json:"created_at"`
}

// IsStaff reports whether the user holds the staff role.
func (u *User) IsStaff() bool {
	return u != nil && u.Role == UserRoleStaff
}

// MindsBaseline is the staff-entered starting profile for a user. Any metric
// may be unset until staff record an assessment.
type MindsBaseline struct {
	Listening   *float64 `json:"listening,omitempty"`
	EQ          *float64 `json:"eq,omitempty"`
	Tone        *float64 `json:"tone,omitempty"`
	Helpfulness *float64 `json:"helpfulness,omitempty"`
	Clarity     *float64 `json:"clarity,omitempty"`
	Assessment  string   `json:"assessment,omitempty"`
}

// Complete reports whether all five baseline metrics are set.
func (b MindsBaseline) Complete() bool {
	return b.Listening != nil && b.EQ != nil && b.Tone != nil && b.Helpfulness != nil && b.Clarity != nil
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Scenario is a roleplay setting the learner practices in.
type Scenario struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Backstory   string    `json:"backstory"`
	Objectives  string    `json:"objectives"`
	ModelRole   string    `json:"model_role"`
	UserRole    string    `json:"user_role"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ScenarioImport is used for loading scenarios from JSON.
type ScenarioImport struct {
	Name        string `json:"name"`
	Backstory   string `json:"backstory"`
	Objectives  string `json:"objectives"`
	ModelRole   string `json:"model_role"`
	UserRole    string `json:"user_role"`
	Description string `json:"description"`
}

// GameStatus represents the lifecycle state of a practice game.
type GameStatus string

const (
	GameOngoing   GameStatus = "ongoing"
	GameComplete  GameStatus = "complete"
	GameAbandoned GameStatus = "abandoned"
)

// Speaker marks who authored a turn.
type Speaker string

const (
	SpeakerSystem Speaker = "system"
	SpeakerUser   Speaker = "user"
)

// TurnsPerGame is the fixed length of a scripted game: four system turns
// alternating with four user turns.
const TurnsPerGame = 8

// SpeakerForSeq returns the speaker that must author the turn at the given
// 1-based position.
func SpeakerForSeq(seq int) Speaker {
	if seq%2 == 1 {
		return SpeakerSystem
	}
	return SpeakerUser
}

// Game is one practice session of a user on a scenario.
type Game struct {
	ID             string     `json:"id"`
	ScenarioID     string     `json:"scenario_id"`
	UserID         int64      `json:"user_id"`
	Status         GameStatus `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	PointsEarned   *int       `json:"points_earned,omitempty"`
	ErrorsOccurred bool       `json:"errors_occurred"`
}

// Turn is one position in the alternating conversation.
type Turn struct {
	ID            string    `json:"id"`
	GameID        string    `json:"game_id"`
	Seq           int       `json:"seq"`
	Speaker       Speaker   `json:"speaker"`
	AttemptsCount int       `json:"attempts_count"`
	Successful    bool      `json:"successful"`
	CreatedAt     time.Time `json:"created_at"`
	Attempts      []Attempt `json:"attempts,omitempty"`
}

// SuccessfulAttempt returns the attempt that resolved the turn, or nil.
func (t Turn) SuccessfulAttempt() *Attempt {
	for i := range t.Attempts {
		if t.Attempts[i].Successful {
			return &t.Attempts[i]
		}
	}
	return nil
}

// Attempt is one candidate piece of content for a turn.
type Attempt struct {
	ID               string    `json:"id"`
	TurnID           string    `json:"turn_id"`
	AttemptNumber    int       `json:"attempt_number"`
	Content          string    `json:"content"`
	Successful       bool      `json:"successful"`
	Timestamp        time.Time `json:"timestamp"`
	TimeTakenSeconds float64   `json:"time_taken_seconds"`
}

// Evaluation is the whole-conversation assessment of a completed game.
type Evaluation struct {
	ID            string    `json:"id"`
	GameID        string    `json:"game_id"`
	Listening     int       `json:"listening"`
	EQ            int       `json:"eq"`
	Tone          int       `json:"tone"`
	Helpfulness   int       `json:"helpfulness"`
	Clarity       int       `json:"clarity"`
	UserFeedback  string    `json:"user_feedback"`
	StaffFeedback string    `json:"staff_feedback,omitempty"`
	LowConfidence bool      `json:"low_confidence"`
	CreatedAt     time.Time `json:"created_at"`
}

// Metrics returns the five scores in a fixed order.
func (e Evaluation) Metrics() [5]int {
	return [5]int{e.Listening, e.EQ, e.Tone, e.Helpfulness, e.Clarity}
}

// SnapshotOptions controls how much detail a game snapshot carries.
type SnapshotOptions struct {
	IncludeTurns      bool
	IncludeScenario   bool
	IncludeEvaluation bool
}

// GameSnapshot is a read-only projection of a game for clients.
type GameSnapshot struct {
	Game       Game        `json:"game"`
	Scenario   *Scenario   `json:"scenario,omitempty"`
	Turns      []Turn      `json:"turns,omitempty"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
}

// Line is one entry in a rendered conversation transcript.
type Line struct {
	Speaker Speaker `json:"speaker"`
	Label   string  `json:"label"`
	Content string  `json:"content"`
	Retry   bool    `json:"retry,omitempty"`
}
