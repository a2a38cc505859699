// Package gateway is the capability boundary between the practice engine and
// the language model: judging learner replies, voicing the scenario's other
// speaker, and evaluating finished conversations.
package gateway

import (
	"context"

	"github.com/pavelanni/parley/internal/model"
	"github.com/pavelanni/parley/internal/proficiency"
)

// Judgment is the verdict on one learner attempt. Guidance is non-empty
// whenever Appropriate is false.
type Judgment struct {
	Appropriate bool
	Guidance    string
}

// ConversationEvaluation is the parsed whole-conversation assessment.
type ConversationEvaluation struct {
	Listening     int
	EQ            int
	Tone          int
	Helpfulness   int
	Clarity       int
	UserFeedback  string
	StaffFeedback string
	// LowConfidence is set when the response had to be patched with
	// defaults to fit the expected shape.
	LowConfidence bool
}

// Evaluation converts the result into a model.Evaluation for gameID.
func (c ConversationEvaluation) Evaluation(gameID string) model.Evaluation {
	return model.Evaluation{
		GameID:        gameID,
		Listening:     c.Listening,
		EQ:            c.EQ,
		Tone:          c.Tone,
		Helpfulness:   c.Helpfulness,
		Clarity:       c.Clarity,
		UserFeedback:  c.UserFeedback,
		StaffFeedback: c.StaffFeedback,
		LowConfidence: c.LowConfidence,
	}
}

// Gateway is implemented by the language-model backed LLM type and by test
// fakes. Every method fails with an apperr of kind ServiceUnavailable when the
// model is disabled and ExternalCall when the provider call fails.
type Gateway interface {
	JudgeAttempt(ctx context.Context, transcript []model.Line, reply string, sc *model.Scenario, tier proficiency.Tier) (Judgment, error)
	GenerateOpening(ctx context.Context, sc *model.Scenario, tier proficiency.Tier) (string, error)
	GenerateContinuation(ctx context.Context, transcript []model.Line, sc *model.Scenario, tier proficiency.Tier) (string, error)
	GenerateWrapUp(ctx context.Context, transcript []model.Line, sc *model.Scenario, tier proficiency.Tier) (string, error)
	EvaluateConversation(ctx context.Context, transcript []model.Line, sc *model.Scenario) (ConversationEvaluation, error)
	// Available reports whether calls can be made at all.
	Available() bool
}
