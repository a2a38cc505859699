package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/parley/internal/apperr"
	"github.com/pavelanni/parley/internal/llm"
	"github.com/pavelanni/parley/internal/llm/prompts"
	"github.com/pavelanni/parley/internal/model"
	"github.com/pavelanni/parley/internal/proficiency"
)

func retailScenario() *model.Scenario {
	return &model.Scenario{
		ID:         "retail",
		Name:       "Retail Customer Service",
		Backstory:  "A customer is looking for a shirt.",
		Objectives: "Help the customer.",
		ModelRole:  "customer",
		UserRole:   "retail worker",
	}
}

func openingTranscript() []model.Line {
	return []model.Line{{Speaker: model.SpeakerSystem, Label: "customer", Content: "Do you have this in medium?"}}
}

func TestJudgeAttemptAppropriate(t *testing.T) {
	mock := llm.NewMockProvider(llm.TextResponse(`{"appropriate":true,"guidance":""}`))
	g := NewLLM(mock, 0)

	j, err := g.JudgeAttempt(context.Background(), openingTranscript(), "Let me check.", retailScenario(), proficiency.TierMedium)
	require.NoError(t, err)
	assert.True(t, j.Appropriate)
	assert.Empty(t, j.Guidance)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Equal(t, prompts.AppContext, req.System)
	require.NotNil(t, req.Schema)
	assert.Contains(t, req.Messages[0].Content, "Let me check.")
	assert.Equal(t, []string{llm.PurposeJudge}, mock.Purposes)
}

func TestJudgeAttemptInappropriateWithGuidance(t *testing.T) {
	mock := llm.NewMockProvider(llm.TextResponse("```json\n{\"appropriate\":false,\"guidance\":\"Answer the question about sizes.\"}\n```"))
	g := NewLLM(mock, 0)

	j, err := g.JudgeAttempt(context.Background(), openingTranscript(), "I like pizza.", retailScenario(), proficiency.TierEasy)
	require.NoError(t, err)
	assert.False(t, j.Appropriate)
	assert.Equal(t, "Answer the question about sizes.", j.Guidance)
	assert.Equal(t, 1, mock.CallCount())
}

func TestJudgeAttemptFetchesMissingGuidance(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.TextResponse(`{"appropriate":false,"guidance":"N/A"}`),
		llm.TextResponse("Tell the customer whether the shirt is in stock."),
	)
	g := NewLLM(mock, 0)

	j, err := g.JudgeAttempt(context.Background(), openingTranscript(), "I like pizza.", retailScenario(), proficiency.TierHard)
	require.NoError(t, err)
	assert.False(t, j.Appropriate)
	assert.Equal(t, "Tell the customer whether the shirt is in stock.", j.Guidance)
	assert.Equal(t, []string{llm.PurposeJudge, llm.PurposeGuidance}, mock.Purposes)
}

func TestJudgeAttemptNoGuidanceAtAll(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.TextResponse(`{"appropriate":false,"guidance":""}`),
		llm.TextResponse("  "),
	)
	g := NewLLM(mock, 0)

	_, err := g.JudgeAttempt(context.Background(), openingTranscript(), "I like pizza.", retailScenario(), proficiency.TierEasy)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindExternalCall))
}

func TestJudgeAttemptMalformedJSON(t *testing.T) {
	mock := llm.NewMockProvider(llm.TextResponse(`{"verdict":"yes"}`))
	g := NewLLM(mock, 0)

	_, err := g.JudgeAttempt(context.Background(), openingTranscript(), "Sure.", retailScenario(), proficiency.TierEasy)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindExternalCall))
}

func TestGenerateLines(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.TextResponse(`"Hi, do you have this shirt in medium?"`),
		llm.TextResponse("Great, can I try it on?"),
		llm.TextResponse("Thanks, I'll take it. Bye!"),
	)
	g := NewLLM(mock, 0)
	ctx := context.Background()
	sc := retailScenario()

	opening, err := g.GenerateOpening(ctx, sc, proficiency.TierEasy)
	require.NoError(t, err)
	assert.Equal(t, "Hi, do you have this shirt in medium?", opening)

	next, err := g.GenerateContinuation(ctx, openingTranscript(), sc, proficiency.TierMedium)
	require.NoError(t, err)
	assert.Equal(t, "Great, can I try it on?", next)

	last, err := g.GenerateWrapUp(ctx, openingTranscript(), sc, proficiency.TierHard)
	require.NoError(t, err)
	assert.Equal(t, "Thanks, I'll take it. Bye!", last)

	assert.Equal(t, []string{llm.PurposeOpening, llm.PurposeContinuation, llm.PurposeWrapUp}, mock.Purposes)
	assert.Equal(t, lineTokens[proficiency.TierEasy], mock.Calls[0].MaxTokens)
	assert.Equal(t, lineTokens[proficiency.TierHard], mock.Calls[2].MaxTokens)
	assert.InDelta(t, temperature, mock.Calls[1].Temperature, 1e-9)
}

func TestGenerateEmptyLine(t *testing.T) {
	mock := llm.NewMockProvider(llm.TextResponse(""))
	g := NewLLM(mock, 0)

	_, err := g.GenerateOpening(context.Background(), retailScenario(), proficiency.TierEasy)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindExternalCall))
}

func TestProviderErrorIsExternalCall(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.Error{Failure: llm.FailureUnavailable, Err: errors.New("down")}})
	g := NewLLM(mock, 0)

	_, err := g.GenerateContinuation(context.Background(), openingTranscript(), retailScenario(), proficiency.TierEasy)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindExternalCall))

	f, ok := llm.FailureOf(err)
	assert.True(t, ok)
	assert.Equal(t, llm.FailureUnavailable, f)
}

func TestDisabledGateway(t *testing.T) {
	g := NewLLM(nil, 0)
	assert.False(t, g.Available())

	_, err := g.GenerateOpening(context.Background(), retailScenario(), proficiency.TierEasy)
	assert.True(t, apperr.IsKind(err, apperr.KindServiceUnavailable))

	_, err = g.EvaluateConversation(context.Background(), openingTranscript(), retailScenario())
	assert.True(t, apperr.IsKind(err, apperr.KindServiceUnavailable))
}

func TestEvaluateConversation(t *testing.T) {
	mock := llm.NewMockProvider(llm.TextResponse("72|65|80|70|90|Nice job staying friendly.|Strong tone, listening can improve."))
	g := NewLLM(mock, 0)

	ev, err := g.EvaluateConversation(context.Background(), openingTranscript(), retailScenario())
	require.NoError(t, err)
	assert.Equal(t, 72, ev.Listening)
	assert.Equal(t, 65, ev.EQ)
	assert.Equal(t, 80, ev.Tone)
	assert.Equal(t, 70, ev.Helpfulness)
	assert.Equal(t, 90, ev.Clarity)
	assert.Equal(t, "Nice job staying friendly.", ev.UserFeedback)
	assert.False(t, ev.LowConfidence)
	assert.Equal(t, evaluateMaxTokens, mock.Calls[0].MaxTokens)

	stored := ev.Evaluation("g1")
	assert.Equal(t, "g1", stored.GameID)
	assert.Equal(t, [5]int{72, 65, 80, 70, 90}, stored.Metrics())
}

func TestRenderTranscript(t *testing.T) {
	got := RenderTranscript([]model.Line{
		{Label: "customer", Content: "Hello"},
		{Label: "retail worker", Content: "Hi, welcome!"},
	})
	assert.Equal(t, "customer: Hello\nretail worker: Hi, welcome!", got)
	assert.Empty(t, RenderTranscript(nil))
}
