package gateway

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/parley/internal/apperr"
	"github.com/pavelanni/parley/internal/llm"
	"github.com/pavelanni/parley/internal/llm/prompts"
	"github.com/pavelanni/parley/internal/model"
	"github.com/pavelanni/parley/internal/proficiency"
)

const (
	judgeMaxTokens    = 200
	evaluateMaxTokens = 700
	temperature       = 0.5
)

// lineTokens caps spoken lines and guidance by tier.
var lineTokens = map[proficiency.Tier]int{
	proficiency.TierEasy:   120,
	proficiency.TierMedium: 200,
	proficiency.TierHard:   320,
}

var judgmentSchema = &llm.Schema{
	Name:        "attempt-judgment",
	Description: "Whether a learner reply fits the conversation, with a hint when it does not",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"appropriate": map[string]any{"type": "boolean"},
			"guidance":    map[string]any{"type": "string"},
		},
		"required":             []string{"appropriate", "guidance"},
		"additionalProperties": false,
	},
}

// placeholders models sometimes emit instead of real guidance.
var placeholderGuidance = map[string]bool{
	"":     true,
	"-":    true,
	"n/a":  true,
	"na":   true,
	"none": true,
	"null": true,
}

// LLM is the Gateway backed by a language model provider.
type LLM struct {
	provider llm.Provider
	timeout  time.Duration
}

// NewLLM creates a gateway over p. A nil provider yields a gateway that
// reports every call as unavailable.
func NewLLM(p llm.Provider, timeout time.Duration) *LLM {
	return &LLM{provider: p, timeout: timeout}
}

// Available reports whether a provider is configured.
func (g *LLM) Available() bool {
	return g != nil && g.provider != nil
}

func (g *LLM) JudgeAttempt(ctx context.Context, transcript []model.Line, reply string, sc *model.Scenario, tier proficiency.Tier) (Judgment, error) {
	data := promptData(sc, transcript)
	data.Reply = reply

	prompt, err := prompts.Build(variantFor(tier), prompts.KindJudge, data)
	if err != nil {
		return Judgment{}, apperr.Wrap(apperr.KindInternal, "build judge prompt", err)
	}
	resp, err := g.generate(ctx, llm.PurposeJudge, prompt, judgmentSchema, judgeMaxTokens)
	if err != nil {
		return Judgment{}, err
	}

	var out struct {
		Appropriate bool   `json:"appropriate"`
		Guidance    string `json:"guidance"`
	}
	if err := llm.Decode(judgmentSchema, resp, &out); err != nil {
		return Judgment{}, apperr.Wrap(apperr.KindExternalCall, "decode judgment", err)
	}
	if out.Appropriate {
		return Judgment{Appropriate: true}, nil
	}

	guidance := strings.TrimSpace(out.Guidance)
	if isPlaceholder(guidance) {
		// The judge call gave no usable hint; ask for one on its own.
		guidance, err = g.line(ctx, llm.PurposeGuidance, prompts.KindGuidance, data, tier)
		if err != nil {
			return Judgment{}, err
		}
		if isPlaceholder(guidance) {
			return Judgment{}, apperr.New(apperr.KindExternalCall, "language model returned no guidance for a rejected reply")
		}
	}
	return Judgment{Appropriate: false, Guidance: guidance}, nil
}

func (g *LLM) GenerateOpening(ctx context.Context, sc *model.Scenario, tier proficiency.Tier) (string, error) {
	return g.line(ctx, llm.PurposeOpening, prompts.KindOpening, promptData(sc, nil), tier)
}

func (g *LLM) GenerateContinuation(ctx context.Context, transcript []model.Line, sc *model.Scenario, tier proficiency.Tier) (string, error) {
	return g.line(ctx, llm.PurposeContinuation, prompts.KindContinuation, promptData(sc, transcript), tier)
}

func (g *LLM) GenerateWrapUp(ctx context.Context, transcript []model.Line, sc *model.Scenario, tier proficiency.Tier) (string, error) {
	return g.line(ctx, llm.PurposeWrapUp, prompts.KindWrapUp, promptData(sc, transcript), tier)
}

func (g *LLM) EvaluateConversation(ctx context.Context, transcript []model.Line, sc *model.Scenario) (ConversationEvaluation, error) {
	prompt, err := prompts.BuildEvaluation(promptData(sc, transcript))
	if err != nil {
		return ConversationEvaluation{}, apperr.Wrap(apperr.KindInternal, "build evaluation prompt", err)
	}
	resp, err := g.generate(ctx, llm.PurposeEvaluate, prompt, nil, evaluateMaxTokens)
	if err != nil {
		return ConversationEvaluation{}, err
	}

	eval := ParseEvaluation(resp.Text())
	if eval.LowConfidence {
		slog.Warn("conversation evaluation did not match the expected format",
			"scenario", sc.Name, "raw", resp.Text())
	}
	return eval, nil
}

// line generates one spoken line or hint and rejects empty output.
func (g *LLM) line(ctx context.Context, purpose string, kind prompts.Kind, data prompts.Data, tier proficiency.Tier) (string, error) {
	prompt, err := prompts.Build(variantFor(tier), kind, data)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "build "+purpose+" prompt", err)
	}
	resp, err := g.generate(ctx, purpose, prompt, nil, maxTokensFor(tier))
	if err != nil {
		return "", err
	}
	text := cleanLine(resp.Text())
	if text == "" {
		return "", apperr.New(apperr.KindExternalCall, "language model returned an empty "+purpose)
	}
	return text, nil
}

func (g *LLM) generate(ctx context.Context, purpose, prompt string, schema *llm.Schema, maxTokens int) (*llm.Response, error) {
	if !g.Available() {
		return nil, apperr.New(apperr.KindServiceUnavailable, "language model is disabled")
	}
	ctx = llm.WithPurpose(ctx, purpose)
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	temp := temperature
	if schema != nil {
		temp = 0
	}
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      prompts.AppContext,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Schema:      schema,
		MaxTokens:   maxTokens,
		Temperature: temp,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalCall, purpose+" call failed", err)
	}
	return resp, nil
}

func promptData(sc *model.Scenario, transcript []model.Line) prompts.Data {
	return prompts.Data{
		ScenarioName: sc.Name,
		Backstory:    sc.Backstory,
		Objectives:   sc.Objectives,
		ModelRole:    sc.ModelRole,
		UserRole:     sc.UserRole,
		Transcript:   RenderTranscript(transcript),
	}
}

// RenderTranscript formats lines as "label: content", one per line.
func RenderTranscript(lines []model.Line) string {
	var sb strings.Builder
	for i, l := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l.Label)
		sb.WriteString(": ")
		sb.WriteString(l.Content)
	}
	return sb.String()
}

func variantFor(tier proficiency.Tier) prompts.Variant {
	if !tier.Valid() {
		return prompts.VariantEasy
	}
	return prompts.Variant(tier)
}

func maxTokensFor(tier proficiency.Tier) int {
	if n, ok := lineTokens[tier]; ok {
		return n
	}
	return lineTokens[proficiency.TierEasy]
}

func isPlaceholder(s string) bool {
	return placeholderGuidance[strings.ToLower(strings.Trim(s, " .\"'"))]
}

// cleanLine drops wrapping quotes the model may add despite instructions.
func cleanLine(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
