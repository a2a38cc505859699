package llm

import "context"

type contextKey string

const purposeKey contextKey = "llm_purpose"

// Purposes attached to gateway calls.
const (
	PurposeJudge        = "judge"
	PurposeGuidance     = "guidance"
	PurposeOpening      = "opening"
	PurposeContinuation = "continuation"
	PurposeWrapUp       = "wrapup"
	PurposeEvaluate     = "evaluate"
)

// WithPurpose attaches a purpose label to the context for logs and traces.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}
