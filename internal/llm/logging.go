package llm

import (
	"context"
	"log/slog"
	"time"
)

// LoggingProvider is a decorator that records every LLM request with slog.
type LoggingProvider struct {
	inner  Provider
	logger *slog.Logger
}

// WithLogging wraps a Provider with request logging. A nil logger uses
// slog.Default.
func WithLogging(p Provider, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProvider{inner: p, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	attrs := []any{
		"purpose", PurposeFrom(ctx),
		"model", l.inner.ModelID(),
		"latency_ms", time.Since(start).Milliseconds(),
		"structured", req.Schema != nil,
	}
	if resp != nil {
		attrs = append(attrs,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"stop_reason", resp.StopReason,
		)
	}
	if err != nil {
		l.logger.WarnContext(ctx, "LLM request failed", append(attrs, "error", err)...)
		return nil, err
	}
	l.logger.DebugContext(ctx, "LLM request", attrs...)
	return resp, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
