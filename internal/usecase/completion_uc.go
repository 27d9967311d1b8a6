// File: internal/usecase/completion_uc.go
package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"activation-gateway/internal/domain"
	"activation-gateway/internal/domain/ports/adapter"
	"activation-gateway/internal/infra/logging"
	"activation-gateway/internal/infra/metrics"
)

// Compile-time check
var _ CompletionUseCase = (*completionUC)(nil)

// CompletionUseCase runs the protected downstream capability for callers that
// already passed the access guard. The payload is opaque to the activation
// core; failures here are service errors, not authorization failures.
type CompletionUseCase interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type completionUC struct {
	ai           adapter.AIServiceAdapter
	defaultModel string
	log          *zerolog.Logger
}

func NewCompletionUseCase(ai adapter.AIServiceAdapter, defaultModel string, logger *zerolog.Logger) *completionUC {
	return &completionUC{ai: ai, defaultModel: defaultModel, log: logger}
}

func (c *completionUC) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", domain.ErrInvalidArgument
	}

	l := logging.With(ctx, c.log)
	start := time.Now()
	answer, err := c.ai.Chat(ctx, c.defaultModel, []adapter.Message{
		{Role: "user", Content: prompt},
	})
	metrics.ObserveAICall(c.defaultModel, time.Since(start), err == nil)
	if err != nil {
		l.Error().Err(err).Str("model", c.defaultModel).Msg("downstream AI call failed")
		return "", err
	}
	return answer, nil
}
