package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/soralis/avatarchat/internal/config"
)

// Service wraps the chat-completion model behind a compiled prompt chain.
type Service struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger zerolog.Logger
}

// NewService creates the completion service. Sampling temperature and the
// output token bound come from the model configuration.
func NewService(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chain:  runnable,
		logger: logger.With().Str("component", "ai").Logger(),
	}, nil
}

// Complete sends the fixed persona instruction plus the user message and
// returns the raw reply text.
func (s *Service) Complete(ctx context.Context, userMessage string) (string, error) {
	input := map[string]any{
		"system": personaInstruction,
		"query":  userMessage,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run completion chain: %w", err)
	}

	s.logger.Debug().Int("length", len(response.Content)).Msg("completion received")
	return response.Content, nil
}
