// File: internal/planner/openai.go
package planner

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/config"
)

// OpenAIPlanner drives an OpenAI-compatible chat completion endpoint.
type OpenAIPlanner struct {
	client *openai.Client
	logger *zap.Logger
	config config.PlannerConfig
}

var _ Planner = (*OpenAIPlanner)(nil)

// NewOpenAIPlanner initializes the client. A non-empty Endpoint overrides the
// default base URL, which allows local OpenAI-compatible servers.
func NewOpenAIPlanner(cfg config.PlannerConfig, logger *zap.Logger) (*OpenAIPlanner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}

	return &OpenAIPlanner{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger.Named("planner.openai"),
		config: cfg,
	}, nil
}

func (p *OpenAIPlanner) NextAction(ctx context.Context, req Request) (string, error) {
	if p.config.APITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.APITimeout)
		defer cancel()
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai API returned no choices")
	}

	p.logger.Info("Planner turn complete (OpenAI)",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}
