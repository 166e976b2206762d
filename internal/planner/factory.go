// File: internal/planner/factory.go
package planner

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/config"
)

// Supported provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// New is a factory function that creates a Planner based on the configuration.
func New(cfg config.PlannerConfig, logger *zap.Logger) (Planner, error) {
	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiPlanner(cfg, logger)
	case ProviderOpenAI:
		return NewOpenAIPlanner(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported planner provider configured: %q. Supported: [%s, %s]", cfg.Provider, ProviderGemini, ProviderOpenAI)
	}
}
