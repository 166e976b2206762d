// File: cmd/cmd_test.go
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot-cli/internal/config"
	"github.com/xkilldash9x/deskpilot-cli/internal/planner"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["record"])
	assert.True(t, names["act"])
	assert.True(t, names["serve"])
}

func TestRootCommandHasConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestBuildPlannerResolvesEnvCredential(t *testing.T) {
	c := &config.Config{}
	c.Planner = config.PlannerConfig{Provider: planner.ProviderGemini, Model: "gemini-2.0-flash"}

	_, err := buildPlanner(c, zap.NewNop())
	require.Error(t, err, "no key anywhere")

	t.Setenv("GEMINI_API_KEY", "from-env")
	p, err := buildPlanner(c, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestBuildPlannerPrefersConfiguredKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	c := &config.Config{}
	c.Planner = config.PlannerConfig{Provider: planner.ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "config-key"}

	p, err := buildPlanner(c, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, p)
}
