// File: internal/config/deskpilot_config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. Fields are exported so
// viper can unmarshal them directly; access from other packages goes through
// the section structs, never through viper itself.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Planner   PlannerConfig   `mapstructure:"planner" yaml:"planner"`
	Vision    VisionConfig    `mapstructure:"vision" yaml:"vision"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
}

// SessionConfig controls the recording session lifecycle.
type SessionConfig struct {
	// BaseFolder is where session artifacts (images, parsed CSVs, main.csv)
	// are written. Empty means "<user home>/Downloads/screenshots".
	BaseFolder string `mapstructure:"base_folder" yaml:"base_folder"`
	// PointerSampleInterval is the poll rate of the pointer location sampler.
	PointerSampleInterval time.Duration `mapstructure:"pointer_sample_interval" yaml:"pointer_sample_interval"`
}

// SchedulerConfig tunes the capture coalescing scheduler.
type SchedulerConfig struct {
	// CaptureDelay is the debounce delay for click, release and scroll
	// captures.
	CaptureDelay time.Duration `mapstructure:"capture_delay" yaml:"capture_delay"`
	// KeyCaptureDelay is the delay for sparse-typing key captures and the
	// rapid-typing idle checker.
	KeyCaptureDelay time.Duration `mapstructure:"key_capture_delay" yaml:"key_capture_delay"`
	// BurstWindow is the sliding window used to classify typing speed.
	BurstWindow time.Duration `mapstructure:"burst_window" yaml:"burst_window"`
	// BurstThreshold is the key count above which typing counts as rapid.
	BurstThreshold int `mapstructure:"burst_threshold" yaml:"burst_threshold"`
}

// PlannerConfig selects and tunes the planner backend.
type PlannerConfig struct {
	// Provider is "gemini" or "openai".
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
	// Endpoint overrides the provider default API endpoint (tests, proxies).
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	// MaxElapsed bounds the total retry budget for one planner call.
	MaxElapsed  time.Duration `mapstructure:"max_elapsed" yaml:"max_elapsed"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// VisionConfig points at the external capture processing backend.
type VisionConfig struct {
	// ParserURL is the layout parsing endpoint that turns a screenshot into
	// a structured textual description.
	ParserURL  string        `mapstructure:"parser_url" yaml:"parser_url"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	// ThumbnailWidth is the width of the downscaled live preview frame.
	ThumbnailWidth int `mapstructure:"thumbnail_width" yaml:"thumbnail_width"`
}

// ActionConfig tunes the autonomous execution loop.
type ActionConfig struct {
	MaxIterations int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	SettleDelay   time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// ServerConfig configures the control API used by the host shell.
type ServerConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
	// FramePushInterval is how often the websocket frame stream pushes the
	// latest preview frame.
	FramePushInterval time.Duration `mapstructure:"frame_push_interval" yaml:"frame_push_interval"`
	Action            ActionConfig  `mapstructure:"action" yaml:"action"`
}

// SetDefaults registers the default value for every key so that a missing or
// partial config file still yields a runnable configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "deskpilot-cli")
	v.SetDefault("logger.add_source", false)

	v.SetDefault("session.base_folder", "")
	v.SetDefault("session.pointer_sample_interval", 50*time.Millisecond)

	v.SetDefault("scheduler.capture_delay", 750*time.Millisecond)
	v.SetDefault("scheduler.key_capture_delay", time.Second)
	v.SetDefault("scheduler.burst_window", 2*time.Second)
	v.SetDefault("scheduler.burst_threshold", 3)

	v.SetDefault("planner.provider", "gemini")
	v.SetDefault("planner.model", "gemini-2.0-flash")
	v.SetDefault("planner.api_timeout", 120*time.Second)
	v.SetDefault("planner.max_elapsed", 2*time.Minute)
	v.SetDefault("planner.temperature", 0.2)
	v.SetDefault("planner.max_tokens", 1024)

	v.SetDefault("vision.parser_url", "http://localhost:5001/api/processImage")
	v.SetDefault("vision.api_timeout", 120*time.Second)
	v.SetDefault("vision.thumbnail_width", 320)

	v.SetDefault("server.listen", "127.0.0.1:7313")
	v.SetDefault("server.frame_push_interval", 500*time.Millisecond)
	v.SetDefault("server.action.max_iterations", 100)
	v.SetDefault("server.action.settle_delay", 500*time.Millisecond)
}

// ResolveBaseFolder returns the configured session base folder, falling back
// to the user's Downloads directory when unset.
func (s SessionConfig) ResolveBaseFolder() (string, error) {
	if s.BaseFolder != "" {
		return s.BaseFolder, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, "Downloads", "screenshots"), nil
}

// Validate rejects configurations the control core cannot run with.
func (c *Config) Validate() error {
	if c.Scheduler.CaptureDelay <= 0 {
		return fmt.Errorf("scheduler.capture_delay must be positive, got %s", c.Scheduler.CaptureDelay)
	}
	if c.Scheduler.KeyCaptureDelay <= 0 {
		return fmt.Errorf("scheduler.key_capture_delay must be positive, got %s", c.Scheduler.KeyCaptureDelay)
	}
	if c.Scheduler.BurstWindow <= 0 {
		return fmt.Errorf("scheduler.burst_window must be positive, got %s", c.Scheduler.BurstWindow)
	}
	if c.Scheduler.BurstThreshold < 1 {
		return fmt.Errorf("scheduler.burst_threshold must be at least 1, got %d", c.Scheduler.BurstThreshold)
	}
	if c.Server.Action.MaxIterations < 1 {
		return fmt.Errorf("server.action.max_iterations must be at least 1, got %d", c.Server.Action.MaxIterations)
	}
	switch c.Planner.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown planner provider %q", c.Planner.Provider)
	}
	return nil
}
