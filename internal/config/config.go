// Package config provides configuration types and loading for parlor.
package config

import (
	"os"
	"path/filepath"

	"github.com/parlor/parlor/internal/autochat"
	"github.com/parlor/parlor/internal/channels"
	"github.com/parlor/parlor/internal/quota"
)

// Config is the root configuration struct.
// Top-level groups: Paths, Model, Providers, Roster, Sinks, Quota, AutoChat.
type Config struct {
	Paths     PathsConfig             `json:"paths"`
	Model     ModelConfig             `json:"model"`
	Providers ProvidersConfig         `json:"providers"`
	Roster    RosterConfig            `json:"roster"`
	Sinks     SinksConfig             `json:"sinks"`
	Quota     map[string]quota.Limits `json:"quota,omitempty"`
	AutoChat  autochat.Config         `json:"autoChat"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	Workspace string `json:"workspace" envconfig:"WORKSPACE"`
	DBPath    string `json:"dbPath" envconfig:"DB_PATH"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups LLM model and turn-loop settings.
type ModelConfig struct {
	Name              string  `json:"name" envconfig:"MODEL"`
	MaxTokens         int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature       float64 `json:"temperature" envconfig:"TEMPERATURE"`
	MaxToolIterations int     `json:"maxToolIterations" envconfig:"MAX_TOOL_ITERATIONS"`
	HistoryWindow     int     `json:"historyWindow" envconfig:"HISTORY_WINDOW"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	OpenAI ProviderConfig `json:"openai"`
}

// ProviderConfig contains settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// Roster – configured agents and channels, synced into the store on start
// ---------------------------------------------------------------------------

// RosterConfig declares the agents and channels parlor manages.
type RosterConfig struct {
	Agents   []AgentSeed   `json:"agents,omitempty"`
	Channels []ChannelSeed `json:"channels,omitempty"`
}

// AgentSeed describes one configured agent.
type AgentSeed struct {
	Name        string   `json:"name"`
	Persona     string   `json:"persona"`
	Model       string   `json:"model,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Tools       []string `json:"tools,omitempty"`
	Disabled    bool     `json:"disabled,omitempty"`
}

// ChannelSeed describes one configured channel.
type ChannelSeed struct {
	Name             string   `json:"name"`
	Type             string   `json:"type"` // "group", "agents", "human"
	Members          []string `json:"members"`
	AutoEnabled      bool     `json:"autoEnabled,omitempty"`
	AutoIntervalSecs int      `json:"autoIntervalSecs,omitempty"`
	AutoJitterSecs   int      `json:"autoJitterSecs,omitempty"`
}

// ---------------------------------------------------------------------------
// Sinks – outbound event surfaces
// ---------------------------------------------------------------------------

// SinksConfig contains all sink configurations.
type SinksConfig struct {
	Slack channels.SlackConfig `json:"slack"`
	Kafka channels.KafkaConfig `json:"kafka"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Paths: PathsConfig{
			Workspace: filepath.Join(home, ".parlor"),
			DBPath:    filepath.Join(home, ".parlor", "parlor.db"),
		},
		Model: ModelConfig{
			Name:              "gpt-4o-mini",
			MaxTokens:         4096,
			Temperature:       0.7,
			MaxToolIterations: 4,
			HistoryWindow:     50,
		},
		AutoChat: autochat.DefaultConfig(),
	}
}
