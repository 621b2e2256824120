package config

import (
	"os"
	"path/filepath"
)

// QualityPreset describes the models to use for a given quality tier.
type QualityPreset struct {
	Model          string
	EmbeddingModel string
}

// qualityPresets maps each provider+quality combination to its model choices.
var qualityPresets = map[ProviderType]map[QualityTier]QualityPreset{
	ProviderAnthropic: {
		QualityLite:   {Model: "claude-haiku-4-5-20251001", EmbeddingModel: "text-embedding-3-small"},
		QualityNormal: {Model: "claude-sonnet-4-5-20250929", EmbeddingModel: "text-embedding-3-small"},
		QualityMax:    {Model: "claude-opus-4-6", EmbeddingModel: "text-embedding-3-large"},
	},
	ProviderOpenAI: {
		QualityLite:   {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
		QualityNormal: {Model: "gpt-4o", EmbeddingModel: "text-embedding-3-small"},
		QualityMax:    {Model: "gpt-4", EmbeddingModel: "text-embedding-3-large"},
	},
	ProviderOpenRouter: {
		QualityLite:   {Model: "minimax/minimax-m2.5", EmbeddingModel: "text-embedding-3-small"},
		QualityNormal: {Model: "minimax/minimax-m2.5", EmbeddingModel: "text-embedding-3-small"},
		QualityMax:    {Model: "anthropic/claude-sonnet-4.5", EmbeddingModel: "text-embedding-3-large"},
	},
	ProviderOllama: {
		QualityLite:   {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
		QualityNormal: {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
		QualityMax:    {Model: "llama3:70b", EmbeddingModel: "nomic-embed-text"},
	},
}

// DefaultDataDir is where tempo keeps its database and vector store when
// the config does not say otherwise.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tempo"
	}
	return filepath.Join(home, ".tempo")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderAnthropic,
		Model:             "claude-sonnet-4-5-20250929",
		Quality:           QualityNormal,
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		DataDir:           DefaultDataDir(),
		Agent: AgentConfig{
			MaxIterations: 8,
			Permission:    "admin",
		},
		Hours: HoursConfig{
			WorkStart:    9,
			WorkEnd:      17,
			FocusMinutes: 50,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		MCP: MCPConfig{
			Permission: "read",
		},
	}
}

// GetPreset returns the quality preset for the given provider and tier.
// Returns the Normal Anthropic preset if the combination is not found.
func GetPreset(provider ProviderType, tier QualityTier) QualityPreset {
	if tiers, ok := qualityPresets[provider]; ok {
		if preset, ok := tiers[tier]; ok {
			return preset
		}
	}
	return qualityPresets[ProviderAnthropic][QualityNormal]
}

// DatabasePath is the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "tempo.db")
}

// VectorDir is where the pattern memory persists its collections.
func (c *Config) VectorDir() string {
	return filepath.Join(c.DataDir, "vectordb")
}
