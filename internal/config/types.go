package config

// QualityTier controls the model selection and trade-off between speed/cost and quality.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
)

// FileName is the config file tempo looks for in the working directory.
const FileName = ".tempo.yml"

// Config is the top-level tempo configuration, corresponding to .tempo.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	Quality           QualityTier  `yaml:"quality" koanf:"quality"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir           string       `yaml:"data_dir" koanf:"data_dir"`
	Agent             AgentConfig  `yaml:"agent" koanf:"agent"`
	Hours             HoursConfig  `yaml:"hours" koanf:"hours"`
	Server            ServerConfig `yaml:"server" koanf:"server"`
	MCP               MCPConfig    `yaml:"mcp" koanf:"mcp"`
}

// AgentConfig tunes the reasoning loop behind chat and ask.
type AgentConfig struct {
	MaxIterations int    `yaml:"max_iterations" koanf:"max_iterations"`
	Permission    string `yaml:"permission" koanf:"permission"`
}

// HoursConfig is the user's working rhythm.
type HoursConfig struct {
	WorkStart    int `yaml:"work_start" koanf:"work_start"`
	WorkEnd      int `yaml:"work_end" koanf:"work_end"`
	FocusMinutes int `yaml:"focus_minutes" koanf:"focus_minutes"`
}

// ServerConfig holds web dashboard settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// MCPConfig holds settings for the stdio MCP server.
type MCPConfig struct {
	Permission string `yaml:"permission" koanf:"permission"`
}
