package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/tempohq/tempo/internal/agent"
	"github.com/tempohq/tempo/internal/audit"
	"github.com/tempohq/tempo/internal/chat"
	"github.com/tempohq/tempo/internal/config"
	"github.com/tempohq/tempo/internal/contextengine"
	"github.com/tempohq/tempo/internal/db"
	"github.com/tempohq/tempo/internal/embeddings"
	"github.com/tempohq/tempo/internal/llm"
	"github.com/tempohq/tempo/internal/memory"
	"github.com/tempohq/tempo/internal/task"
	"github.com/tempohq/tempo/internal/tools"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `tempo init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w\nRun `tempo init` to recreate it", err)
	}
	return cfg, nil
}

// hostedRequestsPerMinute caps calls to hosted APIs so a runaway tool
// loop cannot burn through a request quota. Local Ollama is unthrottled.
const hostedRequestsPerMinute = 60

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.Provider != config.ProviderOllama {
		provider = llm.NewRateLimitedProvider(provider, hostedRequestsPerMinute)
	}
	return provider, nil
}

// createEmbedderFromConfig creates the embedder the memory store runs on.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	model := cfg.EmbeddingModel
	if model == "" {
		preset := config.GetPreset(provider, cfg.Quality)
		model = preset.EmbeddingModel
	}

	switch provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, 0, os.Getenv("OLLAMA_HOST")), nil
	default:
		// Providers without native embeddings fall back to OpenAI.
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required (used for embeddings when provider is %s)", provider)
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	}
}

// runtime bundles the collaborators the assistant commands share. Memory
// is nil when no embedder is available; everything else degrades around
// that.
type runtime struct {
	cfg      *config.Config
	database *db.DB
	tasks    *task.SQLStore
	chats    *chat.Store
	audits   *audit.Store
	registry *tools.Registry
	provider llm.Provider
	memory   *memory.Store
	engine   *contextengine.Engine
	prefs    contextengine.Preferences
}

// openRuntime wires the full assistant stack from the config: database,
// stores, tool registry, provider, long-term memory and context engine.
func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	rt := &runtime{
		cfg:      cfg,
		database: database,
		tasks:    task.NewSQLStore(database),
		chats:    chat.NewStore(database),
		audits:   audit.NewStore(database),
		provider: provider,
		prefs: contextengine.Preferences{
			WorkStartHour: cfg.Hours.WorkStart,
			WorkEndHour:   cfg.Hours.WorkEnd,
			FocusMinutes:  cfg.Hours.FocusMinutes,
		},
	}

	rt.registry = tools.NewRegistry(tools.Permission(cfg.Agent.Permission))
	if err := tools.RegisterBuiltin(rt.registry, rt.tasks); err != nil {
		database.Close()
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	rt.memory = openMemory(ctx, cfg, rt.tasks)

	engineOpts := contextengine.Options{}
	if rt.memory != nil {
		engineOpts.Patterns = rt.memory
	}
	rt.engine = contextengine.NewEngine(rt.tasks, engineOpts)

	return rt, nil
}

// openMemory loads the vector memory, learning fresh patterns from
// recent history. Any failure means running without memory, not an
// error.
func openMemory(ctx context.Context, cfg *config.Config, tasks task.Store) *memory.Store {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Warning: memory disabled: %v\n", err)
		}
		return nil
	}

	mem, err := memory.NewStore(embedder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: memory disabled: %v\n", err)
		return nil
	}

	if err := mem.Load(ctx, cfg.VectorDir()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load memory from %s: %v\n", cfg.VectorDir(), err)
	}
	if _, err := mem.Learn(ctx, tasks, time.Now().UTC()); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "Warning: pattern learning failed: %v\n", err)
	}
	return mem
}

// agentOptions builds the agent configuration shared by every surface.
func (rt *runtime) agentOptions() agent.Options {
	opts := agent.Options{
		Audit:         rt.audits,
		Preferences:   rt.prefs,
		MaxIterations: rt.cfg.Agent.MaxIterations,
		Model:         rt.cfg.Model,
	}
	if rt.memory != nil {
		opts.Recorder = rt.memory
	}
	return opts
}

// persistMemory writes the vector memory back to disk. Best effort.
func (rt *runtime) persistMemory(ctx context.Context) {
	if rt.memory == nil {
		return
	}
	if err := rt.memory.Persist(ctx, rt.cfg.VectorDir()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not persist memory: %v\n", err)
	}
}

func (rt *runtime) Close() {
	rt.database.Close()
}
