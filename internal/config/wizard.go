package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .tempo.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to tempo! Let's set up your assistant.")
	fmt.Println()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"anthropic", "openai", "openrouter", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)

	// 2. Quality tier.
	qualityPrompt := promptui.Select{
		Label: "Select quality tier",
		Items: []string{
			"lite   — fast & cheap",
			"normal — balanced",
			"max    — highest quality",
		},
	}
	qualityIdx, _, err := qualityPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("quality selection: %w", err)
	}
	tiers := []QualityTier{QualityLite, QualityNormal, QualityMax}
	quality := tiers[qualityIdx]

	preset := GetPreset(provider, quality)

	// 3. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: DefaultDataDir(),
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 4. Working hours.
	workStart, err := promptInt("Workday starts at (hour)", "9", 0, 23)
	if err != nil {
		return nil, err
	}
	workEnd, err := promptInt("Workday ends at (hour)", "17", 1, 24)
	if err != nil {
		return nil, err
	}
	focus, err := promptInt("Focus block length (minutes)", "50", 5, 240)
	if err != nil {
		return nil, err
	}

	// Build the config over the defaults.
	cfg := DefaultConfig()
	cfg.Provider = provider
	cfg.Model = preset.Model
	cfg.Quality = quality
	cfg.EmbeddingProvider = embeddingProviderFor(provider)
	cfg.EmbeddingModel = preset.EmbeddingModel
	cfg.DataDir = expandHome(dataDir)
	cfg.Hours = HoursConfig{WorkStart: workStart, WorkEnd: workEnd, FocusMinutes: focus}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API key.
	envVar := APIKeyEnvVar(provider)
	if envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running tempo chat.\n", envVar)
	}

	if err := cfg.Save(FileName); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", FileName)
	return cfg, nil
}

// embeddingProviderFor returns the default embedding provider for a given
// LLM provider. OpenAI embeddings are used for all cloud providers.
func embeddingProviderFor(p ProviderType) ProviderType {
	if p == ProviderOllama {
		return ProviderOllama
	}
	return ProviderOpenAI
}

func promptInt(label, def string, min, max int) (int, error) {
	p := promptui.Prompt{
		Label:   label,
		Default: def,
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("enter a number")
			}
			if n < min || n > max {
				return fmt.Errorf("enter a number between %d and %d", min, max)
			}
			return nil
		},
	}
	out, err := p.Run()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", label, err)
	}
	n, _ := strconv.Atoi(out)
	return n, nil
}
