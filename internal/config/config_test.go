package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected default provider %q, got %q", ProviderAnthropic, cfg.Provider)
	}
	if cfg.Quality != QualityNormal {
		t.Errorf("expected default quality %q, got %q", QualityNormal, cfg.Quality)
	}
	if cfg.DataDir == "" {
		t.Error("expected non-empty default data_dir")
	}
	if cfg.Agent.MaxIterations != 8 {
		t.Errorf("expected default agent.max_iterations 8, got %d", cfg.Agent.MaxIterations)
	}
	if cfg.Agent.Permission != "admin" {
		t.Errorf("expected default agent.permission admin, got %q", cfg.Agent.Permission)
	}
	if cfg.MCP.Permission != "read" {
		t.Errorf("expected default mcp.permission read, got %q", cfg.MCP.Permission)
	}
	if cfg.Hours.WorkStart != 9 || cfg.Hours.WorkEnd != 17 || cfg.Hours.FocusMinutes != 50 {
		t.Errorf("unexpected default hours: %+v", cfg.Hours)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default server.port 8080, got %d", cfg.Server.Port)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.tempo.yml")

	original := DefaultConfig()
	original.Provider = ProviderOpenAI
	original.Model = "gpt-4o"
	original.Quality = QualityMax
	original.DataDir = filepath.Join(dir, "data")
	original.Hours = HoursConfig{WorkStart: 8, WorkEnd: 16, FocusMinutes: 25}
	original.Server.Port = 9090
	original.MCP.Permission = "write"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.Quality != original.Quality {
		t.Errorf("quality: got %q, want %q", loaded.Quality, original.Quality)
	}
	if loaded.DataDir != original.DataDir {
		t.Errorf("data_dir: got %q, want %q", loaded.DataDir, original.DataDir)
	}
	if loaded.Hours != original.Hours {
		t.Errorf("hours: got %+v, want %+v", loaded.Hours, original.Hours)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("server.port: got %d, want 9090", loaded.Server.Port)
	}
	if loaded.MCP.Permission != "write" {
		t.Errorf("mcp.permission: got %q, want %q", loaded.MCP.Permission, "write")
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("TEMPO_PROVIDER", "openai")
	t.Setenv("TEMPO_SERVER__PORT", "9999")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOpenAI {
		t.Errorf("env override failed: got %q, want %q", loaded.Provider, ProviderOpenAI)
	}
	if loaded.Server.Port != 9999 {
		t.Errorf("nested env override failed: got %d, want 9999", loaded.Server.Port)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateInvalidProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "invalid"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid provider")
	}
}

func TestValidateEmptyModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty model")
	}
}

func TestValidateInvalidQuality(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quality = "ultra"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid quality")
	}
}

func TestValidateInvalidPermission(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MCP.Permission = "root"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid mcp.permission")
	}
}

func TestValidateBadHours(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hours.WorkStart = 18
	cfg.Hours.WorkEnd = 9
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error when work_end precedes work_start")
	}
}

func TestValidateBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for port 0")
	}
}

func TestGetPreset(t *testing.T) {
	p := GetPreset(ProviderAnthropic, QualityLite)
	if p.Model != "claude-haiku-4-5-20251001" {
		t.Errorf("expected haiku model, got %q", p.Model)
	}

	p = GetPreset(ProviderOllama, QualityMax)
	if p.Model != "llama3:70b" {
		t.Errorf("expected llama3:70b, got %q", p.Model)
	}

	// Unknown combination falls back.
	p = GetPreset("unknown", QualityLite)
	if p.Model != "claude-sonnet-4-5-20250929" {
		t.Errorf("expected fallback to sonnet, got %q", p.Model)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderOpenRouter, "OPENROUTER_API_KEY"},
		{ProviderOllama, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.provider)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestExpandHome(t *testing.T) {
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path should pass through, got %q", got)
	}
	got := expandHome("~/tempo-data")
	if strings.HasPrefix(got, "~") {
		t.Errorf("expected tilde expansion, got %q", got)
	}
	if !strings.HasSuffix(got, "tempo-data") {
		t.Errorf("expected suffix preserved, got %q", got)
	}
}

func TestDataPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/tempo"
	if cfg.DatabasePath() != filepath.Join("/var/lib/tempo", "tempo.db") {
		t.Errorf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.VectorDir() != filepath.Join("/var/lib/tempo", "vectordb") {
		t.Errorf("unexpected vector dir: %q", cfg.VectorDir())
	}
}
