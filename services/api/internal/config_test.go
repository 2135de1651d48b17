package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "PORT", "LLM_PROVIDER", "LLM_BASE_URL", "LLM_API_KEY",
		"TOGETHER_API_KEY", "OPENROUTER_API_KEY", "ANTHROPIC_API_KEY",
		"AMQP_URL", "AMQP_ATTEMPTS", "UPSTREAM_TIMEOUT", "CODE_MODEL", "CODE_MAX_TOKENS",
		"ANALYSIS_MODEL", "ANALYSIS_MAX_TOKENS", "DEBUG",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOGETHER_API_KEY", "tk")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Provider != "together" || cfg.APIKey != "tk" || cfg.APIPort != "5000" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Codegen.Stop[0] != endOfSentence || cfg.Analysis.TopK != 50 {
		t.Errorf("sampling defaults = %+v / %+v", cfg.Codegen, cfg.Analysis)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "codeforge.yaml")
	yaml := `
port: "8081"
provider: anthropic
api_key: from-file
upstream_timeout: 45s
codegen:
  name: claude-sonnet
  max_tokens: 2048
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9090")
	t.Setenv("ANALYSIS_MODEL", "claude-haiku")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.APIPort != "9090" {
		t.Errorf("port = %q, env should win", cfg.APIPort)
	}
	if cfg.Provider != "anthropic" || cfg.APIKey != "from-file" || cfg.UpstreamTimeout != 45*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Codegen.Name != "claude-sonnet" || cfg.Codegen.MaxTokens != 2048 {
		t.Errorf("codegen = %+v", cfg.Codegen)
	}
	// Fields the file leaves out keep their defaults.
	if cfg.Codegen.TopP != 0.7 || cfg.Analysis.Name != "claude-haiku" {
		t.Errorf("codegen = %+v analysis = %+v", cfg.Codegen, cfg.Analysis)
	}
}

func TestLoadConfigProviderKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "openrouter")
	t.Setenv("TOGETHER_API_KEY", "wrong")
	t.Setenv("OPENROUTER_API_KEY", "or-key")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "or-key" {
		t.Errorf("APIKey = %q, want or-key", cfg.APIKey)
	}

	t.Setenv("LLM_API_KEY", "generic")
	cfg, _ = LoadConfig("")
	if cfg.APIKey != "generic" {
		t.Errorf("APIKey = %q, want generic", cfg.APIKey)
	}
}

func TestLoadConfigEnvParsing(t *testing.T) {
	clearEnv(t)
	t.Setenv("CODE_MAX_TOKENS", "not-a-number")
	t.Setenv("UPSTREAM_TIMEOUT", "90s")
	t.Setenv("DEBUG", "1")

	cfg, _ := LoadConfig("")
	if cfg.Codegen.MaxTokens != 5576 {
		t.Errorf("MaxTokens = %d, invalid value should keep default", cfg.Codegen.MaxTokens)
	}
	if cfg.UpstreamTimeout != 90*time.Second || !cfg.Debug {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	clearEnv(t)
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() accepted a missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("port: [unterminated"), 0o644)
	if _, err := LoadConfig(bad); err == nil {
		t.Error("LoadConfig() accepted malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, errMissingAPIKey) {
		t.Errorf("Validate() = %v, want missing key", err)
	}
	cfg.APIKey = "k"
	cfg.Codegen.Name = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted an empty model")
	}
}

func TestNewServerRejectsUnknownProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "k"
	cfg.Provider = "cohere"
	if _, err := NewServer(cfg); err == nil {
		t.Error("NewServer() accepted an unknown provider")
	}
}

func TestModelRequest(t *testing.T) {
	m := DefaultConfig().Codegen
	req := m.Request("hello")
	if req.Prompt != "hello" || req.Model != m.Name || req.System != m.System || req.RepetitionPenalty != 1 {
		t.Errorf("Request() = %+v", req)
	}
}
