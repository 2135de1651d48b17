package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/forge-ai/codeforge/shared/llm"
	"gopkg.in/yaml.v3"
)

// Model holds the upstream model and sampling options for one route.
type Model struct {
	Name              string   `yaml:"name"`
	System            string   `yaml:"system"`
	MaxTokens         int      `yaml:"max_tokens"`
	Temperature       float64  `yaml:"temperature"`
	TopP              float64  `yaml:"top_p"`
	TopK              int      `yaml:"top_k"`
	RepetitionPenalty float64  `yaml:"repetition_penalty"`
	Stop              []string `yaml:"stop"`
}

// Request turns the model settings into an upstream request for prompt.
func (m Model) Request(prompt string) llm.Request {
	return llm.Request{
		Model:             m.Name,
		System:            m.System,
		Prompt:            prompt,
		MaxTokens:         m.MaxTokens,
		Temperature:       m.Temperature,
		TopP:              m.TopP,
		TopK:              m.TopK,
		RepetitionPenalty: m.RepetitionPenalty,
		Stop:              m.Stop,
	}
}

type Config struct {
	APIPort         string        `yaml:"port"`
	Provider        string        `yaml:"provider"`
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	AMQPURL         string        `yaml:"amqp_url"`
	AMQPAttempts    int           `yaml:"amqp_attempts"`
	Debug           bool          `yaml:"debug"`

	Codegen  Model `yaml:"codegen"`
	Analysis Model `yaml:"analysis"`
}

const endOfSentence = "<｜end▁of▁sentence｜>"

// DefaultConfig mirrors the hosted deployment: Together AI, DeepSeek-V3 for
// code and Llama 3.1 8B for analysis.
func DefaultConfig() Config {
	return Config{
		APIPort:         "5000",
		Provider:        llm.ProviderTogether,
		UpstreamTimeout: 5 * time.Minute,
		AMQPAttempts:    10,
		Codegen: Model{
			Name:              "deepseek-ai/DeepSeek-V3",
			System:            "You are a helpful coding assistant that provides enhanced code.",
			MaxTokens:         5576,
			Temperature:       0.7,
			TopP:              0.7,
			TopK:              50,
			RepetitionPenalty: 1,
			Stop:              []string{endOfSentence},
		},
		Analysis: Model{
			Name:              "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo",
			System:            "You are a helpful code analysis assistant. Provide me meaning other such examples.",
			MaxTokens:         4096,
			Temperature:       0.7,
			TopP:              0.7,
			TopK:              50,
			RepetitionPenalty: 1,
			Stop:              []string{endOfSentence},
		},
	}
}

// LoadConfig applies, in order: defaults, the YAML file at path (if any),
// then environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.APIPort = env("PORT", c.APIPort)
	c.Provider = env("LLM_PROVIDER", c.Provider)
	c.BaseURL = env("LLM_BASE_URL", c.BaseURL)
	c.AMQPURL = env("AMQP_URL", c.AMQPURL)
	c.AMQPAttempts = envInt("AMQP_ATTEMPTS", c.AMQPAttempts)
	c.UpstreamTimeout = envDuration("UPSTREAM_TIMEOUT", c.UpstreamTimeout)
	c.Codegen.Name = env("CODE_MODEL", c.Codegen.Name)
	c.Codegen.MaxTokens = envInt("CODE_MAX_TOKENS", c.Codegen.MaxTokens)
	c.Analysis.Name = env("ANALYSIS_MODEL", c.Analysis.Name)
	c.Analysis.MaxTokens = envInt("ANALYSIS_MAX_TOKENS", c.Analysis.MaxTokens)
	if os.Getenv("DEBUG") == "1" {
		c.Debug = true
	}

	// The generic key wins; otherwise use the one matching the provider.
	providerKey := map[string]string{
		llm.ProviderTogether:   "TOGETHER_API_KEY",
		llm.ProviderOpenRouter: "OPENROUTER_API_KEY",
		llm.ProviderAnthropic:  "ANTHROPIC_API_KEY",
	}[c.Provider]
	if providerKey != "" {
		c.APIKey = env(providerKey, c.APIKey)
	}
	c.APIKey = env("LLM_API_KEY", c.APIKey)
}

var errMissingAPIKey = errors.New("missing upstream API key")

// Validate reports configuration the server cannot start with.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w for provider %q", errMissingAPIKey, c.Provider)
	}
	if c.APIPort == "" {
		return errors.New("empty port")
	}
	if c.Codegen.Name == "" || c.Analysis.Name == "" {
		return errors.New("model names must be set")
	}
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		n, _ := strconv.Atoi(v)
		if n > 0 {
			return n
		}
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
