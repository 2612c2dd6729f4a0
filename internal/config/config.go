// Package config loads MCR configuration from YAML with environment
// overrides. A missing file yields defaults so the binary runs out of the
// box.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mcr/internal/translate"
)

// Config holds all MCR configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Engine    EngineConfig    `yaml:"engine"`
	Translate TranslateConfig `yaml:"translate"`
	Store     StoreConfig     `yaml:"store"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LLMConfig configures the language-model provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, mock
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

// EngineConfig configures the inference engine.
type EngineConfig struct {
	QueryTimeout  string `yaml:"query_timeout"`
	SolutionLimit int    `yaml:"solution_limit"`
}

// TranslateConfig configures the translation pipeline.
type TranslateConfig struct {
	Strategy     string `yaml:"strategy"` // direct, sir
	MaxAttempts  int    `yaml:"max_attempts"`
	ExampleCount int    `yaml:"example_count"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// SessionConfig configures session defaults.
type SessionConfig struct {
	// OntologyPath is an optional clause file pre-consulted into every new
	// session. Watched for changes when set.
	OntologyPath string `yaml:"ontology_path"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ValidProviders lists the accepted llm.provider values.
var ValidProviders = []string{"gemini", "mock"}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Timeout:  "30s",
		},
		Engine: EngineConfig{
			QueryTimeout:  "5s",
			SolutionLimit: 256,
		},
		Translate: TranslateConfig{
			Strategy:     translate.StrategySIR,
			MaxAttempts:  3,
			ExampleCount: 3,
		},
		Store: StoreConfig{
			DatabasePath: "mcr.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file is missing. Environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MCR_API_KEY"); v != "" {
		c.LLM.APIKey = v
	} else if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("MCR_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("MCR_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("MCR_DB_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("MCR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	valid := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid llm.provider %q (want one of %v)", c.LLM.Provider, ValidProviders)
	}

	if _, err := translate.ForName(c.Translate.Strategy); err != nil {
		return fmt.Errorf("invalid translate.strategy: %w", err)
	}
	if c.Translate.MaxAttempts <= 0 {
		return fmt.Errorf("translate.max_attempts must be positive, got %d", c.Translate.MaxAttempts)
	}
	return nil
}

// GetLLMTimeout parses the provider timeout, with fallback.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 30*time.Second)
}

// GetQueryTimeout parses the engine query timeout, with fallback.
func (c *Config) GetQueryTimeout() time.Duration {
	return parseDuration(c.Engine.QueryTimeout, 5*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
