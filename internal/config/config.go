// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
)

type Config struct {
	LLMProvider string `mapstructure:"llm_provider"`

	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	GeminiModel   string `mapstructure:"gemini_model"`
	GeminiBaseURL string `mapstructure:"gemini_base_url"`

	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIModel   string `mapstructure:"openai_model"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`

	StoreBackend  string `mapstructure:"store_backend"`
	StateTable    string `mapstructure:"state_table"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	SQLiteDSN     string `mapstructure:"sqlite_dsn"`

	// ParamPrefix locates the model API key in SSM when no env key is set.
	ParamPrefix string `mapstructure:"param_prefix"`

	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`
	Port      int    `mapstructure:"port"`
}

// Load reads every key from the environment on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm_provider", ProviderGemini)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("gemini_base_url", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("store_backend", BackendDynamoDB)
	v.SetDefault("state_table", "")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("sqlite_dsn", "file:rental-assistant.db")
	v.SetDefault("param_prefix", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("port", 8080)
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	switch c.StoreBackend {
	case BackendDynamoDB:
		if strings.TrimSpace(c.StateTable) == "" {
			return errors.New("config: STATE_TABLE is required for the dynamodb store")
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("config: REDIS_ADDR is required for the redis store")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLiteDSN) == "" {
			return errors.New("config: SQLITE_DSN is required for the sqlite store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.Port)
	}
	return nil
}

// APIKey returns the env-supplied key for the selected provider, if any.
func (c *Config) APIKey() string {
	if c.LLMProvider == ProviderOpenAI {
		return strings.TrimSpace(c.OpenAIAPIKey)
	}
	return strings.TrimSpace(c.GeminiAPIKey)
}

// NeedsAWS reports whether startup must load AWS credentials.
func (c *Config) NeedsAWS() bool {
	return c.StoreBackend == BackendDynamoDB || (c.APIKey() == "" && c.ParamPrefix != "")
}
