// Package config loads configuration for the article generation system from
// file and environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the article generation system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
	Article   ArticleConfig   `mapstructure:"article"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug             bool          `mapstructure:"debug"`
	LogLevel          string        `mapstructure:"log_level"`
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type    string              `mapstructure:"type"` // openai for now
	APIKey  string              `mapstructure:"api_key"`
	BaseURL string              `mapstructure:"base_url"`
	Models  map[string]LLMModel `mapstructure:"models"`
	Timeout time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model each pipeline stage uses
type LLMRoutingConfig struct {
	Research string `mapstructure:"research"`
	Writing  string `mapstructure:"writing"`
	Editing  string `mapstructure:"editing"`
	Fallback string `mapstructure:"fallback"`
}

// WikipediaConfig contains content retrieval settings
type WikipediaConfig struct {
	Language    string        `mapstructure:"language"`
	BaseURL     string        `mapstructure:"base_url"` // override for tests/mirrors
	SearchLimit int           `mapstructure:"search_limit"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ArticleConfig contains generation defaults
type ArticleConfig struct {
	MinWords      int `mapstructure:"min_words"`
	SectionsCount int `mapstructure:"sections_count"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// StorageConfig selects the task-status store backend
type StorageConfig struct {
	TaskStore string      `mapstructure:"task_store"` // memory or redis
	Redis     RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	CostTracking bool `mapstructure:"cost_tracking"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("wikigen")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("WIKIGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults plus env cover the common case
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.max_processing_time", "10m")
	v.SetDefault("general.default_timeout", "30s")

	v.SetDefault("llm.routing.research", "gpt-4o-mini")
	v.SetDefault("llm.routing.writing", "gpt-4o-mini")
	v.SetDefault("llm.routing.editing", "gpt-4o-mini")
	v.SetDefault("llm.routing.fallback", "gpt-4o-mini")
	v.SetDefault("llm.providers.openai.type", "openai")
	v.SetDefault("llm.providers.openai.timeout", "120s")
	v.SetDefault("llm.providers.openai.models.gpt-4o-mini.name", "gpt-4o-mini")
	v.SetDefault("llm.providers.openai.models.gpt-4o-mini.max_tokens", 4096)
	v.SetDefault("llm.providers.openai.models.gpt-4o-mini.temperature", 0.3)

	v.SetDefault("wikipedia.language", "en")
	v.SetDefault("wikipedia.search_limit", 5)
	v.SetDefault("wikipedia.timeout", "15s")

	v.SetDefault("article.min_words", 300)
	v.SetDefault("article.sections_count", 3)

	v.SetDefault("server.address", ":8080")

	v.SetDefault("storage.task_store", "memory")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", "5s")
	v.SetDefault("storage.redis.ttl", "24h")

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.cost_tracking", true)
}

// overrideFromEnv overrides configuration with environment variables for
// sensitive data
func overrideFromEnv(v *viper.Viper) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		v.Set("llm.providers.openai.api_key", apiKey)
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		v.Set("storage.redis.host", host)
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("storage.redis.port", p)
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		v.Set("storage.redis.password", password)
	}
}

func validateConfig(cfg *Config) error {
	if len(cfg.LLM.Providers) == 0 {
		return fmt.Errorf("at least one LLM provider must be configured")
	}
	routing := []string{
		cfg.LLM.Routing.Research,
		cfg.LLM.Routing.Writing,
		cfg.LLM.Routing.Editing,
		cfg.LLM.Routing.Fallback,
	}
	for _, model := range routing {
		if model == "" {
			continue
		}
		found := false
		for _, provider := range cfg.LLM.Providers {
			if _, ok := provider.Models[model]; ok {
				found = true
				break
			}
			for _, pm := range provider.Models {
				if pm.Name == model {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return fmt.Errorf("routing model '%s' not found in any provider", model)
		}
	}
	switch cfg.Storage.TaskStore {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("unsupported task store: %s", cfg.Storage.TaskStore)
	}
	return nil
}
