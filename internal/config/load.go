package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// CAROUSEL_SERVER_PORT or CAROUSEL_PROVIDERS_OPENAI_API_KEY.
const EnvPrefix = "CAROUSEL"

var defaults = map[string]any{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.read_timeout":     "15s",
	"server.write_timeout":    "30s",
	"server.shutdown_timeout": "30s",

	"database.url":               "",
	"database.max_open_conns":    25,
	"database.conn_max_lifetime": "5m",

	"auth.jwt_secret": "",
	"auth.issuer":     "",

	"providers.text_provider":            "gemini",
	"providers.image_provider":           "runware",
	"providers.openai.api_key":           "",
	"providers.openai.base_url":          "https://api.openai.com/v1",
	"providers.openai.text_model":        "gpt-4o-mini",
	"providers.openai.image_model":       "dall-e-3",
	"providers.gemini.api_key":           "",
	"providers.gemini.model":             "gemini-2.0-flash",
	"providers.runware.api_key":          "",
	"providers.runware.base_url":         "https://api.runware.ai",
	"providers.runware.model":            "runware:100@1",
	"providers.midjourney.api_key":       "",
	"providers.midjourney.base_url":      "http://localhost:8080",
	"providers.midjourney.poll_interval": "3s",

	"generation.provider_timeout":      "5m",
	"generation.max_retries":           3,
	"generation.retry_base_delay":      "2s",
	"generation.image_concurrency":     4,
	"generation.image_rate_per_second": 2.0,

	"task.worker_count":   2,
	"task.queue_size":     100,
	"task.stuck_task_age": "2h",

	"storage.endpoint":          "",
	"storage.region":            "us-east-1",
	"storage.access_key_id":     "",
	"storage.secret_access_key": "",
	"storage.bucket":            "carousel-exports",
	"storage.use_path_style":    false,
	"storage.presign_ttl":       "24h",

	"cache.addr":         "localhost:6379",
	"cache.password":     "",
	"cache.db":           0,
	"cache.progress_ttl": "1h",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct constraints and that the selected providers have
// credentials.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if key := cfg.Providers.apiKey(cfg.Providers.TextProvider); key == "" {
		return fmt.Errorf("config validation failed: text provider %q has no api_key",
			cfg.Providers.TextProvider)
	}
	if key := cfg.Providers.apiKey(cfg.Providers.ImageProvider); key == "" {
		return fmt.Errorf("config validation failed: image provider %q has no api_key",
			cfg.Providers.ImageProvider)
	}

	// A task younger than one provider call's retry budget is not stuck.
	if budget := cfg.Generation.CallBudget(); cfg.Task.StuckTaskAge <= budget {
		return fmt.Errorf("config validation failed: task.stuck_task_age %s must exceed the provider call budget %s",
			cfg.Task.StuckTaskAge, budget)
	}

	return nil
}

func (p ProvidersConfig) apiKey(name string) string {
	switch name {
	case "openai":
		return p.OpenAI.APIKey
	case "gemini":
		return p.Gemini.APIKey
	case "runware":
		return p.Runware.APIKey
	case "midjourney":
		return p.Midjourney.APIKey
	default:
		return ""
	}
}
