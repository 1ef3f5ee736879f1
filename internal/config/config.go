package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Providers  ProvidersConfig  `mapstructure:"providers"  validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Task       TaskConfig       `mapstructure:"task"       validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage"    validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache"      validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gt=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gt=0"`
}

// AuthConfig contains the settings used to validate tokens issued by the
// external identity provider.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	Issuer    string `mapstructure:"issuer"`
}

// ProvidersConfig selects the default AI providers and holds their
// credentials. Only providers with credentials are registered.
type ProvidersConfig struct {
	TextProvider  string           `mapstructure:"text_provider"  validate:"required,oneof=gemini openai"`
	ImageProvider string           `mapstructure:"image_provider" validate:"required,oneof=openai runware midjourney"`
	OpenAI        OpenAIConfig     `mapstructure:"openai"`
	Gemini        GeminiConfig     `mapstructure:"gemini"`
	Runware       RunwareConfig    `mapstructure:"runware"`
	Midjourney    MidjourneyConfig `mapstructure:"midjourney"`
}

// OpenAIConfig configures the OpenAI text and image adapters.
type OpenAIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"    validate:"required,url"`
	TextModel  string `mapstructure:"text_model"  validate:"required"`
	ImageModel string `mapstructure:"image_model" validate:"required"`
}

// GeminiConfig configures the Gemini text adapter.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model" validate:"required"`
}

// RunwareConfig configures the Runware image adapter.
type RunwareConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	Model   string `mapstructure:"model"    validate:"required"`
}

// MidjourneyConfig configures the Midjourney proxy image adapter.
type MidjourneyConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"      validate:"required,url"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

// GenerationConfig controls how the orchestrator calls providers.
type GenerationConfig struct {
	ProviderTimeout    time.Duration `mapstructure:"provider_timeout"      validate:"gt=0"`
	MaxRetries         uint64        `mapstructure:"max_retries"           validate:"lte=10"`
	RetryBaseDelay     time.Duration `mapstructure:"retry_base_delay"      validate:"gt=0"`
	ImageConcurrency   int           `mapstructure:"image_concurrency"     validate:"gt=0,lte=20"`
	ImageRatePerSecond float64       `mapstructure:"image_rate_per_second" validate:"gt=0"`
}

// CallBudget is the longest a single provider call can take across all
// retries, ignoring backoff delays.
func (g GenerationConfig) CallBudget() time.Duration {
	return g.ProviderTimeout * time.Duration(g.MaxRetries+1)
}

// TaskConfig configures the background task runner.
type TaskConfig struct {
	WorkerCount  int           `mapstructure:"worker_count"   validate:"gt=0"`
	QueueSize    int           `mapstructure:"queue_size"     validate:"gt=0"`
	StuckTaskAge time.Duration `mapstructure:"stuck_task_age" validate:"gt=0"`
}

// StorageConfig configures the S3-compatible bucket export outputs are
// written to.
type StorageConfig struct {
	Endpoint        string        `mapstructure:"endpoint"          validate:"omitempty,url"`
	Region          string        `mapstructure:"region"            validate:"required"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	Bucket          string        `mapstructure:"bucket"            validate:"required"`
	UsePathStyle    bool          `mapstructure:"use_path_style"`
	PresignTTL      time.Duration `mapstructure:"presign_ttl"       validate:"gt=0"`
}

// CacheConfig configures the redis instance holding export progress.
type CacheConfig struct {
	Addr        string        `mapstructure:"addr"         validate:"required"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"           validate:"gte=0"`
	ProgressTTL time.Duration `mapstructure:"progress_ttl" validate:"gt=0"`
}
