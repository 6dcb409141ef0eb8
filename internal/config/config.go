package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Generate  GenerateConfig  `yaml:"generate" mapstructure:"generate"`
	Spans     SpansConfig     `yaml:"spans" mapstructure:"spans"`
	Annotate  AnnotateConfig  `yaml:"annotate" mapstructure:"annotate"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GenerateConfig configures question and answer rewriting.
type GenerateConfig struct {
	Tier          string         `yaml:"tier" mapstructure:"tier"`
	Limits        map[string]int `yaml:"limits" mapstructure:"limits"`
	WindowSecs    int            `yaml:"window_secs" mapstructure:"window_secs"`
	TemplatesPath string         `yaml:"templates_path" mapstructure:"templates_path"`
	Context       string         `yaml:"context" mapstructure:"context"`
	Concurrency   int            `yaml:"concurrency" mapstructure:"concurrency"`
	Retry         RetryConfig    `yaml:"retry" mapstructure:"retry"`
}

// SpansConfig configures span annotation and expansion.
type SpansConfig struct {
	Strict      bool `yaml:"strict" mapstructure:"strict"`
	Concurrency int  `yaml:"concurrency" mapstructure:"concurrency"`
}

// AnnotateConfig configures the QA annotators.
type AnnotateConfig struct {
	Concurrency    int           `yaml:"concurrency" mapstructure:"concurrency"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Token          string        `yaml:"token" mapstructure:"token"`
	Models         []string      `yaml:"models" mapstructure:"models"`
	RatePerSec     float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs    int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxContextRune int           `yaml:"max_context_runes" mapstructure:"max_context_runes"`
	Retry          RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit        CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// RetryConfig holds retry tuning for an external collaborator.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig holds circuit breaker tuning.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// FetchConfig configures remote questionnaire downloads.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// PricingConfig holds per-model token pricing.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("QADATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a default are invisible to AutomaticEnv on
	// Unmarshal, so secrets get empty ones.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "qa-dataset.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("generate.tier", "free")
	v.SetDefault("generate.limits", map[string]int{"free": 10, "paid": 1500})
	v.SetDefault("generate.window_secs", 60)
	v.SetDefault("generate.templates_path", "")
	v.SetDefault("generate.context", "You rewrite questionnaire items into natural conversational text for a question-answering dataset.")
	v.SetDefault("generate.concurrency", 1)
	v.SetDefault("generate.retry.max_attempts", 3)
	v.SetDefault("generate.retry.initial_backoff_ms", 1000)
	v.SetDefault("generate.retry.max_backoff_ms", 60000)
	v.SetDefault("spans.strict", false)
	v.SetDefault("spans.concurrency", 8)
	v.SetDefault("annotate.concurrency", 4)
	v.SetDefault("annotate.endpoint", "https://api-inference.huggingface.co")
	v.SetDefault("annotate.token", "")
	v.SetDefault("annotate.rate_per_sec", 5.0)
	v.SetDefault("annotate.timeout_secs", 30)
	v.SetDefault("annotate.max_context_runes", 4000)
	v.SetDefault("annotate.retry.max_attempts", 3)
	v.SetDefault("annotate.retry.initial_backoff_ms", 500)
	v.SetDefault("annotate.retry.max_backoff_ms", 30000)
	v.SetDefault("annotate.circuit.failure_threshold", 5)
	v.SetDefault("annotate.circuit.reset_timeout_secs", 30)
	v.SetDefault("fetch.user_agent", "qa-dataset/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command depends on are present.
func (c *Config) Validate(command string) error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required")
	}

	switch command {
	case "generate":
		if c.Anthropic.Key == "" {
			return eris.New("config: QADATA_ANTHROPIC_KEY is required for generate")
		}
		if _, ok := c.Generate.Limits[c.Generate.Tier]; !ok {
			return eris.Errorf("config: no request limit configured for tier %q", c.Generate.Tier)
		}
		if c.Generate.WindowSecs <= 0 {
			return eris.New("config: generate.window_secs must be positive")
		}
	case "label":
		if c.Annotate.Concurrency <= 0 {
			return eris.New("config: annotate.concurrency must be positive")
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
