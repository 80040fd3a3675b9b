// Package config loads divar-cli settings from config.yaml and DIVAR_* env vars.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Marketplace MarketplaceConfig `yaml:"marketplace" mapstructure:"marketplace"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Crawl       CrawlConfig       `yaml:"crawl" mapstructure:"crawl"`
	Enrich      EnrichConfig      `yaml:"enrich" mapstructure:"enrich"`
	Export      ExportConfig      `yaml:"export" mapstructure:"export"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
}

// MarketplaceConfig locates the marketplace API.
type MarketplaceConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	City    string `yaml:"city" mapstructure:"city"`
}

// HTTPConfig configures the outgoing HTTP client.
type HTTPConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Timeout returns the per-request timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RetryConfig configures retries of transient request failures.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// StoreConfig selects the collection store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	OnCorrupt   string `yaml:"on_corrupt" mapstructure:"on_corrupt"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CrawlConfig bounds listing crawls.
type CrawlConfig struct {
	MaxPages int `yaml:"max_pages" mapstructure:"max_pages"`
}

// EnrichConfig configures the enrichment stage.
type EnrichConfig struct {
	WidgetType string `yaml:"widget_type" mapstructure:"widget_type"`
}

// ExportConfig configures spreadsheet output.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// PipelineConfig selects what `run` does.
type PipelineConfig struct {
	Categories []string `yaml:"categories" mapstructure:"categories"`
	Stage      string   `yaml:"stage" mapstructure:"stage"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultCategories are the categories harvested when none are configured.
var DefaultCategories = []string{"electronic-devices", "personal", "home-kitchen"}

// Load reads configuration from file and environment. An empty path searches
// the working directory for config.yaml; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("DIVAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("marketplace.base_url", "https://api.divar.ir")
	v.SetDefault("marketplace.city", "tehran")
	v.SetDefault("http.timeout_secs", 20)
	v.SetDefault("http.user_agent", "divar-cli/1.0")
	v.SetDefault("http.requests_per_second", 0)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_backoff", "500ms")
	v.SetDefault("retry.max_backoff", "30s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.dir", ".")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.on_corrupt", "restore")
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("crawl.max_pages", 0)
	v.SetDefault("enrich.widget_type", "EVENT_ROW")
	v.SetDefault("export.dir", ".")
	v.SetDefault("pipeline.categories", DefaultCategories)
	v.SetDefault("pipeline.stage", "all")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("metrics.addr", "")

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

// Validate checks the settings a command needs. Every problem is reported,
// each naming the offending key.
func (c *Config) Validate(command string) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	needsHTTP := command == "collect" || command == "enrich" || command == "run"
	if needsHTTP {
		if c.Marketplace.BaseURL == "" {
			add("marketplace.base_url is required")
		}
		if c.Marketplace.City == "" {
			add("marketplace.city is required")
		}
		if c.HTTP.TimeoutSecs <= 0 {
			add("http.timeout_secs must be positive, got %d", c.HTTP.TimeoutSecs)
		}
		if c.HTTP.RequestsPerSecond < 0 {
			add("http.requests_per_second must not be negative, got %v", c.HTTP.RequestsPerSecond)
		}
		if c.Retry.MaxAttempts < 1 {
			add("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
		}
		if c.Retry.MaxBackoff > 0 && c.Retry.InitialBackoff > c.Retry.MaxBackoff {
			add("retry.initial_backoff (%s) must not exceed retry.max_backoff (%s)", c.Retry.InitialBackoff, c.Retry.MaxBackoff)
		}
		if c.Crawl.MaxPages < 0 {
			add("crawl.max_pages must not be negative, got %d", c.Crawl.MaxPages)
		}
	}

	switch strings.ToLower(c.Store.Driver) {
	case "file", "memory", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required for the postgres driver")
		}
	default:
		add("store.driver must be one of file, memory, sqlite, postgres, got %q", c.Store.Driver)
	}

	switch strings.ToLower(c.Store.OnCorrupt) {
	case "", "restore", "fail", "reset":
	default:
		add("store.on_corrupt must be one of restore, fail, reset, got %q", c.Store.OnCorrupt)
	}

	if command == "run" {
		switch strings.ToLower(c.Pipeline.Stage) {
		case "collect", "enrich", "export", "all":
		default:
			add("pipeline.stage must be one of collect, enrich, export, all, got %q", c.Pipeline.Stage)
		}
	}

	switch c.Log.Format {
	case "", "json", "console":
	default:
		add("log.format must be json or console, got %q", c.Log.Format)
	}

	if len(errs) == 0 {
		return nil
	}
	return eris.Wrap(errors.Join(errs...), "config: invalid")
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
