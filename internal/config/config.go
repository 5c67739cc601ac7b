// Package config loads the application configuration from file and
// environment and sets up the global logger.
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
	SerpAPI SerpAPIConfig `yaml:"serpapi" mapstructure:"serpapi"`
	Zyte    ZyteConfig    `yaml:"zyte" mapstructure:"zyte"`
	Crawl   CrawlConfig   `yaml:"crawl" mapstructure:"crawl"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SerpAPIConfig holds SERP API credentials and retry settings.
type SerpAPIConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	MaxAttempts    int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryDelaySecs int    `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
}

// ZyteConfig holds Zyte extraction API credentials and fetch settings.
type ZyteConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	MaxAttempts    int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryDelaySecs int    `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	LimitPerHost   int    `yaml:"limit_per_host" mapstructure:"limit_per_host"`
	Geolocation    string `yaml:"geolocation" mapstructure:"geolocation"`
}

// CrawlConfig configures the crawl pipeline.
type CrawlConfig struct {
	Location   string `yaml:"location" mapstructure:"location"`
	NumResults int    `yaml:"num_results" mapstructure:"num_results"`
	Output     string `yaml:"output" mapstructure:"output"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and FRAUDCRAWLER_* environment
// variables, applying defaults for everything but the API keys.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FRAUDCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range Defaults() {
		v.SetDefault(key, val)
	}

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

// Defaults returns the default configuration values keyed by viper path.
func Defaults() map[string]any {
	return map[string]any{
		// Keys default to empty so the env bindings are visible to viper.
		"serpapi.key":              "",
		"zyte.key":                 "",
		"serpapi.base_url":         "https://serpapi.com",
		"serpapi.max_attempts":     5,
		"serpapi.retry_delay_secs": 5,
		"zyte.base_url":            "https://api.zyte.com/v1",
		"zyte.max_attempts":        1,
		"zyte.retry_delay_secs":    10,
		"zyte.limit_per_host":      5,
		"zyte.geolocation":         "CH",
		"crawl.location":           "Switzerland",
		"crawl.num_results":        10,
		"crawl.output":             "output.json",
		"log.level":                "info",
		"log.format":               "json",
	}
}

// ValidateKeys checks that the credentials the pipeline needs are present.
// Missing keys are a construction-time error, never a mid-fetch one.
func (c *Config) ValidateKeys() error {
	if c.SerpAPI.Key == "" {
		return eris.New("config: serpapi key is not set")
	}
	if c.Zyte.Key == "" {
		return eris.New("config: zyte key is not set")
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
