// Package config loads contact-extractor settings from config.yaml and
// CONTACTS_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Extractor ExtractorConfig `yaml:"extractor" mapstructure:"extractor"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Rules     RulesConfig     `yaml:"rules" mapstructure:"rules"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	FTP       FTPConfig       `yaml:"ftp" mapstructure:"ftp"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the database backend. An empty DatabaseURL
// disables persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExtractorConfig selects and tunes the fragment extractor.
type ExtractorConfig struct {
	// Provider is one of "documentai", "text" or "fixture".
	Provider    string           `yaml:"provider" mapstructure:"provider"`
	RatePerSec  float64          `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int              `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs int              `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retry       RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Circuit     CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	DocumentAI  DocumentAIConfig `yaml:"documentai" mapstructure:"documentai"`
	Text        TextConfig       `yaml:"text" mapstructure:"text"`
	Fixture     FixtureConfig    `yaml:"fixture" mapstructure:"fixture"`
}

// RetryConfig configures retries of transient extraction failures.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
}

// CircuitConfig configures the extractor circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	CooldownSecs     int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// DocumentAIConfig holds Google Document AI processor settings.
type DocumentAIConfig struct {
	ProjectID   string `yaml:"project_id" mapstructure:"project_id"`
	Location    string `yaml:"location" mapstructure:"location"`
	ProcessorID string `yaml:"processor_id" mapstructure:"processor_id"`
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	MimeType    string `yaml:"mime_type" mapstructure:"mime_type"`
}

// TextConfig configures the pdftotext + Claude extractor.
type TextConfig struct {
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	AnthropicKey  string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	Model         string `yaml:"model" mapstructure:"model"`
	MaxTokens     int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// FixtureConfig configures the offline fragment fixture extractor.
type FixtureConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxWorkers int `yaml:"max_workers" mapstructure:"max_workers"`
	BatchSize  int `yaml:"batch_size" mapstructure:"batch_size"`
	GroupSize  int `yaml:"group_size" mapstructure:"group_size"`
}

// RulesConfig points at locale rules and overrides the mobile prefix.
type RulesConfig struct {
	RequireMobilePrefix string `yaml:"require_mobile_prefix" mapstructure:"require_mobile_prefix"`
	File                string `yaml:"file" mapstructure:"file"`
}

// ExportConfig configures result files.
type ExportConfig struct {
	// Format is "csv" or "excel".
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// FTPConfig configures the FTP document drop.
type FTPConfig struct {
	Addr        string `yaml:"addr" mapstructure:"addr"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONTACTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a meaningful default are still registered so
	// AutomaticEnv can fill them during Unmarshal.
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("extractor.provider", "documentai")
	v.SetDefault("extractor.rate_per_sec", 5.0)
	v.SetDefault("extractor.burst", 5)
	v.SetDefault("extractor.timeout_secs", 120)
	v.SetDefault("extractor.retry.max_attempts", 3)
	v.SetDefault("extractor.retry.initial_backoff_ms", 1000)
	v.SetDefault("extractor.retry.max_backoff_ms", 30000)
	v.SetDefault("extractor.retry.multiplier", 2.0)
	v.SetDefault("extractor.circuit.failure_threshold", 5)
	v.SetDefault("extractor.circuit.cooldown_secs", 30)
	v.SetDefault("extractor.documentai.project_id", "")
	v.SetDefault("extractor.documentai.location", "us")
	v.SetDefault("extractor.documentai.processor_id", "")
	v.SetDefault("extractor.documentai.access_token", "")
	v.SetDefault("extractor.documentai.endpoint", "")
	v.SetDefault("extractor.documentai.mime_type", "application/pdf")
	v.SetDefault("extractor.text.pdftotext_path", "pdftotext")
	v.SetDefault("extractor.text.anthropic_key", "")
	v.SetDefault("extractor.text.model", "claude-haiku-4-5-20251001")
	v.SetDefault("extractor.text.max_tokens", 4096)
	v.SetDefault("extractor.fixture.dir", "")
	v.SetDefault("batch.max_workers", 3)
	v.SetDefault("batch.batch_size", 40)
	v.SetDefault("batch.group_size", 25)
	v.SetDefault("rules.require_mobile_prefix", "")
	v.SetDefault("rules.file", "")
	v.SetDefault("export.format", "csv")
	v.SetDefault("export.output", "results.zip")
	v.SetDefault("server.port", 8080)
	v.SetDefault("ftp.addr", "")
	v.SetDefault("ftp.user", "anonymous")
	v.SetDefault("ftp.password", "")
	v.SetDefault("ftp.dir", "/")
	v.SetDefault("ftp.timeout_secs", 30)

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

// Validate checks the settings a command mode depends on. mode is one of
// "process", "serve" or "dedupe".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Batch.MaxWorkers < 1 || c.Batch.MaxWorkers > 50 {
		errs = append(errs, "batch.max_workers must be between 1 and 50")
	}
	if c.Batch.BatchSize < 1 {
		errs = append(errs, "batch.batch_size must be > 0")
	}
	if c.Batch.GroupSize < 1 {
		errs = append(errs, "batch.group_size must be > 0")
	}
	if c.Export.Format != "csv" && c.Export.Format != "excel" {
		errs = append(errs, fmt.Sprintf("export.format must be csv or excel, got %q", c.Export.Format))
	}
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}

	switch mode {
	case "process":
		errs = append(errs, c.Extractor.missing()...)
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "dedupe":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// missing lists the settings the selected provider needs but lacks.
func (e ExtractorConfig) missing() []string {
	var errs []string
	switch e.Provider {
	case "documentai":
		if e.DocumentAI.ProjectID == "" {
			errs = append(errs, "extractor.documentai.project_id is required")
		}
		if e.DocumentAI.ProcessorID == "" {
			errs = append(errs, "extractor.documentai.processor_id is required")
		}
		if e.DocumentAI.AccessToken == "" {
			errs = append(errs, "extractor.documentai.access_token is required")
		}
	case "text":
		if e.Text.AnthropicKey == "" {
			errs = append(errs, "extractor.text.anthropic_key is required")
		}
	case "fixture":
	default:
		errs = append(errs, fmt.Sprintf("extractor.provider must be documentai, text or fixture, got %q", e.Provider))
	}
	return errs
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
