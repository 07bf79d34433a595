package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	defaultCatalogPath    = "apple_emojis.json"
	defaultOutputDir      = "emoji_images"
	defaultRequestTimeout = 10 * time.Second
	defaultEnvFileName    = ".env"

	EnvCatalog   = "EMOJIFETCH_CATALOG"
	EnvOutputDir = "EMOJIFETCH_OUTPUT_DIR"
	EnvTimeout   = "EMOJIFETCH_TIMEOUT"
	EnvLogLevel  = "EMOJIFETCH_LOG_LEVEL"
	EnvRedisURL  = "EMOJIFETCH_REDIS_URL"
	EnvReport    = "EMOJIFETCH_REPORT"
)

type Config struct {
	CatalogPath    string        `yaml:"catalog"`
	OutputDir      string        `yaml:"output_dir"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
	RedisURL       string        `yaml:"redis_url"`
	ReportFileName string        `yaml:"report"`
}

func (c *Config) SetDefaults() {
	c.CatalogPath = defaultCatalogPath
	c.OutputDir = defaultOutputDir
	c.RequestTimeout = defaultRequestTimeout
	c.LogLevel = LogLevelInfo
}

func (c *Config) Validate() error {
	if c.CatalogPath == "" {
		return fmt.Errorf("catalog path is empty")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output dir is empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}

	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}

	return nil
}

// Load builds the config from defaults, the optional YAML file, an optional
// .env file and the process environment, in that order.
// A missing file at cfgPath is not an error.
func Load(cfgPath string) (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfgPath != "" {
		content, err := os.ReadFile(cfgPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(content, cfg); err != nil {
				return nil, fmt.Errorf("cannot parse config file %s: %w", cfgPath, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("cannot read config file %s: %w", cfgPath, err)
		}
	}

	if err := godotenv.Load(defaultEnvFileName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cannot load env file: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func MustLoad(cfgPath string) *Config {
	cfg, err := Load(cfgPath)
	if err != nil {
		panic(err)
	}

	return cfg
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvCatalog); ok && v != "" {
		c.CatalogPath = v
	}

	if v, ok := lookup(EnvOutputDir); ok && v != "" {
		c.OutputDir = v
	}

	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("cannot parse %s: %w", EnvTimeout, err)
		}
		c.RequestTimeout = d
	}

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}

	if v, ok := lookup(EnvRedisURL); ok {
		c.RedisURL = v
	}

	if v, ok := lookup(EnvReport); ok {
		c.ReportFileName = v
	}

	return nil
}
