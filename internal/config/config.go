package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Scraper ScraperConfig `yaml:"scraper" envconfig:"SCRAPER"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// ScraperConfig contains settings for the state-tables download stage.
type ScraperConfig struct {
	BaseURL         string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://state-tables.fdic.gov/"`
	Headless        bool          `yaml:"headless" envconfig:"HEADLESS" default:"true"`
	DownloadTimeout time.Duration `yaml:"download_timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"45s"`
	RequestInterval time.Duration `yaml:"request_interval" envconfig:"REQUEST_INTERVAL" default:"10s"`
}

// PathsConfig contains the base directory the Paths type expands from.
type PathsConfig struct {
	BaseDir string `yaml:"base_dir" envconfig:"BASE_DIR" default:"data"`
}

// Load loads configuration from environment variables and config file.
// Environment variables (prefix FDIC) take precedence over the file.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("FDIC", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := findConfigFile()
	if configFile != "" {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence).
func mergeConfigs(fileCfg, envCfg Config) Config {
	if envCfg.Logging.Level == "" {
		envCfg.Logging.Level = fileCfg.Logging.Level
	}
	if envCfg.Logging.FilePath == "" {
		envCfg.Logging.FilePath = fileCfg.Logging.FilePath
	}
	if envCfg.Scraper.BaseURL == "" {
		envCfg.Scraper.BaseURL = fileCfg.Scraper.BaseURL
	}
	if envCfg.Scraper.DownloadTimeout == 0 {
		envCfg.Scraper.DownloadTimeout = fileCfg.Scraper.DownloadTimeout
	}
	if envCfg.Scraper.RequestInterval == 0 {
		envCfg.Scraper.RequestInterval = fileCfg.Scraper.RequestInterval
	}
	if envCfg.Paths.BaseDir == "" {
		envCfg.Paths.BaseDir = fileCfg.Paths.BaseDir
	}
	return envCfg
}

// validate checks the configuration and normalizes logging settings.
func (c *Config) validate() error {
	if c.Paths.BaseDir == "" {
		return fmt.Errorf("paths.base_dir must not be empty")
	}

	if c.Scraper.DownloadTimeout < 0 {
		return fmt.Errorf("scraper download timeout must not be negative")
	}

	// Structured output is always JSON; anything else is normalized.
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// findConfigFile returns the path to the config file, if one exists.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Scraper: ScraperConfig{
			BaseURL:         "https://state-tables.fdic.gov/",
			Headless:        true,
			DownloadTimeout: 45 * time.Second,
			RequestInterval: 10 * time.Second,
		},
		Paths: PathsConfig{
			BaseDir: "data",
		},
	}
}
