package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("CHEMSTALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("chemstalk")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".chemstalk"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("crawler.company_name", cfg.Crawler.CompanyName)
	v.SetDefault("crawler.base_url", cfg.Crawler.BaseURL)
	v.SetDefault("crawler.concurrency", cfg.Crawler.Concurrency)
	v.SetDefault("crawler.politeness_delay", cfg.Crawler.PolitenessDelay)
	v.SetDefault("crawler.request_timeout", cfg.Crawler.RequestTimeout)
	v.SetDefault("crawler.probe_timeout", cfg.Crawler.ProbeTimeout)
	v.SetDefault("crawler.max_listing_pages", cfg.Crawler.MaxListingPages)
	v.SetDefault("crawler.user_agents", cfg.Crawler.UserAgents)

	v.SetDefault("driver.headless", cfg.Driver.Headless)
	v.SetDefault("driver.window_size", cfg.Driver.WindowSize)
	v.SetDefault("driver.nav_timeout", cfg.Driver.NavTimeout)
	v.SetDefault("driver.wait_timeout", cfg.Driver.WaitTimeout)

	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)

	v.SetDefault("storage.uri", cfg.Storage.URI)
	v.SetDefault("storage.database", cfg.Storage.Database)
	v.SetDefault("storage.collection", cfg.Storage.Collection)

	v.SetDefault("api.port", cfg.API.Port)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

// Validate checks configuration invariants that would otherwise surface
// as confusing runtime failures.
func Validate(cfg *Config) error {
	if cfg.Crawler.BaseURL == "" {
		return fmt.Errorf("crawler.base_url must be set")
	}
	if cfg.Crawler.Concurrency < 1 {
		return fmt.Errorf("crawler.concurrency must be at least 1, got %d", cfg.Crawler.Concurrency)
	}
	if cfg.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be positive")
	}
	if cfg.Storage.URI == "" {
		return fmt.Errorf("storage.uri must be set")
	}
	return nil
}
