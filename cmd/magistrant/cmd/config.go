package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"magistrant/internal/components/telemetry"
	"magistrant/internal/configutil"
	"magistrant/internal/curriculum"
	"magistrant/internal/scrapers/kpfu"
	"magistrant/internal/store"
	"magistrant/internal/telegram"
)

const (
	envTelegramToken = "MAGISTRANT_TELEGRAM_TOKEN"
	envStoreDsn      = "MAGISTRANT_STORE_DSN"
	envPassword      = "MAGISTRANT_PASSWORD"
)

type CacheConfig struct {
	// CacheEmptyResults remembers terms whose curriculum had no qualifying
	// rows instead of scraping them again on every request.
	CacheEmptyResults bool `json:"cache_empty_results"`
}

type Config struct {
	Portal    kpfu.Config       `json:"portal"`
	Layout    curriculum.Layout `json:"layout"`
	Store     store.Config      `json:"store"`
	Cache     CacheConfig       `json:"cache"`
	Telegram  telegram.Config   `json:"telegram"`
	Telemetry telemetry.Config  `json:"telemetry"`
}

func defaultConfig() Config {
	return Config{
		Portal: kpfu.DefaultConfig(),
		Layout: curriculum.DefaultLayout(),
		Store: store.Config{
			Driver: store.DriverFile,
			Path:   "data.json",
		},
	}
}

// fillDefaults sets unset fields to their defaults, sections left out of the
// config file entirely get the default section.
func (c *Config) fillDefaults() {
	defaults := defaultConfig()
	c.Portal.FillDefaults()
	if c.Layout == (curriculum.Layout{}) {
		c.Layout = defaults.Layout
	}
	if c.Store.Driver == "" {
		c.Store.Driver = defaults.Store.Driver
		if c.Store.Path == "" {
			c.Store.Path = defaults.Store.Path
		}
	}
	c.Telegram.FillDefaults()
}

func (c Config) validate() error {
	err := c.Portal.Validate()
	if err != nil {
		return err
	}
	err = c.Layout.Validate()
	if err != nil {
		return err
	}
	return c.Store.Validate()
}

// loadConfig reads the config file (and its local override), applies
// environment overrides then fills defaults. A missing config file is not an
// error, everything has a default except the bot token.
func loadConfig(path string) (Config, error) {
	err := configutil.LoadDotenv()
	if err != nil {
		return Config{}, err
	}

	config, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", path)
		config = Config{}
	} else if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	configutil.OverrideFromEnv(&config.Telegram.Token, envTelegramToken)
	configutil.OverrideFromEnv(&config.Store.DSN, envStoreDsn)

	config.fillDefaults()
	err = config.validate()
	if err != nil {
		return Config{}, err
	}
	return config, nil
}
