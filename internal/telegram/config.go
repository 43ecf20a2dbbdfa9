package telegram

import (
	"fmt"
	"time"
)

type Config struct {
	Token              string `json:"token"`
	BaseUrl            string `json:"base_url"`
	PollTimeoutSeconds int    `json:"poll_timeout_seconds"`
	// DialogTtlSeconds is how long an unfinished /plan dialog is remembered.
	DialogTtlSeconds int `json:"dialog_ttl_seconds"`
	// MaxConcurrentPlans bounds how many browser sessions the bot runs at
	// once.
	MaxConcurrentPlans int64 `json:"max_concurrent_plans"`
}

func (c *Config) FillDefaults() {
	if c.BaseUrl == "" {
		c.BaseUrl = "https://api.telegram.org"
	}
	if c.PollTimeoutSeconds == 0 {
		c.PollTimeoutSeconds = 30
	}
	if c.DialogTtlSeconds == 0 {
		c.DialogTtlSeconds = 15 * 60
	}
	if c.MaxConcurrentPlans == 0 {
		c.MaxConcurrentPlans = 4
	}
}

func (c Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("telegram: token is required")
	}
	if c.PollTimeoutSeconds < 0 || c.DialogTtlSeconds <= 0 || c.MaxConcurrentPlans <= 0 {
		return fmt.Errorf("telegram: timeouts and limits must be positive")
	}
	return nil
}

func (c Config) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutSeconds) * time.Second
}

func (c Config) dialogTtl() time.Duration {
	return time.Duration(c.DialogTtlSeconds) * time.Second
}
