package kpfu

import (
	"fmt"
	"time"
)

type Config struct {
	EntryUrl      string `json:"entry_url"`
	CurriculumUrl string `json:"curriculum_url"`
	// TimeoutSeconds bounds every wait for an element or a navigation.
	TimeoutSeconds int `json:"timeout_seconds"`
	// SettleSeconds is how long to let the curriculum page render after it is
	// opened and again after the cohort filter is clicked.
	SettleSeconds int `json:"settle_seconds"`
	// RemoteUrl is the DevTools websocket url of an already running browser,
	// when empty a local browser is started.
	RemoteUrl   string `json:"remote_url"`
	ExecPath    string `json:"exec_path"`
	ShowBrowser bool   `json:"show_browser"`
}

func DefaultConfig() Config {
	return Config{
		EntryUrl:       "https://kpfu.ru",
		CurriculumUrl:  "https://newlk.kpfu.ru/services/session/curriculum",
		TimeoutSeconds: 30,
		SettleSeconds:  2,
	}
}

func (c Config) Validate() error {
	if c.EntryUrl == "" || c.CurriculumUrl == "" {
		return fmt.Errorf("portal: entry_url and curriculum_url are required")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("portal: timeout_seconds must be positive")
	}
	if c.SettleSeconds < 0 {
		return fmt.Errorf("portal: settle_seconds must not be negative")
	}
	return nil
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) settle() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}

// FillDefaults sets every unset field to its default value.
func (c *Config) FillDefaults() {
	defaults := DefaultConfig()
	if c.EntryUrl == "" {
		c.EntryUrl = defaults.EntryUrl
	}
	if c.CurriculumUrl == "" {
		c.CurriculumUrl = defaults.CurriculumUrl
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if c.SettleSeconds == 0 {
		c.SettleSeconds = defaults.SettleSeconds
	}
}
