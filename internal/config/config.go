// Package config loads the adcheck YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/adcheck/browser"
	"github.com/hazyhaar/adcheck/llm"
	"github.com/hazyhaar/adcheck/policy"
)

// Config is the top-level adcheck configuration.
type Config struct {
	DBPath        string `yaml:"db_path"`
	ScreenshotDir string `yaml:"screenshot_dir"`
	ArchiveDir    string `yaml:"archive_dir"`
	TemplatesFile string `yaml:"templates_file"`
	RulesFile     string `yaml:"rules_file"`

	Browser     BrowserConfig `yaml:"browser"`
	TextModel   llm.Config    `yaml:"text_model"`
	VisualModel llm.Config    `yaml:"visual_model"`
	Check       CheckConfig   `yaml:"check"`
}

// Fetch modes.
const (
	FetchBrowser = "browser"
	FetchAuto    = "auto"
)

// BrowserConfig controls Chrome and page loading.
type BrowserConfig struct {
	Remote            string        `yaml:"remote"`
	Stealth           string        `yaml:"stealth"`    // headless | headful
	FetchMode         string        `yaml:"fetch_mode"` // browser | auto
	ResourceBlocking  []string      `yaml:"resource_blocking"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ScreenshotTimeout time.Duration `yaml:"screenshot_timeout"`
	MemoryLimit       int64         `yaml:"memory_limit"`
	RecycleInterval   time.Duration `yaml:"recycle_interval"`
	UserAgent         string        `yaml:"user_agent"`
	XvfbDisplay       string        `yaml:"xvfb_display"`
}

// CheckConfig tunes the pipeline.
type CheckConfig struct {
	Parallelism         int     `yaml:"parallelism"`
	EscalationThreshold float64 `yaml:"escalation_threshold"`
	CacheThreshold      float64 `yaml:"cache_threshold"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "adcheck.db"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.FetchMode == "" {
		c.Browser.FetchMode = FetchBrowser
	}
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = browser.NavigationTimeout
	}
	if c.Browser.ScreenshotTimeout <= 0 {
		c.Browser.ScreenshotTimeout = browser.ScreenshotTimeout
	}
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.UserAgent == "" {
		c.Browser.UserAgent = browser.DefaultUserAgent
	}

	if c.TextModel.Model == "" {
		c.TextModel.Model = "gpt-4.1-nano"
	}
	if c.TextModel.MaxTokens <= 0 {
		c.TextModel.MaxTokens = 4000
	}
	if c.TextModel.Temperature == 0 {
		c.TextModel.Temperature = 0.1
	}
	if c.TextModel.APIKey == "" && c.TextModel.APIKeyEnv == "" {
		c.TextModel.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.VisualModel.Model == "" {
		c.VisualModel.Model = "gpt-4o"
	}
	if c.VisualModel.MaxTokens <= 0 {
		c.VisualModel.MaxTokens = 1000
	}
	if c.VisualModel.APIKey == "" && c.VisualModel.APIKeyEnv == "" {
		c.VisualModel.APIKeyEnv = "OPENAI_API_KEY"
	}

	if c.Check.Parallelism <= 0 {
		c.Check.Parallelism = 3
	}
	if c.Check.EscalationThreshold <= 0 {
		c.Check.EscalationThreshold = policy.EscalationThreshold
	}
	if c.Check.CacheThreshold <= 0 {
		c.Check.CacheThreshold = policy.CacheSkipThreshold
	}
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Browser.Stealth {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.stealth must be headless or headful, got %q", c.Browser.Stealth)
	}
	switch c.Browser.FetchMode {
	case FetchBrowser, FetchAuto:
	default:
		return fmt.Errorf("config: browser.fetch_mode must be browser or auto, got %q", c.Browser.FetchMode)
	}
	for name, th := range map[string]float64{
		"check.escalation_threshold": c.Check.EscalationThreshold,
		"check.cache_threshold":      c.Check.CacheThreshold,
	} {
		if th > 1 {
			return fmt.Errorf("config: %s must be in (0, 1], got %v", name, th)
		}
	}
	for _, m := range []llm.Config{c.TextModel, c.VisualModel} {
		switch strings.ToLower(m.Provider) {
		case "", llm.ProviderOpenAI, llm.ProviderAnthropic:
		default:
			return fmt.Errorf("config: unknown model provider %q", m.Provider)
		}
	}
	return nil
}

// BrowserManager converts the browser section to a browser.Config.
func (b BrowserConfig) BrowserManager() browser.Config {
	level := browser.LevelHeadless
	if b.Stealth == "headful" {
		level = browser.LevelHeadful
	}
	return browser.Config{
		RemoteURL:         b.Remote,
		Stealth:           level,
		ResourceBlocking:  b.ResourceBlocking,
		MemoryLimit:       b.MemoryLimit,
		RecycleInterval:   b.RecycleInterval,
		NavigationTimeout: b.NavigationTimeout,
		ScreenshotTimeout: b.ScreenshotTimeout,
		UserAgent:         b.UserAgent,
		XvfbDisplay:       b.XvfbDisplay,
	}
}
