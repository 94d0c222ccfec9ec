package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Output string `yaml:"output"`
	Debug  bool   `yaml:"debug"`

	MaxChapters        int `yaml:"max_chapters"`
	HTTPTimeoutSec     int `yaml:"http_timeout_sec"`
	MetadataTimeoutSec int `yaml:"metadata_timeout_sec"`

	// Description extraction varies per deployment; the selector order and
	// truncation length are profile settings, not constants.
	DescMaxLen    int      `yaml:"desc_max_len"`
	DescSelectors []string `yaml:"desc_selectors"`

	Cookie           string `yaml:"cookie"`
	CookieFile       string `yaml:"cookie_file"`
	UserAgent        string `yaml:"user_agent"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass"`

	DefaultURL   string `yaml:"default_url"`
	DefaultLimit int    `yaml:"default_limit"`
}

type Options struct {
	IgnoreConfig     bool
	Debug            bool
	Output           string
	MaxChapters      int
	Cookie           string
	CookieFile       string
	UserAgent        string
	CloudflareBypass bool
	DefaultURL       string
	DefaultLimit     int
}

func DefaultConfig() *Config {
	return &Config{
		Output:             "books",
		Debug:              false,
		MaxChapters:        200,
		HTTPTimeoutSec:     30,
		MetadataTimeoutSec: 10,
		DescMaxLen:         500,
		DescSelectors:      nil,
		Cookie:             "",
		CookieFile:         "",
		UserAgent:          "",
		CloudflareBypass:   false,
		DefaultURL:         "",
		DefaultLimit:       0,
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `noveld config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Debug {
		c.Debug = true
	}
	if o.MaxChapters != 0 {
		c.MaxChapters = o.MaxChapters
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.CloudflareBypass {
		c.CloudflareBypass = true
	}
	if o.DefaultURL != "" {
		c.DefaultURL = o.DefaultURL
	}
	if o.DefaultLimit != 0 {
		c.DefaultLimit = o.DefaultLimit
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "books"
	}
	if c.MaxChapters == 0 {
		c.MaxChapters = 200
	}
	if c.HTTPTimeoutSec == 0 {
		c.HTTPTimeoutSec = 30
	}
	if c.MetadataTimeoutSec == 0 {
		c.MetadataTimeoutSec = 10
	}
	if c.DescMaxLen == 0 {
		c.DescMaxLen = 500
	}
}

func (c *Config) Print() {
	if c.Output != "" {
		fmt.Printf(" -output: %s\n", c.Output)
	}
	fmt.Printf(" -max_chapters: %d\n", c.MaxChapters)
	fmt.Printf(" -http_timeout_sec: %d\n", c.HTTPTimeoutSec)
	fmt.Printf(" -metadata_timeout_sec: %d\n", c.MetadataTimeoutSec)
	fmt.Printf(" -desc_max_len: %d\n", c.DescMaxLen)
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if c.CloudflareBypass {
		fmt.Printf(" -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		fmt.Printf(" -user_agent: %s\n", c.UserAgent)
	}
	if c.DefaultURL != "" {
		fmt.Printf(" -default_url: %s\n", c.DefaultURL)
	}
	if c.DefaultLimit != 0 {
		fmt.Printf(" -default_limit: %d\n", c.DefaultLimit)
	}
	if len(c.DescSelectors) > 0 {
		fmt.Printf(" -desc_selectors: %s\n", strings.Join(c.DescSelectors, ", "))
	}
}
