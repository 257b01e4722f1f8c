package config

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rflorenc/foreman-inventory/internal/inventory"
)

// defaultConfigFile is picked up from the working directory when --config is
// not given, so the binary works as a drop-in ansible inventory script with
// its config sitting next to it.
const defaultConfigFile = "foreman.yml"

// ForemanConfig holds the API connection settings.
type ForemanConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Insecure bool   `yaml:"insecure"`
	CACert   string `yaml:"cacert"`
	Timeout  int    `yaml:"timeout"` // seconds
	PerPage  int    `yaml:"per_page"`
}

// AnsibleConfig holds the group derivation settings.
type AnsibleConfig struct {
	GroupPatterns []string `yaml:"group_patterns"`
}

// CacheConfig holds the inventory cache settings.
type CacheConfig struct {
	Path   string `yaml:"path"`
	MaxAge int    `yaml:"max_age"` // seconds, 0 disables reuse
}

// Config holds all configuration (CLI flags + config file).
type Config struct {
	Foreman ForemanConfig `yaml:"foreman"`
	Ansible AnsibleConfig `yaml:"ansible"`
	Cache   CacheConfig   `yaml:"cache"`

	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	// Modes come from CLI flags only.
	List         bool   `yaml:"-"`
	Host         string `yaml:"-"`
	RefreshCache bool   `yaml:"-"`
	Serve        bool   `yaml:"-"`

	// Patterns holds the compiled group patterns; nothing downstream
	// re-parses the raw strings.
	Patterns []inventory.Pattern `yaml:"-"`

	// internal: path to config file (from CLI flag)
	configFile string
}

// Parse reads CLI flags, then overlays config file values.
// CLI flags take precedence over config file values.
func Parse() (*Config, error) {
	c := &Config{}
	flag.StringVar(&c.configFile, "config", "", "Path to config file (YAML)")
	flag.BoolVar(&c.List, "list", false, "Print the full inventory as JSON")
	flag.StringVar(&c.Host, "host", "", "Print variables for one host")
	flag.BoolVar(&c.RefreshCache, "refresh-cache", false, "Ignore the cache and refetch from Foreman")
	flag.BoolVar(&c.Serve, "serve", false, "Run the HTTP inventory service")
	flag.StringVar(&c.Listen, "listen", "", "HTTP listen address")
	flag.StringVar(&c.Foreman.URL, "url", "", "Foreman base URL")
	flag.StringVar(&c.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flag.Parse()

	if err := c.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

// finish loads the config file, applies defaults and validates. Split from
// Parse so tests can drive it without the process-global flag set.
func (c *Config) finish() error {
	path := c.configFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return err
		}
	}

	c.applyDefaults()
	return c.validate()
}

// loadFile reads a YAML config file. Values from the file are only applied
// if the corresponding CLI flag was not explicitly set.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	// Only apply file values if the CLI flag wasn't set
	if c.Foreman.URL == "" && file.Foreman.URL != "" {
		c.Foreman.URL = file.Foreman.URL
	}
	if c.Listen == "" && file.Listen != "" {
		c.Listen = file.Listen
	}
	if c.LogLevel == "" && file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}

	// Everything without a flag always comes from the config file
	c.Foreman.Username = file.Foreman.Username
	c.Foreman.Password = file.Foreman.Password
	c.Foreman.Insecure = file.Foreman.Insecure
	c.Foreman.CACert = file.Foreman.CACert
	c.Foreman.Timeout = file.Foreman.Timeout
	c.Foreman.PerPage = file.Foreman.PerPage
	c.Ansible = file.Ansible
	c.Cache = file.Cache

	return nil
}

// applyDefaults fills anything still unset after flags and file.
func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "."
	}
	if c.Foreman.Timeout == 0 {
		c.Foreman.Timeout = 30
	}
	if c.Foreman.PerPage == 0 {
		c.Foreman.PerPage = 250
	}
	// ansible calls the script with --list or --host; with neither, and no
	// serve mode, behave as --list.
	if !c.Serve && c.Host == "" {
		c.List = true
	}
}

// validate checks required settings and compiles the group patterns.
// Pattern errors abort here, before any host is processed.
func (c *Config) validate() error {
	if c.Foreman.URL == "" {
		return errors.New("foreman.url is required (config file or --url)")
	}
	for _, raw := range c.Ansible.GroupPatterns {
		p, err := inventory.CompilePattern(raw)
		if err != nil {
			return fmt.Errorf("group pattern %q: %w", raw, err)
		}
		c.Patterns = append(c.Patterns, p)
	}
	return nil
}
