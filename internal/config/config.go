// Package config loads the TUI settings from YAML with environment
// overrides. Everything has a working default; a config file is only
// needed to point at a non-local backend or change page sizes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API   APIConfig   `yaml:"api"`
	OAuth OAuthConfig `yaml:"oauth"`
	UI    UIConfig    `yaml:"ui"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type OAuthConfig struct {
	// CallbackPort is where the local listener waits for the OAuth
	// redirect. The default matches the backend's frontend_url default
	// so sign-in works against an unconfigured backend.
	CallbackPort int  `yaml:"callback_port"`
	OpenBrowser  bool `yaml:"open_browser"`
}

type UIConfig struct {
	PageSize         int `yaml:"page_size"`
	ActivityPageSize int `yaml:"activity_page_size"`
}

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		OAuth: OAuthConfig{
			CallbackPort: 5173,
			OpenBrowser:  true,
		},
		UI: UIConfig{
			PageSize:         20,
			ActivityPageSize: 50,
		},
	}
}

// Load reads path and unmarshals it over the defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadOrDefault behaves like Load but treats a missing file as empty:
// defaults plus environment overrides.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(err) {
		cfg = defaultConfig()
		applyEnv(cfg)
		return cfg, nil
	}
	return nil, err
}

// applyEnv maps PERSONALQ_* variables over the file values. A .env in
// the working directory is honored when the caller loads it into the
// process environment first.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PERSONALQ_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("PERSONALQ_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("PERSONALQ_CALLBACK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.OAuth.CallbackPort = p
		}
	}
}

// DefaultPath is the conventional config location, normally
// ~/.config/personal-q/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "personal-q", "config.yaml")
}
