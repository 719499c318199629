package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds user-tunable settings. Every field has a sensible default so
// the config file is optional.
type Config struct {
	DataDir         string  `yaml:"data_dir"`         // Claude projects directory
	DBPath          string  `yaml:"db_path"`          // usage history database
	PlanMonthlyUSD  float64 `yaml:"plan_monthly_usd"` // subscription price for cost comparison
	RefreshInterval int     `yaml:"refresh_interval"` // live dashboard refresh, seconds
	Timezone        string  `yaml:"timezone"`         // IANA name; empty = local
}

// configPath returns the path to the config file
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cchistory.yaml"), nil
}

// Defaults returns the configuration used when no file exists
func Defaults() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DataDir:         filepath.Join(home, ".claude", "projects"),
		DBPath:          filepath.Join(home, ".claude", "usage", "usage_history.db"),
		PlanMonthlyUSD:  200,
		RefreshInterval: 5,
	}
}

// Load reads the configuration from disk, falling back to defaults for the
// file as a whole and for any field left unset.
func Load() (*Config, error) {
	cfg := Defaults()

	path, err := configPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to disk
func Save(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Location resolves the configured timezone, defaulting to local
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Refresh returns the refresh interval as a duration
func (c *Config) Refresh() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Second
}

func (c *Config) applyDefaults() {
	d := Defaults()
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.PlanMonthlyUSD <= 0 {
		c.PlanMonthlyUSD = d.PlanMonthlyUSD
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = d.RefreshInterval
	}
}
