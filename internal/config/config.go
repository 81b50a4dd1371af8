// Package config holds process-wide configuration: where session
// logs live, where the metrics database lives, and refresh behavior.
// Values layer as defaults < config file < environment < explicitly
// set CLI flags, so the core packages never read locations
// themselves.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Environment variable overrides.
const (
	EnvProjectsDir = "AMPLIFIER_PROJECTS_DIR"
	EnvDataDir     = "AMPLIFIER_INSIGHTS_DATA_DIR"
	EnvUserID      = "AMPLIFIER_INSIGHTS_USER"
	EnvWeeks       = "AMPLIFIER_INSIGHTS_WEEKS"
)

// Config holds all application configuration.
type Config struct {
	DataDir     string        `json:"data_dir"`
	DBPath      string        `json:"-"`
	ProjectsDir string        `json:"projects_dir"`
	UserID      string        `json:"user_id"`
	Weeks       int           `json:"weeks"`
	Debounce    time.Duration `json:"-"`
}

// Default returns a Config with home-directory derived defaults.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("determining home directory: %w", err)
	}
	dataDir := filepath.Join(home, ".amplifier-insights")
	return Config{
		DataDir:     dataDir,
		DBPath:      filepath.Join(dataDir, "metrics.db"),
		ProjectsDir: filepath.Join(home, ".amplifier", "projects"),
		UserID:      "local",
		Weeks:       4,
		Debounce:    500 * time.Millisecond,
	}, nil
}

// Load builds a Config by layering: defaults < config file < env <
// flags. The provided FlagSet must already be parsed by the caller;
// only flags that were explicitly set override the lower layers.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	cfg.applyFlags(fs)
	cfg.DBPath = filepath.Join(cfg.DataDir, "metrics.db")
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, config file, and env,
// without CLI flags. Use this for subcommands that manage their own
// flag sets.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}

	// The data dir override has to apply before the config file is
	// located inside it.
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	cfg.DBPath = filepath.Join(cfg.DataDir, "metrics.db")
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		ProjectsDir string `json:"projects_dir"`
		UserID      string `json:"user_id"`
		Weeks       int    `json:"weeks"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.ProjectsDir != "" {
		c.ProjectsDir = file.ProjectsDir
	}
	if file.UserID != "" {
		c.UserID = file.UserID
	}
	if file.Weeks > 0 {
		c.Weeks = file.Weeks
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvProjectsDir); v != "" {
		c.ProjectsDir = v
	}
	if v := os.Getenv(EnvUserID); v != "" {
		c.UserID = v
	}
	if v := os.Getenv(EnvWeeks); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Weeks = n
		}
	}
}

// applyFlags overrides config with flags the user explicitly set.
func (c *Config) applyFlags(fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data-dir":
			c.DataDir = f.Value.String()
		case "projects-dir":
			c.ProjectsDir = f.Value.String()
		case "user":
			c.UserID = f.Value.String()
		case "weeks":
			if n, err := strconv.Atoi(f.Value.String()); err == nil && n > 0 {
				c.Weeks = n
			}
		}
	})
}
