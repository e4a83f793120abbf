// Package config handles the XDG configuration directory, file paths and settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	// AppName is the application directory name.
	AppName = "todd"

	// SettingsFile is the optional settings filename.
	SettingsFile = "config.yaml"

	// SessionFile is the persisted session filename.
	SessionFile = "session.json"

	// DraftFile holds the last draft that failed to submit.
	DraftFile = "draft.json"

	// EnvFile is loaded into the environment before settings are read.
	EnvFile = ".env"
)

// Settings are the user-tunable values read from config.yaml and the environment.
// Environment variables override the file.
type Settings struct {
	APIURL            string        `yaml:"api_url" env:"TODD_API_URL" env-default:"https://todd-backend.onrender.com"`
	Timeout           time.Duration `yaml:"timeout" env:"TODD_TIMEOUT" env-default:"15s"`
	SessionTTL        time.Duration `yaml:"session_ttl" env:"TODD_SESSION_TTL" env-default:"1h"`
	DescriptionMaxLen int           `yaml:"description_max_len" env:"TODD_DESCRIPTION_MAX_LEN" env-default:"100"`
	LogLevel          string        `yaml:"log_level" env:"TODD_LOG_LEVEL" env-default:"info"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Settings are loaded from config.yaml and the environment.
	Settings Settings
}

// New creates a new Config with the default or specified config directory
// and loads its settings.
// If configDir is empty, uses XDG_CONFIG_HOME/todd or $HOME/.config/todd.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir}
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads .env files and then config.yaml (if present) into c.Settings.
func (c *Config) Load() error {
	for _, path := range []string{filepath.Join(c.Dir, EnvFile), EnvFile} {
		if !fileExists(path) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("invalid %s: %w", path, err)
		}
	}

	var s Settings
	if fileExists(c.SettingsPath()) {
		if err := cleanenv.ReadConfig(c.SettingsPath(), &s); err != nil {
			return fmt.Errorf("invalid %s: %w", c.SettingsPath(), err)
		}
	} else if err := cleanenv.ReadEnv(&s); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	if s.Timeout <= 0 {
		return errors.New("invalid timeout: must be positive")
	}
	c.Settings = s
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// SessionPath returns the path to the persisted session.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// DraftPath returns the path to the saved draft.
func (c *Config) DraftPath() string {
	return filepath.Join(c.Dir, DraftFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasSession checks if a persisted session exists.
func (c *Config) HasSession() bool {
	return fileExists(c.SessionPath())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
