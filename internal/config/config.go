// Package config loads cligate's YAML configuration: per-user chat-bridge
// settings (adapted from the teacher's internal/config/config.go) plus the
// gateway-level settings spec.md's Session Output Loop and Virtual
// Terminal need — poll interval, edit rate limit, and PTY geometry — which
// the distilled spec left implicit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"cligate/internal/vterm"
)

// Config is the root of cligate's YAML configuration.
type Config struct {
	Users   map[string]*UserConfig `yaml:"users"`
	Gateway GatewayConfig          `yaml:"gateway"`
}

// UserConfig holds one user's CLI command and chat-bridge configuration.
type UserConfig struct {
	Command string        `yaml:"command"`
	Bridges BridgesConfig `yaml:"bridges"`
}

// BridgesConfig names which chat platform a user is wired to.
type BridgesConfig struct {
	Telegram *TelegramConfig `yaml:"telegram"`
}

// TelegramConfig configures the Telegram bridge.
type TelegramConfig struct {
	BotToken        string   `yaml:"bot_token"`
	ChatID          int64    `yaml:"chat_id"`
	AllowedCommands []string `yaml:"allowed_commands,omitempty"`
}

// GatewayConfig holds settings for the polling supervisor and terminal
// reconstruction.
type GatewayConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	EditRateLimit  float64       `yaml:"edit_rate_limit"`
	Rows           int           `yaml:"rows"`
	Cols           int           `yaml:"cols"`
	ScrollbackRows int           `yaml:"scrollback_rows"`
	MaxSessions    int           `yaml:"max_sessions"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

// DefaultPollInterval is the Session Output Loop's tick rate (spec.md §4.I).
const DefaultPollInterval = 300 * time.Millisecond

func (g GatewayConfig) normalized() GatewayConfig {
	if g.PollInterval <= 0 {
		g.PollInterval = DefaultPollInterval
	}
	if g.EditRateLimit <= 0 {
		g.EditRateLimit = 1
	}
	if g.Rows <= 0 {
		g.Rows = vterm.DefaultRows
	}
	if g.Cols <= 0 {
		g.Cols = vterm.DefaultCols
	}
	if g.ScrollbackRows <= 0 {
		g.ScrollbackRows = vterm.DefaultScrollbackRows
	}
	if g.MaxSessions <= 0 {
		g.MaxSessions = 50
	}
	if g.IdleTimeout <= 0 {
		g.IdleTimeout = 30 * time.Minute
	}
	return g
}

// ConfigDir returns cligate's configuration directory (~/.cligate/).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".cligate")
	}
	return filepath.Join(home, ".cligate")
}

// Load reads the config from ~/.cligate/config.yaml.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(ConfigDir(), "config.yaml"))
}

// LoadFrom reads the config from the given path. If the file does not
// exist, it returns a zero-value Config (with Gateway defaults applied)
// and no error.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			cfg.Gateway = cfg.Gateway.normalized()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Gateway = cfg.Gateway.normalized()
	return &cfg, nil
}

var allowedCommandRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func (c *Config) validate() error {
	for username, u := range c.Users {
		if u == nil || u.Bridges.Telegram == nil {
			continue
		}
		if err := validateAllowedCommands(u.Bridges.Telegram.AllowedCommands); err != nil {
			return fmt.Errorf("user %s: bridges.telegram: %w", username, err)
		}
	}
	return nil
}

func validateAllowedCommands(cmds []string) error {
	for _, cmd := range cmds {
		if cmd == "" {
			return fmt.Errorf("allowed_commands: empty string not permitted")
		}
		if !allowedCommandRe.MatchString(cmd) {
			return fmt.Errorf("allowed_commands: invalid command name %q (must match [a-zA-Z0-9_-]+)", cmd)
		}
	}
	return nil
}
