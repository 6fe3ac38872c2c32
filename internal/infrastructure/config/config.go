// Package config loads opencode-tui settings.
//
// Sources, lowest precedence first: built-in defaults, the TOML settings
// file, environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/opencode-tui/internal/shared/paths"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	TUI       TUIConfig       `toml:"tui"`
	Ports     PortConfig      `toml:"ports"`
	Opener    OpenerConfig    `toml:"opener"`
	Consent   ConsentConfig   `toml:"consent"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string   `envconfig:"PORT" toml:"port"`
	Host           string   `envconfig:"HOST" toml:"host"`
	AllowedOrigins []string `envconfig:"CORS_ORIGINS" toml:"allowed_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled"`
}

// TUIConfig holds the OpenCode terminal settings.
type TUIConfig struct {
	Command          string   `envconfig:"OPENCODE_TUI_COMMAND" toml:"command"`
	AutoStart        bool     `envconfig:"OPENCODE_TUI_AUTO_START" toml:"auto_start"`
	AutoFocusOnSend  bool     `envconfig:"OPENCODE_TUI_AUTO_FOCUS_ON_SEND" toml:"auto_focus_on_send"`
	ShellPath        string   `envconfig:"OPENCODE_TUI_SHELL_PATH" toml:"shell_path"`
	ShellArgs        []string `envconfig:"OPENCODE_TUI_SHELL_ARGS" toml:"shell_args"`
	EnableHTTPAPI    bool     `envconfig:"OPENCODE_TUI_ENABLE_HTTP_API" toml:"enable_http_api"`
	HTTPTimeout      Duration `envconfig:"OPENCODE_TUI_HTTP_TIMEOUT" toml:"http_timeout"`
	AutoShareContext bool     `envconfig:"OPENCODE_TUI_AUTO_SHARE_CONTEXT" toml:"auto_share_context"`
	WorkspaceRoots   []string `envconfig:"OPENCODE_TUI_WORKSPACE" toml:"workspace_roots"`
	ScrollbackBytes  int      `envconfig:"OPENCODE_TUI_SCROLLBACK" toml:"scrollback_bytes"`
	WatchWorkspace   bool     `envconfig:"OPENCODE_TUI_WATCH_WORKSPACE" toml:"watch_workspace"`
}

// PortConfig holds the sidecar port pool.
type PortConfig struct {
	Start int `envconfig:"OPENCODE_TUI_PORT_START" toml:"start"`
	Size  int `envconfig:"OPENCODE_TUI_PORT_POOL" toml:"size"`
}

// OpenerConfig holds the external open commands.
type OpenerConfig struct {
	FileCommand string `envconfig:"OPENCODE_TUI_OPEN_FILE" toml:"file_command"`
	URLCommand  string `envconfig:"OPENCODE_TUI_OPEN_URL" toml:"url_command"`
}

// ConsentConfig holds foreign-terminal consent settings.
type ConsentConfig struct {
	StatePath     string   `envconfig:"OPENCODE_TUI_STATE" toml:"state_path"`
	PromptTimeout Duration `envconfig:"OPENCODE_TUI_PROMPT_TIMEOUT" toml:"prompt_timeout"`
}

// Duration is a time.Duration written as "10s" in TOML and the environment.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads the default settings file and the environment.
func Load() (*Config, error) {
	path, err := paths.SettingsPath()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return LoadFile(path)
}

// LoadFile reads path, which may be absent, then applies the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks values that would make the daemon unusable.
func (c *Config) Validate() error {
	if c.Ports.Start <= 0 || c.Ports.Start+c.Ports.Size > 65536 || c.Ports.Size <= 0 {
		return fmt.Errorf("invalid port pool %d+%d", c.Ports.Start, c.Ports.Size)
	}
	if strings.TrimSpace(c.TUI.Command) == "" {
		return fmt.Errorf("tui command must not be empty")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}
	return nil
}

// Marshal renders the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "7420",
			Host:           "127.0.0.1",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		TUI: TUIConfig{
			Command:          "opencode -c",
			AutoStart:        true,
			AutoFocusOnSend:  true,
			EnableHTTPAPI:    true,
			HTTPTimeout:      Duration(10 * time.Second),
			AutoShareContext: true,
			ScrollbackBytes:  256 * 1024,
			WatchWorkspace:   true,
		},
		Ports: PortConfig{
			Start: 16384,
			Size:  100,
		},
		Consent: ConsentConfig{
			PromptTimeout: Duration(2 * time.Minute),
		},
	}
}
