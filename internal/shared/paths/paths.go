// Package paths provides the standard filesystem locations used by the host.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppName names the per-user config directory
const AppName = "opencode-tui"

// Files under ConfigDir
const (
	StateFile    = "state.yaml"
	SettingsFile = "settings.toml"
)

// CapturePrefix prefixes every capture log file
const CapturePrefix = "opencode-capture"

// ConfigDir returns the per-user configuration directory.
// OPENCODE_TUI_CONFIG_DIR overrides the platform default.
func ConfigDir() (string, error) {
	if dir := os.Getenv("OPENCODE_TUI_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// StatePath returns the location of the persisted state file
func StatePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, StateFile), nil
}

// SettingsPath returns the location of the optional settings file
func SettingsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFile), nil
}

// CaptureFile returns a unique capture log path in dir.
// An empty dir means the OS temp directory.
func CaptureFile(dir string, pid int, captureID string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%d-%s.log", CapturePrefix, pid, captureID))
}

// HomeDir returns the user home, falling back to the temp directory
func HomeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return os.TempDir()
}

// WorkingDir picks the directory new sessions start in: the first
// workspace root when present, else the user home.
func WorkingDir(roots []string) string {
	if len(roots) > 0 && roots[0] != "" {
		return roots[0]
	}
	return HomeDir()
}
