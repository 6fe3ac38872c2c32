package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/opencode-tui/internal/infrastructure/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LogConfig{Level: "debug", Development: true})
	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.Development)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)

	assert.Equal(t, "info", FromConfig(config.LogConfig{}).Level)
}

func TestLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Config{Level: "info", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Component("terminal").Info("session created")
	logger.Debug("hidden")
	logger.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"session created"`)
	assert.Contains(t, string(data), `"logger":"terminal"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestSetLevel(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, logger.SetLevel("warn"))
	assert.Equal(t, "warn", logger.Level())
	assert.Error(t, logger.SetLevel("nope"))
}
