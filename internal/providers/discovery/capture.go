package discovery

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/id"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/paths"
)

var (
	ErrCaptureUnsupported = apperr.Sentinel(apperr.KindCapability, "output capture is not supported on Windows")
	ErrScriptMissing      = apperr.Sentinel(apperr.KindCapability, "the 'script' command is not available; install util-linux or bsdutils")
)

// Sender writes a line of input into a terminal
type Sender interface {
	Write(id, data string) error
}

// CaptureConfig configures a CaptureManager
type CaptureConfig struct {
	Dir      string // temp directory for capture files; empty means os.TempDir
	GOOS     string
	LookPath func(file string) (string, error)
	Logger   *zap.Logger
}

type capture struct {
	file    string
	stopped bool
}

// CaptureManager records terminal output with script(1). At most one
// capture runs per terminal.
type CaptureManager struct {
	mu       sync.Mutex
	captures map[string]*capture

	sender   Sender
	dir      string
	goos     string
	lookPath func(string) (string, error)
	logger   *zap.Logger
}

// NewCaptureManager creates a capture manager writing through sender
func NewCaptureManager(sender Sender, cfg CaptureConfig) *CaptureManager {
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}
	if cfg.LookPath == nil {
		cfg.LookPath = exec.LookPath
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &CaptureManager{
		captures: make(map[string]*capture),
		sender:   sender,
		dir:      cfg.Dir,
		goos:     cfg.GOOS,
		lookPath: cfg.LookPath,
		logger:   cfg.Logger.Named("capture"),
	}
}

// Start begins recording the terminal and returns the capture file path.
// A capture already running for the terminal is replaced.
func (c *CaptureManager) Start(t Terminal) (string, error) {
	if c.goos == "windows" {
		return "", ErrCaptureUnsupported
	}
	if _, err := c.lookPath("script"); err != nil {
		return "", ErrScriptMissing
	}

	c.Cleanup(t)

	file := paths.CaptureFile(c.dir, os.Getpid(), id.Default().GenerateString())
	if err := c.sender.Write(t.ID, fmt.Sprintf("script -q %q\n", file)); err != nil {
		return "", apperr.New(apperr.KindProcess, fmt.Errorf("failed to start capture: %w", err))
	}

	c.mu.Lock()
	c.captures[t.ID] = &capture{file: file}
	c.mu.Unlock()

	c.logger.Info("Capture started", zap.String("terminal", t.Name), zap.String("file", file))
	return file, nil
}

// Capturing reports whether a capture is recorded for the terminal
func (c *CaptureManager) Capturing(t Terminal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.captures[t.ID]
	return ok
}

// Stopping reports whether the terminal's capture was stopped and is
// waiting to be read and cleaned up.
func (c *CaptureManager) Stopping(t Terminal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp, ok := c.captures[t.ID]
	return ok && cp.stopped
}

// Stop ends the recording sub-shell. It is a no-op when the terminal is
// not being captured or was already stopped, so the user's own shell
// never receives a second exit.
func (c *CaptureManager) Stop(t Terminal) error {
	c.mu.Lock()
	cp, ok := c.captures[t.ID]
	if !ok || cp.stopped {
		c.mu.Unlock()
		return nil
	}
	cp.stopped = true
	c.mu.Unlock()

	if err := c.sender.Write(t.ID, "exit\n"); err != nil {
		c.mu.Lock()
		cp.stopped = false
		c.mu.Unlock()
		return err
	}
	return nil
}

// Read returns the captured text with escape sequences removed, or an
// empty string when nothing was captured.
func (c *CaptureManager) Read(t Terminal) string {
	c.mu.Lock()
	cp, ok := c.captures[t.ID]
	c.mu.Unlock()
	if !ok {
		return ""
	}
	file := cp.file

	data, err := os.ReadFile(file)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Failed to read capture file", zap.String("file", file), zap.Error(err))
		}
		return ""
	}
	return ansi.Strip(string(data))
}

// Cleanup removes the capture file and forgets the capture. Safe to call
// more than once.
func (c *CaptureManager) Cleanup(t Terminal) {
	c.mu.Lock()
	cp, ok := c.captures[t.ID]
	delete(c.captures, t.ID)
	c.mu.Unlock()

	if !ok {
		return
	}
	if err := os.Remove(cp.file); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("Failed to delete capture file", zap.String("file", cp.file), zap.Error(err))
	}
}

// CleanupAll removes every capture file
func (c *CaptureManager) CleanupAll() {
	c.mu.Lock()
	ids := make([]string, 0, len(c.captures))
	for tid := range c.captures {
		ids = append(ids, tid)
	}
	c.mu.Unlock()

	for _, tid := range ids {
		c.Cleanup(Terminal{ID: tid})
	}
}
