package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/opencode-tui/internal/providers/terminal"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/events"
)

type fakeHost struct {
	mu       sync.Mutex
	sessions []terminal.SessionInfo
	written  map[string][]string
	changes  *events.Emitter[terminal.ChangeEvent]
	writeErr error
}

func newFakeHost(sessions ...terminal.SessionInfo) *fakeHost {
	return &fakeHost{
		sessions: sessions,
		written:  make(map[string][]string),
		changes:  events.NewEmitter[terminal.ChangeEvent](),
	}
}

func (h *fakeHost) List() []terminal.SessionInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]terminal.SessionInfo(nil), h.sessions...)
}

func (h *fakeHost) Write(id, data string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.writeErr != nil {
		return h.writeErr
	}
	h.written[id] = append(h.written[id], data)
	return nil
}

func (h *fakeHost) OnChange(fn func(terminal.ChangeEvent)) func() {
	return h.changes.Subscribe(fn)
}

func (h *fakeHost) lines(id string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.written[id]...)
}

func TestTerminalsExcludesOwnedAndStarting(t *testing.T) {
	host := newFakeHost(
		terminal.SessionInfo{ID: OwnedID, Name: OwnedName, Pid: 10},
		terminal.SessionInfo{ID: "t1", Name: "OpenCode TUI", Pid: 11},
		terminal.SessionInfo{ID: "t2", Name: "bash", Pid: 0},
		terminal.SessionInfo{ID: "t3", Name: "zsh", Pid: 12, Cwd: "/w"},
	)
	s := NewService(host)
	defer s.Dispose()

	terms := s.Terminals()
	require.Len(t, terms, 1)
	assert.Equal(t, Terminal{ID: "t3", Name: "zsh", OriginalName: "zsh", Pid: 12, Cwd: "/w"}, terms[0])
}

func TestTerminalsDisambiguatesDuplicates(t *testing.T) {
	host := newFakeHost(
		terminal.SessionInfo{ID: "a", Name: "bash", Pid: 1, Cwd: "/one"},
		terminal.SessionInfo{ID: "b", Name: "bash", Pid: 2, Cwd: "/two"},
		terminal.SessionInfo{ID: "c", Name: "bash", Pid: 3},
		terminal.SessionInfo{ID: "d", Name: "node", Pid: 4, Cwd: "/three"},
	)
	s := NewService(host)
	defer s.Dispose()

	names := s.Names()
	assert.Equal(t, []string{"bash [/one]", "bash [/two]", "bash", "node"}, names)
}

func TestFind(t *testing.T) {
	host := newFakeHost(
		terminal.SessionInfo{ID: "a", Name: "bash", Pid: 1, Cwd: "/one"},
		terminal.SessionInfo{ID: "b", Name: "bash", Pid: 2, Cwd: "/two"},
		terminal.SessionInfo{ID: "c", Name: "dev-server", Pid: 3},
	)
	s := NewService(host)
	defer s.Dispose()

	got, ok := s.Find("bash [/two]")
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)

	got, ok = s.Find("bash")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)

	got, ok = s.Find("devsrv")
	require.True(t, ok)
	assert.Equal(t, "c", got.ID)

	_, ok = s.Find("python")
	assert.False(t, ok)
}

func TestOnDidChangeTerminals(t *testing.T) {
	host := newFakeHost()
	s := NewService(host)

	calls := 0
	s.OnDidChangeTerminals(func() { calls++ })
	host.changes.Fire(terminal.ChangeEvent{ID: "x", Kind: terminal.ChangeCreated})
	host.changes.Fire(terminal.ChangeEvent{ID: "x", Kind: terminal.ChangeExited})
	assert.Equal(t, 2, calls)

	s.Dispose()
	host.changes.Fire(terminal.ChangeEvent{ID: "y", Kind: terminal.ChangeCreated})
	assert.Equal(t, 2, calls)
}

func found(string) (string, error) { return "/usr/bin/script", nil }

func TestCaptureUnsupportedOnWindows(t *testing.T) {
	c := NewCaptureManager(newFakeHost(), CaptureConfig{GOOS: "windows", LookPath: found})
	_, err := c.Start(Terminal{ID: "a"})
	assert.ErrorIs(t, err, ErrCaptureUnsupported)
	assert.Equal(t, apperr.KindCapability, apperr.KindOf(err))
}

func TestCaptureScriptMissing(t *testing.T) {
	missing := func(string) (string, error) { return "", errors.New("not found") }
	c := NewCaptureManager(newFakeHost(), CaptureConfig{GOOS: "linux", LookPath: missing})
	_, err := c.Start(Terminal{ID: "a"})
	assert.ErrorIs(t, err, ErrScriptMissing)
}

func TestCaptureLifecycle(t *testing.T) {
	host := newFakeHost()
	dir := t.TempDir()
	c := NewCaptureManager(host, CaptureConfig{Dir: dir, GOOS: "linux", LookPath: found})
	term := Terminal{ID: "a", Name: "bash"}

	assert.NoError(t, c.Stop(term))
	assert.Empty(t, host.lines("a"), "stop without capture is a no-op")
	assert.Equal(t, "", c.Read(term))

	file, err := c.Start(term)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(file))
	assert.True(t, strings.HasPrefix(filepath.Base(file), "opencode-capture-"))
	assert.Equal(t, []string{"script -q \"" + file + "\"\n"}, host.lines("a"))

	require.NoError(t, os.WriteFile(file, []byte("\x1b[31mred\x1b[0m plain"), 0o600))
	require.NoError(t, c.Stop(term))
	assert.Equal(t, "exit\n", host.lines("a")[1])
	assert.Equal(t, "red plain", c.Read(term))

	c.Cleanup(term)
	c.Cleanup(term)
	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err))
	assert.False(t, c.Capturing(term))
}

func TestCaptureStopIsOnce(t *testing.T) {
	host := newFakeHost()
	c := NewCaptureManager(host, CaptureConfig{Dir: t.TempDir(), GOOS: "linux", LookPath: found})
	term := Terminal{ID: "a", Name: "bash"}

	_, err := c.Start(term)
	require.NoError(t, err)
	assert.False(t, c.Stopping(term))

	require.NoError(t, c.Stop(term))
	require.NoError(t, c.Stop(term))
	assert.True(t, c.Capturing(term))
	assert.True(t, c.Stopping(term))

	exits := 0
	for _, line := range host.lines("a") {
		if line == "exit\n" {
			exits++
		}
	}
	assert.Equal(t, 1, exits)

	c.Cleanup(term)
	assert.False(t, c.Stopping(term))
}

func TestCaptureRestartReplacesFile(t *testing.T) {
	host := newFakeHost()
	c := NewCaptureManager(host, CaptureConfig{Dir: t.TempDir(), GOOS: "darwin", LookPath: found})
	term := Terminal{ID: "a"}

	first, err := c.Start(term)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(first, []byte("old"), 0o600))

	second, err := c.Start(term)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	_, err = os.Stat(first)
	assert.True(t, os.IsNotExist(err))
}
