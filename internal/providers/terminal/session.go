package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/events"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/paths"
)

// ErrDisposed is returned by Create after the table has been disposed
var ErrDisposed = apperr.Sentinel(apperr.KindProcess, "terminal manager disposed")

const (
	defaultCols       = 80
	defaultRows       = 24
	defaultScrollback = 256 * 1024
	readChunk         = 4096

	// bound on waiting for the PTY reader to drain after exit or kill
	drainTimeout = 2 * time.Second
)

// PortReleaser frees ports owned by a session when it ends
type PortReleaser interface {
	Release(sessionID string)
}

// Config configures the session table
type Config struct {
	Logger         *zap.Logger
	Ports          PortReleaser
	WorkspaceRoots []string
	ScrollbackSize int
}

// Manager is the session table
type Manager struct {
	mu       sync.Mutex
	createMu sync.Mutex
	sessions map[string]*Session
	disposed bool

	ports      PortReleaser
	roots      []string
	scrollback int
	logger     *zap.Logger

	onData   *events.Emitter[DataEvent]
	onExit   *events.Emitter[ExitEvent]
	onChange *events.Emitter[ChangeEvent]
}

// NewManager creates an empty session table
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ScrollbackSize <= 0 {
		cfg.ScrollbackSize = defaultScrollback
	}
	return &Manager{
		sessions:   make(map[string]*Session),
		ports:      cfg.Ports,
		roots:      cfg.WorkspaceRoots,
		scrollback: cfg.ScrollbackSize,
		logger:     cfg.Logger.Named("terminal"),
		onData:     events.NewEmitter[DataEvent](),
		onExit:     events.NewEmitter[ExitEvent](),
		onChange:   events.NewEmitter[ChangeEvent](),
	}
}

// OnData subscribes to output from every session
func (m *Manager) OnData(fn func(DataEvent)) func() {
	return m.onData.Subscribe(fn)
}

// OnExit subscribes to exits of every session
func (m *Manager) OnExit(fn func(ExitEvent)) func() {
	return m.onExit.Subscribe(fn)
}

// OnChange subscribes to sessions being created, exiting or being killed
func (m *Manager) OnChange(fn func(ChangeEvent)) func() {
	return m.onChange.Subscribe(fn)
}

// Create spawns a session, replacing any live session with the same ID.
// The old process is torn down before the new one starts. Spawn errors are
// returned to the caller unchanged apart from wrapping.
func (m *Manager) Create(opts SessionOptions) (*Session, error) {
	if opts.ID == "" {
		return nil, apperr.New(apperr.KindValidation, errors.New("session id is required"))
	}

	m.createMu.Lock()
	defer m.createMu.Unlock()

	m.mu.Lock()
	disposed := m.disposed
	m.mu.Unlock()
	if disposed {
		return nil, ErrDisposed
	}

	m.Kill(opts.ID)

	shell, args := commandLine(opts)
	dir := opts.Dir
	if dir == "" {
		dir = paths.WorkingDir(m.roots)
	}
	cols, rows := opts.Cols, opts.Rows
	if cols <= 0 {
		cols = defaultCols
	}
	if rows <= 0 {
		rows = defaultRows
	}
	name := opts.Name
	if name == "" {
		name = opts.ID
	}

	cmd := exec.Command(shell, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	for key, value := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, apperr.New(apperr.KindProcess, fmt.Errorf("failed to start PTY for %s: %w", opts.ID, err))
	}

	session := &Session{
		ID:         opts.ID,
		Name:       name,
		Command:    opts.Command,
		Shell:      shell,
		WorkingDir: dir,
		Port:       opts.Port,
		Cols:       cols,
		Rows:       rows,
		StartedAt:  time.Now(),
		cmd:        cmd,
		ptmx:       ptmx,
		output:     NewBuffer(m.scrollback),
		onData:     events.NewEmitter[DataEvent](),
		onExit:     events.NewEmitter[ExitEvent](),
		readDone:   make(chan struct{}),
		exited:     make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[opts.ID] = session
	m.mu.Unlock()

	go m.readOutput(session)
	go m.monitorProcess(session)

	m.logger.Info("Session started",
		zap.String("id", opts.ID),
		zap.String("shell", shell),
		zap.Int("pid", session.Pid()),
		zap.Int("port", opts.Port),
	)
	m.onChange.Fire(ChangeEvent{ID: opts.ID, Kind: ChangeCreated})

	return session, nil
}

// commandLine builds the argv for a session
func commandLine(opts SessionOptions) (string, []string) {
	shell, flag := DefaultShell()
	if opts.Shell != "" {
		shell = opts.Shell
		if strings.HasSuffix(strings.ToLower(shell), "cmd.exe") {
			flag = "/c"
		} else {
			flag = "-c"
		}
	}

	args := append([]string(nil), opts.Args...)
	if opts.Command != "" {
		args = append(args, flag, opts.Command)
	}
	return shell, args
}

// readOutput forwards PTY output to listeners, keeping multi-byte runes
// whole across read boundaries.
func (m *Manager) readOutput(s *Session) {
	defer close(s.readDone)

	buf := make([]byte, readChunk)
	var pending []byte
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.output.Write(buf[:n])

			pending = append(pending, buf[:n]...)
			complete, rest := splitUTF8(pending)
			pending = append(pending[:0], rest...)
			if len(complete) > 0 {
				m.emitData(s, string(complete))
			}
		}
		if err != nil {
			if len(pending) > 0 {
				m.emitData(s, string(pending))
			}
			if !errors.Is(err, io.EOF) && !s.isKilled() {
				m.logger.Debug("PTY read ended", zap.String("id", s.ID), zap.Error(err))
			}
			return
		}
	}
}

func (m *Manager) emitData(s *Session, data string) {
	if s.isKilled() {
		return
	}
	ev := DataEvent{ID: s.ID, Data: data}
	s.onData.Fire(ev)
	m.onData.Fire(ev)
}

// splitUTF8 returns the longest prefix of b that does not end inside a
// multi-byte rune, and the incomplete remainder.
func splitUTF8(b []byte) ([]byte, []byte) {
	// a rune is at most 4 bytes, so only the last 3 can be incomplete
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return b, nil
			}
			return b[:i], b[i:]
		}
	}
	return b, nil
}

// monitorProcess waits for the process to exit and reports it.
// Killed sessions are torn down by Kill and never reported as exits.
func (m *Manager) monitorProcess(s *Session) {
	err := s.cmd.Wait()
	code := exitCode(err)

	select {
	case <-s.readDone:
	case <-time.After(drainTimeout):
		// a background child may still hold the PTY open
		_ = s.ptmx.Close()
		select {
		case <-s.readDone:
		case <-time.After(drainTimeout):
		}
	}

	// Whoever removes the session from the table reports its end. Kill
	// removes it before teardown, so a session still in the table here
	// exited on its own.
	m.mu.Lock()
	current, ok := m.sessions[s.ID]
	owned := ok && current == s
	if owned {
		delete(m.sessions, s.ID)
	}
	m.mu.Unlock()

	s.mu.Lock()
	killed := s.killed
	s.closed = true
	s.mu.Unlock()

	_ = s.ptmx.Close()
	close(s.exited)

	if killed || !owned {
		return
	}

	if m.ports != nil {
		m.ports.Release(s.ID)
	}

	m.logger.Info("Session exited", zap.String("id", s.ID), zap.Int("exit_code", code))

	ev := ExitEvent{ID: s.ID, ExitCode: code}
	s.onExit.Fire(ev)
	m.onExit.Fire(ev)
	m.onChange.Fire(ChangeEvent{ID: s.ID, Kind: ChangeExited})
	s.onData.Dispose()
	s.onExit.Dispose()
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func (s *Session) isKilled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.killed
}

// Write sends input to a session. Unknown IDs are ignored.
// Interrupt (0x03) and suspend (0x1A) bytes are removed; those keys are
// handled above this layer and must not reach the process raw.
func (m *Manager) Write(id, data string) error {
	s, ok := m.Get(id)
	if !ok {
		return nil
	}

	clean := StripSignals(data)
	if clean == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}

	if _, err := s.ptmx.Write([]byte(clean)); err != nil {
		return fmt.Errorf("write to session %s: %w", id, err)
	}
	return nil
}

// StripSignals removes interrupt and suspend control bytes
func StripSignals(data string) string {
	if !strings.ContainsAny(data, "\x03\x1a") {
		return data
	}
	return strings.Map(func(r rune) rune {
		if r == 0x03 || r == 0x1A {
			return -1
		}
		return r
	}, data)
}

// Resize changes terminal dimensions. Unknown IDs are ignored.
func (m *Manager) Resize(id string, cols, rows int) error {
	s, ok := m.Get(id)
	if !ok || cols <= 0 || rows <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.Cols = cols
	s.Rows = rows

	return pty.Setsize(s.ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// Kill terminates a session, releases its ports and removes it from the
// table. It returns once the output reader has stopped.
func (m *Manager) Kill(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	m.teardown(s)
	m.onChange.Fire(ChangeEvent{ID: id, Kind: ChangeKilled})
}

func (m *Manager) teardown(s *Session) {
	s.mu.Lock()
	if s.killed {
		s.mu.Unlock()
		return
	}
	s.killed = true
	s.closed = true
	s.mu.Unlock()

	s.onData.Dispose()
	s.onExit.Dispose()

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.ptmx.Close()

	select {
	case <-s.readDone:
	case <-time.After(drainTimeout):
		m.logger.Warn("PTY reader did not stop in time", zap.String("id", s.ID))
	}

	if m.ports != nil {
		m.ports.Release(s.ID)
	}

	m.logger.Info("Session killed", zap.String("id", s.ID))
}

// Get returns a live session
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns every session, oldest first
func (m *Manager) List() []SessionInfo {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Dispose kills every session and drops all table-wide listeners
func (m *Manager) Dispose() {
	m.createMu.Lock()
	defer m.createMu.Unlock()

	m.mu.Lock()
	m.disposed = true
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Kill(id)
	}

	m.onData.Dispose()
	m.onExit.Dispose()
	m.onChange.Dispose()
}
