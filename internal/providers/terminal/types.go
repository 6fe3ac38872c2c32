package terminal

import (
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/GriffinCanCode/opencode-tui/internal/shared/events"
)

// DataEvent carries one chunk of process output
type DataEvent struct {
	ID   string
	Data string
}

// ExitEvent reports that a session's process ended on its own
type ExitEvent struct {
	ID       string
	ExitCode int
}

// ChangeKind says how the session table changed
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeExited  ChangeKind = "exited"
	ChangeKilled  ChangeKind = "killed"
)

// ChangeEvent reports a session entering or leaving the table
type ChangeEvent struct {
	ID   string
	Kind ChangeKind
}

// SessionOptions describes a session to spawn
type SessionOptions struct {
	ID      string
	Name    string // display name; defaults to ID
	Command string // run through the shell with -c; empty starts an interactive shell
	Shell   string // overrides the default shell
	Args    []string
	Env     map[string]string
	Dir     string
	Port    int // sidecar port already assigned to this session, 0 for none
	Cols    int
	Rows    int
}

// Session represents a live PTY-backed process
type Session struct {
	ID         string
	Name       string
	Command    string
	Shell      string
	WorkingDir string
	Port       int
	Cols       int
	Rows       int
	StartedAt  time.Time

	// Process management
	cmd  *exec.Cmd
	ptmx *os.File

	// Scrollback kept for views that attach late
	output *Buffer

	onData *events.Emitter[DataEvent]
	onExit *events.Emitter[ExitEvent]

	readDone chan struct{}
	exited   chan struct{}

	mu     sync.RWMutex
	closed bool
	killed bool
}

// OnData subscribes to this session's output only
func (s *Session) OnData(fn func(DataEvent)) func() {
	return s.onData.Subscribe(fn)
}

// OnExit subscribes to this session's exit only
func (s *Session) OnExit(fn func(ExitEvent)) func() {
	return s.onExit.Subscribe(fn)
}

// Pid returns the OS process id, or 0 when the process is not running
func (s *Session) Pid() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Active reports whether the process is still running
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

// Scrollback returns a copy of recently buffered output
func (s *Session) Scrollback() []byte {
	return s.output.Snapshot()
}

// Done is closed once the process has exited and been reaped
func (s *Session) Done() <-chan struct{} {
	return s.exited
}

// Info returns the public representation of the session
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionInfo{
		ID:         s.ID,
		Name:       s.Name,
		Command:    s.Command,
		Shell:      s.Shell,
		WorkingDir: s.WorkingDir,
		Cwd:        processCwd(s.Pid(), s.WorkingDir),
		Pid:        s.Pid(),
		Port:       s.Port,
		Cols:       s.Cols,
		Rows:       s.Rows,
		StartedAt:  s.StartedAt,
		Active:     !s.closed,
	}
}

// Buffer is a thread-safe circular buffer for terminal output
type Buffer struct {
	data []byte
	size int
	head int
	tail int
	mu   sync.RWMutex
}

// NewBuffer creates a new circular buffer
func NewBuffer(size int) *Buffer {
	return &Buffer{
		data: make([]byte, size),
		size: size,
	}
}

// Write writes data to the buffer, dropping the oldest bytes when full
func (b *Buffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range p {
		b.data[b.tail] = c
		b.tail = (b.tail + 1) % b.size

		if b.tail == b.head {
			b.head = (b.head + 1) % b.size
		}
	}

	return len(p), nil
}

// Snapshot returns the buffered bytes without consuming them
func (b *Buffer) Snapshot() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.head == b.tail {
		return []byte{}
	}

	if b.tail > b.head {
		result := make([]byte, b.tail-b.head)
		copy(result, b.data[b.head:b.tail])
		return result
	}

	first := b.data[b.head:]
	second := b.data[:b.tail]
	result := make([]byte, len(first)+len(second))
	copy(result, first)
	copy(result[len(first):], second)
	return result
}

// Reset discards buffered output
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = b.tail
}

// SessionInfo is the public representation of a session
type SessionInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Command    string    `json:"command,omitempty"`
	Shell      string    `json:"shell"`
	WorkingDir string    `json:"working_dir"`
	Cwd        string    `json:"cwd"`
	Pid        int       `json:"pid"`
	Port       int       `json:"port,omitempty"`
	Cols       int       `json:"cols"`
	Rows       int       `json:"rows"`
	StartedAt  time.Time `json:"started_at"`
	Active     bool      `json:"active"`
}
