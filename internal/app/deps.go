package app

import (
	"context"

	"github.com/GriffinCanCode/opencode-tui/internal/domain/protocol"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/discovery"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/filelink"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/terminal"
)

// Terminals is the session table
type Terminals interface {
	Create(opts terminal.SessionOptions) (*terminal.Session, error)
	Write(id, data string) error
	Resize(id string, cols, rows int) error
	Kill(id string)
	Get(id string) (*terminal.Session, bool)
	OnData(fn func(terminal.DataEvent)) func()
	OnExit(fn func(terminal.ExitEvent)) func()
}

// Ports assigns sidecar ports
type Ports interface {
	Assign(sessionID string) (int, error)
	Release(sessionID string)
}

// Sidecar is the API of a running OpenCode process
type Sidecar interface {
	WaitHealthy(ctx context.Context) bool
	AppendPrompt(ctx context.Context, text string) error
}

// SidecarFactory builds a sidecar client for a port
type SidecarFactory func(port int) Sidecar

// Clipboard reads and writes clipboard text
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// Opener opens files and URLs outside the terminal
type Opener interface {
	OpenFile(ctx context.Context, loc filelink.Location) error
	OpenURL(ctx context.Context, url string) error
}

// Resolver resolves file references
type Resolver interface {
	Resolve(ctx context.Context, ref filelink.Reference) (filelink.Location, error)
}

// Discovery lists foreign terminals
type Discovery interface {
	Terminals() []discovery.Terminal
	Find(name string) (discovery.Terminal, bool)
	OnDidChangeTerminals(fn func()) func()
}

// Capture records foreign terminal output
type Capture interface {
	Start(t discovery.Terminal) (string, error)
	Stop(t discovery.Terminal) error
	Read(t discovery.Terminal) string
	Cleanup(t discovery.Terminal)
	Capturing(t discovery.Terminal) bool
	Stopping(t discovery.Terminal) bool
}

// Consent gates sending commands to foreign terminals
type Consent interface {
	Check(ctx context.Context, terminalName, command string) (bool, error)
}

// View is an attached terminal view
type View interface {
	ID() string
	Send(msg protocol.Outbound) error
}
