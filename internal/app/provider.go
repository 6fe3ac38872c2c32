package app

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/opencode-tui/internal/domain/protocol"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/terminal"
)

// Owned terminal identity
const (
	TerminalID   = "opencode-main"
	TerminalName = "OpenCode TUI"
)

const (
	DefaultCommand      = "opencode -c"
	DefaultRestartDelay = 100 * time.Millisecond
	// script(1) flushes its log when the recording shell exits
	DefaultCaptureFlush = 500 * time.Millisecond
)

// Options are the user-facing provider settings
type Options struct {
	Command          string
	AutoStart        bool
	AutoFocusOnSend  bool
	Shell            string
	ShellArgs        []string
	EnableHTTPAPI    bool
	HTTPTimeout      time.Duration
	AutoShareContext bool
	WorkspaceRoots   []string
	RestartDelay     time.Duration
	CaptureFlush     time.Duration
	GOOS             string
}

// Deps are the collaborators a provider drives. Ports, Sidecar, Clipboard,
// Opener, Resolver, Discovery, Capture and Consent are optional; the
// features using them are disabled when nil.
type Deps struct {
	Terminals Terminals
	Ports     Ports
	Sidecar   SidecarFactory
	Clipboard Clipboard
	Opener    Opener
	Resolver  Resolver
	Discovery Discovery
	Capture   Capture
	Consent   Consent
	Logger    *zap.Logger
}

// Provider owns the OpenCode terminal session
type Provider struct {
	opts Options
	deps Deps

	mu          sync.Mutex
	started     bool
	disposed    bool
	port        int
	sidecar     Sidecar
	lastContext string
	focused     string

	views *viewSet

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsubs []func()
	logger *zap.Logger
}

// NewProvider creates a provider and subscribes to the session table
func NewProvider(opts Options, deps Deps) *Provider {
	if opts.Command == "" {
		opts.Command = DefaultCommand
	}
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultRestartDelay
	}
	if opts.CaptureFlush <= 0 {
		opts.CaptureFlush = DefaultCaptureFlush
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Second
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider{
		opts:   opts,
		deps:   deps,
		views:  newViewSet(),
		ctx:    ctx,
		cancel: cancel,
		logger: deps.Logger.Named("provider"),
	}

	p.unsubs = append(p.unsubs,
		deps.Terminals.OnData(p.onData),
		deps.Terminals.OnExit(p.onExit),
	)
	if deps.Discovery != nil {
		p.unsubs = append(p.unsubs, deps.Discovery.OnDidChangeTerminals(p.onTerminalsChanged))
	}
	return p
}

// onTerminalsChanged pushes a fresh terminal list to every view
func (p *Provider) onTerminalsChanged() {
	p.views.broadcast(p.terminalList(), p.logger)
}

func (p *Provider) onData(ev terminal.DataEvent) {
	if ev.ID != TerminalID {
		return
	}
	p.views.broadcast(protocol.TerminalOutput{Data: ev.Data}, p.logger)
}

func (p *Provider) onExit(ev terminal.ExitEvent) {
	if ev.ID != TerminalID {
		return
	}
	p.mu.Lock()
	p.started = false
	p.port = 0
	p.sidecar = nil
	p.mu.Unlock()

	p.logger.Info("OpenCode exited", zap.Int("exit_code", ev.ExitCode))
	p.views.broadcast(protocol.TerminalExited{}, p.logger)
}

// Started reports whether OpenCode is running
func (p *Provider) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// Port returns the sidecar port, or 0 when the HTTP API is off
func (p *Provider) Port() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port
}

// Start launches OpenCode. It does nothing when already started.
func (p *Provider) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.disposed {
		return nil
	}

	// a lingering session would release the port assigned below
	p.deps.Terminals.Kill(TerminalID)

	opts := terminal.SessionOptions{
		ID:      TerminalID,
		Name:    TerminalName,
		Command: p.opts.Command,
		Shell:   p.opts.Shell,
		Args:    p.opts.ShellArgs,
		Dir:     firstRoot(p.opts.WorkspaceRoots),
	}

	port := 0
	if p.opts.EnableHTTPAPI && p.deps.Ports != nil {
		assigned, err := p.deps.Ports.Assign(TerminalID)
		if err != nil {
			p.logger.Warn("Starting without HTTP API", zap.Error(err))
		} else {
			port = assigned
			opts.Port = port
			opts.Command = p.opts.Command + " --port " + strconv.Itoa(port)
		}
	}

	if _, err := p.deps.Terminals.Create(opts); err != nil {
		if port != 0 {
			p.deps.Ports.Release(TerminalID)
		}
		return fmt.Errorf("start opencode: %w", err)
	}

	p.started = true
	p.port = port
	p.sidecar = nil
	if port != 0 && p.deps.Sidecar != nil {
		p.sidecar = p.deps.Sidecar(port)
	}

	p.logger.Info("OpenCode started",
		zap.String("command", opts.Command),
		zap.Int("port", port))

	if p.opts.AutoShareContext && p.sidecar != nil && p.lastContext != "" {
		sidecar, text := p.sidecar, p.lastContext
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.shareContext(sidecar, text)
		}()
	}
	return nil
}

func firstRoot(roots []string) string {
	if len(roots) == 0 {
		return ""
	}
	return roots[0]
}

// shareContext pushes the last editor context once the sidecar is up
func (p *Provider) shareContext(sidecar Sidecar, text string) {
	ctx, cancel := context.WithTimeout(p.ctx, p.opts.HTTPTimeout)
	defer cancel()

	if !sidecar.WaitHealthy(ctx) {
		p.logger.Debug("Sidecar not healthy, context not shared")
		return
	}
	if err := sidecar.AppendPrompt(ctx, text+" "); err != nil {
		p.logger.Debug("Context not shared", zap.Error(err))
	}
}

// Restart kills OpenCode, waits briefly and starts it again
func (p *Provider) Restart(ctx context.Context) error {
	p.mu.Lock()
	wasStarted := p.started
	p.started = false
	p.port = 0
	p.sidecar = nil
	p.mu.Unlock()

	if wasStarted {
		p.deps.Terminals.Kill(TerminalID)
	}

	select {
	case <-time.After(p.opts.RestartDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.Start()
}

// Clear asks every view to clear its screen
func (p *Provider) Clear() {
	p.views.broadcast(protocol.ClearTerminal{}, p.logger)
}

// Focus asks every view to focus its terminal
func (p *Provider) Focus() {
	p.views.broadcast(protocol.FocusTerminal{}, p.logger)
}

// Send writes text into OpenCode, focusing views when configured
func (p *Provider) Send(text string) error {
	if err := p.deps.Terminals.Write(TerminalID, text); err != nil {
		return err
	}
	if p.opts.AutoFocusOnSend {
		p.Focus()
	}
	return nil
}

// SetContext records the editor context shared on the next start
func (p *Provider) SetContext(ref string) {
	p.mu.Lock()
	p.lastContext = ref
	p.mu.Unlock()
}

// Context returns the recorded editor context
func (p *Provider) Context() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastContext
}

// FocusedTerminal returns the foreign terminal last focused by a view
func (p *Provider) FocusedTerminal() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focused
}

// deliver hands text to OpenCode, through the sidecar prompt when it is
// healthy and by typing it into the terminal otherwise.
func (p *Provider) deliver(ctx context.Context, text string) {
	p.mu.Lock()
	sidecar := p.sidecar
	p.mu.Unlock()

	if sidecar != nil {
		err := sidecar.AppendPrompt(ctx, text)
		if err == nil {
			return
		}
		p.logger.Debug("Sidecar append failed, typing instead", zap.Error(err))
	}
	if err := p.deps.Terminals.Write(TerminalID, text); err != nil {
		p.logger.Warn("Failed to deliver text", zap.Error(err))
	}
}

// Attach registers a view and greets it. With auto-start on, the first
// view to attach starts OpenCode.
func (p *Provider) Attach(v View) error {
	p.views.add(v)
	p.views.send(v, protocol.WebviewVisible{}, p.logger)
	p.views.send(v, protocol.PlatformInfo{Platform: protocol.Platform(p.opts.GOOS)}, p.logger)

	if p.opts.AutoStart && !p.Started() {
		return p.Start()
	}
	return nil
}

// Detach removes a view
func (p *Provider) Detach(id string) {
	p.views.remove(id)
}

// Views returns the number of attached views
func (p *Provider) Views() int {
	return p.views.len()
}

// Dispose kills OpenCode and stops background work. Attached views are
// dropped.
func (p *Provider) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	started := p.started
	p.started = false
	p.mu.Unlock()

	p.cancel()
	for _, unsub := range p.unsubs {
		unsub()
	}
	if started {
		p.deps.Terminals.Kill(TerminalID)
	}
	p.wg.Wait()
	p.views.clear()
}
