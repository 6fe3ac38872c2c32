package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/opencode-tui/internal/domain/fileref"
	"github.com/GriffinCanCode/opencode-tui/internal/domain/protocol"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/discovery"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/filelink"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
)

var (
	ErrTerminalNotFound = apperr.Sentinel(apperr.KindResolution, "terminal not found")
	ErrUnavailable      = apperr.Sentinel(apperr.KindCapability, "feature unavailable")
	ErrEmptyCommand     = apperr.Sentinel(apperr.KindValidation, "command is required")
	ErrUnknownAction    = apperr.Sentinel(apperr.KindValidation, "unknown terminal action")
	ErrCaptureFinishing = apperr.Sentinel(apperr.KindTransient, "capture is still finishing")
)

// HandleMessage routes one inbound message from the view viewID. Errors
// are for the caller to report; the provider stays usable after any of
// them.
func (p *Provider) HandleMessage(ctx context.Context, viewID string, msg protocol.Inbound) error {
	switch m := msg.(type) {
	case protocol.TerminalInput:
		return p.deps.Terminals.Write(TerminalID, m.Data)

	case protocol.TerminalResize:
		return p.deps.Terminals.Resize(TerminalID, m.Cols, m.Rows)

	case protocol.Ready:
		return p.handleReady(viewID)

	case protocol.FilesDropped:
		text := fileref.FormatDropped(m.Files, m.ShiftKey, p.opts.WorkspaceRoots)
		if text == "" {
			return nil
		}
		return p.deps.Terminals.Write(TerminalID, text)

	case protocol.OpenFile:
		return p.openFile(ctx, m)

	case protocol.OpenURL:
		if p.deps.Opener == nil {
			return ErrUnavailable
		}
		return p.deps.Opener.OpenURL(ctx, m.URL)

	case protocol.ListTerminals:
		p.reply(viewID, p.terminalList())
		return nil

	case protocol.TerminalAction:
		return p.handleAction(ctx, m)

	case protocol.GetClipboard:
		text := ""
		if p.deps.Clipboard != nil {
			var err error
			if text, err = p.deps.Clipboard.ReadAll(); err != nil {
				p.logger.Warn("Clipboard read failed", zap.Error(err))
			}
		}
		p.reply(viewID, protocol.ClipboardContent{Text: text})
		return nil

	case protocol.TriggerPaste:
		if p.deps.Clipboard == nil {
			return ErrUnavailable
		}
		text, err := p.deps.Clipboard.ReadAll()
		if err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		return p.deps.Terminals.Write(TerminalID, text)
	}
	return nil
}

func (p *Provider) reply(viewID string, msg protocol.Outbound) {
	if v, ok := p.views.get(viewID); ok {
		p.views.send(v, msg, p.logger)
	}
}

// handleReady starts OpenCode for the first ready view and replays the
// screen to views arriving later.
func (p *Provider) handleReady(viewID string) error {
	wasStarted := p.Started()
	if !wasStarted {
		if err := p.Start(); err != nil {
			return err
		}
	} else if s, ok := p.deps.Terminals.Get(TerminalID); ok {
		if scrollback := s.Scrollback(); len(scrollback) > 0 {
			p.reply(viewID, protocol.TerminalOutput{Data: string(scrollback)})
		}
	}
	p.reply(viewID, protocol.PlatformInfo{Platform: protocol.Platform(p.opts.GOOS)})
	return nil
}

func (p *Provider) openFile(ctx context.Context, m protocol.OpenFile) error {
	if p.deps.Resolver == nil || p.deps.Opener == nil {
		return ErrUnavailable
	}
	ref := filelink.Reference{Path: m.Path}
	if m.Line != nil {
		ref.Line = *m.Line
	}
	if m.EndLine != nil {
		ref.EndLine = *m.EndLine
	}
	if m.Column != nil {
		ref.Column = *m.Column
	}

	loc, err := p.deps.Resolver.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	return p.deps.Opener.OpenFile(ctx, loc)
}

func (p *Provider) terminalList() protocol.TerminalList {
	list := protocol.TerminalList{Terminals: []protocol.TerminalEntry{}}
	if p.deps.Discovery == nil {
		return list
	}
	for _, t := range p.deps.Discovery.Terminals() {
		list.Terminals = append(list.Terminals, protocol.TerminalEntry{Name: t.Name, Cwd: t.Cwd})
	}
	return list
}

func (p *Provider) handleAction(ctx context.Context, m protocol.TerminalAction) error {
	if p.deps.Discovery == nil {
		return ErrUnavailable
	}
	t, ok := p.deps.Discovery.Find(m.TerminalName)
	if !ok {
		return fmt.Errorf("%q: %w", m.TerminalName, ErrTerminalNotFound)
	}

	switch m.Action {
	case protocol.ActionFocus:
		p.mu.Lock()
		p.focused = t.ID
		p.mu.Unlock()
		return nil

	case protocol.ActionSendCommand:
		if m.Command == "" {
			return ErrEmptyCommand
		}
		p.background(func(ctx context.Context) { p.sendCommand(ctx, t, m.Command) })
		return nil

	case protocol.ActionCapture:
		if p.deps.Capture == nil {
			return ErrUnavailable
		}
		if !p.deps.Capture.Capturing(t) {
			_, err := p.deps.Capture.Start(t)
			return err
		}
		if p.deps.Capture.Stopping(t) {
			return ErrCaptureFinishing
		}
		if err := p.deps.Capture.Stop(t); err != nil {
			return err
		}
		p.background(func(ctx context.Context) { p.finishCapture(ctx, t) })
		return nil
	}
	return fmt.Errorf("%q: %w", m.Action, ErrUnknownAction)
}

// background runs fn off the caller's goroutine; fn's context ends on
// Dispose.
func (p *Provider) background(fn func(ctx context.Context)) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		fn(p.ctx)
	}()
}

// sendCommand waits for consent, which may take as long as the user
// needs, then types the command into the foreign terminal.
func (p *Provider) sendCommand(ctx context.Context, t discovery.Terminal, command string) {
	if p.deps.Consent != nil {
		ok, err := p.deps.Consent.Check(ctx, t.Name, command)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				p.logger.Warn("Consent check failed", zap.Error(err))
			}
			return
		}
		if !ok {
			p.logger.Info("Send to terminal denied", zap.String("terminal", t.Name))
			return
		}
	}

	if err := p.deps.Terminals.Write(t.ID, command+"\n"); err != nil {
		p.logger.Warn("Send to terminal failed", zap.String("terminal", t.Name), zap.Error(err))
	}
}

// finishCapture reads the stopped capture and hands it to OpenCode
func (p *Provider) finishCapture(ctx context.Context, t discovery.Terminal) {
	defer p.deps.Capture.Cleanup(t)

	select {
	case <-time.After(p.opts.CaptureFlush):
	case <-ctx.Done():
		return
	}

	text := p.deps.Capture.Read(t)
	if text == "" {
		p.logger.Info("Capture was empty", zap.String("terminal", t.Name))
		return
	}
	p.deliver(ctx, text)
}
