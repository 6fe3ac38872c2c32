// Package commands implements the command palette: named actions that push
// editor context into the OpenCode terminal.
package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/GriffinCanCode/opencode-tui/internal/domain/fileref"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/utils"
)

// Command names
const (
	Start              = "start"
	Restart            = "restart"
	Clear              = "clear"
	Focus              = "focus"
	SendToTerminal     = "sendToTerminal"
	SendAtMention      = "sendAtMention"
	SendAllOpenFiles   = "sendAllOpenFiles"
	SendFileToTerminal = "sendFileToTerminal"
	SetContext         = "context"
)

var (
	ErrUnknownCommand  = apperr.Sentinel(apperr.KindResolution, "unknown command")
	ErrMissingArgument = apperr.Sentinel(apperr.KindValidation, "missing argument")
)

// Target is what commands act on
type Target interface {
	Start() error
	Restart(ctx context.Context) error
	Clear()
	Focus()
	Send(text string) error
	SetContext(ref string)
}

// Request carries the editor state a command needs
type Request struct {
	Text      string             `json:"text,omitempty"`
	Path      string             `json:"path,omitempty"`
	Selection *fileref.Selection `json:"selection,omitempty"`
	Paths     []string           `json:"paths,omitempty"`
}

// Result describes what a command did
type Result struct {
	Command string `json:"command"`
	Sent    string `json:"sent,omitempty"`
	Message string `json:"message,omitempty"`
}

// Handler runs one command
type Handler func(ctx context.Context, req Request) (Result, error)

// Registry maps command names to handlers
type Registry struct {
	target   Target
	roots    []string
	handlers map[string]Handler
}

// New registers every command against target
func New(target Target, roots []string) *Registry {
	r := &Registry{target: target, roots: roots}
	r.handlers = map[string]Handler{
		Start:              r.start,
		Restart:            r.restart,
		Clear:              r.clear,
		Focus:              r.focus,
		SendToTerminal:     r.sendToTerminal,
		SendAtMention:      r.sendAtMention,
		SendAllOpenFiles:   r.sendAllOpenFiles,
		SendFileToTerminal: r.sendFileToTerminal,
		SetContext:         r.setContext,
	}
	return r
}

// Names lists the registered commands
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named command
func (r *Registry) Execute(ctx context.Context, name string, req Request) (Result, error) {
	h, ok := r.handlers[name]
	if !ok {
		return Result{}, fmt.Errorf("%q: %w", name, ErrUnknownCommand)
	}
	res, err := h(ctx, req)
	res.Command = name
	return res, err
}

func (r *Registry) start(context.Context, Request) (Result, error) {
	return Result{}, r.target.Start()
}

func (r *Registry) restart(ctx context.Context, _ Request) (Result, error) {
	return Result{}, r.target.Restart(ctx)
}

func (r *Registry) clear(context.Context, Request) (Result, error) {
	r.target.Clear()
	return Result{}, nil
}

func (r *Registry) focus(context.Context, Request) (Result, error) {
	r.target.Focus()
	return Result{}, nil
}

// sendToTerminal types the selected text as a line
func (r *Registry) sendToTerminal(_ context.Context, req Request) (Result, error) {
	if req.Text == "" {
		return Result{Message: "Nothing selected"}, nil
	}
	if err := utils.ValidateInput(req.Text); err != nil {
		return Result{}, apperr.New(apperr.KindValidation, err)
	}
	return r.send(fileref.FormatSelectionText(req.Text), "Sent to OpenCode")
}

func (r *Registry) sendAtMention(_ context.Context, req Request) (Result, error) {
	if err := r.requirePath(req.Path); err != nil {
		return Result{}, err
	}
	ref := fileref.Format(req.Path, req.Selection, r.roots)
	return r.send(ref+" ", "Sent "+ref)
}

func (r *Registry) sendAllOpenFiles(_ context.Context, req Request) (Result, error) {
	for _, p := range req.Paths {
		if err := r.requirePath(p); err != nil {
			return Result{}, err
		}
	}
	refs := fileref.FormatAll(req.Paths, r.roots)
	if refs == "" {
		return Result{Message: "No open files"}, nil
	}
	return r.send(refs+" ", "Sent all open files")
}

func (r *Registry) sendFileToTerminal(_ context.Context, req Request) (Result, error) {
	if err := r.requirePath(req.Path); err != nil {
		return Result{}, err
	}
	ref := fileref.Format(req.Path, nil, r.roots)
	return r.send(ref+" ", "Sent "+ref)
}

// setContext records the active editor for auto-context sharing
func (r *Registry) setContext(_ context.Context, req Request) (Result, error) {
	if err := r.requirePath(req.Path); err != nil {
		return Result{}, err
	}
	ref := fileref.Format(req.Path, req.Selection, r.roots)
	r.target.SetContext(ref)
	return Result{Message: ref}, nil
}

func (r *Registry) send(text, message string) (Result, error) {
	if err := r.target.Send(text); err != nil {
		return Result{}, err
	}
	return Result{Sent: text, Message: message}, nil
}

func (r *Registry) requirePath(p string) error {
	if p == "" {
		return fmt.Errorf("path: %w", ErrMissingArgument)
	}
	if err := utils.ValidateString(p, "path", 1, 4096, true); err != nil {
		return apperr.New(apperr.KindValidation, err)
	}
	return nil
}
