// Package opener hands files and URLs to the user's editor and browser.
package opener

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/opencode-tui/internal/providers/filelink"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
)

// ErrUnsupportedScheme rejects URLs other than http and https
var ErrUnsupportedScheme = apperr.Sentinel(apperr.KindValidation, "only http and https URLs can be opened")

// Placeholders expanded in the file command template
const (
	PlaceholderPath   = "{path}"
	PlaceholderLine   = "{line}"
	PlaceholderColumn = "{column}"
	PlaceholderURL    = "{url}"
)

// Runner starts a command without waiting for it
type Runner func(ctx context.Context, name string, args ...string) error

// Config configures an Opener. Commands are whitespace separated argv
// templates.
type Config struct {
	FileCommand string
	URLCommand  string
	Runner      Runner
	Logger      *zap.Logger
}

// Opener launches external programs
type Opener struct {
	file   []string
	url    []string
	run    Runner
	logger *zap.Logger
}

// DefaultFileCommand opens a location in VS Code
const DefaultFileCommand = "code --goto {path}:{line}:{column}"

// DefaultURLCommand returns the platform URL opener
func DefaultURLCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "open {url}"
	case "windows":
		return "rundll32 url.dll,FileProtocolHandler {url}"
	default:
		return "xdg-open {url}"
	}
}

// New creates an opener
func New(cfg Config) *Opener {
	if cfg.FileCommand == "" {
		cfg.FileCommand = DefaultFileCommand
	}
	if cfg.URLCommand == "" {
		cfg.URLCommand = DefaultURLCommand()
	}
	if cfg.Runner == nil {
		cfg.Runner = start
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Opener{
		file:   strings.Fields(cfg.FileCommand),
		url:    strings.Fields(cfg.URLCommand),
		run:    cfg.Runner,
		logger: cfg.Logger.Named("opener"),
	}
}

// OpenFile opens a resolved location, placing the cursor at the selection
// start.
func (o *Opener) OpenFile(ctx context.Context, loc filelink.Location) error {
	line, col := 1, 1
	if loc.Selection != nil {
		line = loc.Selection.Start.Line + 1
		col = loc.Selection.Start.Character + 1
	}
	r := strings.NewReplacer(
		PlaceholderPath, loc.Path,
		PlaceholderLine, strconv.Itoa(line),
		PlaceholderColumn, strconv.Itoa(col),
	)
	return o.exec(ctx, o.file, r)
}

// OpenURL opens an http or https URL in the browser
func (o *Opener) OpenURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q: %w", raw, ErrUnsupportedScheme)
	}
	return o.exec(ctx, o.url, strings.NewReplacer(PlaceholderURL, u.String()))
}

func (o *Opener) exec(ctx context.Context, template []string, r *strings.Replacer) error {
	if len(template) == 0 {
		return apperr.New(apperr.KindCapability, fmt.Errorf("no opener command configured"))
	}
	argv := make([]string, len(template))
	for i, arg := range template {
		argv[i] = r.Replace(arg)
	}

	o.logger.Debug("Opening", zap.Strings("argv", argv))
	if err := o.run(ctx, argv[0], argv[1:]...); err != nil {
		return apperr.New(apperr.KindCapability, fmt.Errorf("run %s: %w", argv[0], err))
	}
	return nil
}

// start launches the process and reaps it in the background
func start(_ context.Context, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
