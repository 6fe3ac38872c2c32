package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/opencode-tui/internal/app"
	"github.com/GriffinCanCode/opencode-tui/internal/commands"
	"github.com/GriffinCanCode/opencode-tui/internal/domain/consent"
	"github.com/GriffinCanCode/opencode-tui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/discovery"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/filelink"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/terminal"
)

type fakeStatus struct{}

func (fakeStatus) Started() bool           { return true }
func (fakeStatus) Port() int               { return 16384 }
func (fakeStatus) Views() int              { return 2 }
func (fakeStatus) Context() string         { return "@main.go" }
func (fakeStatus) FocusedTerminal() string { return "" }

type fakeCommands struct {
	last commands.Request
}

func (f *fakeCommands) Names() []string { return []string{"start", "sendToTerminal"} }

func (f *fakeCommands) Execute(_ context.Context, name string, req commands.Request) (commands.Result, error) {
	f.last = req
	if name != "start" && name != "sendToTerminal" {
		return commands.Result{}, commands.ErrUnknownCommand
	}
	return commands.Result{Command: name, Sent: req.Text}, nil
}

type fakeTerminals struct {
	mu       sync.Mutex
	sessions map[string]*terminal.Session
	killed   []string
}

func newFakeTerminals() *fakeTerminals {
	return &fakeTerminals{sessions: map[string]*terminal.Session{
		app.TerminalID: {ID: app.TerminalID, Name: app.TerminalName},
	}}
}

func (f *fakeTerminals) Create(opts terminal.SessionOptions) (*terminal.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &terminal.Session{ID: opts.ID, Name: opts.Name, Shell: opts.Shell, WorkingDir: opts.Dir}
	f.sessions[opts.ID] = s
	return s, nil
}

func (f *fakeTerminals) Kill(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	f.killed = append(f.killed, id)
}

func (f *fakeTerminals) Get(id string) (*terminal.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	return s, ok
}

func (f *fakeTerminals) List() []terminal.SessionInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]terminal.SessionInfo, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, terminal.SessionInfo{ID: s.ID, Name: s.Name})
	}
	return out
}

type fakeForeign struct{}

func (fakeForeign) Terminals() []discovery.Terminal {
	return []discovery.Terminal{{ID: "term_1", Name: "build", Cwd: "/src"}}
}

type fakeResolver struct{}

func (fakeResolver) ResolveString(_ context.Context, raw string) (filelink.Location, error) {
	switch raw {
	case "src/app.go:12":
		return filelink.Location{Path: "/ws/src/app.go"}, nil
	case "app.go":
		return filelink.Location{Path: "/ws/src/app.go", Fuzzy: true}, nil
	case "../etc/passwd":
		return filelink.Location{}, filelink.ErrUnsafePath
	}
	return filelink.Location{}, filelink.ErrNotFound
}

type fakeOpener struct {
	opened []string
}

func (f *fakeOpener) OpenFile(_ context.Context, loc filelink.Location) error {
	f.opened = append(f.opened, loc.Path)
	return nil
}

type fixture struct {
	router    *gin.Engine
	commands  *fakeCommands
	terminals *fakeTerminals
	opener    *fakeOpener
	queue     *consent.Queue
	metrics   *monitoring.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		commands:  &fakeCommands{},
		terminals: newFakeTerminals(),
		opener:    &fakeOpener{},
		queue:     consent.NewQueue(0),
		metrics:   monitoring.NewMetrics(),
	}
	h := NewHandlers(Deps{
		Status:     fakeStatus{},
		Commands:   f.commands,
		Terminals:  f.terminals,
		Foreign:    fakeForeign{},
		Resolver:   fakeResolver{},
		Opener:     f.opener,
		Prompts:    f.queue,
		Metrics:    f.metrics,
		DefaultDir: "/ws",
	})
	f.router = gin.New()
	h.Register(f.router)
	return f
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRootAndHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "opencode-tui", decode(t, w)["service"])

	w = f.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	opencode := body["opencode"].(map[string]any)
	assert.Equal(t, true, opencode["started"])
	assert.Equal(t, float64(16384), opencode["port"])
	assert.Equal(t, float64(1), body["sessions"])
}

func TestExecuteCommand(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/commands/sendToTerminal", commands.Request{Text: "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", decode(t, w)["sent"])

	w = f.do(http.MethodPost, "/commands/start", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/commands/explode", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "resolution", decode(t, w)["kind"])
}

func TestTerminalRoutes(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/terminals", OpenTerminalRequest{Name: "build"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	sessionID := created["id"].(string)
	assert.Equal(t, "build", created["name"])
	assert.Equal(t, "/ws", created["working_dir"])

	w = f.do(http.MethodGet, "/terminals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["sessions"], 2)
	assert.Len(t, body["foreign"], 1)

	w = f.do(http.MethodDelete, "/terminals/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{sessionID}, f.terminals.killed)

	w = f.do(http.MethodDelete, "/terminals/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOwnedTerminalIsProtected(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodDelete, "/terminals/"+app.TerminalID, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/terminals", OpenTerminalRequest{Name: app.TerminalName}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/terminals", OpenTerminalRequest{}).Code)
	assert.Empty(t, f.terminals.killed)
}

func TestFindLinks(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/links", FindLinksRequest{Text: "error at src/app.go:12:4 and more"})
	require.Equal(t, http.StatusOK, w.Code)
	links := decode(t, w)["links"].([]any)
	require.Len(t, links, 1)

	w = f.do(http.MethodPost, "/links", FindLinksRequest{Text: "nothing here"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["links"])
}

func TestResolve(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/resolve", ResolveRequest{Ref: "src/app.go:12", Open: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["opened"])
	assert.Equal(t, []string{"/ws/src/app.go"}, f.opener.opened)

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/resolve", ResolveRequest{Ref: "app.go"}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/resolve", ResolveRequest{Ref: "missing.go"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/resolve", ResolveRequest{Ref: "../etc/passwd"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/resolve", map[string]string{}).Code)
}

func TestConsentRoutes(t *testing.T) {
	f := newFixture(t)

	asked := make(chan consent.Decision, 1)
	go func() {
		d, _ := f.queue.Ask(context.Background(), consent.Request{ID: "prompt_1", Terminal: "build", Command: "ls"})
		asked <- d
	}()
	require.Eventually(t, func() bool { return len(f.queue.Pending()) == 1 }, time.Second, 5*time.Millisecond)

	w := f.do(http.MethodGet, "/consent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["prompts"], 1)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/consent/prompt_1", AnswerRequest{Decision: "maybe"}).Code)

	w = f.do(http.MethodPost, "/consent/prompt_1", AnswerRequest{Decision: string(consent.AllowOnce)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, consent.AllowOnce, <-asked)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/consent/prompt_1", AnswerRequest{Decision: string(consent.Deny)}).Code)
}
