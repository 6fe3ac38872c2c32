package app

import (
	"context"
	"errors"
	"sync"

	"github.com/GriffinCanCode/opencode-tui/internal/domain/protocol"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/discovery"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/filelink"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/terminal"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/events"
)

type fakeTerminals struct {
	mu        sync.Mutex
	created   []terminal.SessionOptions
	writes    map[string][]string
	resizes   [][2]int
	kills     []string
	createErr error

	data *events.Emitter[terminal.DataEvent]
	exit *events.Emitter[terminal.ExitEvent]
}

func newFakeTerminals() *fakeTerminals {
	return &fakeTerminals{
		writes: make(map[string][]string),
		data:   events.NewEmitter[terminal.DataEvent](),
		exit:   events.NewEmitter[terminal.ExitEvent](),
	}
}

func (f *fakeTerminals) Create(opts terminal.SessionOptions) (*terminal.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, opts)
	return &terminal.Session{ID: opts.ID, Name: opts.Name}, nil
}

func (f *fakeTerminals) Write(id, data string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes[id] = append(f.writes[id], data)
	return nil
}

func (f *fakeTerminals) Resize(id string, cols, rows int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resizes = append(f.resizes, [2]int{cols, rows})
	return nil
}

func (f *fakeTerminals) Kill(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kills = append(f.kills, id)
}

func (f *fakeTerminals) Get(string) (*terminal.Session, bool) { return nil, false }

func (f *fakeTerminals) OnData(fn func(terminal.DataEvent)) func() { return f.data.Subscribe(fn) }

func (f *fakeTerminals) OnExit(fn func(terminal.ExitEvent)) func() { return f.exit.Subscribe(fn) }

func (f *fakeTerminals) createdOpts() []terminal.SessionOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]terminal.SessionOptions(nil), f.created...)
}

func (f *fakeTerminals) written(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes[id]...)
}

func (f *fakeTerminals) killed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.kills...)
}

type fakePorts struct {
	next     int
	err      error
	released []string
}

func (p *fakePorts) Assign(string) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.next, nil
}

func (p *fakePorts) Release(id string) { p.released = append(p.released, id) }

type fakeSidecar struct {
	mu      sync.Mutex
	healthy bool
	err     error
	texts   []string
}

func (s *fakeSidecar) WaitHealthy(context.Context) bool { return s.healthy }

func (s *fakeSidecar) AppendPrompt(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, text)
	return nil
}

func (s *fakeSidecar) appended() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type fakeView struct {
	id   string
	mu   sync.Mutex
	msgs []protocol.Outbound
}

func (v *fakeView) ID() string { return v.id }

func (v *fakeView) Send(msg protocol.Outbound) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.msgs = append(v.msgs, msg)
	return nil
}

func (v *fakeView) received() []protocol.Outbound {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]protocol.Outbound(nil), v.msgs...)
}

type fakeClipboard struct{ text string }

func (c *fakeClipboard) ReadAll() (string, error) { return c.text, nil }

func (c *fakeClipboard) WriteAll(text string) error {
	c.text = text
	return nil
}

type fakeOpener struct {
	files []filelink.Location
	urls  []string
}

func (o *fakeOpener) OpenFile(_ context.Context, loc filelink.Location) error {
	o.files = append(o.files, loc)
	return nil
}

func (o *fakeOpener) OpenURL(_ context.Context, url string) error {
	o.urls = append(o.urls, url)
	return nil
}

type fakeResolver struct{ refs []filelink.Reference }

func (r *fakeResolver) Resolve(_ context.Context, ref filelink.Reference) (filelink.Location, error) {
	r.refs = append(r.refs, ref)
	if ref.Path == "missing.go" {
		return filelink.Location{}, filelink.ErrNotFound
	}
	return filelink.Location{Path: "/w/" + ref.Path, Selection: filelink.SelectionFor(ref)}, nil
}

type fakeDiscovery struct {
	terms   []discovery.Terminal
	changed events.Emitter[struct{}]
}

func (d *fakeDiscovery) OnDidChangeTerminals(fn func()) func() {
	return d.changed.Subscribe(func(struct{}) { fn() })
}

func (d *fakeDiscovery) Terminals() []discovery.Terminal { return d.terms }

func (d *fakeDiscovery) Find(name string) (discovery.Terminal, bool) {
	for _, t := range d.terms {
		if t.Name == name {
			return t, true
		}
	}
	return discovery.Terminal{}, false
}

type fakeCapture struct {
	mu       sync.Mutex
	active   map[string]bool
	text     string
	stops    int
	cleanups int
}

func (c *fakeCapture) Start(t discovery.Terminal) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		c.active = make(map[string]bool)
	}
	c.active[t.ID] = true
	return "/tmp/cap.log", nil
}

func (c *fakeCapture) Stop(discovery.Terminal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	return nil
}

func (c *fakeCapture) Read(discovery.Terminal) string { return c.text }

func (c *fakeCapture) Cleanup(t discovery.Terminal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, t.ID)
	c.cleanups++
}

func (c *fakeCapture) Stopping(discovery.Terminal) bool { return false }

func (c *fakeCapture) Capturing(t discovery.Terminal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[t.ID]
}

type fakeConsent struct {
	allow bool
	err   error
	asked []string
	mu    sync.Mutex
}

func (c *fakeConsent) Check(_ context.Context, name, command string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asked = append(c.asked, name+":"+command)
	return c.allow, c.err
}

var errSpawn = errors.New("spawn failed")
