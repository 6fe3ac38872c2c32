package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/opencode-tui/internal/domain/fileref"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
)

type fakeTarget struct {
	calls   []string
	sent    []string
	context string
}

func (f *fakeTarget) Start() error                  { f.calls = append(f.calls, "start"); return nil }
func (f *fakeTarget) Restart(context.Context) error { f.calls = append(f.calls, "restart"); return nil }
func (f *fakeTarget) Clear()                        { f.calls = append(f.calls, "clear") }
func (f *fakeTarget) Focus()                        { f.calls = append(f.calls, "focus") }
func (f *fakeTarget) SetContext(ref string)         { f.context = ref }

func (f *fakeTarget) Send(text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func newTestRegistry() (*Registry, *fakeTarget) {
	target := &fakeTarget{}
	return New(target, []string{"/work"}), target
}

func TestLifecycleCommands(t *testing.T) {
	r, target := newTestRegistry()
	ctx := context.Background()

	for _, name := range []string{Start, Restart, Clear, Focus} {
		res, err := r.Execute(ctx, name, Request{})
		require.NoError(t, err)
		assert.Equal(t, name, res.Command)
	}
	assert.Equal(t, []string{"start", "restart", "clear", "focus"}, target.calls)
}

func TestSendAtMention(t *testing.T) {
	tests := []struct {
		name string
		sel  *fileref.Selection
		want string
	}{
		{"no selection", nil, "@src/test.ts "},
		{"single line", &fileref.Selection{Start: fileref.Position{Line: 9}, End: fileref.Position{Line: 9, Character: 10}}, "@src/test.ts#L10 "},
		{"range", &fileref.Selection{Start: fileref.Position{Line: 9}, End: fileref.Position{Line: 19, Character: 10}}, "@src/test.ts#L10-L20 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, target := newTestRegistry()
			res, err := r.Execute(context.Background(), SendAtMention, Request{Path: "/work/src/test.ts", Selection: tt.sel})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Sent)
			assert.Equal(t, []string{tt.want}, target.sent)
		})
	}
}

func TestSendToTerminal(t *testing.T) {
	r, target := newTestRegistry()

	res, err := r.Execute(context.Background(), SendToTerminal, Request{Text: "go test ./..."})
	require.NoError(t, err)
	assert.Equal(t, "go test ./...\n", res.Sent)

	res, err = r.Execute(context.Background(), SendToTerminal, Request{})
	require.NoError(t, err)
	assert.Empty(t, res.Sent)
	assert.Len(t, target.sent, 1)
}

func TestSendAllOpenFiles(t *testing.T) {
	r, target := newTestRegistry()

	_, err := r.Execute(context.Background(), SendAllOpenFiles, Request{Paths: []string{"/work/a.go", "/work/pkg/b.go"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"@a.go @pkg/b.go "}, target.sent)

	res, err := r.Execute(context.Background(), SendAllOpenFiles, Request{})
	require.NoError(t, err)
	assert.Equal(t, "No open files", res.Message)
}

func TestSendFileToTerminal(t *testing.T) {
	r, target := newTestRegistry()

	_, err := r.Execute(context.Background(), SendFileToTerminal, Request{Path: "/work/README.md"})
	require.NoError(t, err)
	assert.Equal(t, []string{"@README.md "}, target.sent)

	_, err = r.Execute(context.Background(), SendFileToTerminal, Request{})
	assert.ErrorIs(t, err, ErrMissingArgument)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSetContext(t *testing.T) {
	r, target := newTestRegistry()
	sel := &fileref.Selection{Start: fileref.Position{Line: 2}, End: fileref.Position{Line: 4}}

	_, err := r.Execute(context.Background(), SetContext, Request{Path: "/work/a.go", Selection: sel})
	require.NoError(t, err)
	assert.Equal(t, "@a.go#L3-L5", target.context)
	assert.Empty(t, target.sent)
}

func TestUnknownCommand(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Execute(context.Background(), "selfDestruct", Request{})
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Contains(t, r.Names(), SendAtMention)
}
