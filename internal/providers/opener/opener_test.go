package opener

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/opencode-tui/internal/domain/fileref"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/filelink"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
)

type recorder struct {
	argv [][]string
	err  error
}

func (r *recorder) run(_ context.Context, name string, args ...string) error {
	r.argv = append(r.argv, append([]string{name}, args...))
	return r.err
}

func TestOpenFileExpandsTemplate(t *testing.T) {
	rec := &recorder{}
	o := New(Config{Runner: rec.run})

	err := o.OpenFile(context.Background(), filelink.Location{
		Path:      "/w/a.go",
		Selection: &fileref.Selection{Start: fileref.Position{Line: 9, Character: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"code", "--goto", "/w/a.go:10:3"}}, rec.argv)
}

func TestOpenFileWithoutSelection(t *testing.T) {
	rec := &recorder{}
	o := New(Config{FileCommand: "vim +{line} {path}", Runner: rec.run})

	require.NoError(t, o.OpenFile(context.Background(), filelink.Location{Path: "/w/a.go"}))
	assert.Equal(t, []string{"vim", "+1", "/w/a.go"}, rec.argv[0])
}

func TestOpenURL(t *testing.T) {
	rec := &recorder{}
	o := New(Config{URLCommand: "browser {url}", Runner: rec.run})

	require.NoError(t, o.OpenURL(context.Background(), "https://example.com/docs"))
	assert.Equal(t, []string{"browser", "https://example.com/docs"}, rec.argv[0])

	for _, bad := range []string{"file:///etc/passwd", "javascript:alert(1)", "ftp://x", "not a url"} {
		err := o.OpenURL(context.Background(), bad)
		assert.ErrorIs(t, err, ErrUnsupportedScheme, bad)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
	assert.Len(t, rec.argv, 1)
}

func TestRunnerFailureIsCapabilityError(t *testing.T) {
	rec := &recorder{err: errors.New("executable not found")}
	o := New(Config{Runner: rec.run})

	err := o.OpenURL(context.Background(), "http://localhost:3000")
	assert.Error(t, err)
	assert.Equal(t, apperr.KindCapability, apperr.KindOf(err))
}
