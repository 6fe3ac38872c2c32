package filelink

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/opencode-tui/internal/domain/fileref"
)

// Location is a resolved, openable file position
type Location struct {
	Path      string             `json:"path"`
	Selection *fileref.Selection `json:"selection,omitempty"`
	MIME      string             `json:"mime,omitempty"`
	Fuzzy     bool               `json:"fuzzy"`
}

// Resolver resolves references against the first workspace root
type Resolver struct {
	roots  []string
	index  *Index
	logger *zap.Logger
}

// NewResolver creates a resolver. index may be nil, which disables the
// fuzzy fallback.
func NewResolver(roots []string, index *Index, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{roots: roots, index: index, logger: logger}
}

// ResolveString parses raw and resolves it
func (r *Resolver) ResolveString(ctx context.Context, raw string) (Location, error) {
	ref, err := Parse(raw)
	if err != nil {
		return Location{}, err
	}
	return r.Resolve(ctx, ref)
}

// Resolve finds the file for ref: the literal path first, then a fuzzy
// basename match across the workspace.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) (Location, error) {
	if err := Validate(ref.Path); err != nil {
		return Location{}, err
	}

	if p, ok := r.literal(ref.Path); ok {
		return r.location(p, ref, false), nil
	}

	if r.index == nil {
		return Location{}, fmt.Errorf("%s: %w", ref.Path, ErrNotFound)
	}

	files, err := r.index.Files(ctx)
	if err != nil {
		r.logger.Debug("Fuzzy lookup skipped", zap.Error(err))
		return Location{}, fmt.Errorf("%s: %w", ref.Path, ErrNotFound)
	}

	match, ok := BestMatch(ref.Path, files)
	if !ok {
		return Location{}, fmt.Errorf("%s: %w", ref.Path, ErrNotFound)
	}
	return r.location(filepath.Join(r.index.Root(), filepath.FromSlash(match)), ref, true), nil
}

func (r *Resolver) literal(p string) (string, bool) {
	candidate := filepath.FromSlash(p)
	if !filepath.IsAbs(candidate) {
		base := ""
		if len(r.roots) > 0 {
			base = r.roots[0]
		}
		if base == "" {
			wd, err := os.Getwd()
			if err != nil {
				return "", false
			}
			base = wd
		}
		candidate = filepath.Join(base, candidate)
	}

	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return "", false
	}
	return candidate, true
}

func (r *Resolver) location(p string, ref Reference, fuzzy bool) Location {
	loc := Location{Path: p, Selection: SelectionFor(ref), Fuzzy: fuzzy}
	if mt, err := mimetype.DetectFile(p); err == nil {
		loc.MIME = mt.String()
	}
	return loc
}

// SelectionFor converts 1-based reference positions into a 0-based
// selection. Missing or negative values clamp to 0; an end line selects
// through MaxColumn.
func SelectionFor(ref Reference) *fileref.Selection {
	if ref.Line == 0 && ref.EndLine == 0 && ref.Column == 0 {
		return nil
	}

	start := fileref.Position{Line: clamp(ref.Line - 1), Character: clamp(ref.Column - 1)}
	sel := &fileref.Selection{Start: start, End: start}
	if ref.EndLine > 0 {
		end := clamp(ref.EndLine - 1)
		if end < start.Line {
			end = start.Line
		}
		sel.End = fileref.Position{Line: end, Character: MaxColumn}
	}
	return sel
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// BestMatch picks the highest ranked file whose basename matches the
// requested path. Ranking: exact suffix match, then trailing directory
// segments in common, then lexical order.
func BestMatch(requested string, files []string) (string, bool) {
	want := strings.TrimPrefix(path.Clean(filepath.ToSlash(requested)), "./")
	want = strings.TrimPrefix(want, "/")
	pattern := "**/" + escapeGlob(path.Base(want))

	type candidate struct {
		path   string
		suffix bool
		segs   int
	}
	var found []candidate
	for _, f := range files {
		ok, err := doublestar.Match(pattern, f)
		if err != nil || !ok {
			continue
		}
		found = append(found, candidate{
			path:   f,
			suffix: f == want || strings.HasSuffix(f, "/"+want),
			segs:   commonDirSegments(want, f),
		})
	}
	if len(found) == 0 {
		return "", false
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.suffix != b.suffix {
			return a.suffix
		}
		if a.segs != b.segs {
			return a.segs > b.segs
		}
		return a.path < b.path
	})
	return found[0].path, true
}

func commonDirSegments(a, b string) int {
	as := dirSegments(a)
	bs := dirSegments(b)
	n := 0
	for i, j := len(as)-1, len(bs)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if as[i] != bs[j] {
			break
		}
		n++
	}
	return n
}

func dirSegments(p string) []string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return nil
	}
	return strings.Split(strings.Trim(dir, "/"), "/")
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
