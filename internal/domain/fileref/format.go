// Package fileref renders editor context as OpenCode file references.
//
// A reference is "@" followed by the workspace-relative path, optionally
// suffixed with a 1-based line ("#L10") or line range ("#L10-L20").
package fileref

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Position is a 0-based line and character offset
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Selection is a 0-based editor selection
type Selection struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Empty reports whether the selection covers no text
func (s Selection) Empty() bool {
	return s.Start == s.End
}

// Relative returns path relative to the first workspace root. Paths outside
// the root, and every path when there is no workspace, stay absolute.
func Relative(path string, roots []string) string {
	if len(roots) == 0 || roots[0] == "" {
		return filepath.ToSlash(path)
	}
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path))
	}

	rel, err := filepath.Rel(roots[0], path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Format renders a file reference. A nil or empty selection yields the bare
// "@path" form.
func Format(path string, sel *Selection, roots []string) string {
	var b strings.Builder
	b.WriteByte('@')
	b.WriteString(Relative(path, roots))

	if sel == nil || sel.Empty() {
		return b.String()
	}

	start := sel.Start.Line + 1
	end := sel.End.Line + 1
	b.WriteString("#L")
	b.WriteString(strconv.Itoa(start))
	if end != start {
		b.WriteString("-L")
		b.WriteString(strconv.Itoa(end))
	}
	return b.String()
}

// FormatAll renders one bare reference per path, space separated
func FormatAll(paths []string, roots []string) string {
	refs := make([]string, 0, len(paths))
	for _, p := range paths {
		refs = append(refs, Format(p, nil, roots))
	}
	return strings.Join(refs, " ")
}

// FormatDropped renders dropped files for insertion at the prompt. With
// shift held each path becomes an "@" reference; otherwise plain paths.
// The result always ends with a trailing space.
func FormatDropped(files []string, shift bool, roots []string) string {
	if len(files) == 0 {
		return ""
	}

	var b strings.Builder
	for _, f := range files {
		if shift {
			b.WriteByte('@')
		}
		b.WriteString(Relative(f, roots))
		b.WriteByte(' ')
	}
	return b.String()
}

// FormatSelectionText turns selected editor text into a terminal line
func FormatSelectionText(text string) string {
	return text + "\n"
}
