// Package filelink turns file references found in terminal output into
// openable locations inside the workspace.
package filelink

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
)

// MaxColumn selects to the end of any realistic line
const MaxColumn = 10000

var (
	ErrUnsafePath       = apperr.Sentinel(apperr.KindValidation, "unsafe path")
	ErrInvalidReference = apperr.Sentinel(apperr.KindValidation, "invalid file reference")
	ErrNotFound         = apperr.Sentinel(apperr.KindResolution, "file not found")
)

// Reference is a parsed file reference. Line, EndLine and Column are
// 1-based; zero means absent.
type Reference struct {
	Path    string `json:"path"`
	Line    int    `json:"line,omitempty"`
	EndLine int    `json:"endLine,omitempty"`
	Column  int    `json:"column,omitempty"`
}

var (
	mentionRange = regexp.MustCompile(`^(.+?)#L(\d+)(?:-L(\d+))?$`)
	lineCol      = regexp.MustCompile(`^(.+?):(\d+)(?::(\d+))?$`)
)

// Validate rejects parent segments, NUL bytes and home shorthand
func Validate(path string) error {
	if path == "" {
		return ErrInvalidReference
	}
	if strings.ContainsRune(path, 0) || strings.Contains(path, "~") {
		return ErrUnsafePath
	}
	for _, seg := range strings.FieldsFunc(path, isSeparator) {
		if seg == ".." {
			return ErrUnsafePath
		}
	}
	return nil
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

// Parse accepts path, path:line, path:line:col, @path#Ls, @path#Ls-Le and
// file:// URLs.
func Parse(raw string) (Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reference{}, ErrInvalidReference
	}

	var ref Reference
	switch {
	case strings.HasPrefix(raw, "file://"):
		u, err := url.Parse(raw)
		if err != nil || u.Path == "" {
			return Reference{}, ErrInvalidReference
		}
		ref.Path = filepath.FromSlash(u.Path)
		if m := mentionRange.FindStringSubmatch("x#" + u.Fragment); m != nil {
			ref.Line = atoi(m[2])
			ref.EndLine = atoi(m[3])
		}

	case strings.HasPrefix(raw, "@"):
		body := raw[1:]
		if m := mentionRange.FindStringSubmatch(body); m != nil {
			ref.Path = m[1]
			ref.Line = atoi(m[2])
			ref.EndLine = atoi(m[3])
		} else {
			ref.Path = body
		}

	default:
		if m := lineCol.FindStringSubmatch(raw); m != nil && !isDriveOnly(m[1]) {
			ref.Path = m[1]
			ref.Line = atoi(m[2])
			ref.Column = atoi(m[3])
		} else {
			ref.Path = raw
		}
	}

	if err := Validate(ref.Path); err != nil {
		return Reference{}, err
	}
	return ref, nil
}

func isDriveOnly(s string) bool {
	return len(s) == 1 && ((s[0] >= 'a' && s[0] <= 'z') || (s[0] >= 'A' && s[0] <= 'Z'))
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Link is a reference located in a line of text
type Link struct {
	Text      string    `json:"text"`
	Start     int       `json:"start"`
	End       int       `json:"end"`
	Reference Reference `json:"reference"`
}

var (
	token    = regexp.MustCompile(`\S+`)
	pathLike = regexp.MustCompile(`^(?:[A-Za-z]:)?[\w./\\@+-]*\.[A-Za-z][A-Za-z0-9]*(?::\d+(?::\d+)?)?$`)
)

const (
	leadingTrim  = "\"'`([{<"
	trailingTrim = "\"'`)]}>,;:.!?"
)

// FindLinks extracts candidate file references from terminal output.
// Unsafe or malformed candidates are skipped.
func FindLinks(text string) []Link {
	var links []Link
	for _, loc := range token.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		for start < end && strings.IndexByte(leadingTrim, text[start]) >= 0 {
			start++
		}
		for end > start && strings.IndexByte(trailingTrim, text[end-1]) >= 0 {
			end--
		}
		if start >= end {
			continue
		}

		candidate := text[start:end]
		if !looksLikeReference(candidate) {
			continue
		}
		ref, err := Parse(candidate)
		if err != nil {
			continue
		}
		links = append(links, Link{Text: candidate, Start: start, End: end, Reference: ref})
	}
	return links
}

func looksLikeReference(s string) bool {
	switch {
	case strings.HasPrefix(s, "file://"):
		return len(s) > len("file://")
	case strings.Contains(s, "://"):
		return false
	case strings.HasPrefix(s, "@"):
		return len(s) > 1 && strings.ContainsAny(s[1:], "./")
	}
	return pathLike.MatchString(s)
}
