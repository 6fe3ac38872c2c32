// Package discovery lists the host's terminals other than the provider's
// own, and records their output on request.
package discovery

import (
	"fmt"
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/GriffinCanCode/opencode-tui/internal/providers/terminal"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/events"
)

// Names never reported as foreign terminals
const (
	OwnedID   = "opencode-main"
	OwnedName = "OpenCode TUI"
)

// Host is the terminal table being inspected
type Host interface {
	List() []terminal.SessionInfo
	Write(id, data string) error
	OnChange(fn func(terminal.ChangeEvent)) func()
}

// Terminal is a discoverable foreign terminal
type Terminal struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	Pid          int    `json:"pid"`
	Cwd          string `json:"cwd"`
}

// Service discovers foreign terminals
type Service struct {
	host     Host
	excluded map[string]bool
	changed  *events.Emitter[struct{}]
	unsub    func()
}

// NewService watches host for table changes. Extra names or IDs to hide
// may be passed in addition to the owned ones.
func NewService(host Host, exclude ...string) *Service {
	s := &Service{
		host:     host,
		excluded: map[string]bool{OwnedID: true, OwnedName: true},
		changed:  events.NewEmitter[struct{}](),
	}
	for _, name := range exclude {
		s.excluded[name] = true
	}
	s.unsub = host.OnChange(func(terminal.ChangeEvent) {
		s.changed.Fire(struct{}{})
	})
	return s
}

// OnDidChangeTerminals fires whenever a terminal opens or closes
func (s *Service) OnDidChangeTerminals(fn func()) func() {
	return s.changed.Subscribe(func(struct{}) { fn() })
}

// Terminals lists foreign terminals. Sessions without a pid are still
// starting and are omitted. Names shared by several terminals get the
// working directory appended when it is known.
func (s *Service) Terminals() []Terminal {
	var found []Terminal
	for _, info := range s.host.List() {
		if s.excluded[info.ID] || s.excluded[info.Name] {
			continue
		}
		if info.Pid <= 0 {
			continue
		}
		found = append(found, Terminal{
			ID:           info.ID,
			Name:         info.Name,
			OriginalName: info.Name,
			Pid:          info.Pid,
			Cwd:          info.Cwd,
		})
	}

	counts := make(map[string]int, len(found))
	for _, t := range found {
		counts[t.OriginalName]++
	}
	for i := range found {
		if counts[found[i].OriginalName] > 1 && found[i].Cwd != "" {
			found[i].Name = fmt.Sprintf("%s [%s]", found[i].OriginalName, found[i].Cwd)
		}
	}
	return found
}

// Find looks a terminal up by display name, then by original name, then
// by an unambiguous fuzzy completion of the display names.
func (s *Service) Find(name string) (Terminal, bool) {
	terms := s.Terminals()
	for _, t := range terms {
		if t.Name == name {
			return t, true
		}
	}
	for _, t := range terms {
		if t.OriginalName == name {
			return t, true
		}
	}
	if name == "" || len(terms) == 0 {
		return Terminal{}, false
	}

	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name
	}
	matches := fuzzy.Find(name, names)
	if len(matches) == 0 {
		return Terminal{}, false
	}
	sort.Stable(matches)
	if len(matches) > 1 && matches[0].Score == matches[1].Score {
		return Terminal{}, false
	}
	return terms[matches[0].Index], true
}

// Names returns the display names, for completion
func (s *Service) Names() []string {
	terms := s.Terminals()
	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name
	}
	return names
}

// Dispose stops watching the host
func (s *Service) Dispose() {
	if s.unsub != nil {
		s.unsub()
	}
	s.changed.Dispose()
}
