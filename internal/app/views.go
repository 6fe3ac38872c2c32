package app

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/opencode-tui/internal/domain/protocol"
)

type viewSet struct {
	mu    sync.RWMutex
	views map[string]View
}

func newViewSet() *viewSet {
	return &viewSet{views: make(map[string]View)}
}

func (s *viewSet) add(v View) {
	s.mu.Lock()
	s.views[v.ID()] = v
	s.mu.Unlock()
}

func (s *viewSet) remove(id string) {
	s.mu.Lock()
	delete(s.views, id)
	s.mu.Unlock()
}

func (s *viewSet) get(id string) (View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[id]
	return v, ok
}

func (s *viewSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

func (s *viewSet) clear() {
	s.mu.Lock()
	s.views = make(map[string]View)
	s.mu.Unlock()
}

// snapshot returns views in a stable order
func (s *viewSet) snapshot() []View {
	s.mu.RLock()
	out := make([]View, 0, len(s.views))
	for _, v := range s.views {
		out = append(out, v)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (s *viewSet) send(v View, msg protocol.Outbound, logger *zap.Logger) {
	if err := v.Send(msg); err != nil {
		logger.Debug("View send failed",
			zap.String("view", v.ID()),
			zap.String("type", string(msg.Kind())),
			zap.Error(err))
	}
}

func (s *viewSet) broadcast(msg protocol.Outbound, logger *zap.Logger) {
	for _, v := range s.snapshot() {
		s.send(v, msg, logger)
	}
}
