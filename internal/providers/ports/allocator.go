// Package ports hands out local TCP ports to sessions that run an HTTP sidecar.
//
// Ports come from a fixed candidate range. A port is never held by two live
// sessions at once, and Release frees everything a session owns.
package ports

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
)

// ErrPoolExhausted is returned when every candidate port is taken
var ErrPoolExhausted = apperr.Sentinel(apperr.KindTransient, "port pool exhausted")

// Default candidate range
const (
	DefaultStart = 16384
	DefaultSize  = 100
)

// ProbeFunc reports whether a port can currently be bound
type ProbeFunc func(port int) bool

// Config defines the candidate pool
type Config struct {
	Start int
	Size  int
	Host  string
	Probe ProbeFunc
}

// DefaultConfig returns the default pool on the loopback interface
func DefaultConfig() Config {
	return Config{Start: DefaultStart, Size: DefaultSize, Host: "127.0.0.1"}
}

// Allocator tracks port ownership
type Allocator struct {
	mu      sync.Mutex
	start   int
	size    int
	probe   ProbeFunc
	owners  map[int]string
	byOwner map[string][]int
}

// NewAllocator creates an allocator over cfg's range
func NewAllocator(cfg Config) *Allocator {
	if cfg.Start <= 0 {
		cfg.Start = DefaultStart
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Probe == nil {
		cfg.Probe = listenProbe(cfg.Host)
	}

	return &Allocator{
		start:   cfg.Start,
		size:    cfg.Size,
		probe:   cfg.Probe,
		owners:  make(map[int]string),
		byOwner: make(map[string][]int),
	}
}

// listenProbe checks that nothing else on the machine is bound to the port
func listenProbe(host string) ProbeFunc {
	return func(port int) bool {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			return false
		}
		_ = l.Close()
		return true
	}
}

// Assign reserves a free port for sessionID
func (a *Allocator) Assign(sessionID string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for port := a.start; port < a.start+a.size; port++ {
		if _, held := a.owners[port]; held {
			continue
		}
		if !a.probe(port) {
			continue
		}
		a.owners[port] = sessionID
		a.byOwner[sessionID] = append(a.byOwner[sessionID], port)
		return port, nil
	}

	return 0, fmt.Errorf("assign port for %s (range %d-%d): %w",
		sessionID, a.start, a.start+a.size-1, ErrPoolExhausted)
}

// Release frees every port held by sessionID. Safe when none are held.
func (a *Allocator) Release(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, port := range a.byOwner[sessionID] {
		delete(a.owners, port)
	}
	delete(a.byOwner, sessionID)
}

// Owner returns the session holding port
func (a *Allocator) Owner(port int) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	owner, ok := a.owners[port]
	return owner, ok
}

// Ports returns a copy of the ports held by sessionID
func (a *Allocator) Ports(sessionID string) []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.byOwner[sessionID]...)
}

// InUse returns the number of held ports
func (a *Allocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.owners)
}
