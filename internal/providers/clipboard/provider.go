// Package clipboard reads and writes the system clipboard for paste and
// clipboard requests coming from terminal views.
package clipboard

import (
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
)

// Provider implements clipboard operations. When the system clipboard is
// unavailable (headless hosts without xclip, xsel or wl-clipboard) it falls
// back to an in-process buffer so copy and paste between views still work.
type Provider struct {
	mu       sync.Mutex
	fallback string
	system   bool

	read  func() (string, error)
	write func(string) error
}

// NewProvider creates a provider backed by the system clipboard
func NewProvider() *Provider {
	return &Provider{
		system: !clipboard.Unsupported,
		read:   clipboard.ReadAll,
		write:  clipboard.WriteAll,
	}
}

// NewMemoryProvider creates a provider that never touches the system clipboard
func NewMemoryProvider() *Provider {
	return &Provider{}
}

// System reports whether the system clipboard is in use
func (p *Provider) System() bool {
	return p.system
}

// ReadAll returns the clipboard text
func (p *Provider) ReadAll() (string, error) {
	if p.system {
		text, err := p.read()
		if err != nil {
			return "", fmt.Errorf("read clipboard: %w", err)
		}
		return text, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fallback, nil
}

// WriteAll replaces the clipboard text
func (p *Provider) WriteAll(text string) error {
	if p.system {
		if err := p.write(text); err != nil {
			return fmt.Errorf("write clipboard: %w", err)
		}
		return nil
	}

	p.mu.Lock()
	p.fallback = text
	p.mu.Unlock()
	return nil
}
