package consent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/events"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/id"
)

// Decision is a user's answer to a consent prompt
type Decision string

const (
	AllowOnce   Decision = "allow_once"
	AllowAlways Decision = "allow_always"
	Deny        Decision = "deny"
)

// DefaultPromptTimeout denies prompts nobody answers
const DefaultPromptTimeout = 2 * time.Minute

var (
	ErrPromptNotFound  = apperr.Sentinel(apperr.KindResolution, "consent prompt not found")
	ErrInvalidDecision = apperr.Sentinel(apperr.KindValidation, "invalid consent decision")
)

// ParseDecision validates a decision string
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case AllowOnce, AllowAlways, Deny:
		return d, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidDecision)
}

// Request describes an operation waiting for consent
type Request struct {
	ID        string    `json:"id"`
	Terminal  string    `json:"terminal"`
	Command   string    `json:"command"`
	CreatedAt time.Time `json:"created_at"`
}

// Prompter asks the user for a decision
type Prompter interface {
	Ask(ctx context.Context, req Request) (Decision, error)
}

// Gate checks consent before sending to a foreign terminal
type Gate struct {
	store    *Store
	prompter Prompter
	logger   *zap.Logger
}

// NewGate creates a gate
func NewGate(store *Store, prompter Prompter, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{store: store, prompter: prompter, logger: logger.Named("consent")}
}

// Check returns true when the command may be sent. Only AllowAlways is
// remembered.
func (g *Gate) Check(ctx context.Context, terminalName, command string) (bool, error) {
	if g.store.AllowForeign() {
		return true, nil
	}

	decision, err := g.prompter.Ask(ctx, Request{
		ID:        id.NewPromptID().String(),
		Terminal:  terminalName,
		Command:   command,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return false, err
	}

	switch decision {
	case AllowAlways:
		if err := g.store.SetAllowForeign(true); err != nil {
			g.logger.Warn("Failed to persist consent", zap.Error(err))
		}
		return true, nil
	case AllowOnce:
		return true, nil
	default:
		return false, nil
	}
}

type pending struct {
	req    Request
	answer chan Decision
}

// Queue is a Prompter whose prompts are answered out of band, for example
// over the REST API. Unanswered prompts are denied after the timeout.
type Queue struct {
	mu       sync.Mutex
	pending  map[string]*pending
	timeout  time.Duration
	onPrompt *events.Emitter[Request]
}

// NewQueue creates an empty prompt queue
func NewQueue(timeout time.Duration) *Queue {
	if timeout <= 0 {
		timeout = DefaultPromptTimeout
	}
	return &Queue{
		pending:  make(map[string]*pending),
		timeout:  timeout,
		onPrompt: events.NewEmitter[Request](),
	}
}

// OnPrompt fires when a new prompt is waiting
func (q *Queue) OnPrompt(fn func(Request)) func() {
	return q.onPrompt.Subscribe(fn)
}

// Ask blocks until the prompt is answered, ctx ends or the timeout passes
func (q *Queue) Ask(ctx context.Context, req Request) (Decision, error) {
	p := &pending{req: req, answer: make(chan Decision, 1)}

	q.mu.Lock()
	q.pending[req.ID] = p
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.pending, req.ID)
		q.mu.Unlock()
	}()

	q.onPrompt.Fire(req)

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case d := <-p.answer:
		return d, nil
	case <-timer.C:
		return Deny, nil
	case <-ctx.Done():
		return Deny, ctx.Err()
	}
}

// Answer resolves a waiting prompt
func (q *Queue) Answer(promptID string, d Decision) error {
	if _, err := ParseDecision(string(d)); err != nil {
		return err
	}

	q.mu.Lock()
	p, ok := q.pending[promptID]
	if ok {
		delete(q.pending, promptID)
	}
	q.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", promptID, ErrPromptNotFound)
	}
	p.answer <- d
	return nil
}

// Pending lists waiting prompts, oldest first
func (q *Queue) Pending() []Request {
	q.mu.Lock()
	reqs := make([]Request, 0, len(q.pending))
	for _, p := range q.pending {
		reqs = append(reqs, p.req)
	}
	q.mu.Unlock()

	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
	})
	return reqs
}
