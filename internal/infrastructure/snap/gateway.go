// Package snap adapts the external payment widget to a single future-like
// outcome per widget session, instead of four free-standing callbacks.
package snap

import (
	"context"
	"sync"
)

// OutcomeKind discriminates the four possible widget results.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomePending
	OutcomeError
	OutcomeClosed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomePending:
		return "pending"
	case OutcomeError:
		return "error"
	case OutcomeClosed:
		return "closed"
	}
	return "unknown"
}

// Outcome is the single result of one widget session.
type Outcome struct {
	Kind              OutcomeKind
	TransactionStatus string // as reported by the widget, may be empty
	StatusMessage     string
}

// Gateway hands a token to the payment widget. The returned channel delivers
// exactly one Outcome per session and is then closed. Pay never blocks.
// Invalidate discards the session for a superseded token; only the newest
// token per order is ever honored.
type Gateway interface {
	Pay(ctx context.Context, token string) <-chan Outcome
	Invalidate(token string)
}

// CallbackGateway is the production adapter: the browser opens the widget
// with the token and reports the outcome back to the portal, which resolves
// the pending session. Only the newest token per session key is honored;
// opening a new session with the same token supersedes the old one.
type CallbackGateway struct {
	mu       sync.Mutex
	sessions map[string]chan Outcome
}

// NewCallbackGateway creates a CallbackGateway.
func NewCallbackGateway() *CallbackGateway {
	return &CallbackGateway{
		sessions: make(map[string]chan Outcome),
	}
}

// Pay registers interest in the outcome for the given token.
func (g *CallbackGateway) Pay(ctx context.Context, token string) <-chan Outcome {
	ch := make(chan Outcome, 1)

	g.mu.Lock()
	if old, exists := g.sessions[token]; exists {
		close(old)
	}
	g.sessions[token] = ch
	g.mu.Unlock()

	// Drop the session when its owning context is torn down, so an
	// abandoned widget never leaks a channel. Non-cancellable contexts
	// rely on Resolve or Invalidate instead.
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			g.mu.Lock()
			if cur, exists := g.sessions[token]; exists && cur == ch {
				delete(g.sessions, token)
			}
			g.mu.Unlock()
		}()
	}

	return ch
}

// Resolve delivers the browser-reported outcome for a token. Returns false
// when no live session is waiting (stale or superseded token).
func (g *CallbackGateway) Resolve(token string, outcome Outcome) bool {
	g.mu.Lock()
	ch, exists := g.sessions[token]
	if exists {
		delete(g.sessions, token)
	}
	g.mu.Unlock()

	if !exists {
		return false
	}
	ch <- outcome
	close(ch)
	return true
}

// Invalidate discards any live session for a token. Used when a resume
// issues a replacement token.
func (g *CallbackGateway) Invalidate(token string) {
	g.mu.Lock()
	if ch, exists := g.sessions[token]; exists {
		delete(g.sessions, token)
		close(ch)
	}
	g.mu.Unlock()
}
