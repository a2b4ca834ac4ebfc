package snap

import (
	"context"
	"log"
	"time"
)

// MockGateway resolves every session with a fixed outcome after a short
// delay. Used for local development when no widget is wired up.
type MockGateway struct {
	Kind  OutcomeKind
	Delay time.Duration
}

// NewMockGateway creates a MockGateway that reports kind after delay.
func NewMockGateway(kind OutcomeKind, delay time.Duration) *MockGateway {
	return &MockGateway{Kind: kind, Delay: delay}
}

// Pay schedules the scripted outcome.
func (g *MockGateway) Pay(ctx context.Context, token string) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		select {
		case <-ctx.Done():
			return
		case <-time.After(g.Delay):
		}
		log.Printf("[MockGateway] Resolving widget session %s with %s", token, g.Kind)
		ch <- Outcome{Kind: g.Kind, TransactionStatus: g.transactionStatus()}
	}()
	return ch
}

// Invalidate is a no-op: mock sessions resolve themselves.
func (g *MockGateway) Invalidate(token string) {}

func (g *MockGateway) transactionStatus() string {
	switch g.Kind {
	case OutcomeSuccess:
		return "settlement"
	case OutcomePending:
		return "pending"
	}
	return ""
}
