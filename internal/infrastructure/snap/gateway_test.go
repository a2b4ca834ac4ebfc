package snap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackGatewayResolvesSession(t *testing.T) {
	g := NewCallbackGateway()

	ch := g.Pay(context.Background(), "snap-1")
	require.True(t, g.Resolve("snap-1", Outcome{Kind: OutcomeSuccess, TransactionStatus: "settlement"}))

	outcome, open := <-ch
	require.True(t, open)
	assert.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "settlement", outcome.TransactionStatus)

	// the channel delivers exactly one outcome and is then closed
	_, open = <-ch
	assert.False(t, open)
}

func TestCallbackGatewayStaleTokenRejected(t *testing.T) {
	g := NewCallbackGateway()

	assert.False(t, g.Resolve("never-opened", Outcome{Kind: OutcomeSuccess}))
}

func TestCallbackGatewaySupersededSessionCloses(t *testing.T) {
	g := NewCallbackGateway()

	first := g.Pay(context.Background(), "snap-1")
	second := g.Pay(context.Background(), "snap-1")

	// the first session was superseded and closed without an outcome
	_, open := <-first
	assert.False(t, open)

	require.True(t, g.Resolve("snap-1", Outcome{Kind: OutcomePending}))
	outcome := <-second
	assert.Equal(t, OutcomePending, outcome.Kind)
}

func TestCallbackGatewayInvalidate(t *testing.T) {
	g := NewCallbackGateway()

	ch := g.Pay(context.Background(), "snap-1")
	g.Invalidate("snap-1")

	_, open := <-ch
	assert.False(t, open)
	assert.False(t, g.Resolve("snap-1", Outcome{Kind: OutcomeSuccess}))
}

func TestCallbackGatewayContextTeardown(t *testing.T) {
	g := NewCallbackGateway()

	ctx, cancel := context.WithCancel(context.Background())
	g.Pay(ctx, "snap-1")
	cancel()

	// give the cleanup goroutine a moment to drop the session
	assert.Eventually(t, func() bool {
		return !g.Resolve("snap-1", Outcome{Kind: OutcomeSuccess})
	}, time.Second, 10*time.Millisecond)
}

func TestMockGatewayScriptedOutcome(t *testing.T) {
	g := NewMockGateway(OutcomePending, 5*time.Millisecond)

	outcome, open := <-g.Pay(context.Background(), "snap-1")
	require.True(t, open)
	assert.Equal(t, OutcomePending, outcome.Kind)
	assert.Equal(t, "pending", outcome.TransactionStatus)
}

func TestMockGatewayRespectsContext(t *testing.T) {
	g := NewMockGateway(OutcomeSuccess, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	ch := g.Pay(ctx, "snap-1")
	cancel()

	_, open := <-ch
	assert.False(t, open)
}
