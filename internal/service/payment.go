package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nuansasolution/portal/internal/domain"
	"github.com/nuansasolution/portal/internal/infrastructure/backendapi"
	"github.com/nuansasolution/portal/internal/infrastructure/snap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultVerifyDelay  = 2 * time.Second
	defaultPollInterval = 10 * time.Second

	tracerName = "nuansa-portal/payment"
)

// Backend defines the subscription backend operations the orchestrator
// depends on. Implemented by backendapi.Client.
type Backend interface {
	CreatePayment(ctx context.Context, token string, req backendapi.CreatePaymentRequest) (*backendapi.CreatePaymentResponse, error)
	GetStatus(ctx context.Context, token, orderID string) (string, error)
	VerifyPayment(ctx context.Context, token, orderID string) error
	ResumePayment(ctx context.Context, token, orderID string) (string, error)
	CancelPayment(ctx context.Context, token, orderID string) error
	GetAccess(ctx context.Context, token, userID string) (bool, error)
	GetProfile(ctx context.Context, token, userID string) (*domain.Profile, error)
}

// OrchestratorConfig tunes the orchestrator's timing behavior.
type OrchestratorConfig struct {
	VerifyDelay  time.Duration // head start given to the backend webhook before verify
	PollInterval time.Duration // pending-screen polling cadence
}

// Orchestrator coordinates the payment lifecycle per order: creation,
// widget handoff, outcome handling, reconciliation and resume/cancel.
// The backend owns every order; the orchestrator only tracks the
// client-observed state and never treats a gateway callback alone as
// proof of settlement.
type Orchestrator struct {
	backend Backend
	gateway snap.Gateway

	verifyDelay  time.Duration
	pollInterval time.Duration
	tracer       trace.Tracer

	mu        sync.Mutex
	orders    map[string]*trackedOrder
	verifying map[string]struct{}
}

type trackedOrder struct {
	state     domain.OrderState
	snapToken string
}

// NewOrchestrator creates a payment orchestrator.
func NewOrchestrator(backend Backend, gateway snap.Gateway, cfg OrchestratorConfig) *Orchestrator {
	if cfg.VerifyDelay == 0 {
		cfg.VerifyDelay = defaultVerifyDelay
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Orchestrator{
		backend:      backend,
		gateway:      gateway,
		verifyDelay:  cfg.VerifyDelay,
		pollInterval: cfg.PollInterval,
		tracer:       otel.Tracer(tracerName),
		orders:       make(map[string]*trackedOrder),
		verifying:    make(map[string]struct{}),
	}
}

// CreateOrderResult carries the server-assigned order ID and the gateway
// token for the widget session.
type CreateOrderResult struct {
	OrderID   string
	SnapToken string
	Quote     domain.Quote
}

// CreateOrder creates an order for the quoted amount and obtains a gateway
// token. Backend rejection surfaces as *domain.OrderCreationError,
// unauthorized as domain.ErrAuthExpired.
func (o *Orchestrator) CreateOrder(ctx context.Context, sess *domain.Session, quote domain.Quote, paymentMethod string) (*CreateOrderResult, error) {
	ctx, span := o.tracer.Start(ctx, "payment.create_order", trace.WithAttributes(
		attribute.String("package.name", quote.PackageName),
		attribute.Int64("order.gross_amount", quote.FinalPrice),
	))
	defer span.End()

	resp, err := o.backend.CreatePayment(ctx, sess.Token, backendapi.CreatePaymentRequest{
		UserID:        sess.UserID,
		PackageName:   quote.PackageName,
		GrossAmount:   quote.FinalPrice,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	o.mu.Lock()
	o.orders[resp.OrderID] = &trackedOrder{state: domain.StateCreated, snapToken: resp.SnapToken}
	o.mu.Unlock()

	span.SetAttributes(attribute.String("order.id", resp.OrderID))
	log.Printf("[Payment] Order %s created for user %s (%s, %s, Rp %d)",
		resp.OrderID, sess.UserID, quote.PackageName, quote.DurationLabel, quote.FinalPrice)

	return &CreateOrderResult{OrderID: resp.OrderID, SnapToken: resp.SnapToken, Quote: quote}, nil
}

// OpenGateway hands the token to the payment widget and reacts to its single
// outcome: success triggers a delayed verify, pending parks the order,
// error fails it, and a closed widget releases the lock so the order can be
// resumed or cancelled. Non-blocking; the returned channel relays the
// outcome to the caller and is closed afterwards.
func (o *Orchestrator) OpenGateway(ctx context.Context, sess *domain.Session, orderID, snapToken string) (<-chan snap.Outcome, error) {
	o.mu.Lock()
	t, ok := o.orders[orderID]
	if !ok {
		// order resumed from history, not created in this session
		t = &trackedOrder{state: domain.StatePending}
		o.orders[orderID] = t
	}
	if t.state.Terminal() {
		state := t.state
		o.mu.Unlock()
		return nil, fmt.Errorf("order %s is already %s", orderID, state)
	}
	t.state = domain.StateAwaitingOutcome
	t.snapToken = snapToken
	o.mu.Unlock()

	outcomes := o.gateway.Pay(ctx, snapToken)
	relay := make(chan snap.Outcome, 1)

	go func() {
		defer close(relay)
		select {
		case <-ctx.Done():
			// widget session torn down before resolving; release the lock
			o.transition(orderID, domain.StatePending)
		case outcome, open := <-outcomes:
			if !open {
				// token superseded by a resume; the replacement
				// session owns the state from here
				return
			}
			o.handleOutcome(ctx, sess, orderID, outcome)
			relay <- outcome
		}
	}()

	return relay, nil
}

func (o *Orchestrator) handleOutcome(ctx context.Context, sess *domain.Session, orderID string, outcome snap.Outcome) {
	log.Printf("[Payment] Widget outcome for order %s: %s", orderID, outcome.Kind)

	switch outcome.Kind {
	case snap.OutcomeSuccess:
		// Paid is only entered once the backend confirms; the widget
		// result alone is not authoritative.
		if err := o.Verify(ctx, sess, orderID); err != nil {
			log.Printf("[Payment] Non-fatal: %v (falling back to polling)", err)
		}
	case snap.OutcomePending:
		o.transition(orderID, domain.StatePending)
	case snap.OutcomeError:
		o.transition(orderID, domain.StateFailed)
	case snap.OutcomeClosed:
		o.transition(orderID, domain.StatePending)
	}
}

// Verify reconciles a client-observed success with the backend. It waits a
// fixed delay so an asynchronous webhook can settle first, then asks the
// backend for authoritative status. At most one verify per order is in
// flight; a concurrent second call is a no-op. Failures are reported as
// *domain.VerificationError and are non-fatal to the surrounding flow.
func (o *Orchestrator) Verify(ctx context.Context, sess *domain.Session, orderID string) error {
	o.mu.Lock()
	if _, inFlight := o.verifying[orderID]; inFlight {
		o.mu.Unlock()
		return nil
	}
	o.verifying[orderID] = struct{}{}
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.verifying, orderID)
		o.mu.Unlock()
	}()

	ctx, span := o.tracer.Start(ctx, "payment.verify",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(o.verifyDelay):
	}

	if err := o.backend.VerifyPayment(ctx, sess.Token, orderID); err != nil {
		span.RecordError(err)
		return &domain.VerificationError{OrderID: orderID, Err: err}
	}

	txStatus, err := o.backend.GetStatus(ctx, sess.Token, orderID)
	if err != nil {
		span.RecordError(err)
		return &domain.VerificationError{OrderID: orderID, Err: err}
	}
	o.applyTransactionStatus(orderID, txStatus)
	return nil
}

// StatusUpdate is one observation of an order's authoritative status.
type StatusUpdate struct {
	OrderID           string
	TransactionStatus string
	State             domain.OrderState
	Err               error
}

// CheckStatus performs a one-shot authoritative status check and applies the
// resulting transition (pending screen's manual refresh).
func (o *Orchestrator) CheckStatus(ctx context.Context, sess *domain.Session, orderID string) (StatusUpdate, error) {
	ctx, span := o.tracer.Start(ctx, "payment.check_status",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	update := o.checkOnce(ctx, sess, orderID)
	if update.Err != nil {
		span.RecordError(update.Err)
		return update, update.Err
	}
	return update, nil
}

func (o *Orchestrator) checkOnce(ctx context.Context, sess *domain.Session, orderID string) StatusUpdate {
	txStatus, err := o.backend.GetStatus(ctx, sess.Token, orderID)
	if err != nil {
		return StatusUpdate{OrderID: orderID, Err: err}
	}
	state := o.applyTransactionStatus(orderID, txStatus)
	return StatusUpdate{OrderID: orderID, TransactionStatus: txStatus, State: state}
}

// Watch is a cancellable polling schedule over one order.
type Watch struct {
	updates  chan StatusUpdate
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// Updates delivers one StatusUpdate per poll tick. The channel is closed
// when a terminal status is observed or the watch is stopped.
func (w *Watch) Updates() <-chan StatusUpdate { return w.updates }

// Stop cancels the polling schedule. Safe to call more than once.
func (w *Watch) Stop() { w.stopOnce.Do(w.cancel) }

// WatchOrder polls the backend on a fixed interval until a terminal status
// is observed, the watch is stopped, or ctx is torn down. The caller owns
// the returned Watch and must Stop it when its screen goes away.
func (o *Orchestrator) WatchOrder(ctx context.Context, sess *domain.Session, orderID string) *Watch {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watch{updates: make(chan StatusUpdate, 1), cancel: cancel}

	go func() {
		defer close(w.updates)
		defer cancel()

		ticker := time.NewTicker(o.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			update := o.checkOnce(ctx, sess, orderID)
			select {
			case w.updates <- update:
			case <-ctx.Done():
				return
			}
			if update.Err == nil && update.State.Terminal() {
				return
			}
		}
	}()

	return w
}

// Resume requests a fresh gateway token for a pending order. The previous
// token is superseded; only the newest one is honored by the gateway.
// Fails with domain.ErrResumeNotAllowed on any other state.
func (o *Orchestrator) Resume(ctx context.Context, sess *domain.Session, orderID string) (string, error) {
	ctx, span := o.tracer.Start(ctx, "payment.resume",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	state, err := o.currentState(ctx, sess, orderID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if state != domain.StatePending {
		return "", domain.ErrResumeNotAllowed
	}

	newToken, err := o.backend.ResumePayment(ctx, sess.Token, orderID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	o.mu.Lock()
	var previous string
	if t, ok := o.orders[orderID]; ok {
		previous = t.snapToken
		t.snapToken = newToken
	}
	o.mu.Unlock()

	// only the newest token is honored; a stale widget session on the old
	// token must never feed an outcome into this order again
	if previous != "" && previous != newToken {
		o.gateway.Invalidate(previous)
	}

	log.Printf("[Payment] Order %s resumed with a fresh gateway token", orderID)
	return newToken, nil
}

// Cancel cancels a pending order. The caller must have collected explicit
// user confirmation first. The local transition happens only after the
// backend confirms the cancel. Fails with domain.ErrCancelNotAllowed on
// any other state.
func (o *Orchestrator) Cancel(ctx context.Context, sess *domain.Session, orderID string) error {
	ctx, span := o.tracer.Start(ctx, "payment.cancel",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	state, err := o.currentState(ctx, sess, orderID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if state != domain.StatePending {
		return domain.ErrCancelNotAllowed
	}

	if err := o.backend.CancelPayment(ctx, sess.Token, orderID); err != nil {
		span.RecordError(err)
		return err
	}

	o.transition(orderID, domain.StateCancelled)
	log.Printf("[Payment] Order %s cancelled", orderID)
	return nil
}

// StateOf returns the tracked client-observed state for an order.
func (o *Orchestrator) StateOf(orderID string) (domain.OrderState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.orders[orderID]
	if !ok {
		return "", false
	}
	return t.state, true
}

// currentState resolves the order's state, consulting the backend for
// orders this process has not tracked yet (e.g. resumed from history).
func (o *Orchestrator) currentState(ctx context.Context, sess *domain.Session, orderID string) (domain.OrderState, error) {
	o.mu.Lock()
	if t, ok := o.orders[orderID]; ok {
		state := t.state
		o.mu.Unlock()
		return state, nil
	}
	o.mu.Unlock()

	txStatus, err := o.backend.GetStatus(ctx, sess.Token, orderID)
	if err != nil {
		return "", err
	}
	state, known := domain.StateForTransactionStatus(txStatus)
	if !known {
		return "", fmt.Errorf("unknown transaction status %q for order %s", txStatus, orderID)
	}

	o.mu.Lock()
	o.orders[orderID] = &trackedOrder{state: state}
	o.mu.Unlock()
	return state, nil
}

// applyTransactionStatus maps an authoritative backend status onto the
// tracked state machine and returns the resulting state.
func (o *Orchestrator) applyTransactionStatus(orderID, txStatus string) domain.OrderState {
	next, known := domain.StateForTransactionStatus(txStatus)
	if !known {
		log.Printf("[Payment] Unknown transaction status %q for order %s", txStatus, orderID)
		state, _ := o.StateOf(orderID)
		return state
	}
	o.transition(orderID, next)
	state, _ := o.StateOf(orderID)
	return state
}

// transition applies a state change, refusing to leave terminal states or
// to take an edge the state machine does not allow. Untracked orders adopt
// the observed state directly.
func (o *Orchestrator) transition(orderID string, next domain.OrderState) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	t, ok := o.orders[orderID]
	if !ok {
		o.orders[orderID] = &trackedOrder{state: next}
		return true
	}
	if t.state == next {
		return true
	}
	if t.state.Terminal() || !t.state.CanTransition(next) {
		log.Printf("[Payment] Ignoring transition %s -> %s for order %s", t.state, next, orderID)
		return false
	}
	t.state = next
	return true
}
