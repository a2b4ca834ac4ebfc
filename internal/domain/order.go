package domain

import "time"

// Order status values as reported by the backend profile payload.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
	OrderStatusExpired   = "expired"
)

// Transaction status values reported by GET /payment/status/{order_id}.
const (
	TxStatusSettlement = "settlement"
	TxStatusCapture    = "capture"
	TxStatusPending    = "pending"
	TxStatusDeny       = "deny"
	TxStatusCancel     = "cancel"
	TxStatusExpire     = "expire"
)

// Order is the backend's authoritative record of a purchase attempt.
// This layer only ever holds a read/transient copy; every transition to a
// settled state must be confirmed by a backend response.
type Order struct {
	OrderID        string    `json:"order_id"`
	UserID         string    `json:"user_id"`
	PackageName    string    `json:"package_name"`
	DurationMonths int       `json:"duration_months,omitempty"` // 0 when the backend omits it
	GrossAmount    int64     `json:"gross_amount"`
	PaymentMethod  string    `json:"payment_method"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OrderState is the client-observed lifecycle state of an order.
type OrderState string

const (
	StateCreated         OrderState = "created"
	StateAwaitingOutcome OrderState = "awaiting_outcome"
	StatePending         OrderState = "pending"
	StatePaid            OrderState = "paid"
	StateFailed          OrderState = "failed"
	StateCancelled       OrderState = "cancelled"
	StateExpired         OrderState = "expired"
)

// Terminal reports whether no further transition may leave the state.
func (s OrderState) Terminal() bool {
	switch s {
	case StatePaid, StateFailed, StateCancelled, StateExpired:
		return true
	}
	return false
}

var validTransitions = map[OrderState][]OrderState{
	StateCreated:         {StateAwaitingOutcome},
	StateAwaitingOutcome: {StatePaid, StatePending, StateFailed, StateCancelled},
	StatePending:         {StateAwaitingOutcome, StatePaid, StateCancelled, StateExpired, StateFailed},
}

// CanTransition reports whether next is a legal successor of s.
func (s OrderState) CanTransition(next OrderState) bool {
	if s == next {
		return false
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StateForTransactionStatus maps a backend transaction status to the
// client-observed state. Settlement and capture are both treated as paid.
func StateForTransactionStatus(txStatus string) (OrderState, bool) {
	switch txStatus {
	case TxStatusSettlement, TxStatusCapture:
		return StatePaid, true
	case TxStatusPending:
		return StatePending, true
	case TxStatusDeny:
		return StateFailed, true
	case TxStatusCancel:
		return StateCancelled, true
	case TxStatusExpire:
		return StateExpired, true
	}
	return "", false
}

// Profile is the backend's view of a user plus their order records.
type Profile struct {
	User         *User    `json:"user"`
	ActiveOrder  *Order   `json:"active_order,omitempty"`
	OrderHistory []*Order `json:"order_history,omitempty"`
}

// MostRecentOrder returns the order entitlement decisions are based on:
// the active order when the backend designates one, otherwise the newest
// entry in the order history.
func (p *Profile) MostRecentOrder() *Order {
	if p.ActiveOrder != nil {
		return p.ActiveOrder
	}
	var latest *Order
	for _, o := range p.OrderHistory {
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	return latest
}
