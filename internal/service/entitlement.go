package service

import (
	"context"
	"log"
	"time"

	"github.com/nuansasolution/portal/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Entitlement resolves whether a user currently has portal access. The
// backend access flag is the primary source; the computed expiry from the
// most recent paid order refines it, so a lapsed subscription reads as
// inactive even before the backend notices.
type Entitlement struct {
	backend Backend
	pricing *Pricing
	group   singleflight.Group
	now     func() time.Time
}

// NewEntitlement creates an entitlement resolver.
func NewEntitlement(backend Backend, pricing *Pricing) *Entitlement {
	return &Entitlement{backend: backend, pricing: pricing, now: time.Now}
}

// Access is the resolved entitlement for one user.
type Access struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // nil when the duration cannot be inferred
}

// HasAccess reports whether the user currently has portal access.
func (e *Entitlement) HasAccess(ctx context.Context, sess *domain.Session, userID string) (bool, error) {
	access, err := e.Resolve(ctx, sess, userID)
	if err != nil {
		return false, err
	}
	return access.Active, nil
}

// Resolve computes the user's entitlement. Concurrent calls for the same
// user share one backend round trip.
func (e *Entitlement) Resolve(ctx context.Context, sess *domain.Session, userID string) (Access, error) {
	v, err, _ := e.group.Do(userID, func() (any, error) {
		return e.resolve(ctx, sess, userID)
	})
	if err != nil {
		return Access{}, err
	}
	return v.(Access), nil
}

func (e *Entitlement) resolve(ctx context.Context, sess *domain.Session, userID string) (Access, error) {
	hasAccess, err := e.backend.GetAccess(ctx, sess.Token, userID)
	if err != nil {
		return Access{}, err
	}
	if !hasAccess {
		return Access{Active: false}, nil
	}

	profile, err := e.backend.GetProfile(ctx, sess.Token, userID)
	if err != nil {
		return Access{}, err
	}

	order := profile.MostRecentOrder()
	if order == nil || order.Status != domain.OrderStatusPaid {
		return Access{Active: false}, nil
	}

	months := order.DurationMonths
	if months == 0 {
		months, _ = e.pricing.InferDurationMonths(order.PackageName, order.GrossAmount)
	}
	if months == 0 {
		// duration unknown; trust the backend flag as-is
		log.Printf("[Entitlement] Cannot infer duration for order %s, trusting backend flag", order.OrderID)
		return Access{Active: true}, nil
	}

	expiresAt := order.CreatedAt.AddDate(0, months, 0)
	return Access{Active: e.now().Before(expiresAt), ExpiresAt: &expiresAt}, nil
}
