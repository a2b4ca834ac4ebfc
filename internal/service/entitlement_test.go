package service

import (
	"context"
	"testing"
	"time"

	"github.com/nuansasolution/portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entitlementWith(backend *fakeBackend, now time.Time) *Entitlement {
	e := NewEntitlement(backend, NewPricing())
	e.now = func() time.Time { return now }
	return e
}

func paidOrder(packageName string, gross int64, months int, createdAt time.Time) *domain.Order {
	return &domain.Order{
		OrderID:        "ORD-1",
		UserID:         "user-1",
		PackageName:    packageName,
		DurationMonths: months,
		GrossAmount:    gross,
		Status:         domain.OrderStatusPaid,
		CreatedAt:      createdAt,
	}
}

func TestAccessDeniedWhenBackendSaysNo(t *testing.T) {
	backend := &fakeBackend{access: false}
	e := entitlementWith(backend, time.Now())

	access, err := e.Resolve(context.Background(), testSession(), "user-1")
	require.NoError(t, err)
	assert.False(t, access.Active)
}

func TestAccessActiveWithinSubscriptionWindow(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	createdAt := now.AddDate(0, 0, -10)
	backend := &fakeBackend{
		access:  true,
		profile: &domain.Profile{ActiveOrder: paidOrder("Paket Premium", 120000, 3, createdAt)},
	}
	e := entitlementWith(backend, now)

	access, err := e.Resolve(context.Background(), testSession(), "user-1")
	require.NoError(t, err)
	assert.True(t, access.Active)
	require.NotNil(t, access.ExpiresAt)
	assert.Equal(t, createdAt.AddDate(0, 3, 0), *access.ExpiresAt)
}

func TestAccessLapsedOneMonthOrderFortyDaysOld(t *testing.T) {
	// the backend flag still says yes, but the paid month has run out
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	createdAt := now.AddDate(0, 0, -40)
	backend := &fakeBackend{
		access:  true,
		profile: &domain.Profile{ActiveOrder: paidOrder("Paket Premium", 50000, 1, createdAt)},
	}
	e := entitlementWith(backend, now)

	access, err := e.Resolve(context.Background(), testSession(), "user-1")
	require.NoError(t, err)
	assert.False(t, access.Active)
}

func TestAccessInfersDurationFromGrossAmount(t *testing.T) {
	// order record without a duration: infer 3 months from the 120000 gross
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	createdAt := now.AddDate(0, 0, -40)
	backend := &fakeBackend{
		access:  true,
		profile: &domain.Profile{ActiveOrder: paidOrder("Paket Premium", 120000, 0, createdAt)},
	}
	e := entitlementWith(backend, now)

	access, err := e.Resolve(context.Background(), testSession(), "user-1")
	require.NoError(t, err)
	assert.True(t, access.Active, "40 days into a 3-month subscription")
}

func TestAccessTrustsBackendWhenDurationUnknown(t *testing.T) {
	// gross gives no tier match and the record carries no duration
	backend := &fakeBackend{
		access:  true,
		profile: &domain.Profile{ActiveOrder: paidOrder("Paket Premium", 123456, 0, time.Now().AddDate(-1, 0, 0))},
	}
	e := entitlementWith(backend, time.Now())

	access, err := e.Resolve(context.Background(), testSession(), "user-1")
	require.NoError(t, err)
	assert.True(t, access.Active)
	assert.Nil(t, access.ExpiresAt)
}

func TestAccessDeniedWhenMostRecentOrderNotPaid(t *testing.T) {
	older := paidOrder("Paket Premium", 50000, 1, time.Now().AddDate(0, 0, -5))
	newer := &domain.Order{
		OrderID:     "ORD-2",
		PackageName: "Paket Pro",
		GrossAmount: 240000,
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Now().AddDate(0, 0, -1),
	}
	backend := &fakeBackend{
		access:  true,
		profile: &domain.Profile{OrderHistory: []*domain.Order{older, newer}},
	}
	e := entitlementWith(backend, time.Now())

	access, err := e.Resolve(context.Background(), testSession(), "user-1")
	require.NoError(t, err)
	assert.False(t, access.Active)
}

func TestHasAccess(t *testing.T) {
	backend := &fakeBackend{
		access:  true,
		profile: &domain.Profile{ActiveOrder: paidOrder("Paket Dasar", 15000, 1, time.Now())},
	}
	e := entitlementWith(backend, time.Now())

	ok, err := e.HasAccess(context.Background(), testSession(), "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
