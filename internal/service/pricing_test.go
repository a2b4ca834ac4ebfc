package service

import (
	"errors"
	"testing"

	"github.com/nuansasolution/portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotePremiumThreeMonths(t *testing.T) {
	p := NewPricing()

	quote, err := p.QuoteByID("paket-premium", 3)
	require.NoError(t, err)

	assert.Equal(t, "Paket Premium", quote.PackageName)
	assert.Equal(t, int64(150000), quote.TotalBeforeDiscount)
	assert.Equal(t, int64(30000), quote.DiscountAmount)
	assert.Equal(t, int64(120000), quote.FinalPrice)
	assert.Equal(t, "3 Bulan", quote.DurationLabel)
}

func TestQuoteAllTiers(t *testing.T) {
	p := NewPricing()

	tests := []struct {
		packageID string
		months    int
		total     int64
		discount  int64
		final     int64
	}{
		{"paket-dasar", 1, 15000, 0, 15000},
		{"paket-dasar", 3, 45000, 9000, 36000},
		{"paket-dasar", 6, 90000, 27000, 63000},
		{"paket-dasar", 12, 180000, 72000, 108000},
		{"paket-premium", 1, 50000, 0, 50000},
		{"paket-premium", 6, 300000, 90000, 210000},
		{"paket-premium", 12, 600000, 240000, 360000},
		{"paket-pro", 3, 300000, 60000, 240000},
		{"paket-pro", 12, 1200000, 480000, 720000},
		{"paket-auto-pilot", 6, 3000000, 900000, 2100000},
	}

	for _, tt := range tests {
		quote, err := p.QuoteByID(tt.packageID, tt.months)
		require.NoError(t, err, "%s/%d", tt.packageID, tt.months)
		assert.Equal(t, tt.total, quote.TotalBeforeDiscount, "%s/%d total", tt.packageID, tt.months)
		assert.Equal(t, tt.discount, quote.DiscountAmount, "%s/%d discount", tt.packageID, tt.months)
		assert.Equal(t, tt.final, quote.FinalPrice, "%s/%d final", tt.packageID, tt.months)
		// invariant: the discount never exceeds the undiscounted total
		assert.LessOrEqual(t, quote.DiscountAmount, quote.TotalBeforeDiscount)
		assert.Equal(t, quote.TotalBeforeDiscount-quote.DiscountAmount, quote.FinalPrice)
	}
}

func TestQuoteDeterministic(t *testing.T) {
	p := NewPricing()

	first, err := p.QuoteByID("paket-pro", 6)
	require.NoError(t, err)
	second, err := p.QuoteByID("paket-pro", 6)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestQuoteInvalidDuration(t *testing.T) {
	p := NewPricing()

	for _, months := range []int{0, 2, 4, 5, 7, 24, -1} {
		_, err := p.QuoteByID("paket-dasar", months)
		assert.ErrorIs(t, err, domain.ErrInvalidDuration, "months=%d", months)
	}
}

func TestQuoteUnknownPackage(t *testing.T) {
	p := NewPricing()

	_, err := p.QuoteByID("paket-sultan", 3)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRoundBasisPointsHalfUp(t *testing.T) {
	// 33 * 15% = 4.95 rounds to 5; 31 * 15% = 4.65 rounds to 5; 30 * 15% = 4.5 rounds up to 5
	assert.Equal(t, int64(5), roundBasisPoints(33, 1500))
	assert.Equal(t, int64(5), roundBasisPoints(31, 1500))
	assert.Equal(t, int64(5), roundBasisPoints(30, 1500))
	assert.Equal(t, int64(4), roundBasisPoints(29, 1500))
	assert.Equal(t, int64(0), roundBasisPoints(100, 0))
}

func TestInferDurationMonths(t *testing.T) {
	p := NewPricing()

	tests := []struct {
		name   string
		gross  int64
		months int
		ok     bool
	}{
		{"Paket Premium", 50000, 1, true},
		{"Paket Premium", 120000, 3, true},
		{"Paket Premium", 210000, 6, true},
		{"Paket Premium", 360000, 12, true},
		{"Paket Premium", 120001, 3, true}, // within rounding tolerance
		{"Paket Premium", 119999, 3, true},
		{"Paket Premium", 123456, 0, false},
		{"Paket Sultan", 120000, 0, false}, // unknown package
		{"Paket Dasar", 36000, 3, true},
		{"Paket Auto Pilot", 2100000, 6, true},
	}

	for _, tt := range tests {
		months, ok := p.InferDurationMonths(tt.name, tt.gross)
		assert.Equal(t, tt.ok, ok, "%s/%d", tt.name, tt.gross)
		assert.Equal(t, tt.months, months, "%s/%d", tt.name, tt.gross)
	}
}
