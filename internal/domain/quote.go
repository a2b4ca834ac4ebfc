package domain

import (
	"context"
	"time"
)

// Quote is a computed, immutable price for a package + duration pairing.
// It is consumed exactly once by order creation, or stashed transiently
// across a login redirect.
type Quote struct {
	PackageID           string `json:"package_id"`
	PackageName         string `json:"package_name"`
	MonthlyPrice        int64  `json:"monthly_price"`
	DurationMonths      int    `json:"duration_months"`
	DurationLabel       string `json:"duration_label"`
	TotalBeforeDiscount int64  `json:"total_before_discount"`
	DiscountAmount      int64  `json:"discount_amount"`
	FinalPrice          int64  `json:"final_price"`
}

// QuoteStore holds a quote across a login redirect. A stored quote is
// single-use: Take removes it, and a second Take fails with ErrQuoteConsumed.
type QuoteStore interface {
	Put(ctx context.Context, key string, quote Quote, ttl time.Duration) error
	Take(ctx context.Context, key string) (Quote, error)
}
