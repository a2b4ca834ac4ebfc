package service

import (
	"fmt"

	"github.com/nuansasolution/portal/internal/domain"
)

// durationTolerance is the rounding slack allowed when reverse-matching a
// gross amount against the price table.
const durationTolerance = 1

// Pricing turns a (package, duration) selection into a priced quote.
// Pure integer arithmetic, no side effects.
type Pricing struct {
	byID   map[string]domain.Package
	byName map[string]domain.Package
}

// NewPricing builds the pricing engine over the fixed catalog.
func NewPricing() *Pricing {
	p := &Pricing{
		byID:   make(map[string]domain.Package),
		byName: make(map[string]domain.Package),
	}
	for _, pkg := range domain.Catalog() {
		p.byID[pkg.ID] = pkg
		p.byName[pkg.Name] = pkg
	}
	return p
}

// Packages returns the catalog.
func (p *Pricing) Packages() []domain.Package {
	return domain.Catalog()
}

// PackageByID looks up a catalog entry.
func (p *Pricing) PackageByID(id string) (domain.Package, bool) {
	pkg, ok := p.byID[id]
	return pkg, ok
}

// Quote prices a package for the given duration. Unknown durations fail with
// domain.ErrInvalidDuration. Same inputs always produce the same Quote.
func (p *Pricing) Quote(pkg domain.Package, durationMonths int) (domain.Quote, error) {
	tier, ok := domain.TierForMonths(durationMonths)
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: %d months", domain.ErrInvalidDuration, durationMonths)
	}

	total := pkg.MonthlyPrice * int64(durationMonths)
	discount := roundBasisPoints(total, tier.DiscountBP)

	return domain.Quote{
		PackageID:           pkg.ID,
		PackageName:         pkg.Name,
		MonthlyPrice:        pkg.MonthlyPrice,
		DurationMonths:      durationMonths,
		DurationLabel:       domain.DurationLabel(durationMonths),
		TotalBeforeDiscount: total,
		DiscountAmount:      discount,
		FinalPrice:          total - discount,
	}, nil
}

// QuoteByID prices a catalog entry addressed by package ID.
func (p *Pricing) QuoteByID(packageID string, durationMonths int) (domain.Quote, error) {
	pkg, ok := p.byID[packageID]
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: %s", domain.ErrNotFound, packageID)
	}
	return p.Quote(pkg, durationMonths)
}

// InferDurationMonths reverse-matches a gross amount against the price table
// for the named package, within one currency unit of rounding tolerance.
// Two tiers never collide for the current catalog; a collision would make the
// shortest matching duration win.
func (p *Pricing) InferDurationMonths(packageName string, grossAmount int64) (int, bool) {
	pkg, ok := p.byName[packageName]
	if !ok {
		return 0, false
	}
	for _, tier := range domain.DurationTiers() {
		total := pkg.MonthlyPrice * int64(tier.Months)
		final := total - roundBasisPoints(total, tier.DiscountBP)
		if abs64(final-grossAmount) <= durationTolerance {
			return tier.Months, true
		}
	}
	return 0, false
}

// roundBasisPoints computes amount*bp/10000 rounded half up.
func roundBasisPoints(amount, bp int64) int64 {
	return (amount*bp + 5000) / 10000
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
