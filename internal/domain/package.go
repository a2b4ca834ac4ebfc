package domain

import "fmt"

// Package represents a purchasable subscription offering. The catalog is
// fixed at process start and never mutated.
type Package struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MonthlyPrice int64    `json:"monthly_price"` // IDR, no minor unit
	Features     []string `json:"features"`
	Badge        string   `json:"badge,omitempty"`
}

// DurationTier is one of the fixed subscription durations. Discounts are
// expressed in basis points so pricing stays in integer arithmetic.
// The discount rate is non-decreasing in months.
type DurationTier struct {
	Months     int   `json:"months"`
	DiscountBP int64 `json:"discount_bp"` // basis points: 2000 = 20%
}

// DurationTiers returns the fixed duration table.
func DurationTiers() []DurationTier {
	return []DurationTier{
		{Months: 1, DiscountBP: 0},
		{Months: 3, DiscountBP: 2000},
		{Months: 6, DiscountBP: 3000},
		{Months: 12, DiscountBP: 4000},
	}
}

// TierForMonths looks up the duration tier for the given month count.
func TierForMonths(months int) (DurationTier, bool) {
	for _, t := range DurationTiers() {
		if t.Months == months {
			return t, true
		}
	}
	return DurationTier{}, false
}

// DurationLabel renders a duration the way the portal displays it.
func DurationLabel(months int) string {
	if months == 12 {
		return "1 Tahun"
	}
	return fmt.Sprintf("%d Bulan", months)
}

// Catalog returns the portal's package catalog.
func Catalog() []Package {
	return []Package{
		{
			ID:           "paket-dasar",
			Name:         "Paket Dasar",
			MonthlyPrice: 15000,
			Features: []string{
				"Akses Mandiri 3 Template Dokumen (Kuasa, Pernyataan, Permohonan)",
				"Konsultasi WhatsApp Official Nuansa Solution (Jam Kerja)",
				"Konsultasi Email Official Nuansa Solution (Jam Kerja)",
			},
		},
		{
			ID:           "paket-premium",
			Name:         "Paket Premium",
			MonthlyPrice: 50000,
			Badge:        "Rekomendasi",
			Features: []string{
				"Akses Mandiri Semua Template Dokumen (Generator Surat)",
				"Konsultasi WhatsApp Official Nuansa Solution (Jam Kerja)",
				"Konsultasi Email Official Nuansa Solution (Jam Kerja)",
			},
		},
		{
			ID:           "paket-pro",
			Name:         "Paket Pro",
			MonthlyPrice: 100000,
			Features: []string{
				"Akses Mandiri Semua Template Dokumen (Surat, Invoice, Akuntansi)",
				"Konsultasi WhatsApp Official Nuansa Solution (Jam Kerja)",
				"Konsultasi Email Official Nuansa Solution (Jam Kerja)",
			},
		},
		{
			ID:           "paket-auto-pilot",
			Name:         "Paket Auto Pilot",
			MonthlyPrice: 500000,
			Badge:        "Full Service",
			Features: []string{
				"Akses Mandiri Semua Template Dokumen (Surat, Invoice, Akuntansi)",
				"Akses Auto Pilot Unlimited oleh Tim Profesional Nuansa Solution",
				"Full Support CS & Grup Private (Jam Kerja)",
				"Konsultasi WhatsApp & Email Official",
			},
		},
	}
}
