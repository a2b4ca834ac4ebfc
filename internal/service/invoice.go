package service

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/nuansasolution/portal/internal/domain"
)

const invoiceIssuer = "Nuansa Solution"

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

var invoiceStatusLabels = map[string]string{
	domain.OrderStatusPaid:      "Lunas",
	domain.OrderStatusPending:   "Menunggu Pembayaran",
	domain.OrderStatusFailed:    "Gagal",
	domain.OrderStatusCancelled: "Dibatalkan",
	domain.OrderStatusExpired:   "Kadaluarsa",
}

// Invoice builds printable invoice documents from backend order records.
// Rendering is pure: the same order and user always produce the same
// document, and nothing is persisted.
type Invoice struct {
	pricing *Pricing
}

// NewInvoice creates an invoice renderer.
func NewInvoice(pricing *Pricing) *Invoice {
	return &Invoice{pricing: pricing}
}

// Render produces the invoice document for a paid or pending order.
func (i *Invoice) Render(order *domain.Order, user *domain.User) *domain.InvoiceDocument {
	label, ok := invoiceStatusLabels[order.Status]
	if !ok {
		label = order.Status
	}

	description := order.PackageName
	if months, inferred := i.inferMonths(order); inferred {
		description = fmt.Sprintf("%s (%s)", order.PackageName, domain.DurationLabel(months))
	}

	doc := &domain.InvoiceDocument{
		Issuer:        invoiceIssuer,
		Number:        fmt.Sprintf("INV/%s", order.OrderID),
		IssueDate:     FormatIndonesianDate(order.CreatedAt),
		StatusLabel:   label,
		OrderID:       order.OrderID,
		PaymentMethod: order.PaymentMethod,
		Lines: []domain.InvoiceLine{{
			Description: description,
			Quantity:    1,
			Amount:      FormatRupiah(order.GrossAmount),
		}},
		Total: FormatRupiah(order.GrossAmount),
	}
	if user != nil {
		doc.BilledToEmail = user.Email
		doc.BilledToPhone = user.Phone
	}
	return doc
}

// RenderHTML renders the printable HTML for an invoice document.
func (i *Invoice) RenderHTML(doc *domain.InvoiceDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", doc.Number, err)
	}
	return buf.Bytes(), nil
}

func (i *Invoice) inferMonths(order *domain.Order) (int, bool) {
	if order.DurationMonths > 0 {
		return order.DurationMonths, true
	}
	return i.pricing.InferDurationMonths(order.PackageName, order.GrossAmount)
}

// FormatRupiah renders an amount as "Rp 150.000" with dots as thousands
// separators, the convention Indonesian customers expect.
func FormatRupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var buf bytes.Buffer
	buf.WriteString(sign)
	buf.WriteString("Rp ")
	lead := len(digits) % 3
	if lead > 0 {
		buf.WriteString(digits[:lead])
		if len(digits) > lead {
			buf.WriteByte('.')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		buf.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			buf.WriteByte('.')
		}
	}
	return buf.String()
}

// FormatIndonesianDate renders a date as "17 Agustus 2026".
func FormatIndonesianDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), indonesianMonths[t.Month()-1], t.Year())
}

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html lang="id">
<head>
<meta charset="utf-8">
<title>{{.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 40px; color: #1a1a2e; }
h1 { font-size: 20px; margin-bottom: 0; }
.meta { color: #555; font-size: 13px; margin-bottom: 24px; }
.status { display: inline-block; padding: 2px 10px; border-radius: 10px; background: #eef; font-size: 12px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { text-align: left; padding: 8px; border-bottom: 1px solid #ddd; font-size: 14px; }
td.amount, th.amount { text-align: right; }
tfoot td { font-weight: bold; border-bottom: none; }
</style>
</head>
<body>
<h1>{{.Issuer}}</h1>
<div class="meta">
<div>{{.Number}}</div>
<div>Tanggal: {{.IssueDate}}</div>
<div>Status: <span class="status">{{.StatusLabel}}</span></div>
{{if .BilledToEmail}}<div>Ditagihkan kepada: {{.BilledToEmail}}{{if .BilledToPhone}} / {{.BilledToPhone}}{{end}}</div>{{end}}
<div>Metode pembayaran: {{.PaymentMethod}}</div>
</div>
<table>
<thead>
<tr><th>Deskripsi</th><th>Jumlah</th><th class="amount">Harga</th></tr>
</thead>
<tbody>
{{range .Lines}}<tr><td>{{.Description}}</td><td>{{.Quantity}}</td><td class="amount">{{.Amount}}</td></tr>
{{end}}</tbody>
<tfoot>
<tr><td colspan="2">Total</td><td class="amount">{{.Total}}</td></tr>
</tfoot>
</table>
</body>
</html>
`))
