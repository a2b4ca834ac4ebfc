package domain

// InvoiceLine is a single billed item on an invoice.
type InvoiceLine struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Amount      string `json:"amount"` // formatted, e.g. "Rp 120.000"
}

// InvoiceDocument is a derived, stateless view over one Order and one User.
// It is rendered on demand and never persisted by this layer.
type InvoiceDocument struct {
	Issuer        string        `json:"issuer"`
	Number        string        `json:"number"`     // order ID
	IssueDate     string        `json:"issue_date"` // localized, from Order.CreatedAt
	StatusLabel   string        `json:"status_label"`
	BilledToEmail string        `json:"billed_to_email"`
	BilledToPhone string        `json:"billed_to_phone"`
	Lines         []InvoiceLine `json:"lines"`
	Total         string        `json:"total"`
	OrderID       string        `json:"order_id"`
	PaymentMethod string        `json:"payment_method"`
}
