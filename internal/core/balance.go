package core

// Balance is the derived payment position of a single invoice.
type Balance struct {
	TotalPaid float64
	AmountDue float64
}

// InvoiceBalance sums the invoice payments and subtracts them from cost.
// AmountDue is not clamped; a negative value means the invoice was overpaid.
func InvoiceBalance(inv Invoice) Balance {
	var paid float64
	for _, p := range inv.Payments {
		paid += p.Amount
	}
	return Balance{
		TotalPaid: paid,
		AmountDue: inv.Cost - paid,
	}
}

// Overpaid reports whether payments exceed the invoice cost.
func (b Balance) Overpaid() bool {
	return b.AmountDue < 0
}

// Settled reports whether nothing remains to be paid.
func (b Balance) Settled() bool {
	return b.AmountDue <= 0
}
