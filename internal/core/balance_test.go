package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvoiceBalance(t *testing.T) {
	tests := []struct {
		name     string
		inv      Invoice
		wantPaid float64
		wantDue  float64
		overpaid bool
	}{
		{
			name:    "no payments",
			inv:     Invoice{Cost: 1100},
			wantDue: 1100,
		},
		{
			name:     "partial payments",
			inv:      Invoice{Cost: 1000, Payments: []Payment{{Amount: 250}, {Amount: 150}}},
			wantPaid: 400,
			wantDue:  600,
		},
		{
			name:     "paid in full",
			inv:      Invoice{Cost: 500, Payments: []Payment{{Amount: 500}}},
			wantPaid: 500,
			wantDue:  0,
		},
		{
			name:     "overpaid is not clamped",
			inv:      Invoice{Cost: 100, Payments: []Payment{{Amount: 80}, {Amount: 50}}},
			wantPaid: 130,
			wantDue:  -30,
			overpaid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := InvoiceBalance(tt.inv)
			assert.InDelta(t, tt.wantPaid, b.TotalPaid, 1e-9)
			assert.InDelta(t, tt.wantDue, b.AmountDue, 1e-9)
			assert.Equal(t, tt.overpaid, b.Overpaid())
			assert.InDelta(t, tt.inv.Cost, b.TotalPaid+b.AmountDue, 1e-9)
		})
	}
}

func TestBalance_Settled(t *testing.T) {
	assert.True(t, Balance{AmountDue: 0}.Settled())
	assert.True(t, Balance{AmountDue: -1}.Settled())
	assert.False(t, Balance{AmountDue: 0.01}.Settled())
}
