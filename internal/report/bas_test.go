package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func basFixture() ([]core.Invoice, map[int64]core.Contractor) {
	contractors := map[int64]core.Contractor{
		1: {Code: 1, CompanyName: "Acme, Builders", ABN: "51 824 753 556", GSTRegistered: true},
		2: {Code: 2, CompanyName: "Sole Trader", ABN: "12 345 678 901"},
	}
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 10, 30, 0, 0, time.UTC) }
	invoices := []core.Invoice{
		{Code: 1, ContractorID: 1, Cost: 100, CreateAt: day(time.January, 1)},
		{Code: 5, ContractorID: 9, Cost: 75, CreateAt: day(time.February, 1)},
		{Code: 2, ContractorID: 2, Cost: 250.456, CreateAt: day(time.February, 14)},
		{Code: 3, ContractorID: 1, Cost: 1100, CreateAt: day(time.March, 31)},
		{Code: 4, ContractorID: 1, Cost: 50, CreateAt: day(time.April, 1)},
	}
	return invoices, contractors
}

func q1(t *testing.T) core.DateRange {
	t.Helper()
	r, err := core.NewDateRange(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return r
}

func TestBuildBAS(t *testing.T) {
	invoices, contractors := basFixture()
	rows := BuildBAS(invoices, contractors, q1(t))

	require.Len(t, rows, 4, "April invoice excluded, both range ends included")
	assert.Equal(t, int64(1), rows[0].Code)
	assert.Equal(t, int64(3), rows[3].Code)

	assert.InDelta(t, 100.0/11, rows[0].GST, 1e-12)
	assert.Equal(t, 250.46, rows[2].Gross)
	assert.Zero(t, rows[2].GST, "unregistered supplier")
	assert.Zero(t, rows[1].GST, "unknown contractor treated as unregistered")
	assert.InDelta(t, 100, rows[3].GST, 1e-9)

	totals := Totals(rows)
	assert.InDelta(t, 100+75+250.46+1100, totals.Gross, 1e-9)
	assert.InDelta(t, 1200.0/11, totals.GST, 1e-9)
}

func TestBuildBAS_KeepsSourceOrder(t *testing.T) {
	at := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	invoices := []core.Invoice{
		{Code: 9, Cost: 10, CreateAt: at.AddDate(0, 0, 5)},
		{Code: 8, Cost: 10, CreateAt: at},
	}
	rows := BuildBAS(invoices, nil, q1(t))

	require.Len(t, rows, 2)
	assert.Equal(t, int64(9), rows[0].Code)
	assert.Equal(t, int64(8), rows[1].Code)
}

func TestBASTable_Variants(t *testing.T) {
	invoices, contractors := basFixture()
	rows := BuildBAS(invoices, contractors, q1(t))

	gst, err := BASTable(rows, VariantGST)
	require.NoError(t, err)
	assert.Equal(t, FileGST, gst.Name)
	assert.Equal(t, []string{"Invoice", "Date", "Supplier", "Gross Amount", "GST"}, gst.Columns)
	assert.Equal(t, []string{"1", "01/01/2024", "Acme, Builders", "100.00", "9.09"}, gst.Rows[0])

	tpar, err := BASTable(rows, VariantTPAR)
	require.NoError(t, err)
	assert.Equal(t, FileTPAR, tpar.Name)
	assert.Equal(t, []string{"12 345 678 901", "Sole Trader", "14/02/2024", "250.46", "0.00"}, tpar.Rows[2])

	_, err = BASTable(rows, Variant("bogus"))
	assert.True(t, errors.Is(err, core.ErrUnknownVariant))
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    Variant
		wantErr bool
	}{
		{"", VariantGST, false},
		{"gst", VariantGST, false},
		{"TPAR", VariantTPAR, false},
		{"bas", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVariant(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrUnknownVariant)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got.Filename())
		})
	}
}
