package postgrest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/source"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/rest/v1/", "secret", srv.Client())
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"bad scheme", "ftp://example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.url, "", nil)
			assert.Error(t, err)
		})
	}
}

func TestClient_ListInvoices(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/jobby", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "*,pay(*)", q.Get("select"))
		assert.Equal(t, "create_at.asc,code.asc", q.Get("order"))
		assert.Equal(t, []string{"gte.2024-01-01T00:00:00Z", "lte.2024-03-31T23:59:59.999999999Z"}, q["create_at"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"code":7,"job_id":3,"contractor_id":2,"project_id":1,"cost":"1100.00","ref":"INV-7",
			 "due_at":"2024-02-01","create_at":"2024-01-10T08:30:00+00:00",
			 "pay":[{"code":1,"invoice_id":7,"amount":100},{"code":2,"invoice_id":7,"amount":"0.25"}]}
		]`))
	})

	rng, err := core.NewDateRange(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	q := source.QueryForRange(rng)

	invoices, err := c.ListInvoices(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	inv := invoices[0]
	assert.Equal(t, int64(7), inv.Code)
	assert.Equal(t, "INV-7", inv.Ref)
	assert.InDelta(t, 1100, inv.Cost, 1e-9)
	require.Len(t, inv.Payments, 2)
	assert.InDelta(t, 999.75, core.InvoiceBalance(inv).AmountDue, 1e-9)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), inv.DueAt)
}

func TestClient_ListContractors(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/contractor", r.URL.Path)
		assert.Equal(t, "code.asc", r.URL.Query().Get("order"))
		_, _ = w.Write([]byte(`[{"code":2,"company_name":"Acme","abn":"51 824 753 556","gst_registered":true}]`))
	})

	got, err := c.ListContractors(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].GSTRegistered)
	assert.Equal(t, "51 824 753 556", got[0].ABN)
}

func TestClient_StatusError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"JWT expired"}`, http.StatusUnauthorized)
	})

	_, err := c.ListProjects(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se), "error = %v", err)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Equal(t, "project", se.Table)
	assert.Contains(t, se.Body, "JWT expired")
}

func TestClient_MalformedBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	})

	_, err := c.ListJobs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode job")
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListCategories(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrderParam(t *testing.T) {
	assert.Equal(t, "code.asc", orderParam(source.OrderCode))
	assert.Equal(t, "due_at.asc.nullsfirst,code.asc", orderParam(source.OrderDueAt))
	assert.Equal(t, "create_at.asc,code.asc", orderParam(source.OrderCreateAt))
}
