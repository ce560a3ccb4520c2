// Package postgrest reads the backend tables through the hosted REST
// surface that fronts Postgres.
package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/source"
)

var _ source.Source = (*Client)(nil)

// Backend table names.
const (
	tableProject    = "project"
	tableCategory   = "categ"
	tableJob        = "job"
	tableInvoice    = "jobby"
	tableContractor = "contractor"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Table  string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("postgrest %s: status %d: %s", e.Table, e.Status, e.Body)
}

type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
}

// New builds a client for baseURL, which includes any path prefix such as
// "/rest/v1". The key is sent both as apikey and as a bearer token.
func New(baseURL, apiKey string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("missing PostgREST base URL")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse PostgREST URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid PostgREST URL scheme %q", u.Scheme)
	}
	if httpClient == nil {
		httpClient = newHTTPClient()
	}
	return &Client{baseURL: u, apiKey: apiKey, http: httpClient}, nil
}

// newHTTPClient pools connections to the single backend host.
func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) ListProjects(ctx context.Context) ([]core.Project, error) {
	var rows []source.ProjectRow
	if err := c.get(ctx, tableProject, url.Values{"select": {"*"}, "order": {"code.asc"}}, &rows); err != nil {
		return nil, err
	}
	out := make([]core.Project, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Core())
	}
	return out, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	var rows []source.CategoryRow
	if err := c.get(ctx, tableCategory, url.Values{"select": {"*"}, "order": {"code.asc"}}, &rows); err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Core())
	}
	return out, nil
}

func (c *Client) ListJobs(ctx context.Context) ([]core.Job, error) {
	var rows []source.JobRow
	if err := c.get(ctx, tableJob, url.Values{"select": {"*"}, "order": {"code.asc"}}, &rows); err != nil {
		return nil, err
	}
	out := make([]core.Job, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Core())
	}
	return out, nil
}

// ListInvoices embeds payments through the pay foreign key and lets the
// backend filter and order.
func (c *Client) ListInvoices(ctx context.Context, q source.InvoiceQuery) ([]core.Invoice, error) {
	params := url.Values{"select": {"*,pay(*)"}}
	params.Set("order", orderParam(q.Order))
	if !q.CreatedFrom.IsZero() {
		params.Add("create_at", "gte."+q.CreatedFrom.UTC().Format(time.RFC3339Nano))
	}
	if !q.CreatedTo.IsZero() {
		params.Add("create_at", "lte."+q.CreatedTo.UTC().Format(time.RFC3339Nano))
	}

	var rows []source.InvoiceRow
	if err := c.get(ctx, tableInvoice, params, &rows); err != nil {
		return nil, err
	}
	out := make([]core.Invoice, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Core())
	}
	return out, nil
}

func (c *Client) ListContractors(ctx context.Context) ([]core.Contractor, error) {
	var rows []source.ContractorRow
	if err := c.get(ctx, tableContractor, url.Values{"select": {"*"}, "order": {"code.asc"}}, &rows); err != nil {
		return nil, err
	}
	out := make([]core.Contractor, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Core())
	}
	return out, nil
}

func orderParam(o source.Order) string {
	switch o {
	case source.OrderDueAt:
		return "due_at.asc.nullsfirst,code.asc"
	case source.OrderCreateAt:
		return "create_at.asc,code.asc"
	default:
		return "code.asc"
	}
}

func (c *Client) get(ctx context.Context, table string, params url.Values, dst any) error {
	u := *c.baseURL
	u.Path = u.Path + "/" + table
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", table, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Table: table, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}

	slog.DebugContext(ctx, "Fetched backend table",
		"table", table,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
