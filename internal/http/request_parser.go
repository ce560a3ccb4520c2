// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating report query
// parameters and export job bodies.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/report"
	"ledger/internal/services"
)

// queryDateLayout is the form of start and end parameters.
const queryDateLayout = time.DateOnly

// maxBodyBytes bounds an export job body.
const maxBodyBytes = 16 << 10

// ParseDate reads a YYYY-MM-DD value in loc. An empty value is the zero
// time.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(queryDateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q, want YYYY-MM-DD", core.ErrInvalidRange, s)
	}
	return t, nil
}

// ParsePeriod normalises a period kind. Unknown kinds are rejected later,
// when the period is resolved.
func ParsePeriod(s string) core.PeriodKind {
	return core.PeriodKind(strings.ToLower(strings.TrimSpace(s)))
}

// ParseExpand collects node keys from repeated or comma separated expand
// parameters.
func ParseExpand(query url.Values) []string {
	var keys []string
	for _, v := range query["expand"] {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// ParseAgingParams reads search and page. A missing or malformed page is
// the first page.
func ParseAgingParams(query url.Values) services.AgingRequest {
	req := services.AgingRequest{
		Search: sanitizeInput(query.Get("search")),
		Page:   1,
	}
	if v := strings.TrimSpace(query.Get("page")); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			req.Page = p
		}
	}
	return req
}

// ParseBASParams reads variant, period, start and end.
func ParseBASParams(query url.Values, loc *time.Location) (services.BASRequest, error) {
	variant, err := report.ParseVariant(query.Get("variant"))
	if err != nil {
		return services.BASRequest{}, err
	}
	req := services.BASRequest{Variant: variant, Period: ParsePeriod(query.Get("period"))}
	if req.Start, err = ParseDate(query.Get("start"), loc); err != nil {
		return services.BASRequest{}, err
	}
	if req.End, err = ParseDate(query.Get("end"), loc); err != nil {
		return services.BASRequest{}, err
	}
	return req, nil
}

// ParseExportParams builds a whole-report request for kind from the query
// of a download or print view.
func ParseExportParams(kind services.ReportKind, query url.Values, loc *time.Location) (services.ExportRequest, error) {
	req := services.ExportRequest{
		Report: kind,
		Search: sanitizeInput(query.Get("search")),
		Period: ParsePeriod(query.Get("period")),
	}
	var err error
	if req.Start, err = ParseDate(query.Get("start"), loc); err != nil {
		return services.ExportRequest{}, err
	}
	if req.End, err = ParseDate(query.Get("end"), loc); err != nil {
		return services.ExportRequest{}, err
	}
	return req, nil
}

// ParseReportPath accepts "aging", "aging.csv" or the fixed filename
// "aging_report.csv".
func ParseReportPath(name string) (services.ReportKind, error) {
	if kind, err := services.ParseReportKind(name); err == nil {
		return kind, nil
	}
	return services.ParseReportKind(strings.TrimSuffix(strings.ToLower(name), ".csv"))
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// ParseExportJob reads report, target, search, period, start and end. An
// empty target selects defaultTarget.
func ParseExportJob(p *RequestBodyParser, defaultTarget string, loc *time.Location) (services.ExportJob, error) {
	if err := p.Parse(); err != nil {
		return services.ExportJob{}, fmt.Errorf("%w: malformed body", services.ErrInvalidJob)
	}
	kind, err := ParseReportPath(p.Get("report"))
	if err != nil {
		return services.ExportJob{}, err
	}
	job := services.ExportJob{
		Target: p.Get("target"),
		Request: services.ExportRequest{
			Report: kind,
			Search: p.Get("search"),
			Period: ParsePeriod(p.Get("period")),
		},
	}
	if job.Target == "" {
		job.Target = defaultTarget
	}
	if job.Request.Start, err = ParseDate(p.Get("start"), loc); err != nil {
		return services.ExportJob{}, err
	}
	if job.Request.End, err = ParseDate(p.Get("end"), loc); err != nil {
		return services.ExportJob{}, err
	}
	return job, nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters and trims whitespace
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}
