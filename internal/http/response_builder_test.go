package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledger/internal/core"
	"ledger/internal/services"
)

func TestResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		Body([]byte("test")).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("X-Custom header = %q", w.Header().Get("X-Custom"))
	}
	if w.Header().Get("Content-Length") != "4" {
		t.Errorf("Content-Length = %q, want 4", w.Header().Get("Content-Length"))
	}
}

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(map[string]int{"rows": 3}).Write(w)

	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Body.String(); got != "{\"rows\":3}\n" {
		t.Errorf("Body = %q", got)
	}

	w = httptest.NewRecorder()
	NewResponse().JSON(map[string]any{"bad": make(chan int)}).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("unencodable value status = %d, want 500", w.Code)
	}
}

func TestResponseBuilder_Attachment(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Attachment("gst_report_ato.csv").Body([]byte("Invoice\n")).Write(w)

	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="gst_report_ato.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, "<script>alert('xss')</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("HTML should be escaped in error message")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Errorf("Body should contain escaped HTML: %s", body)
	}
	if w.Header().Get("Content-Type") != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
}

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	JSONError(http.StatusBadGateway, "unavailable").Write(w)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Status code = %d", w.Code)
	}
	if got := w.Body.String(); got != "{\"error\":\"unavailable\"}\n" {
		t.Errorf("Body = %q", got)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"fetch", fmt.Errorf("%w: invoices: timeout", services.ErrFetch), http.StatusBadGateway},
		{"range", fmt.Errorf("%w: end before start", core.ErrInvalidRange), http.StatusBadRequest},
		{"period", core.ErrInvalidPeriod, http.StatusBadRequest},
		{"variant", core.ErrUnknownVariant, http.StatusBadRequest},
		{"report", services.ErrUnknownReport, http.StatusBadRequest},
		{"job", services.ErrInvalidJob, http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusForError(tt.err); got != tt.want {
				t.Errorf("StatusForError() = %d, want %d", got, tt.want)
			}
		})
	}

	if msg := errorMessage(errors.New("pq: password authentication failed")); msg != "Internal error" {
		t.Errorf("internal detail leaked: %q", msg)
	}
}
