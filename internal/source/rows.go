package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

// Row types mirror the backend tables as they appear on the wire. They are
// decoded once at the boundary and coerced into core types.
type (
	ProjectRow struct {
		Code        int64  `json:"code"`
		Name        string `json:"name"`
		Manager     string `json:"manager"`
		Description string `json:"description"`
		Status      string `json:"status"`
	}

	CategoryRow struct {
		Code int64  `json:"code"`
		Name string `json:"name"`
	}

	JobRow struct {
		Code        int64  `json:"code"`
		CategoryID  int64  `json:"category_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	InvoiceRow struct {
		Code         int64        `json:"code"`
		JobID        int64        `json:"job_id"`
		ContractorID int64        `json:"contractor_id"`
		ProjectID    int64        `json:"project_id"`
		Cost         Amount       `json:"cost"`
		Ref          string       `json:"ref"`
		DueAt        Timestamp    `json:"due_at"`
		CreateAt     Timestamp    `json:"create_at"`
		Payments     []PaymentRow `json:"pay"`
	}

	PaymentRow struct {
		Code      int64     `json:"code"`
		InvoiceID int64     `json:"invoice_id"`
		Amount    Amount    `json:"amount"`
		PayVia    string    `json:"pay_via"`
		CreateAt  Timestamp `json:"create_at"`
	}

	ContractorRow struct {
		Code          int64  `json:"code"`
		CompanyName   string `json:"company_name"`
		ABN           string `json:"abn"`
		GSTRegistered bool   `json:"gst_registered"`
		BankName      string `json:"bank_name"`
		BSB           string `json:"bsb"`
		AccountNumber string `json:"account_number"`
		AccountName   string `json:"account_name"`
	}
)

func (r ProjectRow) Core() core.Project {
	return core.Project{Code: r.Code, Name: r.Name, Manager: r.Manager, Description: r.Description, Status: r.Status}
}

func (r CategoryRow) Core() core.Category {
	return core.Category{Code: r.Code, Name: r.Name}
}

func (r JobRow) Core() core.Job {
	return core.Job{Code: r.Code, CategoryID: r.CategoryID, Name: r.Name, Description: r.Description}
}

func (r PaymentRow) Core() core.Payment {
	return core.Payment{Code: r.Code, InvoiceID: r.InvoiceID, Amount: float64(r.Amount), PayVia: r.PayVia, CreateAt: r.CreateAt.Time}
}

func (r InvoiceRow) Core() core.Invoice {
	inv := core.Invoice{
		Code:         r.Code,
		JobID:        r.JobID,
		ContractorID: r.ContractorID,
		ProjectID:    r.ProjectID,
		Cost:         float64(r.Cost),
		Ref:          r.Ref,
		DueAt:        r.DueAt.Time,
		CreateAt:     r.CreateAt.Time,
	}
	if len(r.Payments) > 0 {
		inv.Payments = make([]core.Payment, 0, len(r.Payments))
		for _, p := range r.Payments {
			inv.Payments = append(inv.Payments, p.Core())
		}
	}
	return inv
}

func (r ContractorRow) Core() core.Contractor {
	return core.Contractor{
		Code:          r.Code,
		CompanyName:   r.CompanyName,
		ABN:           r.ABN,
		GSTRegistered: r.GSTRegistered,
		BankName:      r.BankName,
		BSB:           r.BSB,
		AccountNumber: r.AccountNumber,
		AccountName:   r.AccountName,
	}
}

// Amount decodes a numeric column sent either as a JSON number or as a
// string, which is how Postgres numeric often arrives. null decodes to 0.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	s := string(bytes.Trim(b, `"`))
	if s == "" {
		*a = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse amount %s: %w", b, err)
	}
	*a = Amount(v)
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// Timestamp decodes the timestamp and date forms the backend emits. null
// and empty strings decode to the zero time. Values without a zone are UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// ParseTimestamp parses any of the accepted layouts.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
