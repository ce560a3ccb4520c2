package core

import (
	"errors"
	"time"
)

type (
	Project struct {
		Code        int64
		Name        string
		Manager     string
		Description string
		Status      string
	}

	Category struct {
		Code int64
		Name string
	}

	Job struct {
		Code        int64
		CategoryID  int64
		Name        string
		Description string
	}

	// Invoice is a contractor bill recorded against a project and a job.
	// Payments are embedded by the source when it loads the invoice.
	Invoice struct {
		Code         int64
		JobID        int64
		ContractorID int64
		ProjectID    int64
		Cost         float64
		Ref          string
		DueAt        time.Time // zero when the backend had no due date
		CreateAt     time.Time
		Payments     []Payment
	}

	Payment struct {
		Code      int64
		InvoiceID int64
		Amount    float64
		PayVia    string
		CreateAt  time.Time
	}

	Contractor struct {
		Code          int64
		CompanyName   string
		ABN           string
		GSTRegistered bool
		BankName      string
		BSB           string
		AccountNumber string
		AccountName   string
	}
)

var (
	ErrInvalidPeriod  = errors.New("invalid period")
	ErrInvalidRange   = errors.New("invalid date range")
	ErrUnknownVariant = errors.New("unknown report variant")
)

// Snapshot is the set of backend rows one report render works from.
type Snapshot struct {
	Projects    []Project
	Categories  []Category
	Jobs        []Job
	Invoices    []Invoice
	Contractors []Contractor
}

// ContractorIndex maps contractor code to contractor.
func (s Snapshot) ContractorIndex() map[int64]Contractor {
	out := make(map[int64]Contractor, len(s.Contractors))
	for _, c := range s.Contractors {
		out[c.Code] = c
	}
	return out
}
