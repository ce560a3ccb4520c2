package sheets

import (
	"context"

	"ledger/internal/report"
)

// Ports for outbound adapters.
type (
	// ReportWriter stores a rendered report somewhere outside the service
	// and returns where it went.
	ReportWriter interface {
		// Name is the target name export jobs refer to.
		Name() string
		WriteReport(ctx context.Context, t report.Table) (location string, err error)
	}
)
