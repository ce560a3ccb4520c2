package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"ledger/internal/core"
)

// Fixed export filenames. Downstream import templates match on these.
const (
	FileAging  = "aging_report.csv"
	FileLedger = "ledger_report.csv"
	FileGST    = "gst_report_ato.csv"
	FileTPAR   = "tpar_report_myob.csv"
)

// exportDateLayout is the day-first form accepted by ATO and MYOB imports.
const exportDateLayout = "02/01/2006"

// Table is a header plus rows of already formatted cells.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Stem returns the filename without its extension, used as a sheet tab name.
func (t Table) Stem() string {
	return strings.TrimSuffix(t.Name, ".csv")
}

// WriteCSV writes the header row then one line per row. Values are not
// quoted: commas are removed from every cell and line breaks become spaces,
// so the output is lossy for values that contained them. A table with no
// rows produces a header-only file.
func WriteCSV(w io.Writer, t Table) error {
	var b strings.Builder
	writeLine(&b, t.Columns)
	for _, row := range t.Rows {
		writeLine(&b, row)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write %s: %w", t.Name, err)
	}
	return nil
}

func writeLine(b *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(cleanCell(c))
	}
	b.WriteByte('\n')
}

// stripCommas drops every comma so a cell never splits the line.
func stripCommas(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// foldLines keeps a cell on one line.
func foldLines(s string) string {
	return lineBreaks.Replace(s)
}

func cleanCell(s string) string {
	return foldLines(stripCommas(s))
}

var depthNames = []string{"Project", "Category", "Job", "Invoice"}

// LedgerTable renders the flattened tree with one line per node.
func LedgerTable(t core.Tree) Table {
	rows := t.Rows()
	out := Table{
		Name:    FileLedger,
		Columns: []string{"Level", "Key", "Name", "Total"},
		Rows:    make([][]string, 0, len(rows)+1),
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, []string{depthNames[r.Depth], r.Key, r.Label, core.Fixed2(r.Total)})
	}
	if len(rows) > 0 {
		out.Rows = append(out.Rows, []string{"Total", "", "", core.Fixed2(t.Total)})
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(exportDateLayout)
}
