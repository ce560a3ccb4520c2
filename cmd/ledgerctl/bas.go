package main

import (
	"strings"

	"github.com/spf13/cobra"

	"ledger/internal/core"
	"ledger/internal/report"
	"ledger/internal/services"
)

var basCmd = &cobra.Command{
	Use:   "bas",
	Short: "Export the GST (ATO) or TPAR (MYOB) BAS report",
	Long: `Export invoices created within a BAS range. The range is either given
with --start and --end, or is the --period containing today
(quarterly, half-yearly, annually or financial-year; quarterly by default).`,
	Example: `  ledgerctl bas
  ledgerctl bas --variant tpar --period financial-year
  ledgerctl bas --start 2024-04-01 --end 2024-06-30 --out gst_report_ato.csv`,
	Args: cobra.NoArgs,
	RunE: runBAS,
}

func init() {
	rootCmd.AddCommand(basCmd)

	basCmd.Flags().String("variant", string(report.VariantGST), "Report layout: gst or tpar")
	basCmd.Flags().String("period", "", "Period containing today: quarterly, half-yearly, annually or financial-year")
	basCmd.Flags().String("start", "", "Range start (format: YYYY-MM-DD)")
	basCmd.Flags().String("end", "", "Range end, inclusive (format: YYYY-MM-DD)")
}

func runBAS(cmd *cobra.Command, args []string) error {
	variantFlag, _ := cmd.Flags().GetString("variant")
	periodFlag, _ := cmd.Flags().GetString("period")

	variant, err := report.ParseVariant(variantFlag)
	if err != nil {
		return err
	}
	start, err := parseDateFlag(cmd, "start")
	if err != nil {
		return err
	}
	end, err := parseDateFlag(cmd, "end")
	if err != nil {
		return err
	}

	kind := services.ReportGST
	if variant == report.VariantTPAR {
		kind = services.ReportTPAR
	}
	return writeReport(cmd, services.ExportRequest{
		Report: kind,
		Period: core.PeriodKind(strings.ToLower(strings.TrimSpace(periodFlag))),
		Start:  start,
		End:    end,
	})
}
