package main

import (
	"strings"

	"github.com/spf13/cobra"

	"ledger/internal/services"
)

var agingCmd = &cobra.Command{
	Use:   "aging",
	Short: "Export accounts payable aging",
	Long: `Export every unpaid invoice with its contractor, amount due and aging
bucket. The whole report is written; --search keeps only contractors whose
company name contains the term.`,
	Example: `  ledgerctl aging
  ledgerctl aging --search plumbing --out aging_report.csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")
		return writeReport(cmd, services.ExportRequest{
			Report: services.ReportAging,
			Search: strings.TrimSpace(search),
		})
	},
}

func init() {
	rootCmd.AddCommand(agingCmd)

	agingCmd.Flags().String("search", "", "Case-insensitive contractor company filter")
}
