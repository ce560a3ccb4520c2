package main

import (
	"github.com/spf13/cobra"

	"ledger/internal/services"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Export the project, category and job cost ledger",
	Long: `Export the fully expanded job cost ledger: one row per project, category,
job and invoice with its rolled-up cost, followed by the grand total.`,
	Example: `  ledgerctl ledger
  ledgerctl ledger --out ledger_report.csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeReport(cmd, services.ExportRequest{Report: services.ReportLedger})
	},
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
}
