package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledger/internal/cli"
	"ledger/internal/services"
	"ledger/internal/worker"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Copy the backend into a local SQLite database",
	Long: `Copy every project, category, job, contractor, invoice and payment from
the configured backend into a SQLite database. The database can then be
served with DATA_BACKEND=sqlite. Existing rows in the target are replaced.`,
	Example: `  ledgerctl mirror --to ./data/mirror.db`,
	Args:    cobra.NoArgs,
	RunE:    runMirror,
}

func init() {
	rootCmd.AddCommand(mirrorCmd)

	mirrorCmd.Flags().String("to", "", "SQLite database path (default: MIRROR_DB_PATH)")
}

func runMirror(cmd *cobra.Command, args []string) error {
	e := openEnv(cmd.Context())
	defer e.Close()

	path, _ := cmd.Flags().GetString("to")
	if path == "" {
		path = e.cfg.MirrorDBPath
	}
	if path == "" {
		return fmt.Errorf("no target database: pass --to or set MIRROR_DB_PATH")
	}

	repo := cli.InitSQLite(e.logger, path)
	defer repo.Close()

	loader := services.NewReportService(e.backend.Source, services.ReportOptions{FetchTimeout: e.cfg.FetchTimeout})
	stats, err := worker.NewMirrorWorker(loader, repo, 0, e.logger).Refresh(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Mirrored %d projects, %d jobs, %d invoices, %d payments and %d contractors into %s\n",
		stats.Projects, stats.Jobs, stats.Invoices, stats.Payments, stats.Contractors, path)
	return nil
}
