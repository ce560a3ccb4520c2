package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/report"
	"ledger/internal/services"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Render job cost ledger, aging and BAS reports",
	Long: `ledgerctl reads projects, jobs, invoices and payments from the configured
backend and writes a report as CSV.

The backend is selected with DATA_BACKEND exactly as for the ledger server,
and a .env file in the working directory is loaded when present.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("out", "o", "", "Write the report to this file instead of stdout")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is the backend and report service shared by the subcommands.
type env struct {
	cfg     *config.Config
	logger  *applog.Logger
	backend *backend.BackendResult
	reports *services.ReportService
}

// stderrLogger keeps log lines out of CSV written to stdout.
func stderrLogger(cfg *config.Config) *applog.Logger {
	level, format := slog.LevelWarn, "text"
	if cfg != nil {
		level, format = applog.ParseLevel(cfg.LogLevel), cfg.LogFormat
	}
	return applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentApp,
		Handler:   applog.NewHandler(os.Stderr, format, level),
	})
}

func openEnv(ctx context.Context) *env {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(stderrLogger(nil))
	logger := stderrLogger(cfg)
	res := cli.InitBackend(ctx, logger, cfg)
	return &env{
		cfg:     cfg,
		logger:  logger,
		backend: res,
		reports: cli.NewReportService(cfg, res.Source),
	}
}

func (e *env) Close() {
	if err := e.backend.Close(); err != nil {
		e.logger.Error("Backend cleanup failed", applog.FieldError, err)
	}
}

// writeReport renders req and writes it to --out or stdout.
func writeReport(cmd *cobra.Command, req services.ExportRequest) error {
	e := openEnv(cmd.Context())
	defer e.Close()

	tbl, err := e.reports.Table(cmd.Context(), req)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}
	if err := report.WriteCSV(w, tbl); err != nil {
		return fmt.Errorf("write %s: %w", tbl.Name, err)
	}

	e.logger.WithComponent(applog.ComponentReport).Info("Report written",
		applog.FieldReport, tbl.Stem(), applog.FieldRows, len(tbl.Rows), "out", out)
	return nil
}

// parseDateFlag reads a YYYY-MM-DD flag in local time. Empty gives the zero time.
func parseDateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: --%s %q is not YYYY-MM-DD", core.ErrInvalidRange, name, s)
	}
	return t, nil
}
