package main

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/core"
)

func newDateCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("start", "", "")
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestParseDateFlag(t *testing.T) {
	got, err := parseDateFlag(newDateCmd(t, "--start", "2024-07-01"), "start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 7, 1, 0, 0, 0, 0, time.Local); !got.Equal(want) {
		t.Errorf("start = %v, want %v", got, want)
	}

	got, err = parseDateFlag(newDateCmd(t), "start")
	if err != nil || !got.IsZero() {
		t.Errorf("missing flag = %v, %v", got, err)
	}

	if _, err := parseDateFlag(newDateCmd(t, "--start", "01/07/2024"), "start"); !errors.Is(err, core.ErrInvalidRange) {
		t.Errorf("bad date error = %v, want ErrInvalidRange", err)
	}
}

func TestBASCommand_RejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown variant", []string{"bas", "--variant", "vat"}, core.ErrUnknownVariant},
		{"bad start", []string{"bas", "--start", "July"}, core.ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.SetArgs(tt.args)
			t.Cleanup(func() {
				basCmd.Flags().Set("variant", "gst")
				basCmd.Flags().Set("start", "")
			})
			if err := rootCmd.Execute(); !errors.Is(err, tt.want) {
				t.Errorf("Execute() error = %v, want %v", err, tt.want)
			}
		})
	}
}
