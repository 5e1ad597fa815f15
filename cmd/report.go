package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargeguard/config"
	"github.com/kilianp07/chargeguard/core/audit"
	"github.com/kilianp07/chargeguard/core/report"
)

var (
	reportFormat string
	reportSince  time.Duration
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the audit trail",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "output format: text, json or html")
	reportCmd.Flags().DurationVar(&reportSince, "since", 0, "only include records newer than this duration")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := audit.NewStore(cfg.Audit)
	if err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	defer store.Close()

	q := audit.Query{}
	if reportSince > 0 {
		q.Start = time.Now().Add(-reportSince)
	}
	recs, err := store.Query(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("query audit: %w", err)
	}
	return writeReport(cmd.OutOrStdout(), reportFormat, report.Summarize(recs))
}

func writeReport(w io.Writer, format string, s report.Summary) error {
	switch format {
	case "text", "":
		return report.WriteText(w, s)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "html":
		return report.WriteHTML(w, s)
	}
	return fmt.Errorf("unknown format %q", format)
}
