package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargeguard/config"
	"github.com/kilianp07/chargeguard/core/audit"
	"github.com/kilianp07/chargeguard/pkg/export"
)

var (
	exportFormat  string
	exportUser    string
	exportStation string
	exportReason  string
	exportSince   time.Duration
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit trail commands",
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records as csv or json",
	RunE:  runAuditExport,
}

func init() {
	f := auditExportCmd.Flags()
	f.StringVar(&exportFormat, "format", "csv", "output format: csv or json")
	f.StringVar(&exportUser, "user", "", "only records of this user identity")
	f.StringVar(&exportStation, "station", "", "only records involving this station")
	f.StringVar(&exportReason, "reason", "", "only rejections with this reason code")
	f.DurationVar(&exportSince, "since", 0, "only include records newer than this duration")
	auditCmd.AddCommand(auditExportCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := audit.NewStore(cfg.Audit)
	if err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	defer store.Close()

	q := audit.Query{UserID: exportUser, StationID: exportStation, Reason: exportReason}
	if exportSince > 0 {
		q.Start = time.Now().Add(-exportSince)
	}
	recs, err := store.Query(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("query audit: %w", err)
	}
	return writeExport(cmd.OutOrStdout(), exportFormat, recs)
}

func writeExport(w io.Writer, format string, recs []audit.Record) error {
	switch format {
	case "csv", "":
		return export.WriteCSV(w, recs)
	case "json":
		return export.WriteJSON(w, recs)
	}
	return fmt.Errorf("unknown format %q", format)
}
