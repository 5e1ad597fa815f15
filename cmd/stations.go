package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargeguard/config"
	"github.com/kilianp07/chargeguard/core/model"
)

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Station related commands",
}

var stationsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List configured stations",
	RunE:  runStationsLs,
}

func init() {
	stationsCmd.AddCommand(stationsLsCmd)
	rootCmd.AddCommand(stationsCmd)
}

func runStationsLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return printStations(cmd.OutOrStdout(), cfg.Stations)
}

func printStations(w io.Writer, stations []model.StationConfig) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLOCATION")
	for _, s := range stations {
		fmt.Fprintf(tw, "%s\t%s\n", s.ID, s.Location)
	}
	return tw.Flush()
}
