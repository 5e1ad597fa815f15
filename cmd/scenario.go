package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargeguard/core/allocator"
	"github.com/kilianp07/chargeguard/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Scenario related commands",
}

var scenarioRunCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Replay a scenario on a fresh allocator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScenarioFile(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	scenarioCmd.AddCommand(scenarioRunCmd)
	rootCmd.AddCommand(scenarioCmd)
}

func runScenarioFile(w io.Writer, path string) error {
	sc, err := scenarios.Load(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "scenario %s (%d stations, %d steps)\n", sc.Name, len(sc.Stations), len(sc.Steps))
	results, err := scenarios.Run(allocator.New(sc.Stations), sc)
	for _, r := range results {
		fmt.Fprintln(w, r)
		if r.Message != "" {
			fmt.Fprintf(w, "   %s\n", r.Message)
		}
	}
	return err
}
