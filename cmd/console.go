package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargeguard/config"
	"github.com/kilianp07/chargeguard/core/allocator"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Drive an in-process allocator from stdin",
	Long: `Reads one command per line:
  start <user> <station>   request a charging session
  stop <session>           release a session
  ls                       list stations and active sessions`,
	RunE: runConsoleCmd,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsoleCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return runConsole(allocator.New(cfg.Stations), cmd.InOrStdin(), cmd.OutOrStdout())
}

func runConsole(alloc *allocator.Allocator, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "start":
			if len(fields) != 3 {
				fmt.Fprintln(out, "usage: start <user> <station>")
				continue
			}
			res := alloc.RequestCharge(fields[1], fields[2])
			if res.Success {
				fmt.Fprintf(out, "OK %s: %s\n", res.Session.ID, res.Message)
			} else {
				fmt.Fprintf(out, "REJECTED %s: %s\n", res.Reason, res.Message)
			}
		case "stop":
			if len(fields) != 2 {
				fmt.Fprintln(out, "usage: stop <session>")
				continue
			}
			if alloc.StopCharge(fields[1]) {
				fmt.Fprintf(out, "stopped %s\n", fields[1])
			} else {
				fmt.Fprintf(out, "no active session %s\n", fields[1])
			}
		case "ls":
			snap := alloc.Snapshot()
			fmt.Fprintf(out, "%d/%d stations occupied\n", snap.Occupied, snap.Total)
			for _, st := range snap.Stations {
				state := "free"
				if st.Occupied {
					state = "busy"
				}
				fmt.Fprintf(out, "  %s (%s) %s\n", st.ID, st.Location, state)
			}
			for _, s := range snap.Sessions {
				fmt.Fprintf(out, "  session %s user=%s station=%s since=%s\n", s.ID, s.UserID, s.StationID, s.StartTime.Format("15:04:05"))
			}
		default:
			fmt.Fprintf(out, "unknown command %q\n", fields[0])
		}
	}
	return sc.Err()
}
