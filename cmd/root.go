package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargeguard/app"
	"github.com/kilianp07/chargeguard/config"
	"github.com/kilianp07/chargeguard/infra/logger"
	"github.com/kilianp07/chargeguard/qa/scenarios"
)

var (
	cfgPath      string
	scenarioPath string
)

var rootCmd = &cobra.Command{
	Use:          "chargeguard",
	Short:        "Charging session allocator with identity-cloning detection",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario replayed against the live allocator at startup")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	var sc *scenarios.Scenario
	if scenarioPath != "" {
		if sc, err = scenarios.Load(scenarioPath); err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	log := logger.New("main")
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()
	if err := svc.Start(ctx); err != nil {
		return err
	}
	if sc != nil {
		results, err := scenarios.Run(svc.Allocator, sc)
		for _, r := range results {
			log.Infof("scenario %s: %s", sc.Name, r)
		}
		if err != nil {
			log.Warnf("scenario %s: %v", sc.Name, err)
		}
	}
	return svc.Wait(ctx)
}
