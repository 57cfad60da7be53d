package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lowaak/smart-trainer/coach-app/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "coach",
		Short:         "Voice-guided workout coach",
		Long:          "Runs timed exercise sessions with spoken cues, tracks calories and distance, and enforces a weekly limit of full training days.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.coach/config.yaml)")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newStatusCmd(&configPath))
	root.AddCommand(newHistoryCmd(&configPath))
	root.AddCommand(newProfileCmd(&configPath))
	root.AddCommand(newSnapshotCmd(&configPath))
	root.AddCommand(newSportsCmd(&configPath))
	return root
}
