package main

import (
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/grader/pkg/grader"
	"github.com/ormasoftchile/grader/pkg/shell"
)

var shellCmd = &cobra.Command{
	Use:   "shell [program.py]",
	Short: "Explore a program interactively and run checks one at a time",
	Args:  cobra.ExactArgs(1),
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	runner, err := newRunner(cfg, log)
	if err != nil {
		return err
	}
	e, err := grader.New(
		grader.WithCandidate(args[0]),
		grader.WithRunner(runner),
		grader.WithLogger(log),
		grader.WithTimeout(cfg.Timeout),
		grader.WithSeed(cfg.Seed),
		grader.WithMaxSteps(cfg.MaxSteps),
	)
	if err != nil {
		return err
	}
	sh := shell.New(e)
	sh.SetOutput(cmd.OutOrStdout())
	return sh.Run(cmdContext(cmd))
}
