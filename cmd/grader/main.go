// Package main provides the grader binary.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ormasoftchile/grader/pkg/config"
	"github.com/ormasoftchile/grader/pkg/logger"
	"github.com/ormasoftchile/grader/pkg/sandbox"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath string
	verbose    bool
	timeout    time.Duration
	isolation  string
	seed       int64
	maxSteps   uint64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:           "grader",
	Short:         "Autograder for student programs",
	Long:          "grader runs a candidate program in a sandbox, inspects its source, bindings and plots, and reports one pass/fail record per check.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errChecksFailed makes the process exit with status 1 without printing
// anything beyond the report.
type errChecksFailed struct{ failed int }

func (e errChecksFailed) Error() string { return fmt.Sprintf("%d check(s) failed", e.failed) }

func exitCode(err error) int {
	if _, ok := err.(errChecksFailed); ok {
		return 1
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 2
}

// loadConfig resolves settings from the config file, .env, GRADER_*
// variables and finally the command-line flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if err := config.LoadDotEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("isolation") {
		cfg.Isolation = isolation
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps = maxSteps
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

// cmdContext is the command's context, or Background when the command is
// invoked without Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	l, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// newRunner returns nil for in-process execution, which the engine
// treats as its default runner.
func newRunner(cfg config.Config, l *zap.Logger) (sandbox.Runner, error) {
	if cfg.Isolation != config.IsolationSubprocess {
		return nil, nil
	}
	return sandbox.NewSubprocess(nil, cfg.Worker, l)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to a grader config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.DurationVar(&timeout, "timeout", config.DefaultTimeout, "execution budget per program run")
	pf.StringVar(&isolation, "isolation", config.IsolationInProcess, "inprocess or subprocess")
	pf.Int64Var(&seed, "seed", 0, "seed for the random module")
	pf.Uint64Var(&maxSteps, "max-steps", 0, "interpreter step limit (0 = unlimited)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(kindsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "grader %s (%s)\n", version, commit)
	},
}
