package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ormasoftchile/grader/pkg/config"
	"github.com/ormasoftchile/grader/pkg/grader"
	"github.com/ormasoftchile/grader/pkg/metrics"
	"github.com/ormasoftchile/grader/pkg/report"
	"github.com/ormasoftchile/grader/pkg/suite"
	"github.com/ormasoftchile/grader/pkg/trace"
)

var (
	runCandidate string
	runFormat    string
	runTrace     string
	runMetrics   string
	runIsolate   bool
)

var runCmd = &cobra.Command{
	Use:   "run [suite.yaml]",
	Short: "Grade a candidate program against a test suite",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if runIsolate {
		cfg.Isolation = config.IsolationSubprocess
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	s, errs := suite.ValidateFile(args[0])
	if len(suite.Errors(errs)) > 0 {
		printValidation(cmd, errs)
		return suite.AsError(errs)
	}
	printWarnings(cmd, errs)

	runner, err := newRunner(cfg, log)
	if err != nil {
		return err
	}

	opts := []grader.Option{
		grader.WithRunner(runner),
		grader.WithLogger(log),
		grader.WithTimeout(cfg.Timeout),
		grader.WithSeed(cfg.Seed),
		grader.WithMaxSteps(cfg.MaxSteps),
	}
	// Suite settings override the config; an explicit --timeout overrides both.
	opts = append(opts, s.EngineOptions(runCandidate)...)
	if cmd.Flags().Changed("timeout") {
		opts = append(opts, grader.WithTimeout(cfg.Timeout))
	}

	runID := trace.NewRunID()
	if runTrace != "" {
		tw, err := trace.NewFileWriter(runTrace, runID)
		if err != nil {
			return err
		}
		defer tw.Close()
		opts = append(opts, grader.WithTrace(tw))
	}
	var rec *metrics.Recorder
	if runMetrics != "" {
		rec = metrics.New()
		opts = append(opts, grader.WithMetrics(rec))
	}

	e, err := grader.New(opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()

	sum, err := suite.Run(ctx, e, s)
	if err != nil {
		return err
	}
	log.Debug("suite finished",
		zap.String("suite", s.Name),
		zap.Int("total", sum.Total),
		zap.Int("passed", sum.Passed),
	)

	candidate := runCandidate
	if p := e.Program(); p != nil {
		candidate = p.Identity()
	}
	meta := report.Meta{Suite: s.Name, Candidate: candidate, RunID: runID}
	if err := report.Write(cmd.OutOrStdout(), format, meta, sum); err != nil {
		return err
	}

	if rec != nil {
		if err := rec.WriteFile(runMetrics); err != nil {
			return err
		}
	}
	if sum.Failed > 0 {
		return errChecksFailed{failed: sum.Failed}
	}
	return nil
}

// outputFormat picks color output for terminals unless --format says
// otherwise.
func outputFormat(cmd *cobra.Command) (report.Format, error) {
	if !cmd.Flags().Changed("format") {
		if f, ok := cmd.OutOrStdout().(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			return report.Color, nil
		}
	}
	f, err := report.ParseFormat(runFormat)
	if err != nil {
		return "", fmt.Errorf("--format: %w", err)
	}
	return f, nil
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runCandidate, "candidate", "", "candidate program (overrides the suite's candidate)")
	f.StringVarP(&runFormat, "format", "f", "text", "report format: text, color, json or markdown")
	f.StringVar(&runTrace, "trace", "", "write a JSONL audit trail to this file")
	f.StringVar(&runMetrics, "metrics", "", "write Prometheus metrics to this file after the run")
	f.BoolVar(&runIsolate, "isolate", false, "run programs in a separate worker process")
}
