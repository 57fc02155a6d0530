package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/grader/pkg/analyzer"
	"github.com/ormasoftchile/grader/pkg/grader"
	"github.com/ormasoftchile/grader/pkg/instrument"
	"github.com/ormasoftchile/grader/pkg/program"
	"github.com/ormasoftchile/grader/pkg/sandbox"
	"github.com/ormasoftchile/grader/pkg/suite"
	"github.com/ormasoftchile/grader/pkg/trace"
)

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [suite.yaml]",
	Short: "Validate a test suite against the schema and the check registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, errs := suite.ValidateFile(args[0])
	if len(suite.Errors(errs)) > 0 {
		printValidation(cmd, errs)
		return fmt.Errorf("validation failed with %d error(s)", len(suite.Errors(errs)))
	}
	printWarnings(cmd, errs)
	name := s.Name
	if name == "" {
		name = args[0]
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (%d tests)\n", name, len(s.Tests))
	return nil
}

func printWarnings(cmd *cobra.Command, errs []*suite.ValidationError) {
	w := cmd.ErrOrStderr()
	for _, e := range errs {
		if e.Severity != "warning" {
			continue
		}
		fmt.Fprintf(w, "  ⚠ [%s] %s\n", e.Phase, e.Message)
		if e.Path != "" {
			fmt.Fprintf(w, "    at: %s\n", e.Path)
		}
	}
}

func printValidation(cmd *cobra.Command, errs []*suite.ValidationError) {
	printWarnings(cmd, errs)
	w := cmd.ErrOrStderr()
	failed := suite.Errors(errs)
	fmt.Fprintf(w, "Validation failed: %d error(s)\n\n", len(failed))
	for i, e := range failed {
		fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
		if e.Path != "" {
			fmt.Fprintf(w, "     at: %s\n", e.Path)
		}
	}
}

// --- schema ---

var schemaOut string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for test suites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := suite.GenerateJSONSchema()
		if err != nil {
			return err
		}
		if schemaOut != "" {
			return os.WriteFile(schemaOut, append(data, '\n'), 0o644)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

// --- kinds ---

var kindsJSON bool

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the check kinds a suite may use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if kindsJSON {
			return writeJSON(out, grader.Kinds())
		}
		for _, k := range grader.Kinds() {
			fmt.Fprintf(out, "%-28s %s\n", k.Name, k.Description)
			var params []string
			for _, p := range k.Params {
				s := p.Name + ":" + p.Type
				if !p.Required {
					s = "[" + s + "]"
				}
				params = append(params, s)
			}
			if len(params) > 0 {
				fmt.Fprintf(out, "%-28s %s\n", "", strings.Join(params, " "))
			}
		}
		return nil
	},
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [program.py]",
	Short: "Print the structural facts extracted from a program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := program.Load(args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), analyzer.New(cmdContext(cmd), p).Facts())
	},
}

// --- trace ---

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Trace file operations",
}

var traceVerifyCmd = &cobra.Command{
	Use:   "verify [trace.jsonl]",
	Short: "Verify the hash chain of a trace file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceVerify,
}

func runTraceVerify(cmd *cobra.Command, args []string) error {
	res, err := trace.VerifyFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !res.Valid {
		fmt.Fprintf(out, "✗ Chain broken at event %d\n", res.BrokenAt)
		if res.Error != "" {
			fmt.Fprintf(out, "  %s\n", res.Error)
		}
		return fmt.Errorf("chain verification failed")
	}
	fmt.Fprintf(out, "✓ Chain integrity: %d events, no breaks (run %s)\n", res.EventCount, res.RunID)
	return nil
}

// --- sandbox-worker ---

var workerCmd = &cobra.Command{
	Use:    "sandbox-worker",
	Short:  "Run one program request from stdin (used by --isolate)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sandbox.ServeWorker(cmdContext(cmd), cmd.InOrStdin(), cmd.OutOrStdout(), instrument.BuildUnit)
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaOut, "out", "o", "", "write the schema to a file")
	kindsCmd.Flags().BoolVar(&kindsJSON, "json", false, "print the registry as JSON")
	traceCmd.AddCommand(traceVerifyCmd)
}
