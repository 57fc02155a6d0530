// Package shell implements the interactive REPL for exploring a candidate
// program and trying checks against it.
package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/grader/pkg/grader"
	"github.com/ormasoftchile/grader/pkg/value"
)

// Shell drives one engine interactively.
type Shell struct {
	engine *grader.Engine
	output io.Writer
	rl     *readline.Instance
}

// New creates a shell over e writing to stdout.
func New(e *grader.Engine) *Shell {
	return &Shell{engine: e, output: os.Stdout}
}

// SetOutput redirects command output.
func (s *Shell) SetOutput(w io.Writer) { s.output = w }

var commands = []string{"run", "check", "vars", "print", "stdout", "figures", "loops", "facts", "kinds", "summary", "help", "quit"}

// Run starts the REPL loop. It returns on quit, EOF or interrupt.
func (s *Shell) Run(ctx context.Context) error {
	completer := readline.NewPrefixCompleter()
	for _, cmd := range commands {
		if cmd == "check" {
			var kinds []readline.PrefixCompleterInterface
			for _, k := range grader.Kinds() {
				kinds = append(kinds, readline.PcItem(k.Name))
			}
			completer.Children = append(completer.Children, readline.PcItem(cmd, kinds...))
			continue
		}
		completer.Children = append(completer.Children, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	s.rl = rl
	defer rl.Close()

	name := "(no program)"
	if p := s.engine.Program(); p != nil {
		name = p.Identity()
	}
	fmt.Fprintf(s.output, "grader shell: %s\n", name)
	fmt.Fprintf(s.output, "Type 'help' for available commands, 'run' to execute the program.\n\n")

	for {
		rl.SetPrompt(s.prompt())
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}
		if s.Exec(ctx, line) {
			return nil
		}
	}
}

func (s *Shell) prompt() string {
	sum := s.engine.Summary()
	if sum.Total == 0 {
		return "grader> "
	}
	return fmt.Sprintf("grader[%s]> ", sum.Score)
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	parts := strings.Fields(line)
	switch parts[0] {
	case "run", "r":
		s.engine.ExecuteScript(ctx, nil)
		s.printLast()
	case "check", "c":
		s.handleCheck(ctx, parts[1:])
	case "vars", "v":
		s.handleVars()
	case "print", "p":
		s.handlePrint(parts[1:])
	case "stdout":
		fmt.Fprint(s.output, s.engine.Stdout())
	case "figures", "f":
		s.handleFigures()
	case "loops":
		s.engine.InstrumentLoops(ctx, nil)
		s.printLast()
	case "facts":
		s.handleFacts()
	case "kinds":
		s.handleKinds()
	case "summary":
		s.engine.PrintSummary(s.output)
	case "help", "?":
		s.handleHelp()
	case "quit", "q", "exit":
		return true
	default:
		fmt.Fprintf(s.output, "Unknown command: %q. Type 'help' for available commands.\n", parts[0])
	}
	return false
}

func (s *Shell) printLast() {
	recs := s.engine.Records()
	if len(recs) == 0 {
		return
	}
	fmt.Fprintln(s.output, recs[len(recs)-1].Line())
}

// handleCheck runs "check <kind> key=value ...". Values are YAML, so
// expected=[1, 2] and has_legend=true decode as a list and a bool.
func (s *Shell) handleCheck(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.output, "Usage: check <kind> [param=value ...]")
		return
	}
	params, err := ParseParams(args[1:])
	if err != nil {
		fmt.Fprintf(s.output, "Error: %v\n", err)
		return
	}
	before := len(s.engine.Records())
	if _, err := s.engine.Dispatch(ctx, args[0], params); err != nil {
		fmt.Fprintf(s.output, "Error: %v\n", err)
		return
	}
	for _, r := range s.engine.Records()[before:] {
		fmt.Fprintln(s.output, r.Line())
	}
}

// ParseParams decodes key=value words. A value may span several words
// when it opens a YAML flow collection, as in expected=[1, 2, 3].
func ParseParams(words []string) (map[string]any, error) {
	params := map[string]any{}
	for i := 0; i < len(words); i++ {
		key, raw, ok := strings.Cut(words[i], "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", words[i])
		}
		for depth(raw) > 0 && i+1 < len(words) {
			i++
			raw += " " + words[i]
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		params[key] = grader.Normalize(v)
	}
	return params, nil
}

func depth(s string) int {
	d := 0
	for _, r := range s {
		switch r {
		case '[', '{':
			d++
		case ']', '}':
			d--
		}
	}
	return d
}

func (s *Shell) handleVars() {
	res := s.engine.Result()
	if res == nil {
		fmt.Fprintln(s.output, "Program not executed. Type 'run' first.")
		return
	}
	names := make([]string, 0, len(res.Bindings))
	for name := range res.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := res.Bindings[name]
		fmt.Fprintf(s.output, "  %-16s %-10s %s\n", name, value.TypeName(v), truncate(value.Repr(v), 60))
	}
}

func (s *Shell) handlePrint(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.output, "Usage: print <name>")
		return
	}
	res := s.engine.Result()
	if res == nil {
		fmt.Fprintln(s.output, "Program not executed. Type 'run' first.")
		return
	}
	v, ok := res.Binding(args[0])
	if !ok {
		fmt.Fprintf(s.output, "Variable '%s' not found\n", args[0])
		return
	}
	fmt.Fprintln(s.output, value.Repr(v))
}

func (s *Shell) handleFigures() {
	res := s.engine.Result()
	if res == nil {
		fmt.Fprintln(s.output, "Program not executed. Type 'run' first.")
		return
	}
	if len(res.Figures) == 0 {
		fmt.Fprintln(s.output, "No plot created")
		return
	}
	for _, f := range res.Figures {
		fmt.Fprintf(s.output, "Figure %d: title=%q xlabel=%q ylabel=%q legend=%v grid=%v\n",
			f.Number, f.Title, f.XLabel, f.YLabel, f.Legend, f.Grid)
		for i, l := range f.Series {
			fmt.Fprintf(s.output, "  line %d: %s %d points color=%s style=%s marker=%s label=%q\n",
				i, l.Kind, len(l.X), l.Color, l.LineStyle, l.Marker, l.Label)
		}
	}
}

func (s *Shell) handleFacts() {
	a := s.engine.Analyzer()
	if a == nil {
		fmt.Fprintln(s.output, "No program loaded.")
		return
	}
	data, err := json.MarshalIndent(a.Facts(), "", "  ")
	if err != nil {
		fmt.Fprintf(s.output, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.output, string(data))
}

func (s *Shell) handleKinds() {
	for _, k := range grader.Kinds() {
		fmt.Fprintf(s.output, "  %-28s %s\n", k.Name, k.Description)
	}
}

func (s *Shell) handleHelp() {
	fmt.Fprintln(s.output, `Commands:
  run, r                     Execute the program and capture its state
  check, c <kind> [k=v ...]  Run one check; values are YAML (expected=[1, 2])
  vars, v                    List captured variables
  print, p <name>            Show one variable
  stdout                     Show what the program printed
  figures, f                 Describe captured figures
  loops                      Count loop iterations with an instrumented run
  facts                      Show static facts about the source
  kinds                      List check kinds
  summary                    Print the score so far
  help, ?                    Show this help
  quit, q                    Leave the shell`)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
