package suite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/grader"
)

// ValidationError is a single validation problem with its location.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // e.g. "tests[2].params.expected"
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %s", e.Phase, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// ValidateFile runs the full pipeline on a suite file:
// strict YAML decode, JSON Schema validation, then the dispatch registry.
func ValidateFile(path string) (*Suite, []*ValidationError) {
	s, err := LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{{Phase: "structural", Message: err.Error(), Severity: "error"}}
	}
	errs := Validate(s)
	if len(errs) > 0 {
		return s, errs
	}
	return s, nil
}

// Validate runs the semantic and domain phases on a decoded suite.
func Validate(s *Suite) []*ValidationError {
	errs := validateSemantic(s)
	errs = append(errs, ValidateDomain(s)...)
	return errs
}

// Errors keeps only error-severity entries.
func Errors(errs []*ValidationError) []*ValidationError {
	var out []*ValidationError
	for _, e := range errs {
		if e.Severity == "error" {
			out = append(out, e)
		}
	}
	return out
}

// AsError folds error-severity entries into one SuiteInvalid error, nil
// when there are none.
func AsError(errs []*ValidationError) error {
	errs = Errors(errs)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return errors.Newf(errors.SuiteInvalid, "invalid suite: %s", strings.Join(msgs, "; ")).
		WithDetail("count", len(errs))
}

func validateSemantic(s *Suite) []*ValidationError {
	semantic := func(format string, args ...any) []*ValidationError {
		return []*ValidationError{{Phase: "semantic", Message: fmt.Sprintf(format, args...), Severity: "error"}}
	}
	sch, err := compiledSchema()
	if err != nil {
		return semantic("%v", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return semantic("marshal for schema validation: %v", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return semantic("unmarshal document: %v", err)
	}
	err = sch.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*sjsonschema.ValidationError)
	if !ok {
		return semantic("%v", err)
	}
	var errs []*ValidationError
	for _, cause := range flattenValidationErrors(ve) {
		errs = append(errs, &ValidationError{
			Phase:    "semantic",
			Path:     instancePath(cause.InstanceLocation),
			Message:  fmt.Sprintf("%v", cause.ErrorKind),
			Severity: "error",
		})
	}
	return errs
}

func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// instancePath renders ["tests", "2", "kind"] as tests[2].kind.
func instancePath(loc []string) string {
	var b strings.Builder
	for _, part := range loc {
		if part != "" && strings.Trim(part, "0123456789") == "" {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

// ValidateDomain checks every test against the dispatch registry and the
// referenced files against the suite's directory.
func ValidateDomain(s *Suite) []*ValidationError {
	var errs []*ValidationError
	add := func(severity, path, format string, args ...any) {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     path,
			Message:  fmt.Sprintf(format, args...),
			Severity: severity,
		})
	}

	if s.APIVersion != APIVersion {
		add("error", "apiVersion", "unsupported apiVersion %q, want %q", s.APIVersion, APIVersion)
	}
	if s.Timeout < 0 {
		add("error", "timeout", "timeout must be positive")
	}
	if s.Candidate != "" && s.Path != "" {
		if _, err := os.Stat(s.Resolve(s.Candidate)); err != nil {
			add("warning", "candidate", "candidate %s not found", s.Candidate)
		}
	}
	if len(s.Tests) == 0 {
		add("error", "tests", "suite has no tests")
	}

	executes := s.ShouldExecute()
	for i, t := range s.Tests {
		path := fmt.Sprintf("tests[%d]", i)
		spec, ok := grader.Lookup(t.Kind)
		if !ok {
			add("error", path+".kind", "unknown check kind %q", t.Kind)
			continue
		}
		if err := spec.Check(t.Params); err != nil {
			add("error", path+".params", "%v", err)
		}
		if t.Kind == "execute_script" {
			executes = true
		}
		if file, ok := t.Params["solution"].(string); ok && s.Path != "" {
			if _, err := os.Stat(s.Resolve(file)); err != nil {
				add("error", path+".params.solution", "solution %s not found", file)
			}
		}
		if !executes && needsExecution(t.Kind) {
			add("warning", path, "%s runs before execute_script and will fail", t.Kind)
		}
	}
	return errs
}

// needsExecution lists the kinds that read the captured state.
func needsExecution(kind string) bool {
	switch kind {
	case "function_exists", "function_called", "function_not_called",
		"for_loop_used", "while_loop_used", "if_statement_used",
		"operator_used", "code_contains", "instrument_loops", "execute_script":
		return false
	}
	return true
}

// Resolve makes path relative to the suite's directory.
func (s *Suite) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || s.Path == "" {
		return path
	}
	return filepath.Join(filepath.Dir(s.Path), path)
}

// Dir is the suite's directory, "" for suites not loaded from a file.
func (s *Suite) Dir() string {
	if s.Path == "" {
		return ""
	}
	return filepath.Dir(s.Path)
}
