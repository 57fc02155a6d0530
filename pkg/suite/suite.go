// Package suite defines the declarative test-suite document and provides
// strict YAML parsing.
package suite

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/grader/pkg/grader"
)

// APIVersion is the only accepted document version.
const APIVersion = "grader/v0"

// Suite is a list of checks run against one candidate program.
type Suite struct {
	APIVersion  string   `yaml:"apiVersion"            json:"apiVersion"            jsonschema:"required,enum=grader/v0"`
	Name        string   `yaml:"name,omitempty"        json:"name,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Candidate   string   `yaml:"candidate,omitempty"   json:"candidate,omitempty"`
	Timeout     Duration `yaml:"timeout,omitempty"     json:"timeout,omitempty"`
	Seed        int64    `yaml:"seed,omitempty"        json:"seed,omitempty"`
	MaxSteps    uint64   `yaml:"max_steps,omitempty"   json:"max_steps,omitempty"`
	// Execute controls the implicit execute_script before the first test.
	// Absent means true.
	Execute   *bool    `yaml:"execute,omitempty"   json:"execute,omitempty"`
	Variables []string `yaml:"variables,omitempty" json:"variables,omitempty"`
	Tests     []Test   `yaml:"tests"               json:"tests"               jsonschema:"required,minItems=1"`

	// Path is where the suite was loaded from; relative paths resolve
	// against its directory.
	Path string `yaml:"-" json:"-"`
}

// Test is one dispatched check.
type Test struct {
	Kind        string         `yaml:"kind"                  json:"kind"                  jsonschema:"required"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Params      map[string]any `yaml:"params,omitempty"      json:"params,omitempty"`
}

// JSONSchemaExtend restricts kind to the dispatch table.
func (Test) JSONSchemaExtend(s *jsonschema.Schema) {
	kind, ok := s.Properties.Get("kind")
	if !ok {
		return
	}
	for _, k := range grader.Kinds() {
		kind.Enum = append(kind.Enum, k.Name)
	}
}

// Duration is a time.Duration written as a Go duration string ("10s").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid timeout %q: %w", n.Line, s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText writes the duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// JSONSchema describes the string form.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration, such as 10s or 1m30s",
	}
}

// ShouldExecute reports whether Run starts with execute_script.
func (s *Suite) ShouldExecute() bool {
	return s.Execute == nil || *s.Execute
}

// LoadFile reads and parses a suite file with strict unknown-field
// rejection.
func LoadFile(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open suite: %w", err)
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, err
	}
	s.Path = path
	return s, nil
}

// Load parses a suite from r with strict unknown-field rejection.
func Load(r io.Reader) (*Suite, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Suite
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode suite: %w", err)
	}
	for i := range s.Tests {
		if s.Tests[i].Params != nil {
			s.Tests[i].Params = grader.Normalize(s.Tests[i].Params).(map[string]any)
		}
	}
	return &s, nil
}
