package suite

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaID = "https://github.com/ormasoftchile/grader/schemas/suite-v0.json"

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document from the
// Suite struct using invopop/jsonschema.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Suite{})
	s.ID = schemaID
	s.Title = "Grader Suite v0"
	s.Description = "Schema for grader suite YAML documents (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

var compiled struct {
	once   sync.Once
	schema *sjsonschema.Schema
	err    error
}

// compiledSchema generates and compiles the suite schema once.
func compiledSchema() (*sjsonschema.Schema, error) {
	compiled.once.Do(func() {
		data, err := GenerateJSONSchema()
		if err != nil {
			compiled.err = err
			return
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			compiled.err = fmt.Errorf("unmarshal schema: %w", err)
			return
		}
		c := sjsonschema.NewCompiler()
		if err := c.AddResource(schemaID, doc); err != nil {
			compiled.err = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled.schema, compiled.err = c.Compile(schemaID)
		if compiled.err != nil {
			compiled.err = fmt.Errorf("compile schema: %w", compiled.err)
		}
	})
	return compiled.schema, compiled.err
}
