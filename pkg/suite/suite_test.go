package suite

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/grader"
)

func TestLoadFile(t *testing.T) {
	s, err := LoadFile("testdata/circle.yaml")
	require.NoError(t, err)
	assert.Equal(t, APIVersion, s.APIVersion)
	assert.Equal(t, "circle-area", s.Name)
	assert.Equal(t, Duration(5*time.Second), s.Timeout)
	assert.Len(t, s.Tests, 10)
	assert.True(t, s.ShouldExecute())

	cases := s.Tests[4].Params["cases"].([]any)
	first := cases[0].(map[string]any)
	assert.Equal(t, []any{int64(1)}, first["args"])
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := LoadFile("testdata/unknown_field.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries")
}

func TestLoad_InvalidTimeout(t *testing.T) {
	_, err := Load(strings.NewReader("apiVersion: grader/v0\ntimeout: soon\ntests: [{kind: plot_created}]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout")
}

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, schemaID, doc["$id"])
	assert.Contains(t, string(data), `"variable_relationship"`)
	assert.Contains(t, string(data), `"grader/v0"`)
}

func TestValidateFile_Valid(t *testing.T) {
	s, errs := ValidateFile("testdata/circle.yaml")
	require.NotNil(t, s)
	assert.Empty(t, errs)
	assert.NoError(t, AsError(errs))
}

func TestValidateFile_Invalid(t *testing.T) {
	_, errs := ValidateFile("testdata/invalid.yaml")
	require.NotEmpty(t, errs)

	var joined []string
	for _, e := range errs {
		joined = append(joined, e.Error())
	}
	all := strings.Join(joined, "\n")
	assert.Contains(t, all, "apiVersion")
	assert.Contains(t, all, `unknown check kind "variable_colour"`)
	assert.Contains(t, all, `missing required parameter "expected"`)
	assert.Contains(t, all, `unknown parameter "color"`)
	assert.Contains(t, all, "candidate missing.py not found")

	err := AsError(errs)
	assert.True(t, errors.Is(err, errors.SuiteInvalid))
}

func TestValidateFile_Structural(t *testing.T) {
	_, errs := ValidateFile("testdata/unknown_field.yaml")
	require.Len(t, errs, 1)
	assert.Equal(t, "structural", errs[0].Phase)
}

func TestValidateDomain_WarnsBeforeExecution(t *testing.T) {
	no := false
	s := &Suite{
		APIVersion: APIVersion,
		Execute:    &no,
		Tests:      []Test{{Kind: "variable_value", Params: map[string]any{"name": "x", "expected": int64(1)}}},
	}
	errs := ValidateDomain(s)
	require.Len(t, errs, 1)
	assert.Equal(t, "warning", errs[0].Severity)
	assert.NoError(t, AsError(errs))
}

func TestInstancePath(t *testing.T) {
	assert.Equal(t, "tests[2].kind", instancePath([]string{"tests", "2", "kind"}))
	assert.Equal(t, "", instancePath(nil))
}

func TestRun(t *testing.T) {
	s, err := LoadFile("testdata/circle.yaml")
	require.NoError(t, err)
	e, err := grader.New(s.EngineOptions("")...)
	require.NoError(t, err)

	sum, err := Run(context.Background(), e, s)
	require.NoError(t, err)
	for _, r := range sum.Records {
		assert.True(t, r.Passed, "%s: %s", r.Kind, r.Message)
	}
	assert.Equal(t, "execute_script", sum.Records[0].Kind)
	assert.Equal(t, sum.Total, sum.Passed)
	assert.Equal(t, "total of the three areas", sum.Records[3].Description)
}

func TestRun_StopsOnUsageError(t *testing.T) {
	s := &Suite{
		APIVersion: APIVersion,
		Tests: []Test{
			{Kind: "code_contains", Params: map[string]any{"phrase": "x"}},
			{Kind: "no_such_kind"},
			{Kind: "plot_created"},
		},
	}
	e, err := grader.New(grader.WithSource("c.py", "x = 1\n"))
	require.NoError(t, err)

	sum, err := Run(context.Background(), e, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.UnknownKind))
	assert.Contains(t, err.Error(), "tests[1]")
	assert.Equal(t, 2, sum.Total)
}
