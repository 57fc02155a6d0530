package report

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/ormasoftchile/grader/pkg/results"
)

var ansiSeq = regexp.MustCompile("\x1b\\[[0-9;]*m")

func sample() results.Summary {
	var l results.Log
	l.Record("execute_script", "", nil, nil, true, "Script executed successfully")
	l.Record("plot_color", "", "blue", "#ff0000", false, "Line color mismatch")
	return l.Summary()
}

func TestParseFormat(t *testing.T) {
	for _, name := range Formats() {
		if _, err := ParseFormat(name); err != nil {
			t.Errorf("ParseFormat(%q): %v", name, err)
		}
	}
	if f, err := ParseFormat("JSON"); err != nil || f != JSON {
		t.Errorf("ParseFormat(JSON) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Text, Meta{}, sample()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"✓ PASS: Script executed successfully\n",
		"✗ FAIL: Line color mismatch\n",
		"Score: 1/2\n",
		"Success Rate: 50.0%\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteColor_AlignsKinds(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteColor(&buf, sample()); err != nil {
		t.Fatal(err)
	}
	plain := ansiSeq.ReplaceAllString(buf.String(), "")
	lines := strings.Split(plain, "\n")
	first := strings.Index(lines[0], "Script executed")
	second := strings.Index(lines[1], "Line color mismatch")
	if first < 0 || first != second {
		t.Errorf("columns not aligned:\n%s", plain)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Meta{Candidate: "hw1.py", RunID: "abc"}, sample()); err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["candidate"] != "hw1.py" || doc["score"] != "1/2" {
		t.Errorf("doc = %v", doc)
	}
	recs, _ := doc["results"].([]any)
	if len(recs) != 2 {
		t.Errorf("results = %v", doc["results"])
	}
}

func TestMarkdownSource(t *testing.T) {
	var l results.Log
	l.Record("code_contains", "", nil, nil, true, "Code contains 'a|b'")
	md := MarkdownSource(Meta{Candidate: "c.py"}, l.Summary())
	if !strings.Contains(md, "| ✓ | code_contains | Code contains 'a\\|b' |") {
		t.Errorf("markdown:\n%s", md)
	}

	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, Meta{}, l.Summary(), false); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "# Autograder report") {
		t.Errorf("raw markdown = %q", buf.String())
	}
}
