package results

import (
	"bytes"
	"sync"
	"testing"
)

func TestSummary_Empty(t *testing.T) {
	var l Log
	s := l.Summary()
	if s.Total != 0 || s.SuccessRate != 0 || s.Score != "0/0" {
		t.Errorf("summary = %+v", s)
	}
}

func TestFormat(t *testing.T) {
	var l Log
	l.Record("execute_script", "", nil, nil, true, "Script executed successfully")
	l.Record("variable_value", "", int64(4), int64(3), false, "'total' = 3, expected 4")
	l.Record("for_loop_used", "", nil, nil, true, "For loop is used")

	want := "============================================================\n" +
		"AUTOGRADER SUMMARY\n" +
		"============================================================\n" +
		"Score: 2/3\n" +
		"Total Tests: 3\n" +
		"Passed: 2\n" +
		"Failed: 1\n" +
		"Success Rate: 66.7%\n" +
		"============================================================\n"
	if got := l.Summary().Format(); got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}

	var buf bytes.Buffer
	if err := l.Summary().Print(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "\n"+want {
		t.Errorf("Print wrote %q", buf.String())
	}
}

func TestAdd_FeedbackOverridesMessage(t *testing.T) {
	var l Log
	r := l.Add(TestRecord{Kind: "plot_created", Passed: false, Message: "Draw something!", DefaultMessage: "No plot created"})
	if r.Line() != "✗ FAIL: Draw something!" {
		t.Errorf("line = %q", r.Line())
	}
	r = l.Add(TestRecord{Kind: "plot_created", Passed: true, DefaultMessage: "Plot created"})
	if r.Message != "Plot created" || r.Line() != "✓ PASS: Plot created" {
		t.Errorf("record = %+v", r)
	}
}

func TestLog_Concurrent(t *testing.T) {
	var l Log
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Record("k", "", nil, nil, i%2 == 0, "m")
		}(i)
	}
	wg.Wait()
	s := l.Summary()
	if s.Total != 50 || s.Passed != 25 {
		t.Errorf("summary = %+v", s)
	}
	// Records returns a copy.
	recs := l.Records()
	recs[0].Message = "changed"
	if l.Records()[0].Message == "changed" {
		t.Error("Records exposed internal storage")
	}
}
